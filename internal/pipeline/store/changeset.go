package store

import (
	"context"
	"sort"

	"crm_pipeline_backend/internal/pipeline/domain"
)

// Changes are the pending writes to one collection. Within one Changes a record
// id is either upserted or deleted, never both; the last call wins.
type Changes[T Entity] struct {
	Upserts map[string]T
	Deletes map[string]struct{}
}

// Upsert records a create or update.
func (c *Changes[T]) Upsert(item T) {
	if c.Upserts == nil {
		c.Upserts = map[string]T{}
	}
	delete(c.Deletes, item.EntityID())
	c.Upserts[item.EntityID()] = item
}

// Delete records a removal.
func (c *Changes[T]) Delete(id string) {
	if c.Deletes == nil {
		c.Deletes = map[string]struct{}{}
	}
	delete(c.Upserts, id)
	c.Deletes[id] = struct{}{}
}

// IsEmpty reports whether nothing is pending.
func (c Changes[T]) IsEmpty() bool {
	return len(c.Upserts) == 0 && len(c.Deletes) == 0
}

// Merge layers newer on top of c.
func (c *Changes[T]) Merge(newer Changes[T]) {
	for _, id := range sortedKeys(newer.Upserts) {
		c.Upsert(newer.Upserts[id])
	}
	for id := range newer.Deletes {
		c.Delete(id)
	}
}

// apply writes the changes into items.
func (c Changes[T]) apply(items map[string]T) {
	for id, item := range c.Upserts {
		items[id] = item
	}
	for id := range c.Deletes {
		delete(items, id)
	}
}

// flush sends the changes to col in deterministic order.
func (c Changes[T]) flush(ctx context.Context, col Collection[T]) error {
	if c.IsEmpty() {
		return nil
	}
	upserts := make([]T, 0, len(c.Upserts))
	for _, id := range sortedKeys(c.Upserts) {
		upserts = append(upserts, c.Upserts[id])
	}
	deletes := sortedKeys(c.Deletes)
	return col.Patch(ctx, upserts, deletes)
}

// Changeset is the complete effect of one operation across every collection.
type Changeset struct {
	Deals      Changes[domain.Deal]
	Accounts   Changes[domain.Account]
	Contacts   Changes[domain.Contact]
	Activities Changes[domain.Activity]
	Tasks      Changes[domain.Task]
	Reminders  Changes[domain.Reminder]
	Users      Changes[domain.User]
}

// IsEmpty reports whether the changeset writes nothing.
func (cs *Changeset) IsEmpty() bool {
	return cs.Deals.IsEmpty() && cs.Accounts.IsEmpty() && cs.Contacts.IsEmpty() &&
		cs.Activities.IsEmpty() && cs.Tasks.IsEmpty() && cs.Reminders.IsEmpty() && cs.Users.IsEmpty()
}

// Merge layers newer on top of cs.
func (cs *Changeset) Merge(newer Changeset) {
	cs.Deals.Merge(newer.Deals)
	cs.Accounts.Merge(newer.Accounts)
	cs.Contacts.Merge(newer.Contacts)
	cs.Activities.Merge(newer.Activities)
	cs.Tasks.Merge(newer.Tasks)
	cs.Reminders.Merge(newer.Reminders)
	cs.Users.Merge(newer.Users)
}

// Apply writes the changeset into snap.
func (cs *Changeset) Apply(snap *Snapshot) {
	cs.Deals.apply(snap.Deals)
	cs.Accounts.apply(snap.Accounts)
	cs.Contacts.apply(snap.Contacts)
	cs.Activities.apply(snap.Activities)
	cs.Tasks.apply(snap.Tasks)
	cs.Reminders.apply(snap.Reminders)
	cs.Users.apply(snap.Users)
}

// Flush writes every non-empty part of the changeset to its collection.
// It stops at the first failing collection and reports which one failed.
func (cs *Changeset) Flush(ctx context.Context, cols Collections) (string, error) {
	steps := []struct {
		name string
		run  func() error
	}{
		{"deals", func() error { return cs.Deals.flush(ctx, cols.Deals) }},
		{"accounts", func() error { return cs.Accounts.flush(ctx, cols.Accounts) }},
		{"contacts", func() error { return cs.Contacts.flush(ctx, cols.Contacts) }},
		{"activities", func() error { return cs.Activities.flush(ctx, cols.Activities) }},
		{"tasks", func() error { return cs.Tasks.flush(ctx, cols.Tasks) }},
		{"reminders", func() error { return cs.Reminders.flush(ctx, cols.Reminders) }},
		{"users", func() error { return cs.Users.flush(ctx, cols.Users) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return step.name, err
		}
	}
	return "", nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
