package store

import (
	"context"
	"sort"

	"crm_pipeline_backend/internal/pipeline/domain"

	"golang.org/x/sync/errgroup"
)

// Snapshot is the full in-memory state the engine reads.
type Snapshot struct {
	Deals      map[string]domain.Deal
	Accounts   map[string]domain.Account
	Contacts   map[string]domain.Contact
	Activities map[string]domain.Activity
	Tasks      map[string]domain.Task
	Reminders  map[string]domain.Reminder
	Users      map[string]domain.User
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Deals:      map[string]domain.Deal{},
		Accounts:   map[string]domain.Account{},
		Contacts:   map[string]domain.Contact{},
		Activities: map[string]domain.Activity{},
		Tasks:      map[string]domain.Task{},
		Reminders:  map[string]domain.Reminder{},
		Users:      map[string]domain.User{},
	}
}

// Collections groups the persistence port of every entity type.
type Collections struct {
	Deals      Collection[domain.Deal]
	Accounts   Collection[domain.Account]
	Contacts   Collection[domain.Contact]
	Activities Collection[domain.Activity]
	Tasks      Collection[domain.Task]
	Reminders  Collection[domain.Reminder]
	Users      Collection[domain.User]
}

// NewMemoryCollections returns empty in-memory collections.
func NewMemoryCollections() Collections {
	return Collections{
		Deals:      NewMemoryCollection[domain.Deal](),
		Accounts:   NewMemoryCollection[domain.Account](),
		Contacts:   NewMemoryCollection[domain.Contact](),
		Activities: NewMemoryCollection[domain.Activity](),
		Tasks:      NewMemoryCollection[domain.Task](),
		Reminders:  NewMemoryCollection[domain.Reminder](),
		Users:      NewMemoryCollection[domain.User](),
	}
}

// Load reads every collection concurrently into a new snapshot.
func Load(ctx context.Context, cols Collections) (*Snapshot, error) {
	snap := NewSnapshot()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) { snap.Deals, err = cols.Deals.ReadAll(gctx); return })
	g.Go(func() (err error) { snap.Accounts, err = cols.Accounts.ReadAll(gctx); return })
	g.Go(func() (err error) { snap.Contacts, err = cols.Contacts.ReadAll(gctx); return })
	g.Go(func() (err error) { snap.Activities, err = cols.Activities.ReadAll(gctx); return })
	g.Go(func() (err error) { snap.Tasks, err = cols.Tasks.ReadAll(gctx); return })
	g.Go(func() (err error) { snap.Reminders, err = cols.Reminders.ReadAll(gctx); return })
	g.Go(func() (err error) { snap.Users, err = cols.Users.ReadAll(gctx); return })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// HasDealActivity reports whether at least one activity is owned by the deal.
func (s *Snapshot) HasDealActivity(dealID string) bool {
	return s.HasOwnerActivity(domain.DealOwner(dealID))
}

// HasOwnerActivity reports whether at least one activity is owned by owner.
func (s *Snapshot) HasOwnerActivity(owner domain.Owner) bool {
	for _, a := range s.Activities {
		if a.Owner == owner {
			return true
		}
	}
	return false
}

// AccountForDeal returns the account converted from dealID, if any.
func (s *Snapshot) AccountForDeal(dealID string) (domain.Account, bool) {
	for _, acc := range sortedValues(s.Accounts) {
		if acc.PipelineID == dealID {
			return acc, true
		}
	}
	return domain.Account{}, false
}

// DealActivities returns every activity sorted by id. Activities of an account
// still linked to a deal are reported as owned by that deal, so a deal waiting
// on a reversal keeps the history conversion moved to the account.
func (s *Snapshot) DealActivities() []domain.Activity {
	return withDealOwners(s.ActivityList(), s.dealLinks())
}

// DealTasks is DealActivities for tasks.
func (s *Snapshot) DealTasks() []domain.Task {
	return withDealOwners(s.TaskList(), s.dealLinks())
}

func (s *Snapshot) dealLinks() map[domain.Owner]string {
	links := make(map[domain.Owner]string)
	for _, acc := range s.Accounts {
		if acc.PipelineID != "" {
			links[domain.AccountOwner(acc.ID)] = acc.PipelineID
		}
	}
	return links
}

func withDealOwners[T domain.Owned[T]](items []T, links map[domain.Owner]string) []T {
	if len(links) == 0 {
		return items
	}
	for i, item := range items {
		if dealID, ok := links[item.OwnerRef()]; ok {
			items[i] = item.WithOwner(domain.DealOwner(dealID))
		}
	}
	return items
}

// DealList returns deals sorted by id.
func (s *Snapshot) DealList() []domain.Deal { return sortedValues(s.Deals) }

// AccountList returns accounts sorted by id.
func (s *Snapshot) AccountList() []domain.Account { return sortedValues(s.Accounts) }

// ContactList returns contacts sorted by id.
func (s *Snapshot) ContactList() []domain.Contact { return sortedValues(s.Contacts) }

// ActivityList returns activities sorted by id.
func (s *Snapshot) ActivityList() []domain.Activity { return sortedValues(s.Activities) }

// TaskList returns tasks sorted by id.
func (s *Snapshot) TaskList() []domain.Task { return sortedValues(s.Tasks) }

// ReminderList returns reminders sorted by id.
func (s *Snapshot) ReminderList() []domain.Reminder { return sortedValues(s.Reminders) }

// UserList returns users sorted by id.
func (s *Snapshot) UserList() []domain.User { return sortedValues(s.Users) }

func sortedValues[T Entity](items map[string]T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID() < out[j].EntityID() })
	return out
}
