// Package repository stores pipeline collections in PostgreSQL, one JSONB
// document per record.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/internal/pipeline/store"
	"crm_pipeline_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Table names, one per entity type.
const (
	TableDeals      = "pipeline_deals"
	TableAccounts   = "pipeline_accounts"
	TableContacts   = "pipeline_contacts"
	TableActivities = "pipeline_activities"
	TableTasks      = "pipeline_tasks"
	TableReminders  = "pipeline_reminders"
	TableUsers      = "pipeline_users"

	errRepoNotConfigured = "pipeline repository not configured"
)

// PGCollection is a store.Collection over a (id, data, updated_at) table.
type PGCollection[T store.Entity] struct {
	pool  *pgxpool.Pool
	table string
}

// NewPGCollection binds a collection to table. table must be one of the Table constants.
func NewPGCollection[T store.Entity](pool *pgxpool.Pool, table string) *PGCollection[T] {
	return &PGCollection[T]{pool: pool, table: table}
}

// NewCollections returns PostgreSQL collections for every entity type.
func NewCollections(pool *pgxpool.Pool) store.Collections {
	return store.Collections{
		Deals:      NewPGCollection[domain.Deal](pool, TableDeals),
		Accounts:   NewPGCollection[domain.Account](pool, TableAccounts),
		Contacts:   NewPGCollection[domain.Contact](pool, TableContacts),
		Activities: NewPGCollection[domain.Activity](pool, TableActivities),
		Tasks:      NewPGCollection[domain.Task](pool, TableTasks),
		Reminders:  NewPGCollection[domain.Reminder](pool, TableReminders),
		Users:      NewPGCollection[domain.User](pool, TableUsers),
	}
}

func (c *PGCollection[T]) op(action string) string {
	return "pipeline.repository." + c.table + "." + action
}

func (c *PGCollection[T]) ReadAll(ctx context.Context) (map[string]T, error) {
	if c == nil || c.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured)
	}
	rows, err := c.pool.Query(ctx, fmt.Sprintf(`SELECT id, data FROM %s`, pgx.Identifier{c.table}.Sanitize()))
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("read %s failed: %v", c.table, err)).WithOp(c.op("read_all"))
	}
	defer rows.Close()

	out := make(map[string]T)
	for rows.Next() {
		var id string
		var raw []byte
		if scanErr := rows.Scan(&id, &raw); scanErr != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan %s failed: %v", c.table, scanErr)).WithOp(c.op("read_all"))
		}
		item, decodeErr := decodeRecord[T](id, raw)
		if decodeErr != nil {
			return nil, apperr.Internal(decodeErr.Error()).WithOp(c.op("read_all"))
		}
		out[id] = item
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate %s failed: %v", c.table, rowsErr)).WithOp(c.op("read_all"))
	}
	return out, nil
}

// Patch upserts and deletes in one transaction, sent as a single batch.
func (c *PGCollection[T]) Patch(ctx context.Context, upserts []T, deletes []string) error {
	if c == nil || c.pool == nil {
		return apperr.Internal(errRepoNotConfigured)
	}
	if len(upserts) == 0 && len(deletes) == 0 {
		return nil
	}

	table := pgx.Identifier{c.table}.Sanitize()
	batch := &pgx.Batch{}
	for _, item := range upserts {
		data, err := json.Marshal(item)
		if err != nil {
			return apperr.Internal(fmt.Sprintf("encode %s %s failed: %v", c.table, item.EntityID(), err)).WithOp(c.op("patch"))
		}
		batch.Queue(fmt.Sprintf(`
			INSERT INTO %s (id, data, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
		`, table), item.EntityID(), data)
	}
	if len(deletes) > 0 {
		batch.Queue(fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, table), deletes)
	}

	err := pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return apperr.Internal(fmt.Sprintf("patch %s failed: %v", c.table, err)).WithOp(c.op("patch"))
	}
	return nil
}

// Replace truncates the table and copies all records in.
func (c *PGCollection[T]) Replace(ctx context.Context, all map[string]T) error {
	if c == nil || c.pool == nil {
		return apperr.Internal(errRepoNotConfigured)
	}

	rows, err := encodeRows(all)
	if err != nil {
		return apperr.Internal(err.Error()).WithOp(c.op("replace"))
	}

	err = pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, pgx.Identifier{c.table}.Sanitize())); err != nil {
			return err
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, []string{"id", "data"}, pgx.CopyFromRows(rows))
		return err
	})
	if err != nil {
		return apperr.Internal(fmt.Sprintf("replace %s failed: %v", c.table, err)).WithOp(c.op("replace"))
	}
	return nil
}

func decodeRecord[T store.Entity](id string, raw []byte) (T, error) {
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("decode record %s: %w", id, err)
	}
	if item.EntityID() != id {
		return item, fmt.Errorf("record %s carries id %q", id, item.EntityID())
	}
	return item, nil
}

// encodeRows turns records into (id, data) rows ordered by id.
func encodeRows[T store.Entity](all map[string]T) ([][]any, error) {
	rows := make([][]any, 0, len(all))
	for _, id := range sortedIDs(all) {
		data, err := json.Marshal(all[id])
		if err != nil {
			return nil, fmt.Errorf("encode record %s: %w", id, err)
		}
		rows = append(rows, []any{id, data})
	}
	return rows, nil
}
