// Package importer reads a legacy pipeline export and turns it into a
// changeset: owned records get their legacy keys rewritten into an owner
// reference and deals without a history get their creation entry.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/internal/pipeline/store"
)

// Export is the legacy document: one array per collection. clientes is the
// oldest name of the accounts collection and is merged into cuentas.
type Export struct {
	Pipeline      []json.RawMessage `json:"pipeline"`
	Cuentas       []json.RawMessage `json:"cuentas"`
	Clientes      []json.RawMessage `json:"clientes"`
	Contactos     []json.RawMessage `json:"contactos"`
	Actividades   []json.RawMessage `json:"actividades"`
	Tareas        []json.RawMessage `json:"tareas"`
	Recordatorios []json.RawMessage `json:"recordatorios"`
	Usuarios      []json.RawMessage `json:"usuarios"`
}

// Report counts what an import produced.
type Report struct {
	Deals      int      `json:"deals"`
	Accounts   int      `json:"accounts"`
	Contacts   int      `json:"contacts"`
	Activities int      `json:"activities"`
	Tasks      int      `json:"tasks"`
	Reminders  int      `json:"reminders"`
	Users      int      `json:"users"`
	Migrated   int      `json:"migrated"`
	Skipped    []string `json:"skipped,omitempty"`
}

func (r *Report) skip(collection string, index int, reason string) {
	r.Skipped = append(r.Skipped, fmt.Sprintf("%s[%d]: %s", collection, index, reason))
}

// Decode parses an export from r.
func Decode(r io.Reader) (store.Changeset, Report, error) {
	var exp Export
	dec := json.NewDecoder(r)
	if err := dec.Decode(&exp); err != nil {
		return store.Changeset{}, Report{}, fmt.Errorf("decode export: %w", err)
	}
	cs, report := Build(exp)
	return cs, report, nil
}

// Build converts an export. Malformed records are skipped and reported;
// they never abort the import.
func Build(exp Export) (store.Changeset, Report) {
	var cs store.Changeset
	var report Report

	for i, raw := range exp.Pipeline {
		var deal domain.Deal
		if err := json.Unmarshal(raw, &deal); err != nil {
			report.skip("pipeline", i, err.Error())
			continue
		}
		deal, err := normalizeDeal(deal)
		if err != nil {
			report.skip("pipeline", i, err.Error())
			continue
		}
		cs.Deals.Upsert(deal)
		report.Deals++
	}

	accounts := append(append([]json.RawMessage{}, exp.Clientes...), exp.Cuentas...)
	for i, raw := range accounts {
		var acc domain.Account
		if err := json.Unmarshal(raw, &acc); err != nil || strings.TrimSpace(acc.ID) == "" {
			report.skip("cuentas", i, reasonFor(err))
			continue
		}
		cs.Accounts.Upsert(acc)
		report.Accounts++
	}

	for i, raw := range exp.Contactos {
		var contact domain.Contact
		if err := json.Unmarshal(raw, &contact); err != nil || strings.TrimSpace(contact.ID) == "" {
			report.skip("contactos", i, reasonFor(err))
			continue
		}
		cs.Contacts.Upsert(contact)
		report.Contacts++
	}

	for i, raw := range exp.Usuarios {
		var user domain.User
		if err := json.Unmarshal(raw, &user); err != nil || strings.TrimSpace(user.ID) == "" {
			report.skip("usuarios", i, reasonFor(err))
			continue
		}
		cs.Users.Upsert(user)
		report.Users++
	}

	importOwned(exp.Actividades, "actividades", &report, &report.Activities, func(a domain.Activity) { cs.Activities.Upsert(a) })
	importOwned(exp.Tareas, "tareas", &report, &report.Tasks, func(t domain.Task) { cs.Tasks.Upsert(t) })
	importOwned(exp.Recordatorios, "recordatorios", &report, &report.Reminders, func(r domain.Reminder) { cs.Reminders.Upsert(r) })

	return cs, report
}

type ownedRecord interface {
	domain.Activity | domain.Task | domain.Reminder
	EntityID() string
}

func importOwned[T ownedRecord](raws []json.RawMessage, collection string, report *Report, count *int, upsert func(T)) {
	for i, raw := range raws {
		migrated, changed, err := domain.MigrateLegacyRecord(raw)
		if err != nil {
			report.skip(collection, i, err.Error())
			continue
		}
		var item T
		if err := json.Unmarshal(migrated, &item); err != nil || strings.TrimSpace(item.EntityID()) == "" {
			report.skip(collection, i, reasonFor(err))
			continue
		}
		if changed {
			report.Migrated++
		}
		upsert(item)
		*count++
	}
}

func normalizeDeal(deal domain.Deal) (domain.Deal, error) {
	if strings.TrimSpace(deal.ID) == "" {
		return domain.Deal{}, fmt.Errorf("missing id")
	}
	if deal.Stage == "" {
		deal.Stage = domain.StageProspecto
	}
	if _, err := domain.ParseStage(string(deal.Stage)); err != nil {
		return domain.Deal{}, err
	}
	if len(deal.StageHistory) == 0 {
		deal.StageHistory = []domain.StageChange{{
			FromStage: domain.StageNone,
			ToStage:   deal.Stage,
			Timestamp: deal.CreatedAt,
		}}
	}
	return deal, nil
}

func reasonFor(err error) string {
	if err != nil {
		return err.Error()
	}
	return "missing id"
}
