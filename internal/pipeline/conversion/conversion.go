// Package conversion turns won deals into accounts and reverses that conversion.
// Functions read a snapshot and return the changes to apply; they never mutate it.
package conversion

import (
	"fmt"
	"strings"
	"time"

	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/internal/pipeline/store"
	"crm_pipeline_backend/platform/ids"
	"crm_pipeline_backend/platform/phone"

	"golang.org/x/text/cases"
)

// Conflict is reported when an account with the deal's company name already exists.
// Creation is skipped; the stage change still succeeds.
type Conflict struct {
	Company           string `json:"company"`
	ExistingAccountID string `json:"existingAccountId"`
}

// Result is the effect of a conversion, reversal or detach.
type Result struct {
	Changes store.Changeset
	Account *domain.Account
	Contact *domain.Contact
	// AlreadyConverted is set when the deal was linked to an account before the call.
	AlreadyConverted bool
	Conflict         *Conflict
	Moved            int
	Notices          []domain.Notice
}

// Options carry the collaborators conversion needs.
type Options struct {
	IDs         ids.Generator
	PhoneRegion string
}

// Convert materializes a won deal as an Account plus principal Contact and moves
// every deal-owned activity, task and reminder to the account. When the account
// already exists (the deal left cerrado and came back before the reversal was
// settled) only the records the deal gained in between move.
func Convert(snap *store.Snapshot, deal domain.Deal, actorID string, now time.Time, opts Options) Result {
	if acc, ok := snap.AccountForDeal(deal.ID); ok {
		res := Result{Account: &acc, AlreadyConverted: true}
		res.Moved = moveAll(snap, domain.DealOwner(deal.ID), domain.AccountOwner(acc.ID), &res.Changes)
		return res
	}

	if existing, ok := findByName(snap, deal.Company); ok {
		return Result{Conflict: &Conflict{Company: deal.Company, ExistingAccountID: existing.ID}}
	}

	account := domain.Account{
		ID:             opts.IDs.NewID(),
		Name:           accountName(deal),
		Industry:       deal.Industry,
		Website:        deal.Website,
		Phone:          phone.NormalizeE164(deal.CompanyPhone, opts.PhoneRegion),
		Address:        deal.Address,
		City:           deal.City,
		EstimatedValue: deal.Clone().EstimatedValue,
		Service:        deal.Service,
		AssignedTo:     append([]string(nil), deal.AssignedTo...),
		PipelineID:     deal.ID,
		CreatedAt:      now,
	}
	contact := domain.Contact{
		ID:        opts.IDs.NewID(),
		AccountID: account.ID,
		Name:      deal.ContactName,
		Email:     strings.TrimSpace(deal.ContactEmail),
		Phone:     phone.NormalizeE164(deal.ContactPhone, opts.PhoneRegion),
		Position:  deal.ContactPosition,
		Principal: true,
		CreatedAt: now,
	}

	res := Result{Account: &account, Contact: &contact}
	res.Changes.Accounts.Upsert(account)
	res.Changes.Contacts.Upsert(contact)

	from, to := domain.DealOwner(deal.ID), domain.AccountOwner(account.ID)
	res.Moved = moveAll(snap, from, to, &res.Changes)

	recipient := deal.PrimaryAssignee()
	if recipient == "" {
		recipient = actorID
	}
	res.Notices = append(res.Notices, domain.Notice{
		UserID:   recipient,
		Message:  fmt.Sprintf("Oportunidad ganada: se creó la cuenta %s", account.Name),
		Category: domain.CategorySuccess,
	})
	return res
}

// Reverse undoes a conversion: records owned by the account move back to the
// deal and the account and its contacts are deleted. A missing account yields
// an empty result.
func Reverse(snap *store.Snapshot, dealID, accountID string) Result {
	account, ok := snap.Accounts[accountID]
	if !ok {
		return Result{}
	}

	res := Result{Account: &account}
	res.Moved = moveAll(snap, domain.AccountOwner(accountID), domain.DealOwner(dealID), &res.Changes)
	for _, c := range snap.ContactList() {
		if c.AccountID == accountID {
			res.Changes.Contacts.Delete(c.ID)
		}
	}
	res.Changes.Accounts.Delete(accountID)
	return res
}

// Detach clears the account's link to its deal, remembering the former deal id.
func Detach(account domain.Account) Result {
	if account.PipelineID == "" {
		return Result{Account: &account}
	}
	account.DetachedFromPipelineID = account.PipelineID
	account.PipelineID = ""

	res := Result{Account: &account}
	res.Changes.Accounts.Upsert(account)
	return res
}

// Sweep detaches every account still linked to a deal that is missing or no
// longer won, unless hasPending reports a reversal awaiting confirmation.
func Sweep(snap *store.Snapshot, hasPending func(dealID string) bool) (Result, []domain.Account) {
	var res Result
	var detached []domain.Account
	for _, acc := range snap.AccountList() {
		if acc.PipelineID == "" {
			continue
		}
		if deal, ok := snap.Deals[acc.PipelineID]; ok && deal.Stage == domain.StageCerrado {
			continue
		}
		if hasPending(acc.PipelineID) {
			continue
		}
		d := Detach(acc)
		res.Changes.Merge(d.Changes)
		detached = append(detached, *d.Account)
	}
	return res, detached
}

// NormalizeName is the comparison key for company names: Unicode case folded
// with whitespace collapsed. A Caser keeps state, so each call builds its own.
func NormalizeName(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

func findByName(snap *store.Snapshot, company string) (domain.Account, bool) {
	key := NormalizeName(company)
	if key == "" {
		return domain.Account{}, false
	}
	for _, acc := range snap.AccountList() {
		if NormalizeName(acc.Name) == key {
			return acc, true
		}
	}
	return domain.Account{}, false
}

func accountName(deal domain.Deal) string {
	if name := strings.TrimSpace(deal.Company); name != "" {
		return name
	}
	if name := strings.TrimSpace(deal.ContactName); name != "" {
		return name
	}
	return "Cuenta " + deal.ID
}

func moveAll(snap *store.Snapshot, from, to domain.Owner, changes *store.Changeset) int {
	moved := moveOwned(snap.ActivityList(), from, to, &changes.Activities)
	moved += moveOwned(snap.TaskList(), from, to, &changes.Tasks)
	moved += moveOwned(snap.ReminderList(), from, to, &changes.Reminders)
	return moved
}

type ownedEntity[T any] interface {
	store.Entity
	domain.Owned[T]
}

func moveOwned[T ownedEntity[T]](items []T, from, to domain.Owner, changes *store.Changes[T]) int {
	moved := 0
	for _, item := range items {
		if item.OwnerRef() != from {
			continue
		}
		changes.Upsert(item.WithOwner(to))
		moved++
	}
	return moved
}
