package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/platform/logger"
)

func TestChangesLastCallWins(t *testing.T) {
	var c Changes[domain.Deal]
	c.Upsert(domain.Deal{ID: "d1"})
	c.Delete("d1")
	if len(c.Upserts) != 0 || len(c.Deletes) != 1 {
		t.Fatalf("expected delete to replace upsert, got %+v", c)
	}
	c.Upsert(domain.Deal{ID: "d1", Service: "x"})
	if len(c.Deletes) != 0 || c.Upserts["d1"].Service != "x" {
		t.Fatalf("expected upsert to replace delete, got %+v", c)
	}
}

func TestChangesetApplyAndMerge(t *testing.T) {
	snap := NewSnapshot()
	snap.Deals["old"] = domain.Deal{ID: "old"}

	var first Changeset
	first.Deals.Upsert(domain.Deal{ID: "d1", Service: "a"})
	first.Deals.Delete("old")

	var second Changeset
	second.Deals.Upsert(domain.Deal{ID: "d1", Service: "b"})
	second.Tasks.Upsert(domain.Task{ID: "t1"})

	first.Merge(second)
	first.Apply(snap)

	if _, ok := snap.Deals["old"]; ok {
		t.Fatal("expected old deal deleted")
	}
	if snap.Deals["d1"].Service != "b" {
		t.Fatalf("expected newer upsert to win, got %q", snap.Deals["d1"].Service)
	}
	if _, ok := snap.Tasks["t1"]; !ok {
		t.Fatal("expected task applied")
	}
}

func TestLoadReadsEveryCollection(t *testing.T) {
	cols := NewMemoryCollections()
	cols.Deals = NewMemoryCollection(domain.Deal{ID: "d1"}, domain.Deal{ID: "d2"})
	cols.Users = NewMemoryCollection(domain.User{ID: "u1"})

	snap, err := Load(context.Background(), cols)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Deals) != 2 || len(snap.Users) != 1 || snap.Accounts == nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	list := snap.DealList()
	if list[0].ID != "d1" || list[1].ID != "d2" {
		t.Fatalf("expected sorted deals, got %+v", list)
	}
}

func TestSnapshotLookups(t *testing.T) {
	snap := NewSnapshot()
	snap.Activities["a1"] = domain.Activity{ID: "a1", Owner: domain.AccountOwner("d1")}
	if snap.HasDealActivity("d1") {
		t.Fatal("account-owned activity must not count for the deal")
	}
	snap.Activities["a2"] = domain.Activity{ID: "a2", Owner: domain.DealOwner("d1")}
	if !snap.HasDealActivity("d1") {
		t.Fatal("expected deal activity")
	}

	snap.Accounts["acc"] = domain.Account{ID: "acc", PipelineID: "d1"}
	if acc, ok := snap.AccountForDeal("d1"); !ok || acc.ID != "acc" {
		t.Fatalf("expected account acc, got %+v %v", acc, ok)
	}
	if _, ok := snap.AccountForDeal("d2"); ok {
		t.Fatal("expected no account for d2")
	}
}

func TestDealActivitiesFollowLinkedAccount(t *testing.T) {
	snap := NewSnapshot()
	snap.Accounts["linked"] = domain.Account{ID: "linked", PipelineID: "d1"}
	snap.Accounts["detached"] = domain.Account{ID: "detached", DetachedFromPipelineID: "d2"}
	snap.Activities["a1"] = domain.Activity{ID: "a1", Owner: domain.AccountOwner("linked")}
	snap.Activities["a2"] = domain.Activity{ID: "a2", Owner: domain.AccountOwner("detached")}
	snap.Activities["a3"] = domain.Activity{ID: "a3", Owner: domain.DealOwner("d1")}
	snap.Tasks["t1"] = domain.Task{ID: "t1", Owner: domain.AccountOwner("linked")}

	acts := snap.DealActivities()
	if len(acts) != 3 {
		t.Fatalf("expected 3 activities, got %d", len(acts))
	}
	want := []domain.Owner{domain.DealOwner("d1"), domain.AccountOwner("detached"), domain.DealOwner("d1")}
	for i, a := range acts {
		if a.Owner != want[i] {
			t.Fatalf("%s: expected owner %+v, got %+v", a.ID, want[i], a.Owner)
		}
	}
	if tasks := snap.DealTasks(); tasks[0].Owner != domain.DealOwner("d1") {
		t.Fatalf("expected task reported on deal, got %+v", tasks[0].Owner)
	}
	if snap.Activities["a1"].Owner != domain.AccountOwner("linked") {
		t.Fatal("snapshot must keep the stored owner")
	}
}

type failingDeals struct {
	*MemoryCollection[domain.Deal]
	fail  atomic.Bool
	calls atomic.Int32
}

func (f *failingDeals) Patch(ctx context.Context, upserts []domain.Deal, deletes []string) error {
	f.calls.Add(1)
	if f.fail.Load() {
		return errors.New("database unavailable")
	}
	return f.MemoryCollection.Patch(ctx, upserts, deletes)
}

func TestPersisterFlushKeepsBatchOnFailure(t *testing.T) {
	deals := &failingDeals{MemoryCollection: NewMemoryCollection[domain.Deal]()}
	deals.fail.Store(true)
	cols := NewMemoryCollections()
	cols.Deals = deals

	p := NewPersister(cols, time.Hour, logger.Discard())
	var cs Changeset
	cs.Deals.Upsert(domain.Deal{ID: "d1"})
	p.Enqueue(cs)

	if err := p.Flush(context.Background()); err == nil {
		t.Fatal("expected flush error")
	}
	status := p.Status()
	if status.LastError == "" || status.Collection != "deals" || !status.Pending {
		t.Fatalf("expected recorded failure with pending batch, got %+v", status)
	}

	deals.fail.Store(false)
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if _, ok := deals.Get("d1"); !ok {
		t.Fatal("expected d1 persisted after retry")
	}
	status = p.Status()
	if status.LastError != "" || status.Pending || status.LastSyncAt.IsZero() {
		t.Fatalf("expected clean status, got %+v", status)
	}
}

func TestPersisterDebouncesBursts(t *testing.T) {
	deals := &failingDeals{MemoryCollection: NewMemoryCollection[domain.Deal]()}
	cols := NewMemoryCollections()
	cols.Deals = deals

	p := NewPersister(cols, 20*time.Millisecond, logger.Discard())
	for _, id := range []string{"d1", "d2", "d3"} {
		var cs Changeset
		cs.Deals.Upsert(domain.Deal{ID: id})
		p.Enqueue(cs)
	}

	deadline := time.Now().Add(2 * time.Second)
	for deals.Len() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if deals.Len() != 3 {
		t.Fatalf("expected 3 persisted deals, got %d", deals.Len())
	}
	if calls := deals.calls.Load(); calls != 1 {
		t.Fatalf("expected one batched patch, got %d", calls)
	}
	_ = p.Close(context.Background())
}
