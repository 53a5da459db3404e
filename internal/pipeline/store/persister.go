package store

import (
	"context"
	"sync"
	"time"

	"crm_pipeline_backend/platform/logger"
)

const (
	backgroundFlushTimeout = 30 * time.Second
	minRetryDelay          = 5 * time.Second
)

// SyncStatus describes the last persistence attempt.
type SyncStatus struct {
	LastSyncAt  time.Time `json:"lastSyncAt,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
	LastErrorAt time.Time `json:"lastErrorAt,omitempty"`
	Collection  string    `json:"collection,omitempty"`
	Pending     bool      `json:"pending"`
}

// Persister writes changesets to the collections after a quiet period.
// Changes enqueued while a flush fails are kept and retried; in-memory state
// is never rolled back.
type Persister struct {
	cols  Collections
	delay time.Duration
	log   *logger.Logger

	mu      sync.Mutex
	pending Changeset
	timer   *time.Timer
	status  SyncStatus
	closed  bool

	flushMu sync.Mutex
}

// NewPersister creates a persister that flushes delay after the last enqueue.
func NewPersister(cols Collections, delay time.Duration, log *logger.Logger) *Persister {
	return &Persister{cols: cols, delay: delay, log: log}
}

// Enqueue merges cs into the pending batch and restarts the quiet period.
func (p *Persister) Enqueue(cs Changeset) {
	if cs.IsEmpty() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending.Merge(cs)
	if p.closed {
		return
	}
	p.scheduleLocked(p.delay)
}

func (p *Persister) scheduleLocked(after time.Duration) {
	if p.timer == nil {
		p.timer = time.AfterFunc(after, p.flushInBackground)
		return
	}
	p.timer.Reset(after)
}

func (p *Persister) flushInBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundFlushTimeout)
	defer cancel()
	_ = p.Flush(ctx)
}

// Flush writes the pending batch now. On failure the batch is put back under
// anything enqueued meanwhile and a retry is scheduled.
func (p *Persister) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	batch := p.pending
	p.pending = Changeset{}
	p.mu.Unlock()

	if batch.IsEmpty() {
		return nil
	}

	collection, err := batch.Flush(ctx, p.cols)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		batch.Merge(p.pending)
		p.pending = batch
		p.status.LastError = err.Error()
		p.status.LastErrorAt = time.Now()
		p.status.Collection = collection
		if !p.closed {
			p.scheduleLocked(max(p.delay, minRetryDelay))
		}
		p.log.PersistenceError(collection, err)
		return err
	}

	p.status.LastSyncAt = time.Now()
	p.status.LastError = ""
	p.status.LastErrorAt = time.Time{}
	p.status.Collection = ""
	return nil
}

// Status reports the outcome of the last flush and whether writes are pending.
func (p *Persister) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.status
	out.Pending = !p.pending.IsEmpty()
	return out
}

// Close stops the timer and flushes what is pending.
func (p *Persister) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()
	return p.Flush(ctx)
}
