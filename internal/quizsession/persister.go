package quizsession

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kmhistory/quizhub-backend/internal/model"
)

// persistTimeout bounds one save attempt so a hung store cannot wedge the
// persister goroutine forever.
const persistTimeout = 30 * time.Second

// Persister serializes fire-and-forget progress saves: at most one save in
// flight, and a newer snapshot queued while one is running replaces any
// older queued snapshot. Failures are logged and dropped — the session's
// local state stays authoritative either way.
type Persister struct {
	store ProgressStore
	log   zerolog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	pending  *queued
	inFlight bool
	closed   bool

	done chan struct{}
}

type queued struct {
	bundleID int
	req      model.ProgressUpdateRequest
}

// NewPersister starts the persister goroutine.
func NewPersister(store ProgressStore, log zerolog.Logger) *Persister {
	p := &Persister{
		store: store,
		log:   log.With().Str("component", "progress_persister").Logger(),
		done:  make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	go p.run()
	return p
}

// Enqueue queues a snapshot, superseding any not-yet-started older one.
func (p *Persister) Enqueue(bundleID int, req model.ProgressUpdateRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.pending = &queued{bundleID: bundleID, req: req}
	p.cond.Broadcast()
}

// Discard drops any queued snapshot without saving it.
func (p *Persister) Discard() {
	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()
}

// Flush blocks until the queue is empty and no save is in flight, or the
// context expires.
func (p *Persister) Flush(ctx context.Context) {
	deadline := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-deadline:
		}
		// Wake the waiter either way.
		p.cond.Broadcast()
	}()
	defer close(deadline)

	p.mu.Lock()
	defer p.mu.Unlock()
	for (p.pending != nil || p.inFlight) && ctx.Err() == nil && !p.closed {
		p.cond.Wait()
	}
}

// Close drains the pending snapshot and stops the goroutine.
func (p *Persister) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	<-p.done
}

func (p *Persister) run() {
	defer close(p.done)
	for {
		p.mu.Lock()
		for p.pending == nil && !p.closed {
			p.cond.Wait()
		}
		if p.pending == nil && p.closed {
			p.mu.Unlock()
			return
		}
		item := p.pending
		p.pending = nil
		p.inFlight = true
		p.mu.Unlock()

		p.save(item)

		p.mu.Lock()
		p.inFlight = false
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

func (p *Persister) save(item *queued) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if _, err := p.store.SaveProgress(ctx, item.bundleID, item.req); err != nil {
		p.log.Warn().Err(err).Int("bundle_id", item.bundleID).Msg("progress save failed")
	}
}
