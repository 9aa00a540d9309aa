package quizsession

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kmhistory/quizhub-backend/internal/model"
)

// blockingStore gates each save on a release channel so tests can hold one
// save in flight while newer snapshots queue up behind it.
type blockingStore struct {
	mu      sync.Mutex
	saves   []model.ProgressUpdateRequest
	release chan struct{}
	started chan struct{}
}

func newBlockingStore() *blockingStore {
	return &blockingStore{
		release: make(chan struct{}),
		started: make(chan struct{}, 16),
	}
}

func (s *blockingStore) SaveProgress(ctx context.Context, bundleID int, req model.ProgressUpdateRequest) (*model.BundleProgress, error) {
	s.started <- struct{}{}
	<-s.release
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, req)
	return &model.BundleProgress{BundleID: bundleID}, nil
}

func (s *blockingStore) ResetProgress(ctx context.Context, bundleID int) error { return nil }

func (s *blockingStore) saved() []model.ProgressUpdateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ProgressUpdateRequest, len(s.saves))
	copy(out, s.saves)
	return out
}

func snapshotWith(correct int) model.ProgressUpdateRequest {
	return model.ProgressUpdateRequest{TotalQuestions: 5, CorrectAnswers: correct}
}

func TestPersisterNewestSnapshotSupersedesQueued(t *testing.T) {
	store := newBlockingStore()
	p := NewPersister(store, zerolog.Nop())
	defer p.Close()

	p.Enqueue(7, snapshotWith(1))
	<-store.started // first save is now in flight

	// Both of these queue behind the in-flight save; only the newest may
	// survive.
	p.Enqueue(7, snapshotWith(2))
	p.Enqueue(7, snapshotWith(3))

	close(store.release)
	p.Flush(context.Background())

	saves := store.saved()
	if len(saves) != 2 {
		t.Fatalf("expected 2 saves (in-flight + newest), got %d", len(saves))
	}
	if saves[0].CorrectAnswers != 1 || saves[1].CorrectAnswers != 3 {
		t.Fatalf("expected snapshots 1 then 3, got %+v", saves)
	}
}

func TestPersisterFlushWaitsForInFlightSave(t *testing.T) {
	store := newBlockingStore()
	p := NewPersister(store, zerolog.Nop())
	defer p.Close()

	p.Enqueue(7, snapshotWith(1))
	<-store.started

	flushed := make(chan struct{})
	go func() {
		p.Flush(context.Background())
		close(flushed)
	}()

	select {
	case <-flushed:
		t.Fatalf("flush returned while a save was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatalf("flush did not return after the save completed")
	}
}

func TestPersisterFlushHonorsContext(t *testing.T) {
	store := newBlockingStore()
	p := NewPersister(store, zerolog.Nop())

	p.Enqueue(7, snapshotWith(1))
	<-store.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		p.Flush(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("flush ignored context cancellation")
	}

	close(store.release)
	p.Close()
}

func TestPersisterCloseDrainsPending(t *testing.T) {
	store := newBlockingStore()
	close(store.release) // saves complete immediately
	p := NewPersister(store, zerolog.Nop())

	p.Enqueue(7, snapshotWith(4))
	p.Close()

	saves := store.saved()
	if len(saves) != 1 || saves[0].CorrectAnswers != 4 {
		t.Fatalf("expected the pending snapshot to be drained on close, got %+v", saves)
	}
}

func TestPersisterDiscardDropsQueued(t *testing.T) {
	store := newBlockingStore()
	p := NewPersister(store, zerolog.Nop())

	p.Enqueue(7, snapshotWith(1))
	<-store.started

	p.Enqueue(7, snapshotWith(2))
	p.Discard()

	close(store.release)
	p.Close()

	saves := store.saved()
	if len(saves) != 1 || saves[0].CorrectAnswers != 1 {
		t.Fatalf("expected only the in-flight save, got %+v", saves)
	}
}
