package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/STRATINT/radar/internal/logging"
	"github.com/STRATINT/radar/internal/models"
)

type failingStore struct{ saves int }

func (f *failingStore) Load(ctx context.Context) (map[string]models.Snapshot, error) {
	return nil, errors.New("connection refused")
}

func (f *failingStore) Save(ctx context.Context, snapshot models.Snapshot) error {
	f.saves++
	return errors.New("connection refused")
}

func replaceWith(snap models.Snapshot) UpdateFunc {
	return func(previous *models.Snapshot) (models.Snapshot, error) {
		return snap, nil
	}
}

func TestUpdateAndGet(t *testing.T) {
	c := New(nil, logging.Discard())
	ctx := context.Background()

	if _, ok := c.Get("ANM"); ok {
		t.Fatal("expected empty slot")
	}

	var sawPrevious *models.Snapshot
	err := c.Update(ctx, "ANM", func(previous *models.Snapshot) (models.Snapshot, error) {
		sawPrevious = previous
		return models.Snapshot{Version: "v1"}, nil
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if sawPrevious != nil {
		t.Error("first update should see no previous snapshot")
	}

	snap, ok := c.Get("ANM")
	if !ok || snap.Version != "v1" || snap.SourceID != "ANM" {
		t.Fatalf("unexpected slot: %+v (ok=%v)", snap, ok)
	}

	_ = c.Update(ctx, "ANM", func(previous *models.Snapshot) (models.Snapshot, error) {
		sawPrevious = previous
		return models.Snapshot{Version: "v2"}, nil
	})
	if sawPrevious == nil || sawPrevious.Version != "v1" {
		t.Fatalf("second update should see v1, got %+v", sawPrevious)
	}

	if got := c.Versions()["ANM"]; got != "v2" {
		t.Errorf("Versions()[ANM] = %q, want v2", got)
	}
}

func TestUpdateErrorLeavesSlotUntouched(t *testing.T) {
	c := New(nil, logging.Discard())
	ctx := context.Background()

	_ = c.Update(ctx, "JORC", replaceWith(models.Snapshot{Version: "v1"}))

	wantErr := errors.New("abandoned")
	err := c.Update(ctx, "JORC", func(previous *models.Snapshot) (models.Snapshot, error) {
		return models.Snapshot{Version: "v2"}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}

	if snap, _ := c.Get("JORC"); snap.Version != "v1" {
		t.Errorf("slot should still hold v1, got %q", snap.Version)
	}
}

func TestStoreFailureDoesNotBlockUpdate(t *testing.T) {
	store := &failingStore{}
	c := New(store, logging.Discard())

	if err := c.Update(context.Background(), "PERC", replaceWith(models.Snapshot{Version: "v1"})); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if store.saves != 1 {
		t.Errorf("expected one save attempt, got %d", store.saves)
	}
	if snap, ok := c.Get("PERC"); !ok || snap.Version != "v1" {
		t.Errorf("expected in-memory slot to be updated, got %+v", snap)
	}

	if err := c.Restore(context.Background()); err == nil {
		t.Error("expected Restore to surface store failure")
	}
}

// ctxStore fails saves whose context is already done, like a database driver.
type ctxStore struct {
	*MemoryStore
	deadline bool
}

func (s *ctxStore) Save(ctx context.Context, snapshot models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, s.deadline = ctx.Deadline()
	return s.MemoryStore.Save(ctx, snapshot)
}

func TestUpdatePersistsAfterCycleContextEnds(t *testing.T) {
	store := &ctxStore{MemoryStore: NewMemoryStore()}
	c := New(store, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	err := c.Update(ctx, "ANM", func(previous *models.Snapshot) (models.Snapshot, error) {
		cancel()
		return models.Snapshot{Version: "v2025.10"}, nil
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	slots, _ := store.Load(context.Background())
	if slots["ANM"].Version != "v2025.10" {
		t.Fatalf("store should hold the accepted slot, got %+v", slots)
	}
	if !store.deadline {
		t.Error("store write should carry its own deadline")
	}
}

func TestRestoreAndFlushRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := New(store, logging.Discard())
	_ = first.Update(ctx, "ANM", replaceWith(models.Snapshot{Version: "v2025.10", FetchedAt: time.Now()}))
	_ = first.Update(ctx, "SAMREC", replaceWith(models.Snapshot{Version: "v2025.1"}))
	if err := first.Flush(ctx); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}

	second := New(store, logging.Discard())
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if second.Len() != 2 {
		t.Fatalf("expected 2 restored slots, got %d", second.Len())
	}
	if snap, _ := second.Get("ANM"); snap.Version != "v2025.10" {
		t.Errorf("restored ANM version = %q", snap.Version)
	}
}

func TestConcurrentUpdatesSameSourceAreSerialised(t *testing.T) {
	c := New(nil, logging.Discard())
	ctx := context.Background()

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Update(ctx, "NI43-101", func(previous *models.Snapshot) (models.Snapshot, error) {
				n := 0
				if previous != nil {
					fmt.Sscanf(previous.Version, "v%d", &n)
				}
				return models.Snapshot{Version: fmt.Sprintf("v%d", n+1)}, nil
			})
		}()
	}
	wg.Wait()

	snap, _ := c.Get("NI43-101")
	if snap.Version != fmt.Sprintf("v%d", writers) {
		t.Fatalf("lost updates: final version %q, want v%d", snap.Version, writers)
	}
}
