// Package cache keeps the last accepted snapshot of every monitored source.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/STRATINT/radar/internal/models"
)

// SaveTimeout bounds a single slot write to the store.
const SaveTimeout = 5 * time.Second

// Store persists cache slots across restarts.
type Store interface {
	Load(ctx context.Context) (map[string]models.Snapshot, error)
	Save(ctx context.Context, snapshot models.Snapshot) error
}

// VersionCache maps source identifier to its most recently accepted snapshot.
// Read-then-write on a slot is serialised per source, so overlapping cycles
// targeting the same source never lose an update.
type VersionCache struct {
	mu    sync.RWMutex
	slots map[string]models.Snapshot
	locks map[string]*sync.Mutex

	store  Store
	logger *slog.Logger
}

// New creates an empty cache. store may be nil for a purely in-memory cache.
func New(store Store, logger *slog.Logger) *VersionCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &VersionCache{
		slots:  make(map[string]models.Snapshot),
		locks:  make(map[string]*sync.Mutex),
		store:  store,
		logger: logger,
	}
}

// Restore loads persisted slots, replacing anything held in memory.
func (c *VersionCache) Restore(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	slots, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore version cache: %w", err)
	}

	c.mu.Lock()
	c.slots = make(map[string]models.Snapshot, len(slots))
	for id, snap := range slots {
		c.slots[id] = snap
	}
	c.mu.Unlock()

	c.logger.Info("version cache restored", "sources", len(slots))
	return nil
}

// Get returns the cached snapshot for id.
func (c *VersionCache) Get(id string) (models.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.slots[id]
	return snap, ok
}

// Versions returns the cached version tag of every occupied slot.
func (c *VersionCache) Versions() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.slots))
	for id, snap := range c.slots {
		out[id] = snap.Version
	}
	return out
}

// Len reports the number of occupied slots.
func (c *VersionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.slots)
}

// UpdateFunc receives the current slot (nil when empty) and returns the
// snapshot to store. Returning an error leaves the slot unchanged.
type UpdateFunc func(previous *models.Snapshot) (models.Snapshot, error)

// Update runs fn while holding the lock for id and stores its result.
// Once the in-memory slot moves, the store write is detached from ctx
// cancellation and bounded by SaveTimeout, so memory and store agree.
// Persistence failures are logged; the in-memory slot is still updated.
func (c *VersionCache) Update(ctx context.Context, id string, fn UpdateFunc) error {
	lock := c.slotLock(id)
	lock.Lock()
	defer lock.Unlock()

	var previous *models.Snapshot
	if snap, ok := c.Get(id); ok {
		previous = &snap
	}

	next, err := fn(previous)
	if err != nil {
		return err
	}
	next.SourceID = id

	c.mu.Lock()
	c.slots[id] = next
	c.mu.Unlock()

	if c.store != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SaveTimeout)
		defer cancel()
		if err := c.store.Save(saveCtx, next); err != nil {
			c.logger.Warn("failed to persist version cache slot",
				"source", id,
				"version", next.Version,
				"error", err,
			)
		}
	}

	return nil
}

// Flush writes every slot to the store.
func (c *VersionCache) Flush(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	c.mu.RLock()
	ids := make([]string, 0, len(c.slots))
	for id := range c.slots {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	sort.Strings(ids)

	for _, id := range ids {
		snap, ok := c.Get(id)
		if !ok {
			continue
		}
		if err := c.store.Save(ctx, snap); err != nil {
			return fmt.Errorf("flush slot %s: %w", id, err)
		}
	}

	c.logger.Info("version cache flushed", "sources", len(ids))
	return nil
}

func (c *VersionCache) slotLock(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[id] = lock
	}
	return lock
}

// MemoryStore is a Store backed by a map. It is mostly useful in tests and
// for single-process deployments that want Flush/Restore semantics.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]models.Snapshot
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]models.Snapshot)}
}

func (m *MemoryStore) Load(ctx context.Context) (map[string]models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.Snapshot, len(m.slots))
	for id, snap := range m.slots {
		out[id] = snap
	}
	return out, nil
}

func (m *MemoryStore) Save(ctx context.Context, snapshot models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[snapshot.SourceID] = snapshot
	return nil
}
