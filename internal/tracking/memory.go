package tracking

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/JaimeStill/upload-lab/pkg/lifecycle"
)

type memoryEntry struct {
	status  *Status
	result  *Result
	touched time.Time
}

// Memory is an in-process Store bounded by a TTL and a maximum entry count.
// Entries are evicted least recently written first once the cap is reached.
type Memory struct {
	mu            sync.Mutex
	entries       *lru.Cache[string, *memoryEntry]
	ttl           time.Duration
	maxEntries    int
	sweepInterval time.Duration
	logger        *slog.Logger
}

// NewMemory creates a memory store from a finalized configuration.
func NewMemory(cfg *Config, logger *slog.Logger) *Memory {
	size := cfg.MaxEntries
	if size <= 0 {
		size = math.MaxInt32
	}
	// lru.New only fails for non-positive sizes.
	entries, _ := lru.New[string, *memoryEntry](size)

	return &Memory{
		entries:       entries,
		ttl:           cfg.TTLDuration(),
		maxEntries:    cfg.MaxEntries,
		sweepInterval: cfg.SweepIntervalDuration(),
		logger:        logger.With("system", "tracking", "backend", BackendMemory),
	}
}

func (m *Memory) Start(lc *lifecycle.Coordinator) error {
	m.logger.Info("starting tracking store", "ttl", m.ttl, "max_entries", m.maxEntries)

	lc.OnShutdown(func() {
		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-lc.Context().Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					m.logger.Debug("evicted expired entries", "count", n)
				}
			}
		}
	})

	return nil
}

func (m *Memory) GetStatus(ctx context.Context, uploadID string) (*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(uploadID)
	if e == nil || e.status == nil {
		return nil, ErrNotFound
	}
	s := *e.status
	return &s, nil
}

func (m *Memory) SetStatus(ctx context.Context, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(status.UploadID)

	var current *Status
	if e != nil {
		current = e.status
	}
	if err := CheckTransition(current, status); err != nil {
		return err
	}

	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now().UTC()
	}

	if e == nil {
		e = &memoryEntry{}
	}
	e.status = &status
	m.store(status.UploadID, e)

	return nil
}

func (m *Memory) GetResult(ctx context.Context, uploadID string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(uploadID)
	if e == nil || e.result == nil {
		return nil, ErrNotFound
	}
	return cloneResult(e.result), nil
}

func (m *Memory) UpdateResult(ctx context.Context, uploadID string, fn func(*Result)) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(uploadID)
	if e == nil {
		e = &memoryEntry{}
	}

	var r *Result
	if e.result != nil {
		r = cloneResult(e.result)
	} else {
		r = &Result{UploadID: uploadID}
	}

	fn(r)
	r.UploadID = uploadID
	e.result = r
	m.store(uploadID, e)

	return cloneResult(r), nil
}

func (m *Memory) Delete(ctx context.Context, uploadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries.Remove(uploadID)
	return nil
}

// Sweep removes entries not written within the TTL and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.ttl)
	removed := 0

	// Keys are ordered oldest write first.
	for _, id := range m.entries.Keys() {
		e, ok := m.entries.Peek(id)
		if ok && e.touched.After(cutoff) {
			break
		}
		m.entries.Remove(id)
		removed++
	}

	return removed
}

// Len returns the number of tracked uploads.
func (m *Memory) Len() int {
	return m.entries.Len()
}

// lookup returns the live entry for uploadID, dropping it once expired.
// Reads do not change eviction order.
func (m *Memory) lookup(uploadID string) *memoryEntry {
	e, ok := m.entries.Peek(uploadID)
	if !ok {
		return nil
	}
	if time.Since(e.touched) > m.ttl {
		m.entries.Remove(uploadID)
		return nil
	}
	return e
}

func (m *Memory) store(uploadID string, e *memoryEntry) {
	e.touched = time.Now()
	if m.entries.Add(uploadID, e) {
		m.logger.Debug("evicted oldest entry at capacity", "upload_id", uploadID)
	}
}

func cloneResult(r *Result) *Result {
	c := *r
	c.SupportedOperations = slices.Clone(r.SupportedOperations)
	c.PreviewChunks = slices.Clone(r.PreviewChunks)
	return &c
}
