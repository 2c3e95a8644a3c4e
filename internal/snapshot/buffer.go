// Package snapshot keeps a rolling buffer of recent position snapshots.
//
// The buffer feeds orbital trails: clients that want the last N ticks of
// motion read them from here instead of re-propagating. Snapshots from
// different catalog generations must never be mixed in one trail, so a
// generation change invalidates the whole buffer.
package snapshot

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sky/skytrack/internal/engine"
	"github.com/sky/skytrack/internal/metrics"
)

// DefaultCapacity holds 120 snapshots, two minutes of trail at a 1s tick.
const DefaultCapacity = 120

// Buffer is a fixed-capacity ring of recent snapshots, oldest evicted
// first. Safe for concurrent use by multiple goroutines.
type Buffer struct {
	mu       sync.RWMutex
	entries  []*engine.Snapshot
	capacity int

	// Generation of the snapshots currently held. All entries share it.
	generation uint64

	logger *slog.Logger

	hits          atomic.Int64
	misses        atomic.Int64
	invalidations atomic.Int64
}

// NewBuffer creates a trail buffer holding up to capacity snapshots.
func NewBuffer(capacity int, logger *slog.Logger) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		entries:  make([]*engine.Snapshot, 0, capacity),
		capacity: capacity,
		logger:   logger,
	}
}

// Put appends a snapshot. If the snapshot belongs to a newer catalog
// generation than the buffered ones, the buffer is cleared first so a
// trail never spans two catalogs.
func (b *Buffer) Put(s *engine.Snapshot) {
	if s == nil {
		return
	}

	b.mu.Lock()
	if len(b.entries) > 0 && s.Generation != b.generation {
		b.entries = b.entries[:0]
		b.invalidations.Add(1)
		metrics.IncSnapshotInvalidations()
		b.logger.Info("trail buffer invalidated",
			"old_generation", b.generation,
			"new_generation", s.Generation,
		)
	}
	b.generation = s.Generation

	b.entries = append(b.entries, s)
	if len(b.entries) > b.capacity {
		// Shift rather than reslice so the backing array does not
		// pin evicted snapshots.
		copy(b.entries, b.entries[1:])
		b.entries[len(b.entries)-1] = nil
		b.entries = b.entries[:len(b.entries)-1]
	}
	count := len(b.entries)
	b.mu.Unlock()

	metrics.SetSnapshotBufferEntries(count)
}

// Latest returns the most recent snapshot, or nil if the buffer is empty.
func (b *Buffer) Latest() *engine.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.entries) == 0 {
		b.misses.Add(1)
		return nil
	}
	b.hits.Add(1)
	return b.entries[len(b.entries)-1]
}

// Recent returns up to count snapshots ending at the most recent one,
// ordered oldest-first. Used to build orbital trails.
func (b *Buffer) Recent(count int) []*engine.Snapshot {
	if count <= 0 {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.entries) == 0 {
		b.misses.Add(1)
		return nil
	}
	b.hits.Add(1)

	if count > len(b.entries) {
		count = len(b.entries)
	}
	out := make([]*engine.Snapshot, count)
	copy(out, b.entries[len(b.entries)-count:])
	return out
}

// Stats holds buffer statistics for the stats endpoint.
type Stats struct {
	Entries         int       `json:"entries"`
	Capacity        int       `json:"capacity"`
	Generation      uint64    `json:"generation"`
	OldestTimestamp time.Time `json:"oldest_timestamp"`
	NewestTimestamp time.Time `json:"newest_timestamp"`
	Hits            int64     `json:"hits"`
	Misses          int64     `json:"misses"`
	Invalidations   int64     `json:"invalidations"`
}

// Stats returns current buffer statistics.
func (b *Buffer) Stats() Stats {
	b.mu.RLock()
	st := Stats{
		Entries:    len(b.entries),
		Capacity:   b.capacity,
		Generation: b.generation,
	}
	if len(b.entries) > 0 {
		st.OldestTimestamp = b.entries[0].Timestamp
		st.NewestTimestamp = b.entries[len(b.entries)-1].Timestamp
	}
	b.mu.RUnlock()

	st.Hits = b.hits.Load()
	st.Misses = b.misses.Load()
	st.Invalidations = b.invalidations.Load()
	return st
}
