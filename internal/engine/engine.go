// Package engine drives the propagation tick loop: at a fixed interval it
// propagates the whole catalog through a worker pool and publishes the
// result as an immutable snapshot for the API and stream layers.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sky/skytrack/internal/catalog"
	"github.com/sky/skytrack/internal/metrics"
)

// Tick interval bounds; configured values outside this range are clamped.
const (
	MinTickInterval = 500 * time.Millisecond
	MaxTickInterval = 5 * time.Second
)

// SatellitePosition is one object's geodetic position inside a snapshot.
type SatellitePosition struct {
	CatalogNumber int     `json:"catalog_number"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	LatDeg        float64 `json:"lat_deg"`
	LonDeg        float64 `json:"lon_deg"`
	AltKm         float64 `json:"alt_km"`
}

// Snapshot is the renderer contract: the whole catalog at one instant.
// Snapshots are immutable after publication.
type Snapshot struct {
	Timestamp  time.Time           `json:"timestamp"`
	Generation uint64              `json:"-"`
	Satellites []SatellitePosition `json:"satellites"`
}

// Config controls the tick loop.
type Config struct {
	TickInterval time.Duration
	Workers      int
}

// Engine owns the tick loop and the latest snapshot.
type Engine struct {
	store  *catalog.Store
	pool   *WorkerPool
	cfg    Config
	logger *slog.Logger

	latest atomic.Pointer[Snapshot]

	// inFlight guards the at-most-one-batch rule: a tick that fires
	// while a batch runs is skipped, never queued.
	inFlight atomic.Bool

	onSnapshot func(*Snapshot)
}

// New creates an Engine reading catalogs from store. onSnapshot, if
// non-nil, is invoked after each snapshot publication (the stream hub
// subscribes here); it must not block.
func New(store *catalog.Store, cfg Config, logger *slog.Logger, onSnapshot func(*Snapshot)) *Engine {
	if cfg.TickInterval < MinTickInterval {
		cfg.TickInterval = MinTickInterval
	}
	if cfg.TickInterval > MaxTickInterval {
		cfg.TickInterval = MaxTickInterval
	}
	return &Engine{
		store:      store,
		pool:       NewWorkerPool(cfg.Workers, logger),
		cfg:        cfg,
		logger:     logger,
		onSnapshot: onSnapshot,
	}
}

// Latest returns the most recent published snapshot, or nil before the
// first batch completes.
func (e *Engine) Latest() *Snapshot {
	return e.latest.Load()
}

// Run ticks until ctx is done. Each tick starts one batch over the current
// catalog; if the previous batch has not finished, the tick is skipped.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	e.logger.Info("engine started",
		"tick_interval", e.cfg.TickInterval.String(),
		"workers", e.cfg.Workers)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return
		case now := <-ticker.C:
			if !e.inFlight.CompareAndSwap(false, true) {
				metrics.IncTickSkipped()
				e.logger.Warn("tick skipped, batch still in flight")
				continue
			}
			go func(ts time.Time) {
				defer e.inFlight.Store(false)
				e.runBatch(ctx, ts)
			}(now)
		}
	}
}

// RunOnce performs a single batch immediately, outside the ticker. Used at
// startup so the API has a snapshot before the first tick.
func (e *Engine) RunOnce(ctx context.Context, now time.Time) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer e.inFlight.Store(false)
	e.runBatch(ctx, now)
}

func (e *Engine) runBatch(ctx context.Context, now time.Time) {
	cat, gen := e.store.Get()
	if cat == nil || cat.Len() == 0 {
		return
	}

	start := time.Now()
	positions, ok, failed := e.pool.PropagateBatch(ctx, cat, now)
	duration := time.Since(start)

	metrics.ObserveBatch(duration, ok, failed)

	// A batch computed under a replaced catalog describes objects that
	// may no longer exist; throw it away rather than merge stale rows.
	if e.store.Generation() != gen {
		metrics.IncBatchDiscarded()
		e.logger.Info("discarding batch from superseded catalog",
			"generation", gen, "current", e.store.Generation())
		return
	}

	snap := &Snapshot{
		Timestamp:  now.UTC(),
		Generation: gen,
		Satellites: positions,
	}
	e.latest.Store(snap)

	e.logger.Debug("snapshot published",
		"satellites", len(positions),
		"errors", failed,
		"duration_ms", duration.Milliseconds())

	if e.onSnapshot != nil {
		e.onSnapshot(snap)
	}
}
