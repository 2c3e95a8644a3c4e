package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sky/skytrack/internal/catalog"
	"github.com/sky/skytrack/internal/tle"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// Vallado's SGP4 verification ISS set, epoch 2008-09-20 12:25:40 UTC.
const (
	issLine1 = "1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927"
	issLine2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"
)

func testCatalogStore(t *testing.T) (*catalog.Store, time.Time) {
	t.Helper()
	set, err := tle.ParseElementSet(issLine1, issLine2)
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	set.Name = "ISS (ZARYA)"

	store := catalog.NewStore()
	cat := catalog.Build([]tle.ElementSet{*set}, set.Epoch, 0, testLogger)
	if cat.Len() != 1 {
		t.Fatalf("catalog build rejected the fixture: %+v", cat.Stats)
	}
	store.Set(cat)
	return store, set.Epoch
}

func TestRunOncePublishesSnapshot(t *testing.T) {
	store, epoch := testCatalogStore(t)

	var published []*Snapshot
	eng := New(store, Config{TickInterval: time.Second, Workers: 2}, testLogger, func(s *Snapshot) {
		published = append(published, s)
	})

	if eng.Latest() != nil {
		t.Fatal("Latest should be nil before the first batch")
	}

	now := epoch.Add(30 * time.Minute)
	eng.RunOnce(context.Background(), now)

	snap := eng.Latest()
	if snap == nil {
		t.Fatal("no snapshot published")
	}
	if !snap.Timestamp.Equal(now.UTC()) {
		t.Errorf("timestamp = %v, want %v", snap.Timestamp, now.UTC())
	}
	if snap.Generation != 1 {
		t.Errorf("generation = %d, want 1", snap.Generation)
	}
	if len(snap.Satellites) != 1 {
		t.Fatalf("satellites = %d, want 1", len(snap.Satellites))
	}

	pos := snap.Satellites[0]
	if pos.CatalogNumber != 25544 {
		t.Errorf("catalog_number = %d, want 25544", pos.CatalogNumber)
	}
	if pos.Category != "station" {
		t.Errorf("category = %q, want station", pos.Category)
	}
	if pos.LatDeg < -52 || pos.LatDeg > 52 {
		t.Errorf("lat %.2f outside the orbit's inclination band", pos.LatDeg)
	}
	if pos.LonDeg < -180 || pos.LonDeg > 180 {
		t.Errorf("lon %.2f out of range", pos.LonDeg)
	}
	if pos.AltKm < 250 || pos.AltKm > 500 {
		t.Errorf("alt %.1f km outside ISS range", pos.AltKm)
	}

	if len(published) != 1 || published[0] != snap {
		t.Errorf("onSnapshot saw %d snapshots, want the published one", len(published))
	}
}

func TestRunOnceEmptyStore(t *testing.T) {
	eng := New(catalog.NewStore(), Config{TickInterval: time.Second, Workers: 1}, testLogger, nil)
	eng.RunOnce(context.Background(), time.Now())
	if eng.Latest() != nil {
		t.Error("empty store should publish nothing")
	}
}

func TestRunOnceSkipsWhileInFlight(t *testing.T) {
	store, epoch := testCatalogStore(t)

	var mu sync.Mutex
	count := 0
	eng := New(store, Config{TickInterval: time.Second, Workers: 1}, testLogger, func(*Snapshot) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	// Simulate a batch still running.
	eng.inFlight.Store(true)
	eng.RunOnce(context.Background(), epoch)
	mu.Lock()
	if count != 0 {
		t.Errorf("batch ran while another was in flight")
	}
	mu.Unlock()

	eng.inFlight.Store(false)
	eng.RunOnce(context.Background(), epoch)
	mu.Lock()
	if count != 1 {
		t.Errorf("snapshots published = %d, want 1", count)
	}
	mu.Unlock()
}

func TestSnapshotTracksCatalogGeneration(t *testing.T) {
	store, epoch := testCatalogStore(t)
	eng := New(store, Config{TickInterval: time.Second, Workers: 1}, testLogger, nil)

	eng.RunOnce(context.Background(), epoch)
	if snap := eng.Latest(); snap == nil || snap.Generation != 1 {
		t.Fatalf("snapshot = %+v, want generation 1", snap)
	}

	// Replace the catalog; the next batch publishes under the new
	// generation, never the old one.
	cat, _ := store.Get()
	store.Set(cat)

	eng.RunOnce(context.Background(), epoch.Add(time.Minute))
	snap := eng.Latest()
	if snap == nil {
		t.Fatal("no snapshot after catalog swap")
	}
	if snap.Generation != store.Generation() {
		t.Errorf("snapshot generation = %d, want current %d", snap.Generation, store.Generation())
	}
}

func TestTickIntervalClamping(t *testing.T) {
	store := catalog.NewStore()

	eng := New(store, Config{TickInterval: time.Millisecond, Workers: 1}, testLogger, nil)
	if eng.cfg.TickInterval != MinTickInterval {
		t.Errorf("interval = %v, want clamped to %v", eng.cfg.TickInterval, MinTickInterval)
	}

	eng = New(store, Config{TickInterval: time.Minute, Workers: 1}, testLogger, nil)
	if eng.cfg.TickInterval != MaxTickInterval {
		t.Errorf("interval = %v, want clamped to %v", eng.cfg.TickInterval, MaxTickInterval)
	}
}

func TestPropagateBatch(t *testing.T) {
	set, err := tle.ParseElementSet(issLine1, issLine2)
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	set.Name = "ISS (ZARYA)"

	cat := catalog.Build([]tle.ElementSet{*set}, set.Epoch, 0, testLogger)
	if cat.Len() != 1 {
		t.Fatalf("catalog build rejected the fixture: %+v", cat.Stats)
	}

	pool := NewWorkerPool(2, testLogger)
	positions, ok, failed := pool.PropagateBatch(context.Background(), cat, set.Epoch.Add(10*time.Minute))
	if ok != 1 || failed != 0 {
		t.Errorf("ok=%d failed=%d, want 1/0", ok, failed)
	}
	if len(positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(positions))
	}
	if positions[0].CatalogNumber != 25544 {
		t.Errorf("catalog_number = %d, want 25544", positions[0].CatalogNumber)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store, _ := testCatalogStore(t)
	eng := New(store, Config{TickInterval: MinTickInterval, Workers: 1}, testLogger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Run(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
