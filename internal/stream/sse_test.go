package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sky/skytrack/internal/engine"
	"github.com/sky/skytrack/internal/snapshot"
	"github.com/sky/skytrack/internal/tle"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testStore() *tle.Store {
	store := tle.NewStore()
	store.Set(&tle.Dataset{
		Source:    "test",
		FetchedAt: time.Date(2026, 8, 30, 3, 45, 0, 0, time.UTC),
		Satellites: []tle.ElementSet{
			{CatalogNumber: 25544, Name: "ISS (ZARYA)"},
		},
	})
	return store
}

func testConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
	}
}

func testSnapshot(gen uint64, ts time.Time) *engine.Snapshot {
	return &engine.Snapshot{
		Timestamp:  ts,
		Generation: gen,
		Satellites: []engine.SatellitePosition{
			{CatalogNumber: 25544, Name: "ISS (ZARYA)", Category: "station", LatDeg: 51.2, LonDeg: -12.7, AltKm: 421.5},
			{CatalogNumber: 44713, Name: "STARLINK-1007", Category: "starlink", LatDeg: -23.8, LonDeg: 101.3, AltKm: 549.9},
		},
	}
}

// TestBuildPositionsMessage verifies the per-tick payload structure.
func TestBuildPositionsMessage(t *testing.T) {
	snap := testSnapshot(1, time.Date(2026, 8, 30, 4, 0, 0, 0, time.UTC))

	msg := buildPositionsMessage(snap, nil)

	if msg.Type != "positions" {
		t.Errorf("type = %q, want %q", msg.Type, "positions")
	}
	if msg.T != "2026-08-30T04:00:00Z" {
		t.Errorf("t = %q, want %q", msg.T, "2026-08-30T04:00:00Z")
	}
	if len(msg.Sat) != 2 {
		t.Fatalf("sat count = %d, want 2", len(msg.Sat))
	}
	if msg.Sat[0].ID != 25544 {
		t.Errorf("sat[0].id = %d, want 25544", msg.Sat[0].ID)
	}
	if msg.Sat[0].Lat != 51.2 || msg.Sat[0].Lon != -12.7 || msg.Sat[0].Alt != 421.5 {
		t.Errorf("sat[0] position = (%v, %v, %v), want (51.2, -12.7, 421.5)",
			msg.Sat[0].Lat, msg.Sat[0].Lon, msg.Sat[0].Alt)
	}
	if msg.Sat[0].Tr != nil {
		t.Error("no history requested, trail should be absent")
	}
}

// TestBuildPositionsMessageWithTrail verifies trail assembly from history
// snapshots: oldest first, indexed per catalog number.
func TestBuildPositionsMessageWithTrail(t *testing.T) {
	base := time.Date(2026, 8, 30, 4, 0, 0, 0, time.UTC)
	h1 := testSnapshot(1, base.Add(-2*time.Second))
	h2 := testSnapshot(1, base.Add(-time.Second))
	h2.Satellites[0].LatDeg = 51.3
	snap := testSnapshot(1, base)

	msg := buildPositionsMessage(snap, []*engine.Snapshot{h1, h2})

	if len(msg.Sat[0].Tr) != 2 {
		t.Fatalf("trail length = %d, want 2", len(msg.Sat[0].Tr))
	}
	if msg.Sat[0].Tr[0][0] != 51.2 {
		t.Errorf("oldest trail lat = %v, want 51.2", msg.Sat[0].Tr[0][0])
	}
	if msg.Sat[0].Tr[1][0] != 51.3 {
		t.Errorf("newest trail lat = %v, want 51.3", msg.Sat[0].Tr[1][0])
	}
}

// TestPositionsMessageJSON verifies the wire field names.
func TestPositionsMessageJSON(t *testing.T) {
	msg := positionsMessage{
		Type: "positions",
		T:    "2026-08-30T04:00:00Z",
		Sat: []satPayload{
			{ID: 25544, Lat: 51.2, Lon: -12.7, Alt: 421.5},
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}

	if parsed["type"] != "positions" {
		t.Errorf("type = %v, want positions", parsed["type"])
	}
	if parsed["t"] != "2026-08-30T04:00:00Z" {
		t.Errorf("t = %v, want 2026-08-30T04:00:00Z", parsed["t"])
	}
	sats, ok := parsed["sat"].([]any)
	if !ok || len(sats) != 1 {
		t.Fatalf("sat = %v, want 1-element array", parsed["sat"])
	}
	sat := sats[0].(map[string]any)
	if sat["id"].(float64) != 25544 {
		t.Errorf("sat[0].id = %v, want 25544", sat["id"])
	}
	if _, present := sat["tr"]; present {
		t.Error("empty trail should be omitted from JSON")
	}
}

// TestMetadataMessageJSON verifies the metadata message format.
func TestMetadataMessageJSON(t *testing.T) {
	msg := metadataMessage{
		Type:       "metadata",
		FetchedAt:  "2026-08-30T03:45:00Z",
		ElementAge: 1800,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}

	if parsed["type"] != "metadata" {
		t.Errorf("type = %v, want metadata", parsed["type"])
	}
	if parsed["dataset_fetched_at"] != "2026-08-30T03:45:00Z" {
		t.Errorf("dataset_fetched_at = %v, want 2026-08-30T03:45:00Z", parsed["dataset_fetched_at"])
	}
	if parsed["element_age_seconds"].(float64) != 1800 {
		t.Errorf("element_age_seconds = %v, want 1800", parsed["element_age_seconds"])
	}
}

// TestSSEMessageFormat runs the handler against a recorder, publishes one
// snapshot, and checks the wire format: headers, metadata-first, and that
// every line is data, retry, comment or blank.
func TestSSEMessageFormat(t *testing.T) {
	hub := NewHub()
	trails := snapshot.NewBuffer(0, testLogger())
	handler := NewHandler(hub, trails, testStore(), Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  5 * time.Second,
	}, testLogger())

	req := httptest.NewRequest("GET", "/api/v1/stream/positions", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.HandlePositions(w, req)
	}()

	// Wait for the handler to subscribe, then feed it one snapshot.
	waitFor(t, func() bool { return hub.Subscribers() == 1 })
	hub.Publish(testSnapshot(1, time.Date(2026, 8, 30, 4, 0, 0, 0, time.UTC)))
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	resp := w.Result()
	if resp.Header.Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", resp.Header.Get("Cache-Control"))
	}

	body := w.Body.String()
	scanner := bufio.NewScanner(strings.NewReader(body))
	var types []string
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			t.Errorf("invalid JSON in SSE data line: %v", err)
			continue
		}
		types = append(types, msg["type"].(string))
	}

	if len(types) < 2 {
		t.Fatalf("expected metadata + positions messages, got %v", types)
	}
	if types[0] != "metadata" {
		t.Errorf("first message type = %q, want metadata", types[0])
	}
	if types[1] != "positions" {
		t.Errorf("second message type = %q, want positions", types[1])
	}

	for _, line := range strings.Split(body, "\n") {
		if line == "" || line == ":" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") && !strings.HasPrefix(line, "retry: ") {
			t.Errorf("unexpected SSE line: %q", line)
		}
	}
}

// TestInvalidTrailParam verifies 400 on out-of-range trail values.
func TestInvalidTrailParam(t *testing.T) {
	handler := NewHandler(NewHub(), snapshot.NewBuffer(0, testLogger()), testStore(), testConfig(), testLogger())

	for _, q := range []string{"?trail=-1", "?trail=abc", "?trail=9999"} {
		t.Run(q, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/stream/positions"+q, nil)
			req.RemoteAddr = "127.0.0.1:12345"
			w := httptest.NewRecorder()
			handler.HandlePositions(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

// TestRateLimiting verifies per-IP concurrent stream limits.
func TestRateLimiting(t *testing.T) {
	limiter := newStreamLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.acquire("10.0.0.1") {
			t.Fatalf("acquire %d should succeed", i+1)
		}
	}

	if limiter.acquire("10.0.0.1") {
		t.Error("acquire beyond limit should fail")
	}

	if !limiter.acquire("10.0.0.2") {
		t.Error("different IP should not be rate limited")
	}

	limiter.release("10.0.0.1")
	if !limiter.acquire("10.0.0.1") {
		t.Error("acquire after release should succeed")
	}

	if c := limiter.count("10.0.0.1"); c != 3 {
		t.Errorf("count = %d, want 3", c)
	}
	if c := limiter.count("10.0.0.2"); c != 1 {
		t.Errorf("count = %d, want 1", c)
	}
}

// TestRateLimitingConcurrent verifies rate limiter thread safety.
func TestRateLimitingConcurrent(t *testing.T) {
	limiter := newStreamLimiter(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.acquire("10.0.0.1") {
				defer limiter.release("10.0.0.1")
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if c := limiter.count("10.0.0.1"); c != 0 {
		t.Errorf("count after all released = %d, want 0", c)
	}
}

// TestRateLimitHTTPResponse verifies the 429 response when the per-IP
// limit is already held.
func TestRateLimitHTTPResponse(t *testing.T) {
	handler := NewHandler(NewHub(), snapshot.NewBuffer(0, testLogger()), testStore(), Config{
		MaxConcurrentPerIP: 1,
		KeepaliveInterval:  30 * time.Second,
	}, testLogger())

	// Occupy the only slot directly; holding a live handler open against
	// a recorder would race on its buffer.
	if !handler.limiter.acquire("10.0.0.1") {
		t.Fatal("slot acquisition should succeed")
	}
	defer handler.limiter.release("10.0.0.1")

	req := httptest.NewRequest("GET", "/api/v1/stream/positions", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	w := httptest.NewRecorder()
	handler.HandlePositions(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
