package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sky/skytrack/internal/auth"
	"github.com/sky/skytrack/internal/catalog"
	"github.com/sky/skytrack/internal/engine"
	"github.com/sky/skytrack/internal/health"
	"github.com/sky/skytrack/internal/snapshot"
	"github.com/sky/skytrack/internal/stream"
	"github.com/sky/skytrack/internal/tle"
)

// ISS orbit with the epoch pinned to 2026-08-30 12:00:00 UTC so the
// catalog builder accepts it when the build is anchored to that instant.
const (
	issLine1 = "1 25544U 98067A   26242.50000000 -.00002182  00000-0 -11606-4 0  2920"
	issLine2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"
)

var epoch = time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	handler http.Handler
	eng     *engine.Engine
}

func newFixture(t *testing.T, authCfg auth.Config) *fixture {
	t.Helper()
	logger := testLogger()

	set, err := tle.ParseElementSet(issLine1, issLine2)
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	set.Name = "ISS (ZARYA)"

	elements := tle.NewStore()
	elements.Set(&tle.Dataset{
		Source:     "test",
		FetchedAt:  epoch,
		Satellites: []tle.ElementSet{*set},
	})

	catalogs := catalog.NewStore()
	cat := catalog.Build(elements.Get().Satellites, epoch, 0, logger)
	if cat.Len() != 1 {
		t.Fatalf("catalog build rejected the fixture: %+v", cat.Stats)
	}
	catalogs.Set(cat)

	trails := snapshot.NewBuffer(0, logger)
	eng := engine.New(catalogs, engine.Config{TickInterval: time.Second, Workers: 1}, logger, nil)

	hub := stream.NewHub()
	sse := stream.NewHandler(hub, trails, elements, stream.Config{}, logger)

	h := NewHandlers(catalogs, eng, trails, elements, logger)
	srv := NewServer(":0", h, sse, &health.Checker{}, logger, authCfg)

	return &fixture{handler: srv.HTTPServer().Handler, eng: eng}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

func TestSatellitesEndpoint(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.get(t, "/api/v1/satellites")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decode(t, w)
	if body["count"].(float64) != 1 {
		t.Errorf("count = %v, want 1", body["count"])
	}
	sats := body["satellites"].([]any)
	first := sats[0].(map[string]any)
	if first["catalog_number"].(float64) != 25544 {
		t.Errorf("catalog_number = %v, want 25544", first["catalog_number"])
	}
	if first["category"] != "station" {
		t.Errorf("category = %v, want station", first["category"])
	}
}

func TestSatellitesCategoryFilter(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.get(t, "/api/v1/satellites?category=starlink")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decode(t, w); body["count"].(float64) != 0 {
		t.Errorf("starlink filter count = %v, want 0", body["count"])
	}

	if w := f.get(t, "/api/v1/satellites?category=frobnicator"); w.Code != http.StatusBadRequest {
		t.Errorf("unknown category: status = %d, want 400", w.Code)
	}
}

func TestSatellitesCatalogNotReady(t *testing.T) {
	logger := testLogger()
	h := NewHandlers(catalog.NewStore(), nil, snapshot.NewBuffer(0, logger), tle.NewStore(), logger)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/satellites", nil)
	w := httptest.NewRecorder()
	h.handleSatellites(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestPositionsEndpoint(t *testing.T) {
	f := newFixture(t, auth.Config{})

	// No snapshot published yet.
	if w := f.get(t, "/api/v1/positions"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("before snapshot: status = %d, want 503", w.Code)
	}

	f.eng.RunOnce(context.Background(), time.Now())

	w := f.get(t, "/api/v1/positions")
	if w.Code != http.StatusOK {
		t.Fatalf("after snapshot: status = %d, want 200", w.Code)
	}
	body := decode(t, w)
	if body["count"].(float64) != 1 {
		t.Errorf("count = %v, want 1", body["count"])
	}
	sat := body["satellites"].([]any)[0].(map[string]any)
	if lat := sat["lat_deg"].(float64); lat < -90 || lat > 90 {
		t.Errorf("lat_deg = %v out of range", lat)
	}
	if lon := sat["lon_deg"].(float64); lon < -180 || lon > 180 {
		t.Errorf("lon_deg = %v out of range", lon)
	}
}

func TestTrackEndpoint(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.get(t, "/api/v1/track/25544?minutes=30&step=60")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	// 30 minutes at 60s steps, endpoints inclusive.
	if body["count"].(float64) != 31 {
		t.Errorf("count = %v, want 31", body["count"])
	}
	if body["step_seconds"].(float64) != 60 {
		t.Errorf("step_seconds = %v, want 60", body["step_seconds"])
	}
}

func TestTrackEndpointRejections(t *testing.T) {
	f := newFixture(t, auth.Config{})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown object", "/api/v1/track/99999", http.StatusNotFound},
		{"non-numeric id", "/api/v1/track/iss", http.StatusBadRequest},
		{"window too long", "/api/v1/track/25544?minutes=720", http.StatusBadRequest},
		{"zero window", "/api/v1/track/25544?minutes=0", http.StatusBadRequest},
		{"step too fine", "/api/v1/track/25544?step=1", http.StatusBadRequest},
		{"step too coarse", "/api/v1/track/25544?step=3600", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.get(t, tt.path)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if body := decode(t, w); body["error"] == nil {
				t.Error("expected error field in response")
			}
		})
	}
}

func TestPassesEndpointRejections(t *testing.T) {
	f := newFixture(t, auth.Config{})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing observer", "/api/v1/passes/25544", http.StatusBadRequest},
		{"missing lon", "/api/v1/passes/25544?lat=40.7", http.StatusBadRequest},
		{"lat out of range", "/api/v1/passes/25544?lat=91&lon=0", http.StatusBadRequest},
		{"lon out of range", "/api/v1/passes/25544?lat=0&lon=181", http.StatusBadRequest},
		{"horizon too long", "/api/v1/passes/25544?lat=40.7&lon=-74&hours=100", http.StatusBadRequest},
		{"min elevation at zenith", "/api/v1/passes/25544?lat=40.7&lon=-74&min_elevation=90", http.StatusBadRequest},
		{"unknown object", "/api/v1/passes/99999?lat=40.7&lon=-74", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.get(t, tt.path)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestPassesEndpoint(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.get(t, "/api/v1/passes/25544?lat=40.7128&lon=-74.0060&hours=24")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	obs := body["observer"].(map[string]any)
	if obs["lat_deg"].(float64) != 40.7128 {
		t.Errorf("observer lat = %v, want 40.7128", obs["lat_deg"])
	}
	if body["horizon_hours"].(float64) != 24 {
		t.Errorf("horizon_hours = %v, want 24", body["horizon_hours"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.get(t, "/api/v1/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decode(t, w)
	if body["trail_buffer"] == nil {
		t.Error("expected trail_buffer section")
	}
	cat := body["catalog"].(map[string]any)
	if cat["objects"].(float64) != 1 {
		t.Errorf("catalog objects = %v, want 1", cat["objects"])
	}
	ds := body["dataset"].(map[string]any)
	if ds["source"] != "test" {
		t.Errorf("dataset source = %v, want test", ds["source"])
	}
}

func TestAuthEnforcement(t *testing.T) {
	f := newFixture(t, auth.Config{Enabled: true, Token: "sekrit"})

	// Probes stay public.
	if w := f.get(t, "/healthz"); w.Code != http.StatusOK {
		t.Errorf("healthz: status = %d, want 200", w.Code)
	}

	if w := f.get(t, "/api/v1/satellites"); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/satellites", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/satellites", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", w.Code)
	}
}
