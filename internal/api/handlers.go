package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sky/skytrack/internal/catalog"
	"github.com/sky/skytrack/internal/engine"
	"github.com/sky/skytrack/internal/passes"
	"github.com/sky/skytrack/internal/sgp4"
	"github.com/sky/skytrack/internal/snapshot"
	"github.com/sky/skytrack/internal/tle"
	"github.com/sky/skytrack/internal/track"
	"github.com/sky/skytrack/internal/visibility"
)

// Track request bounds. A full LEO orbit is ~90 minutes; six hours
// covers several revolutions without unbounded propagation work.
const (
	defaultTrackWindow = 90 * time.Minute
	maxTrackWindow     = 6 * time.Hour
	defaultTrackStep   = time.Minute
	minTrackStep       = 10 * time.Second
	maxTrackStep       = 10 * time.Minute
)

// Pass request bounds.
const (
	defaultPassHorizon = 24 * time.Hour
	maxPassHorizon     = 72 * time.Hour
	maxPassesPerQuery  = 50
)

// Handlers bundles the read-side dependencies of the REST endpoints.
type Handlers struct {
	catalogs *catalog.Store
	eng      *engine.Engine
	trails   *snapshot.Buffer
	elements *tle.Store
	logger   *slog.Logger
}

// NewHandlers creates the REST handler set.
func NewHandlers(catalogs *catalog.Store, eng *engine.Engine, trails *snapshot.Buffer, elements *tle.Store, logger *slog.Logger) *Handlers {
	return &Handlers{
		catalogs: catalogs,
		eng:      eng,
		trails:   trails,
		elements: elements,
		logger:   logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// satelliteInfo is one catalog entry in the /satellites listing.
type satelliteInfo struct {
	CatalogNumber  int    `json:"catalog_number"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	IntlDesignator string `json:"intl_designator,omitempty"`
	ElementEpoch   string `json:"element_epoch"`
}

// handleSatellites lists the tracked objects in the current catalog.
// GET /api/v1/satellites?category=starlink
func (h *Handlers) handleSatellites(w http.ResponseWriter, r *http.Request) {
	cat, _ := h.catalogs.Get()
	if cat == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not ready")
		return
	}

	var filter catalog.Category
	filtered := false
	if v := r.URL.Query().Get("category"); v != "" {
		c, ok := catalog.ParseCategory(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		filter, filtered = c, true
	}

	sats := make([]satelliteInfo, 0, cat.Len())
	for _, obj := range cat.Objects {
		if filtered && obj.Category != filter {
			continue
		}
		sats = append(sats, satelliteInfo{
			CatalogNumber:  obj.CatalogNumber,
			Name:           obj.Name,
			Category:       obj.Category.String(),
			IntlDesignator: obj.Elements.IntlDesignator,
			ElementEpoch:   obj.Elements.Epoch.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"built_at":   cat.BuiltAt.UTC().Format(time.RFC3339),
		"count":      len(sats),
		"satellites": sats,
	})
}

// handlePositions returns the latest published snapshot.
// GET /api/v1/positions?category=weather
func (h *Handlers) handlePositions(w http.ResponseWriter, r *http.Request) {
	snap := h.eng.Latest()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}

	sats := snap.Satellites
	if v := r.URL.Query().Get("category"); v != "" {
		c, ok := catalog.ParseCategory(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		want := c.String()
		filtered := make([]engine.SatellitePosition, 0, len(sats))
		for _, s := range sats {
			if s.Category == want {
				filtered = append(filtered, s)
			}
		}
		sats = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp":  snap.Timestamp.UTC().Format(time.RFC3339),
		"count":      len(sats),
		"satellites": sats,
	})
}

// handleTrack samples the ground track of one object.
// GET /api/v1/track/{id}?minutes=90&step=60
func (h *Handlers) handleTrack(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid catalog number")
		return
	}

	cat, _ := h.catalogs.Get()
	if cat == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not ready")
		return
	}
	obj := cat.Lookup(id)
	if obj == nil {
		writeError(w, http.StatusNotFound, "object not in catalog")
		return
	}

	window := defaultTrackWindow
	if v := r.URL.Query().Get("minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || time.Duration(n)*time.Minute > maxTrackWindow {
			writeError(w, http.StatusBadRequest, "invalid minutes parameter, must be 1-360")
			return
		}
		window = time.Duration(n) * time.Minute
	}

	step := defaultTrackStep
	if v := r.URL.Query().Get("step"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || time.Duration(n)*time.Second < minTrackStep || time.Duration(n)*time.Second > maxTrackStep {
			writeError(w, http.StatusBadRequest, "invalid step parameter, must be 10-600 seconds")
			return
		}
		step = time.Duration(n) * time.Second
	}

	points, err := track.Sample(obj.Model, time.Now(), window, step)
	if err != nil {
		var perr *sgp4.PropagationError
		if errors.As(err, &perr) {
			writeError(w, http.StatusUnprocessableEntity, perr.Error())
			return
		}
		h.logger.Error("track sampling failed", "catalog_number", id, "error", err)
		writeError(w, http.StatusInternalServerError, "track sampling failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"catalog_number": obj.CatalogNumber,
		"name":           obj.Name,
		"step_seconds":   int(step.Seconds()),
		"count":          len(points),
		"points":         points,
	})
}

// handlePasses predicts visibility windows for one object over a ground
// observer. Observer coordinates are required.
// GET /api/v1/passes/{id}?lat=52.5&lon=13.4&alt=35&hours=24&min_elevation=10
func (h *Handlers) handlePasses(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid catalog number")
		return
	}

	q := r.URL.Query()
	if q.Get("lat") == "" || q.Get("lon") == "" {
		writeError(w, http.StatusBadRequest, "lat and lon query parameters are required")
		return
	}
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		writeError(w, http.StatusBadRequest, "invalid lat, must be -90..90")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "invalid lon, must be -180..180")
		return
	}
	alt := 0.0
	if v := q.Get("alt"); v != "" {
		alt, err = strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid alt")
			return
		}
	}

	horizon := defaultPassHorizon
	if v := q.Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || time.Duration(n)*time.Hour > maxPassHorizon {
			writeError(w, http.StatusBadRequest, "invalid hours parameter, must be 1-72")
			return
		}
		horizon = time.Duration(n) * time.Hour
	}

	minElev := 0.0
	if v := q.Get("min_elevation"); v != "" {
		minElev, err = strconv.ParseFloat(v, 64)
		if err != nil || minElev < 0 || minElev >= 90 {
			writeError(w, http.StatusBadRequest, "invalid min_elevation, must be 0-90")
			return
		}
	}

	cat, _ := h.catalogs.Get()
	if cat == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not ready")
		return
	}
	obj := cat.Lookup(id)
	if obj == nil {
		writeError(w, http.StatusNotFound, "object not in catalog")
		return
	}

	obs := visibility.Observer{LatDeg: lat, LonDeg: lon, AltMeters: alt}
	result, err := passes.PredictOne(r.Context(), obj.Model, obs, time.Now(), horizon, minElev, maxPassesPerQuery)
	if err != nil {
		var perr *sgp4.PropagationError
		if errors.As(err, &perr) {
			writeError(w, http.StatusUnprocessableEntity, perr.Error())
			return
		}
		h.logger.Error("pass prediction failed", "catalog_number", id, "error", err)
		writeError(w, http.StatusInternalServerError, "pass prediction failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"catalog_number": obj.CatalogNumber,
		"name":           obj.Name,
		"observer": map[string]float64{
			"lat_deg":    lat,
			"lon_deg":    lon,
			"alt_meters": alt,
		},
		"horizon_hours": int(horizon.Hours()),
		"count":         len(result),
		"passes":        result,
	})
}

// handleStats reports catalog, dataset and trail buffer state.
// GET /api/v1/stats
func (h *Handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"trail_buffer": h.trails.Stats(),
	}

	if cat, gen := h.catalogs.Get(); cat != nil {
		out["catalog"] = map[string]any{
			"generation":       gen,
			"built_at":         cat.BuiltAt.UTC().Format(time.RFC3339),
			"objects":          cat.Len(),
			"source_sets":      cat.Stats.Source,
			"rejected_stale":   cat.Stats.RejectedStale,
			"rejected_invalid": cat.Stats.RejectedInvalid,
			"rejected_model":   cat.Stats.RejectedModelErr,
		}
	}

	if ds := h.elements.Get(); ds != nil {
		out["dataset"] = map[string]any{
			"source":      ds.Source,
			"fetched_at":  ds.FetchedAt.UTC().Format(time.RFC3339),
			"age_seconds": int(time.Since(ds.FetchedAt).Seconds()),
			"satellites":  len(ds.Satellites),
		}
	}

	writeJSON(w, http.StatusOK, out)
}
