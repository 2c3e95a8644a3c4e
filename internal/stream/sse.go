// Package stream implements Server-Sent Events (SSE) streaming of satellite
// position snapshots. Clients connect via GET /api/v1/stream/positions and
// receive one message per engine tick with geodetic positions for every
// tracked object.
//
// SSE message format:
//
//	data: {"type":"positions","t":"2026-08-30T04:00:00Z","sat":[...]}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","dataset_fetched_at":"...","element_age_seconds":1800}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent
// idle timeouts. Reconnecting clients receive fresh metadata each time.
package stream

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/sky/skytrack/internal/engine"
	"github.com/sky/skytrack/internal/httputil"
	"github.com/sky/skytrack/internal/metrics"
	"github.com/sky/skytrack/internal/snapshot"
	"github.com/sky/skytrack/internal/tle"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Trust X-Forwarded-For for rate limiting.
}

// Handler manages SSE streaming connections.
type Handler struct {
	hub     *Hub
	trails  *snapshot.Buffer
	store   *tle.Store
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler reading snapshots from hub
// and trail history from trails.
func NewHandler(hub *Hub, trails *snapshot.Buffer, store *tle.Store, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		hub:     hub,
		trails:  trails,
		store:   store,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

// HandlePositions serves the SSE position stream.
// GET /api/v1/stream/positions?trail=20
func (h *Handler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	trail := 0
	if v := r.URL.Query().Get("trail"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > snapshot.DefaultCapacity {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid trail parameter, must be 0-120"})
			return
		}
		trail = n
	}

	// Rate limiting: enforce concurrent stream limit per IP.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	metrics.StreamClientConnected()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"trail", trail,
	)

	// Cleanup on disconnect: release rate limit slot and update metrics.
	defer func() {
		h.limiter.release(ip)
		metrics.StreamClientDisconnected()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	// ResponseController manages flushing and write deadlines for the
	// long-lived connection; it reaches the real writer through any
	// middleware wrappers via Unwrap.
	rc := http.NewResponseController(w)

	// Set SSE response headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)

	if err := rc.Flush(); err != nil {
		// No flush support means SSE cannot work on this connection.
		h.logger.Warn("streaming not supported", "remote_ip", ip, "error", err)
		return
	}

	// Clear the server's default WriteTimeout for this connection.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:      w,
		rc:     rc,
		ip:     ip,
		logger: h.logger,
	}

	// Send jittered retry interval (3-7s) to prevent thundering-herd
	// reconnection storms when the server restarts.
	retryMs := 3000 + rand.Intn(4000)
	if err := c.sendRetry(retryMs); err != nil {
		return
	}

	// Send metadata message (first message on every connection).
	if ds := h.store.Get(); ds != nil {
		meta := metadataMessage{
			Type:       "metadata",
			FetchedAt:  ds.FetchedAt.UTC().Format(time.RFC3339),
			ElementAge: int(time.Since(ds.FetchedAt).Seconds()),
		}
		if err := c.sendJSON(meta); err != nil {
			h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
			return
		}
	}

	snapshots, cancel := h.hub.Subscribe()
	defer cancel()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case snap := <-snapshots:
			var history []*engine.Snapshot
			if trail > 0 {
				history = h.trails.Recent(trail)
			}

			msg := buildPositionsMessage(snap, history)
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Warn("stream marshal error", "remote_ip", ip, "error", err)
				continue
			}
			if err := c.sendRaw(data); err != nil {
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}

			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// buildPositionsMessage formats a snapshot into the SSE payload. If
// history is non-empty, each satellite carries its past positions as
// [lat, lon, alt] triples, oldest first. History snapshots share the
// snapshot's catalog generation, so positions index cleanly by catalog
// number.
func buildPositionsMessage(snap *engine.Snapshot, history []*engine.Snapshot) positionsMessage {
	var trailIndex map[int][][3]float64
	if len(history) > 0 {
		trailIndex = make(map[int][][3]float64, len(snap.Satellites))
		for _, hs := range history {
			for _, s := range hs.Satellites {
				trailIndex[s.CatalogNumber] = append(trailIndex[s.CatalogNumber],
					[3]float64{s.LatDeg, s.LonDeg, s.AltKm})
			}
		}
	}

	sats := make([]satPayload, len(snap.Satellites))
	for i, s := range snap.Satellites {
		sats[i] = satPayload{
			ID:  s.CatalogNumber,
			Lat: s.LatDeg,
			Lon: s.LonDeg,
			Alt: s.AltKm,
		}
		if trailIndex != nil {
			if tr, ok := trailIndex[s.CatalogNumber]; ok {
				sats[i].Tr = tr
			}
		}
	}
	return positionsMessage{
		Type: "positions",
		T:    snap.Timestamp.UTC().Format(time.RFC3339),
		Sat:  sats,
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type       string `json:"type"`
	FetchedAt  string `json:"dataset_fetched_at"`
	ElementAge int    `json:"element_age_seconds"`
}

type positionsMessage struct {
	Type string       `json:"type"`
	T    string       `json:"t"`
	Sat  []satPayload `json:"sat"`
}

type satPayload struct {
	ID  int          `json:"id"`
	Lat float64      `json:"lat"`
	Lon float64      `json:"lon"`
	Alt float64      `json:"alt"`
	Tr  [][3]float64 `json:"tr,omitempty"`
}
