package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skytrack_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	batchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skytrack_batch_duration_seconds",
			Help:    "Wall time of one full propagation batch.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	propagationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_propagations_total",
			Help: "Per-object propagation outcomes.",
		},
		[]string{"outcome"},
	)

	ticksSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytrack_ticks_skipped_total",
			Help: "Ticks skipped because the previous batch was still running.",
		},
	)

	batchesDiscardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytrack_batches_discarded_total",
			Help: "Completed batches discarded due to a catalog replacement.",
		},
	)

	catalogObjects = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skytrack_catalog_objects",
			Help: "Objects in the current catalog by disposition.",
		},
		[]string{"disposition"},
	)

	elementsAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrack_elements_age_seconds",
			Help: "Age of the current element dataset.",
		},
	)

	streamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrack_stream_clients",
			Help: "Currently connected streaming clients.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytrack_stream_messages_total",
			Help: "Snapshot messages written to streaming clients.",
		},
	)

	snapshotBufferEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrack_snapshot_buffer_entries",
			Help: "Snapshots currently held in the trail buffer.",
		},
	)

	snapshotInvalidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytrack_snapshot_invalidations_total",
			Help: "Trail buffer invalidations caused by catalog replacements.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		batchDurationSeconds,
		propagationsTotal,
		ticksSkippedTotal,
		batchesDiscardedTotal,
		catalogObjects,
		elementsAgeSeconds,
		streamClients,
		streamMessagesTotal,
		snapshotBufferEntries,
		snapshotInvalidationsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBatch records one completed propagation batch.
func ObserveBatch(d time.Duration, succeeded, failed int) {
	batchDurationSeconds.Observe(d.Seconds())
	propagationsTotal.WithLabelValues("ok").Add(float64(succeeded))
	propagationsTotal.WithLabelValues("error").Add(float64(failed))
}

// IncTickSkipped counts a tick dropped because a batch was in flight.
func IncTickSkipped() {
	ticksSkippedTotal.Inc()
}

// IncBatchDiscarded counts a batch thrown away after a catalog swap.
func IncBatchDiscarded() {
	batchesDiscardedTotal.Inc()
}

// SetCatalogCounts publishes the disposition of the latest catalog build.
func SetCatalogCounts(usable, stale, invalid, modelErr int) {
	catalogObjects.WithLabelValues("usable").Set(float64(usable))
	catalogObjects.WithLabelValues("rejected_stale").Set(float64(stale))
	catalogObjects.WithLabelValues("rejected_invalid").Set(float64(invalid))
	catalogObjects.WithLabelValues("rejected_model").Set(float64(modelErr))
}

// SetElementsAge publishes the dataset age in seconds; negative means no
// dataset is loaded.
func SetElementsAge(seconds float64) {
	elementsAgeSeconds.Set(seconds)
}

// SetSnapshotBufferEntries publishes the current trail buffer depth.
func SetSnapshotBufferEntries(n int) {
	snapshotBufferEntries.Set(float64(n))
}

// IncSnapshotInvalidations counts a wholesale trail buffer reset.
func IncSnapshotInvalidations() {
	snapshotInvalidationsTotal.Inc()
}

// StreamClientConnected / StreamClientDisconnected track the SSE client
// gauge.
func StreamClientConnected()    { streamClients.Inc() }
func StreamClientDisconnected() { streamClients.Dec() }

// IncStreamMessages counts snapshot messages delivered to clients.
func IncStreamMessages() {
	streamMessagesTotal.Inc()
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer so http.ResponseController can
// reach Flush and SetWriteDeadline through the middleware chain.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// knownRoutes are the exact paths the server registers. Anything else
// (bots probing /wp-admin, /.env and friends) collapses to "other" so a
// scan cannot inflate label cardinality.
var knownRoutes = map[string]struct{}{
	"/":                        {},
	"/healthz":                 {},
	"/readyz":                  {},
	"/metrics":                 {},
	"/api/v1/satellites":       {},
	"/api/v1/positions":        {},
	"/api/v1/stats":            {},
	"/api/v1/stream/positions": {},
}

// normalizeRoute maps a request path to a bounded set of metric labels.
// Parameterized routes collapse their catalog-number segment to one
// placeholder label.
func normalizeRoute(path string) string {
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	for _, prefix := range []string{"/api/v1/track/", "/api/v1/passes/"} {
		if rest, ok := strings.CutPrefix(path, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			return prefix + "{catalog_number}"
		}
	}
	return "other"
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
