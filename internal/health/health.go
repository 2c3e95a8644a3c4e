// Package health serves liveness and readiness probes.
package health

import (
	"net/http"
	"sync/atomic"
)

// Checker tracks service readiness. The process is live as soon as it
// starts; it is ready once the first catalog has been built and the
// first position snapshot published.
type Checker struct {
	ready atomic.Bool
}

// SetReady marks the service ready. Readiness is sticky: once ready,
// always ready, so a transient fetch failure does not pull the service
// out of rotation while it keeps serving the last good catalog.
func (c *Checker) SetReady() {
	c.ready.Store(true)
}

// Healthz returns 200 "ok\n" unconditionally.
func (c *Checker) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readyz returns 200 "ready\n" once the first snapshot has been
// published, 503 before that.
func (c *Checker) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if !c.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}
