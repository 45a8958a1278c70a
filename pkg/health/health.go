// Package health provides Kubernetes-style liveness and readiness probes.
// Each registered check runs on its own ticker goroutine; HTTP endpoints
// report the last observed state and never execute checks inline.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports the health of one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// kind distinguishes liveness from readiness probes.
type kind int

const (
	liveness kind = iota
	readiness
)

// probe holds one check and its last observed state. failStreak is only
// touched by the single run goroutine; healthy and lastErr are shared with
// HTTP handlers and use atomics.
type probe struct {
	name    string
	kind    kind
	timeout time.Duration
	check   CheckFunc

	healthy    atomic.Bool
	lastErr    atomic.Pointer[error]
	failStreak int
}

// failAfter is how many consecutive failures flip a probe to unhealthy,
// guarding against flapping on a single slow check.
const failAfter = 3

func (p *probe) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(checkCtx)
	p.lastErr.Store(&err)

	if err != nil {
		p.failStreak++
		if p.failStreak >= failAfter {
			p.healthy.Store(false)
		}
		return
	}
	p.failStreak = 0
	p.healthy.Store(true)
}

// Health manages liveness and readiness probes for a service.
type Health struct {
	ready  atomic.Bool
	mu     sync.Mutex
	probes []*probe
	cancel context.CancelFunc
}

// New creates a Health that starts not-ready; call SetReady(true) once
// initialization completes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that determines whether the process is
// alive (goroutine count, deadlock detection, ...).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.add(name, liveness, timeout, check)
}

// AddReadinessCheck registers a check that determines whether the service
// can accept traffic (database connectivity, dependency availability, ...).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.add(name, readiness, timeout, check)
}

func (h *Health) add(name string, k kind, timeout time.Duration, check CheckFunc) {
	p := &probe{name: name, kind: k, timeout: timeout, check: check}
	p.healthy.Store(true) // assume healthy until proven otherwise

	h.mu.Lock()
	h.probes = append(h.probes, p)
	h.mu.Unlock()
}

// Start launches one goroutine per registered probe, each executing at the
// given interval until the context is cancelled or Stop is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := append([]*probe(nil), h.probes...)
	h.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.run(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels all probe goroutines. Safe to call multiple times.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. It is set true after startup
// and false at the beginning of graceful shutdown to drain traffic.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is manually marked ready AND all
// readiness probes currently pass.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	return len(h.failures(readiness)) == 0
}

func (h *Health) failures(k kind) map[string]string {
	h.mu.Lock()
	probes := append([]*probe(nil), h.probes...)
	h.mu.Unlock()

	failed := make(map[string]string)
	for _, p := range probes {
		if p.kind != k || p.healthy.Load() {
			continue
		}
		msg := "check is unhealthy"
		if e := p.lastErr.Load(); e != nil && *e != nil {
			msg = (*e).Error()
		}
		failed[p.name] = msg
	}
	return failed
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 when all liveness probes pass, else 503
// with the failing checks.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.failures(liveness))
}

// ReadyEndpoint serves /readyz: 200 when the service is marked ready and
// all readiness probes pass, else 503 with details.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := h.failures(readiness)
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

func writeStatus(w http.ResponseWriter, failed map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failed
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
