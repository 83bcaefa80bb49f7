// Package sessions maps browser sessions to page models.
//
// Each browser gets its own page.Page, identified by a random id kept in a
// signed cookie. Pages live in memory only and are dropped by Sweep once they
// have been idle for longer than the idle timeout.
package sessions

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/clubsignup/clock"
	"github.com/nomis52/clubsignup/metrics"
	"github.com/nomis52/clubsignup/page"
)

// DefaultIdleTimeout is how long a session may go unused before Sweep removes it.
const DefaultIdleTimeout = 30 * time.Minute

const metricActiveSessions = "active_sessions"

// Factory builds the page for a new session.
type Factory func(id string) (*page.Page, error)

type entry struct {
	page     *page.Page
	lastSeen time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock used for idle tracking.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

// WithIdleTimeout sets how long a session may go unused.
// Non-positive values keep the default.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idleTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics registers the active session gauge in reg.
func WithMetrics(reg metrics.Registry) Option {
	return func(r *Registry) {
		r.metrics = reg
	}
}

// Registry holds the live session pages.
type Registry struct {
	clock       clock.Clock
	idleTimeout time.Duration
	logger      *slog.Logger
	metrics     metrics.Registry
	active      metrics.Gauge

	mu      sync.Mutex
	factory Factory
	entries map[string]*entry
}

// New creates an empty Registry that builds pages with factory.
func New(factory Factory, opts ...Option) (*Registry, error) {
	if factory == nil {
		return nil, errors.New("session factory is required")
	}
	r := &Registry{
		clock:       clock.NewSystem(),
		idleTimeout: DefaultIdleTimeout,
		logger:      slog.Default(),
		metrics:     metrics.Discard,
		factory:     factory,
		entries:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}

	active, err := r.metrics.NewGauge(prometheus.GaugeOpts{
		Name: metricActiveSessions,
		Help: "Number of browser sessions with a live page",
	})
	if err != nil {
		return nil, err
	}
	r.active = active
	return r, nil
}

// Get returns the page for id, creating it when the session is unknown.
// The second result reports whether the page was created by this call.
func (r *Registry) Get(id string) (*page.Page, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if e, ok := r.entries[id]; ok {
		e.lastSeen = now
		return e.page, false, nil
	}

	p, err := r.factory(id)
	if err != nil {
		return nil, false, err
	}
	r.entries[id] = &entry{page: p, lastSeen: now}
	r.active.Set(float64(len(r.entries)))
	r.logger.Debug("session created", "session", id, "sessions", len(r.entries))
	return p, true, nil
}

// Lookup returns the page for id without creating or touching it.
func (r *Registry) Lookup(id string) (*page.Page, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.page, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep removes sessions idle for longer than the idle timeout and returns how
// many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	cutoff := r.clock.Now().Add(-r.idleTimeout)
	var expired []*page.Page
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.page)
			delete(r.entries, id)
		}
	}
	remaining := len(r.entries)
	r.active.Set(float64(remaining))
	r.mu.Unlock()

	for _, p := range expired {
		p.Close()
	}
	if len(expired) > 0 {
		r.logger.Info("idle sessions swept", "removed", len(expired), "remaining", remaining)
	}
	return len(expired)
}

// Run sweeps idle sessions. It lets the registry be driven by a cron trigger.
func (r *Registry) Run() error {
	r.Sweep()
	return nil
}

// Reset drops every session and builds new ones with factory from now on.
func (r *Registry) Reset(factory Factory) {
	r.mu.Lock()
	if factory != nil {
		r.factory = factory
	}
	old := r.entries
	r.entries = make(map[string]*entry)
	r.active.Set(0)
	r.mu.Unlock()

	for _, e := range old {
		e.page.Close()
	}
	r.logger.Info("sessions reset", "dropped", len(old))
}
