// Package metrics exposes Prometheus counters for validation sessions.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zjrosen/regform/internal/log"
)

// Metrics holds the counters a session reports into.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Recomputations *prometheus.CounterVec
	Emissions      *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Recomputations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regform_recomputations_total",
				Help: "Total number of derived signal recomputations by signal",
			},
			[]string{"signal"},
		),
		Emissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regform_stage_emissions_total",
				Help: "Total number of values leaving a debounce/dedupe stage",
			},
			[]string{"stage"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "regform_active_sessions",
				Help: "Number of validation sessions not yet closed",
			},
		),
	}

	reg.MustRegister(m.Recomputations)
	reg.MustRegister(m.Emissions)
	reg.MustRegister(m.ActiveSessions)

	return m
}

// Recomputed counts one recomputation of signal.
func (m *Metrics) Recomputed(signal string) {
	if m == nil {
		return
	}
	m.Recomputations.WithLabelValues(signal).Inc()
}

// Emitted counts one value leaving stage.
func (m *Metrics) Emitted(stage string) {
	if m == nil {
		return
	}
	m.Emissions.WithLabelValues(stage).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// Server serves /metrics for a registry.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
}

// NewServer creates a metrics server for addr. Go runtime collectors are
// added to registry.
func NewServer(addr string, registry *prometheus.Registry) *Server {
	registry.MustRegister(collectors.NewGoCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorErr(log.CatMetrics, "metrics server stopped", err)
		}
	}()

	log.Info(log.CatMetrics, "metrics server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
