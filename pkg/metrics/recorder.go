// Package metrics provides Prometheus instrumentation for pipeline runs and
// a query service for aggregating recorded usage.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"toolforge/pkg/logx"
)

var (
	itemsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_items_ingested_total",
		Help: "Corpus items appended, by source",
	}, []string{"source"})

	topicsSelected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_topics_selected_total",
		Help: "Topics selected for ideation",
	})

	toolOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_tool_outcomes_total",
		Help: "Terminal tool outcomes, by state",
	}, []string{"state"})

	buildAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_build_attempts_total",
		Help: "Build attempts, by status",
	}, []string{"status"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_run_duration_seconds",
		Help:    "Wall-clock duration of complete runs",
		Buckets: prometheus.ExponentialBuckets(30, 2, 8),
	})
)

// RecordIngested counts items appended from a source.
func RecordIngested(source string, count int) {
	itemsIngested.WithLabelValues(source).Add(float64(count))
}

// RecordTopics counts topics selected for a run.
func RecordTopics(count int) {
	topicsSelected.Add(float64(count))
}

// RecordOutcome counts one terminal tool outcome.
func RecordOutcome(state string) {
	toolOutcomes.WithLabelValues(state).Inc()
}

// RecordAttempt counts one finished build attempt.
func RecordAttempt(status string) {
	buildAttempts.WithLabelValues(status).Inc()
}

// RecordRunDuration observes a completed run's duration.
func RecordRunDuration(d time.Duration) {
	runDuration.Observe(d.Seconds())
}

// Server exposes the metrics endpoint for scraping.
type Server struct {
	logger *logx.Logger
	srv    *http.Server
}

// NewServer creates an exposition server on addr.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		logger: logx.NewLogger("metrics"),
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics exposition on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed: %v", err)
		}
	}()
}

// Shutdown stops the exposition server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
