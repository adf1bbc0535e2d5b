package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Sampling metrics
	SamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screentime_samples_total",
			Help: "Foreground samples taken, by result",
		},
		[]string{"result"}, // "tracked", "self", "idle", "degraded"
	)

	ForegroundQueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screentime_foreground_query_duration_seconds",
			Help:    "Time spent querying the foreground window",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	TrackedApps = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "screentime_tracked_apps",
			Help: "Number of applications currently tracked",
		},
	)

	// Usage metrics
	UsageSecondsAttributed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screentime_usage_seconds_total",
			Help: "Foreground seconds attributed to applications",
		},
		[]string{"app"},
	)

	// Autosave metrics
	FlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screentime_flushes_total",
			Help: "Autosave flushes, by result",
		},
		[]string{"trigger", "result"}, // result: "saved", "skipped", "failed"
	)

	FlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screentime_flush_duration_seconds",
			Help:    "Autosave flush duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Storage metrics
	StorageOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screentime_storage_operations_total",
			Help: "Storage backend operations, by operation and result",
		},
		[]string{"op", "result"},
	)

	DefaultDocumentFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screentime_default_document_fallbacks_total",
			Help: "Loads that fell back to a synthesized default document",
		},
	)

	// Notification metrics
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screentime_notifications_total",
			Help: "Startup notifications delivered, by kind and notifier",
		},
		[]string{"kind", "notifier"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		SamplesTotal,
		ForegroundQueryDuration,
		TrackedApps,
		UsageSecondsAttributed,
		FlushesTotal,
		FlushDuration,
		StorageOperations,
		DefaultDocumentFallbacks,
		NotificationsSent,
	)
}

// Result returns the label value for an operation outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
