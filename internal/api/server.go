// Package api serves the local command API used by the report UI and scripts.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/goodtune/screentime/internal/autosave"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/goodtune/screentime/internal/summary"
	"github.com/goodtune/screentime/internal/usage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// RunningAppsSource reports tracked applications without sampling
type RunningAppsSource interface {
	RunningApps() usage.RunningApps
}

// Engine is the storage surface exposed by the API
type Engine interface {
	Load(ctx context.Context) *storage.Document
	Save(ctx context.Context, doc *storage.Document) storage.SaveResult
	Day(ctx context.Context, key string) storage.DayRecord
	SaveDay(ctx context.Context, key string, rec storage.DayRecord) storage.SaveResult
	Export(ctx context.Context) storage.ExportResult
	Import(ctx context.Context, raw []byte) (storage.SaveResult, error)
	Settings(ctx context.Context) storage.Settings
	SaveSettings(ctx context.Context, patch storage.SettingsPatch) storage.SaveResult
	Info() storage.DataInfo
}

// Scheduler is the autosave surface exposed by the API
type Scheduler interface {
	Flush(ctx context.Context) (autosave.FlushResult, error)
	Status() autosave.Status
	SetInterval(interval time.Duration) error
}

// Summaries computes usage summaries
type Summaries interface {
	YesterdaySummary(ctx context.Context) *summary.Summary
}

// Deps are the components served by the API
type Deps struct {
	Apps      RunningAppsSource
	Engine    Engine
	Scheduler Scheduler
	Summaries Summaries
	Events    *summary.Recorder

	// AutoStart reports whether the service is installed to start at login.
	// Optional.
	AutoStart func() bool
}

// Server is the command API HTTP server
type Server struct {
	echo     *echo.Echo
	server   *http.Server
	deps     Deps
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new API server
func NewServer(addr string, deps Deps, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		deps:   deps,
		logger: logger.With().Str("component", "api").Logger(),
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Debug()
			if v.Error != nil {
				event = s.logger.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("API request")
			return nil
		},
	}))

	s.registerRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the API server
func (s *Server) Start() error {
	ln := s.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", s.server.Addr)
		if err != nil {
			return err
		}
	} else {
		s.logger.Debug().Msg("Using systemd socket-activated API listener")
	}

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting API server")
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
	return nil
}

// Stop gracefully stops the API server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping API server")
	return s.server.Shutdown(ctx)
}
