package api

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")

	// Tracking
	api.GET("/running-apps", s.handleRunningApps)

	// Usage document
	api.GET("/usage", s.handleGetUsage)
	api.PUT("/usage", s.handleSaveUsage)
	api.GET("/days/:date", s.handleGetDay)
	api.PUT("/days/:date", s.handleSaveDay)
	api.GET("/export", s.handleExport)
	api.POST("/import", s.handleImport)
	api.GET("/data-info", s.handleDataInfo)

	// Settings
	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handleSaveSettings)

	// Autosave
	api.POST("/autosave/flush", s.handleFlush)
	api.GET("/autosave/status", s.handleAutoSaveStatus)
	api.PUT("/autosave/interval", s.handleSetInterval)

	// Summary
	api.GET("/summary/yesterday", s.handleYesterdaySummary)
	api.GET("/events/summary", s.handleLastSummaryEvent)
}
