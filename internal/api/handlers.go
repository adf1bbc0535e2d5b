package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goodtune/screentime/internal/storage"
	"github.com/labstack/echo/v4"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 16 << 20

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRunningApps(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Apps.RunningApps())
}

func (s *Server) handleGetUsage(c echo.Context) error {
	doc := s.deps.Engine.Load(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    doc,
	})
}

func (s *Server) handleSaveUsage(c echo.Context) error {
	raw, err := readBody(c)
	if err != nil {
		return err
	}

	var doc storage.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid usage document: %v", err))
	}
	if doc.Days == nil {
		doc.Days = make(map[string]storage.DayRecord)
	}

	return saveResponse(c, s.deps.Engine.Save(c.Request().Context(), &doc))
}

func (s *Server) handleGetDay(c echo.Context) error {
	key, err := dateParam(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    s.deps.Engine.Day(c.Request().Context(), key),
	})
}

func (s *Server) handleSaveDay(c echo.Context) error {
	key, err := dateParam(c)
	if err != nil {
		return err
	}

	var rec storage.DayRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid day record")
	}

	return saveResponse(c, s.deps.Engine.SaveDay(c.Request().Context(), key, rec))
}

func (s *Server) handleExport(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Engine.Export(c.Request().Context()))
}

func (s *Server) handleImport(c echo.Context) error {
	raw, err := readBody(c)
	if err != nil {
		return err
	}

	result, err := s.deps.Engine.Import(c.Request().Context(), raw)
	if errors.Is(err, storage.ErrInvalidImport) {
		return c.JSON(http.StatusBadRequest, result)
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	return saveResponse(c, result)
}

func (s *Server) handleDataInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Engine.Info())
}

func (s *Server) handleGetSettings(c echo.Context) error {
	settings := s.deps.Engine.Settings(c.Request().Context())
	if s.deps.AutoStart != nil {
		settings.AutoStart = s.deps.AutoStart()
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"settings": settings,
	})
}

func (s *Server) handleSaveSettings(c echo.Context) error {
	var patch storage.SettingsPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid settings")
	}

	return saveResponse(c, s.deps.Engine.SaveSettings(c.Request().Context(), patch))
}

func (s *Server) handleFlush(c echo.Context) error {
	result, err := s.deps.Scheduler.Flush(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Manual save failed")
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
			"result":  result,
		})
	}

	message := "Usage data saved successfully"
	if result.Skipped {
		message = "No usage to save"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"result":  result,
	})
}

func (s *Server) handleAutoSaveStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Scheduler.Status())
}

type intervalRequest struct {
	IntervalMs int64  `json:"intervalMs"`
	Interval   string `json:"interval"`
}

func (s *Server) handleSetInterval(c echo.Context) error {
	var req intervalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid interval")
	}

	interval := time.Duration(req.IntervalMs) * time.Millisecond
	if req.Interval != "" {
		d, err := time.ParseDuration(req.Interval)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid interval %q", req.Interval))
		}
		interval = d
	}

	if err := s.deps.Scheduler.SetInterval(interval); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, s.deps.Scheduler.Status())
}

func (s *Server) handleYesterdaySummary(c echo.Context) error {
	sum := s.deps.Summaries.YesterdaySummary(c.Request().Context())
	if sum == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, sum)
}

func (s *Server) handleLastSummaryEvent(c echo.Context) error {
	if s.deps.Events == nil {
		return c.NoContent(http.StatusNoContent)
	}
	payload, ok := s.deps.Events.Last()
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, payload)
}

func dateParam(c echo.Context) (string, error) {
	key := c.Param("date")
	if _, err := storage.ParseDayKey(key); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return key, nil
}

func readBody(c echo.Context) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	if len(raw) > maxBodyBytes {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	return raw, nil
}

func saveResponse(c echo.Context, result storage.SaveResult) error {
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, result)
}
