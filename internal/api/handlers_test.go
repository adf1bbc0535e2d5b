package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goodtune/screentime/internal/autosave"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/goodtune/screentime/internal/storage/file"
	"github.com/goodtune/screentime/internal/summary"
	"github.com/goodtune/screentime/internal/usage"
	"github.com/goodtune/screentime/internal/window"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server    *Server
	engine    *storage.Engine
	acc       *usage.Accumulator
	scheduler *autosave.Scheduler
	events    *summary.Recorder
	clock     *clockwork.FakeClock
	fg        *window.Descriptor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		clock:  clockwork.NewFakeClockAt(time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)),
		events: &summary.Recorder{},
		fg:     &window.Descriptor{OwnerName: "firefox", PID: 100, Title: "Mozilla Firefox"},
	}

	backend, err := file.Open(filepath.Join(t.TempDir(), "screen-time-data.json"), "")
	require.NoError(t, err)
	env.engine = storage.NewEngine(backend, env.clock, zerolog.Nop())

	provider := window.ProviderFunc(func(ctx context.Context) (*window.Descriptor, error) {
		d := *env.fg
		return &d, nil
	})
	env.acc, err = usage.NewAccumulator(provider, usage.NewSelfMatcher("", nil), env.clock, usage.Config{}, zerolog.Nop())
	require.NoError(t, err)

	env.scheduler = autosave.NewScheduler(env.engine, env.acc, env.clock, time.Minute, zerolog.Nop())
	t.Cleanup(env.scheduler.Stop)

	env.server = NewServer("127.0.0.1:0", Deps{
		Apps:      env.acc,
		Engine:    env.engine,
		Scheduler: env.scheduler,
		Summaries: summary.NewGenerator(env.engine, env.clock),
		Events:    env.events,
	}, zerolog.Nop())

	return env
}

func (env *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandleLiveness(t *testing.T) {
	env := newTestEnv(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, env.server.handleLiveness(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunningApps(t *testing.T) {
	env := newTestEnv(t)

	env.acc.Sample(context.Background())
	env.clock.Advance(65 * time.Second)
	env.fg = &window.Descriptor{OwnerName: "Code", PID: 200}
	env.acc.Sample(context.Background())

	rec := env.do(t, http.MethodGet, "/api/running-apps", "")
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[usage.RunningApps](t, rec)
	assert.True(t, result.Success)
	require.Len(t, result.Apps, 2)
	assert.Equal(t, "Code", result.Apps[0].Name)
	assert.True(t, result.Apps[0].IsActive)
	assert.Equal(t, "firefox", result.Apps[1].Name)
	assert.Equal(t, int64(65), result.Apps[1].UsageSeconds)
	assert.Equal(t, "1m 5s", result.Apps[1].FormattedUsageTime)
}

func TestGetUsageReturnsDefaults(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/usage", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Success bool             `json:"success"`
		Data    storage.Document `json:"data"`
	}](t, rec)
	assert.True(t, body.Success)
	assert.Len(t, body.Data.Days, storage.SeedDays)
}

func TestSaveUsage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/usage", `{"days":{},"settings":{"theme":"light"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[storage.SaveResult](t, rec).Success)
	assert.Equal(t, "light", env.engine.Settings(context.Background()).Theme)

	rec = env.do(t, http.MethodPut, "/api/usage", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDayRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/days/2024-03-20", `{"apps":[{"name":"Firefox","time":90},{"name":"Terminal","time":30}],"totalTime":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/days/2024-03-20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Success bool              `json:"success"`
		Data    storage.DayRecord `json:"data"`
	}](t, rec)
	assert.Equal(t, int64(120), body.Data.TotalSeconds)
	assert.Equal(t, "2024-03-20", body.Data.Date)

	rec = env.do(t, http.MethodGet, "/api/days/1999-12-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"apps":[],"totalTime":0,"date":"1999-12-31"}}`, rec.Body.String())
}

func TestDayInvalidDate(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{"/api/days/yesterday", "/api/days/2024-13-01", "/api/days/20240301"} {
		rec := env.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestExportImport(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	exported := decode[struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}](t, rec)
	require.True(t, exported.Success)

	rec = env.do(t, http.MethodPost, "/api/import", string(exported.Data))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/import", `{"days":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	result := decode[storage.SaveResult](t, rec)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "settings")
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/settings", `{"theme":"light","notifications":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"settings":{"autoStart":false,"notifications":false,"minimizeToTray":true,"theme":"light"}}`, rec.Body.String())

	env.server.deps.AutoStart = func() bool { return true }
	rec = env.do(t, http.MethodGet, "/api/settings", "")
	assert.Contains(t, rec.Body.String(), `"autoStart":true`)
}

func TestDataInfo(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/data-info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[storage.DataInfo](t, rec)
	assert.Equal(t, "file", info.Backend)
	assert.Equal(t, "screen-time-data-backup.json", filepath.Base(info.BackupPath))
}

func TestFlushAndStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/autosave/flush", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No usage to save")

	env.acc.Sample(context.Background())
	env.clock.Advance(30 * time.Second)
	env.acc.Sample(context.Background())

	rec = env.do(t, http.MethodPost, "/api/autosave/flush", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Usage data saved successfully")

	day := env.engine.Day(context.Background(), "2024-03-15")
	require.Len(t, day.Apps, 1)
	assert.Equal(t, int64(30), day.TotalSeconds)

	rec = env.do(t, http.MethodGet, "/api/autosave/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[autosave.Status](t, rec)
	assert.False(t, status.IsActive)
	assert.Equal(t, int64(60000), status.IntervalMs)
	require.NotNil(t, status.LastSaveTime)
}

func TestSetInterval(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/autosave/interval", `{"interval":"30s"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(30000), decode[autosave.Status](t, rec).IntervalMs)

	rec = env.do(t, http.MethodPut, "/api/autosave/interval", `{"intervalMs":15000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(15000), decode[autosave.Status](t, rec).IntervalMs)

	rec = env.do(t, http.MethodPut, "/api/autosave/interval", `{"intervalMs":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/autosave/interval", `{"interval":"often"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestYesterdaySummary(t *testing.T) {
	env := newTestEnv(t)

	// The seeded default document has data for yesterday
	rec := env.do(t, http.MethodGet, "/api/summary/yesterday", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[summary.Summary](t, rec)
	assert.Equal(t, "2024-03-14", sum.Date)
	assert.Len(t, sum.TopApps, 3)

	require.True(t, env.engine.Save(context.Background(), &storage.Document{
		Days:     map[string]storage.DayRecord{},
		Settings: storage.DefaultSettings(),
	}).Success)
	rec = env.do(t, http.MethodGet, "/api/summary/yesterday", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLastSummaryEvent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/events/summary", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	require.NoError(t, env.events.Notify(context.Background(), summary.BuildPayload(nil)))
	rec = env.do(t, http.MethodGet, "/api/events/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, summary.KindWelcome, decode[summary.Payload](t, rec).Kind)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.acc.Sample(context.Background())
	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "screentime_samples_total")
}

func TestStartStop(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.server.Start())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, env.server.Stop(ctx))
}
