package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goodtune/screentime/internal/config"
	"github.com/goodtune/screentime/internal/systemd"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Storage: config.StorageConfig{
			Type:       "file",
			Path:       filepath.Join(dir, config.DataFileName),
			BackupPath: filepath.Join(dir, config.BackupFileName),
		},
		Tracking: config.TrackingConfig{
			SampleInterval: "1h",
			StaleAfter:     "5m",
			QueryTimeout:   "1s",
			MaxResults:     15,
			MaxTracked:     16,
		},
		AutoSave: config.AutoSaveConfig{
			Enabled:         true,
			Interval:        "1h",
			ShutdownTimeout: "1s",
		},
		Notifications: config.NotificationsConfig{
			StartupSummary: true,
			StartupDelay:   "1h",
		},
	}
}

func TestDaemonStartShutdown(t *testing.T) {
	cfg := testConfig(t)

	d, err := newDaemon(cfg, zerolog.Nop(), &systemd.Listeners{}, nil)
	require.NoError(t, err)
	assert.Nil(t, d.api)
	assert.Nil(t, d.metrics)

	require.NoError(t, d.start())
	assert.True(t, d.scheduler.Status().IsActive)

	d.shutdown()
	d.shutdown()

	assert.False(t, d.scheduler.Status().IsActive)

	// Nothing was accumulated, so nothing was written
	_, err = os.Stat(cfg.Storage.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestDaemonShutdownWithoutStart(t *testing.T) {
	d, err := newDaemon(testConfig(t), zerolog.Nop(), &systemd.Listeners{}, nil)
	require.NoError(t, err)

	assert.NotPanics(t, d.shutdown)
}

func TestNewDaemonRejectsUnknownStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Type = "sqlite"

	_, err := newDaemon(cfg, zerolog.Nop(), &systemd.Listeners{}, nil)
	assert.ErrorContains(t, err, "unknown storage type")
}
