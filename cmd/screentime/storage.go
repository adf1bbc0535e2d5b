package main

import (
	"fmt"
	"os"

	"github.com/goodtune/screentime/internal/config"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/goodtune/screentime/internal/storage/file"
	"github.com/goodtune/screentime/internal/storage/redis"
	"github.com/jonboulle/clockwork"
)

// openStorage opens the configured document backend
func openStorage(cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Type {
	case "redis":
		return redis.Open(cfg.Redis)
	case "file", "":
		return file.Open(cfg.Path, cfg.BackupPath)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// openEngine loads configuration and opens the storage engine for the
// one-shot commands.
func openEngine() (*storage.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	backend, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// One-shot commands only log problems, and never onto stdout
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "text"}, os.Stderr)

	return storage.NewEngine(backend, clockwork.NewRealClock(), logger), nil
}

// closeEngine closes the engine, reporting but not failing on errors
func closeEngine(engine *storage.Engine) {
	if err := engine.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close storage: %v\n", err)
	}
}
