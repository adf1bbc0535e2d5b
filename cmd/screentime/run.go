package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/goodtune/screentime/internal/api"
	"github.com/goodtune/screentime/internal/autosave"
	"github.com/goodtune/screentime/internal/config"
	"github.com/goodtune/screentime/internal/metrics"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/goodtune/screentime/internal/summary"
	"github.com/goodtune/screentime/internal/systemd"
	"github.com/goodtune/screentime/internal/usage"
	"github.com/goodtune/screentime/internal/window"
	"github.com/jonboulle/clockwork"
	"github.com/kardianos/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the usage tracker",
	Long: `Run the foreground sampler, the autosave scheduler and the command API
until interrupted. SIGHUP saves the current usage immediately.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting screentime")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	prg := &program{logger: logger}
	svc, err := newService(prg)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	d, err := newDaemon(cfg, logger, sdListeners, func() bool { return serviceInstalled(svc) })
	if err != nil {
		return err
	}
	prg.daemon = d

	// Started by the service manager
	if !service.Interactive() {
		return svc.Run()
	}

	if err := d.start(); err != nil {
		d.shutdown()
		return err
	}

	// Notify systemd that we're ready
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd of readiness")
	}

	logger.Info().Msg("screentime startup complete")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			logger.Info().Msg("Received SIGHUP, saving current usage...")
			d.flush()
			continue
		}
		break
	}

	logger.Info().Msg("Shutdown signal received, gracefully stopping...")

	// Notify systemd that we're stopping
	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd of stopping")
	}

	d.shutdown()

	logger.Info().Msg("screentime stopped")
	return nil
}

// daemon owns every long-running component and their start/stop order
type daemon struct {
	cfg    *config.Config
	logger zerolog.Logger

	engine    *storage.Engine
	sampler   *usage.Sampler
	scheduler *autosave.Scheduler
	announcer *summary.Announcer
	api       *api.Server
	metrics   *metrics.Server

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newDaemon(cfg *config.Config, logger zerolog.Logger, listeners *systemd.Listeners, autoStart func() bool) (*daemon, error) {
	clock := clockwork.NewRealClock()

	// Initialize storage
	backend, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	engine := storage.NewEngine(backend, clock, logger)

	info := engine.Info()
	logger.Info().
		Str("backend", info.Backend).
		Str("path", info.DataPath).
		Str("backup", info.BackupPath).
		Msg("Storage initialized")

	// Initialize usage accumulator
	exe, err := os.Executable()
	if err != nil {
		logger.Warn().Err(err).Msg("Could not resolve own executable, matching own windows by name only")
	}

	acc, err := usage.NewAccumulator(
		window.Default(),
		usage.NewSelfMatcher(exe, cfg.Tracking.SelfNames),
		clock,
		usage.Config{
			StaleAfter:   parseDuration(cfg.Tracking.StaleAfter, usage.DefaultStaleAfter),
			QueryTimeout: parseDuration(cfg.Tracking.QueryTimeout, usage.DefaultQueryTimeout),
			MaxResults:   cfg.Tracking.MaxResults,
			MaxTracked:   cfg.Tracking.MaxTracked,
			Aliases:      usage.NewAliases(cfg.Tracking.Aliases),
		},
		logger,
	)
	if err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("failed to initialize usage accumulator: %w", err)
	}

	sampleInterval := parseDuration(cfg.Tracking.SampleInterval, 5*time.Second)
	sampler := usage.NewSampler(acc, clock, sampleInterval, logger)

	logger.Info().Dur("sample_interval", sampleInterval).Msg("Usage accumulator initialized")

	// Initialize autosave scheduler
	scheduler := autosave.NewScheduler(engine, acc, clock, parseDuration(cfg.AutoSave.Interval, autosave.DefaultInterval), logger)

	// Initialize summary notifications
	generator := summary.NewGenerator(engine, clock)
	events := &summary.Recorder{}
	notifiers := []summary.Notifier{summary.NewLogNotifier(logger), events}
	if cfg.Notifications.Desktop {
		notifiers = append(notifiers, summary.NewDesktopNotifier())
	}
	announcer := summary.NewAnnouncer(generator, clock, parseDuration(cfg.Notifications.StartupDelay, 2*time.Second), logger, notifiers...)

	d := &daemon{
		cfg:       cfg,
		logger:    logger,
		engine:    engine,
		sampler:   sampler,
		scheduler: scheduler,
		announcer: announcer,
	}

	// Initialize command API
	if cfg.API.Enabled || listeners.API != nil {
		apiAddr := fmt.Sprintf("%s:%d", cfg.API.BindAddress, cfg.API.Port)
		d.api = api.NewServer(apiAddr, api.Deps{
			Apps:      acc,
			Engine:    engine,
			Scheduler: scheduler,
			Summaries: generator,
			Events:    events,
			AutoStart: autoStart,
		}, logger)
		if listeners.API != nil {
			d.api.SetListener(listeners.API)
		}
	}

	// Initialize metrics server
	if cfg.Metrics.Enabled || listeners.Metrics != nil {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Metrics.BindAddress, cfg.Metrics.Port)
		d.metrics = metrics.NewServer(metricsAddr, logger)
		if listeners.Metrics != nil {
			d.metrics.SetListener(listeners.Metrics)
		}
	}

	return d, nil
}

// start launches every component. It does not block.
func (d *daemon) start() error {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	if d.api != nil {
		if err := d.api.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
	}

	if d.metrics != nil {
		if err := d.metrics.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sampler.Run(ctx)
	}()

	if d.cfg.AutoSave.Enabled {
		d.scheduler.Start()
	} else {
		d.logger.Info().Msg("Autosave disabled, usage is saved on shutdown and on request")
	}

	if d.cfg.Notifications.StartupSummary {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.announcer.Announce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Warn().Err(err).Msg("Startup summary was not fully delivered")
			}
		}()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		systemd.RunWatchdog(ctx, d.logger)
	}()

	return nil
}

// flush saves the current usage on request
func (d *daemon) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), d.shutdownTimeout())
	defer cancel()

	result, err := d.scheduler.Flush(ctx)
	if err != nil {
		d.logger.Error().Err(err).Msg("Manual save failed")
		return
	}
	d.logger.Info().
		Str("flush_id", result.ID).
		Int("apps", result.Apps).
		Bool("skipped", result.Skipped).
		Msg("Manual save complete")
}

// shutdown stops the sampler and the scheduler, saves what was accumulated
// and releases the listeners and the storage backend. Safe to call more
// than once.
func (d *daemon) shutdown() {
	d.stopOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		d.wg.Wait()

		d.scheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), d.shutdownTimeout())
		defer cancel()

		result, err := d.scheduler.FinalFlush(ctx)
		if err != nil {
			d.logger.Error().Err(err).Msg("Final save failed, usage since the last save is lost")
		} else {
			d.logger.Info().
				Str("flush_id", result.ID).
				Int("apps", result.Apps).
				Int64("total_seconds", result.TotalSeconds).
				Msg("Final save complete")
		}

		if d.api != nil {
			if err := d.api.Stop(ctx); err != nil {
				d.logger.Error().Err(err).Msg("Error stopping API server")
			}
		}

		if d.metrics != nil {
			if err := d.metrics.Stop(); err != nil {
				d.logger.Error().Err(err).Msg("Error stopping metrics server")
			}
		}

		if err := d.engine.Close(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to close storage")
		}
	})
}

func (d *daemon) shutdownTimeout() time.Duration {
	return parseDuration(d.cfg.AutoSave.ShutdownTimeout, 5*time.Second)
}
