// Package autosave periodically transfers accumulated usage into storage.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goodtune/screentime/internal/metrics"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultInterval is the default flush cadence
const DefaultInterval = time.Minute

// ErrSaveFailed is returned when the storage engine rejects a flush
var ErrSaveFailed = errors.New("autosave: save failed")

// Flush triggers, used as metric labels
const (
	TriggerInterval = "interval"
	TriggerManual   = "manual"
	TriggerShutdown = "shutdown"
)

// Collector supplies the usage entries to persist
type Collector interface {
	CollectForPersistence() []storage.AppUsageEntry
}

// Store is the part of the storage engine the scheduler needs
type Store interface {
	LoadDocument(ctx context.Context) (*storage.Document, error)
	Save(ctx context.Context, doc *storage.Document) storage.SaveResult
}

// FlushResult describes one flush
type FlushResult struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	Saved        bool      `json:"saved"`
	Skipped      bool      `json:"skipped"`
	Apps         int       `json:"apps"`
	TotalSeconds int64     `json:"totalTime"`
	Path         string    `json:"path,omitempty"`
	Time         time.Time `json:"time"`
}

// Status describes the scheduler state
type Status struct {
	IsActive     bool       `json:"isActive"`
	IntervalMs   int64      `json:"intervalMs"`
	LastSaveTime *time.Time `json:"lastSaveTime"`
	NextSaveTime *time.Time `json:"nextSaveTime"`
}

// Scheduler flushes usage counters into storage on a fixed interval
type Scheduler struct {
	store     Store
	collector Collector
	clock     clockwork.Clock
	logger    zerolog.Logger

	runMu sync.Mutex // serialises Start, Stop and SetInterval

	mu       sync.Mutex
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
	lastSave time.Time
	nextSave time.Time

	flushMu sync.Mutex
	group   singleflight.Group
}

// NewScheduler creates a new autosave scheduler in the idle state
func NewScheduler(store Store, collector Collector, clock clockwork.Clock, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Scheduler{
		store:     store,
		collector: collector,
		clock:     clock,
		interval:  interval,
		logger:    logger.With().Str("component", "autosave").Logger(),
	}
}

// Start begins periodic flushing, replacing any running loop
func (s *Scheduler) Start() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.stopLocked()

	s.mu.Lock()
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stopChan, s.done = stop, done
	interval := s.interval
	s.nextSave = s.clock.Now().Add(interval)
	s.mu.Unlock()

	go s.run(interval, stop, done)

	s.logger.Info().
		Dur("interval", interval).
		Msg("Autosave scheduler started")
}

// Stop stops periodic flushing. It waits for an in-flight tick to finish,
// so no flush fires after Stop returns.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.stopLocked() {
		s.logger.Info().Msg("Autosave scheduler stopped")
	}
}

// stopLocked must be called with runMu held
func (s *Scheduler) stopLocked() bool {
	s.mu.Lock()
	stop, done := s.stopChan, s.done
	s.stopChan, s.done = nil, nil
	s.nextSave = time.Time{}
	s.mu.Unlock()

	if stop == nil {
		return false
	}

	close(stop)
	<-done
	return true
}

// SetInterval changes the flush cadence, restarting a running loop
func (s *Scheduler) SetInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("autosave interval must be positive, got %s", interval)
	}

	s.mu.Lock()
	s.interval = interval
	running := s.stopChan != nil
	s.mu.Unlock()

	s.logger.Info().Dur("interval", interval).Msg("Autosave interval changed")

	if running {
		s.Start()
	}
	return nil
}

// Status returns the current scheduler state
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		IsActive:   s.stopChan != nil,
		IntervalMs: s.interval.Milliseconds(),
	}
	if !s.lastSave.IsZero() {
		last := s.lastSave
		status.LastSaveTime = &last
	}
	if status.IsActive && !s.nextSave.IsZero() {
		next := s.nextSave
		status.NextSaveTime = &next
	}
	return status
}

// Flush saves the current usage counters now
func (s *Scheduler) Flush(ctx context.Context) (FlushResult, error) {
	return s.flush(ctx, TriggerManual)
}

// FinalFlush saves the current usage counters during shutdown
func (s *Scheduler) FinalFlush(ctx context.Context) (FlushResult, error) {
	return s.flush(ctx, TriggerShutdown)
}

// flush coalesces concurrent callers onto a single in-flight flush
func (s *Scheduler) flush(ctx context.Context, trigger string) (FlushResult, error) {
	v, err, shared := s.group.Do("flush", func() (any, error) {
		s.flushMu.Lock()
		defer s.flushMu.Unlock()
		return s.doFlush(ctx, trigger)
	})
	if shared {
		s.logger.Debug().Str("trigger", trigger).Msg("Flush coalesced with in-flight flush")
	}

	result, _ := v.(FlushResult)
	return result, err
}

// doFlush must be called with flushMu held
func (s *Scheduler) doFlush(ctx context.Context, trigger string) (FlushResult, error) {
	start := time.Now()
	defer func() {
		metrics.FlushDuration.Observe(time.Since(start).Seconds())
	}()

	now := s.clock.Now().Round(0)
	result := FlushResult{
		ID:   uuid.NewString(),
		Date: storage.DayKey(now),
		Time: now,
	}
	logger := s.logger.With().Str("flush_id", result.ID).Str("trigger", trigger).Logger()

	doc, err := s.store.LoadDocument(ctx)
	if err != nil {
		// Merging into a placeholder would overwrite the real history
		metrics.FlushesTotal.WithLabelValues(trigger, "failed").Inc()
		logger.Error().Err(err).Msg("Failed to load usage document, not saving")
		return result, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	entries := s.collector.CollectForPersistence()

	if len(entries) == 0 {
		result.Skipped = true
		metrics.FlushesTotal.WithLabelValues(trigger, "skipped").Inc()
		logger.Debug().Msg("No usage to save")
		return result, nil
	}

	doc.SetDay(result.Date, storage.NewDayRecord(result.Date, entries), now)
	rec := doc.Days[result.Date]
	result.Apps = len(rec.Apps)
	result.TotalSeconds = rec.TotalSeconds

	saved := s.store.Save(ctx, doc)
	if !saved.Success {
		metrics.FlushesTotal.WithLabelValues(trigger, "failed").Inc()
		logger.Error().Str("error", saved.Error).Msg("Failed to save usage")
		return result, fmt.Errorf("%w: %s", ErrSaveFailed, saved.Error)
	}

	result.Saved = true
	result.Path = saved.Path

	s.mu.Lock()
	s.lastSave = now
	s.mu.Unlock()

	metrics.FlushesTotal.WithLabelValues(trigger, "saved").Inc()
	logger.Info().
		Str("date", result.Date).
		Int("apps", result.Apps).
		Int64("total_seconds", result.TotalSeconds).
		Msg("Usage saved")

	return result, nil
}

// run is the main scheduler loop
func (s *Scheduler) run(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			s.tick(interval)
		}
	}
}

// tick flushes on behalf of the loop; errors and panics are logged only
func (s *Scheduler) tick(interval time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			metrics.FlushesTotal.WithLabelValues(TriggerInterval, "failed").Inc()
			s.logger.Error().Interface("panic", r).Msg("Recovered from panic during autosave")
		}

		s.mu.Lock()
		if s.stopChan != nil {
			s.nextSave = s.clock.Now().Add(interval)
		}
		s.mu.Unlock()
	}()

	if _, err := s.flush(context.Background(), TriggerInterval); err != nil {
		s.logger.Warn().Err(err).Msg("Scheduled autosave failed, will retry next interval")
	}
}
