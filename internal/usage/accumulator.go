package usage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goodtune/screentime/internal/metrics"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/goodtune/screentime/internal/window"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	// DefaultStaleAfter is how long an application may go unobserved before
	// it is dropped from the tracked set
	DefaultStaleAfter = 5 * time.Minute

	// DefaultQueryTimeout bounds a single foreground query
	DefaultQueryTimeout = 2 * time.Second

	// DefaultMaxResults caps the number of applications reported
	DefaultMaxResults = 15

	// DefaultMaxTracked bounds the tracked application cache
	DefaultMaxTracked = 512
)

// Config holds accumulator configuration
type Config struct {
	StaleAfter   time.Duration
	QueryTimeout time.Duration
	MaxResults   int
	MaxTracked   int
	Aliases      Aliases
}

// Accumulator samples the foreground window and accumulates per-process
// foreground seconds.
//
// Each sampling interval is credited to the process that was in the
// foreground when the interval started.
type Accumulator struct {
	provider window.Provider
	self     *SelfMatcher
	clock    clockwork.Clock
	config   Config
	logger   zerolog.Logger

	mu       sync.Mutex
	apps     *lru.Cache[appKey, *TrackedApplication]
	counters map[int]int64  // pid -> seconds
	names    map[int]string // pid -> last display name
	labels   map[int]string // pid -> metrics label, never a window title
	lastTick time.Time
	current  *window.Descriptor // non-self foreground at lastTick, nil if none
}

// NewAccumulator creates a new usage accumulator
func NewAccumulator(provider window.Provider, self *SelfMatcher, clock clockwork.Clock, config Config, logger zerolog.Logger) (*Accumulator, error) {
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultStaleAfter
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = DefaultQueryTimeout
	}
	if config.MaxResults <= 0 {
		config.MaxResults = DefaultMaxResults
	}
	if config.MaxTracked <= 0 {
		config.MaxTracked = DefaultMaxTracked
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	apps, err := lru.New[appKey, *TrackedApplication](config.MaxTracked)
	if err != nil {
		return nil, fmt.Errorf("failed to create application cache: %w", err)
	}

	return &Accumulator{
		provider: provider,
		self:     self,
		clock:    clock,
		config:   config,
		logger:   logger.With().Str("component", "usage-accumulator").Logger(),
		apps:     apps,
		counters: make(map[int]int64),
		names:    make(map[int]string),
		labels:   make(map[int]string),
		lastTick: clock.Now(),
	}, nil
}

// Sample performs one sampling tick and returns the tracked applications.
// A failed foreground query changes nothing and yields a degraded result.
func (a *Accumulator) Sample(ctx context.Context) RunningApps {
	qctx, cancel := context.WithTimeout(ctx, a.config.QueryTimeout)
	start := time.Now()
	fg, err := a.provider.Foreground(qctx)
	cancel()
	metrics.ForegroundQueryDuration.Observe(time.Since(start).Seconds())

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()

	if errors.Is(err, window.ErrNoForeground) {
		// Nothing focused (locked screen, empty desktop): the interval
		// belongs to nobody
		metrics.SamplesTotal.WithLabelValues("idle").Inc()
		a.logger.Debug().Msg("No foreground window, not counting")

		a.lastTick = now
		a.current = nil
		a.evictLocked(now)
		return a.viewLocked(now)
	}

	if err != nil {
		metrics.SamplesTotal.WithLabelValues("degraded").Inc()
		a.logger.Debug().Err(err).Msg("Foreground query failed")

		a.evictLocked(now)
		result := a.viewLocked(now)
		result.Success = false
		result.Degraded = true
		result.Error = err.Error()
		return result
	}

	elapsed := now.Sub(a.lastTick)
	a.lastTick = now

	if a.self.Match(fg) {
		metrics.SamplesTotal.WithLabelValues("self").Inc()
		a.logger.Debug().Str("title", fg.Title).Msg("Own window in foreground, not counting")

		a.current = nil
		a.evictLocked(now)
		return a.viewLocked(now)
	}

	metrics.SamplesTotal.WithLabelValues("tracked").Inc()

	// Credit the interval to whoever held the foreground when it started
	if a.current != nil {
		a.creditLocked(a.current.PID, elapsed)
	}

	a.upsertLocked(fg, now)
	a.current = fg

	a.evictLocked(now)
	return a.viewLocked(now)
}

// RunningApps returns the tracked applications without sampling.
func (a *Accumulator) RunningApps() RunningApps {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	a.evictLocked(now)
	return a.viewLocked(now)
}

// CollectForPersistence returns today's usage entries, one per display name,
// sorted by seconds descending. Counters are not reset.
func (a *Accumulator) CollectForPersistence() []storage.AppUsageEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	totals := make(map[string]int64)
	for pid, seconds := range a.counters {
		if seconds <= 0 {
			continue
		}
		totals[a.names[pid]] += seconds
	}

	entries := make([]storage.AppUsageEntry, 0, len(totals))
	for name, seconds := range totals {
		entries = append(entries, storage.AppUsageEntry{
			Name:     name,
			Category: storage.DefaultCategory,
			Seconds:  seconds,
			Color:    storage.DefaultColor,
			Icon:     storage.DefaultIcon,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Seconds != entries[j].Seconds {
			return entries[i].Seconds > entries[j].Seconds
		}
		return entries[i].Name < entries[j].Name
	})

	return entries
}

// creditLocked adds whole elapsed seconds to pid (must be called with lock held)
func (a *Accumulator) creditLocked(pid int, elapsed time.Duration) {
	seconds := int64(elapsed / time.Second)
	if seconds <= 0 {
		return
	}

	a.counters[pid] += seconds
	metrics.UsageSecondsAttributed.WithLabelValues(a.labels[pid]).Add(float64(seconds))

	a.logger.Debug().
		Int("pid", pid).
		Int64("seconds", seconds).
		Int64("total_seconds", a.counters[pid]).
		Msg("Usage credited")
}

// upsertLocked records an observation of fg (must be called with lock held)
func (a *Accumulator) upsertLocked(fg *window.Descriptor, now time.Time) {
	key := appKey{pid: fg.PID, name: fg.Name()}

	app, ok := a.apps.Get(key)
	if !ok {
		app = &TrackedApplication{
			PID:       fg.PID,
			Name:      fg.Name(),
			FirstSeen: now,
		}
		a.logger.Debug().
			Int("pid", fg.PID).
			Str("name", app.Name).
			Msg("Tracking new application")
	}

	app.OwnerName = fg.OwnerName
	app.WindowTitle = fg.Title
	app.Path = fg.Path
	app.LastSeen = now
	a.apps.Add(key, app)

	a.names[fg.PID] = a.config.Aliases.DisplayName(app.Name)
	a.labels[fg.PID] = a.metricLabel(fg)
}

// metricLabel names fg by its owner or executable. Window titles are
// unbounded and must not become label values.
func (a *Accumulator) metricLabel(fg *window.Descriptor) string {
	switch {
	case fg.OwnerName != "":
		return a.config.Aliases.DisplayName(fg.OwnerName)
	case fg.Path != "":
		return a.config.Aliases.DisplayName(filepath.Base(fg.Path))
	default:
		return UnknownApp
	}
}

// evictLocked drops applications not seen within StaleAfter (must be called with lock held)
func (a *Accumulator) evictLocked(now time.Time) {
	for _, key := range a.apps.Keys() {
		app, ok := a.apps.Peek(key)
		if !ok {
			continue
		}
		if now.Sub(app.LastSeen) >= a.config.StaleAfter {
			a.apps.Remove(key)
			a.logger.Debug().
				Int("pid", app.PID).
				Str("name", app.Name).
				Msg("Evicted stale application")
		}
	}
	metrics.TrackedApps.Set(float64(a.apps.Len()))
}

// viewLocked renders the tracked applications (must be called with lock held)
func (a *Accumulator) viewLocked(now time.Time) RunningApps {
	apps := make([]AppView, 0, a.apps.Len())

	for _, app := range a.apps.Values() {
		desc := &window.Descriptor{OwnerName: app.OwnerName, Title: app.WindowTitle, Path: app.Path, PID: app.PID}
		if a.self.Match(desc) {
			continue
		}

		seconds := a.counters[app.PID]
		apps = append(apps, AppView{
			Name:               a.config.Aliases.DisplayName(app.Name),
			PID:                app.PID,
			WindowTitle:        app.WindowTitle,
			FirstSeen:          app.FirstSeen,
			LastSeen:           app.LastSeen,
			UsageSeconds:       seconds,
			FormattedUsageTime: FormatDuration(seconds),
			IsActive:           a.current != nil && a.current.PID == app.PID,
		})
	}

	sort.SliceStable(apps, func(i, j int) bool {
		return apps[i].LastSeen.After(apps[j].LastSeen)
	})
	if len(apps) > a.config.MaxResults {
		apps = apps[:a.config.MaxResults]
	}

	return RunningApps{
		Success:   true,
		Apps:      apps,
		Timestamp: now,
	}
}
