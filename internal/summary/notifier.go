package summary

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/goodtune/screentime/internal/metrics"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Notifier delivers a summary payload.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, p Payload) error
}

// LogNotifier writes payloads to the log.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that logs payloads
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "summary").Logger()}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(ctx context.Context, p Payload) error {
	event := n.logger.Info().Str("kind", p.Kind).Str("title", p.Title)
	if p.Summary != nil {
		event = event.
			Str("date", p.Summary.Date).
			Str("total", p.Summary.TimeText).
			Int("apps", p.Summary.AppCount)
	}
	event.Msg(p.Body)
	return nil
}

// DesktopNotifier shows payloads through notify-send.
type DesktopNotifier struct {
	Command string
	AppName string
}

// NewDesktopNotifier creates a notifier using notify-send
func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{Command: "notify-send", AppName: "Screen Time"}
}

func (n *DesktopNotifier) Name() string { return "desktop" }

func (n *DesktopNotifier) Notify(ctx context.Context, p Payload) error {
	cmd := exec.CommandContext(ctx, n.Command, "--app-name", n.AppName, p.Title, p.Body)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", n.Command, err, out)
	}
	return nil
}

// Recorder keeps the last payload it was given.
type Recorder struct {
	mu   sync.RWMutex
	last *Payload
}

func (r *Recorder) Name() string { return "api" }

func (r *Recorder) Notify(ctx context.Context, p Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &p
	return nil
}

// Last returns the last recorded payload, if any.
func (r *Recorder) Last() (Payload, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return Payload{}, false
	}
	return *r.last, true
}

// Announcer sends the startup summary once.
type Announcer struct {
	generator *Generator
	notifiers []Notifier
	clock     clockwork.Clock
	delay     time.Duration
	logger    zerolog.Logger
	once      sync.Once
}

// NewAnnouncer creates an announcer that waits delay before notifying
func NewAnnouncer(generator *Generator, clock clockwork.Clock, delay time.Duration, logger zerolog.Logger, notifiers ...Notifier) *Announcer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Announcer{
		generator: generator,
		notifiers: notifiers,
		clock:     clock,
		delay:     delay,
		logger:    logger.With().Str("component", "announcer").Logger(),
	}
}

// Announce waits for the startup delay and then delivers the payload to
// every notifier. Only the first call does anything.
func (a *Announcer) Announce(ctx context.Context) error {
	err := errors.New("summary already announced")
	a.once.Do(func() {
		err = a.announce(ctx)
	})
	return err
}

func (a *Announcer) announce(ctx context.Context) error {
	if a.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.clock.After(a.delay):
		}
	}

	payload := a.generator.Payload(ctx)

	var errs []error
	for _, n := range a.notifiers {
		if err := n.Notify(ctx, payload); err != nil {
			a.logger.Warn().Err(err).Str("notifier", n.Name()).Msg("Failed to deliver summary notification")
			errs = append(errs, err)
			continue
		}
		metrics.NotificationsSent.WithLabelValues(payload.Kind, n.Name()).Inc()
	}

	a.logger.Debug().Str("kind", payload.Kind).Int("notifiers", len(a.notifiers)).Msg("Startup summary announced")
	return errors.Join(errs...)
}
