package summary

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goodtune/screentime/internal/storage"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingNotifier struct{}

func (failingNotifier) Name() string                                { return "failing" }
func (failingNotifier) Notify(ctx context.Context, p Payload) error { return errors.New("no bus") }

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (c *countingNotifier) Name() string { return "counting" }
func (c *countingNotifier) Notify(ctx context.Context, p Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return nil
}

func TestAnnouncerWaitsThenNotifiesOnce(t *testing.T) {
	clock := clockwork.NewFakeClockAt(now)
	g := NewGenerator(staticLoader{docWithYesterday()}, clock)
	recorder := &Recorder{}
	counter := &countingNotifier{}

	a := NewAnnouncer(g, clock, 2*time.Second, zerolog.Nop(), recorder, counter, NewLogNotifier(zerolog.Nop()))

	ctx := context.Background()
	errc := make(chan error, 1)
	go func() { errc <- a.Announce(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	_, ok := recorder.Last()
	assert.False(t, ok, "nothing is sent before the delay")

	clock.Advance(2 * time.Second)
	require.NoError(t, <-errc)

	last, ok := recorder.Last()
	require.True(t, ok)
	assert.Equal(t, KindWelcome, last.Kind)

	// Later calls are no-ops
	assert.Error(t, a.Announce(ctx))
	assert.Equal(t, 1, counter.count)
}

func TestAnnouncerCancelled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := NewGenerator(staticLoader{docWithYesterday()}, clock)
	recorder := &Recorder{}
	a := NewAnnouncer(g, clock, 2*time.Second, zerolog.Nop(), recorder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, a.Announce(ctx), context.Canceled)
	_, ok := recorder.Last()
	assert.False(t, ok)
}

func TestAnnouncerCollectsNotifierErrors(t *testing.T) {
	clock := clockwork.NewFakeClockAt(now)
	g := NewGenerator(staticLoader{docWithYesterday(storage.AppUsageEntry{Name: "Firefox", Seconds: 60})}, clock)
	recorder := &Recorder{}

	a := NewAnnouncer(g, clock, 0, zerolog.Nop(), failingNotifier{}, recorder)

	err := a.Announce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no bus")

	last, ok := recorder.Last()
	require.True(t, ok, "a failing notifier does not block the others")
	assert.Equal(t, KindSummary, last.Kind)
}

func TestDesktopNotifierCommandFailure(t *testing.T) {
	n := &DesktopNotifier{Command: "/nonexistent/notify-send", AppName: "Screen Time"}
	err := n.Notify(context.Background(), BuildPayload(nil))
	assert.Error(t, err)
}
