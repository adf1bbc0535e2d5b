// Package summary derives the yesterday usage summary and announces it.
package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goodtune/screentime/internal/storage"
	"github.com/goodtune/screentime/internal/usage"
	"github.com/jonboulle/clockwork"
)

// TopAppCount is the number of applications listed in a summary.
const TopAppCount = 3

// TopApp is one of the most used applications of a day.
type TopApp struct {
	Name    string `json:"name"`
	Seconds int64  `json:"time"`
	Icon    string `json:"icon"`
}

// Summary describes one day of usage.
type Summary struct {
	Date         string   `json:"date"`
	TotalSeconds int64    `json:"totalTime"`
	TotalMinutes int64    `json:"totalMinutes"`
	TimeText     string   `json:"timeText"`
	TopApps      []TopApp `json:"topApps"`
	AppCount     int      `json:"appCount"`
}

// Yesterday summarises the day before now. It returns nil when that day
// has no recorded usage. doc is not modified.
func Yesterday(doc *storage.Document, now time.Time) *Summary {
	if doc == nil {
		return nil
	}
	return ForDay(doc, storage.DayKey(now.AddDate(0, 0, -1)))
}

// ForDay summarises the day stored under key.
func ForDay(doc *storage.Document, key string) *Summary {
	rec, ok := doc.Days[key]
	if !ok || len(rec.Apps) == 0 {
		return nil
	}

	apps := make([]storage.AppUsageEntry, len(rec.Apps))
	copy(apps, rec.Apps)
	sort.SliceStable(apps, func(i, j int) bool {
		return apps[i].Seconds > apps[j].Seconds
	})

	var total int64
	for _, app := range apps {
		total += app.Seconds
	}

	top := make([]TopApp, 0, TopAppCount)
	for _, app := range apps[:min(TopAppCount, len(apps))] {
		icon := app.Icon
		if icon == "" {
			icon = storage.DefaultIcon
		}
		top = append(top, TopApp{Name: app.Name, Seconds: app.Seconds, Icon: icon})
	}

	return &Summary{
		Date:         key,
		TotalSeconds: total,
		TotalMinutes: total / 60,
		TimeText:     usage.FormatHoursMinutes(total),
		TopApps:      top,
		AppCount:     len(rec.Apps),
	}
}

// Payload kinds
const (
	KindWelcome = "welcome"
	KindSummary = "summary"
)

// Payload is the content of a summary notification.
type Payload struct {
	Kind    string    `json:"kind"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	Summary *Summary  `json:"summary,omitempty"`
	Time    time.Time `json:"time"`
}

// BuildPayload renders s, or the welcome message when s is nil.
func BuildPayload(s *Summary) Payload {
	if s == nil {
		return Payload{
			Kind:  KindWelcome,
			Title: "Welcome to Screen Time",
			Body: "Screen time tracking has started.\n" +
				"Your usage is recorded from today and yesterday's summary will be shown tomorrow.",
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total: %s\nTop apps:", s.TimeText)
	for _, app := range s.TopApps {
		fmt.Fprintf(&b, "\n%s %s %s", app.Icon, app.Name, usage.FormatHoursMinutes(app.Seconds))
	}

	return Payload{
		Kind:    KindSummary,
		Title:   "Yesterday's screen time",
		Body:    b.String(),
		Summary: s,
	}
}

// Generator computes summaries from the stored document.
type Generator struct {
	loader storage.Loader
	clock  clockwork.Clock
}

// NewGenerator creates a summary generator
func NewGenerator(loader storage.Loader, clock clockwork.Clock) *Generator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Generator{loader: loader, clock: clock}
}

// YesterdaySummary summarises yesterday, or returns nil.
func (g *Generator) YesterdaySummary(ctx context.Context) *Summary {
	return Yesterday(g.loader.Load(ctx), g.clock.Now())
}

// Day summarises the day stored under key, or returns nil.
func (g *Generator) Day(ctx context.Context, key string) *Summary {
	return ForDay(g.loader.Load(ctx), key)
}

// Payload builds the notification for yesterday.
func (g *Generator) Payload(ctx context.Context) Payload {
	p := BuildPayload(g.YesterdaySummary(ctx))
	p.Time = g.clock.Now()
	return p
}
