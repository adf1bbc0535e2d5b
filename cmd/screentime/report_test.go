package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/goodtune/screentime/internal/summary"
	"github.com/stretchr/testify/assert"
)

func TestRenderReport(t *testing.T) {
	rec := storage.NewDayRecord("2024-03-15", []storage.AppUsageEntry{
		{Name: "Terminal", Seconds: 600, Icon: "💻"},
		{Name: "Firefox", Seconds: 3900, Icon: "🌐"},
	})

	out := renderReport("2024-03-15", rec)

	assert.Contains(t, out, "Screen time 2024-03-15")
	assert.Contains(t, out, "Firefox")
	assert.Contains(t, out, "1h 5m")
	assert.Contains(t, out, "10m")
	assert.Contains(t, out, "Total: 1h 15m")

	// Longest first
	assert.Less(t, strings.Index(out, "Firefox"), strings.Index(out, "Terminal"))
}

func TestRenderReportEmpty(t *testing.T) {
	out := renderReport("2024-03-15", storage.NewDayRecord("2024-03-15", nil))
	assert.Contains(t, out, "No usage recorded.")
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", bar(0, 100, 10))
	assert.Equal(t, "", bar(10, 0, 10))
	assert.Equal(t, strings.Repeat("█", 10), bar(100, 100, 10))
	assert.Equal(t, strings.Repeat("█", 5), bar(50, 100, 10))
	assert.Equal(t, "█", bar(1, 1000, 10))
}

func TestPrintSummary(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printSummary(&buf, &summary.Summary{
		Date:     "2024-03-14",
		TimeText: "2h 30m",
		AppCount: 4,
		TopApps:  []summary.TopApp{{Name: "Editor", Seconds: 5400, Icon: "📝"}},
	})

	out := buf.String()
	assert.Contains(t, out, "Screen time for 2024-03-14")
	assert.Contains(t, out, "Total: 2h 30m")
	assert.Contains(t, out, "across 4 apps")
	assert.Contains(t, out, "1. 📝 Editor")
	assert.Contains(t, out, "1h 30m")
}

func TestPrintSummaryWelcome(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, nil)
	assert.Contains(t, buf.String(), "Welcome to Screen Time")
}
