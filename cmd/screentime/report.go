package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/goodtune/screentime/internal/usage"
	"github.com/spf13/cobra"
)

const reportBarWidth = 24

var (
	reportTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 1)

	reportBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	reportNameStyle  = lipgloss.NewStyle().Width(28)
	reportTimeStyle  = lipgloss.NewStyle().Width(9).Align(lipgloss.Right).Bold(true)
	reportMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

var reportCmd = &cobra.Command{
	Use:   "report [date]",
	Short: "Show the usage of one day",
	Long:  `Show every application recorded for a day (default today) with its share of the total.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	key := storage.DayKey(engine.Now())
	if len(args) == 1 {
		if _, err := storage.ParseDayKey(args[0]); err != nil {
			return err
		}
		key = args[0]
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderReport(key, engine.Day(cmd.Context(), key)))
	return nil
}

// renderReport lays out one day as a boxed table with proportional bars
func renderReport(key string, rec storage.DayRecord) string {
	title := reportTitleStyle.Render("Screen time " + key)

	if len(rec.Apps) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, reportMutedStyle.Render("No usage recorded."))
	}

	var longest int64
	for _, app := range rec.Apps {
		longest = max(longest, app.Seconds)
	}

	rows := make([]string, 0, len(rec.Apps)+2)
	for _, app := range sortedEntries(rec.Apps) {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			reportNameStyle.Render(app.Icon+" "+app.Name),
			reportTimeStyle.Render(usage.FormatDuration(app.Seconds)),
			" ",
			lipgloss.NewStyle().Foreground(lipgloss.Color(barColor(app.Color))).Render(bar(app.Seconds, longest, reportBarWidth)),
		))
	}
	rows = append(rows, "", fmt.Sprintf("Total: %s", usage.FormatHoursMinutes(rec.TotalSeconds)))

	return lipgloss.JoinVertical(lipgloss.Left, title, reportBoxStyle.Render(strings.Join(rows, "\n")))
}

// bar renders value as a share of full, at least one cell for non-zero values
func bar(value, full int64, width int) string {
	if full <= 0 || value <= 0 {
		return ""
	}
	n := int(value * int64(width) / full)
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

func barColor(c string) string {
	if c == "" {
		return storage.DefaultColor
	}
	return c
}

func sortedEntries(apps []storage.AppUsageEntry) []storage.AppUsageEntry {
	out := make([]storage.AppUsageEntry, len(apps))
	copy(out, apps)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Seconds > out[j].Seconds
	})
	return out
}
