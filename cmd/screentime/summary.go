package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/goodtune/screentime/internal/summary"
	"github.com/goodtune/screentime/internal/usage"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

var summaryDate string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show yesterday's usage summary",
	Long:  `Show the total and the most used applications of yesterday, or of the day given with --date.`,
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryDate, "date", "", "Summarise this day (YYYY-MM-DD) instead of yesterday")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	if summaryDate != "" {
		if _, err := storage.ParseDayKey(summaryDate); err != nil {
			return err
		}
	}

	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	gen := summary.NewGenerator(engine, clockwork.NewRealClock())

	var s *summary.Summary
	if summaryDate != "" {
		s = gen.Day(cmd.Context(), summaryDate)
	} else {
		s = gen.YesterdaySummary(cmd.Context())
	}

	printSummary(cmd.OutOrStdout(), s)
	return nil
}

// printSummary writes s the way the desktop notification reads
func printSummary(w io.Writer, s *summary.Summary) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	dim := color.New(color.Faint)

	if s == nil {
		p := summary.BuildPayload(nil)
		_, _ = cyan.Fprintln(w, p.Title)
		_, _ = fmt.Fprintln(w, p.Body)
		return
	}

	_, _ = cyan.Fprintf(w, "Screen time for %s\n", s.Date)
	_, _ = fmt.Fprintf(w, "Total: ")
	_, _ = green.Fprintf(w, "%s", s.TimeText)
	_, _ = dim.Fprintf(w, " across %d apps\n", s.AppCount)

	_, _ = fmt.Fprintln(w, "Top apps:")
	for i, app := range s.TopApps {
		_, _ = fmt.Fprintf(w, "  %d. %s %-30s ", i+1, app.Icon, app.Name)
		_, _ = green.Fprintln(w, usage.FormatHoursMinutes(app.Seconds))
	}
}
