package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/spf13/cobra"
)

var pruneBefore string

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the usage history as JSON",
	Long:  `Write the stored usage document to a file, or to stdout when no file is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the usage history with an exported document",
	Long: `Validate an exported document and store it as the current usage history.
The previous document is kept as the backup. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete usage history older than a date",
	Args:  cobra.NoArgs,
	RunE:  runPrune,
}

func init() {
	pruneCmd.Flags().StringVar(&pruneBefore, "before", "", "Delete every day strictly before this date (YYYY-MM-DD)")
	_ = pruneCmd.MarkFlagRequired("before")

	rootCmd.AddCommand(exportCmd, importCmd, pruneCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	result := engine.Export(cmd.Context())
	if len(args) == 0 || args[0] == "-" {
		if err := writeExport(cmd.OutOrStdout(), result); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		return nil
	}

	if err := exportToFile(args[0], result); err != nil {
		return err
	}
	_, _ = color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "✅ Exported usage history to %s\n", args[0])
	return nil
}

// exportToFile writes the export to path. The file is only reported as
// written once it has been closed without error.
func exportToFile(path string, result storage.ExportResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := writeExport(f, result); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	return nil
}

func writeExport(w io.Writer, result storage.ExportResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result.Data)
}

func runImport(cmd *cobra.Command, args []string) error {
	var (
		raw []byte
		err error
	)
	if args[0] == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	// Reject malformed input before touching storage
	if _, err := storage.DecodeImport(raw); err != nil {
		_, _ = color.New(color.FgRed, color.Bold).Fprintf(cmd.ErrOrStderr(), "❌ %v\n", err)
		return err
	}

	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	result, err := engine.Import(cmd.Context(), raw)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("failed to save imported document: %s", result.Error)
	}

	_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ Imported usage history into %s\n", result.Path)
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	if _, err := storage.ParseDayKey(pruneBefore); err != nil {
		return err
	}

	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	removed, result := engine.PruneBefore(cmd.Context(), pruneBefore)
	if !result.Success {
		return fmt.Errorf("failed to save pruned document: %s", result.Error)
	}

	if removed == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No days recorded before %s\n", pruneBefore)
		return nil
	}
	_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ Deleted %d day(s) before %s\n", removed, pruneBefore)
	return nil
}
