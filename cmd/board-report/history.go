// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/board-report/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List and export recorded report runs",
	Long: `History reads the SQLite database that generate --history writes: one
row per run with its outcome and report directory, plus the type and
score of every classified pin.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), historyOptsFromFlags(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-19s  %-9s  %-9s  %5s  %6s  %s\n",
		"ID", "Started", "State", "Mode", "Pins", "Faulty", "Directory")
	fmt.Fprintln(out, strings.Repeat("-", 120))
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s  %-19s  %-9s  %-9s  %5d  %6d  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.State, r.Mode,
			r.PinsNumber, r.FaultyNumber, r.ReportDir)
	}
	fmt.Fprintf(out, "\n%d runs\n", len(runs))
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export runs and their pins to YAML or JSON",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}

	opts := historyOptsFromFlags(cmd)
	switch format {
	case "yaml", "":
		err = store.ExportYAML(cmd.Context(), w, opts)
	case "json":
		err = store.ExportJSON(cmd.Context(), w, opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", outPath)
	}
	return nil
}

// --- shared helpers ---

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = viper.GetString("history.path")
	}
	if path == "" {
		return nil, errors.New("no history database: pass --db or set history.path in the config file")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	return history.NewStore(path)
}

func historyOptsFromFlags(cmd *cobra.Command) history.ListOptions {
	state, _ := cmd.Flags().GetString("state")
	limit, _ := cmd.Flags().GetInt("limit")
	return history.ListOptions{State: state, Limit: limit}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	historyCmd.PersistentFlags().String("db", "", "history database (default: history.path from the config file)")
	historyCmd.PersistentFlags().String("state", "", "only runs that ended in this state: completed, stopped, failed")
	historyCmd.PersistentFlags().Int("limit", 0, "maximum runs (0 = use default)")

	historyListCmd.Flags().Bool("json", false, "output runs as JSON")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("out", "", "write to this file instead of stdout")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
