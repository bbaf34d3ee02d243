// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/board-report/internal/boardio"
	"github.com/pdiddy/board-report/internal/history"
	"github.com/pdiddy/board-report/internal/merge"
	"github.com/pdiddy/board-report/internal/metrics"
	"github.com/pdiddy/board-report/internal/opener"
	"github.com/pdiddy/board-report/internal/pipeline"
	"github.com/pdiddy/board-report/internal/report"
	"github.com/pdiddy/board-report/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an inspection report",
	Long: `Generate classifies every selected pin of a board and writes a report
directory "report YYYY-MM-DD HH-MM-SS" under --output-dir.

Pass --test and --ref to compare a tested board with a reference board, or
--board for a board that already holds both measurements per pin. A single
--test or --ref board produces a test or reference report. Interrupting the
command stops the report and keeps what was written so far.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	board, err := loadInputBoard(cmd)
	if err != nil {
		return err
	}
	cfg, err := reportConfig()
	if err != nil {
		return err
	}
	cfg.AppVersion = version

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	events := make(chan pipeline.Event, 16)
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithObserver(pipeline.ChannelObserver(events)),
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return err
	}
	opts = append(opts, pipeline.WithMetrics(m))

	if path := viper.GetString("history.path"); path != "" {
		store, err := history.NewStore(path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, pipeline.WithHistory(store))
	}

	if cfg.OpenAtFinish {
		o, err := opener.Detect()
		if err != nil {
			logger.Warn("reports will not be opened", "error", err)
		} else {
			opts = append(opts, pipeline.WithOpener(o))
		}
	}

	gen, err := pipeline.New(board, cfg, opts...)
	if err != nil {
		return err
	}

	var res *pipeline.Result
	var eg errgroup.Group
	eg.Go(func() error {
		defer close(events)
		var err error
		res, err = gen.Run(ctx)
		return err
	})
	eg.Go(func() error {
		printProgress(cmd.ErrOrStderr(), events)
		return nil
	})
	runErr := eg.Wait()

	if path := viper.GetString("metrics.textfile"); path != "" {
		if err := m.WriteTextFile(path); err != nil {
			logger.Warn("writing metrics", "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	switch res.State {
	case pipeline.StateStopped:
		fmt.Fprintln(out, "Report generation stopped.")
		return nil
	case pipeline.StateCompleted:
		fmt.Fprintf(out, "Report written to %s (%d pins, %d faulty)\n", res.Dir, len(res.Records), len(res.Faulty))
	}

	if summary, _ := cmd.Flags().GetBool("summary"); summary {
		if p, ok := res.Reports[types.ReportShort]; ok {
			text, err := report.TextSummary(p)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, text)
		}
	}
	return nil
}

// printProgress writes one line per progress unit until events is closed.
func printProgress(w io.Writer, events <-chan pipeline.Event) {
	total, units := 0, 0
	for e := range events {
		switch e.Kind {
		case pipeline.EventTotalSteps:
			total = e.Total
		case pipeline.EventStepStarted:
			fmt.Fprintf(w, "%s...\n", e.Step)
		case pipeline.EventStepDone:
			if total > 0 {
				units++
				if units == total || units%10 == 0 {
					fmt.Fprintf(w, "  [%d/%d]\n", units, total)
				}
			}
		}
	}
}

// loadInputBoard loads the board flags into one unified board.
func loadInputBoard(cmd *cobra.Command) (*types.Board, error) {
	boardPath, _ := cmd.Flags().GetString("board")
	testPath, _ := cmd.Flags().GetString("test")
	refPath, _ := cmd.Flags().GetString("ref")

	switch {
	case boardPath != "":
		if testPath != "" || refPath != "" {
			return nil, errors.New("--board cannot be combined with --test or --ref")
		}
		return boardio.Load(boardPath)
	case testPath != "" && refPath != "":
		test, err := boardio.Load(testPath)
		if err != nil {
			return nil, err
		}
		ref, err := boardio.Load(refPath)
		if err != nil {
			return nil, err
		}
		return merge.Boards(test, ref)
	case testPath != "":
		test, err := boardio.Load(testPath)
		if err != nil {
			return nil, err
		}
		return merge.Boards(test, nil)
	case refPath != "":
		ref, err := boardio.Load(refPath)
		if err != nil {
			return nil, err
		}
		board, err := merge.Boards(ref, nil)
		if err != nil {
			return nil, err
		}
		markReference(board)
		return board, nil
	}
	return nil, errors.New("a board is required: use --board, or --test and/or --ref")
}

// markReference flags every measurement of a freshly merged board as a
// reference measurement.
func markReference(b *types.Board) {
	for ei := range b.Elements {
		for pi := range b.Elements[ei].Pins {
			ms := b.Elements[ei].Pins[pi].Measurements
			for mi := range ms {
				ms[mi].IsReference = true
			}
		}
	}
}

// reportConfig builds the report configuration from defaults, the config
// file, the environment, and flags, in increasing priority.
func reportConfig() (types.ReportConfig, error) {
	cfg := types.DefaultReportConfig()
	if viper.IsSet("report.app_name") {
		cfg.AppName = viper.GetString("report.app_name")
	}
	if viper.IsSet("report.output_dir") {
		cfg.OutputDir = viper.GetString("report.output_dir")
	}
	if viper.IsSet("report.tolerance") {
		t := viper.GetFloat64("report.tolerance")
		cfg.Tolerance = &t
	}
	if viper.IsSet("report.mode") {
		m, err := types.ParseReportMode(viper.GetString("report.mode"))
		if err != nil {
			return cfg, err
		}
		cfg.Mode = m
	}
	if viper.IsSet("report.scaling") {
		cfg.Scaling = types.ScalingType(viper.GetString("report.scaling"))
	}
	cfg.English = viper.GetBool("report.english")
	cfg.OpenAtFinish = viper.GetBool("report.open_at_finish")
	if viper.IsSet("report.reports_to_open") {
		cfg.ReportsToOpen = nil
		for _, s := range viper.GetStringSlice("report.reports_to_open") {
			cfg.ReportsToOpen = append(cfg.ReportsToOpen, types.ReportType(s))
		}
	}
	if viper.IsSet("report.pin_image_size") {
		cfg.PinImageSize = viper.GetInt("report.pin_image_size")
	}
	cfg.TestDuration = viper.GetDuration("report.test_duration")

	elements := viper.GetIntSlice("report.scope.elements")
	pins := viper.GetIntSlice("report.scope.pins")
	if len(elements) > 0 || len(pins) > 0 {
		cfg.Scope = types.Scope{Elements: elements, Pins: pins}
	}

	if err := viper.UnmarshalKey("report.noise_amplitudes", &cfg.NoiseAmplitudes); err != nil {
		return cfg, fmt.Errorf("reading noise amplitudes: %w", err)
	}
	if err := viper.UnmarshalKey("report.user_defined_scales", &cfg.UserDefinedScales); err != nil {
		return cfg, fmt.Errorf("reading user-defined scales: %w", err)
	}
	return cfg, cfg.Validate()
}

func init() {
	generateCmd.Flags().String("board", "", "unified board file (JSON, YAML, or UZF)")
	generateCmd.Flags().String("test", "", "tested board file")
	generateCmd.Flags().String("ref", "", "reference board file")
	generateCmd.Flags().String("output-dir", ".", "parent directory of the report directory")
	generateCmd.Flags().Float64("tolerance", 0, "score threshold in percent; pins above it are faulty (default: not set)")
	generateCmd.Flags().String("mode", "auto", "report mode: auto, test, or reference")
	generateCmd.Flags().String("scaling", "auto", "IV plot scaling: auto, eyepoint_p10, or user_defined")
	generateCmd.Flags().IntSlice("elements", nil, "report only these element indices")
	generateCmd.Flags().IntSlice("pins", nil, "report only these global pin indices")
	generateCmd.Flags().Bool("english", false, "write the report in English instead of Russian")
	generateCmd.Flags().Bool("open", false, "open the reports when finished")
	generateCmd.Flags().StringSlice("open-reports", []string{"short"}, "reports to open: map, full, short")
	generateCmd.Flags().Int("pin-image-size", types.DefaultPinImageSize, "pin close-up size in pixels")
	generateCmd.Flags().Duration("test-duration", 0, "measurement session length shown in the report")
	generateCmd.Flags().String("history", "", "record the run in this SQLite history database")
	generateCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file after the run")
	generateCmd.Flags().Bool("summary", false, "print the short report as plain text")

	for key, flag := range map[string]string{
		"report.output_dir":      "output-dir",
		"report.tolerance":       "tolerance",
		"report.mode":            "mode",
		"report.scaling":         "scaling",
		"report.scope.elements":  "elements",
		"report.scope.pins":      "pins",
		"report.english":         "english",
		"report.open_at_finish":  "open",
		"report.reports_to_open": "open-reports",
		"report.pin_image_size":  "pin-image-size",
		"report.test_duration":   "test-duration",
		"history.path":           "history",
		"metrics.textfile":       "metrics-file",
	} {
		_ = viper.BindPFlag(key, generateCmd.Flags().Lookup(flag))
	}

	rootCmd.AddCommand(generateCmd)
}
