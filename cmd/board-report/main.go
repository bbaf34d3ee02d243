// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the board-report CLI. It turns test
// and reference board measurements into HTML inspection reports.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/board-report/internal/logging"
	"github.com/pdiddy/board-report/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is configured in PersistentPreRunE and released after the command.
var (
	logger   = slog.Default()
	closeLog = func() error { return nil }
)

// rootCmd is the base command for the board-report CLI.
var rootCmd = &cobra.Command{
	Use:   "board-report",
	Short: "Generate inspection reports for printed circuit boards",
	Long: `board-report compares IV-curves measured on a tested board with the
curves of a reference board and writes an HTML report: a board map, a full
pin list, and a short list of faulty pins, with per-pin curve plots and a
fault histogram.

Board files are JSON, YAML, or UZF archives. Use merge and split to convert
between separate test/reference boards and a unified board.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := types.LoggingConfig{
			Level:      viper.GetString("logging.level"),
			Format:     viper.GetString("logging.format"),
			File:       viper.GetString("logging.file"),
			MaxSizeMB:  viper.GetInt("logging.max_size_mb"),
			MaxBackups: viper.GetInt("logging.max_backups"),
		}
		l, closer, err := logging.New(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		logger, closeLog = l, closer
		slog.SetDefault(l)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./board-report.yaml or ~/.config/board-report/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file, rotated")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("logging.file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("board-report")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "board-report"))
		}
	}

	viper.SetEnvPrefix("BOARD_REPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
