// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/board-report/internal/boardio"
	"github.com/pdiddy/board-report/internal/merge"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge a test board and a reference board into one board",
	Long: `Merge combines a tested board and a reference board with the same
elements and pins into a unified board whose pins carry the test
measurement followed by the reference measurement. The output format
follows the --out extension (.json, .yaml, .uzf).`,
	RunE: runMerge,
}

func runMerge(cmd *cobra.Command, args []string) error {
	testPath, _ := cmd.Flags().GetString("test")
	refPath, _ := cmd.Flags().GetString("ref")
	out, _ := cmd.Flags().GetString("out")
	if testPath == "" || refPath == "" || out == "" {
		return errors.New("--test, --ref, and --out are required")
	}

	test, err := boardio.Load(testPath)
	if err != nil {
		return err
	}
	ref, err := boardio.Load(refPath)
	if err != nil {
		return err
	}
	board, err := merge.Boards(test, ref)
	if err != nil {
		return fmt.Errorf("merging %s and %s: %w", testPath, refPath, err)
	}
	if err := boardio.Save(board, out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Merged board written to %s (%d pins)\n", out, board.PinsNumber())
	return nil
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split a unified board into test and reference boards",
	RunE:  runSplit,
}

func runSplit(cmd *cobra.Command, args []string) error {
	boardPath, _ := cmd.Flags().GetString("board")
	testOut, _ := cmd.Flags().GetString("test-out")
	refOut, _ := cmd.Flags().GetString("ref-out")
	if boardPath == "" || testOut == "" || refOut == "" {
		return errors.New("--board, --test-out, and --ref-out are required")
	}

	board, err := boardio.Load(boardPath)
	if err != nil {
		return err
	}
	test, ref := merge.Split(board)
	if err := boardio.Save(test, testOut); err != nil {
		return err
	}
	if err := boardio.Save(ref, refOut); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Split %s into %s and %s\n", boardPath, testOut, refOut)
	return nil
}

func init() {
	mergeCmd.Flags().String("test", "", "tested board file")
	mergeCmd.Flags().String("ref", "", "reference board file")
	mergeCmd.Flags().String("out", "", "unified board file to write")

	splitCmd.Flags().String("board", "", "unified board file")
	splitCmd.Flags().String("test-out", "", "test board file to write")
	splitCmd.Flags().String("ref-out", "", "reference board file to write")

	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(splitCmd)
}
