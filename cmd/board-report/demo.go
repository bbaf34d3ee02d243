// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/board-report/internal/boardio"
	"github.com/pdiddy/board-report/internal/sample"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Write a sample test board and reference board",
	Long: `Demo writes the hand-made sample board twice: a reference board with
clean IV-curves and a test board whose curves carry random errors. Feed
them to generate to see a complete report:

  board-report demo --out demo
  board-report generate --test demo/test.uzf --ref demo/ref.uzf --tolerance 20

Only UZF archives keep the board photograph.`,
	RunE: runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("out")
	seed, _ := cmd.Flags().GetUint64("seed")
	format, _ := cmd.Flags().GetString("format")

	boards := map[string]bool{"test": true, "ref": false}
	for name, test := range boards {
		p := filepath.Join(dir, name+"."+format)
		if err := boardio.Save(sample.ManualBoard(test, seed), p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
	}
	return nil
}

func init() {
	demoCmd.Flags().String("out", "demo", "directory for the sample boards")
	demoCmd.Flags().Uint64("seed", 1, "random seed for the test board errors")
	demoCmd.Flags().String("format", "uzf", "board file format: uzf, json, or yaml")

	rootCmd.AddCommand(demoCmd)
}
