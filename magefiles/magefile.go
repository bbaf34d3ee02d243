//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main contains Mage build targets for board-report developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the demo targets write to.
var projectDirs = []string{
	"demo",
	"reports",
}

// Init creates the working directories for demo boards and reports.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "board-report"
	cmdPkg  = "./cmd/board-report"
)

// Build compiles the CLI binary into bin/, stamping the version from
// BOARD_REPORT_VERSION when it is set.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version := os.Getenv("BOARD_REPORT_VERSION")
	if version == "" {
		version = "dev"
	}
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Demo builds the CLI, writes the sample boards, and generates an English
// report from them under reports/.
func Demo() error {
	mg.Deps(Init, Build)
	bin := filepath.Join(binDir, binName)
	if err := sh.RunV(bin, "demo", "--out", "demo"); err != nil {
		return err
	}
	return sh.RunV(bin, "generate",
		"--test", filepath.Join("demo", "test.uzf"),
		"--ref", filepath.Join("demo", "ref.uzf"),
		"--tolerance", "20",
		"--english",
		"--output-dir", "reports",
	)
}

// Stats prints project metrics: Go production/test LOC and the size of the
// embedded report templates and assets.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	assetLines, err := countAssetLines(filepath.Join("internal", "report"))
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Lines (templates and assets):   %d\n", assetLines)
	return nil
}

// countGoLines counts non-blank lines in Go files. If testOnly is true,
// count only _test.go files; otherwise count non-test .go files.
func countGoLines(root string, testOnly bool) (int, error) {
	return countLines(root, func(path string) bool {
		if filepath.Ext(path) != ".go" {
			return false
		}
		return strings.HasSuffix(path, "_test.go") == testOnly
	})
}

// countAssetLines counts non-blank lines in the report templates and the
// static files they load.
func countAssetLines(root string) (int, error) {
	return countLines(root, func(path string) bool {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html", ".css", ".js", ".svg":
			return true
		}
		return false
	})
}

// countLines walks root, skipping hidden and underscore directories, and
// counts non-blank lines in the files keep accepts.
func countLines(root string, keep func(string) bool) (int, error) {
	total := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !keep(path) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				total++
			}
		}
		return nil
	})
	return total, err
}
