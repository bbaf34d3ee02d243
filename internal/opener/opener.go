// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package opener opens finished report pages with the desktop's default
// handler (xdg-open, open, or the Windows URL handler).
package opener

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ErrNoOpener is returned when no launcher binary is available.
var ErrNoOpener = errors.New("no file opener available")

// Opener opens files for the user.
type Opener interface {
	// Name returns the launcher binary name.
	Name() string

	// Open hands path to the launcher without waiting for it to exit.
	Open(path string) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Start(name string, args ...string) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// launcher runs bin with prefix arguments followed by the file path.
type launcher struct {
	bin    string
	prefix []string
	exec   executor
}

func (l *launcher) Name() string { return l.bin }

func (l *launcher) Open(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	args := make([]string, 0, len(l.prefix)+1)
	args = append(args, l.prefix...)
	args = append(args, abs)
	if err := l.exec.Start(l.bin, args...); err != nil {
		return fmt.Errorf("opening %s with %s: %w", abs, l.bin, err)
	}
	return nil
}

// candidates lists launchers per GOOS in preference order.
var candidates = map[string][]launcher{
	"linux":   {{bin: "xdg-open"}, {bin: "gio", prefix: []string{"open"}}},
	"freebsd": {{bin: "xdg-open"}},
	"darwin":  {{bin: "open"}},
	"windows": {{bin: "rundll32", prefix: []string{"url.dll,FileProtocolHandler"}}},
}

var defaultExec = &osExecutor{}

// Detect returns the first launcher for the current OS found on PATH.
func Detect() (Opener, error) {
	return detectWith(runtime.GOOS, defaultExec)
}

func detectWith(goos string, exec executor) (Opener, error) {
	for _, c := range candidates[goos] {
		if _, err := exec.LookPath(c.bin); err != nil {
			continue
		}
		l := c
		l.exec = exec
		return &l, nil
	}
	return nil, fmt.Errorf("%w on %s", ErrNoOpener, goos)
}

// OpenAll opens every path, returning the joined errors of those that
// failed.
func OpenAll(o Opener, paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := o.Open(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
