// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package opener

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool
	failStart     bool
	started       []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) Start(name string, args ...string) error {
	if m.failStart {
		return errors.New("start failed")
	}
	m.started = append(m.started, name+" "+strings.Join(args, " "))
	return nil
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		goos     string
		bins     map[string]bool
		wantName string
		wantErr  bool
	}{
		{name: "linux xdg-open", goos: "linux", bins: map[string]bool{"xdg-open": true, "gio": true}, wantName: "xdg-open"},
		{name: "linux gio fallback", goos: "linux", bins: map[string]bool{"gio": true}, wantName: "gio"},
		{name: "darwin", goos: "darwin", bins: map[string]bool{"open": true}, wantName: "open"},
		{name: "windows", goos: "windows", bins: map[string]bool{"rundll32": true}, wantName: "rundll32"},
		{name: "nothing on PATH", goos: "linux", bins: map[string]bool{}, wantErr: true},
		{name: "unknown OS", goos: "plan9", bins: map[string]bool{"xdg-open": true}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := detectWith(tt.goos, &mockExecutor{availableBins: tt.bins})
			if tt.wantErr {
				if !errors.Is(err, ErrNoOpener) {
					t.Fatalf("err = %v, want ErrNoOpener", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if o.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", o.Name(), tt.wantName)
			}
		})
	}
}

func TestOpen_PassesAbsolutePath(t *testing.T) {
	exec := &mockExecutor{availableBins: map[string]bool{"gio": true}}
	o, err := detectWith("linux", exec)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Open("report.html"); err != nil {
		t.Fatal(err)
	}
	abs, _ := filepath.Abs("report.html")
	want := "gio open " + abs
	if len(exec.started) != 1 || exec.started[0] != want {
		t.Errorf("started = %v, want [%q]", exec.started, want)
	}
}

func TestOpenAll(t *testing.T) {
	exec := &mockExecutor{availableBins: map[string]bool{"open": true}}
	o, err := detectWith("darwin", exec)
	if err != nil {
		t.Fatal(err)
	}
	if err := OpenAll(o, []string{"a.html", "b.html"}); err != nil {
		t.Fatal(err)
	}
	if len(exec.started) != 2 {
		t.Errorf("started %d commands, want 2", len(exec.started))
	}

	exec.failStart = true
	if err := OpenAll(o, []string{"a.html"}); err == nil {
		t.Error("expected error when launcher fails")
	}
}
