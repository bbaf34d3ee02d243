// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultPinImageSize is the edge of a pin close-up in pixels.
const DefaultPinImageSize = 100

// Scope selects which pins are accounted in a report. WholeBoard wins over
// the index lists; otherwise a pin is selected when its element index is in
// Elements or its global pin index is in Pins.
type Scope struct {
	WholeBoard bool  `json:"whole_board" yaml:"whole_board" mapstructure:"whole_board"`
	Elements   []int `json:"elements,omitempty" yaml:"elements,omitempty" mapstructure:"elements"`
	Pins       []int `json:"pins,omitempty" yaml:"pins,omitempty" mapstructure:"pins"`
}

// WholeBoardScope selects every pin.
func WholeBoardScope() Scope {
	return Scope{WholeBoard: true}
}

// Selects reports whether the pin at elementIndex with global index
// totalPinIndex belongs to the scope.
func (s Scope) Selects(elementIndex, totalPinIndex int) bool {
	if s.WholeBoard {
		return true
	}
	for _, e := range s.Elements {
		if e == elementIndex {
			return true
		}
	}
	for _, p := range s.Pins {
		if p == totalPinIndex {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the scope selects nothing.
func (s Scope) IsEmpty() bool {
	return !s.WholeBoard && len(s.Elements) == 0 && len(s.Pins) == 0
}

// NoiseAmplitude is the noise floor handed to the curve comparator.
// Voltage is in volts, Current in milliamperes.
type NoiseAmplitude struct {
	Voltage float64 `json:"voltage" yaml:"voltage" mapstructure:"voltage"`
	Current float64 `json:"current" yaml:"current" mapstructure:"current"`
}

// AxisScale is a user-defined IV plot range. Voltage is in volts, Current
// in amperes.
type AxisScale struct {
	Voltage float64 `json:"voltage" yaml:"voltage" mapstructure:"voltage"`
	Current float64 `json:"current" yaml:"current" mapstructure:"current"`
}

// ReportConfig holds every setting of a report run.
type ReportConfig struct {
	// AppName and AppVersion are printed in the report header.
	AppName    string `json:"app_name" yaml:"app_name" mapstructure:"app_name"`
	AppVersion string `json:"app_version" yaml:"app_version" mapstructure:"app_version"`

	// OutputDir is the parent directory for timestamped report directories.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	Scope Scope `json:"scope" yaml:"scope" mapstructure:"scope"`

	// Tolerance is the score threshold in percent. Nil means no threshold:
	// every two-measurement pin is low-score and nothing is faulty.
	Tolerance *float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty" mapstructure:"tolerance"`

	Mode ReportMode `json:"mode" yaml:"mode" mapstructure:"mode"`

	// NoiseAmplitudes is indexed by the position of the pin among selected
	// pins. Nil entries fall back to values derived from the settings.
	NoiseAmplitudes []*NoiseAmplitude `json:"noise_amplitudes,omitempty" yaml:"noise_amplitudes,omitempty" mapstructure:"noise_amplitudes"`

	Scaling ScalingType `json:"scaling" yaml:"scaling" mapstructure:"scaling"`

	// UserDefinedScales is indexed like NoiseAmplitudes and used with
	// ScalingUserDefined.
	UserDefinedScales []*AxisScale `json:"user_defined_scales,omitempty" yaml:"user_defined_scales,omitempty" mapstructure:"user_defined_scales"`

	// English switches report text from Russian to English.
	English bool `json:"english" yaml:"english" mapstructure:"english"`

	// TestDuration is how long the measurement session took. Zero omits it.
	TestDuration time.Duration `json:"test_duration,omitempty" yaml:"test_duration,omitempty" mapstructure:"test_duration"`

	OpenAtFinish  bool         `json:"open_at_finish" yaml:"open_at_finish" mapstructure:"open_at_finish"`
	ReportsToOpen []ReportType `json:"reports_to_open,omitempty" yaml:"reports_to_open,omitempty" mapstructure:"reports_to_open"`

	// PinImageSize is the edge of pin close-ups in pixels (default 100).
	PinImageSize int `json:"pin_image_size" yaml:"pin_image_size" mapstructure:"pin_image_size"`
}

// DefaultReportConfig returns the configuration used when nothing is set.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		AppName:       "board-report",
		AppVersion:    "dev",
		OutputDir:     ".",
		Scope:         WholeBoardScope(),
		Mode:          ModeAuto,
		Scaling:       ScalingAuto,
		ReportsToOpen: []ReportType{ReportShort},
		PinImageSize:  DefaultPinImageSize,
	}
}

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid report config")

// Validate checks the configuration for values no run can use.
func (c *ReportConfig) Validate() error {
	if c.Tolerance != nil {
		t := *c.Tolerance
		if math.IsNaN(t) || t < 0 {
			return fmt.Errorf("%w: tolerance %v must be a non-negative percentage", ErrInvalidConfig, t)
		}
	}
	switch c.Mode {
	case ModeAuto, ModeTest, ModeReference:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	switch c.Scaling {
	case ScalingAuto, ScalingEyePointP10, ScalingUserDefined:
	default:
		return fmt.Errorf("%w: unknown scaling %q", ErrInvalidConfig, c.Scaling)
	}
	if c.PinImageSize <= 0 {
		return fmt.Errorf("%w: pin image size %d must be positive", ErrInvalidConfig, c.PinImageSize)
	}
	if c.Scope.IsEmpty() {
		return fmt.Errorf("%w: scope selects no pins", ErrInvalidConfig)
	}
	for _, e := range c.Scope.Elements {
		if e < 0 {
			return fmt.Errorf("%w: negative element index %d", ErrInvalidConfig, e)
		}
	}
	for _, p := range c.Scope.Pins {
		if p < 0 {
			return fmt.Errorf("%w: negative pin index %d", ErrInvalidConfig, p)
		}
	}
	for _, t := range c.ReportsToOpen {
		switch t {
		case ReportMap, ReportFull, ReportShort:
		default:
			return fmt.Errorf("%w: unknown report type %q", ErrInvalidConfig, t)
		}
	}
	return nil
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "text" or "json" (default text).
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// File, when set, receives a rotated copy of the log.
	File       string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty" mapstructure:"max_backups"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	// Path is the SQLite file. Empty disables history.
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

// MetricsConfig controls pipeline metrics export.
type MetricsConfig struct {
	// TextFile, when set, receives the metrics in Prometheus text format
	// after each run.
	TextFile string `json:"textfile,omitempty" yaml:"textfile,omitempty" mapstructure:"textfile"`
}
