// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify turns a unified board into classified pin records. It
// scores pins with two measurements through a Comparator and assigns each
// selected pin a PinType from its measurement count, score, tolerance, and
// report mode.
package classify

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/pdiddy/board-report/pkg/types"
)

// Noise floor used when a pin has no measurements to derive it from.
const (
	defaultVoltageNoise = 0.6
	defaultCurrentNoise = 0.2
)

// ErrInvalidPin is returned when a pin of a unified board holds more than
// one test or more than one reference measurement.
var ErrInvalidPin = errors.New("invalid unified pin")

// Comparator computes a difference in [0, 1] between two IV-curves.
// voltageNoise is in volts and currentNoise in milliamperes.
type Comparator interface {
	Compare(a, b types.IVCurve, voltageNoise, currentNoise float64) (float64, error)
}

// ComparatorFunc adapts a function to Comparator.
type ComparatorFunc func(a, b types.IVCurve, voltageNoise, currentNoise float64) (float64, error)

// Compare calls f.
func (f ComparatorFunc) Compare(a, b types.IVCurve, voltageNoise, currentNoise float64) (float64, error) {
	return f(a, b, voltageNoise, currentNoise)
}

// Options configures Pins.
type Options struct {
	Scope types.Scope

	// Tolerance is in percent. Nil disables high-score classification.
	Tolerance *float64

	// Mode must be ModeTest or ModeReference. Resolve ModeAuto with
	// DetectMode first.
	Mode types.ReportMode

	// NoiseAmplitudes is indexed by the pin's position among selected pins.
	NoiseAmplitudes []*types.NoiseAmplitude

	Comparator Comparator
}

// DetectMode returns ModeTest if any measurement on the board is a test
// measurement, and ModeReference otherwise.
func DetectMode(ctx context.Context, board *types.Board) (types.ReportMode, error) {
	for _, e := range board.Elements {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		for _, p := range e.Pins {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			for _, m := range p.Measurements {
				if !m.IsReference {
					return types.ModeTest, nil
				}
			}
		}
	}
	return types.ModeReference, nil
}

// Pins classifies every selected pin of board in element-then-pin order.
// Unselected pins still advance the global pin index.
func Pins(ctx context.Context, board *types.Board, opts Options) ([]types.PinRecord, error) {
	if opts.Mode != types.ModeTest && opts.Mode != types.ModeReference {
		return nil, fmt.Errorf("classification needs a concrete mode, got %q", opts.Mode)
	}

	var records []types.PinRecord
	total := 0
	accounted := 0
	for ei, e := range board.Elements {
		for pi, p := range e.Pins {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := checkPin(p); err != nil {
				return nil, fmt.Errorf("%w %d_%d: %s", ErrInvalidPin, ei, pi, err)
			}
			index := total
			total++
			if !opts.Scope.Selects(ei, index) {
				continue
			}

			rec := types.PinRecord{
				ElementName:       e.Name,
				ElementIndex:      ei,
				PinIndex:          pi,
				X:                 p.X,
				Y:                 p.Y,
				Measurements:      p.Measurements,
				TotalPinIndex:     index,
				Comment:           p.Comment,
				MultiplexerOutput: p.MultiplexerOutput,
			}

			if len(p.Measurements) == 2 {
				if opts.Comparator == nil {
					return nil, errors.New("comparator is required to score pins with two measurements")
				}
				v, c := noiseFor(opts.NoiseAmplitudes, accounted, p)
				test, _ := rec.TestMeasurement()
				ref, _ := rec.ReferenceMeasurement()
				raw, err := opts.Comparator.Compare(test.IVC, ref.IVC, v, c)
				if err != nil {
					return nil, fmt.Errorf("comparing curves of pin %d_%d: %w", ei, pi, err)
				}
				score := Score(raw)
				rec.Score = &score
			}
			rec.Type = PinType(opts.Mode, len(p.Measurements), rec.Score, opts.Tolerance, p.IsLoss)

			records = append(records, rec)
			accounted++
		}
	}
	return records, nil
}

// checkPin enforces the unified shape: at most one test and at most one
// reference measurement.
func checkPin(p types.Pin) error {
	var tests, refs int
	for _, m := range p.Measurements {
		if m.IsReference {
			refs++
		} else {
			tests++
		}
	}
	if tests > 1 || refs > 1 {
		return fmt.Errorf("%d test and %d reference measurements", tests, refs)
	}
	return nil
}

// Score converts a raw comparator result to a percentage rounded to one
// decimal place.
func Score(raw float64) float64 {
	return math.Round(raw*1000) / 10
}

// PinType derives the pin type. isLoss only matters for reference pins with
// one measurement.
func PinType(mode types.ReportMode, measurements int, score, tolerance *float64, isLoss bool) types.PinType {
	if mode == types.ModeReference {
		switch {
		case measurements == 0:
			return types.PinReferenceEmpty
		case measurements == 1 && isLoss:
			return types.PinReferenceLoss
		default:
			return types.PinReferenceNotEmpty
		}
	}
	if measurements < 2 {
		return types.PinTestEmpty
	}
	if score != nil && tolerance != nil && IsHighScore(*score, *tolerance) {
		return types.PinTestHighScore
	}
	return types.PinTestLowScore
}

// IsHighScore reports whether score reaches the tolerance. It is inclusive,
// unlike IsFaulty.
func IsHighScore(score, tolerance float64) bool {
	return score >= tolerance
}

// IsFaulty reports whether a pin's score is strictly above the tolerance.
// Pins without a score or without a tolerance are never faulty.
func IsFaulty(rec types.PinRecord, tolerance *float64) bool {
	return rec.Score != nil && tolerance != nil && *rec.Score > *tolerance
}

// FaultyPins returns the records with a score strictly above the tolerance,
// in input order. It returns nil when tolerance is nil.
func FaultyPins(records []types.PinRecord, tolerance *float64) []types.PinRecord {
	if tolerance == nil {
		return nil
	}
	var out []types.PinRecord
	for _, r := range records {
		if IsFaulty(r, tolerance) {
			out = append(out, r)
		}
	}
	return out
}

// ElementsNumber counts the distinct elements the records belong to.
func ElementsNumber(records []types.PinRecord) int {
	seen := make(map[int]struct{})
	for _, r := range records {
		seen[r.ElementIndex] = struct{}{}
	}
	return len(seen)
}

// Scores returns the scores of the records that have one, in order.
func Scores(records []types.PinRecord) []float64 {
	var out []float64
	for _, r := range records {
		if r.Score != nil {
			out = append(out, *r.Score)
		}
	}
	return out
}

// NoiseAmplitudes derives a noise floor from the pin's first measurement:
// a twentieth of the probe amplitude in volts and the matching current in
// milliamperes. Pins without measurements get (0.6, 0.2).
func NoiseAmplitudes(p types.Pin) (voltage, current float64) {
	if len(p.Measurements) == 0 {
		return defaultVoltageNoise, defaultCurrentNoise
	}
	s := p.Measurements[0].Settings
	voltage = s.MaxVoltage / 20
	if s.InternalResistance > 0 {
		current = 1000 * s.MaxVoltage / (20 * s.InternalResistance)
	}
	if voltage <= 0 || current <= 0 {
		return defaultVoltageNoise, defaultCurrentNoise
	}
	return voltage, current
}

// noiseFor uses the override at the pin's accounted position when it is
// well-formed and the settings-derived floor otherwise.
func noiseFor(overrides []*types.NoiseAmplitude, accounted int, p types.Pin) (float64, float64) {
	if accounted < len(overrides) && overrides[accounted] != nil {
		n := overrides[accounted]
		if positiveFinite(n.Voltage) && positiveFinite(n.Current) {
			return n.Voltage, n.Current
		}
	}
	return NoiseAmplitudes(p)
}

func positiveFinite(f float64) bool {
	return f > 0 && !math.IsInf(f, 1)
}
