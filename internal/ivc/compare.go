// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ivc provides the default IV-curve comparator. Both curves are
// resampled to a common length, normalized by their joint amplitude (never
// below the noise floor), and compared by symmetric mean nearest-point
// distance. The result lies in [0, 1]; identical curves compare as 0.
package ivc

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/pdiddy/board-report/pkg/types"
)

// DefaultPoints is the resampled curve length.
const DefaultPoints = 100

// ErrEmptyCurve is returned when a curve has no samples.
var ErrEmptyCurve = errors.New("curve has no samples")

// ErrNonFiniteSample is returned when a curve holds a NaN or infinite sample.
var ErrNonFiniteSample = errors.New("curve has a non-finite sample")

// Comparator compares two IV-curves.
type Comparator struct {
	// Points is the resampled length (default DefaultPoints).
	Points int
}

// New returns a comparator with default settings.
func New() *Comparator {
	return &Comparator{Points: DefaultPoints}
}

// Compare returns the difference between a and b in [0, 1]. voltageNoise is
// in volts and currentNoise in milliamperes; currents of the curves are in
// amperes.
func (c *Comparator) Compare(a, b types.IVCurve, voltageNoise, currentNoise float64) (float64, error) {
	if a.Len() == 0 || b.Len() == 0 {
		return 0, ErrEmptyCurve
	}
	if voltageNoise <= 0 || currentNoise <= 0 {
		return 0, fmt.Errorf("noise amplitudes must be positive, got (%g, %g)", voltageNoise, currentNoise)
	}
	for _, xs := range [][]float64{a.Voltages[:a.Len()], a.Currents[:a.Len()], b.Voltages[:b.Len()], b.Currents[:b.Len()]} {
		if !finite(xs) {
			return 0, ErrNonFiniteSample
		}
	}
	n := c.Points
	if n <= 0 {
		n = DefaultPoints
	}

	av, ai := resample(a.Voltages[:a.Len()], n), resample(a.Currents[:a.Len()], n)
	bv, bi := resample(b.Voltages[:b.Len()], n), resample(b.Currents[:b.Len()], n)
	floats.Scale(1000, ai)
	floats.Scale(1000, bi)

	vScale := math.Max(math.Max(maxAbs(av), maxAbs(bv)), voltageNoise)
	iScale := math.Max(math.Max(maxAbs(ai), maxAbs(bi)), currentNoise)
	floats.Scale(1/vScale, av)
	floats.Scale(1/vScale, bv)
	floats.Scale(1/iScale, ai)
	floats.Scale(1/iScale, bi)

	d := (meanNearest(av, ai, bv, bi) + meanNearest(bv, bi, av, ai)) / 2
	// Normalized coordinates lie in [-1, 1], so the largest distance is 2*sqrt(2).
	d /= 2 * math.Sqrt2
	return math.Min(math.Max(d, 0), 1), nil
}

// resample linearly interpolates xs onto n evenly spaced sample positions.
func resample(xs []float64, n int) []float64 {
	out := make([]float64, n)
	if len(xs) == 1 {
		for i := range out {
			out[i] = xs[0]
		}
		return out
	}
	pos := floats.Span(make([]float64, n), 0, float64(len(xs)-1))
	for i, p := range pos {
		lo := int(math.Floor(p))
		if lo >= len(xs)-1 {
			out[i] = xs[len(xs)-1]
			continue
		}
		frac := p - float64(lo)
		out[i] = xs[lo]*(1-frac) + xs[lo+1]*frac
	}
	return out
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func maxAbs(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

// meanNearest averages, over every point of (xv, xi), the distance to the
// nearest point of (yv, yi).
func meanNearest(xv, xi, yv, yi []float64) float64 {
	total := 0.0
	for k := range xv {
		best := math.Inf(1)
		for j := range yv {
			best = math.Min(best, math.Hypot(xv[k]-yv[j], xi[k]-yi[j]))
		}
		total += best
	}
	return total / float64(len(xv))
}
