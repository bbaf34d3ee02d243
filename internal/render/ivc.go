// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"errors"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/pdiddy/board-report/pkg/types"
)

// autoScaleFactor leaves headroom above the largest sample.
const autoScaleFactor = 1.2

var (
	testCurveColor = color.RGBA{R: 255, A: 255}
	refCurveColor  = color.RGBA{B: 255, A: 255}
	gridColor      = color.RGBA{R: 220, G: 220, B: 220, A: 255}
	axisColor      = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	textColor      = color.RGBA{R: 35, G: 43, B: 43, A: 255}
)

// ErrNoMeasurements is returned when a plot is requested for a pin that
// has nothing to draw.
var ErrNoMeasurements = errors.New("pin has no measurements")

// Plot configures IV-curve images.
type Plot struct {
	Width, Height int
	Scaling       types.ScalingType

	// Scales holds user-defined ranges indexed by the record's position in
	// the report.
	Scales []*types.AxisScale
}

// DefaultPlot returns a 300x200 plot with automatic scaling.
func DefaultPlot() Plot {
	return Plot{Width: 300, Height: 200, Scaling: types.ScalingAuto}
}

// Range returns the half-ranges of the voltage axis (V) and current axis
// (mA) for the record at position index.
func (p Plot) Range(rec types.PinRecord, index int) (vMax, iMax float64) {
	switch p.Scaling {
	case types.ScalingEyePointP10:
		if len(rec.Measurements) > 0 {
			s := rec.Measurements[0].Settings
			if s.MaxVoltage > 0 && s.InternalResistance > 0 {
				v := autoScaleFactor * s.MaxVoltage
				return v, 1000 * v / s.InternalResistance
			}
		}
	case types.ScalingUserDefined:
		if index >= 0 && index < len(p.Scales) && p.Scales[index] != nil {
			sc := p.Scales[index]
			if sc.Voltage > 0 && sc.Current > 0 {
				return sc.Voltage, 1000 * sc.Current
			}
		}
	}

	var maxV, maxI float64
	for _, m := range rec.Measurements {
		for _, v := range m.IVC.Voltages {
			maxV = math.Max(maxV, math.Abs(v))
		}
		for _, i := range m.IVC.Currents {
			maxI = math.Max(maxI, math.Abs(i))
		}
	}
	vMax, iMax = autoScaleFactor*maxV, autoScaleFactor*1000*maxI
	if vMax == 0 {
		vMax = 1
	}
	if iMax == 0 {
		iMax = 1
	}
	return vMax, iMax
}

// DrawIVC writes a PNG plot of the record's curves: the test curve in red
// and the reference curve in blue on top of it.
func DrawIVC(rec types.PinRecord, index int, plot Plot, path string) error {
	if len(rec.Measurements) == 0 {
		return ErrNoMeasurements
	}
	w, h := plot.Width, plot.Height
	if w <= 0 || h <= 0 {
		w, h = DefaultPlot().Width, DefaultPlot().Height
	}
	vMax, iMax := plot.Range(rec, index)

	const (
		left   = 52
		right  = 8
		top    = 8
		bottom = 20
	)
	dst := newCanvas(w, h)
	pw, ph := float64(w-left-right), float64(h-top-bottom)
	toX := func(v float64) float64 { return left + (v+vMax)/(2*vMax)*pw }
	toY := func(i float64) float64 { return top + (iMax-i)/(2*iMax)*ph }

	const divisions = 4
	for k := 0; k <= divisions; k++ {
		f := float64(k) / divisions
		c := gridColor
		if k == divisions/2 {
			c = axisColor
		}
		x := left + f*pw
		y := top + f*ph
		line(dst, x, top, x, top+ph, 1, c)
		line(dst, left, y, left+pw, y, 1, c)
	}

	label(dst, 2, top, formatTick(iMax), textColor)
	label(dst, 2, top+int(ph)-13, formatTick(-iMax), textColor)
	label(dst, left, h-bottom+4, formatTick(-vMax), textColor)
	maxLabel := formatTick(vMax)
	label(dst, w-right-labelWidth(maxLabel), h-bottom+4, maxLabel, textColor)

	if m, ok := rec.TestMeasurement(); ok {
		polyline(dst, m.IVC, toX, toY, 2, testCurveColor)
	}
	if m, ok := rec.ReferenceMeasurement(); ok {
		polyline(dst, m.IVC, toX, toY, 1, refCurveColor)
	}
	return savePNG(dst, path)
}

func polyline(dst *image.RGBA, c types.IVCurve, toX, toY func(float64) float64, width float64, col color.RGBA) {
	n := c.Len()
	for k := 1; k < n; k++ {
		line(dst, toX(c.Voltages[k-1]), toY(1000*c.Currents[k-1]), toX(c.Voltages[k]), toY(1000*c.Currents[k]), width, col)
	}
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'g', 3, 64)
}
