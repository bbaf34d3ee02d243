// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sample builds deterministic demonstration boards: three elements
// of three pins whose curves cycle through four shapes and four sets of
// probe settings. Test boards carry multiplicative noise on top of the
// reference shapes so reports show a spread of scores.
package sample

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"

	"github.com/pdiddy/board-report/pkg/types"
)

const (
	elementsNumber = 3
	pinsNumber     = 3
	pointsNumber   = 100
)

type parameters struct {
	frequency  float64
	resistance float64
	maxVoltage float64
	errPercent float64
}

var parameterCycle = []parameters{
	{frequency: 1, resistance: 40, maxVoltage: 1, errPercent: 5},
	{frequency: 100, resistance: 400, maxVoltage: 2, errPercent: 20},
	{frequency: 1000, resistance: 4000, maxVoltage: 3, errPercent: 40},
	{frequency: 100000, resistance: 5000, maxVoltage: 4, errPercent: 60},
}

// ManualBoard returns the demonstration board. A test board has noisy
// curves; a reference board has clean ones. The same seed yields the same
// board.
func ManualBoard(test bool, seed uint64) *types.Board {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	b := &types.Board{
		PCB: &types.PCBInfo{Name: "Manual board", Comment: "This board was made by hand for example"},
	}
	index := 0
	for ei := 0; ei < elementsNumber; ei++ {
		name := fmt.Sprintf("Element_name_%d", ei)
		el := types.Element{Name: name}
		for pi := 0; pi < pinsNumber; pi++ {
			par := parameterCycle[index]
			settings := types.MeasurementSettings{
				SamplingRate:         100 * par.frequency,
				InternalResistance:   par.resistance,
				ProbeSignalFrequency: par.frequency,
				MaxVoltage:           par.maxVoltage,
			}
			errPercent := 0.0
			if test {
				errPercent = par.errPercent
			}
			el.Pins = append(el.Pins, types.Pin{
				X:       float64(ei*100 + pi*2 + 40),
				Y:       float64(ei*100 + pi*2 + 40),
				Comment: fmt.Sprintf("This is comment for pin #%d of element %s", pi, name),
				Measurements: []types.Measurement{{
					Settings:  settings,
					IVC:       Curve(index, errPercent, settings, rng),
					IsDynamic: index%2 == 1,
					Comment:   fmt.Sprintf("This is comment for measurement in pin #%d of element %s", pi, name),
				}},
			})
			index = (index + 1) % len(parameterCycle)
		}
		b.Elements = append(b.Elements, el)
	}
	b.Image = Photo(b, 360, 360)
	return b
}

// Curve returns shape index%4 (heart, shamrock, simple, circle) scaled to
// the probe settings, with each point multiplied by a random factor in
// [1, 1+errPercent/100).
func Curve(index int, errPercent float64, s types.MeasurementSettings, rng *rand.Rand) types.IVCurve {
	t := floats.Span(make([]float64, pointsNumber), 0, 2*math.Pi)
	c := types.IVCurve{
		Currents: make([]float64, pointsNumber),
		Voltages: make([]float64, pointsNumber),
	}
	for k, x := range t {
		e := 1 + errPercent*rng.Float64()/100
		switch index % 4 {
		case 0:
			c.Currents[k] = (13*math.Cos(x) - 5*math.Cos(2*x) - 2*math.Cos(3*x) - math.Cos(4*x)) * e
			c.Voltages[k] = 16 * math.Pow(math.Sin(x), 3) * e
		case 1:
			c.Currents[k] = math.Sin(3*x) * math.Sin(x) * e
			c.Voltages[k] = math.Sin(3*x) * math.Cos(x) * e
		case 2:
			c.Currents[k] = math.Cos(3*x) * e
			c.Voltages[k] = math.Sin(x)
		default:
			c.Currents[k] = math.Cos(x) * e
			c.Voltages[k] = math.Sin(x) * e
		}
	}
	return scale(c, s)
}

// scale stretches the curve so its peaks match the probe amplitude and the
// current that amplitude drives through the internal resistance.
func scale(c types.IVCurve, s types.MeasurementSettings) types.IVCurve {
	maxI := math.Max(floats.Max(c.Currents), -floats.Min(c.Currents))
	maxV := math.Max(floats.Max(c.Voltages), -floats.Min(c.Voltages))
	if maxI > 0 && s.InternalResistance > 0 {
		floats.Scale(s.MaxVoltage/s.InternalResistance/maxI, c.Currents)
	}
	if maxV > 0 {
		floats.Scale(s.MaxVoltage/maxV, c.Voltages)
	}
	return c
}

// Photo draws a stand-in board photograph: a green substrate with a copper
// pad under every pin.
func Photo(b *types.Board, width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 24, G: 92, B: 48, A: 255}}, image.Point{}, draw.Src)
	pad := &image.Uniform{C: color.RGBA{R: 196, G: 150, B: 64, A: 255}}
	for _, e := range b.Elements {
		for _, p := range e.Pins {
			r := image.Rect(int(p.X)-3, int(p.Y)-3, int(p.X)+4, int(p.Y)+4)
			draw.Draw(img, r.Intersect(img.Bounds()), pad, image.Point{}, draw.Src)
		}
	}
	return img
}
