// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HistogramBins is the number of one-percent score bins.
const HistogramBins = 100

const (
	goodColorHex = "#46CB18"
	badColorHex  = "#E03C31"
	tolColorHex  = "#232B2B"
	barAlpha     = 0.7
	barWidth     = 0.85
)

// HistogramLabels holds the localized texts of the fault histogram.
type HistogramLabels struct {
	Title     string
	Good      string
	Bad       string
	Tolerance string
	XAxis     string
	YAxis     string
}

// Histogram counts scores into 100 bins over [0, 100], separately for good
// scores (below tolerance) and bad ones (at or above it). Scores outside
// the range are clamped.
func Histogram(scores []float64, tolerance float64) (good, bad []float64) {
	dividers := floats.Span(make([]float64, HistogramBins+1), 0, 100)
	dividers[HistogramBins] = math.Nextafter(100, math.Inf(1))

	var g, b []float64
	for _, s := range scores {
		s = math.Min(math.Max(s, 0), 100)
		if s < tolerance {
			g = append(g, s)
		} else {
			b = append(b, s)
		}
	}
	sort.Float64s(g)
	sort.Float64s(b)
	good = make([]float64, HistogramBins)
	bad = make([]float64, HistogramBins)
	if len(g) > 0 {
		stat.Histogram(good, dividers, g, nil)
	}
	if len(b) > 0 {
		stat.Histogram(bad, dividers, b, nil)
	}
	return good, bad
}

// DrawFaultHistogram writes a 1000x800 JPEG histogram with a symmetric-log
// count axis and a vertical tolerance line.
func DrawFaultHistogram(scores []float64, tolerance float64, path string) error {
	const (
		w, h   = 1000, 800
		left   = 60
		right  = 20
		top    = 20
		bottom = 40
	)
	good, bad := Histogram(scores, tolerance)
	maxCount := math.Max(floats.Max(good), floats.Max(bad))
	yTop := symlog(math.Max(maxCount, 1)) * 1.1

	dst := newCanvas(w, h)
	pw, ph := float64(w-left-right), float64(h-top-bottom)
	toX := func(score float64) float64 { return left + score/100*pw }
	toY := func(count float64) float64 { return top + ph - symlog(count)/yTop*ph }

	line(dst, left, top+ph, left+pw, top+ph, 1, axisColor)
	line(dst, left, top, left, top+ph, 1, axisColor)
	for s := 0; s <= 100; s += 10 {
		x := toX(float64(s))
		line(dst, x, top+ph, x, top+ph+4, 1, axisColor)
		txt := strconv.Itoa(s)
		label(dst, int(x)-labelWidth(txt)/2, h-bottom+8, txt, textColor)
	}
	for c := 1.0; c <= math.Max(maxCount, 1); c *= 10 {
		y := toY(c)
		line(dst, left, y, left+pw, y, 1, gridColor)
		txt := strconv.Itoa(int(c))
		label(dst, left-6-labelWidth(txt), int(y)-6, txt, textColor)
	}

	goodColor := blend(mustColor(goodColorHex), barAlpha)
	badColor := blend(mustColor(badColorHex), barAlpha)
	binW := pw / HistogramBins
	for i := 0; i < HistogramBins; i++ {
		x0 := left + float64(i)*binW + binW*(1-barWidth)/2
		x1 := x0 + binW*barWidth
		if good[i] > 0 {
			fillRect(dst, x0, toY(good[i]), x1, top+ph, goodColor)
		}
		if bad[i] > 0 {
			fillRect(dst, x0, toY(bad[i]), x1, top+ph, badColor)
		}
	}

	tx := toX(math.Min(math.Max(tolerance, 0), 100))
	line(dst, tx, top, tx, top+ph, 2, mustColor(tolColorHex))
	return saveJPEG(dst, path)
}

// symlog compresses counts logarithmically while keeping zero at zero.
func symlog(c float64) float64 {
	return math.Log10(1 + c)
}

// blend mixes c over white with the given opacity.
func blend(c color.RGBA, alpha float64) color.RGBA {
	mix := func(v uint8) uint8 { return uint8(math.Round(float64(v)*alpha + 255*(1-alpha))) }
	return color.RGBA{R: mix(c.R), G: mix(c.G), B: mix(c.B), A: 255}
}

// WriteHistogramChart writes an interactive HTML bar chart of the same
// bins as DrawFaultHistogram.
func WriteHistogramChart(scores []float64, tolerance float64, labels HistogramLabels, path string) error {
	good, bad := Histogram(scores, tolerance)
	bins := make([]string, HistogramBins)
	goodData := make([]opts.BarData, HistogramBins)
	badData := make([]opts.BarData, HistogramBins)
	for i := range bins {
		bins[i] = fmt.Sprintf("%d-%d", i, i+1)
		goodData[i] = opts.BarData{Value: int(good[i])}
		badData[i] = opts.BarData{Value: int(bad[i])}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: labels.Title,
			Width:     "1000px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    labels.Title,
			Subtitle: fmt.Sprintf("%s: %g%%", labels.Tolerance, tolerance),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: labels.XAxis}),
		charts.WithYAxisOpts(opts.YAxis{Name: labels.YAxis}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:  "slider",
			Start: 0,
			End:   100,
		}),
	)
	bar.SetXAxis(bins).
		AddSeries(labels.Good, goodData, charts.WithItemStyleOpts(opts.ItemStyle{Color: goodColorHex})).
		AddSeries(labels.Bad, badData, charts.WithItemStyleOpts(opts.ItemStyle{Color: badColorHex}))

	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := bar.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("rendering histogram chart: %w", err)
	}
	return f.Close()
}
