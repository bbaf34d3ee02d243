// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/pdiddy/board-report/pkg/types"
)

// closeupScale enlarges pin close-ups so the pads stay legible.
const closeupScale = 2

// PinBorders returns the [lo, hi) span of a size-wide window centered on
// center, shifted to stay inside [0, limit] where possible.
func PinBorders(center float64, limit, size int) (lo, hi int) {
	c := int(center)
	lo = c - size/2
	hi = c + size/2
	if hi > limit {
		lo -= hi - limit
		hi = limit
	}
	if lo < 0 {
		hi += -lo
		lo = 0
	}
	return lo, hi
}

// DrawPinCloseup crops a size x size window of the photograph around the
// record, marks the pin in its type color, and writes a PNG at twice the
// crop size.
func DrawPinCloseup(img image.Image, rec types.PinRecord, size int, diameter int, path string) error {
	b := img.Bounds()
	x0, x1 := PinBorders(rec.X-float64(b.Min.X), b.Dx(), size)
	y0, y1 := PinBorders(rec.Y-float64(b.Min.Y), b.Dy(), size)
	crop := image.Rect(x0, y0, x1, y1).Add(b.Min)

	src := newCanvas(crop.Dx(), crop.Dy())
	draw.Draw(src, src.Bounds(), img, crop.Min, draw.Over)
	marker(src, rec.X-float64(crop.Min.X), rec.Y-float64(crop.Min.Y), float64(diameter)/2, mustColor(rec.Type.Color()))

	dst := image.NewRGBA(image.Rect(0, 0, crop.Dx()*closeupScale, crop.Dy()*closeupScale))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return savePNG(dst, path)
}
