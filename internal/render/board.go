// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"
	"image"

	"github.com/pdiddy/board-report/pkg/types"
)

const (
	minPinDiameter = 6
	maxPinDiameter = 40
)

// PinDiameter returns the marker diameter for a board photograph: a
// hundredth of its width, kept within [6, 40] pixels.
func PinDiameter(img image.Image) int {
	if img == nil {
		return minPinDiameter
	}
	d := img.Bounds().Dx() / 100
	if d < minPinDiameter {
		return minPinDiameter
	}
	if d > maxPinDiameter {
		return maxPinDiameter
	}
	return d
}

// SaveClearBoard writes the photograph as an opaque JPEG.
func SaveClearBoard(img image.Image, path string) error {
	return saveJPEG(toRGBA(img), path)
}

// DrawBoardWithPins writes the photograph with a colored marker on every
// record's position. It checks ctx once per pin.
func DrawBoardWithPins(ctx context.Context, img image.Image, records []types.PinRecord, path string, diameter int) error {
	dst := toRGBA(img)
	off := img.Bounds().Min
	r := float64(diameter) / 2
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		marker(dst, rec.X-float64(off.X), rec.Y-float64(off.Y), r, mustColor(rec.Type.Color()))
	}
	return saveJPEG(dst, path)
}
