// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package boardio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/board-report/pkg/types"
)

func testBoard() *types.Board {
	return &types.Board{
		PCB: &types.PCBInfo{Name: "board", Comment: "made by hand"},
		Elements: []types.Element{{
			Name: "R1",
			Pins: []types.Pin{{
				X: 10, Y: 20, Comment: "pin",
				Measurements: []types.Measurement{{
					Settings: types.MeasurementSettings{InternalResistance: 475, MaxVoltage: 5, ProbeSignalFrequency: 100},
					IVC:      types.IVCurve{Voltages: []float64{0, 1}, Currents: []float64{0, 0.001}},
				}},
			}},
		}},
	}
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	return img
}

func TestSaveLoad_Formats(t *testing.T) {
	for _, ext := range []string{".json", ".yaml", ".uzf"} {
		t.Run(ext, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "board"+ext)
			require.NoError(t, Save(testBoard(), p))

			got, err := Load(p)
			require.NoError(t, err)
			assert.Equal(t, testBoard().Elements, got.Elements)
			assert.Equal(t, "board", got.PCB.Name)
			assert.Nil(t, got.Image)
		})
	}
}

func TestLoad_JSONWithRelativeImage(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "photo.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, testImage()))
	require.NoError(t, f.Close())

	b := testBoard()
	b.ImagePath = "photo.png"
	p := filepath.Join(dir, "board.json")
	require.NoError(t, Save(b, p))

	got, err := Load(p)
	require.NoError(t, err)
	require.NotNil(t, got.Image)
	assert.Equal(t, 8, got.Image.Bounds().Dx())
}

func TestSaveLoad_UZFKeepsImage(t *testing.T) {
	b := testBoard()
	b.Image = testImage()
	p := filepath.Join(t.TempDir(), "board.uzf")
	require.NoError(t, Save(b, p))

	got, err := Load(p)
	require.NoError(t, err)
	require.NotNil(t, got.Image)
	assert.Equal(t, image.Rect(0, 0, 8, 6), got.Image.Bounds())
	r, _, _, _ := got.Image.At(1, 1).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "board.txt"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	notZip := filepath.Join(dir, "bad.uzf")
	require.NoError(t, os.WriteFile(notZip, []byte("plain"), 0o644))
	_, err = Load(notZip)
	assert.Error(t, err)
}
