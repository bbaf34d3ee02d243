// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package boardio loads and saves boards. Supported formats are JSON,
// YAML, and UZF archives (a zip holding elements.json and the board
// photograph). Photographs may be PNG, JPEG, BMP, or TIFF.
package boardio

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/board-report/pkg/types"
)

const (
	uzfElements = "elements.json"
	uzfImage    = "image.png"
)

// ErrUnsupportedFormat is returned for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported board file format")

// Load reads a board from path, choosing the format by extension. A
// relative image path in a JSON or YAML file resolves against the board
// file's directory. A missing photograph is not an error; the board simply
// has no image.
func Load(p string) (*types.Board, error) {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".json":
		return loadDocument(p, json.Unmarshal)
	case ".yaml", ".yml":
		return loadDocument(p, yaml.Unmarshal)
	case ".uzf":
		return loadUZF(p)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, p)
}

// Save writes board to path, choosing the format by extension.
func Save(board *types.Board, p string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(p)) {
	case ".json":
		data, err = json.MarshalIndent(board, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(board)
	case ".uzf":
		return saveUZF(board, p)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, p)
	}
	if err != nil {
		return fmt.Errorf("encoding board: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", p, err)
	}
	return os.WriteFile(p, data, 0o644)
}

// LoadImage decodes a photograph from path.
func LoadImage(p string) (image.Image, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()
	return decodeImage(f, p)
}

func decodeImage(r io.Reader, name string) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", name, err)
	}
	return img, nil
}

func loadDocument(p string, unmarshal func([]byte, any) error) (*types.Board, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading board file: %w", err)
	}
	var board types.Board
	if err := unmarshal(data, &board); err != nil {
		return nil, fmt.Errorf("parsing board file %s: %w", p, err)
	}
	if board.ImagePath != "" {
		imgPath := board.ImagePath
		if !filepath.IsAbs(imgPath) {
			imgPath = filepath.Join(filepath.Dir(p), imgPath)
		}
		if _, err := os.Stat(imgPath); err == nil {
			img, err := LoadImage(imgPath)
			if err != nil {
				return nil, err
			}
			board.Image = img
		}
	}
	return &board, nil
}

func loadUZF(p string) (*types.Board, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", p, err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[path.Clean(f.Name)] = f
	}

	ef, ok := files[uzfElements]
	if !ok {
		return nil, fmt.Errorf("archive %s has no %s", p, uzfElements)
	}
	data, err := readZipFile(ef)
	if err != nil {
		return nil, err
	}
	var board types.Board
	if err := json.Unmarshal(data, &board); err != nil {
		return nil, fmt.Errorf("parsing %s in %s: %w", uzfElements, p, err)
	}

	name := board.ImagePath
	if name == "" {
		name = uzfImage
	}
	if f, ok := files[path.Clean(name)]; ok {
		raw, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		img, err := decodeImage(bytes.NewReader(raw), name)
		if err != nil {
			return nil, err
		}
		board.Image = img
	}
	return &board, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	return data, nil
}

func saveUZF(board *types.Board, p string) error {
	out := *board
	if board.Image != nil {
		out.ImagePath = uzfImage
	} else {
		out.ImagePath = ""
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding board: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(uzfElements)
	if err != nil {
		return fmt.Errorf("creating %s: %w", uzfElements, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", uzfElements, err)
	}
	if board.Image != nil {
		w, err := zw.Create(uzfImage)
		if err != nil {
			return fmt.Errorf("creating %s: %w", uzfImage, err)
		}
		if err := png.Encode(w, board.Image); err != nil {
			return fmt.Errorf("encoding image: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", p, err)
	}
	return os.WriteFile(p, buf.Bytes(), 0o644)
}
