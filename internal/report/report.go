// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes the HTML pages of an inspection report and the
// static assets they load. Pages link to images under static/ that the
// render package produces.
package report

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/k3a/html2text"

	"github.com/pdiddy/board-report/internal/i18n"
	"github.com/pdiddy/board-report/pkg/types"
)

// Directory layout inside a report directory.
const (
	StaticDir  = "static"
	ImgDir     = "img"
	ScriptsDir = "scripts"
	StylesDir  = "styles"

	BoardClearFile     = "board_clear.jpeg"
	BoardFile          = "board.jpeg"
	BoardFaultyFile    = "board_with_bad_pins.jpeg"
	HistogramFile      = "fault_histogram.jpeg"
	HistogramChartFile = "fault_histogram.html"

	// DirBase prefixes every report directory name.
	DirBase = "report"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed all:static
var staticFS embed.FS

// IVCFile returns the IV-curve image name of a record.
func IVCFile(rec types.PinRecord) string { return rec.Name() + "_iv.png" }

// CloseupFile returns the close-up image name of a record.
func CloseupFile(rec types.PinRecord) string { return rec.Name() + "_pin.png" }

// DirName returns "<parent>/<base> YYYY-MM-DD HH-MM-SS", appending " 2",
// " 3", and so on until the path does not exist.
func DirName(parent, base string, now time.Time) string {
	name := fmt.Sprintf("%s %s", base, now.Format("2006-01-02 15-04-05"))
	candidate := name
	for i := 2; ; i++ {
		p := filepath.Join(parent, candidate)
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
		candidate = name + " " + strconv.Itoa(i)
	}
}

// CreateDirs creates the report directory and its static subdirectories.
func CreateDirs(dir string) error {
	for _, sub := range []string{ImgDir, ScriptsDir, StylesDir} {
		if err := os.MkdirAll(filepath.Join(dir, StaticDir, sub), 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	return nil
}

// CopyStatic copies the embedded styles, scripts, and icons into
// staticDir, checking ctx before each file.
func CopyStatic(ctx context.Context, staticDir string) error {
	root, err := fs.Sub(staticFS, StaticDir)
	if err != nil {
		return err
	}
	return fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := filepath.Join(staticDir, filepath.FromSlash(p))
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		data, err := fs.ReadFile(root, p)
		if err != nil {
			return fmt.Errorf("reading embedded %s: %w", p, err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dst, err)
		}
		return nil
	})
}

// GeneralInfo is the header block shared by every page.
type GeneralInfo struct {
	AppName    string
	AppVersion string
	Computer   string
	OS         string
	Date       string

	PCBName    string
	PCBComment string

	Mode             types.ReportMode
	ElementsNumber   int
	PinsNumber       int
	FaultyPinsNumber int
	Tolerance        *float64
	TestDuration     string

	HasBoardImage bool
	HasHistogram  bool
	PinDiameter   int
	PinImageSize  int
}

// HasTolerance reports whether a tolerance was set.
func (g GeneralInfo) HasTolerance() bool { return g.Tolerance != nil }

// NewGeneralInfo fills the environment fields (computer, OS, date) and
// copies the rest from its arguments.
func NewGeneralInfo(cfg types.ReportConfig, board *types.Board, mode types.ReportMode, now time.Time) GeneralInfo {
	computer, err := os.Hostname()
	if err != nil || computer == "" {
		computer = "unknown"
	}
	info := GeneralInfo{
		AppName:       cfg.AppName,
		AppVersion:    cfg.AppVersion,
		Computer:      computer,
		OS:            runtime.GOOS + "/" + runtime.GOARCH,
		Date:          now.Format("2006-01-02 15:04:05"),
		Mode:          mode,
		Tolerance:     cfg.Tolerance,
		HasBoardImage: board.Image != nil,
		PinImageSize:  cfg.PinImageSize,
	}
	if board.PCB != nil {
		info.PCBName = board.PCB.Name
		info.PCBComment = board.PCB.Comment
	}
	return info
}

// PinView is a record as shown on a page.
type PinView struct {
	Record     types.PinRecord
	Name       string
	Settings   *types.MeasurementSettings
	HasIVC     bool
	HasCloseup bool
}

type page struct {
	Lang   string
	Title  string
	Info   GeneralInfo
	Pins   []PinView
	Radius int
}

// Writer renders pages into a report directory.
type Writer struct {
	dir  string
	loc  *i18n.Localizer
	info GeneralInfo
	tmpl *template.Template
}

// NewWriter parses the page templates.
func NewWriter(dir string, loc *i18n.Localizer, info GeneralInfo) (*Writer, error) {
	funcs := template.FuncMap{
		"t":       loc.T,
		"pinType": loc.PinType,
		"color":   func(t types.PinType) string { return t.Color() },
		"score":   formatScore,
		"tolerance": func(t *float64) string {
			if t == nil {
				return loc.T("Not set")
			}
			return strconv.FormatFloat(*t, 'f', -1, 64) + "%"
		},
	}
	tmpl, err := template.New("report").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing report templates: %w", err)
	}
	return &Writer{dir: dir, loc: loc, info: info, tmpl: tmpl}, nil
}

// Path returns the file path of a report page.
func (w *Writer) Path(t types.ReportType) string {
	return filepath.Join(w.dir, t.FileName())
}

// WriteMap writes the clickable board map.
func (w *Writer) WriteMap(records []types.PinRecord) (string, error) {
	return w.write(types.ReportMap, w.loc.T("Board map"), records)
}

// WriteFull writes the report listing every selected pin.
func (w *Writer) WriteFull(records []types.PinRecord) (string, error) {
	return w.write(types.ReportFull, w.loc.T("Full report"), records)
}

// WriteShort writes the report listing only faulty pins.
func (w *Writer) WriteShort(faulty []types.PinRecord) (string, error) {
	return w.write(types.ReportShort, w.loc.T("Report"), faulty)
}

func (w *Writer) write(t types.ReportType, title string, records []types.PinRecord) (string, error) {
	p := page{
		Lang:   w.loc.Lang(),
		Title:  title,
		Info:   w.info,
		Pins:   w.views(records),
		Radius: w.info.PinDiameter / 2,
	}
	path := w.Path(t)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := w.tmpl.ExecuteTemplate(f, t.FileName(), p); err != nil {
		f.Close()
		return "", fmt.Errorf("rendering %s: %w", t.FileName(), err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Writer) views(records []types.PinRecord) []PinView {
	views := make([]PinView, 0, len(records))
	for _, r := range records {
		v := PinView{
			Record:     r,
			Name:       r.Name(),
			HasIVC:     len(r.Measurements) > 0,
			HasCloseup: w.info.HasBoardImage,
		}
		if len(r.Measurements) > 0 {
			s := r.Measurements[0].Settings
			v.Settings = &s
		}
		views = append(views, v)
	}
	return views
}

func formatScore(s *float64) string {
	if s == nil {
		return "-"
	}
	return strconv.FormatFloat(*s, 'f', 1, 64)
}

// TextSummary returns the plain-text rendering of a generated page.
func TextSummary(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return html2text.HTML2Text(string(data)), nil
}
