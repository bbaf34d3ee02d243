// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/board-report/internal/classify"
	"github.com/pdiddy/board-report/internal/i18n"
	"github.com/pdiddy/board-report/internal/opener"
	"github.com/pdiddy/board-report/internal/render"
	"github.com/pdiddy/board-report/internal/report"
	"github.com/pdiddy/board-report/pkg/types"
)

// Step names, in execution order.
const (
	StepCreateDirs          = "create_dirs"
	StepDetectMode          = "detect_mode"
	StepClassify            = "classify"
	StepFaultyPins          = "faulty_pins"
	StepDrawClearBoard      = "draw_clear_board"
	StepDrawBoardWithPins   = "draw_board_with_pins"
	StepDrawBoardWithFaulty = "draw_board_with_faulty_pins"
	StepDrawFaultHistogram  = "draw_fault_histogram"
	StepDrawIVC             = "draw_ivc"
	StepDrawPins            = "draw_pins"
	StepCopyStaticFiles     = "copy_static_files"
	StepGenerateMapReport   = "generate_map_report"
	StepGenerateFullReport  = "generate_full_report"
	StepGenerateShortReport = "generate_report"
)

// FixedSteps is the number of progress units after classification that do
// not depend on the pin count; PerPinSteps is the number per selected pin.
const (
	FixedSteps  = 9
	PerPinSteps = 2
)

// TotalSteps returns the progress units of a run over pins selected pins.
func TotalSteps(pins int) int {
	return FixedSteps + pins*PerPinSteps
}

// step is one pipeline stage. fn reports whether it did meaningful work.
// Per-pin steps emit their own step_done events, one per pin.
type step struct {
	name   string
	perPin bool
	fn     func(ctx context.Context) (bool, error)
}

// run holds the state of one Run call.
type run struct {
	g     *Generator
	cfg   types.ReportConfig
	board *types.Board
	loc   *i18n.Localizer
	id    string

	started   time.Time
	dir       string
	staticDir string
	imgDir    string

	mode     types.ReportMode
	records  []types.PinRecord
	faulty   []types.PinRecord
	diameter int

	writer  *report.Writer
	steps   map[string]bool
	reports map[types.ReportType]string
}

func newRun(g *Generator) *run {
	return &run{
		g:       g,
		cfg:     g.cfg,
		board:   g.board,
		loc:     i18n.New(g.cfg.English),
		id:      uuid.NewString(),
		started: g.now(),
		mode:    g.cfg.Mode,
		steps:   make(map[string]bool),
		reports: make(map[types.ReportType]string),
	}
}

func (r *run) plan() []step {
	steps := []step{{name: StepCreateDirs, fn: r.createDirs}}
	if r.cfg.Mode == types.ModeAuto {
		steps = append(steps, step{name: StepDetectMode, fn: r.detectMode})
	}
	return append(steps,
		step{name: StepClassify, fn: r.classify},
		step{name: StepFaultyPins, fn: r.faultyPins},
		step{name: StepDrawClearBoard, fn: r.drawClearBoard},
		step{name: StepDrawBoardWithPins, fn: r.drawBoardWithPins},
		step{name: StepDrawBoardWithFaulty, fn: r.drawBoardWithFaulty},
		step{name: StepDrawFaultHistogram, fn: r.drawFaultHistogram},
		step{name: StepDrawIVC, perPin: true, fn: r.drawIVC},
		step{name: StepDrawPins, perPin: true, fn: r.drawPins},
		step{name: StepCopyStaticFiles, fn: r.copyStaticFiles},
		step{name: StepGenerateMapReport, fn: r.generateMapReport},
		step{name: StepGenerateFullReport, fn: r.generateFullReport},
		step{name: StepGenerateShortReport, fn: r.generateShortReport},
	)
}

func (r *run) execute(ctx context.Context) error {
	for _, s := range r.plan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.g.emit(Event{Kind: EventStepStarted, Step: s.name})
		begin := time.Now()
		done, err := s.fn(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		d := time.Since(begin)
		r.steps[s.name] = done
		r.g.metrics.ObserveStep(s.name, d, done)
		r.g.logger.Debug("step finished", "run_id", r.id, "step", s.name, "done", done, "duration", d)
		if !s.perPin {
			r.g.emit(Event{Kind: EventStepDone, Step: s.name, Done: done})
		}
		// Progress units start after classification's own step_done.
		if s.name == StepClassify {
			r.g.emit(Event{Kind: EventTotalSteps, Total: TotalSteps(len(r.records))})
		}
	}
	return nil
}

func (r *run) result() *Result {
	return &Result{
		ID:      r.id,
		Dir:     r.dir,
		Mode:    r.mode,
		Records: r.records,
		Faulty:  r.faulty,
		Steps:   r.steps,
		Reports: r.reports,
	}
}

func (r *run) createDirs(context.Context) (bool, error) {
	dir := report.DirName(r.cfg.OutputDir, report.DirBase, r.started)
	if err := report.CreateDirs(dir); err != nil {
		return false, err
	}
	r.dir = dir
	r.staticDir = filepath.Join(dir, report.StaticDir)
	r.imgDir = filepath.Join(r.staticDir, report.ImgDir)
	return true, nil
}

func (r *run) detectMode(ctx context.Context) (bool, error) {
	mode, err := classify.DetectMode(ctx, r.board)
	if err != nil {
		return false, err
	}
	r.mode = mode
	return true, nil
}

func (r *run) classify(ctx context.Context) (bool, error) {
	records, err := classify.Pins(ctx, r.board, classify.Options{
		Scope:           r.cfg.Scope,
		Tolerance:       r.cfg.Tolerance,
		Mode:            r.mode,
		NoiseAmplitudes: r.cfg.NoiseAmplitudes,
		Comparator:      r.g.comparator,
	})
	if err != nil {
		return false, err
	}
	r.records = records
	return len(records) > 0, nil
}

func (r *run) faultyPins(context.Context) (bool, error) {
	r.faulty = classify.FaultyPins(r.records, r.cfg.Tolerance)
	return r.cfg.Tolerance != nil, nil
}

func (r *run) drawClearBoard(context.Context) (bool, error) {
	if r.board.Image == nil {
		return false, nil
	}
	r.diameter = render.PinDiameter(r.board.Image)
	return true, render.SaveClearBoard(r.board.Image, filepath.Join(r.imgDir, report.BoardClearFile))
}

func (r *run) drawBoardWithPins(ctx context.Context) (bool, error) {
	if r.board.Image == nil {
		return false, nil
	}
	return true, render.DrawBoardWithPins(ctx, r.board.Image, r.records, filepath.Join(r.imgDir, report.BoardFile), r.diameter)
}

func (r *run) drawBoardWithFaulty(ctx context.Context) (bool, error) {
	if r.board.Image == nil {
		return false, nil
	}
	return true, render.DrawBoardWithPins(ctx, r.board.Image, r.faulty, filepath.Join(r.imgDir, report.BoardFaultyFile), r.diameter)
}

func (r *run) drawFaultHistogram(context.Context) (bool, error) {
	scores := classify.Scores(r.records)
	if r.cfg.Tolerance == nil || len(scores) == 0 {
		return false, nil
	}
	tol := *r.cfg.Tolerance
	if err := render.DrawFaultHistogram(scores, tol, filepath.Join(r.staticDir, report.HistogramFile)); err != nil {
		return false, err
	}
	labels := render.HistogramLabels{
		Title:     r.loc.T("Fault histogram"),
		Good:      r.loc.T("Good pins"),
		Bad:       r.loc.T("Faulty pins"),
		Tolerance: r.loc.T("Tolerance"),
		XAxis:     r.loc.T("Fault distribution"),
		YAxis:     r.loc.T("Number of faults"),
	}
	return true, render.WriteHistogramChart(scores, tol, labels, filepath.Join(r.staticDir, report.HistogramChartFile))
}

func (r *run) drawIVC(ctx context.Context) (bool, error) {
	plot := render.DefaultPlot()
	plot.Scaling = r.cfg.Scaling
	plot.Scales = r.cfg.UserDefinedScales

	drawn := false
	err := r.eachPin(ctx, StepDrawIVC, func(i int, rec types.PinRecord) (bool, error) {
		err := render.DrawIVC(rec, i, plot, filepath.Join(r.imgDir, report.IVCFile(rec)))
		if errors.Is(err, render.ErrNoMeasurements) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		drawn = true
		return true, nil
	})
	return drawn, err
}

func (r *run) drawPins(ctx context.Context) (bool, error) {
	img := r.board.Image
	size := r.cfg.PinImageSize
	err := r.eachPin(ctx, StepDrawPins, func(_ int, rec types.PinRecord) (bool, error) {
		if img == nil {
			return false, nil
		}
		if err := render.DrawPinCloseup(img, rec, size, r.diameter, filepath.Join(r.imgDir, report.CloseupFile(rec))); err != nil {
			return false, err
		}
		return true, nil
	})
	return img != nil && len(r.records) > 0, err
}

// eachPin calls fn for every record, checking ctx before each one and
// emitting one step_done per pin.
func (r *run) eachPin(ctx context.Context, name string, fn func(int, types.PinRecord) (bool, error)) error {
	for i, rec := range r.records {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := fn(i, rec)
		if err != nil {
			return fmt.Errorf("pin %s: %w", rec.Name(), err)
		}
		r.g.emit(Event{Kind: EventStepDone, Step: name, Done: done})
	}
	return nil
}

func (r *run) copyStaticFiles(ctx context.Context) (bool, error) {
	if err := report.CopyStatic(ctx, r.staticDir); err != nil {
		return false, err
	}
	return true, nil
}

// pageWriter builds the page writer once the render steps are known, so
// the header reflects which images exist.
func (r *run) pageWriter() (*report.Writer, error) {
	if r.writer != nil {
		return r.writer, nil
	}
	info := report.NewGeneralInfo(r.cfg, r.board, r.mode, r.started)
	info.ElementsNumber = classify.ElementsNumber(r.records)
	info.PinsNumber = len(r.records)
	info.FaultyPinsNumber = len(r.faulty)
	info.TestDuration = r.loc.Duration(r.cfg.TestDuration)
	info.HasHistogram = r.steps[StepDrawFaultHistogram]
	info.PinDiameter = r.diameter
	w, err := report.NewWriter(r.dir, r.loc, info)
	if err != nil {
		return nil, err
	}
	r.writer = w
	return w, nil
}

func (r *run) generateMapReport(context.Context) (bool, error) {
	if !r.steps[StepDrawBoardWithPins] {
		return false, nil
	}
	return r.writePage(types.ReportMap, func(w *report.Writer) (string, error) { return w.WriteMap(r.records) })
}

func (r *run) generateFullReport(context.Context) (bool, error) {
	return r.writePage(types.ReportFull, func(w *report.Writer) (string, error) { return w.WriteFull(r.records) })
}

func (r *run) generateShortReport(context.Context) (bool, error) {
	return r.writePage(types.ReportShort, func(w *report.Writer) (string, error) { return w.WriteShort(r.faulty) })
}

func (r *run) writePage(t types.ReportType, write func(*report.Writer) (string, error)) (bool, error) {
	w, err := r.pageWriter()
	if err != nil {
		return false, err
	}
	path, err := write(w)
	if err != nil {
		return false, err
	}
	r.reports[t] = path
	return true, nil
}

// openReports returns the paths of the requested report types that were
// written, and hands them to the opener when one is configured.
func (r *run) openReports(log *slog.Logger) []string {
	if !r.cfg.OpenAtFinish {
		return nil
	}
	var paths []string
	for _, t := range r.cfg.ReportsToOpen {
		if p, ok := r.reports[t]; ok {
			paths = append(paths, p)
		}
	}
	if r.g.opener == nil {
		log.Warn("no opener configured, reports left closed", "reports", paths)
		return paths
	}
	if err := opener.OpenAll(r.g.opener, paths); err != nil {
		log.Warn("opening reports", "error", err)
	}
	return paths
}
