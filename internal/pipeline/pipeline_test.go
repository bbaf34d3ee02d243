// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/board-report/internal/classify"
	"github.com/pdiddy/board-report/internal/history"
	"github.com/pdiddy/board-report/internal/metrics"
	"github.com/pdiddy/board-report/internal/report"
	"github.com/pdiddy/board-report/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ptr(f float64) *float64 { return &f }

func curve() types.IVCurve {
	return types.IVCurve{
		Voltages: []float64{-5, -2.5, 0, 2.5, 5},
		Currents: []float64{-0.05, -0.025, 0, 0.025, 0.05},
	}
}

func measurement(ref bool) types.Measurement {
	return types.Measurement{
		Settings:    types.MeasurementSettings{InternalResistance: 100, MaxVoltage: 5, ProbeSignalFrequency: 100},
		IVC:         curve(),
		IsReference: ref,
	}
}

func photo(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return img
}

// unifiedBoard builds elements x pins with a test and a reference
// measurement on every pin.
func unifiedBoard(elements, pins int, withImage bool) *types.Board {
	b := &types.Board{PCB: &types.PCBInfo{Name: "Test board"}}
	for e := 0; e < elements; e++ {
		el := types.Element{Name: "U" + string(rune('1'+e))}
		for p := 0; p < pins; p++ {
			el.Pins = append(el.Pins, types.Pin{
				X:            float64(20 + 30*p),
				Y:            float64(20 + 30*e),
				Measurements: []types.Measurement{measurement(false), measurement(true)},
			})
		}
		b.Elements = append(b.Elements, el)
	}
	if withImage {
		b.Image = photo(200, 160)
	}
	return b
}

func testConfig(t *testing.T) types.ReportConfig {
	t.Helper()
	cfg := types.DefaultReportConfig()
	cfg.OutputDir = t.TempDir()
	cfg.English = true
	return cfg
}

// recorder collects events and is safe for use from the run goroutine.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ks []EventKind
	for _, e := range r.events {
		ks = append(ks, e.Kind)
	}
	return ks
}

func (r *recorder) find(kind EventKind) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Kind == kind {
			return e, true
		}
	}
	return Event{}, false
}

func TestRun_EmptyBoard(t *testing.T) {
	cfg := testConfig(t)
	g, err := New(&types.Board{}, cfg)
	require.NoError(t, err)

	res, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, StateCompleted, g.State())
	assert.Empty(t, res.Records)

	assert.FileExists(t, filepath.Join(res.Dir, "report.html"))
	assert.FileExists(t, filepath.Join(res.Dir, "report_full.html"))
	assert.NoFileExists(t, filepath.Join(res.Dir, "full_img.html"))
	assert.DirExists(t, filepath.Join(res.Dir, report.StaticDir))
	assert.FileExists(t, filepath.Join(res.Dir, report.StaticDir, report.StylesDir, "report.css"))

	assert.False(t, res.Steps[StepGenerateMapReport])
	assert.True(t, res.Steps[StepGenerateFullReport])
	assert.True(t, res.Steps[StepGenerateShortReport])
	assert.NotContains(t, res.Reports, types.ReportMap)
}

func TestRun_IdenticalCurvesAreLowScore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tolerance = ptr(20)
	cfg.Mode = types.ModeTest

	g, err := New(unifiedBoard(1, 3, true), cfg)
	require.NoError(t, err)
	res, err := g.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateCompleted, res.State)

	require.Len(t, res.Records, 3)
	for _, rec := range res.Records {
		require.NotNil(t, rec.Score)
		assert.Equal(t, 0.0, *rec.Score)
		assert.Equal(t, types.PinTestLowScore, rec.Type)
	}
	assert.Empty(t, res.Faulty)

	img := filepath.Join(res.Dir, report.StaticDir, report.ImgDir)
	for _, f := range []string{report.BoardClearFile, report.BoardFile, report.BoardFaultyFile, "0_0_iv.png", "0_2_pin.png"} {
		assert.FileExists(t, filepath.Join(img, f))
	}
	assert.FileExists(t, filepath.Join(res.Dir, report.StaticDir, report.HistogramFile))
	assert.FileExists(t, filepath.Join(res.Dir, report.StaticDir, report.HistogramChartFile))
	assert.FileExists(t, filepath.Join(res.Dir, "full_img.html"))
	assert.Equal(t, filepath.Join(res.Dir, "full_img.html"), res.Reports[types.ReportMap])
}

func TestRun_AutoModeDetectsReference(t *testing.T) {
	b := &types.Board{Elements: []types.Element{{Name: "R1", Pins: []types.Pin{
		{Measurements: []types.Measurement{measurement(true)}},
		{IsLoss: true, Measurements: []types.Measurement{measurement(true)}},
		{},
	}}}}
	g, err := New(b, testConfig(t))
	require.NoError(t, err)
	res, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.ModeReference, res.Mode)
	assert.True(t, res.Steps[StepDetectMode])
	require.Len(t, res.Records, 3)
	assert.Equal(t, types.PinReferenceNotEmpty, res.Records[0].Type)
	assert.Equal(t, types.PinReferenceLoss, res.Records[1].Type)
	assert.Equal(t, types.PinReferenceEmpty, res.Records[2].Type)
}

func TestRun_GlobalIndexIgnoresScope(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = types.ModeTest
	cfg.Scope = types.Scope{Elements: []int{1}}

	g, err := New(unifiedBoard(2, 3, false), cfg)
	require.NoError(t, err)
	res, err := g.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	for i, rec := range res.Records {
		assert.Equal(t, 1, rec.ElementIndex)
		assert.Equal(t, 3+i, rec.TotalPinIndex)
	}
}

func TestRun_EventOrder(t *testing.T) {
	rec := &recorder{}
	cfg := testConfig(t)
	cfg.Tolerance = ptr(10)
	cfg.Mode = types.ModeTest

	g, err := New(unifiedBoard(1, 2, true), cfg, WithObserver(rec))
	require.NoError(t, err)
	_, err = g.Run(context.Background())
	require.NoError(t, err)

	kinds := rec.kinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, EventRunStarted, kinds[0])
	assert.Equal(t, EventFinished, kinds[len(kinds)-1])

	total, ok := rec.find(EventTotalSteps)
	require.True(t, ok)
	assert.Equal(t, TotalSteps(2), total.Total)

	// Every progress unit after total_steps is one step_done.
	seen := false
	units := 0
	var started []string
	for i, e := range rec.events {
		switch e.Kind {
		case EventTotalSteps:
			seen = true
			require.Positive(t, i)
			prev := rec.events[i-1]
			assert.Equal(t, EventStepDone, prev.Kind)
			assert.Equal(t, StepClassify, prev.Step, "classification completes before progress is announced")
		case EventStepDone:
			if seen {
				units++
			}
		case EventStepStarted:
			started = append(started, e.Step)
		}
	}
	assert.Equal(t, total.Total, units)
	assert.Equal(t, []string{
		StepCreateDirs, StepClassify, StepFaultyPins, StepDrawClearBoard, StepDrawBoardWithPins,
		StepDrawBoardWithFaulty, StepDrawFaultHistogram, StepDrawIVC, StepDrawPins, StepCopyStaticFiles,
		StepGenerateMapReport, StepGenerateFullReport, StepGenerateShortReport,
	}, started)

	finished, _ := rec.find(EventFinished)
	assert.NotEmpty(t, finished.Dir)
}

func TestRun_StopDuringPerPinSteps(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = types.ModeTest

	var g *Generator
	perPin := 0
	obs := ObserverFunc(func(e Event) {
		if e.Kind == EventStepDone && (e.Step == StepDrawIVC || e.Step == StepDrawPins) {
			perPin++
			if perPin == 2 {
				g.Stop()
			}
		}
	})
	rec := &recorder{}
	var err error
	g, err = New(unifiedBoard(1, 5, true), cfg, WithObserver(ObserverFunc(func(e Event) {
		obs(e)
		rec.Notify(e)
	})))
	require.NoError(t, err)

	res, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateStopped, res.State)
	assert.Equal(t, StateStopped, g.State())

	ivcs, err := filepath.Glob(filepath.Join(res.Dir, report.StaticDir, report.ImgDir, "*_iv.png"))
	require.NoError(t, err)
	closeups, err := filepath.Glob(filepath.Join(res.Dir, report.StaticDir, report.ImgDir, "*_pin.png"))
	require.NoError(t, err)
	assert.Less(t, len(ivcs)+len(closeups), 10)
	assert.Len(t, ivcs, 2)

	_, failed := rec.find(EventFailed)
	assert.False(t, failed)
	_, stopped := rec.find(EventStopped)
	assert.True(t, stopped)
	assert.NoFileExists(t, filepath.Join(res.Dir, "report.html"))
}

func TestRun_ContextCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g, err := New(unifiedBoard(1, 1, false), testConfig(t))
	require.NoError(t, err)

	res, err := g.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateStopped, res.State)
	assert.Empty(t, res.Dir)
}

func TestRun_StopBeforeRun(t *testing.T) {
	g, err := New(unifiedBoard(1, 1, false), testConfig(t))
	require.NoError(t, err)
	g.Stop()
	res, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateStopped, res.State)
}

func TestRun_MalformedUnifiedBoardFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = types.ModeTest
	b := unifiedBoard(1, 2, false)
	b.Elements[0].Pins[1].Measurements = []types.Measurement{measurement(false), measurement(false)}

	g, err := New(b, cfg)
	require.NoError(t, err)
	res, err := g.Run(context.Background())
	assert.ErrorIs(t, err, classify.ErrInvalidPin)
	assert.Equal(t, StateFailed, res.State)
	assert.Empty(t, res.Records)
}

func TestRun_ComparatorFailure(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder{}
	cfg := testConfig(t)
	cfg.Mode = types.ModeTest
	g, err := New(unifiedBoard(1, 1, false), cfg,
		WithObserver(rec),
		WithComparator(classify.ComparatorFunc(func(_, _ types.IVCurve, _, _ float64) (float64, error) {
			return 0, boom
		})),
	)
	require.NoError(t, err)

	res, err := g.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StateFailed, g.State())

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Contains(t, runErr.Message, "an error occurred while generating the report (")
	assert.Contains(t, runErr.Message, "boom")

	failed, ok := rec.find(EventFailed)
	require.True(t, ok)
	assert.Equal(t, runErr.Message, failed.Message)
	_, finished := rec.find(EventFinished)
	assert.False(t, finished)
}

func TestNewRunError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "with message", err: errors.New("disk full"), want: "an error occurred while generating the report (disk full)"},
		{name: "empty message", err: errors.New(""), want: "an error occurred while generating the report"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newRunError(tt.err).Error())
		})
	}
}

func TestRun_SecondRunRejected(t *testing.T) {
	g, err := New(&types.Board{}, testConfig(t))
	require.NoError(t, err)
	_, err = g.Run(context.Background())
	require.NoError(t, err)

	_, err = g.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, types.DefaultReportConfig())
	assert.Error(t, err)

	cfg := types.DefaultReportConfig()
	cfg.Tolerance = ptr(-1)
	_, err = New(&types.Board{}, cfg)
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}

type fakeOpener struct {
	opened []string
}

func (f *fakeOpener) Name() string { return "fake" }

func (f *fakeOpener) Open(path string) error {
	f.opened = append(f.opened, path)
	return nil
}

func TestRun_OpensRequestedReports(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAtFinish = true
	cfg.ReportsToOpen = []types.ReportType{types.ReportMap, types.ReportFull}
	op := &fakeOpener{}

	g, err := New(&types.Board{}, cfg, WithOpener(op))
	require.NoError(t, err)
	res, err := g.Run(context.Background())
	require.NoError(t, err)

	// No board image, so there is no map to open.
	want := []string{filepath.Join(res.Dir, "report_full.html")}
	assert.Equal(t, want, res.Opened)
	assert.Equal(t, want, op.opened)
}

func TestRun_RecordsHistoryAndMetrics(t *testing.T) {
	store, err := history.NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewPipelineMetrics(reg)
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Tolerance = ptr(20)
	cfg.Mode = types.ModeTest
	start := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	g, err := New(unifiedBoard(1, 2, false), cfg,
		WithHistory(store),
		WithMetrics(m),
		WithClock(func() time.Time { return start }),
	)
	require.NoError(t, err)
	res, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "report 2026-03-04 05-06-07", filepath.Base(res.Dir))

	run, err := store.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StateCompleted), run.State)
	assert.Equal(t, "Test board", run.PCBName)
	assert.Equal(t, 2, run.PinsNumber)
	pins, err := store.Pins(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Len(t, pins, 2)

	count, err := testutil.GatherAndCount(reg, "board_report_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChannelObserver(t *testing.T) {
	events := make(chan Event)
	cfg := testConfig(t)
	g, err := New(&types.Board{}, cfg, WithObserver(ChannelObserver(events)))
	require.NoError(t, err)

	done := make(chan struct{})
	var kinds []EventKind
	go func() {
		defer close(done)
		for e := range events {
			kinds = append(kinds, e.Kind)
		}
	}()
	_, err = g.Run(context.Background())
	close(events)
	<-done
	require.NoError(t, err)
	require.NotEmpty(t, kinds)
	assert.Equal(t, EventRunStarted, kinds[0])
	assert.Equal(t, EventFinished, kinds[len(kinds)-1])
}

func TestRun_ReportDirCollision(t *testing.T) {
	cfg := testConfig(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := filepath.Join(cfg.OutputDir, "report 2026-01-01 00-00-00")
	require.NoError(t, os.MkdirAll(existing, 0o755))

	g, err := New(&types.Board{}, cfg, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	res, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, existing+" 2", res.Dir)
}
