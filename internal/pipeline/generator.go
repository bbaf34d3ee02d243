// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs a report generation: it classifies the pins of a
// unified board, renders the board and pin images, and writes the report
// pages, emitting progress events and honoring cancellation between every
// unit of work.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdiddy/board-report/internal/classify"
	"github.com/pdiddy/board-report/internal/history"
	"github.com/pdiddy/board-report/internal/ivc"
	"github.com/pdiddy/board-report/internal/metrics"
	"github.com/pdiddy/board-report/internal/opener"
	"github.com/pdiddy/board-report/pkg/types"
)

// State is the lifecycle state of a Generator.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
	StateFailed    State = "failed"
)

// ErrAlreadyStarted is returned by Run on a Generator that has run before.
var ErrAlreadyStarted = errors.New("report generator already started")

const failurePrefix = "an error occurred while generating the report"

// RunError is the single error a failed run surfaces.
type RunError struct {
	Message string
	Err     error
}

func (e *RunError) Error() string { return e.Message }

func (e *RunError) Unwrap() error { return e.Err }

func newRunError(err error) *RunError {
	msg := failurePrefix
	if s := err.Error(); s != "" {
		msg += " (" + s + ")"
	}
	return &RunError{Message: msg, Err: err}
}

// Recorder stores finished runs. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, run history.Run, records []types.PinRecord) error
}

// Result describes a finished run.
type Result struct {
	ID       string
	State    State
	Dir      string
	Mode     types.ReportMode
	Records  []types.PinRecord
	Faulty   []types.PinRecord
	Steps    map[string]bool
	Reports  map[types.ReportType]string
	Opened   []string
	Duration time.Duration
}

// Option configures a Generator.
type Option func(*Generator)

// WithComparator sets the curve comparator (default ivc.New()).
func WithComparator(c classify.Comparator) Option {
	return func(g *Generator) { g.comparator = c }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(g *Generator) { g.observer = o }
}

// WithMetrics records run and step metrics.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithHistory stores every finished run.
func WithHistory(r Recorder) Option {
	return func(g *Generator) { g.history = r }
}

// WithOpener sets how reports are opened when the config asks for it.
func WithOpener(o opener.Opener) Option {
	return func(g *Generator) { g.opener = o }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// Generator produces one report from a unified board.
type Generator struct {
	board      *types.Board
	cfg        types.ReportConfig
	comparator classify.Comparator
	logger     *slog.Logger
	observer   Observer
	metrics    *metrics.PipelineMetrics
	history    Recorder
	opener     opener.Opener
	now        func() time.Time

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// New validates cfg and returns an idle Generator for board. The board must
// not be modified while the Generator runs.
func New(board *types.Board, cfg types.ReportConfig, opts ...Option) (*Generator, error) {
	if board == nil {
		return nil, errors.New("board is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{
		board:      board,
		cfg:        cfg,
		comparator: ivc.New(),
		logger:     slog.Default(),
		observer:   nopObserver{},
		now:        time.Now,
		state:      StateIdle,
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// State returns the current lifecycle state.
func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Stop asks a running generation to stop. It is safe to call from any
// goroutine, including an Observer. A Stop before Run makes Run stop at
// its first check.
func (g *Generator) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopping.Store(true)
	if g.cancel != nil {
		g.cancel()
	}
}

// Run generates the report on the calling goroutine. A stopped run returns
// a Result with StateStopped and a nil error; a failed run returns a
// *RunError.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	g.mu.Lock()
	if g.state != StateIdle {
		g.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	g.state = StateRunning
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	if g.stopping.Load() {
		cancel()
	}
	g.mu.Unlock()
	defer cancel()

	r := newRun(g)
	log := g.logger.With("run_id", r.id)
	log.Info("report generation started", "pins", g.board.PinsNumber(), "mode", g.cfg.Mode)
	g.emit(Event{Kind: EventRunStarted})

	err := r.execute(runCtx)

	res := r.result()
	var runErr *RunError
	switch {
	case err == nil:
		res.State = StateCompleted
	case g.stopping.Load() || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		res.State = StateStopped
	default:
		res.State = StateFailed
		runErr = newRunError(err)
	}
	res.Duration = g.now().Sub(r.started)

	switch res.State {
	case StateCompleted:
		res.Opened = r.openReports(log)
		log.Info("report generation finished", "dir", r.dir, "duration", res.Duration)
		g.emit(Event{Kind: EventFinished, Dir: r.dir})
	case StateStopped:
		log.Info("report generation stopped", "dir", r.dir)
		g.emit(Event{Kind: EventStopped})
	case StateFailed:
		log.Error("report generation failed", "error", err)
		g.emit(Event{Kind: EventFailed, Message: runErr.Message, Err: err})
	}

	g.metrics.RecordRun(string(res.State))
	g.metrics.RecordPins(r.records, len(r.faulty))
	r.recordHistory(context.WithoutCancel(ctx), log, res, runErr)

	g.mu.Lock()
	g.state = res.State
	g.cancel = nil
	g.mu.Unlock()

	if runErr != nil {
		return res, runErr
	}
	return res, nil
}

func (g *Generator) emit(e Event) {
	g.observer.Notify(e)
}

// recordHistory stores the run when a Recorder is configured. Failures are
// logged and do not change the outcome.
func (r *run) recordHistory(ctx context.Context, log *slog.Logger, res *Result, runErr *RunError) {
	if r.g.history == nil {
		return
	}
	h := history.Run{
		ID:           res.ID,
		StartedAt:    r.started,
		FinishedAt:   r.started.Add(res.Duration),
		State:        string(res.State),
		ReportDir:    res.Dir,
		Mode:         res.Mode,
		Tolerance:    r.cfg.Tolerance,
		PinsNumber:   len(res.Records),
		FaultyNumber: len(res.Faulty),
	}
	if runErr != nil {
		h.Message = runErr.Message
	}
	if r.board.PCB != nil {
		h.PCBName = r.board.PCB.Name
	}
	if err := r.g.history.Record(ctx, h, res.Records); err != nil {
		log.Warn("recording run history", "error", fmt.Errorf("run %s: %w", res.ID, err))
	}
}
