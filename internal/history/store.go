// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a SQLite record of report runs and the scores of
// their pins, so results can be listed and exported after the report
// directories are gone.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/board-report/pkg/types"
)

const defaultListLimit = 20

// timeLayout has a fixed width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one stored report run.
type Run struct {
	ID           string           `json:"id" yaml:"id"`
	StartedAt    time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time        `json:"finished_at" yaml:"finished_at"`
	State        string           `json:"state" yaml:"state"`
	Message      string           `json:"message,omitempty" yaml:"message,omitempty"`
	ReportDir    string           `json:"report_dir" yaml:"report_dir"`
	Mode         types.ReportMode `json:"mode" yaml:"mode"`
	Tolerance    *float64         `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	PCBName      string           `json:"pcb_name,omitempty" yaml:"pcb_name,omitempty"`
	PinsNumber   int              `json:"pins_number" yaml:"pins_number"`
	FaultyNumber int              `json:"faulty_number" yaml:"faulty_number"`
}

// PinRow is the stored summary of one classified pin.
type PinRow struct {
	ElementIndex  int           `json:"element_index" yaml:"element_index"`
	PinIndex      int           `json:"pin_index" yaml:"pin_index"`
	TotalPinIndex int           `json:"total_pin_index" yaml:"total_pin_index"`
	ElementName   string        `json:"element_name" yaml:"element_name"`
	Type          types.PinType `json:"pin_type" yaml:"pin_type"`
	Score         *float64      `json:"score,omitempty" yaml:"score,omitempty"`
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at path and creates the
// schema if it does not exist.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			state TEXT NOT NULL,
			message TEXT,
			report_dir TEXT,
			mode TEXT,
			tolerance REAL,
			pcb_name TEXT,
			pins_number INTEGER,
			faulty_number INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS pins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			element_index INTEGER NOT NULL,
			pin_index INTEGER NOT NULL,
			total_pin_index INTEGER NOT NULL,
			element_name TEXT,
			pin_type TEXT NOT NULL,
			score REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pins_run_id ON pins(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a run and its pins in one transaction.
func (s *Store) Record(ctx context.Context, run Run, records []types.PinRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, state, message, report_dir, mode, tolerance, pcb_name, pins_number, faulty_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		run.State, run.Message, run.ReportDir, string(run.Mode), nullFloat(run.Tolerance),
		run.PCBName, run.PinsNumber, run.FaultyNumber,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pins (run_id, element_index, pin_index, total_pin_index, element_name, pin_type, score)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing pin insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, run.ID, r.ElementIndex, r.PinIndex, r.TotalPinIndex,
			r.ElementName, string(r.Type), nullFloat(r.Score)); err != nil {
			return fmt.Errorf("inserting pin %s: %w", r.Name(), err)
		}
	}
	return tx.Commit()
}

// ListOptions filters List.
type ListOptions struct {
	// State keeps only runs that ended in this state.
	State string

	// Limit caps the number of runs (default 20).
	Limit int
}

// List returns runs, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Run, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `SELECT id, started_at, finished_at, state, message, report_dir, mode, tolerance, pcb_name, pins_number, faulty_number FROM runs`
	var args []any
	if opts.State != "" {
		query += ` WHERE state = ?`
		args = append(args, opts.State)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns one run.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, state, message, report_dir, mode, tolerance, pcb_name, pins_number, faulty_number FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// Pins returns the stored pins of a run in global pin order.
func (s *Store) Pins(ctx context.Context, runID string) ([]PinRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT element_index, pin_index, total_pin_index, element_name, pin_type, score
		 FROM pins WHERE run_id = ? ORDER BY total_pin_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying pins: %w", err)
	}
	defer rows.Close()

	var pins []PinRow
	for rows.Next() {
		var p PinRow
		var name sql.NullString
		var pt string
		var score sql.NullFloat64
		if err := rows.Scan(&p.ElementIndex, &p.PinIndex, &p.TotalPinIndex, &name, &pt, &score); err != nil {
			return nil, fmt.Errorf("scanning pin: %w", err)
		}
		p.ElementName = name.String
		p.Type = types.PinType(pt)
		if score.Valid {
			v := score.Float64
			p.Score = &v
		}
		pins = append(pins, p)
	}
	return pins, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var started, finished, mode string
	var message, dir, pcb sql.NullString
	var tol sql.NullFloat64
	if err := sc.Scan(&r.ID, &started, &finished, &r.State, &message, &dir, &mode, &tol, &pcb, &r.PinsNumber, &r.FaultyNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	var err error
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parsing started_at: %w", err)
	}
	if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("parsing finished_at: %w", err)
	}
	r.Mode = types.ReportMode(mode)
	r.Message, r.ReportDir, r.PCBName = message.String, dir.String, pcb.String
	if tol.Valid {
		v := tol.Float64
		r.Tolerance = &v
	}
	return r, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
