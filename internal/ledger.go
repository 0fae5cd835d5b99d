package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one pipeline execution as recorded in the ledger
type Run struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	Title      string     `json:"title,omitempty"`
	Stage      Stage      `json:"stage"`
	Error      string     `json:"error,omitempty"`
	Report     string     `json:"report,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Ledger is an append-only record of runs in SQLite
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens (or creates) the ledger database at path
func OpenLedger(path string) (*Ledger, error) {
	if err := EnsureDirs(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("ledger: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if err := initLedgerSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: init schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func initLedgerSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		url         TEXT NOT NULL,
		title       TEXT,
		stage       TEXT NOT NULL,
		error       TEXT,
		report      TEXT,
		started_at  TEXT NOT NULL,
		finished_at TEXT
	)`)
	return err
}

// Start records a new run
func (l *Ledger) Start(ctx context.Context, id, url string, startedAt time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, url, stage, started_at) VALUES (?, ?, ?, ?)`,
		id, url, string(StageFetching), startedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ledger: insert: %w", err)
	}
	return nil
}

// Finish stores the outcome of a run
func (l *Ledger) Finish(ctx context.Context, id, title string, runErr error, report string, finishedAt time.Time) error {
	stage := StageDone
	errText := ""
	if runErr != nil {
		stage = StageError
		errText = runErr.Error()
	}

	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET title = ?, stage = ?, error = ?, report = ?, finished_at = ? WHERE id = ?`,
		title, string(stage), errText, report, finishedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("ledger: update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ledger: run %s not found", id)
	}
	return nil
}

// List returns the most recent runs first
func (l *Ledger) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 20
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, url, title, stage, error, report, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: query: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Get returns a single run
func (l *Ledger) Get(ctx context.Context, id string) (*Run, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, url, title, stage, error, report, started_at, finished_at
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger: run %s not found", id)
	}
	return run, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*Run, error) {
	var (
		run                    Run
		stage, started         string
		title, errText, report sql.NullString
		finished               sql.NullString
	)
	if err := s.Scan(&run.ID, &run.URL, &title, &stage, &errText, &report, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("ledger: scan: %w", err)
	}

	run.Title = title.String
	run.Stage = Stage(stage)
	run.Error = errText.String
	run.Report = report.String
	run.StartedAt, _ = time.Parse(time.RFC3339, started)
	if finished.Valid && finished.String != "" {
		t, _ := time.Parse(time.RFC3339, finished.String)
		run.FinishedAt = &t
	}
	return &run, nil
}

// Close closes the database
func (l *Ledger) Close() error {
	return l.db.Close()
}
