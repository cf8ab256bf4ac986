package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/contre95/plexify/src/music"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SqliteHistory stores cycle reports in SQLite.
type SqliteHistory struct {
	db *sql.DB
}

// NewSqliteHistory opens (or creates) the history database at path.
func NewSqliteHistory(path string) (*SqliteHistory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteHistory{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cycles (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			playlists_processed INTEGER NOT NULL DEFAULT 0,
			playlists_failed INTEGER NOT NULL DEFAULT 0,
			downloads_attempted INTEGER NOT NULL DEFAULT 0,
			downloads_succeeded INTEGER NOT NULL DEFAULT 0,
			downloads_failed INTEGER NOT NULL DEFAULT 0,
			downloads_skipped INTEGER NOT NULL DEFAULT 0,
			deletions_succeeded INTEGER NOT NULL DEFAULT 0,
			deletions_failed INTEGER NOT NULL DEFAULT 0,
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_cycles_started_at ON cycles(started_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Close closes the database.
func (d *SqliteHistory) Close() error {
	return d.db.Close()
}

// Save stores a cycle report, assigning an id when it has none.
func (d *SqliteHistory) Save(ctx context.Context, report *music.CycleReport) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	s := report.Stats
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO cycles (id, started_at, finished_at, playlists_processed, playlists_failed,
			downloads_attempted, downloads_succeeded, downloads_failed, downloads_skipped,
			deletions_succeeded, deletions_failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.StartedAt.UTC().Format(timeLayout),
		report.FinishedAt.UTC().Format(timeLayout),
		s.PlaylistsProcessed, s.PlaylistsFailed,
		s.DownloadsAttempted, s.DownloadsSucceeded, s.DownloadsFailed, s.DownloadsSkipped,
		s.DeletionsSucceeded, s.DeletionsFailed,
		nullString(report.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to save cycle %s: %w", report.ID, err)
	}
	return nil
}

// List returns the most recent reports, newest first.
func (d *SqliteHistory) List(ctx context.Context, limit int) ([]music.CycleReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, playlists_processed, playlists_failed,
			downloads_attempted, downloads_succeeded, downloads_failed, downloads_skipped,
			deletions_succeeded, deletions_failed, error
		FROM cycles ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var reports []music.CycleReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Last returns the most recent report, or nil when none was stored.
func (d *SqliteHistory) Last(ctx context.Context) (*music.CycleReport, error) {
	reports, err := d.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}
	return &reports[0], nil
}

// Get returns the report with the given id.
func (d *SqliteHistory) Get(ctx context.Context, id string) (*music.CycleReport, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, playlists_processed, playlists_failed,
			downloads_attempted, downloads_succeeded, downloads_failed, downloads_skipped,
			deletions_succeeded, deletions_failed, error
		FROM cycles WHERE id = ?`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cycle %s: %w", id, music.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Prune deletes reports started before cutoff and returns how many were removed.
func (d *SqliteHistory) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM cycles WHERE started_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune cycles: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (music.CycleReport, error) {
	var (
		r                 music.CycleReport
		started, finished string
		errText           sql.NullString
	)
	s := &r.Stats
	if err := row.Scan(&r.ID, &started, &finished, &s.PlaylistsProcessed, &s.PlaylistsFailed,
		&s.DownloadsAttempted, &s.DownloadsSucceeded, &s.DownloadsFailed, &s.DownloadsSkipped,
		&s.DeletionsSucceeded, &s.DeletionsFailed, &errText); err != nil {
		return r, err
	}
	r.StartedAt, _ = time.Parse(timeLayout, started)
	r.FinishedAt, _ = time.Parse(timeLayout, finished)
	r.Error = errText.String
	return r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
