// Package jobs persists the generation job ledger in SQLite. Every
// transcription request gets a row here; pipeline failures mark the owning
// row failed with the failure category so operators can see at a glance why
// a job died.
package jobs

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes shape.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible build.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrNotFound indicates no job exists with the requested ID.
var ErrNotFound = errors.New("job not found")

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete the database to reset)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Create inserts a pending job for the given source URL and returns it.
func (s *Store) Create(ctx context.Context, sourceURL, episodeTitle, podcastName string) (*Job, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return nil, errors.New("source url required")
	}
	id := uuid.NewString()
	now := timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_jobs (
            id, source_url, episode_title, podcast_name, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, sourceURL, episodeTitle, podcastName, StatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, id)
}

// Get returns the job with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return job, err
}

// List returns jobs newest-first, filtered by status when one is given.
func (s *Store) List(ctx context.Context, status Status, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	query := selectColumns
	args := []any{}
	if status != "" {
		if !status.IsValid() {
			return nil, fmt.Errorf("unknown status %q", status)
		}
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var result []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

// MarkRunning transitions a job into the running state.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	return s.update(ctx, id,
		"UPDATE generation_jobs SET status = ?, updated_at = ? WHERE id = ?",
		StatusRunning, timestamp(), id)
}

// MarkCompleted records a successful outcome.
func (s *Store) MarkCompleted(ctx context.Context, id, provider string, transcriptChars, audioSizeBytes int64) error {
	now := timestamp()
	return s.update(ctx, id,
		`UPDATE generation_jobs
         SET status = ?, provider = ?, transcript_chars = ?, audio_size_bytes = ?,
             updated_at = ?, completed_at = ?
         WHERE id = ?`,
		StatusCompleted, provider, transcriptChars, audioSizeBytes, now, now, id)
}

// MarkFailed records a terminal failure with its category and message.
func (s *Store) MarkFailed(ctx context.Context, id, category, message string) error {
	now := timestamp()
	return s.update(ctx, id,
		`UPDATE generation_jobs
         SET status = ?, failure_category = ?, error_message = ?, updated_at = ?, completed_at = ?
         WHERE id = ?`,
		StatusFailed, category, message, now, now, id)
}

func (s *Store) update(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

const selectColumns = `SELECT id, source_url, episode_title, podcast_name, status, provider,
    transcript_chars, audio_size_bytes, failure_category, error_message,
    created_at, updated_at, completed_at
FROM generation_jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	err := row.Scan(
		&job.ID, &job.SourceURL, &job.EpisodeTitle, &job.PodcastName, &job.Status,
		&job.Provider, &job.TranscriptChars, &job.AudioSizeBytes,
		&job.FailureCategory, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return &job, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
