package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/eskarasu/merge-videos/internal/config"
	"github.com/eskarasu/merge-videos/internal/notify"
)

// Store manages merge-job persistence backed by SQLite.
type Store struct {
	db        *sql.DB
	path      string
	mediaRoot string
	publisher notify.Publisher
}

// Open initializes or connects to the jobs database. Status changes are
// published through publisher; pass nil to disable notifications.
func Open(cfg *config.Config, publisher notify.Publisher) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.MediaDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
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

	store := &Store{db: db, path: dbPath, mediaRoot: cfg.Paths.MediaDir, publisher: publisher}
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

// Path returns the location of the jobs database file.
func (s *Store) Path() string {
	return s.path
}

// MediaRoot returns the directory uploads and outputs are stored under.
func (s *Store) MediaRoot() string {
	return s.mediaRoot
}

// CreateJob inserts a new merge job in pending state with no clips.
// Clips are attached separately so multi-file uploads can stream in
// one at a time.
func (s *Store) CreateJob(ctx context.Context, ownerID int64, name string) (*Job, error) {
	id := uuid.New()
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO merge_jobs (id, owner_id, name, status, output_file, error_message, created_at, updated_at)
         VALUES (?, ?, ?, ?, NULL, NULL, ?, ?)`,
		id.String(),
		ownerID,
		name,
		StatusPending,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetUserJob(ctx, ownerID, id, false)
}

// AddClip stores one uploaded clip for an existing job: the content is
// written under the media root and a clip row is recorded at the given
// 1-based position. The upload is copied to disk before the transaction
// opens so a slow upload never holds the database write lock; the job
// row is then write-locked while the clip row is inserted, and the
// (job, position) unique constraint rejects duplicate positions. The
// stored file is unlinked on every failure path.
func (s *Store) AddClip(ctx context.Context, jobID uuid.UUID, content io.Reader, position int, originalName string) (*Clip, error) {
	if position < 1 {
		return nil, fmt.Errorf("add clip: position %d is not 1-based", position)
	}

	var ownerID int64
	err := s.db.QueryRowContext(ctx, `SELECT owner_id FROM merge_jobs WHERE id = ?`, jobID.String()).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("add clip: job %s not found", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("read job owner: %w", err)
	}

	relPath := ClipStoragePath(ownerID, jobID, position, originalName)
	absPath := filepath.Join(s.mediaRoot, filepath.FromSlash(relPath))
	if err := writeFile(absPath, content); err != nil {
		return nil, fmt.Errorf("store clip content: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("begin clip tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)

	// Takes the job's write lock before touching clips and re-checks
	// existence in case the job vanished while the upload streamed in.
	res, err := tx.ExecContext(ctx, `UPDATE merge_jobs SET updated_at = ? WHERE id = ?`, now, jobID.String())
	if err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("lock job row: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("lock job row: %w", err)
	}
	if affected == 0 {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("add clip: job %s not found", jobID)
	}

	res, err = tx.ExecContext(
		ctx,
		`INSERT INTO merge_clips (job_id, position, original_name, file_path, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		jobID.String(),
		position,
		originalName,
		relPath,
		now,
	)
	if err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("insert clip: %w", err)
	}

	clipID, err := res.LastInsertId()
	if err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("commit clip: %w", err)
	}

	created, parseErr := time.Parse(time.RFC3339Nano, now)
	if parseErr != nil {
		created = time.Now().UTC()
	}
	return &Clip{
		ID:           clipID,
		JobID:        jobID,
		Position:     position,
		OriginalName: originalName,
		FilePath:     absPath,
		CreatedAt:    created,
	}, nil
}

// GetUserJob fetches a job only if it is owned by userID; lookups across
// owners return nil without error. This is the authorization boundary for
// every operation above the store. When includeClips is set, clips are
// attached ordered by position.
func (s *Store) GetUserJob(ctx context.Context, userID int64, jobID uuid.UUID, includeClips bool) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM merge_jobs WHERE id = ? AND owner_id = ?`,
		jobID.String(),
		userID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	if includeClips {
		clips, err := s.ListJobClips(ctx, jobID)
		if err != nil {
			return nil, err
		}
		job.Clips = make([]Clip, len(clips))
		for i, clip := range clips {
			job.Clips[i] = *clip
		}
	}
	return job, nil
}

// ListUserJobs returns all jobs owned by userID, newest first, clips omitted.
func (s *Store) ListUserJobs(ctx context.Context, userID int64) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM merge_jobs WHERE owner_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListJobClips returns a job's clips ordered by position.
func (s *Store) ListJobClips(ctx context.Context, jobID uuid.UUID) ([]*Clip, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, job_id, position, original_name, file_path, created_at
         FROM merge_clips WHERE job_id = ? ORDER BY position`,
		jobID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var clips []*Clip
	for rows.Next() {
		clip, err := s.scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

// SetStatus atomically updates a job's status and error message. A job
// that no longer exists is a silent no-op; it may have been deleted
// concurrently. On success a notification carrying the freshly read job
// projection is published, best-effort.
func (s *Store) SetStatus(ctx context.Context, jobID uuid.UUID, status Status, errorMessage string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE merge_jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status,
		nullableString(errorMessage),
		time.Now().UTC().Format(time.RFC3339Nano),
		jobID.String(),
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if affected == 0 {
		return nil
	}

	s.publishUpdate(ctx, jobID)
	return nil
}

// SetOutputFile atomically updates the job's output pointer. The status
// is left untouched.
func (s *Store) SetOutputFile(ctx context.Context, jobID uuid.UUID, outputFile string) error {
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE merge_jobs SET output_file = ?, updated_at = ? WHERE id = ?`,
		nullableString(outputFile),
		time.Now().UTC().Format(time.RFC3339Nano),
		jobID.String(),
	); err != nil {
		return fmt.Errorf("set output file: %w", err)
	}
	return nil
}

// publishUpdate reads the minimal job projection and hands it to the
// publisher. The read is not transactional with the preceding update; a
// slightly newer projection is acceptable since delivery is best-effort
// anyway.
func (s *Store) publishUpdate(ctx context.Context, jobID uuid.UUID) {
	if s.publisher == nil {
		return
	}

	var (
		ownerID      int64
		statusStr    string
		errorMessage sql.NullString
		outputFile   sql.NullString
	)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT owner_id, status, error_message, output_file FROM merge_jobs WHERE id = ?`,
		jobID.String(),
	)
	if err := row.Scan(&ownerID, &statusStr, &errorMessage, &outputFile); err != nil {
		return
	}

	event := notify.Event{
		OwnerID:      ownerID,
		JobID:        jobID.String(),
		Status:       statusStr,
		ErrorMessage: errorMessage.String,
		HasOutput:    outputFile.String != "",
	}
	if event.HasOutput {
		event.OutputURL = DownloadPath(jobID)
	}
	s.publisher.Publish(event)
}

func writeFile(path string, content io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}
