// Package actionstore implements C2: a durable, append-on-insert queue of
// per-submission action rows. Rows are grouped by submission_id into
// logical jobs; a job is done once every row in it has completed (I5).
// Storage idiom follows configstore: a single *sql.DB with
// SetMaxOpenConns(1) as the coarse writer lock.
package actionstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/flair-helper/flairhelper/pkg/constants"
	"github.com/flair-helper/flairhelper/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

var log = logger.New("actionstore")

// Store is the Action Store (C2).
type Store struct {
	db *sql.DB
}

// Open opens or creates the action store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create action store directory: %w", err)
		}
	}

	escapedPath := strings.ReplaceAll(path, " ", "%20")
	db, err := sql.Open("sqlite", "file:"+escapedPath+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open action store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize action store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Job identifies one logical unit of work: every action row sharing a
// submission id.
type Job struct {
	SubmissionID string
	ModName      string
	FlairGUID    string
}

// InsertBatch inserts one row per action kind for submissionID, all
// attributed to mod and flairGUID. Unknown kinds are rejected (I4); callers
// are expected to pass only constants.AllActionKinds members.
func (s *Store) InsertBatch(ctx context.Context, submissionID string, kinds []constants.ActionKind, mod, flairGUID string) error {
	if len(kinds) == 0 {
		return nil
	}

	valid := make(map[constants.ActionKind]bool, len(constants.AllActionKinds))
	for _, k := range constants.AllActionKinds {
		valid[k] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert_batch transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO actions (id, submission_id, action, completed, mod_name, flair_guid, created_at)
		VALUES (?, ?, ?, 0, ?, ?, strftime('%s','now'))
	`)
	if err != nil {
		return fmt.Errorf("prepare insert_batch: %w", err)
	}
	defer stmt.Close()

	for _, kind := range kinds {
		if !valid[kind] {
			return fmt.Errorf("refusing to insert unknown action kind %q for submission %s", kind, submissionID)
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), submissionID, string(kind), mod, flairGUID); err != nil {
			return fmt.Errorf("insert action %q for submission %s: %w", kind, submissionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert_batch: %w", err)
	}
	log.Printf("inserted %d actions: submission=%s mod=%s flair=%s", len(kinds), submissionID, mod, flairGUID)
	return nil
}

// ListPendingJobs returns the distinct (submission, mod) pairs that have at
// least one incomplete action row.
func (s *Store) ListPendingJobs(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT submission_id, MIN(mod_name), MIN(flair_guid)
		FROM actions
		WHERE completed = 0
		GROUP BY submission_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list_pending_jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.SubmissionID, &j.ModName, &j.FlairGUID); err != nil {
			return nil, fmt.Errorf("scan pending job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// PendingActions returns the still-incomplete action kinds for submissionID.
func (s *Store) PendingActions(ctx context.Context, submissionID string) ([]constants.ActionKind, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action FROM actions WHERE submission_id = ? AND completed = 0
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("pending_actions for %s: %w", submissionID, err)
	}
	defer rows.Close()

	var kinds []constants.ActionKind
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return nil, fmt.Errorf("scan pending action: %w", err)
		}
		kinds = append(kinds, constants.ActionKind(kind))
	}
	return kinds, rows.Err()
}

// MarkCompleted marks every row of kind for submissionID completed. It is a
// no-op, not an error, when the row is already completed (I6).
func (s *Store) MarkCompleted(ctx context.Context, submissionID string, kind constants.ActionKind) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE actions SET completed = 1 WHERE submission_id = ? AND action = ?
	`, submissionID, string(kind))
	if err != nil {
		return fmt.Errorf("mark_completed %s/%s: %w", submissionID, kind, err)
	}
	return nil
}

// MarkAllCompleted force-completes every row for submissionID, used when the
// job-level retry tracker gives up and needs to unblock garbage collection.
func (s *Store) MarkAllCompleted(ctx context.Context, submissionID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE actions SET completed = 1 WHERE submission_id = ?
	`, submissionID)
	if err != nil {
		return fmt.Errorf("mark_all_completed %s: %w", submissionID, err)
	}
	return nil
}

// IsCompleted reports whether the row for (submissionID, kind) exists and
// is completed. A missing row is treated as completed (nothing to do).
func (s *Store) IsCompleted(ctx context.Context, submissionID string, kind constants.ActionKind) (bool, error) {
	var completed int
	err := s.db.QueryRowContext(ctx, `
		SELECT completed FROM actions WHERE submission_id = ? AND action = ? LIMIT 1
	`, submissionID, string(kind)).Scan(&completed)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("is_completed %s/%s: %w", submissionID, kind, err)
	}
	return completed == 1, nil
}

// JobDone reports whether every row for submissionID is completed (I5: a
// job with zero rows is not done).
func (s *Store) JobDone(ctx context.Context, submissionID string) (bool, error) {
	var total, done int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(completed), 0) FROM actions WHERE submission_id = ?
	`, submissionID).Scan(&total, &done)
	if err != nil {
		return false, fmt.Errorf("job_done? %s: %w", submissionID, err)
	}
	return total > 0 && total == done, nil
}

// GCCompleted deletes every row for submissionID once its job is fully
// completed. Callers must have checked JobDone first; GCCompleted does not
// re-check.
func (s *Store) GCCompleted(ctx context.Context, submissionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM actions WHERE submission_id = ?`, submissionID)
	if err != nil {
		return fmt.Errorf("gc_completed %s: %w", submissionID, err)
	}
	log.Printf("garbage collected job: submission=%s", submissionID)
	return nil
}
