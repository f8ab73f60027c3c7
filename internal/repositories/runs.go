// package repositories provides the persistence layer for the run ledger.
//
// Every migration run and every processed record lands in SQLite, so
// interrupted runs can be resumed and past runs inspected from the CLI.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/crmx/internal/models"
	"github.com/desertthunder/crmx/internal/shared"
)

// RunRepository stores runs and their per-record results.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun inserts a new run row.
func (r *RunRepository) CreateRun(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO runs (id, source_object, target_object, dry_run, started_at, success_count, failure_count, skipped_count)
		VALUES (?, ?, ?, ?, ?, 0, 0, 0)
	`

	_, err := r.db.Exec(query, run.ID, run.SourceObject, run.TargetObject, run.DryRun, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun stores a run's end time and final counters.
func (r *RunRepository) FinishRun(run *models.Run) error {
	query := `
		UPDATE runs
		SET finished_at = ?, success_count = ?, failure_count = ?, skipped_count = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, run.FinishedAt, run.SuccessCount, run.FailureCount, run.SkippedCount, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	return nil
}

// AppendResult stores one record outcome under a run.
func (r *RunRepository) AppendResult(runID string, seq int, result models.MigrationResult) error {
	var payload any
	if result.Payload != nil {
		data, err := shared.MarshalJSON(result.Payload.Values, false)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		payload = string(data)
	}

	query := `
		INSERT INTO record_results (run_id, seq, source_id, target_id, status, error, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, runID, seq, result.SourceID, result.TargetID, string(result.Status), result.Reason, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert record result: %w", err)
	}
	return nil
}

// GetRun retrieves one run by id.
func (r *RunRepository) GetRun(id string) (*models.Run, error) {
	query := `
		SELECT id, source_object, target_object, dry_run, started_at, finished_at, success_count, failure_count, skipped_count
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs newest first, up to limit (0 means all).
func (r *RunRepository) ListRuns(limit int) ([]*models.Run, error) {
	query := `
		SELECT id, source_object, target_object, dry_run, started_at, finished_at, success_count, failure_count, skipped_count
		FROM runs
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListResults retrieves a run's record outcomes in processing order.
func (r *RunRepository) ListResults(runID string) ([]models.MigrationResult, error) {
	query := `
		SELECT source_id, target_id, status, error
		FROM record_results
		WHERE run_id = ?
		ORDER BY seq
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []models.MigrationResult
	for rows.Next() {
		var result models.MigrationResult
		var targetID, reason sql.NullString
		if err := rows.Scan(&result.SourceID, &targetID, &result.Status, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		result.TargetID = targetID.String
		result.Reason = reason.String
		results = append(results, result)
	}
	return results, rows.Err()
}

// SucceededSourceIDs returns the source ids a run migrated successfully,
// for skipping on resume.
func (r *RunRepository) SucceededSourceIDs(runID string) (map[string]bool, error) {
	query := `
		SELECT source_id
		FROM record_results
		WHERE run_id = ? AND status = ?
	`

	rows, err := r.db.Query(query, runID, string(models.StatusSuccess))
	if err != nil {
		return nil, fmt.Errorf("failed to query succeeded records: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan source id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	run := &models.Run{}
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.SourceObject, &run.TargetObject, &run.DryRun,
		&run.StartedAt, &finished, &run.SuccessCount, &run.FailureCount, &run.SkippedCount)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return run, nil
}
