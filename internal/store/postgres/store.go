// Package postgres persists execution history.
//
// Expected schema:
//
//	CREATE TABLE executions (
//	    id                UUID PRIMARY KEY,
//	    trigger_name      TEXT NOT NULL,
//	    job_name          TEXT NOT NULL,
//	    execution_key     TEXT NOT NULL UNIQUE,
//	    scheduled_at      TIMESTAMPTZ NOT NULL,
//	    fired_at          TIMESTAMPTZ NOT NULL,
//	    status            TEXT NOT NULL,
//	    requests_recovery BOOLEAN NOT NULL,
//	    created_at        TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX executions_running_idx ON executions (created_at) WHERE status = 'running';
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/gonggit/spring-batch-quartz/internal/domain"
	"github.com/gonggit/spring-batch-quartz/internal/engine"
	"github.com/gonggit/spring-batch-quartz/internal/recovery"
)

// Store implements engine.HistoryStore and recovery.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL store with the given database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertExecution inserts a new execution record.
// Returns engine.ErrDuplicateRequest if the execution key already exists.
func (s *Store) InsertExecution(ctx context.Context, rec domain.ExecutionRecord) error {
	_, err := s.db.ExecContext(ctx, queryInsertExecution,
		rec.ID,
		rec.TriggerName,
		rec.JobName,
		rec.Key,
		rec.ScheduledAt,
		rec.FiredAt,
		string(rec.Status),
		rec.RequestsRecovery,
		rec.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return engine.ErrDuplicateRequest
		}
		return err
	}
	return nil
}

// UpdateExecutionStatus updates the status of an execution.
// Returns engine.ErrStatusTransitionDenied if the execution is already in a terminal state.
// This uses an atomic UPDATE with WHERE clause to prevent TOCTOU race conditions.
func (s *Store) UpdateExecutionStatus(ctx context.Context, executionID uuid.UUID, status domain.ExecutionStatus) error {
	// Single atomic update with guard in WHERE clause.
	// PostgreSQL acquires row lock before evaluating WHERE,
	// ensuring serialized access under concurrency.
	result, err := s.db.ExecContext(ctx, queryUpdateExecutionStatus, string(status), executionID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Either: (a) execution not found, or (b) already in terminal state.
		// Distinguish by checking if the row exists.
		var currentStatus string
		err := s.db.QueryRowContext(ctx, queryGetExecutionStatus, executionID).Scan(&currentStatus)
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		if err != nil {
			return err
		}
		// Row exists but wasn't updated => terminal state
		return engine.ErrStatusTransitionDenied
	}

	return nil
}

// GetInterruptedExecutions returns executions that are stuck in 'running' status
// and were created before the given threshold time.
// Results are ordered by created_at ASC (oldest first) and limited to maxResults.
func (s *Store) GetInterruptedExecutions(ctx context.Context, olderThan time.Time, maxResults int) ([]domain.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, queryGetInterruptedExecutions, olderThan, maxResults)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ExecutionRecord
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// ListExecutions returns executions for a job, newest first, paginated by limit and offset.
func (s *Store) ListExecutions(ctx context.Context, jobName string, limit, offset int) ([]domain.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, queryListExecutions, jobName, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ExecutionRecord
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func scanExecution(rows *sql.Rows) (domain.ExecutionRecord, error) {
	var rec domain.ExecutionRecord
	var status string

	err := rows.Scan(
		&rec.ID,
		&rec.TriggerName,
		&rec.JobName,
		&rec.Key,
		&rec.ScheduledAt,
		&rec.FiredAt,
		&status,
		&rec.RequestsRecovery,
		&rec.CreatedAt,
	)
	if err != nil {
		return domain.ExecutionRecord{}, err
	}
	rec.Status = domain.ExecutionStatus(status)
	return rec, nil
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	// PostgreSQL unique violation error code is 23505
	// Check error message for common patterns from both lib/pq and pgx
	errStr := err.Error()
	return contains(errStr, "23505") || contains(errStr, "unique constraint") || contains(errStr, "duplicate key")
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && searchString(s, substr)
}

func searchString(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// Compile-time interface assertions
var (
	_ engine.HistoryStore = (*Store)(nil)
	_ recovery.Store      = (*Store)(nil)
)
