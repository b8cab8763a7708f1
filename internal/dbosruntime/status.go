package dbosruntime

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunStatus is the state of one workflow run, read directly from the
// dbos.workflow_status table.
type RunStatus struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrRunNotFound indicates the run id does not exist
var ErrRunNotFound = sql.ErrNoRows

// GetWorkflowStatus retrieves the status of one workflow run.
func (r *Runtime) GetWorkflowStatus(ctx context.Context, runID string) (*RunStatus, error) {
	query := `
		SELECT workflow_uuid, status, name, created_at, updated_at
		FROM dbos.workflow_status
		WHERE workflow_uuid = $1
	`

	var (
		status               RunStatus
		createdMS, updatedMS int64
	)
	err := r.db.QueryRowContext(ctx, query, runID).Scan(
		&status.RunID,
		&status.Status,
		&status.Name,
		&createdMS,
		&updatedMS,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow status: %w", err)
	}

	// DBOS stores epoch milliseconds.
	status.CreatedAt = time.UnixMilli(createdMS).UTC()
	status.UpdatedAt = time.UnixMilli(updatedMS).UTC()
	return &status, nil
}

// ListRecentRuns returns the most recent workflow runs, newest first.
func (r *Runtime) ListRecentRuns(ctx context.Context, limit int) ([]RunStatus, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	query := `
		SELECT workflow_uuid, status, name, created_at, updated_at
		FROM dbos.workflow_status
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow runs: %w", err)
	}
	defer rows.Close()

	var runs []RunStatus
	for rows.Next() {
		var (
			status               RunStatus
			createdMS, updatedMS int64
		)
		if err := rows.Scan(&status.RunID, &status.Status, &status.Name, &createdMS, &updatedMS); err != nil {
			return nil, fmt.Errorf("failed to scan workflow run: %w", err)
		}
		status.CreatedAt = time.UnixMilli(createdMS).UTC()
		status.UpdatedAt = time.UnixMilli(updatedMS).UTC()
		runs = append(runs, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list workflow runs: %w", err)
	}
	return runs, nil
}
