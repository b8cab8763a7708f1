// Package dedupe tracks repeated pipeline triggers per document and
// job, so page reloads re-firing the same trigger are visible and
// countable instead of silently duplicated.
package dedupe

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Tracker tracks duplicate pipeline trigger submissions.
type Tracker struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTracker creates a dedupe tracker and ensures its table.
func NewTracker(db *sql.DB, logger *zap.Logger) (*Tracker, error) {
	tracker := &Tracker{db: db, logger: logger.Named("dedupe")}
	if err := tracker.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure dedupe table: %w", err)
	}
	return tracker, nil
}

// ensureTable creates the pipeline_dedupe table if it doesn't exist.
func (t *Tracker) ensureTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS pipeline_dedupe (
			document_id UUID,
			job TEXT,
			first_seen_at TIMESTAMPTZ DEFAULT NOW(),
			last_seen_at TIMESTAMPTZ DEFAULT NOW(),
			seen_count INTEGER DEFAULT 1,
			PRIMARY KEY (document_id, job)
		)
	`
	if _, err := t.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create pipeline_dedupe table: %w", err)
	}

	t.logger.Info("pipeline_dedupe table ready")
	return nil
}

// Record records one trigger for (document, job) and returns how many
// times it has been seen, this one included.
func (t *Tracker) Record(ctx context.Context, documentID, job string) (int, error) {
	query := `
		INSERT INTO pipeline_dedupe (document_id, job, first_seen_at, last_seen_at, seen_count)
		VALUES ($1, $2, NOW(), NOW(), 1)
		ON CONFLICT (document_id, job) DO UPDATE
		SET last_seen_at = NOW(),
		    seen_count = pipeline_dedupe.seen_count + 1
		RETURNING seen_count
	`

	var seenCount int
	err := t.db.QueryRowContext(ctx, query, documentID, job).Scan(&seenCount)
	if err != nil {
		return 0, fmt.Errorf("failed to record dedupe: %w", err)
	}
	return seenCount, nil
}

// GetSeenCount retrieves the trigger count for (document, job). A
// never-triggered pair reads as zero.
func (t *Tracker) GetSeenCount(ctx context.Context, documentID, job string) (int, error) {
	query := `SELECT seen_count FROM pipeline_dedupe WHERE document_id = $1 AND job = $2`

	var seenCount int
	err := t.db.QueryRowContext(ctx, query, documentID, job).Scan(&seenCount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get seen count: %w", err)
	}
	return seenCount, nil
}
