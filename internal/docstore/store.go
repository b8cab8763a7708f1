// Package docstore persists documents in PostgreSQL. The payload column
// is only ever written through RFC 7386 merge patches so pipeline
// stages and wizard edits can each own their own section.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// Store provides access to the documents table.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore wraps an existing database handle and ensures the schema.
func NewStore(db *sql.DB, logger *zap.Logger) (*Store, error) {
	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to ensure documents schema: %w", err)
	}
	return s, nil
}

// Open connects to PostgreSQL and ensures the schema.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open document database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping document database: %w", err)
	}
	s, err := NewStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for components sharing the pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates the documents table if it doesn't exist.
func (s *Store) ensureSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			payload JSONB NOT NULL DEFAULT '{}'::jsonb,
			pipeline JSONB NOT NULL DEFAULT '{}'::jsonb,
			brief_upload_id UUID,
			kickoff_upload_id UUID,
			source_text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	index := `CREATE INDEX IF NOT EXISTS documents_created_at_idx ON documents (created_at DESC)`
	if _, err := s.db.Exec(index); err != nil {
		return fmt.Errorf("failed to create documents index: %w", err)
	}

	s.logger.Info("documents table ready")
	return nil
}

const documentColumns = `id, kind, title, status, payload, pipeline, brief_upload_id, kickoff_upload_id, source_text, created_at, updated_at`

// Create inserts a new draft document.
func (s *Store) Create(ctx context.Context, kind, title string) (*docmaker.Document, error) {
	query := `
		INSERT INTO documents (id, kind, title, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + documentColumns

	row := s.db.QueryRowContext(ctx, query, uuid.New(), kind, title, docmaker.StatusDraft)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

// Get fetches one document by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*docmaker.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// List returns documents newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]docmaker.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []docmaker.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MergePatch applies an RFC 7386 patch to the payload inside a
// transaction and returns the updated document. The row is locked for
// the duration so concurrent stages cannot clobber each other.
func (s *Store) MergePatch(ctx context.Context, id uuid.UUID, patch json.RawMessage) (*docmaker.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin patch transaction: %w", err)
	}
	defer tx.Rollback()

	var payload []byte
	err = tx.QueryRowContext(ctx, `SELECT payload FROM documents WHERE id = $1 FOR UPDATE`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock document for patch: %w", err)
	}

	merged, err := mergePatch(payload, patch)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE documents
		SET payload = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + documentColumns

	doc, err := scanDocument(tx.QueryRowContext(ctx, query, id, merged))
	if err != nil {
		return nil, fmt.Errorf("failed to update payload: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit patch: %w", err)
	}
	return doc, nil
}

// SetPipelineStatus records the state of one job on a document. The
// UpdatedAt stamp on the step is set here.
func (s *Store) SetPipelineStatus(ctx context.Context, id uuid.UUID, job string, state docmaker.StepState) error {
	state.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin pipeline transaction: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx, `SELECT pipeline FROM documents WHERE id = $1 FOR UPDATE`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock document for pipeline update: %w", err)
	}

	pipeline := docmaker.PipelineState{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &pipeline); err != nil {
			return fmt.Errorf("failed to decode pipeline state: %w", err)
		}
	}
	pipeline[job] = state

	encoded, err := json.Marshal(pipeline)
	if err != nil {
		return fmt.Errorf("failed to encode pipeline state: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE documents SET pipeline = $2, updated_at = NOW() WHERE id = $1`, id, encoded)
	if err != nil {
		return fmt.Errorf("failed to update pipeline state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pipeline update: %w", err)
	}
	return nil
}

// PipelineStatus returns the per-job state map for a document.
func (s *Store) PipelineStatus(ctx context.Context, id uuid.UUID) (docmaker.PipelineState, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT pipeline FROM documents WHERE id = $1`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline state: %w", err)
	}

	pipeline := docmaker.PipelineState{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &pipeline); err != nil {
			return nil, fmt.Errorf("failed to decode pipeline state: %w", err)
		}
	}
	return pipeline, nil
}

// SetStatus updates the document lifecycle status.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	return requireRow(res)
}

// SetTitle updates the document title.
func (s *Store) SetTitle(ctx context.Context, id uuid.UUID, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET title = $2, updated_at = NOW() WHERE id = $1`, id, title)
	if err != nil {
		return fmt.Errorf("failed to set title: %w", err)
	}
	return requireRow(res)
}

// AttachUpload links an uploaded file to a document by role.
func (s *Store) AttachUpload(ctx context.Context, id uuid.UUID, role string, uploadID uuid.UUID) error {
	var column string
	switch role {
	case docmaker.RoleBrief:
		column = "brief_upload_id"
	case docmaker.RoleKickoff:
		column = "kickoff_upload_id"
	default:
		return fmt.Errorf("unknown upload role: %s", role)
	}

	query := fmt.Sprintf(`UPDATE documents SET %s = $2, updated_at = NOW() WHERE id = $1`, column)
	res, err := s.db.ExecContext(ctx, query, id, uploadID)
	if err != nil {
		return fmt.Errorf("failed to attach upload: %w", err)
	}
	return requireRow(res)
}

// SetSourceText stores the parsed brief text.
func (s *Store) SetSourceText(ctx context.Context, id uuid.UUID, text string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET source_text = $2, updated_at = NOW() WHERE id = $1`, id, text)
	if err != nil {
		return fmt.Errorf("failed to set source text: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row scanner) (*docmaker.Document, error) {
	var (
		doc      docmaker.Document
		payload  []byte
		pipeline []byte
		briefID  sql.NullString
		kickoff  sql.NullString
	)

	err := row.Scan(
		&doc.ID, &doc.Kind, &doc.Title, &doc.Status,
		&payload, &pipeline, &briefID, &kickoff,
		&doc.SourceText, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Payload = json.RawMessage(payload)
	doc.Pipeline = docmaker.PipelineState{}
	if len(pipeline) > 0 {
		if err := json.Unmarshal(pipeline, &doc.Pipeline); err != nil {
			return nil, fmt.Errorf("failed to decode pipeline state: %w", err)
		}
	}
	if briefID.Valid {
		id, err := uuid.Parse(briefID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse brief upload id: %w", err)
		}
		doc.BriefUploadID = &id
	}
	if kickoff.Valid {
		id, err := uuid.Parse(kickoff.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kickoff upload id: %w", err)
		}
		doc.KickoffUploadID = &id
	}
	return &doc, nil
}
