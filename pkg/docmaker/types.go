// Package docmaker holds the wire and payload types shared by the
// DocMaker server, pipeline workflows, and Go client.
package docmaker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document kinds.
const (
	KindProposal = "proposal"
	KindDeck     = "deck"
)

// Document lifecycle statuses.
const (
	StatusDraft      = "draft"
	StatusGenerating = "generating"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Pipeline job names.
const (
	JobParse       = "parse"
	JobExtract     = "extract"
	JobResearch    = "research"
	JobInfluencers = "influencers"
	JobImages      = "images"
	JobSlides      = "slides"
	JobGenerate    = "generate"
)

// Pipeline step statuses.
const (
	StepPending  = "pending"
	StepRunning  = "running"
	StepComplete = "complete"
	StepFailed   = "failed"
)

// Upload roles.
const (
	RoleBrief   = "brief"
	RoleKickoff = "kickoff"
)

// DerivedType constants (match simple-content conventions).
const (
	DerivedTypeBriefText      = "brief_text"
	DerivedTypeGeneratedImage = "generated_image"
	DerivedTypeImagePreview   = "image_preview"
	DerivedTypeRenderHTML     = "render_html"
	DerivedTypeRenderPDF      = "render_pdf"
)

// Jobs lists every pipeline job in chain order.
func Jobs() []string {
	return []string{JobParse, JobExtract, JobResearch, JobInfluencers, JobImages, JobSlides, JobGenerate}
}

// ValidJob reports whether job names a known pipeline job.
func ValidJob(job string) bool {
	switch job {
	case JobParse, JobExtract, JobResearch, JobInfluencers, JobImages, JobSlides, JobGenerate:
		return true
	}
	return false
}

// ValidKind reports whether kind names a known document kind.
func ValidKind(kind string) bool {
	return kind == KindProposal || kind == KindDeck
}

// ProcessRequest represents a request to run a pipeline job on a document.
type ProcessRequest struct {
	DocumentID string            `json:"document_id"`
	Job        string            `json:"job"`
	Force      bool              `json:"force,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ProcessResponse represents the response from triggering a pipeline job.
type ProcessResponse struct {
	RunID           string `json:"run_id"`
	DedupeSeenCount int    `json:"dedupe_seen_count"`
}

// StepState is the stored state of one pipeline job on a document.
type StepState struct {
	Status    string    `json:"status"`
	RunID     string    `json:"run_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// PipelineState maps job name to step state.
type PipelineState map[string]StepState

// Complete reports whether job has finished successfully.
func (p PipelineState) Complete(job string) bool {
	return p[job].Status == StepComplete
}

// Document is a stored document as returned by the API.
type Document struct {
	ID              uuid.UUID       `json:"id"`
	Kind            string          `json:"kind"`
	Title           string          `json:"title"`
	Status          string          `json:"status"`
	Payload         json.RawMessage `json:"payload"`
	Pipeline        PipelineState   `json:"pipeline"`
	BriefUploadID   *uuid.UUID      `json:"brief_upload_id,omitempty"`
	KickoffUploadID *uuid.UUID      `json:"kickoff_upload_id,omitempty"`
	SourceText      string          `json:"source_text,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DecodePayload parses the raw payload into its typed form.
func (d *Document) DecodePayload() (*Payload, error) {
	p := &Payload{}
	if len(d.Payload) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(d.Payload, p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}
