package workflows

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/parse"
	"github.com/docmakerhq/docmaker/internal/storage"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// ParseWorkflow extracts text from the uploaded brief (and kickoff
// document when present), stores the combined text on the document,
// and keeps a brief_text derived artifact next to the upload.
type ParseWorkflow struct {
	store   DocumentStore
	reader  storage.Reader
	derived storage.Writer
	logger  *zap.Logger
}

// NewParseWorkflow creates a parse workflow.
func NewParseWorkflow(store DocumentStore, reader storage.Reader, derived storage.Writer, logger *zap.Logger) *ParseWorkflow {
	return &ParseWorkflow{
		store:   store,
		reader:  reader,
		derived: derived,
		logger:  logger.Named("parse"),
	}
}

// Name returns the workflow name.
func (w *ParseWorkflow) Name() string {
	return "parse"
}

// Execute runs the parse workflow.
func (w *ParseWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	doc, err := getDocument(wctx.Ctx, w.store, wctx.Request)
	if err != nil {
		return failure(err)
	}
	if doc.BriefUploadID == nil {
		return failure(ErrMissingUpload)
	}

	briefData, err := readContent(wctx.Ctx, w.reader, doc.BriefUploadID.String())
	if err != nil {
		return failure(err)
	}

	briefText, err := parse.ExtractText(briefData)
	needsVision := errors.Is(err, parse.ErrNeedsVision)
	if err != nil && !needsVision {
		return failure(fmt.Errorf("failed to parse brief: %w", err))
	}

	var kickoffText string
	if doc.KickoffUploadID != nil {
		kickoffData, err := readContent(wctx.Ctx, w.reader, doc.KickoffUploadID.String())
		if err != nil {
			// The kickoff doc enriches extraction; a missing one does
			// not block the brief.
			w.logger.Warn("failed to read kickoff upload", zap.Error(err))
		} else {
			kickoffText, err = parse.ExtractText(kickoffData)
			if err != nil {
				w.logger.Warn("failed to parse kickoff upload", zap.Error(err))
				kickoffText = ""
			}
		}
	}

	combined := parse.Combine(briefText, kickoffText)
	if err := w.store.SetSourceText(wctx.Ctx, doc.ID, combined); err != nil {
		return failure(fmt.Errorf("failed to store source text: %w", err))
	}

	if combined != "" {
		meta := map[string]string{
			"file_name": "brief.txt",
			"mime_type": "text/plain; charset=utf-8",
		}
		if _, err := w.derived.PutDerived(wctx.Ctx, doc.BriefUploadID.String(), docmaker.DerivedTypeBriefText, 1, strings.NewReader(combined), meta); err != nil {
			// Retrigger regenerates it; the source of truth is the
			// document row.
			w.logger.Warn("failed to store brief_text artifact", zap.Error(err))
		}
	}

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"chars":        len(combined),
			"needs_vision": needsVision,
		},
	}, nil
}
