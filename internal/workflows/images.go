package workflows

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/imagegen"
)

// ImagesWorkflow generates the document's visual assets and stores
// them as derived content under the brief upload.
type ImagesWorkflow struct {
	store     DocumentStore
	generator *imagegen.Generator
	logger    *zap.Logger
}

// NewImagesWorkflow creates an images workflow.
func NewImagesWorkflow(store DocumentStore, generator *imagegen.Generator, logger *zap.Logger) *ImagesWorkflow {
	return &ImagesWorkflow{
		store:     store,
		generator: generator,
		logger:    logger.Named("images"),
	}
}

// Name returns the workflow name.
func (w *ImagesWorkflow) Name() string {
	return "images"
}

// Execute runs the images workflow.
func (w *ImagesWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	doc, err := getDocument(wctx.Ctx, w.store, wctx.Request)
	if err != nil {
		return failure(err)
	}
	if doc.BriefUploadID == nil {
		return failure(ErrMissingUpload)
	}
	payload, err := doc.DecodePayload()
	if err != nil {
		return failure(err)
	}
	if payload.Brief == nil {
		return failure(ErrMissingBrief)
	}

	images, err := w.generator.Generate(wctx.Ctx, doc.BriefUploadID.String(), payload.Brief, payload.Research)
	if err != nil {
		return failure(fmt.Errorf("image generation failed: %w", err))
	}

	if err := patchSection(wctx.Ctx, w.store, doc.ID, "images", images); err != nil {
		return failure(err)
	}

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{"count": len(images)},
	}, nil
}
