package workflows

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/slides"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// SlidesWorkflow runs the staged deck build. Each stage's result is
// merge-patched as it lands, so a retrigger after a mid-build failure
// resumes from the stored deck instead of replanning.
type SlidesWorkflow struct {
	store     DocumentStore
	generator *slides.Generator
	logger    *zap.Logger
}

// NewSlidesWorkflow creates a slides workflow.
func NewSlidesWorkflow(store DocumentStore, generator *slides.Generator, logger *zap.Logger) *SlidesWorkflow {
	return &SlidesWorkflow{
		store:     store,
		generator: generator,
		logger:    logger.Named("slides"),
	}
}

// Name returns the workflow name.
func (w *SlidesWorkflow) Name() string {
	return "slides"
}

// Execute runs the slides workflow.
func (w *SlidesWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	doc, err := getDocument(wctx.Ctx, w.store, wctx.Request)
	if err != nil {
		return failure(err)
	}
	payload, err := doc.DecodePayload()
	if err != nil {
		return failure(err)
	}
	if payload.Brief == nil {
		return failure(ErrMissingBrief)
	}

	in := slides.Input{
		Kind:     doc.Kind,
		Brief:    payload.Brief,
		Research: payload.Research,
	}
	// Force rebuilds from scratch; otherwise pick up where the stored
	// deck left off.
	if !wctx.Request.Force {
		in.Resume = payload.Deck
	}

	save := func(ctx context.Context, deck *docmaker.Deck) error {
		return patchSection(ctx, w.store, doc.ID, "deck", deck)
	}

	deck, err := w.generator.Generate(wctx.Ctx, in, save)
	if err != nil {
		return failure(fmt.Errorf("deck build failed: %w", err))
	}

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"stage":    deck.Stage,
			"slides":   len(deck.Slides),
			"warnings": len(deck.Warnings),
		},
	}, nil
}
