package workflows

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/research"
)

// ResearchWorkflow builds the brand profile for a document from its
// extracted brief: site scrape, social stats, LLM summary.
type ResearchWorkflow struct {
	store      DocumentStore
	researcher *research.Researcher
	logger     *zap.Logger
}

// NewResearchWorkflow creates a research workflow.
func NewResearchWorkflow(store DocumentStore, researcher *research.Researcher, logger *zap.Logger) *ResearchWorkflow {
	return &ResearchWorkflow{
		store:      store,
		researcher: researcher,
		logger:     logger.Named("research"),
	}
}

// Name returns the workflow name.
func (w *ResearchWorkflow) Name() string {
	return "research"
}

// Execute runs the research workflow.
func (w *ResearchWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
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

	profile, err := w.researcher.Research(wctx.Ctx, payload.Brief)
	if err != nil {
		return failure(fmt.Errorf("research failed: %w", err))
	}

	if err := patchSection(wctx.Ctx, w.store, doc.ID, "research", profile); err != nil {
		return failure(err)
	}

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"social_stats": len(profile.SocialStats),
			"warnings":     len(profile.Warnings),
		},
	}, nil
}
