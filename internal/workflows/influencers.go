package workflows

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/influencers"
)

// InfluencersWorkflow searches creator platforms for candidates
// matching the brief and stores the scored shortlist.
type InfluencersWorkflow struct {
	store  DocumentStore
	finder *influencers.Finder
	logger *zap.Logger
}

// NewInfluencersWorkflow creates an influencers workflow.
func NewInfluencersWorkflow(store DocumentStore, finder *influencers.Finder, logger *zap.Logger) *InfluencersWorkflow {
	return &InfluencersWorkflow{
		store:  store,
		finder: finder,
		logger: logger.Named("influencers"),
	}
}

// Name returns the workflow name.
func (w *InfluencersWorkflow) Name() string {
	return "influencers"
}

// Execute runs the influencers workflow.
func (w *InfluencersWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
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

	found, err := w.finder.Find(wctx.Ctx, payload.Brief)
	if err != nil {
		return failure(fmt.Errorf("influencer search failed: %w", err))
	}

	if err := patchSection(wctx.Ctx, w.store, doc.ID, "influencers", found); err != nil {
		return failure(err)
	}

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{"count": len(found)},
	}, nil
}
