package workflows

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// GenerateWorkflow chains the whole pipeline: parse, extract, the
// enrichment jobs, then the deck. Research and influencers only need
// the extracted brief, so they run concurrently. Parse, extract, and
// slides are required; research, influencers, and images degrade to a
// warning so a flaky upstream API cannot sink the document.
type GenerateWorkflow struct {
	runner *Runner
	store  DocumentStore
	logger *zap.Logger
}

// NewGenerateWorkflow creates a generate workflow. The runner executes
// the child jobs, so each one keeps its own pipeline flag.
func NewGenerateWorkflow(runner *Runner, store DocumentStore, logger *zap.Logger) *GenerateWorkflow {
	return &GenerateWorkflow{
		runner: runner,
		store:  store,
		logger: logger.Named("generate"),
	}
}

// Name returns the workflow name.
func (w *GenerateWorkflow) Name() string {
	return "generate"
}

// stageOutcome is the result of one child job run.
type stageOutcome struct {
	ok      bool
	message string
}

// stageGroups orders the chain; jobs within a group run concurrently.
var stageGroups = [][]string{
	{docmaker.JobParse},
	{docmaker.JobExtract},
	{docmaker.JobResearch, docmaker.JobInfluencers},
	{docmaker.JobImages},
	{docmaker.JobSlides},
}

// Execute runs the full pipeline chain.
func (w *GenerateWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	docID, err := uuid.Parse(wctx.Request.DocumentID)
	if err != nil {
		return failure(fmt.Errorf("%w: bad document id: %v", ErrInvalidRequest, err))
	}

	if err := w.store.SetStatus(wctx.Ctx, docID, docmaker.StatusGenerating); err != nil {
		return failure(fmt.Errorf("failed to mark document generating: %w", err))
	}

	required := map[string]bool{
		docmaker.JobParse:   true,
		docmaker.JobExtract: true,
		docmaker.JobSlides:  true,
	}

	var warnings []string
	for _, group := range stageGroups {
		outcomes := make([]stageOutcome, len(group))
		if len(group) == 1 {
			outcomes[0] = w.runStage(wctx, group[0])
		} else {
			g := new(errgroup.Group)
			for i, job := range group {
				g.Go(func() error {
					outcomes[i] = w.runStage(wctx, job)
					return nil
				})
			}
			_ = g.Wait()
		}

		for i, job := range group {
			out := outcomes[i]
			if out.ok {
				continue
			}
			if required[job] {
				if statusErr := w.store.SetStatus(wctx.Ctx, docID, docmaker.StatusFailed); statusErr != nil {
					w.logger.Warn("failed to mark document failed", zap.Error(statusErr))
				}
				return failure(fmt.Errorf("%s stage failed: %s", job, out.message))
			}
			warnings = append(warnings, fmt.Sprintf("%s: %s", job, out.message))
			w.logger.Warn("optional stage failed, continuing",
				zap.String("job", job),
				zap.String("error", out.message))
		}
	}

	if err := w.store.SetStatus(wctx.Ctx, docID, docmaker.StatusReady); err != nil {
		return failure(fmt.Errorf("failed to mark document ready: %w", err))
	}

	outputs := map[string]interface{}{"stages": len(docmaker.Jobs()) - 1}
	if len(warnings) > 0 {
		outputs["warnings"] = warnings
	}
	return &WorkflowResult{Success: true, Outputs: outputs}, nil
}

// runStage runs one child job, keeping the parent's force flag so a
// forced regeneration reruns every stage.
func (w *GenerateWorkflow) runStage(wctx *WorkflowContext, job string) stageOutcome {
	childReq := docmaker.ProcessRequest{
		DocumentID: wctx.Request.DocumentID,
		Job:        job,
		Force:      wctx.Request.Force,
		Metadata:   wctx.Request.Metadata,
	}
	result, err := w.runner.Run(wctx.Ctx, childReq)

	if err == nil && result != nil && result.Success {
		if result.Skipped {
			w.logger.Info("stage already complete", zap.String("job", job))
		}
		return stageOutcome{ok: true}
	}

	message := "stage failed"
	if err != nil {
		message = err.Error()
	} else if result != nil && result.Error != "" {
		message = result.Error
	}
	return stageOutcome{message: message}
}
