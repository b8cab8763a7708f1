// Package workflows executes the DocMaker pipeline jobs, either
// synchronously in-process or durably via DBOS. Every job follows the
// same discipline: mark its pipeline flag running, do the work,
// merge-patch its payload section, mark complete or failed.
package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dbos-inc/dbos-transact-golang/dbos"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/dbosruntime"
	"github.com/docmakerhq/docmaker/internal/metrics"
	"github.com/docmakerhq/docmaker/internal/storage"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// DocumentStore is the slice of the document store the workflows use.
// Satisfied by *docstore.Store.
type DocumentStore interface {
	Get(ctx context.Context, id uuid.UUID) (*docmaker.Document, error)
	MergePatch(ctx context.Context, id uuid.UUID, patch json.RawMessage) (*docmaker.Document, error)
	PipelineStatus(ctx context.Context, id uuid.UUID) (docmaker.PipelineState, error)
	SetPipelineStatus(ctx context.Context, id uuid.UUID, job string, state docmaker.StepState) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	SetTitle(ctx context.Context, id uuid.UUID, title string) error
	SetSourceText(ctx context.Context, id uuid.UUID, text string) error
}

// WorkflowContext contains context for workflow execution.
type WorkflowContext struct {
	Ctx     context.Context
	Request docmaker.ProcessRequest
	RunID   string
}

// WorkflowResult contains the result of workflow execution.
type WorkflowResult struct {
	Success bool
	Skipped bool
	Error   string
	Outputs map[string]interface{}
}

// Workflow defines the interface for pipeline job workflows.
type Workflow interface {
	// Execute runs the workflow
	Execute(wctx *WorkflowContext) (*WorkflowResult, error)

	// Name returns the workflow name
	Name() string
}

// Runner executes registered workflows and keeps the per-document
// pipeline flags coherent around each run.
type Runner struct {
	workflows   map[string]Workflow
	dbosRuntime *dbosruntime.Runtime
	store       DocumentStore
	logger      *zap.Logger
}

// NewRunner creates a runner. dbosRuntime may be nil, in which case
// only synchronous execution is available.
func NewRunner(store DocumentStore, dbosRuntime *dbosruntime.Runtime, logger *zap.Logger) *Runner {
	runner := &Runner{
		workflows:   make(map[string]Workflow),
		dbosRuntime: dbosRuntime,
		store:       store,
		logger:      logger.Named("workflows"),
	}

	if dbosRuntime != nil {
		dbos.RegisterWorkflow(dbosRuntime.Context(), runner.executeWorkflowDBOS)
	}

	return runner
}

// Register registers a workflow for a job name.
func (r *Runner) Register(job string, workflow Workflow) {
	r.workflows[job] = workflow
	r.logger.Info("workflow registered",
		zap.String("job", job),
		zap.String("workflow", workflow.Name()))
}

// Run executes a job synchronously.
func (r *Runner) Run(ctx context.Context, req docmaker.ProcessRequest) (*WorkflowResult, error) {
	wctx := &WorkflowContext{
		Ctx:     ctx,
		Request: req,
		RunID:   newRunID(req),
	}
	return r.execute(wctx)
}

// RunAsync enqueues a job for durable execution via DBOS and returns
// the run id.
func (r *Runner) RunAsync(ctx context.Context, req docmaker.ProcessRequest) (string, error) {
	if r.dbosRuntime == nil {
		return "", errors.New("DBOS runtime not initialized")
	}

	workflowID := newRunID(req)
	handle, err := dbos.RunWorkflow[docmaker.ProcessRequest, *WorkflowResult](
		r.dbosRuntime.Context(),
		r.executeWorkflowDBOS,
		req,
		dbos.WithWorkflowID(workflowID),
		dbos.WithQueue(r.dbosRuntime.QueueName()),
	)
	if err != nil {
		return "", err
	}
	return handle.GetWorkflowID(), nil
}

// RunDetached executes a job in a background goroutine and returns the
// run id immediately. Development fallback for running without a DBOS
// runtime; the run does not survive a process restart.
func (r *Runner) RunDetached(ctx context.Context, req docmaker.ProcessRequest) (string, error) {
	runID := newRunID(req)
	go func() {
		wctx := &WorkflowContext{
			Ctx:     context.Background(),
			Request: req,
			RunID:   runID,
		}
		if _, err := r.execute(wctx); err != nil {
			r.logger.Warn("detached run failed",
				zap.String("run_id", runID),
				zap.Error(err))
		}
	}()
	return runID, nil
}

// executeWorkflowDBOS is the DBOS workflow function wrapping every
// registered job.
func (r *Runner) executeWorkflowDBOS(dbosCtx dbos.DBOSContext, req docmaker.ProcessRequest) (*WorkflowResult, error) {
	workflowID, err := dbosCtx.GetWorkflowID()
	if err != nil {
		return &WorkflowResult{Error: err.Error()}, err
	}

	wctx := &WorkflowContext{
		Ctx:     dbosCtx,
		Request: req,
		RunID:   workflowID,
	}
	return r.execute(wctx)
}

// execute wraps one workflow run with pipeline-flag bookkeeping:
// skip-if-complete, running, then complete or failed.
func (r *Runner) execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	req := wctx.Request
	logger := r.logger.With(
		zap.String("run_id", wctx.RunID),
		zap.String("document_id", req.DocumentID),
		zap.String("job", req.Job))

	workflow, ok := r.workflows[req.Job]
	if !ok {
		return &WorkflowResult{Error: ErrWorkflowNotFound.Error()}, ErrWorkflowNotFound
	}

	docID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		return &WorkflowResult{Error: err.Error()}, fmt.Errorf("%w: bad document id: %v", ErrInvalidRequest, err)
	}

	if !req.Force {
		state, err := r.store.PipelineStatus(wctx.Ctx, docID)
		if err != nil {
			return &WorkflowResult{Error: err.Error()}, fmt.Errorf("failed to read pipeline state: %w", err)
		}
		if state.Complete(req.Job) {
			logger.Info("job already complete, skipping")
			metrics.ObservePipelineRun(req.Job, "skipped", 0)
			return &WorkflowResult{Success: true, Skipped: true}, nil
		}
	}

	if err := r.store.SetPipelineStatus(wctx.Ctx, docID, req.Job, docmaker.StepState{
		Status: docmaker.StepRunning,
		RunID:  wctx.RunID,
	}); err != nil {
		return &WorkflowResult{Error: err.Error()}, fmt.Errorf("failed to mark job running: %w", err)
	}

	logger.Info("job started")
	start := time.Now()
	result, execErr := workflow.Execute(wctx)
	elapsed := time.Since(start)

	if execErr != nil || result == nil || !result.Success {
		message := "workflow failed"
		if execErr != nil {
			message = execErr.Error()
		} else if result != nil && result.Error != "" {
			message = result.Error
		}
		if err := r.store.SetPipelineStatus(wctx.Ctx, docID, req.Job, docmaker.StepState{
			Status: docmaker.StepFailed,
			RunID:  wctx.RunID,
			Error:  message,
		}); err != nil {
			logger.Warn("failed to record job failure", zap.Error(err))
		}
		metrics.ObservePipelineRun(req.Job, "failed", elapsed)
		logger.Warn("job failed", zap.Duration("elapsed", elapsed), zap.String("error", message))
		if execErr != nil {
			return result, execErr
		}
		return result, nil
	}

	if err := r.store.SetPipelineStatus(wctx.Ctx, docID, req.Job, docmaker.StepState{
		Status: docmaker.StepComplete,
		RunID:  wctx.RunID,
	}); err != nil {
		logger.Warn("failed to record job completion", zap.Error(err))
	}
	metrics.ObservePipelineRun(req.Job, "complete", elapsed)
	logger.Info("job complete", zap.Duration("elapsed", elapsed))
	return result, nil
}

// newRunID builds a run id carrying the job and document for log
// greppability, unique per trigger.
func newRunID(req docmaker.ProcessRequest) string {
	return fmt.Sprintf("%s-%s-%d", req.Job, req.DocumentID, time.Now().UnixNano())
}

// failure builds a failed result and matching error.
func failure(err error) (*WorkflowResult, error) {
	return &WorkflowResult{Error: err.Error()}, err
}

// getDocument loads the document a request targets.
func getDocument(ctx context.Context, store DocumentStore, req docmaker.ProcessRequest) (*docmaker.Document, error) {
	docID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad document id: %v", ErrInvalidRequest, err)
	}
	return store.Get(ctx, docID)
}

// patchSection merge-patches one payload section, leaving every other
// section untouched.
func patchSection(ctx context.Context, store DocumentStore, docID uuid.UUID, section string, value interface{}) error {
	patch, err := json.Marshal(map[string]interface{}{section: value})
	if err != nil {
		return fmt.Errorf("failed to encode %s patch: %w", section, err)
	}
	if _, err := store.MergePatch(ctx, docID, patch); err != nil {
		return fmt.Errorf("failed to patch %s: %w", section, err)
	}
	return nil
}

// readContent reads a stored upload fully into memory.
func readContent(ctx context.Context, reader storage.Reader, contentID string) ([]byte, error) {
	rc, err := reader.GetReader(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", contentID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", contentID, err)
	}
	return data, nil
}
