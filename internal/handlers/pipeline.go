package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/dbosruntime"
	"github.com/docmakerhq/docmaker/internal/docstore"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// handleTrigger enqueues one pipeline job for a document and returns
// 202 with the run id and the dedupe count for this (document, job).
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}

	job := chi.URLParam(r, "job")
	if !docmaker.ValidJob(job) {
		s.respondError(w, http.StatusBadRequest, "unknown pipeline job")
		return
	}

	// The document must exist before anything is enqueued.
	if _, err := s.opts.Store.Get(r.Context(), id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "failed to fetch document")
		return
	}

	req := docmaker.ProcessRequest{
		DocumentID: id.String(),
		Job:        job,
		Force:      r.URL.Query().Get("force") == "1" || r.URL.Query().Get("force") == "true",
	}

	seenCount := 0
	if s.opts.Dedupe != nil {
		count, err := s.opts.Dedupe.Record(r.Context(), req.DocumentID, job)
		if err != nil {
			// The trigger still goes through; the count is advisory.
			s.logger.Warn("failed to record dedupe", zap.Error(err))
		} else {
			seenCount = count
		}
	}

	runID, err := s.opts.Trigger(r.Context(), req)
	if err != nil {
		s.logger.Warn("failed to start pipeline job",
			zap.String("document_id", req.DocumentID),
			zap.String("job", job),
			zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to start pipeline job")
		return
	}

	s.respondJSON(w, http.StatusAccepted, docmaker.ProcessResponse{
		RunID:           runID,
		DedupeSeenCount: seenCount,
	})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runs == nil {
		s.respondError(w, http.StatusNotImplemented, "durable run tracking is not configured")
		return
	}

	runID := chi.URLParam(r, "runID")
	status, err := s.opts.Runs.GetWorkflowStatus(r.Context(), runID)
	if errors.Is(err, dbosruntime.ErrRunNotFound) {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to fetch run status")
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runs == nil {
		s.respondError(w, http.StatusNotImplemented, "durable run tracking is not configured")
		return
	}

	runs, err := s.opts.Runs.ListRecentRuns(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []dbosruntime.RunStatus{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}
