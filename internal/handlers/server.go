// Package handlers exposes the DocMaker HTTP API: document CRUD and
// merge-patch, uploads, Drive imports, pipeline triggers, and renders.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/dbosruntime"
	"github.com/docmakerhq/docmaker/internal/gdrive"
	"github.com/docmakerhq/docmaker/internal/metrics"
	"github.com/docmakerhq/docmaker/internal/render"
	"github.com/docmakerhq/docmaker/internal/slides"
	"github.com/docmakerhq/docmaker/internal/storage"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// DocumentStore is the slice of the document store the API serves.
// Satisfied by *docstore.Store.
type DocumentStore interface {
	Create(ctx context.Context, kind, title string) (*docmaker.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*docmaker.Document, error)
	List(ctx context.Context, limit, offset int) ([]docmaker.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MergePatch(ctx context.Context, id uuid.UUID, patch json.RawMessage) (*docmaker.Document, error)
	PipelineStatus(ctx context.Context, id uuid.UUID) (docmaker.PipelineState, error)
	AttachUpload(ctx context.Context, id uuid.UUID, role string, uploadID uuid.UUID) error
}

// TriggerFunc starts a pipeline job and returns its run id. Wired to
// Runner.RunAsync under DBOS or Runner.RunDetached without it.
type TriggerFunc func(ctx context.Context, req docmaker.ProcessRequest) (string, error)

// DedupeRecorder counts repeated triggers per document and job.
type DedupeRecorder interface {
	Record(ctx context.Context, documentID, job string) (int, error)
}

// RunStatusReader reads durable workflow run state.
type RunStatusReader interface {
	GetWorkflowStatus(ctx context.Context, runID string) (*dbosruntime.RunStatus, error)
	ListRecentRuns(ctx context.Context, limit int) ([]dbosruntime.RunStatus, error)
}

// PDFRenderer renders an HTML document to PDF bytes.
type PDFRenderer interface {
	PDF(ctx context.Context, htmlDoc []byte) ([]byte, error)
}

// DriveFetcher fetches a file from Google Drive.
type DriveFetcher interface {
	Fetch(ctx context.Context, fileID string) (*gdrive.File, error)
}

// Options wires the server's collaborators. Nil optional fields
// disable their endpoints with a clear error instead of panicking.
type Options struct {
	Store    DocumentStore
	Uploader storage.Uploader
	Trigger  TriggerFunc
	Dedupe   DedupeRecorder
	Runs     RunStatusReader // nil without a DBOS runtime
	Renderer *render.Renderer
	PDF      PDFRenderer    // nil disables PDF export
	Drive    DriveFetcher   // nil disables Drive imports
	Derived  storage.Writer // nil disables export persistence
	Library  *slides.Library
	APIKey   string // empty disables auth
}

// Server is the DocMaker HTTP API.
type Server struct {
	opts   Options
	logger *zap.Logger
}

// NewServer creates the API server.
func NewServer(opts Options, logger *zap.Logger) *Server {
	return &Server{
		opts:   opts,
		logger: logger.Named("http"),
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/templates", s.handleTemplates)
		r.Get("/runs/{runID}", s.handleRunStatus)
		r.Get("/runs", s.handleListRuns)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.With(s.requireAPIKey).Post("/", s.handleCreateDocument)

			r.Route("/{documentID}", func(r chi.Router) {
				r.Get("/", s.handleGetDocument)
				r.Get("/pipeline", s.handlePipelineStatus)
				r.Get("/render", s.handleRenderHTML)
				r.Get("/render.pdf", s.handleRenderPDF)

				r.Group(func(r chi.Router) {
					r.Use(s.requireAPIKey)
					r.Patch("/", s.handlePatchDocument)
					r.Delete("/", s.handleDeleteDocument)
					r.Post("/uploads", s.handleUpload)
					r.Post("/imports/drive", s.handleDriveImport)
					r.Post("/pipeline/{job}", s.handleTrigger)
				})
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// documentID parses the path parameter, writing a 400 on failure.
func (s *Server) documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid document id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
