package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/docmakerhq/docmaker/internal/docstore"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// Merge patches are capped well above any realistic payload.
const maxPatchSize = 1 << 20

type createDocumentRequest struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !docmaker.ValidKind(req.Kind) {
		s.respondError(w, http.StatusBadRequest, "kind must be proposal or deck")
		return
	}

	doc, err := s.opts.Store.Create(r.Context(), req.Kind, req.Title)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to create document")
		return
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	docs, err := s.opts.Store.List(r.Context(), limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []docmaker.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}

	doc, err := s.opts.Store.Get(r.Context(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to fetch document")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

// handlePatchDocument applies an RFC 7386 merge patch to the payload.
// The wizard edits brief fields through this.
func (s *Server) handlePatchDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}

	patch, err := io.ReadAll(io.LimitReader(r.Body, maxPatchSize))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read patch")
		return
	}

	doc, err := s.opts.Store.MergePatch(r.Context(), id, patch)
	if errors.Is(err, docstore.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if errors.Is(err, docstore.ErrBadPatch) {
		s.respondError(w, http.StatusBadRequest, "invalid merge patch")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to patch document")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}

	err := s.opts.Store.Delete(r.Context(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}

	state, err := s.opts.Store.PipelineStatus(r.Context(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to fetch pipeline status")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"pipeline": state})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
