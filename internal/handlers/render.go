package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/docstore"
	"github.com/docmakerhq/docmaker/internal/render"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

func (s *Server) handleRenderHTML(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadForRender(w, r)
	if !ok {
		return
	}

	htmlDoc, err := s.opts.Renderer.HTML(doc)
	if err != nil {
		s.logger.Warn("render failed", zap.String("document_id", doc.ID.String()), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to render document")
		return
	}

	s.saveExport(r.Context(), doc, docmaker.DerivedTypeRenderHTML, "text/html", htmlDoc)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(htmlDoc)
}

func (s *Server) handleRenderPDF(w http.ResponseWriter, r *http.Request) {
	if s.opts.PDF == nil {
		s.respondError(w, http.StatusNotImplemented, "PDF export is not configured")
		return
	}

	doc, ok := s.loadForRender(w, r)
	if !ok {
		return
	}

	htmlDoc, err := s.opts.Renderer.HTML(doc)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to render document")
		return
	}

	pdf, err := s.opts.PDF.PDF(r.Context(), htmlDoc)
	if errors.Is(err, render.ErrNoBrowser) {
		s.respondError(w, http.StatusNotImplemented, "no browser available for PDF export")
		return
	}
	if err != nil {
		s.logger.Warn("pdf render failed", zap.String("document_id", doc.ID.String()), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to render PDF")
		return
	}

	s.saveExport(r.Context(), doc, docmaker.DerivedTypeRenderPDF, "application/pdf", pdf)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.ID.String()+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if s.opts.Library == nil {
		s.respondError(w, http.StatusNotImplemented, "deck templates are not configured")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"templates": s.opts.Library.Templates()})
}

// saveExport keeps a copy of the export as derived content of the brief
// upload. Best effort: a storage failure never breaks the download.
func (s *Server) saveExport(ctx context.Context, doc *docmaker.Document, derivedType, mimeType string, data []byte) {
	if s.opts.Derived == nil || doc.BriefUploadID == nil {
		return
	}
	meta := map[string]string{"mime_type": mimeType}
	if _, err := s.opts.Derived.PutDerived(ctx, doc.BriefUploadID.String(), derivedType, 1, bytes.NewReader(data), meta); err != nil {
		s.logger.Warn("failed to persist export",
			zap.String("document_id", doc.ID.String()),
			zap.String("derived_type", derivedType),
			zap.Error(err))
	}
}

func (s *Server) loadForRender(w http.ResponseWriter, r *http.Request) (*docmaker.Document, bool) {
	id, ok := s.documentID(w, r)
	if !ok {
		return nil, false
	}

	doc, err := s.opts.Store.Get(r.Context(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return nil, false
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to fetch document")
		return nil, false
	}
	return doc, true
}
