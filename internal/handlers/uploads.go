package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/docstore"
	"github.com/docmakerhq/docmaker/internal/storage"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// Uploads are capped at 32 MiB; briefs are documents, not datasets.
const maxUploadSize = 32 << 20

type uploadResponse struct {
	UploadID string `json:"upload_id"`
	Role     string `json:"role"`
	FileName string `json:"file_name,omitempty"`
}

// handleUpload stores a multipart file upload and attaches it to the
// document under the given role (brief by default).
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	role := r.FormValue("role")
	if role == "" {
		role = docmaker.RoleBrief
	}
	if role != docmaker.RoleBrief && role != docmaker.RoleKickoff {
		s.respondError(w, http.StatusBadRequest, "role must be brief or kickoff")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	uploadID, err := s.attach(r, id, role, storage.UploadRequest{
		Name:        header.Filename,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	})
	if err != nil {
		s.uploadError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, uploadResponse{
		UploadID: uploadID,
		Role:     role,
		FileName: header.Filename,
	})
}

type driveImportRequest struct {
	FileID string `json:"file_id"`
	Role   string `json:"role"`
}

// handleDriveImport fetches a file from Google Drive and attaches it
// like a regular upload.
func (s *Server) handleDriveImport(w http.ResponseWriter, r *http.Request) {
	if s.opts.Drive == nil {
		s.respondError(w, http.StatusNotImplemented, "Drive import is not configured")
		return
	}

	id, ok := s.documentID(w, r)
	if !ok {
		return
	}

	var req driveImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID == "" {
		s.respondError(w, http.StatusBadRequest, "file_id is required")
		return
	}
	role := req.Role
	if role == "" {
		role = docmaker.RoleBrief
	}
	if role != docmaker.RoleBrief && role != docmaker.RoleKickoff {
		s.respondError(w, http.StatusBadRequest, "role must be brief or kickoff")
		return
	}

	file, err := s.opts.Drive.Fetch(r.Context(), req.FileID)
	if err != nil {
		s.logger.Warn("drive fetch failed", zap.String("file_id", req.FileID), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "failed to fetch file from Drive")
		return
	}

	uploadID, err := s.attach(r, id, role, storage.UploadRequest{
		Name:        file.Name,
		FileName:    file.Name,
		ContentType: file.MIMEType,
		Reader:      bytes.NewReader(file.Data),
	})
	if err != nil {
		s.uploadError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, uploadResponse{
		UploadID: uploadID,
		Role:     role,
		FileName: file.Name,
	})
}

// attach stores the upload and records it on the document.
func (s *Server) attach(r *http.Request, docID uuid.UUID, role string, req storage.UploadRequest) (string, error) {
	contentID, err := s.opts.Uploader.Upload(r.Context(), req)
	if err != nil {
		return "", err
	}

	uploadUUID, err := uuid.Parse(contentID)
	if err != nil {
		return "", err
	}
	if err := s.opts.Store.AttachUpload(r.Context(), docID, role, uploadUUID); err != nil {
		return "", err
	}
	return contentID, nil
}

func (s *Server) uploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, docstore.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.logger.Warn("upload failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, "failed to store upload")
}
