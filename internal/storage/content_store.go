package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/tendant/simple-content/pkg/simplecontent"
)

// Uploads are stored under a single system owner/tenant; per-user
// ownership lives in the documents table, not the content store.
var (
	systemOwnerID  = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	systemTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

// ContentStore reads and writes content via an embedded simple-content service
type ContentStore struct {
	service simplecontent.Service
}

// NewContentStore creates a content store backed by a simple-content service
func NewContentStore(service simplecontent.Service) *ContentStore {
	return &ContentStore{
		service: service,
	}
}

// Upload stores a new source file and returns its content ID
func (cs *ContentStore) Upload(ctx context.Context, req UploadRequest) (string, error) {
	content, err := cs.service.UploadContent(ctx, simplecontent.UploadContentRequest{
		OwnerID:      systemOwnerID,
		TenantID:     systemTenantID,
		Name:         req.Name,
		DocumentType: req.ContentType,
		Reader:       req.Reader,
		FileName:     req.FileName,
		Tags:         req.Tags,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload content: %w", err)
	}

	return content.ID.String(), nil
}

// GetReaderByContentID returns a reader for content by content ID
func (cs *ContentStore) GetReaderByContentID(ctx context.Context, contentID string) (io.ReadCloser, error) {
	id, err := uuid.Parse(contentID)
	if err != nil {
		return nil, fmt.Errorf("invalid content ID: %w", err)
	}

	reader, err := cs.service.DownloadContent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to download content: %w", err)
	}

	return reader, nil
}

// GetReader returns a reader for content (implements storage.Reader)
// The key parameter is expected to be a content ID
func (cs *ContentStore) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	return cs.GetReaderByContentID(ctx, key)
}

// Exists checks if content exists by content ID
func (cs *ContentStore) Exists(ctx context.Context, key string) (bool, error) {
	id, err := uuid.Parse(key)
	if err != nil {
		return false, fmt.Errorf("invalid content ID: %w", err)
	}

	if _, err := cs.service.GetContent(ctx, id); err != nil {
		// The service does not export a typed not-found error, so any
		// lookup failure reads as absent.
		return false, nil
	}

	return true, nil
}

// GetMetadata returns metadata for content
func (cs *ContentStore) GetMetadata(ctx context.Context, key string) (*Metadata, error) {
	id, err := uuid.Parse(key)
	if err != nil {
		return nil, fmt.Errorf("invalid content ID: %w", err)
	}

	details, err := cs.service.GetContentDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get content details: %w", err)
	}

	return &Metadata{
		Size:        details.FileSize,
		ContentType: details.MimeType,
	}, nil
}
