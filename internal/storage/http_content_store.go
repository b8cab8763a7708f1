package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPContentStore reads and writes content via a remote simple-content
// HTTP API, so workers can run separated from the server owning storage.
type HTTPContentStore struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPContentStore creates an HTTP-backed content store
func NewHTTPContentStore(baseURL string) *HTTPContentStore {
	return &HTTPContentStore{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload stores a new source file via the HTTP API and returns its content ID
func (cs *HTTPContentStore) Upload(ctx context.Context, req UploadRequest) (string, error) {
	data, err := io.ReadAll(req.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	reqBody := map[string]interface{}{
		"owner_id":            systemOwnerID.String(),
		"tenant_id":           systemTenantID.String(),
		"name":                req.Name,
		"document_type":       req.ContentType,
		"file_name":           req.FileName,
		"tags":                req.Tags,
		"content_data_base64": base64.StdEncoding.EncodeToString(data),
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal upload request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/contents", cs.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := cs.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to upload content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("no ID in upload response")
	}

	return result.ID, nil
}

// GetReaderByContentID returns a reader for content by content ID via the HTTP API
func (cs *HTTPContentStore) GetReaderByContentID(ctx context.Context, contentID string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/api/v1/contents/%s/download", cs.baseURL, contentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := cs.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download content: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// GetReader returns a reader for content (implements storage.Reader)
func (cs *HTTPContentStore) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	return cs.GetReaderByContentID(ctx, key)
}

// Exists checks if content exists by content ID via the HTTP API
func (cs *HTTPContentStore) Exists(ctx context.Context, key string) (bool, error) {
	url := fmt.Sprintf("%s/api/v1/contents/%s", cs.baseURL, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := cs.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to check content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return true, nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
}

// GetMetadata returns metadata for content via the HTTP API
func (cs *HTTPContentStore) GetMetadata(ctx context.Context, key string) (*Metadata, error) {
	url := fmt.Sprintf("%s/api/v1/contents/%s/details", cs.baseURL, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := cs.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get content details: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("details failed with status %d", resp.StatusCode)
	}

	var details struct {
		FileSize int64  `json:"file_size"`
		MimeType string `json:"mime_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("failed to decode details: %w", err)
	}

	return &Metadata{
		Size:        details.FileSize,
		ContentType: details.MimeType,
	}, nil
}
