// Package client is a Go client for the DocMaker HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// Client talks to a DocMaker server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithAPIKey sends a bearer token on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateDocument creates a document of the given kind.
func (c *Client) CreateDocument(ctx context.Context, kind, title string) (*docmaker.Document, error) {
	var doc docmaker.Document
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/documents", map[string]string{
		"kind":  kind,
		"title": title,
	}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocument fetches a document with its payload and pipeline state.
func (c *Client) GetDocument(ctx context.Context, id uuid.UUID) (*docmaker.Document, error) {
	var doc docmaker.Document
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/documents/"+id.String(), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments lists stored documents.
func (c *Client) ListDocuments(ctx context.Context) ([]docmaker.Document, error) {
	var out struct {
		Documents []docmaker.Document `json:"documents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/documents", nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

// PatchDocument applies an RFC 7386 merge patch to the payload.
func (c *Client) PatchDocument(ctx context.Context, id uuid.UUID, patch interface{}) (*docmaker.Document, error) {
	var doc docmaker.Document
	if err := c.doJSON(ctx, http.MethodPatch, "/api/v1/documents/"+id.String(), patch, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument deletes a document.
func (c *Client) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/documents/"+id.String(), nil, nil)
}

// UploadResult describes a stored upload.
type UploadResult struct {
	UploadID string `json:"upload_id"`
	Role     string `json:"role"`
	FileName string `json:"file_name,omitempty"`
}

// Upload stores a brief or kickoff file on a document.
func (c *Client) Upload(ctx context.Context, id uuid.UUID, role, fileName string, data io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("role", role); err != nil {
		return nil, err
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/documents/"+id.String()+"/uploads", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResult
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportFromDrive fetches a Google Drive file onto a document.
func (c *Client) ImportFromDrive(ctx context.Context, id uuid.UUID, fileID, role string) (*UploadResult, error) {
	var out UploadResult
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/documents/"+id.String()+"/imports/drive", map[string]string{
		"file_id": fileID,
		"role":    role,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Trigger starts a pipeline job. Force reruns completed stages.
func (c *Client) Trigger(ctx context.Context, id uuid.UUID, job string, force bool) (*docmaker.ProcessResponse, error) {
	path := "/api/v1/documents/" + id.String() + "/pipeline/" + url.PathEscape(job)
	if force {
		path += "?force=1"
	}
	var out docmaker.ProcessResponse
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PipelineStatus fetches the per-job pipeline flags.
func (c *Client) PipelineStatus(ctx context.Context, id uuid.UUID) (docmaker.PipelineState, error) {
	var out struct {
		Pipeline docmaker.PipelineState `json:"pipeline"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/documents/"+id.String()+"/pipeline", nil, &out); err != nil {
		return nil, err
	}
	return out.Pipeline, nil
}

// RenderHTML fetches the rendered HTML document.
func (c *Client) RenderHTML(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return c.fetchRaw(ctx, "/api/v1/documents/"+id.String()+"/render")
}

// RenderPDF fetches the rendered PDF.
func (c *Client) RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return c.fetchRaw(ctx, "/api/v1/documents/"+id.String()+"/render.pdf")
}

func (c *Client) fetchRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, into interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, into)
}

func (c *Client) do(req *http.Request, into interface{}) error {
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if into == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
}
