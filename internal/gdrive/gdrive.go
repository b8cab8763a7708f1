// Package gdrive imports brief files from Google Drive using a
// service-account credential.
package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Imported files are capped; briefs are documents, not datasets.
const maxImportSize = 25 << 20 // 25MB

// Google-native files have no binary content and must be exported.
// Everything Docs-like exports as plain text for the parse stage.
var exportMIMETypes = map[string]string{
	"application/vnd.google-apps.document":     "text/plain",
	"application/vnd.google-apps.presentation": "text/plain",
	"application/vnd.google-apps.spreadsheet":  "text/csv",
}

// File is one imported Drive file.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Client fetches files from Google Drive.
type Client struct {
	drive  *drive.Service
	logger *zap.Logger
}

// NewClient builds a Drive client from a service-account JSON key.
func NewClient(ctx context.Context, credentialsPath string, logger *zap.Logger) (*Client, error) {
	if err := ValidateCredentialsFile(credentialsPath); err != nil {
		return nil, err
	}

	credentials, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentials, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	service, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &Client{
		drive:  service,
		logger: logger.Named("gdrive"),
	}, nil
}

// Fetch downloads one file. Binary files download as-is; Google-native
// documents are exported to a parseable format.
func (c *Client) Fetch(ctx context.Context, fileID string) (*File, error) {
	meta, err := c.drive.Files.Get(fileID).
		Fields("id, name, mimeType, size").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to look up drive file: %w", err)
	}
	if meta.Size > maxImportSize {
		return nil, fmt.Errorf("drive file too large: %d bytes", meta.Size)
	}

	exportMIME, isNative := exportMIMETypes[meta.MimeType]
	if !isNative && strings.HasPrefix(meta.MimeType, "application/vnd.google-apps.") {
		return nil, fmt.Errorf("unsupported google-native type: %s", meta.MimeType)
	}

	var (
		resp     io.ReadCloser
		mimeType string
	)
	if isNative {
		r, err := c.drive.Files.Export(fileID, exportMIME).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("failed to export drive file: %w", err)
		}
		resp = r.Body
		mimeType = exportMIME
	} else {
		r, err := c.drive.Files.Get(fileID).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("failed to download drive file: %w", err)
		}
		resp = r.Body
		mimeType = meta.MimeType
	}
	defer resp.Close()

	data, err := io.ReadAll(io.LimitReader(resp, maxImportSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read drive file: %w", err)
	}
	if len(data) > maxImportSize {
		return nil, fmt.Errorf("drive file too large")
	}

	c.logger.Info("drive file imported",
		zap.String("file_id", fileID),
		zap.String("name", meta.Name),
		zap.String("mime_type", mimeType),
		zap.Int("bytes", len(data)))

	return &File{
		Name:     meta.Name,
		MIMEType: mimeType,
		Data:     data,
	}, nil
}

// ServiceAccountCredentials is the shape of a Google service account
// JSON key file.
type ServiceAccountCredentials struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

// ValidateCredentialsFile checks the credentials file exists and
// carries the fields JWT auth needs, so a misconfigured deployment
// fails at startup rather than on the first import.
func ValidateCredentialsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read credentials file: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("credentials file is empty: %s", path)
	}

	var creds ServiceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("failed to parse credentials JSON: %w", err)
	}

	if creds.Type == "" {
		return fmt.Errorf("missing required field: type")
	}
	if creds.PrivateKey == "" {
		return fmt.Errorf("missing required field: private_key")
	}
	if creds.ClientEmail == "" {
		return fmt.Errorf("missing required field: client_email")
	}
	if creds.TokenURI == "" {
		return fmt.Errorf("missing required field: token_uri")
	}
	return nil
}
