// Package storage stores uploaded briefs and derived artifacts
// (parsed text, generated images, render exports) through the
// simple-content service, either embedded or over its HTTP API.
package storage

import (
	"context"
	"io"
)

// Reader provides read access to stored uploads and derived artifacts
type Reader interface {
	// GetReader returns a reader for the content at the given key
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if content exists at the given key
	Exists(ctx context.Context, key string) (bool, error)
}

// Metadata contains storage object metadata
type Metadata struct {
	Size        int64
	ContentType string
	ETag        string
}

// ReaderWithMetadata provides read access with metadata
type ReaderWithMetadata interface {
	Reader

	// GetMetadata returns metadata for content at the given key
	GetMetadata(ctx context.Context, key string) (*Metadata, error)
}

// UploadRequest describes a new source file to store
type UploadRequest struct {
	Name        string
	FileName    string
	ContentType string
	Reader      io.Reader
	Tags        []string
}

// Uploader stores new source files and returns their content IDs
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (string, error)
}

// Writer stores derived artifacts under a parent content ID
type Writer interface {
	// HasDerived checks if a derived output already exists for the given type/version
	HasDerived(ctx context.Context, contentID string, derivedType string, derivedVersion int) (bool, error)

	// PutDerived creates or upserts a derived output and returns its content ID
	PutDerived(ctx context.Context, contentID string, derivedType string, derivedVersion int, r io.Reader, meta map[string]string) (string, error)
}
