// Package llm provides typed clients for the language model providers
// behind extraction, research, image, and slide generation.
package llm

import "context"

// Image is an inline image attachment for multimodal requests.
type Image struct {
	MIMEType string
	Data     []byte
}

// Request describes one completion call.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int

	// JSONMode asks the provider to return a JSON object.
	JSONMode bool

	// Image attaches a scanned brief for vision extraction.
	Image *Image
}

// Client is implemented by each provider.
type Client interface {
	// Complete sends one request and returns the raw completion text.
	Complete(ctx context.Context, req Request) (string, error)

	// Provider names the backing provider for logs and metrics.
	Provider() string
}
