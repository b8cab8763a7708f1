package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/docmakerhq/docmaker/internal/metrics"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiClient implements Client over the Gemini SDK.
type GeminiClient struct {
	client    *genai.Client
	modelName string
	logger    *zap.Logger
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-3-flash-preview"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: cfg.Model,
		logger:    logger.Named("gemini"),
	}, nil
}

// Close releases the underlying client.
func (g *GeminiClient) Close() {
	g.client.Close()
}

// Provider names the backing provider.
func (g *GeminiClient) Provider() string { return "gemini" }

// Complete sends one generation request.
func (g *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	startTime := time.Now()
	g.logger.Debug("generation request",
		zap.String("model", g.modelName),
		zap.Int("user_len", len(req.User)),
		zap.Bool("json_mode", req.JSONMode))

	// A fresh model instance per call so JSON mode and temperature
	// never leak between concurrent requests.
	model := g.client.GenerativeModel(g.modelName)
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSONMode {
		model.ResponseMIMEType = "application/json"
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	parts := []genai.Part{genai.Text(req.User)}
	if req.Image != nil {
		format := strings.TrimPrefix(req.Image.MIMEType, "image/")
		parts = append(parts, genai.ImageData(format, req.Image.Data))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		metrics.ObserveLLMRequest(g.Provider(), "error", time.Since(startTime))
		return "", fmt.Errorf("gemini generation error: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		metrics.ObserveLLMRequest(g.Provider(), "error", time.Since(startTime))
		return "", err
	}

	metrics.ObserveLLMRequest(g.Provider(), "ok", time.Since(startTime))
	g.logger.Debug("generation done",
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Int("response_len", len(text)))
	return strings.TrimSpace(text), nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}
