package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/metrics"
)

// ImageRequest describes one image generation call.
type ImageRequest struct {
	Prompt string
	Size   string
}

type imageGenRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageGenResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// GenerateImage renders one image and returns its bytes.
func (c *OpenAIClient) GenerateImage(ctx context.Context, req ImageRequest) ([]byte, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	startTime := time.Now()
	c.logger.Debug("image request",
		zap.String("model", c.imageModel),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.String("size", req.Size))

	c.rateGate()

	reqBody := imageGenRequest{
		Model:  c.imageModel,
		Prompt: req.Prompt,
		N:      1,
		Size:   req.Size,
	}
	// gpt-image models always return base64 and reject the
	// response_format parameter; dall-e models need it set.
	if !strings.HasPrefix(c.imageModel, "gpt-image") {
		reqBody.ResponseFormat = "b64_json"
	}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				metrics.ObserveLLMRequest("openai_images", "cancelled", time.Since(startTime))
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			}
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			metrics.ObserveLLMRequest("openai_images", "error", time.Since(startTime))
			return nil, fmt.Errorf("image request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var imgResp imageGenResponse
		if err := json.Unmarshal(body, &imgResp); err != nil {
			metrics.ObserveLLMRequest("openai_images", "error", time.Since(startTime))
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if imgResp.Error != nil {
			metrics.ObserveLLMRequest("openai_images", "error", time.Since(startTime))
			return nil, fmt.Errorf("API error: %s", imgResp.Error.Message)
		}
		if len(imgResp.Data) == 0 || imgResp.Data[0].B64JSON == "" {
			metrics.ObserveLLMRequest("openai_images", "error", time.Since(startTime))
			return nil, fmt.Errorf("no image returned")
		}

		data, err := base64.StdEncoding.DecodeString(imgResp.Data[0].B64JSON)
		if err != nil {
			metrics.ObserveLLMRequest("openai_images", "error", time.Since(startTime))
			return nil, fmt.Errorf("failed to decode image data: %w", err)
		}

		metrics.ObserveLLMRequest("openai_images", "ok", time.Since(startTime))
		c.logger.Debug("image done",
			zap.Duration("elapsed", time.Since(startTime)),
			zap.Int("bytes", len(data)))
		return data, nil
	}

	metrics.ObserveLLMRequest("openai_images", "retries_exceeded", time.Since(startTime))
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
