package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testOpenAIClient(t *testing.T, srvURL string) *OpenAIClient {
	t.Helper()
	return NewOpenAIClient(OpenAIConfig{
		APIKey:      "test-key",
		BaseURL:     srvURL,
		Model:       "gpt-4o",
		ImageModel:  "gpt-image-1",
		Timeout:     5 * time.Second,
		MinInterval: time.Millisecond,
		MaxRetries:  2,
	}, zaptest.NewLogger(t))
}

func chatCompletion(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
}

func TestOpenAIComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(chatCompletion(`  {"brand_name":"Acme"}  `))
	}))
	defer srv.Close()

	client := testOpenAIClient(t, srv.URL)
	out, err := client.Complete(context.Background(), Request{
		System:   "You extract campaign briefs.",
		User:     "Brief text here",
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"brand_name":"Acme"}`, out)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.Equal(t, 4096, got.MaxTokens)
}

func TestOpenAICompleteRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(chatCompletion("recovered"))
	}))
	defer srv.Close()

	client := testOpenAIClient(t, srv.URL)
	out, err := client.Complete(context.Background(), Request{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAICompleteFailsFastOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad prompt"}}`))
	}))
	defer srv.Close()

	client := testOpenAIClient(t, srv.URL)
	_, err := client.Complete(context.Background(), Request{User: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad prompt")
	assert.Equal(t, int32(1), calls.Load(), "client errors must not retry")
}

func TestOpenAICompleteVisionParts(t *testing.T) {
	var raw map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		json.NewEncoder(w).Encode(chatCompletion("seen"))
	}))
	defer srv.Close()

	client := testOpenAIClient(t, srv.URL)
	_, err := client.Complete(context.Background(), Request{
		User:  "What does this brief say?",
		Image: &Image{MIMEType: "image/png", Data: []byte{0x89, 0x50}},
	})
	require.NoError(t, err)

	messages := raw["messages"].([]interface{})
	require.Len(t, messages, 1)
	parts := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]interface{})["type"])
	imagePart := parts[1].(map[string]interface{})
	assert.Equal(t, "image_url", imagePart["type"])
	url := imagePart["image_url"].(map[string]interface{})["url"].(string)
	assert.Contains(t, url, "data:image/png;base64,")
}

func TestOpenAICompleteMissingKey(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{BaseURL: "http://unused"}, zaptest.NewLogger(t))
	_, err := client.Complete(context.Background(), Request{User: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestGenerateImage(t *testing.T) {
	payload := []byte("fake png bytes")
	var got imageGenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/images/generations", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"b64_json": base64.StdEncoding.EncodeToString(payload)},
			},
		})
	}))
	defer srv.Close()

	client := testOpenAIClient(t, srv.URL)
	data, err := client.GenerateImage(context.Background(), ImageRequest{
		Prompt: "a clean hero image",
		Size:   "1536x1024",
	})
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, 1, got.N)
	assert.Equal(t, "gpt-image-1", got.Model)
	assert.Empty(t, got.ResponseFormat, "gpt-image models reject response_format")
}

func TestGenerateImageDallERequestsBase64(t *testing.T) {
	var got imageGenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString([]byte("x"))}},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(OpenAIConfig{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		ImageModel:  "dall-e-3",
		MinInterval: time.Millisecond,
	}, zaptest.NewLogger(t))

	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "b64_json", got.ResponseFormat)
}
