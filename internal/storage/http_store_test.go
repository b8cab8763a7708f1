package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPContentStoreUpload(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/contents", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "11111111-1111-1111-1111-111111111111"})
	}))
	defer srv.Close()

	store := NewHTTPContentStore(srv.URL)
	id, err := store.Upload(context.Background(), UploadRequest{
		Name:        "Client brief",
		FileName:    "brief.pdf",
		ContentType: "application/pdf",
		Reader:      strings.NewReader("pdf bytes"),
		Tags:        []string{"brief"},
	})
	require.NoError(t, err)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", id)

	assert.Equal(t, "brief.pdf", got["file_name"])
	assert.Equal(t, "application/pdf", got["document_type"])
	decoded, err := base64.StdEncoding.DecodeString(got["content_data_base64"].(string))
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(decoded))
}

func TestHTTPContentStoreDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/contents/abc/download", r.URL.Path)
		w.Write([]byte("file body"))
	}))
	defer srv.Close()

	store := NewHTTPContentStore(srv.URL)
	rc, err := store.GetReaderByContentID(context.Background(), "abc")
	require.NoError(t, err)
	defer rc.Close()

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(rc)
	require.NoError(t, err)
	assert.Equal(t, "file body", buf.String())
}

func TestHTTPContentStoreExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewHTTPContentStore(srv.URL)

	ok, err := store.Exists(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHTTPContentStoreMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/contents/abc/details", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"file_size": 2048,
			"mime_type": "application/pdf",
		})
	}))
	defer srv.Close()

	store := NewHTTPContentStore(srv.URL)
	meta, err := store.GetMetadata(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(2048), meta.Size)
	assert.Equal(t, "application/pdf", meta.ContentType)
}

func TestHTTPDerivedWriterRoundTrip(t *testing.T) {
	var putBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			require.Equal(t, "brief_text", r.URL.Query().Get("derivation_type"))
			json.NewEncoder(w).Encode([]map[string]string{
				{"variant": "brief_text_v1"},
			})
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&putBody))
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"id": "derived-id"})
		}
	}))
	defer srv.Close()

	writer := NewHTTPDerivedWriter(srv.URL)
	ctx := context.Background()

	ok, err := writer.HasDerived(ctx, "parent", "brief_text", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = writer.HasDerived(ctx, "parent", "brief_text", 2)
	require.NoError(t, err)
	assert.False(t, ok, "different version should not match")

	id, err := writer.PutDerived(ctx, "parent", "brief_text", 1, strings.NewReader("text"), map[string]string{"file_name": "brief.txt"})
	require.NoError(t, err)
	assert.Equal(t, "derived-id", id)
	assert.Equal(t, "brief_text_v1", putBody["variant"])
	assert.Equal(t, "brief.txt", putBody["file_name"])
}

func TestHTTPDerivedWriterMissingParent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	writer := NewHTTPDerivedWriter(srv.URL)
	ok, err := writer.HasDerived(context.Background(), "ghost", "brief_text", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
