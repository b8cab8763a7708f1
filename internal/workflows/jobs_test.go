package workflows

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/docmakerhq/docmaker/internal/extract"
	"github.com/docmakerhq/docmaker/internal/llm"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// fakeReader serves uploads from a map keyed by content ID.
type fakeReader struct {
	contents map[string][]byte
}

func (r *fakeReader) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := r.contents[key]
	if !ok {
		return nil, errors.New("content not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (r *fakeReader) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := r.contents[key]
	return ok, nil
}

// fakeDerivedWriter records PutDerived calls.
type fakeDerivedWriter struct {
	puts map[string][]byte
	err  error
}

func (w *fakeDerivedWriter) HasDerived(ctx context.Context, contentID, derivedType string, derivedVersion int) (bool, error) {
	return false, nil
}

func (w *fakeDerivedWriter) PutDerived(ctx context.Context, contentID, derivedType string, derivedVersion int, r io.Reader, meta map[string]string) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if w.puts == nil {
		w.puts = make(map[string][]byte)
	}
	w.puts[derivedType] = data
	return "derived-" + derivedType, nil
}

// fakeLLM returns a canned completion.
type fakeLLM struct {
	response string
	err      error
	lastReq  llm.Request
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) Provider() string { return "fake" }

// tinyPNG is a 1x1 PNG, enough for MIME sniffing.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
}

func newUploadDoc(store *fakeStore, briefData, kickoffData []byte, reader *fakeReader) *docmaker.Document {
	doc := newTestDoc(store)
	if briefData != nil {
		id := uuid.New()
		doc.BriefUploadID = &id
		reader.contents[id.String()] = briefData
	}
	if kickoffData != nil {
		id := uuid.New()
		doc.KickoffUploadID = &id
		reader.contents[id.String()] = kickoffData
	}
	return doc
}

func TestParseWorkflowCombinesBriefAndKickoff(t *testing.T) {
	store := newFakeStore()
	reader := &fakeReader{contents: map[string][]byte{}}
	derived := &fakeDerivedWriter{}
	doc := newUploadDoc(store, []byte("Acme wants a summer campaign."), []byte("Kickoff notes: focus on video."), reader)

	w := NewParseWorkflow(store, reader, derived, zaptest.NewLogger(t))
	result, err := w.Execute(&WorkflowContext{
		Ctx:     context.Background(),
		Request: docmaker.ProcessRequest{DocumentID: doc.ID.String(), Job: docmaker.JobParse},
		RunID:   "test-run",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, false, result.Outputs["needs_vision"])

	stored, err := store.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.SourceText, "Acme wants a summer campaign.")
	assert.Contains(t, stored.SourceText, "Kickoff notes: focus on video.")

	// Combined text is also stored as a derived artifact.
	require.Contains(t, derived.puts, docmaker.DerivedTypeBriefText)
	assert.Contains(t, string(derived.puts[docmaker.DerivedTypeBriefText]), "Acme")
}

func TestParseWorkflowImageBriefNeedsVision(t *testing.T) {
	store := newFakeStore()
	reader := &fakeReader{contents: map[string][]byte{}}
	derived := &fakeDerivedWriter{}
	doc := newUploadDoc(store, tinyPNG, nil, reader)

	w := NewParseWorkflow(store, reader, derived, zaptest.NewLogger(t))
	result, err := w.Execute(&WorkflowContext{
		Ctx:     context.Background(),
		Request: docmaker.ProcessRequest{DocumentID: doc.ID.String(), Job: docmaker.JobParse},
		RunID:   "test-run",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, true, result.Outputs["needs_vision"])
}

func TestParseWorkflowMissingUpload(t *testing.T) {
	store := newFakeStore()
	doc := newTestDoc(store)

	w := NewParseWorkflow(store, &fakeReader{contents: map[string][]byte{}}, &fakeDerivedWriter{}, zaptest.NewLogger(t))
	_, err := w.Execute(&WorkflowContext{
		Ctx:     context.Background(),
		Request: docmaker.ProcessRequest{DocumentID: doc.ID.String(), Job: docmaker.JobParse},
		RunID:   "test-run",
	})
	assert.ErrorIs(t, err, ErrMissingUpload)
}

func TestParseWorkflowKickoffFailureDegrades(t *testing.T) {
	store := newFakeStore()
	reader := &fakeReader{contents: map[string][]byte{}}
	doc := newUploadDoc(store, []byte("brief text"), nil, reader)
	// Kickoff upload id points at content that no longer exists.
	missing := uuid.New()
	doc.KickoffUploadID = &missing

	w := NewParseWorkflow(store, reader, &fakeDerivedWriter{}, zaptest.NewLogger(t))
	result, err := w.Execute(&WorkflowContext{
		Ctx:     context.Background(),
		Request: docmaker.ProcessRequest{DocumentID: doc.ID.String(), Job: docmaker.JobParse},
		RunID:   "test-run",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	stored, err := store.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "brief text", stored.SourceText)
}

func TestExtractWorkflowFromSourceText(t *testing.T) {
	store := newFakeStore()
	doc := newTestDoc(store)
	require.NoError(t, store.SetSourceText(context.Background(), doc.ID, "Acme Coffee brief: launch espresso line."))

	client := &fakeLLM{response: `{"brand_name": "Acme Coffee", "industry": "food and beverage"}`}
	extractor := extract.NewExtractor(client, zaptest.NewLogger(t))

	w := NewExtractWorkflow(store, &fakeReader{contents: map[string][]byte{}}, extractor, zaptest.NewLogger(t))
	result, err := w.Execute(&WorkflowContext{
		Ctx:     context.Background(),
		Request: docmaker.ProcessRequest{DocumentID: doc.ID.String(), Job: docmaker.JobExtract},
		RunID:   "test-run",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Acme Coffee", result.Outputs["brand_name"])
	assert.Equal(t, false, result.Outputs["vision"])

	stored, err := store.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	payload, err := stored.DecodePayload()
	require.NoError(t, err)
	require.NotNil(t, payload.Brief)
	assert.Equal(t, "Acme Coffee", payload.Brief.BrandName)

	// The untitled document takes its title from the brand.
	assert.Equal(t, "Acme Coffee campaign", stored.Title)
}

func TestExtractWorkflowVisionFallback(t *testing.T) {
	store := newFakeStore()
	reader := &fakeReader{contents: map[string][]byte{}}
	doc := newUploadDoc(store, tinyPNG, nil, reader)

	client := &fakeLLM{response: `{"brand_name": "Scanned Brand"}`}
	extractor := extract.NewExtractor(client, zaptest.NewLogger(t))

	w := NewExtractWorkflow(store, reader, extractor, zaptest.NewLogger(t))
	result, err := w.Execute(&WorkflowContext{
		Ctx:     context.Background(),
		Request: docmaker.ProcessRequest{DocumentID: doc.ID.String(), Job: docmaker.JobExtract},
		RunID:   "test-run",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, true, result.Outputs["vision"])

	// The upload went to the model as an image.
	require.NotNil(t, client.lastReq.Image)
	assert.Equal(t, "image/png", client.lastReq.Image.MIMEType)
}

func TestExtractWorkflowImageBriefWithKickoff(t *testing.T) {
	store := newFakeStore()
	reader := &fakeReader{contents: map[string][]byte{}}
	doc := newUploadDoc(store, tinyPNG, []byte("Kickoff notes: launch in June."), reader)

	// Parse leaves only the kickoff text behind and flags the brief
	// for vision.
	pw := NewParseWorkflow(store, reader, &fakeDerivedWriter{}, zaptest.NewLogger(t))
	parseResult, err := pw.Execute(&WorkflowContext{
		Ctx:     context.Background(),
		Request: docmaker.ProcessRequest{DocumentID: doc.ID.String(), Job: docmaker.JobParse},
		RunID:   "test-run",
	})
	require.NoError(t, err)
	assert.Equal(t, true, parseResult.Outputs["needs_vision"])

	client := &fakeLLM{response: `{"brand_name": "Scanned Brand"}`}
	extractor := extract.NewExtractor(client, zaptest.NewLogger(t))

	w := NewExtractWorkflow(store, reader, extractor, zaptest.NewLogger(t))
	result, err := w.Execute(&WorkflowContext{
		Ctx:     context.Background(),
		Request: docmaker.ProcessRequest{DocumentID: doc.ID.String(), Job: docmaker.JobExtract},
		RunID:   "test-run",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, true, result.Outputs["vision"])

	// The image brief reaches the model even though the kickoff left
	// source text behind, and the kickoff text rides along.
	require.NotNil(t, client.lastReq.Image)
	assert.Equal(t, "image/png", client.lastReq.Image.MIMEType)
	assert.Contains(t, client.lastReq.User, "Kickoff notes: launch in June.")
}

func TestExtractWorkflowNothingToExtract(t *testing.T) {
	store := newFakeStore()
	doc := newTestDoc(store)

	extractor := extract.NewExtractor(&fakeLLM{}, zaptest.NewLogger(t))
	w := NewExtractWorkflow(store, &fakeReader{contents: map[string][]byte{}}, extractor, zaptest.NewLogger(t))
	_, err := w.Execute(&WorkflowContext{
		Ctx:     context.Background(),
		Request: docmaker.ProcessRequest{DocumentID: doc.ID.String(), Job: docmaker.JobExtract},
		RunID:   "test-run",
	})
	assert.ErrorIs(t, err, ErrMissingUpload)
}
