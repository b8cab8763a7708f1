package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/docmakerhq/docmaker/internal/llm"
)

// fakeClient returns a canned completion and records the request.
type fakeClient struct {
	response string
	err      error
	lastReq  llm.Request
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (string, error) {
	f.lastReq = req
	return f.response, f.err
}

func (f *fakeClient) Provider() string { return "fake" }

func TestExtractFromText(t *testing.T) {
	client := &fakeClient{response: "```json\n" + `{
		"brand_name": " Acme Cosmetics ",
		"website": "https://acme.example",
		"budget": "$25,000",
		"goals": ["Awareness", "awareness", "Conversions", ""],
		"audience": "Gen Z skincare enthusiasts",
		"channels": ["Instagram", "TIKTOK", "instagram"],
		"deliverables": ["3 reels", "1 unboxing video"],
		"summary": "Acme wants a creator campaign."
	}` + "\n```"}

	extractor := NewExtractor(client, zaptest.NewLogger(t))
	brief, err := extractor.Extract(context.Background(), Input{Text: "Acme brief text"})
	require.NoError(t, err)

	assert.Equal(t, "Acme Cosmetics", brief.BrandName)
	assert.Equal(t, "$25,000", brief.Budget)
	assert.Equal(t, []string{"Awareness", "Conversions"}, brief.Goals)
	assert.Equal(t, []string{"instagram", "tiktok"}, brief.Channels)
	assert.Equal(t, []string{"3 reels", "1 unboxing video"}, brief.Deliverables)

	assert.True(t, client.lastReq.JSONMode)
	assert.Contains(t, client.lastReq.User, "Acme brief text")
	assert.Nil(t, client.lastReq.Image)
}

func TestExtractFromImage(t *testing.T) {
	client := &fakeClient{response: `{"brand_name":"Acme","budget":"$5k"}`}

	extractor := NewExtractor(client, zaptest.NewLogger(t))
	brief, err := extractor.Extract(context.Background(), Input{
		Image: &llm.Image{MIMEType: "image/png", Data: []byte{1, 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme", brief.BrandName)
	require.NotNil(t, client.lastReq.Image)
	assert.Equal(t, "image/png", client.lastReq.Image.MIMEType)
}

func TestExtractEmptyFields(t *testing.T) {
	client := &fakeClient{response: `{"brand_name":"","goals":[],"budget":""}`}

	extractor := NewExtractor(client, zaptest.NewLogger(t))
	_, err := extractor.Extract(context.Background(), Input{Text: "unrelated text"})
	assert.ErrorIs(t, err, ErrEmptyExtraction)
}

func TestExtractNoInput(t *testing.T) {
	extractor := NewExtractor(&fakeClient{}, zaptest.NewLogger(t))
	_, err := extractor.Extract(context.Background(), Input{})
	assert.Error(t, err)
}

func TestExtractMalformedJSON(t *testing.T) {
	client := &fakeClient{response: "The brief describes a campaign for Acme."}

	extractor := NewExtractor(client, zaptest.NewLogger(t))
	_, err := extractor.Extract(context.Background(), Input{Text: "brief"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed JSON")
}

func TestExtractListClamp(t *testing.T) {
	long := `{"brand_name":"Acme","goals":["g1","g2","g3","g4","g5","g6","g7","g8","g9","g10","g11","g12"]}`
	client := &fakeClient{response: long}

	extractor := NewExtractor(client, zaptest.NewLogger(t))
	brief, err := extractor.Extract(context.Background(), Input{Text: "brief"})
	require.NoError(t, err)
	assert.Len(t, brief.Goals, maxListItems)
}
