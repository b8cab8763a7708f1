package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/docmakerhq/docmaker/internal/llm"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

type fakeProvider struct {
	err     error
	failFor map[string]bool // substring of prompt that fails
	prompts []string
}

func (f *fakeProvider) GenerateImage(_ context.Context, req llm.ImageRequest) ([]byte, error) {
	f.prompts = append(f.prompts, req.Prompt)
	if f.err != nil {
		return nil, f.err
	}
	for needle := range f.failFor {
		if bytes.Contains([]byte(req.Prompt), []byte(needle)) {
			return nil, fmt.Errorf("provider rejected prompt")
		}
	}
	return testPNG(2048, 1536), nil
}

type putCall struct {
	derivedType string
	meta        map[string]string
	size        int
}

type fakeWriter struct {
	puts    []putCall
	failPut bool
}

func (f *fakeWriter) HasDerived(context.Context, string, string, int) (bool, error) {
	return false, nil
}

func (f *fakeWriter) PutDerived(_ context.Context, _ string, derivedType string, _ int, r io.Reader, meta map[string]string) (string, error) {
	if f.failPut {
		return "", fmt.Errorf("storage unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.puts = append(f.puts, putCall{derivedType: derivedType, meta: meta, size: len(data)})
	return uuid.NewString(), nil
}

func testPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func testBrief() *docmaker.CampaignBrief {
	return &docmaker.CampaignBrief{
		BrandName: "Acme Cosmetics",
		Industry:  "skincare",
		Tone:      "warm",
	}
}

func TestGenerate(t *testing.T) {
	provider := &fakeProvider{}
	writer := &fakeWriter{}
	gen := NewGenerator(provider, writer, zaptest.NewLogger(t))

	images, err := gen.Generate(context.Background(), uuid.NewString(), testBrief(), &docmaker.BrandProfile{
		ToneWords: []string{"clean", "honest", "gentle", "playful"},
	})
	require.NoError(t, err)
	require.Len(t, images, 2)

	assert.Equal(t, RoleCover, images[0].Role)
	assert.Equal(t, RoleBackdrop, images[1].Role)
	assert.NotEqual(t, uuid.Nil, images[0].ContentID)
	assert.NotEqual(t, uuid.Nil, images[0].PreviewID)

	// Full image fitted to target, preview fitted small, for each role.
	require.Len(t, writer.puts, 4)
	full := writer.puts[0]
	assert.Equal(t, docmaker.DerivedTypeGeneratedImage, full.derivedType)
	w, _ := strconv.Atoi(full.meta["width"])
	assert.LessOrEqual(t, w, coverWidth)
	preview := writer.puts[1]
	assert.Equal(t, docmaker.DerivedTypeImagePreview, preview.derivedType)
	pw, _ := strconv.Atoi(preview.meta["width"])
	assert.LessOrEqual(t, pw, previewWidth)
	assert.Less(t, preview.size, full.size)

	// Researched tone words win over the brief's tone field.
	assert.Contains(t, provider.prompts[0], "clean, honest, gentle")
	assert.NotContains(t, provider.prompts[0], "warm")
	assert.Contains(t, provider.prompts[0], "Acme Cosmetics")
}

func TestGenerateOneRoleFails(t *testing.T) {
	provider := &fakeProvider{failFor: map[string]bool{"background texture": true}}
	writer := &fakeWriter{}
	gen := NewGenerator(provider, writer, zaptest.NewLogger(t))

	images, err := gen.Generate(context.Background(), uuid.NewString(), testBrief(), nil)
	require.NoError(t, err, "one failed role degrades")
	require.Len(t, images, 1)
	assert.Equal(t, RoleCover, images[0].Role)
}

func TestGenerateAllFail(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("quota exceeded")}
	gen := NewGenerator(provider, &fakeWriter{}, zaptest.NewLogger(t))

	_, err := gen.Generate(context.Background(), uuid.NewString(), testBrief(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image could be generated")
}

func TestGenerateStorageDown(t *testing.T) {
	gen := NewGenerator(&fakeProvider{}, &fakeWriter{failPut: true}, zaptest.NewLogger(t))

	_, err := gen.Generate(context.Background(), uuid.NewString(), testBrief(), nil)
	require.Error(t, err)
}

func TestGenerateNoBrief(t *testing.T) {
	gen := NewGenerator(&fakeProvider{}, &fakeWriter{}, zaptest.NewLogger(t))
	_, err := gen.Generate(context.Background(), uuid.NewString(), nil, nil)
	require.Error(t, err)
}
