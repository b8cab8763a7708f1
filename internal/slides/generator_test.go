package slides

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/docmakerhq/docmaker/internal/llm"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// scriptedLLM answers foundation, batch, and finalize prompts from the
// request text, so one fake covers the whole staged flow.
type scriptedLLM struct {
	failBatchContaining string
	calls               []string
}

func (s *scriptedLLM) Provider() string { return "fake" }

func (s *scriptedLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	switch {
	case strings.Contains(req.User, "Plan a "):
		s.calls = append(s.calls, "foundation")
		return s.foundationResponse(req.User)
	case strings.Contains(req.User, "Write the content for slides"):
		s.calls = append(s.calls, "batch")
		if s.failBatchContaining != "" && strings.Contains(req.User, s.failBatchContaining) {
			return "", fmt.Errorf("model overloaded")
		}
		return s.batchResponse(req.User)
	case strings.Contains(req.User, "Polish the deck"):
		s.calls = append(s.calls, "finalize")
		return `{"summary":"A focused creator campaign for Acme.","notes":[{"index":0,"note":"Open with the brand story."}]}`, nil
	}
	return "", fmt.Errorf("unexpected prompt")
}

func (s *scriptedLLM) foundationResponse(prompt string) (string, error) {
	// Slide count appears as "Plan a N-slide".
	var n int
	fmt.Sscanf(prompt[strings.Index(prompt, "Plan a ")+len("Plan a "):], "%d", &n)

	outline := make([]map[string]interface{}, n)
	for i := range outline {
		outline[i] = map[string]interface{}{
			"section": fmt.Sprintf("Section %d", i),
			"title":   fmt.Sprintf("Slide %d", i),
			"goal":    "say something useful",
			"layout":  "content",
		}
	}
	resp, _ := json.Marshal(map[string]interface{}{
		"theme":   map[string]string{"name": "Clean", "primary": "#112233", "text": "#222222"},
		"outline": outline,
	})
	return string(resp), nil
}

func (s *scriptedLLM) batchResponse(prompt string) (string, error) {
	// Requested indexes appear as lines "- N | section | title | goal".
	var slides []map[string]interface{}
	for _, line := range strings.Split(prompt, "\n") {
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		var idx int
		if _, err := fmt.Sscanf(line, "- %d |", &idx); err != nil {
			continue
		}
		slides = append(slides, map[string]interface{}{
			"index":   idx,
			"title":   fmt.Sprintf("Generated %d", idx),
			"html":    fmt.Sprintf("<h2>Generated %d</h2><p>Body.</p>", idx),
			"bullets": []string{"point one", "point two"},
		})
	}
	resp, _ := json.Marshal(map[string]interface{}{"slides": slides})
	return string(resp), nil
}

func testGenerator(t *testing.T, client llm.Client, batchSize int) *Generator {
	t.Helper()
	lib, err := NewLibrary("", zaptest.NewLogger(t))
	require.NoError(t, err)
	return NewGenerator(client, lib, batchSize, zaptest.NewLogger(t))
}

func testInput() Input {
	return Input{
		Kind:  docmaker.KindDeck,
		Brief: &docmaker.CampaignBrief{BrandName: "Acme", Industry: "skincare", Budget: "$25,000"},
	}
}

func TestGenerateFullFlow(t *testing.T) {
	client := &scriptedLLM{}
	gen := testGenerator(t, client, 4)

	var saves []string
	deck, err := gen.Generate(context.Background(), testInput(), func(_ context.Context, d *docmaker.Deck) error {
		saves = append(saves, d.Stage)
		return nil
	})
	require.NoError(t, err)

	lib, _ := NewLibrary("", zaptest.NewLogger(t))
	tmpl, _ := lib.Get(docmaker.KindDeck)
	want := tmpl.SlideCount()

	assert.Equal(t, docmaker.DeckStageFinal, deck.Stage)
	require.NotNil(t, deck.Theme)
	assert.Equal(t, "#112233", deck.Theme.Primary)
	assert.Len(t, deck.Outline, want)
	assert.Len(t, deck.Slides, want)
	for _, s := range deck.Slides {
		assert.Equal(t, docmaker.SlideGenerated, s.Status)
		assert.NotEmpty(t, s.HTML)
	}
	assert.Equal(t, "A focused creator campaign for Acme.", deck.Summary)
	assert.Equal(t, "Open with the brand story.", deck.Slides[0].Notes)
	assert.Empty(t, deck.Warnings)

	// One foundation call, ceil(want/4) batch calls, one finalize.
	wantBatches := (want + 3) / 4
	assert.Equal(t, 2+wantBatches, len(client.calls))

	// Saved after foundation, after every batch, after drafting, and
	// at final.
	require.NotEmpty(t, saves)
	assert.Equal(t, docmaker.DeckStagePlanned, saves[0])
	assert.Equal(t, docmaker.DeckStageFinal, saves[len(saves)-1])
	assert.Len(t, saves, 1+wantBatches+1+1)
}

func TestGenerateBatchFailureYieldsPlaceholders(t *testing.T) {
	// The first batch asks for slides 0-3; fail it.
	client := &scriptedLLM{failBatchContaining: "slides 0-3"}
	gen := testGenerator(t, client, 4)

	deck, err := gen.Generate(context.Background(), testInput(), nil)
	require.NoError(t, err, "a failed batch degrades, the flow continues")

	require.NotEmpty(t, deck.Warnings)
	assert.Contains(t, deck.Warnings[0], "slides 0-3")
	for i := 0; i < 4; i++ {
		assert.Equal(t, docmaker.SlidePlaceholder, deck.Slides[i].Status, i)
		assert.NotEmpty(t, deck.Slides[i].HTML)
	}
	assert.Equal(t, docmaker.SlideGenerated, deck.Slides[4].Status)
	assert.Equal(t, docmaker.DeckStageFinal, deck.Stage)
}

func TestGenerateResumesFromPlanned(t *testing.T) {
	client := &scriptedLLM{}
	gen := testGenerator(t, client, 4)

	lib, _ := NewLibrary("", zaptest.NewLogger(t))
	tmpl, _ := lib.Get(docmaker.KindDeck)

	resume := &docmaker.Deck{Stage: docmaker.DeckStagePlanned}
	for i := 0; i < tmpl.SlideCount(); i++ {
		resume.Outline = append(resume.Outline, docmaker.SlidePlan{
			Index: i, Section: "S", Title: fmt.Sprintf("T%d", i),
		})
	}

	in := testInput()
	in.Resume = resume
	deck, err := gen.Generate(context.Background(), in, nil)
	require.NoError(t, err)

	assert.Equal(t, docmaker.DeckStageFinal, deck.Stage)
	assert.NotContains(t, client.calls, "foundation", "planned deck skips the foundation call")
}

func TestGenerateFoundationFailureIsFatal(t *testing.T) {
	gen := testGenerator(t, &failingLLM{}, 4)
	_, err := gen.Generate(context.Background(), testInput(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foundation")
}

func TestGenerateSaveFailureIsFatal(t *testing.T) {
	gen := testGenerator(t, &scriptedLLM{}, 4)
	_, err := gen.Generate(context.Background(), testInput(), func(context.Context, *docmaker.Deck) error {
		return fmt.Errorf("store down")
	})
	require.Error(t, err)
}

func TestGenerateUnknownKind(t *testing.T) {
	gen := testGenerator(t, &scriptedLLM{}, 4)
	in := testInput()
	in.Kind = "memo"
	_, err := gen.Generate(context.Background(), in, nil)
	require.Error(t, err)
}

type failingLLM struct{}

func (f *failingLLM) Provider() string { return "fake" }
func (f *failingLLM) Complete(context.Context, llm.Request) (string, error) {
	return "", fmt.Errorf("model unavailable")
}
