// Package extract turns parsed brief text (or a scanned brief image)
// into a structured campaign brief via one LLM call.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/llm"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// ErrEmptyExtraction indicates the model returned no usable fields
var ErrEmptyExtraction = errors.New("extraction returned no usable fields")

const systemPrompt = `You are a marketing operations assistant. You read client campaign briefs and extract structured data for a proposal generator. Be faithful to the brief; never invent budgets, brands, or goals that are not stated or clearly implied.`

const promptTemplate = `Extract the campaign details from the brief below.

Return ONLY a JSON object with exactly these fields (use "" or [] when the brief does not mention something):
{
  "brand_name": "the client brand or company name",
  "website": "the brand website URL if mentioned",
  "industry": "the brand's industry or vertical",
  "budget": "the campaign budget as written, e.g. '$25,000' or '10k EUR'",
  "goals": ["campaign goals, one short phrase each"],
  "audience": "one sentence describing the target audience",
  "interests": ["audience interest keywords"],
  "channels": ["marketing channels mentioned, e.g. instagram, tiktok, youtube"],
  "deliverables": ["concrete deliverables requested"],
  "timeline": "the campaign timeline as written",
  "tone": "the desired brand tone or voice",
  "summary": "2-3 sentence summary of what the client wants"
}

Brief:
%s`

const visionPrompt = `Extract the campaign details from the attached brief document image.

Return ONLY a JSON object with exactly these fields (use "" or [] when the brief does not mention something):
{
  "brand_name": "", "website": "", "industry": "", "budget": "",
  "goals": [], "audience": "", "interests": [], "channels": [],
  "deliverables": [], "timeline": "", "tone": "", "summary": ""
}

Read all text in the image carefully, including tables and headers.`

// Input is the source material for one extraction.
type Input struct {
	// Text is the parsed brief (plus kickoff) text.
	Text string

	// Image carries a scanned brief. When both are set the image is
	// the primary source and the text rides along as extra context.
	Image *llm.Image
}

// Extractor runs brief extraction against an LLM.
type Extractor struct {
	client llm.Client
	logger *zap.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(client llm.Client, logger *zap.Logger) *Extractor {
	return &Extractor{
		client: client,
		logger: logger.Named("extract"),
	}
}

// Extract produces a campaign brief from the input.
func (e *Extractor) Extract(ctx context.Context, in Input) (*docmaker.CampaignBrief, error) {
	req := llm.Request{
		System:      systemPrompt,
		Temperature: 0.2,
		JSONMode:    true,
	}
	switch {
	case in.Image != nil:
		req.User = visionPrompt
		if text := strings.TrimSpace(in.Text); text != "" {
			req.User = fmt.Sprintf("%s\n\nAdditional context from other campaign documents:\n%s", visionPrompt, text)
		}
		req.Image = in.Image
	case strings.TrimSpace(in.Text) != "":
		req.User = fmt.Sprintf(promptTemplate, in.Text)
	default:
		return nil, fmt.Errorf("nothing to extract: no text and no image")
	}

	raw, err := e.client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	var brief docmaker.CampaignBrief
	if err := llm.DecodeJSON(raw, &brief); err != nil {
		return nil, fmt.Errorf("extraction returned malformed JSON: %w", err)
	}

	normalizeBrief(&brief)
	if briefIsEmpty(&brief) {
		return nil, ErrEmptyExtraction
	}

	e.logger.Info("brief extracted",
		zap.String("brand", brief.BrandName),
		zap.Int("goals", len(brief.Goals)),
		zap.Int("channels", len(brief.Channels)))
	return &brief, nil
}

// List sizes are clamped so a rambling model cannot flood the wizard.
const maxListItems = 10

func normalizeBrief(b *docmaker.CampaignBrief) {
	b.BrandName = strings.TrimSpace(b.BrandName)
	b.Website = strings.TrimSpace(b.Website)
	b.Industry = strings.TrimSpace(b.Industry)
	b.Budget = strings.TrimSpace(b.Budget)
	b.Audience = strings.TrimSpace(b.Audience)
	b.Timeline = strings.TrimSpace(b.Timeline)
	b.Tone = strings.TrimSpace(b.Tone)
	b.Summary = strings.TrimSpace(b.Summary)

	b.Goals = cleanList(b.Goals)
	b.Interests = cleanList(b.Interests)
	b.Channels = cleanChannels(b.Channels)
	b.Deliverables = cleanList(b.Deliverables)
}

func cleanList(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
		if len(out) == maxListItems {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanChannels(items []string) []string {
	for i, item := range items {
		items[i] = strings.ToLower(strings.TrimSpace(item))
	}
	return cleanList(items)
}

func briefIsEmpty(b *docmaker.CampaignBrief) bool {
	return b.BrandName == "" && b.Budget == "" && b.Audience == "" &&
		b.Summary == "" && len(b.Goals) == 0 && len(b.Deliverables) == 0
}
