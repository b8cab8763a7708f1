package slides

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/llm"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// SaveFunc persists the partial deck after each stage so a reload can
// resume from stored state.
type SaveFunc func(ctx context.Context, deck *docmaker.Deck) error

// Input is the source material for deck generation.
type Input struct {
	Kind     string
	Brief    *docmaker.CampaignBrief
	Research *docmaker.BrandProfile
	Resume   *docmaker.Deck // previously stored deck state, if any
}

// Generator runs the staged deck build.
type Generator struct {
	llm       llm.Client
	library   *Library
	batchSize int
	logger    *zap.Logger
}

// NewGenerator creates a generator. batchSize bounds how many slides
// one model call produces.
func NewGenerator(client llm.Client, library *Library, batchSize int, logger *zap.Logger) *Generator {
	if batchSize < 1 {
		batchSize = 4
	}
	return &Generator{
		llm:       client,
		library:   library,
		batchSize: batchSize,
		logger:    logger.Named("slides"),
	}
}

// Generate builds the deck in stages, calling save after every stage.
// A previously stored deck resumes where it left off: a planned deck
// skips the foundation call, a drafted one goes straight to finalize.
// Foundation failure is fatal; a failed batch yields placeholder
// slides; a failed finalize leaves the drafted deck with a warning.
func (g *Generator) Generate(ctx context.Context, in Input, save SaveFunc) (*docmaker.Deck, error) {
	if in.Brief == nil {
		return nil, fmt.Errorf("no brief to generate slides from")
	}
	if save == nil {
		save = func(context.Context, *docmaker.Deck) error { return nil }
	}

	tmpl, err := g.library.Get(in.Kind)
	if err != nil {
		return nil, err
	}

	deck := in.Resume
	if deck == nil || deck.Stage == "" || len(deck.Outline) == 0 {
		deck, err = g.foundation(ctx, in, tmpl)
		if err != nil {
			return nil, fmt.Errorf("foundation call failed: %w", err)
		}
		if err := save(ctx, deck); err != nil {
			return nil, fmt.Errorf("failed to save deck outline: %w", err)
		}
	} else {
		g.logger.Info("resuming deck build", zap.String("stage", deck.Stage))
	}

	if deck.Stage == docmaker.DeckStagePlanned {
		if err := g.drafts(ctx, in, deck, save); err != nil {
			return nil, err
		}
	}

	if deck.Stage == docmaker.DeckStageDrafted {
		if err := g.finalize(ctx, in, deck); err != nil {
			deck.Warnings = append(deck.Warnings, fmt.Sprintf("finalize failed: %v", err))
			g.logger.Warn("finalize failed, shipping drafted deck", zap.Error(err))
		}
		deck.Stage = docmaker.DeckStageFinal
		if err := save(ctx, deck); err != nil {
			return nil, fmt.Errorf("failed to save final deck: %w", err)
		}
	}

	g.logger.Info("deck built",
		zap.Int("slides", len(deck.Slides)),
		zap.Int("warnings", len(deck.Warnings)))
	return deck, nil
}

const foundationSystem = `You are a presentation designer for an influencer marketing agency. You plan slide decks from campaign briefs and brand research. Return ONLY JSON.`

const foundationPromptTemplate = `Plan a %d-slide %s for the campaign below.

Sections to cover, in order (name, layout, slide budget):
%s

Return ONLY a JSON object:
{
  "theme": {
    "name": "short theme name",
    "primary": "#hex", "secondary": "#hex", "accent": "#hex",
    "background": "#hex", "text": "#hex",
    "heading_font": "font family", "body_font": "font family"
  },
  "outline": [
    {"section": "section name", "title": "slide title", "goal": "what this slide must communicate", "layout": "layout hint"}
  ]
}
The outline must have exactly %d entries matching the section budgets in order. Pick theme colors that suit the brand.

%s`

// foundation asks for the theme and the full slide outline.
func (g *Generator) foundation(ctx context.Context, in Input, tmpl *Template) (*docmaker.Deck, error) {
	var sections strings.Builder
	for _, s := range tmpl.Sections {
		fmt.Fprintf(&sections, "- %s (%s, %d slides)\n", s.Name, s.Layout, s.Slides)
	}

	raw, err := g.llm.Complete(ctx, llm.Request{
		System: foundationSystem,
		User: fmt.Sprintf(foundationPromptTemplate,
			tmpl.SlideCount(), tmpl.Name, sections.String(), tmpl.SlideCount(), campaignContext(in)),
		Temperature: 0.4,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Theme   *docmaker.Theme `json:"theme"`
		Outline []struct {
			Section string `json:"section"`
			Title   string `json:"title"`
			Goal    string `json:"goal"`
			Layout  string `json:"layout"`
		} `json:"outline"`
	}
	if err := llm.DecodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("foundation returned malformed JSON: %w", err)
	}
	if len(out.Outline) == 0 {
		return nil, fmt.Errorf("foundation returned an empty outline")
	}

	deck := &docmaker.Deck{
		Stage: docmaker.DeckStagePlanned,
		Theme: out.Theme,
	}
	for i, entry := range out.Outline {
		deck.Outline = append(deck.Outline, docmaker.SlidePlan{
			Index:   i,
			Section: entry.Section,
			Title:   entry.Title,
			Goal:    entry.Goal,
			Layout:  entry.Layout,
		})
	}
	return deck, nil
}

const batchSystem = `You are a presentation designer. You write slide content as small HTML fragments. Allowed tags: h2, h3, p, ul, ol, li, strong, em, blockquote, div, span. No scripts, no styles, no external resources. Return ONLY JSON.`

const batchPromptTemplate = `Write the content for slides %d-%d of the deck below.

Slides to write (index, section, title, goal):
%s

Return ONLY a JSON object:
{
  "slides": [
    {"index": 0, "title": "possibly improved title", "html": "<h2>...</h2><p>...</p>", "bullets": ["key point", "..."]}
  ]
}
One entry per requested slide, same indexes.

%s`

// drafts generates slide content in fixed-size batches. A failed batch
// becomes placeholder slides and the build keeps going.
func (g *Generator) drafts(ctx context.Context, in Input, deck *docmaker.Deck, save SaveFunc) error {
	done := map[int]bool{}
	for _, s := range deck.Slides {
		if s.Status == docmaker.SlideGenerated {
			done[s.Index] = true
		}
	}

	for start := 0; start < len(deck.Outline); start += g.batchSize {
		end := start + g.batchSize
		if end > len(deck.Outline) {
			end = len(deck.Outline)
		}
		batch := deck.Outline[start:end]

		if batchDone(batch, done) {
			continue
		}

		slides, err := g.draftBatch(ctx, in, batch)
		if err != nil {
			deck.Warnings = append(deck.Warnings, fmt.Sprintf("slides %d-%d failed: %v", start, end-1, err))
			g.logger.Warn("slide batch failed",
				zap.Int("start", start),
				zap.Int("end", end-1),
				zap.Error(err))
			slides = placeholders(batch)
		}
		deck.Slides = mergeSlides(deck.Slides, slides)

		if err := save(ctx, deck); err != nil {
			return fmt.Errorf("failed to save slide batch: %w", err)
		}
	}

	deck.Stage = docmaker.DeckStageDrafted
	if err := save(ctx, deck); err != nil {
		return fmt.Errorf("failed to save drafted deck: %w", err)
	}
	return nil
}

func (g *Generator) draftBatch(ctx context.Context, in Input, batch []docmaker.SlidePlan) ([]docmaker.Slide, error) {
	var plans strings.Builder
	for _, p := range batch {
		fmt.Fprintf(&plans, "- %d | %s | %s | %s\n", p.Index, p.Section, p.Title, p.Goal)
	}

	raw, err := g.llm.Complete(ctx, llm.Request{
		System: batchSystem,
		User: fmt.Sprintf(batchPromptTemplate,
			batch[0].Index, batch[len(batch)-1].Index, plans.String(), campaignContext(in)),
		Temperature: 0.5,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Slides []struct {
			Index   int      `json:"index"`
			Title   string   `json:"title"`
			HTML    string   `json:"html"`
			Bullets []string `json:"bullets"`
		} `json:"slides"`
	}
	if err := llm.DecodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("batch returned malformed JSON: %w", err)
	}
	if len(out.Slides) == 0 {
		return nil, fmt.Errorf("batch returned no slides")
	}

	byIndex := map[int]docmaker.Slide{}
	for _, s := range out.Slides {
		byIndex[s.Index] = docmaker.Slide{
			Index:   s.Index,
			Title:   strings.TrimSpace(s.Title),
			HTML:    strings.TrimSpace(s.HTML),
			Bullets: s.Bullets,
			Status:  docmaker.SlideGenerated,
		}
	}

	// Every requested plan gets a slide; missing entries become
	// placeholders so indexes stay dense.
	slides := make([]docmaker.Slide, 0, len(batch))
	for _, plan := range batch {
		if s, ok := byIndex[plan.Index]; ok {
			s.Section = plan.Section
			if s.Title == "" {
				s.Title = plan.Title
			}
			slides = append(slides, s)
			continue
		}
		slides = append(slides, placeholder(plan))
	}
	return slides, nil
}

const finalizeSystem = `You are a presentation designer polishing a finished deck. Return ONLY JSON.`

const finalizePromptTemplate = `Polish the deck below: write one short speaker note per slide and a 2-3 sentence executive summary of the whole deck.

Slides (index, title, bullets):
%s

Return ONLY a JSON object:
{
  "summary": "executive summary",
  "notes": [{"index": 0, "note": "one or two sentences of speaker notes"}]
}

%s`

func (g *Generator) finalize(ctx context.Context, in Input, deck *docmaker.Deck) error {
	var listing strings.Builder
	for _, s := range deck.Slides {
		fmt.Fprintf(&listing, "- %d | %s | %s\n", s.Index, s.Title, strings.Join(s.Bullets, "; "))
	}

	raw, err := g.llm.Complete(ctx, llm.Request{
		System:      finalizeSystem,
		User:        fmt.Sprintf(finalizePromptTemplate, listing.String(), campaignContext(in)),
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return err
	}

	var out struct {
		Summary string `json:"summary"`
		Notes   []struct {
			Index int    `json:"index"`
			Note  string `json:"note"`
		} `json:"notes"`
	}
	if err := llm.DecodeJSON(raw, &out); err != nil {
		return fmt.Errorf("finalize returned malformed JSON: %w", err)
	}

	deck.Summary = strings.TrimSpace(out.Summary)
	notes := map[int]string{}
	for _, n := range out.Notes {
		notes[n.Index] = strings.TrimSpace(n.Note)
	}
	for i := range deck.Slides {
		if note, ok := notes[deck.Slides[i].Index]; ok {
			deck.Slides[i].Notes = note
		}
	}
	return nil
}

// campaignContext renders the shared brief/research context block that
// every stage prompt ends with.
func campaignContext(in Input) string {
	var sb strings.Builder
	sb.WriteString("Campaign:\n")
	b := in.Brief
	if b.BrandName != "" {
		fmt.Fprintf(&sb, "Brand: %s\n", b.BrandName)
	}
	if b.Industry != "" {
		fmt.Fprintf(&sb, "Industry: %s\n", b.Industry)
	}
	if b.Budget != "" {
		fmt.Fprintf(&sb, "Budget: %s\n", b.Budget)
	}
	if len(b.Goals) > 0 {
		fmt.Fprintf(&sb, "Goals: %s\n", strings.Join(b.Goals, "; "))
	}
	if b.Audience != "" {
		fmt.Fprintf(&sb, "Audience: %s\n", b.Audience)
	}
	if len(b.Channels) > 0 {
		fmt.Fprintf(&sb, "Channels: %s\n", strings.Join(b.Channels, ", "))
	}
	if len(b.Deliverables) > 0 {
		fmt.Fprintf(&sb, "Deliverables: %s\n", strings.Join(b.Deliverables, "; "))
	}
	if b.Timeline != "" {
		fmt.Fprintf(&sb, "Timeline: %s\n", b.Timeline)
	}
	if b.Summary != "" {
		fmt.Fprintf(&sb, "Summary: %s\n", b.Summary)
	}

	if r := in.Research; r != nil {
		sb.WriteString("\nBrand research:\n")
		if r.Summary != "" {
			fmt.Fprintf(&sb, "%s\n", r.Summary)
		}
		if r.Positioning != "" {
			fmt.Fprintf(&sb, "Positioning: %s\n", r.Positioning)
		}
		if len(r.ToneWords) > 0 {
			fmt.Fprintf(&sb, "Tone: %s\n", strings.Join(r.ToneWords, ", "))
		}
	}
	return sb.String()
}

func batchDone(batch []docmaker.SlidePlan, done map[int]bool) bool {
	for _, p := range batch {
		if !done[p.Index] {
			return false
		}
	}
	return true
}

func placeholder(plan docmaker.SlidePlan) docmaker.Slide {
	return docmaker.Slide{
		Index:   plan.Index,
		Section: plan.Section,
		Title:   plan.Title,
		HTML:    fmt.Sprintf("<h2>%s</h2><p>%s</p>", plan.Title, plan.Goal),
		Status:  docmaker.SlidePlaceholder,
	}
}

func placeholders(batch []docmaker.SlidePlan) []docmaker.Slide {
	out := make([]docmaker.Slide, 0, len(batch))
	for _, plan := range batch {
		out = append(out, placeholder(plan))
	}
	return out
}

// mergeSlides replaces or inserts the new slides, keeping index order.
func mergeSlides(existing, incoming []docmaker.Slide) []docmaker.Slide {
	byIndex := map[int]docmaker.Slide{}
	for _, s := range existing {
		byIndex[s.Index] = s
	}
	for _, s := range incoming {
		byIndex[s.Index] = s
	}

	maxIdx := -1
	for idx := range byIndex {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	out := make([]docmaker.Slide, 0, len(byIndex))
	for i := 0; i <= maxIdx; i++ {
		if s, ok := byIndex[i]; ok {
			out = append(out, s)
		}
	}
	return out
}
