// Package research builds a brand profile from the brand website and
// the social profiles it links to. Sources degrade independently:
// a failed scrape or stats call becomes a warning, not an error.
package research

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docmakerhq/docmaker/internal/llm"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// StatsClient fetches social profile snapshots.
type StatsClient interface {
	Profile(ctx context.Context, platform, handle string) (*docmaker.SocialStat, error)
}

const summarySystemPrompt = `You are a brand strategist. You read scraped website evidence and summarize how a brand positions itself. Only state what the evidence supports.`

const summaryPromptTemplate = `Summarize the brand below from the scraped evidence.

Return ONLY a JSON object with exactly these fields:
{
  "summary": "2-3 sentences on what the brand sells and to whom",
  "positioning": "one sentence on how the brand positions itself",
  "tone_words": ["3-6 adjectives describing the brand voice"],
  "products": ["main products or services mentioned"],
  "competitors": ["competitor brands, only if explicitly mentioned"]
}

Brand: %s
Site title: %s
Meta description: %s
Headings: %s

Page text:
%s`

// Researcher runs the brand research stage.
type Researcher struct {
	llm        llm.Client
	stats      StatsClient
	httpClient *http.Client
	logger     *zap.Logger
}

// NewResearcher creates a researcher.
func NewResearcher(llmClient llm.Client, stats StatsClient, logger *zap.Logger) *Researcher {
	return &Researcher{
		llm:        llmClient,
		stats:      stats,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     logger.Named("research"),
	}
}

// SetHTTPClient overrides the site fetch client, mainly for tests.
func (r *Researcher) SetHTTPClient(c *http.Client) {
	r.httpClient = c
}

// Research scrapes the brand site, fetches social stats for every
// discovered profile concurrently, and summarizes the evidence with
// one LLM call.
func (r *Researcher) Research(ctx context.Context, brief *docmaker.CampaignBrief) (*docmaker.BrandProfile, error) {
	if brief == nil || (brief.Website == "" && brief.BrandName == "") {
		return nil, fmt.Errorf("brief has no website and no brand name to research")
	}

	profile := &docmaker.BrandProfile{}

	var snap *SiteSnapshot
	if brief.Website != "" {
		s, err := ScrapeSite(ctx, r.httpClient, brief.Website)
		if err != nil {
			profile.Warnings = append(profile.Warnings, fmt.Sprintf("site scrape failed: %v", err))
			r.logger.Warn("site scrape failed", zap.String("url", brief.Website), zap.Error(err))
		} else {
			snap = s
			profile.SiteTitle = s.Title
			profile.SiteDescription = s.Description
			profile.Headings = s.Headings
			if len(s.SocialLinks) > 0 {
				profile.SocialLinks = s.SocialLinks
			}
		}
	}

	r.fetchSocialStats(ctx, profile)

	if err := r.summarize(ctx, brief, snap, profile); err != nil {
		profile.Warnings = append(profile.Warnings, fmt.Sprintf("brand summary failed: %v", err))
		r.logger.Warn("brand summary failed", zap.Error(err))
	}

	if profileIsEmpty(profile) {
		return nil, fmt.Errorf("no research source succeeded: %s", strings.Join(profile.Warnings, "; "))
	}

	r.logger.Info("brand profile built",
		zap.String("brand", brief.BrandName),
		zap.Int("social_stats", len(profile.SocialStats)),
		zap.Int("warnings", len(profile.Warnings)))
	return profile, nil
}

// fetchSocialStats resolves each discovered social link to a profile
// snapshot. Fetches run concurrently and failures degrade per-source.
func (r *Researcher) fetchSocialStats(ctx context.Context, profile *docmaker.BrandProfile) {
	if r.stats == nil || len(profile.SocialLinks) == 0 {
		return
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for platform, link := range profile.SocialLinks {
		handle := HandleFromURL(link)
		if handle == "" {
			continue
		}
		g.Go(func() error {
			stat, err := r.stats.Profile(gctx, platform, handle)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				profile.Warnings = append(profile.Warnings, fmt.Sprintf("%s stats failed: %v", platform, err))
				return nil
			}
			profile.SocialStats = append(profile.SocialStats, *stat)
			return nil
		})
	}
	g.Wait()
}

func (r *Researcher) summarize(ctx context.Context, brief *docmaker.CampaignBrief, snap *SiteSnapshot, profile *docmaker.BrandProfile) error {
	if r.llm == nil {
		return fmt.Errorf("no LLM client configured")
	}

	var title, desc, headings, text string
	if snap != nil {
		title = snap.Title
		desc = snap.Description
		headings = strings.Join(snap.Headings, "; ")
		text = snap.Text
	}
	if text == "" && brief.Summary == "" {
		return fmt.Errorf("no evidence to summarize")
	}
	if text == "" {
		text = brief.Summary
	}

	raw, err := r.llm.Complete(ctx, llm.Request{
		System:      summarySystemPrompt,
		User:        fmt.Sprintf(summaryPromptTemplate, brief.BrandName, title, desc, headings, text),
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return err
	}

	var out struct {
		Summary     string   `json:"summary"`
		Positioning string   `json:"positioning"`
		ToneWords   []string `json:"tone_words"`
		Products    []string `json:"products"`
		Competitors []string `json:"competitors"`
	}
	if err := llm.DecodeJSON(raw, &out); err != nil {
		return fmt.Errorf("summary returned malformed JSON: %w", err)
	}

	profile.Summary = strings.TrimSpace(out.Summary)
	profile.Positioning = strings.TrimSpace(out.Positioning)
	profile.ToneWords = out.ToneWords
	profile.Products = out.Products
	profile.Competitors = out.Competitors
	return nil
}

func profileIsEmpty(p *docmaker.BrandProfile) bool {
	return p.Summary == "" && p.SiteTitle == "" && len(p.SocialStats) == 0 && len(p.Headings) == 0
}
