// Package influencers discovers and ranks creator candidates for a
// campaign via the hosted scraping API.
package influencers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// SearchClient finds creators on a platform matching a query.
type SearchClient interface {
	SearchCreators(ctx context.Context, platform, query string, limit int) ([]docmaker.Influencer, error)
}

// Platforms the scraping API can search. Channels outside this set
// (e.g. "email", "ooh") are skipped.
var searchablePlatforms = map[string]bool{
	"instagram": true,
	"tiktok":    true,
	"youtube":   true,
	"twitter":   true,
}

const (
	defaultPlatform = "instagram"
	perSearchLimit  = 20
	maxResults      = 15
)

// Finder runs influencer discovery.
type Finder struct {
	search SearchClient
	logger *zap.Logger
}

// NewFinder creates a finder.
func NewFinder(search SearchClient, logger *zap.Logger) *Finder {
	return &Finder{
		search: search,
		logger: logger.Named("influencers"),
	}
}

// Find searches every campaign platform/keyword pair, dedupes by
// handle, scores the candidates against the brief, and returns the top
// candidates sorted by score. Individual searches degrade; Find fails
// only when every search fails.
func (f *Finder) Find(ctx context.Context, brief *docmaker.CampaignBrief) ([]docmaker.Influencer, error) {
	if brief == nil {
		return nil, fmt.Errorf("no brief to search from")
	}

	platforms := searchPlatforms(brief)
	queries := searchQueries(brief)
	if len(queries) == 0 {
		return nil, fmt.Errorf("brief has no industry, interests, or audience to search with")
	}

	var (
		mu       sync.Mutex
		found    []docmaker.Influencer
		searches int
		failures int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, platform := range platforms {
		for _, query := range queries {
			searches++
			g.Go(func() error {
				results, err := f.search.SearchCreators(gctx, platform, query, perSearchLimit)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failures++
					f.logger.Warn("creator search failed",
						zap.String("platform", platform),
						zap.String("query", query),
						zap.Error(err))
					return nil
				}
				found = append(found, results...)
				return nil
			})
		}
	}
	g.Wait()

	if failures == searches {
		return nil, fmt.Errorf("all %d creator searches failed", searches)
	}

	candidates := dedupe(found)
	tier := budgetTier(brief.Budget)
	for i := range candidates {
		candidates[i].Score, candidates[i].Reasons = score(&candidates[i], brief, tier)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	f.logger.Info("influencers ranked",
		zap.Int("searches", searches),
		zap.Int("failed_searches", failures),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}

// searchPlatforms picks the searchable subset of the brief's channels.
func searchPlatforms(brief *docmaker.CampaignBrief) []string {
	var platforms []string
	for _, ch := range brief.Channels {
		ch = strings.ToLower(strings.TrimSpace(ch))
		if searchablePlatforms[ch] {
			platforms = append(platforms, ch)
		}
	}
	if len(platforms) == 0 {
		platforms = []string{defaultPlatform}
	}
	return platforms
}

// searchQueries builds search terms from industry and audience
// interests, capped so a keyword-heavy brief stays within API budget.
func searchQueries(brief *docmaker.CampaignBrief) []string {
	seen := map[string]bool{}
	var queries []string
	add := func(q string) {
		q = strings.ToLower(strings.TrimSpace(q))
		if q == "" || seen[q] || len(queries) >= 4 {
			return
		}
		seen[q] = true
		queries = append(queries, q)
	}

	add(brief.Industry)
	for _, interest := range brief.Interests {
		add(interest)
	}
	return queries
}

func dedupe(in []docmaker.Influencer) []docmaker.Influencer {
	seen := map[string]bool{}
	out := make([]docmaker.Influencer, 0, len(in))
	for _, inf := range in {
		key := inf.Platform + "/" + strings.ToLower(inf.Handle)
		if inf.Handle == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, inf)
	}
	return out
}
