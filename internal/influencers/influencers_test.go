package influencers

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

type fakeSearch struct {
	mu      sync.Mutex
	results map[string][]docmaker.Influencer // keyed platform/query
	errs    map[string]error
	calls   []string
}

func (f *fakeSearch) SearchCreators(_ context.Context, platform, query string, _ int) ([]docmaker.Influencer, error) {
	key := platform + "/" + query
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.results[key], nil
}

func TestFindRanksOnTopicCreatorsFirst(t *testing.T) {
	search := &fakeSearch{results: map[string][]docmaker.Influencer{
		"instagram/skincare": {
			{Platform: "instagram", Handle: "glowwithmaya", Followers: 84_000, EngagementRate: 0.051, Categories: []string{"skincare", "beauty"}},
			{Platform: "instagram", Handle: "megacelebrity", Followers: 9_000_000, EngagementRate: 0.01, Categories: []string{"entertainment"}},
			{Platform: "instagram", Handle: "tinystarter", Followers: 800, EngagementRate: 0.08, Categories: []string{"skincare"}},
		},
	}}

	finder := NewFinder(search, zaptest.NewLogger(t))
	got, err := finder.Find(context.Background(), &docmaker.CampaignBrief{
		Industry: "skincare",
		Budget:   "$25,000",
		Channels: []string{"instagram"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)

	assert.Equal(t, "glowwithmaya", got[0].Handle, "on-topic creator in the budget band ranks first")
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.NotEmpty(t, got[0].Reasons)
}

func TestFindDedupesAcrossQueries(t *testing.T) {
	maya := docmaker.Influencer{Platform: "tiktok", Handle: "glowwithmaya", Followers: 84_000, Categories: []string{"skincare"}}
	search := &fakeSearch{results: map[string][]docmaker.Influencer{
		"tiktok/skincare": {maya},
		"tiktok/vegan":    {maya},
	}}

	finder := NewFinder(search, zaptest.NewLogger(t))
	got, err := finder.Find(context.Background(), &docmaker.CampaignBrief{
		Industry:  "skincare",
		Interests: []string{"vegan"},
		Channels:  []string{"tiktok"},
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, search.calls, 2)
}

func TestFindSkipsUnsearchableChannels(t *testing.T) {
	search := &fakeSearch{results: map[string][]docmaker.Influencer{
		"youtube/fitness": {{Platform: "youtube", Handle: "fitpete", Followers: 120_000}},
	}}

	finder := NewFinder(search, zaptest.NewLogger(t))
	got, err := finder.Find(context.Background(), &docmaker.CampaignBrief{
		Industry: "fitness",
		Channels: []string{"email", "ooh", "youtube"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	for _, call := range search.calls {
		assert.Contains(t, call, "youtube/")
	}
}

func TestFindDefaultsToInstagram(t *testing.T) {
	search := &fakeSearch{results: map[string][]docmaker.Influencer{}}
	finder := NewFinder(search, zaptest.NewLogger(t))

	_, err := finder.Find(context.Background(), &docmaker.CampaignBrief{Industry: "coffee"})
	require.NoError(t, err)
	require.Len(t, search.calls, 1)
	assert.Equal(t, "instagram/coffee", search.calls[0])
}

func TestFindAllSearchesFail(t *testing.T) {
	search := &fakeSearch{errs: map[string]error{
		"instagram/coffee": fmt.Errorf("quota exceeded"),
	}}
	finder := NewFinder(search, zaptest.NewLogger(t))

	_, err := finder.Find(context.Background(), &docmaker.CampaignBrief{Industry: "coffee"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "searches failed")
}

func TestFindNoQueries(t *testing.T) {
	finder := NewFinder(&fakeSearch{}, zaptest.NewLogger(t))
	_, err := finder.Find(context.Background(), &docmaker.CampaignBrief{BrandName: "Acme"})
	require.Error(t, err)
}

func TestBudgetTier(t *testing.T) {
	cases := []struct {
		budget string
		want   tier
	}{
		{"$5,000", tierMicro},
		{"$25,000", tierMid},
		{"10k EUR", tierMid},
		{"$250,000", tierMacro},
		{"1M", tierMacro},
		{"flexible", tierUnknown},
		{"", tierUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, budgetTier(tc.budget), tc.budget)
	}
}

func TestScoreMatchesMultiWordCategories(t *testing.T) {
	brief := &docmaker.CampaignBrief{Industry: "skincare"}
	onTopic := docmaker.Influencer{Followers: 50_000, Categories: []string{"clean skincare"}}
	offTopic := docmaker.Influencer{Followers: 50_000, Categories: []string{"gaming"}}

	onScore, onReasons := score(&onTopic, brief, tierMid)
	offScore, _ := score(&offTopic, brief, tierMid)

	assert.Greater(t, onScore, offScore, "shared token counts as a category match")
	require.NotEmpty(t, onReasons)
	assert.Contains(t, onReasons[0], "skincare")
}

func TestScoreEngagementClamp(t *testing.T) {
	brief := &docmaker.CampaignBrief{Industry: "skincare"}
	hot := docmaker.Influencer{Followers: 50_000, EngagementRate: 0.40, Categories: []string{"skincare"}}
	solid := docmaker.Influencer{Followers: 50_000, EngagementRate: 0.06, Categories: []string{"skincare"}}

	hotScore, _ := score(&hot, brief, tierMid)
	solidScore, _ := score(&solid, brief, tierMid)
	assert.Equal(t, solidScore, hotScore, "engagement above the clamp earns no extra credit")
}
