package influencers

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// Budget tiers map a campaign budget to the follower band it can
// realistically book.
type tier int

const (
	tierUnknown tier = iota
	tierMicro        // under $10k: 10k-100k followers
	tierMid          // $10k-$100k: 50k-500k followers
	tierMacro        // over $100k: 250k+ followers
)

type band struct{ lo, hi int64 }

var tierBands = map[tier]band{
	tierMicro: {10_000, 100_000},
	tierMid:   {50_000, 500_000},
	tierMacro: {250_000, 20_000_000},
}

// Score weights. Keyword fit dominates so an on-topic micro creator
// beats an off-topic celebrity.
const (
	keywordWeight    = 50.0
	bandWeight       = 30.0
	engagementWeight = 20.0

	// Engagement above this rate earns full marks.
	fullEngagementRate = 0.06
)

// score rates one candidate against the brief. The returned reasons
// explain the ranking in the rendered proposal.
func score(inf *docmaker.Influencer, brief *docmaker.CampaignBrief, t tier) (float64, []string) {
	var total float64
	var reasons []string

	// Keyword overlap between the creator's categories and the
	// brief's industry + interests.
	keywords := briefKeywords(brief)
	matched := matchedCategories(inf.Categories, keywords)
	if len(keywords) > 0 {
		fit := float64(len(matched)) / float64(len(keywords))
		if fit > 1 {
			fit = 1
		}
		total += keywordWeight * fit
		if len(matched) > 0 {
			reasons = append(reasons, fmt.Sprintf("covers %s", strings.Join(matched, ", ")))
		}
	}

	// Follower band fit against the budget tier.
	if b, ok := tierBands[t]; ok {
		if inf.Followers >= b.lo && inf.Followers <= b.hi {
			total += bandWeight
			reasons = append(reasons, "audience size fits the budget")
		} else if inf.Followers > 0 && inf.Followers >= b.lo/2 && inf.Followers <= b.hi*2 {
			total += bandWeight / 2
		}
	} else if inf.Followers >= 10_000 {
		// No budget stated: any established creator gets half marks.
		total += bandWeight / 2
	}

	// Engagement rate, clamped at fullEngagementRate.
	if inf.EngagementRate > 0 {
		rate := inf.EngagementRate
		if rate > fullEngagementRate {
			rate = fullEngagementRate
		}
		total += engagementWeight * (rate / fullEngagementRate)
		if inf.EngagementRate >= fullEngagementRate/2 {
			reasons = append(reasons, fmt.Sprintf("strong engagement (%.1f%%)", inf.EngagementRate*100))
		}
	}

	return total, reasons
}

func briefKeywords(brief *docmaker.CampaignBrief) []string {
	seen := map[string]bool{}
	var keywords []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		keywords = append(keywords, s)
	}
	add(brief.Industry)
	for _, interest := range brief.Interests {
		add(interest)
	}
	return keywords
}

func matchedCategories(categories, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		for _, cat := range categories {
			if tokensOverlap(cat, kw) {
				matched = append(matched, kw)
				break
			}
		}
	}
	return matched
}

// tokensOverlap reports whether the category and keyword share a word,
// so "skincare" matches "clean skincare".
func tokensOverlap(a, b string) bool {
	aTokens := tokenize(a)
	for tok := range tokenize(b) {
		if aTokens[tok] {
			return true
		}
	}
	return false
}

func tokenize(s string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		out[tok] = true
	}
	return out
}

// budgetTier parses a free-text budget like "$25,000" or "10k EUR"
// into a spend tier. Unparseable budgets stay tierUnknown.
func budgetTier(budget string) tier {
	amount := parseBudget(budget)
	switch {
	case amount <= 0:
		return tierUnknown
	case amount < 10_000:
		return tierMicro
	case amount <= 100_000:
		return tierMid
	default:
		return tierMacro
	}
}

func parseBudget(budget string) float64 {
	s := strings.ToLower(strings.TrimSpace(budget))
	if s == "" {
		return 0
	}

	var (
		numeric  strings.Builder
		seenDot  bool
		consumed int
	)
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			numeric.WriteRune(r)
		case r == '.' && !seenDot && numeric.Len() > 0:
			seenDot = true
			numeric.WriteRune(r)
		case r == ',' || r == '$' || r == '€' || r == '£' || r == ' ':
			if numeric.Len() > 0 && (r == '$' || r == '€' || r == '£') {
				consumed = i
				goto done
			}
		default:
			if numeric.Len() > 0 {
				consumed = i
				goto done
			}
		}
	}
	consumed = len(s)

done:
	if numeric.Len() == 0 {
		return 0
	}
	var amount float64
	fmt.Sscanf(numeric.String(), "%f", &amount)

	rest := s[consumed:]
	if strings.HasPrefix(rest, "k") {
		amount *= 1_000
	} else if strings.HasPrefix(rest, "m") {
		amount *= 1_000_000
	}
	return amount
}
