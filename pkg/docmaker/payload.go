package docmaker

import "github.com/google/uuid"

// Deck build stages.
const (
	DeckStagePlanned = "planned"
	DeckStageDrafted = "drafted"
	DeckStageFinal   = "final"
)

// Slide statuses.
const (
	SlidePlanned     = "planned"
	SlideGenerated   = "generated"
	SlidePlaceholder = "placeholder"
)

// Payload is the typed view of a document's payload column. Pipeline
// stages each own one section and merge-patch only that section.
type Payload struct {
	Brief       *CampaignBrief   `json:"brief,omitempty"`
	Research    *BrandProfile    `json:"research,omitempty"`
	Influencers []Influencer     `json:"influencers,omitempty"`
	Images      []GeneratedImage `json:"images,omitempty"`
	Deck        *Deck            `json:"deck,omitempty"`
}

// CampaignBrief holds the structured fields extracted from an uploaded
// brief. The wizard edits these fields directly via merge-patch.
type CampaignBrief struct {
	BrandName    string   `json:"brand_name"`
	Website      string   `json:"website,omitempty"`
	Industry     string   `json:"industry,omitempty"`
	Budget       string   `json:"budget,omitempty"`
	Goals        []string `json:"goals,omitempty"`
	Audience     string   `json:"audience,omitempty"`
	Interests    []string `json:"interests,omitempty"`
	Channels     []string `json:"channels,omitempty"`
	Deliverables []string `json:"deliverables,omitempty"`
	Timeline     string   `json:"timeline,omitempty"`
	Tone         string   `json:"tone,omitempty"`
	Summary      string   `json:"summary,omitempty"`
}

// BrandProfile is the research stage output: scraped site evidence,
// social stats, and an LLM positioning summary.
type BrandProfile struct {
	Summary         string            `json:"summary,omitempty"`
	Positioning     string            `json:"positioning,omitempty"`
	ToneWords       []string          `json:"tone_words,omitempty"`
	Products        []string          `json:"products,omitempty"`
	Competitors     []string          `json:"competitors,omitempty"`
	SiteTitle       string            `json:"site_title,omitempty"`
	SiteDescription string            `json:"site_description,omitempty"`
	Headings        []string          `json:"headings,omitempty"`
	SocialLinks     map[string]string `json:"social_links,omitempty"`
	SocialStats     []SocialStat      `json:"social_stats,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
}

// SocialStat is one social platform profile snapshot.
type SocialStat struct {
	Platform       string  `json:"platform"`
	Handle         string  `json:"handle"`
	Followers      int64   `json:"followers"`
	Following      int64   `json:"following,omitempty"`
	Posts          int64   `json:"posts,omitempty"`
	EngagementRate float64 `json:"engagement_rate,omitempty"`
}

// Influencer is one scored influencer candidate.
type Influencer struct {
	Platform       string   `json:"platform"`
	Handle         string   `json:"handle"`
	Name           string   `json:"name,omitempty"`
	URL            string   `json:"url,omitempty"`
	Followers      int64    `json:"followers"`
	EngagementRate float64  `json:"engagement_rate,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	Location       string   `json:"location,omitempty"`
	Score          float64  `json:"score"`
	Reasons        []string `json:"reasons,omitempty"`
}

// GeneratedImage records a generated asset stored as derived content.
type GeneratedImage struct {
	ContentID uuid.UUID `json:"content_id"`
	PreviewID uuid.UUID `json:"preview_id,omitempty"`
	Role      string    `json:"role"`
	Prompt    string    `json:"prompt,omitempty"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
}

// Deck is the staged slide generation state. Stage advances through
// planned (outline ready), drafted (all batches attempted), and final.
type Deck struct {
	Stage    string      `json:"stage,omitempty"`
	Theme    *Theme      `json:"theme,omitempty"`
	Outline  []SlidePlan `json:"outline,omitempty"`
	Slides   []Slide     `json:"slides,omitempty"`
	Summary  string      `json:"summary,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Theme holds the deck's visual identity chosen by the foundation call.
type Theme struct {
	Name        string `json:"name,omitempty"`
	Primary     string `json:"primary"`
	Secondary   string `json:"secondary,omitempty"`
	Accent      string `json:"accent,omitempty"`
	Background  string `json:"background,omitempty"`
	Text        string `json:"text,omitempty"`
	HeadingFont string `json:"heading_font,omitempty"`
	BodyFont    string `json:"body_font,omitempty"`
}

// SlidePlan is one outline entry produced by the foundation call.
type SlidePlan struct {
	Index   int    `json:"index"`
	Section string `json:"section"`
	Title   string `json:"title"`
	Goal    string `json:"goal,omitempty"`
	Layout  string `json:"layout,omitempty"`
}

// Slide is one generated slide. Status is placeholder when its batch
// failed and the deck kept going.
type Slide struct {
	Index   int      `json:"index"`
	Section string   `json:"section,omitempty"`
	Title   string   `json:"title"`
	HTML    string   `json:"html,omitempty"`
	Bullets []string `json:"bullets,omitempty"`
	Notes   string   `json:"notes,omitempty"`
	Status  string   `json:"status"`
}
