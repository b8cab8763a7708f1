package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const userAgent = "Mozilla/5.0 (compatible; DocMakerBot/1.0)"

// Body text kept as LLM evidence is capped well below the fetch limit.
const maxEvidenceLen = 4000

// SiteSnapshot is the scraped evidence from a brand website.
type SiteSnapshot struct {
	URL         string
	Title       string
	Description string
	Headings    []string
	SocialLinks map[string]string
	Text        string
}

var socialDomains = map[string]string{
	"instagram.com": "instagram",
	"tiktok.com":    "tiktok",
	"youtube.com":   "youtube",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
	"facebook.com":  "facebook",
	"linkedin.com":  "linkedin",
	"pinterest.com": "pinterest",
}

// ScrapeSite fetches the brand website and extracts title, meta
// description, headings, social links, and body text.
func ScrapeSite(ctx context.Context, httpClient *http.Client, siteURL string) (*SiteSnapshot, error) {
	normalized, err := normalizeURL(siteURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalized, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch site: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("site returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1MB limit
	if err != nil {
		return nil, fmt.Errorf("failed to read site body: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse site HTML: %w", err)
	}

	snap := &SiteSnapshot{
		URL:         normalized,
		SocialLinks: map[string]string{},
	}
	extractSnapshot(doc, snap)
	snap.Text = collapseSpace(snap.Text)
	if len(snap.Text) > maxEvidenceLen {
		// Back up to a rune boundary so the cut never leaves a broken
		// UTF-8 sequence at the end.
		cut := maxEvidenceLen
		for cut > 0 && !utf8.RuneStart(snap.Text[cut]) {
			cut--
		}
		snap.Text = snap.Text[:cut]
	}
	return snap, nil
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty site URL")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid site URL: %s", raw)
	}
	return u.String(), nil
}

func extractSnapshot(doc *html.Node, snap *SiteSnapshot) {
	var textBuf strings.Builder

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if snap.Title == "" && n.FirstChild != nil {
					snap.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				if attr(n, "name") == "description" || attr(n, "property") == "og:description" {
					if snap.Description == "" {
						snap.Description = strings.TrimSpace(attr(n, "content"))
					}
				}
			case "h1", "h2", "h3":
				heading := strings.TrimSpace(extractTextContent(n))
				if heading != "" && len(snap.Headings) < 12 {
					snap.Headings = append(snap.Headings, heading)
				}
			case "a":
				if platform, ok := socialPlatform(attr(n, "href")); ok {
					if _, seen := snap.SocialLinks[platform]; !seen {
						snap.SocialLinks[platform] = attr(n, "href")
					}
				}
			}
		}
		if n.Type == html.TextNode {
			textBuf.WriteString(n.Data)
			textBuf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	snap.Text = textBuf.String()
}

func extractTextContent(n *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return strings.TrimSpace(sb.String())
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func socialPlatform(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	platform, ok := socialDomains[host]
	return platform, ok
}

// HandleFromURL pulls the profile handle out of a social link.
func HandleFromURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	handle := segments[len(segments)-1]
	handle = strings.TrimPrefix(handle, "@")
	// Shared profile URLs sometimes carry trailing junk segments.
	switch strings.ToLower(handle) {
	case "home", "profile", "about":
		return ""
	}
	return handle
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
