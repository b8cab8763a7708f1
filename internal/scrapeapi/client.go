// Package scrapeapi is a typed client for the hosted social scraping
// API used by brand research and influencer discovery.
package scrapeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/metrics"
	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

// ErrNotFound indicates the requested profile does not exist
var ErrNotFound = errors.New("profile not found")

// Config holds scraping API settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls the scraping API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a scraping API client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("scrapeapi"),
	}
}

type profileResponse struct {
	Handle         string  `json:"handle"`
	FollowerCount  int64   `json:"follower_count"`
	FollowingCount int64   `json:"following_count"`
	PostCount      int64   `json:"post_count"`
	EngagementRate float64 `json:"engagement_rate"`
}

// Profile fetches one social profile snapshot.
func (c *Client) Profile(ctx context.Context, platform, handle string) (*docmaker.SocialStat, error) {
	endpoint := fmt.Sprintf("%s/v1/%s/profile?handle=%s", c.baseURL, url.PathEscape(platform), url.QueryEscape(handle))

	var resp profileResponse
	if err := c.get(ctx, "profile", endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Handle == "" {
		resp.Handle = handle
	}

	return &docmaker.SocialStat{
		Platform:       platform,
		Handle:         resp.Handle,
		Followers:      resp.FollowerCount,
		Following:      resp.FollowingCount,
		Posts:          resp.PostCount,
		EngagementRate: resp.EngagementRate,
	}, nil
}

type creatorResponse struct {
	Creators []struct {
		Handle         string   `json:"handle"`
		Name           string   `json:"name"`
		URL            string   `json:"url"`
		FollowerCount  int64    `json:"follower_count"`
		EngagementRate float64  `json:"engagement_rate"`
		Categories     []string `json:"categories"`
		Location       string   `json:"location"`
	} `json:"creators"`
}

// SearchCreators finds creators on a platform matching the query.
func (c *Client) SearchCreators(ctx context.Context, platform, query string, limit int) ([]docmaker.Influencer, error) {
	if limit <= 0 {
		limit = 20
	}
	endpoint := fmt.Sprintf("%s/v1/%s/search/creators?query=%s&limit=%s",
		c.baseURL, url.PathEscape(platform), url.QueryEscape(query), strconv.Itoa(limit))

	var resp creatorResponse
	if err := c.get(ctx, "search", endpoint, &resp); err != nil {
		return nil, err
	}

	influencers := make([]docmaker.Influencer, 0, len(resp.Creators))
	for _, cr := range resp.Creators {
		if cr.Handle == "" {
			continue
		}
		influencers = append(influencers, docmaker.Influencer{
			Platform:       platform,
			Handle:         cr.Handle,
			Name:           cr.Name,
			URL:            cr.URL,
			Followers:      cr.FollowerCount,
			EngagementRate: cr.EngagementRate,
			Categories:     cr.Categories,
			Location:       cr.Location,
		})
	}
	return influencers, nil
}

func (c *Client) get(ctx context.Context, endpoint, rawURL string, out interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("scraping API key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveScrape(endpoint, "error")
		return fmt.Errorf("scraping API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		metrics.ObserveScrape(endpoint, "not_found")
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ObserveScrape(endpoint, "error")
		return fmt.Errorf("scraping API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ObserveScrape(endpoint, "error")
		return fmt.Errorf("failed to decode scraping API response: %w", err)
	}

	metrics.ObserveScrape(endpoint, "ok")
	return nil
}
