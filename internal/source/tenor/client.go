// Package tenor implements the Provider interface against the Tenor v2 API.
package tenor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/gifforge/internal/domain"
	"github.com/timmy/gifforge/internal/source"
)

const defaultBaseURL = "https://tenor.googleapis.com/v2"

// Client is a Tenor API client.
type Client struct {
	client  *resty.Client
	apiKey  string
	baseURL string
}

// Config holds Tenor client configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// New creates a Tenor provider.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	return &Client{
		client:  client,
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
	}
}

// ID returns the provider identifier.
func (c *Client) ID() domain.GifSource { return domain.SourceTenor }

// Name returns the provider display name.
func (c *Client) Name() string { return "Tenor" }

// Tenor v2 response structures (subset of the fields we consume).
type searchResponse struct {
	Results []post `json:"results"`
	Next    string `json:"next"`
}

type post struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	MediaFormats struct {
		Gif     mediaFormat `json:"gif"`
		TinyGif mediaFormat `json:"tinygif"`
	} `json:"media_formats"`
}

type mediaFormat struct {
	URL      string  `json:"url"`
	Dims     []int   `json:"dims"`
	Duration float64 `json:"duration"`
}

// Search queries Tenor and normalizes the response. Tenor paginates by
// cursor; the offset is mapped onto its pos parameter.
func (c *Client) Search(ctx context.Context, query string, params source.SearchParams) (*source.SearchPage, error) {
	var out searchResponse
	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":   c.apiKey,
			"q":     query,
			"limit": strconv.Itoa(params.Limit),
		}).
		SetResult(&out)
	if params.Offset > 0 {
		req.SetQueryParam("pos", strconv.Itoa(params.Offset))
	}
	if params.Rating != "" {
		req.SetQueryParam("contentfilter", ratingToContentFilter(params.Rating))
	}

	resp, err := req.Get(c.baseURL + "/search")
	if err != nil {
		return nil, domain.NewAPIError("tenor search request failed", err)
	}
	if resp.IsError() {
		return nil, domain.NewAPIError(fmt.Sprintf("tenor search returned %d", resp.StatusCode()), nil)
	}

	page := &source.SearchPage{
		Results: make([]domain.GifDescriptor, 0, len(out.Results)),
		HasMore: out.Next != "",
	}
	for _, p := range out.Results {
		page.Results = append(page.Results, normalize(p))
	}
	// Tenor does not report a total; approximate with what we know.
	page.TotalCount = params.Offset + len(page.Results)
	return page, nil
}

// GetByID fetches one post via the posts endpoint; unknown ids yield (nil, nil).
func (c *Client) GetByID(ctx context.Context, id string) (*domain.GifDescriptor, error) {
	var out searchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key": c.apiKey,
			"ids": id,
		}).
		SetResult(&out).
		Get(c.baseURL + "/posts")
	if err != nil {
		return nil, domain.NewAPIError("tenor lookup request failed", err)
	}
	if resp.IsError() {
		return nil, domain.NewAPIError(fmt.Sprintf("tenor lookup returned %d", resp.StatusCode()), nil)
	}
	if len(out.Results) == 0 {
		return nil, nil
	}
	gif := normalize(out.Results[0])
	return &gif, nil
}

func normalize(p post) domain.GifDescriptor {
	full := p.MediaFormats.Gif
	preview := p.MediaFormats.TinyGif.URL
	if preview == "" {
		preview = full.URL
	}
	var width, height int
	if len(full.Dims) == 2 {
		width, height = full.Dims[0], full.Dims[1]
	}
	return domain.GifDescriptor{
		ID:       p.ID,
		Title:    p.Title,
		URL:      full.URL,
		Preview:  preview,
		Width:    width,
		Height:   height,
		Duration: full.Duration,
		Source:   domain.SourceTenor,
	}
}

// ratingToContentFilter maps Giphy-style ratings onto Tenor content filters.
func ratingToContentFilter(rating string) string {
	switch rating {
	case "g":
		return "high"
	case "pg":
		return "medium"
	case "pg-13":
		return "low"
	default:
		return "off"
	}
}
