// Package giphy implements the Provider interface against the Giphy v1 API.
package giphy

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/gifforge/internal/domain"
	"github.com/timmy/gifforge/internal/source"
)

const defaultBaseURL = "https://api.giphy.com/v1"

// Client is a Giphy API client.
type Client struct {
	client  *resty.Client
	apiKey  string
	baseURL string
}

// Config holds Giphy client configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// New creates a Giphy provider.
// Parameters:
//   - cfg: API key and optional base URL override.
//
// Returns:
//   - *Client: initialized provider.
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
func (c *Client) ID() domain.GifSource { return domain.SourceGiphy }

// Name returns the provider display name.
func (c *Client) Name() string { return "Giphy" }

// Giphy API response structures (subset of the fields we consume).
type searchResponse struct {
	Data       []gifObject `json:"data"`
	Pagination pagination  `json:"pagination"`
}

type getResponse struct {
	Data gifObject `json:"data"`
}

type pagination struct {
	TotalCount int `json:"total_count"`
	Count      int `json:"count"`
	Offset     int `json:"offset"`
}

type gifObject struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Images struct {
		Original   imageVariant `json:"original"`
		FixedWidth imageVariant `json:"fixed_width"`
	} `json:"images"`
}

type imageVariant struct {
	URL    string `json:"url"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// Search queries Giphy and normalizes the response.
func (c *Client) Search(ctx context.Context, query string, params source.SearchParams) (*source.SearchPage, error) {
	var out searchResponse
	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key": c.apiKey,
			"q":       query,
			"limit":   strconv.Itoa(params.Limit),
			"offset":  strconv.Itoa(params.Offset),
		}).
		SetResult(&out)
	if params.Rating != "" {
		req.SetQueryParam("rating", params.Rating)
	}

	resp, err := req.Get(c.baseURL + "/gifs/search")
	if err != nil {
		return nil, domain.NewAPIError("giphy search request failed", err)
	}
	if resp.IsError() {
		return nil, domain.NewAPIError(fmt.Sprintf("giphy search returned %d", resp.StatusCode()), nil)
	}

	page := &source.SearchPage{
		Results:    make([]domain.GifDescriptor, 0, len(out.Data)),
		TotalCount: out.Pagination.TotalCount,
		HasMore:    out.Pagination.Offset+out.Pagination.Count < out.Pagination.TotalCount,
	}
	for _, g := range out.Data {
		page.Results = append(page.Results, c.normalize(g))
	}
	return page, nil
}

// GetByID fetches one GIF; a 404 yields (nil, nil).
func (c *Client) GetByID(ctx context.Context, id string) (*domain.GifDescriptor, error) {
	var out getResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("api_key", c.apiKey).
		SetResult(&out).
		Get(c.baseURL + "/gifs/" + id)
	if err != nil {
		return nil, domain.NewAPIError("giphy lookup request failed", err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, domain.NewAPIError(fmt.Sprintf("giphy lookup returned %d", resp.StatusCode()), nil)
	}
	if out.Data.ID == "" {
		return nil, nil
	}
	gif := c.normalize(out.Data)
	return &gif, nil
}

func (c *Client) normalize(g gifObject) domain.GifDescriptor {
	width, _ := strconv.Atoi(g.Images.Original.Width)
	height, _ := strconv.Atoi(g.Images.Original.Height)
	preview := g.Images.FixedWidth.URL
	if preview == "" {
		preview = g.Images.Original.URL
	}
	return domain.GifDescriptor{
		ID:      g.ID,
		Title:   g.Title,
		URL:     g.Images.Original.URL,
		Preview: preview,
		Width:   width,
		Height:  height,
		Source:  domain.SourceGiphy,
	}
}
