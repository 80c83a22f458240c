// Package mock serves a small fixed result set. It backs development without
// API keys and is the fallback when every real provider fails, so downstream
// callers always have something renderable.
package mock

import (
	"context"
	"strings"

	"github.com/timmy/gifforge/internal/domain"
	"github.com/timmy/gifforge/internal/source"
)

// Provider is the fixed-catalog provider.
type Provider struct {
	catalog []domain.GifDescriptor
}

// New creates the mock provider with its built-in catalog.
func New() *Provider {
	return &Provider{catalog: defaultCatalog()}
}

// ID returns the provider identifier.
func (p *Provider) ID() domain.GifSource { return domain.SourceMock }

// Name returns the provider display name.
func (p *Provider) Name() string { return "Built-in" }

// Search filters the catalog on a case-insensitive title match; an empty
// query returns everything.
func (p *Provider) Search(_ context.Context, query string, params source.SearchParams) (*source.SearchPage, error) {
	matched := make([]domain.GifDescriptor, 0, len(p.catalog))
	q := strings.ToLower(query)
	for _, g := range p.catalog {
		if q == "" || strings.Contains(strings.ToLower(g.Title), q) {
			matched = append(matched, g)
		}
	}

	start := params.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if params.Limit > 0 && start+params.Limit < end {
		end = start + params.Limit
	}

	return &source.SearchPage{
		Results:    matched[start:end],
		TotalCount: len(matched),
		HasMore:    end < len(matched),
	}, nil
}

// GetByID looks the id up in the catalog.
func (p *Provider) GetByID(_ context.Context, id string) (*domain.GifDescriptor, error) {
	for _, g := range p.catalog {
		if g.ID == id {
			gif := g
			return &gif, nil
		}
	}
	return nil, nil
}

// Fallback returns the fixed result set served when all real providers fail.
func Fallback() *source.SearchPage {
	catalog := defaultCatalog()
	return &source.SearchPage{
		Results:    catalog,
		TotalCount: len(catalog),
		HasMore:    false,
	}
}

func defaultCatalog() []domain.GifDescriptor {
	return []domain.GifDescriptor{
		{
			ID:      "mock-celebrate",
			Title:   "Celebration",
			URL:     "https://media.gifforge.dev/samples/celebrate.gif",
			Preview: "https://media.gifforge.dev/samples/celebrate_s.gif",
			Width:   480,
			Height:  270,
			Source:  domain.SourceMock,
		},
		{
			ID:      "mock-thumbs-up",
			Title:   "Thumbs Up",
			URL:     "https://media.gifforge.dev/samples/thumbs-up.gif",
			Preview: "https://media.gifforge.dev/samples/thumbs-up_s.gif",
			Width:   400,
			Height:  400,
			Source:  domain.SourceMock,
		},
		{
			ID:      "mock-facepalm",
			Title:   "Facepalm",
			URL:     "https://media.gifforge.dev/samples/facepalm.gif",
			Preview: "https://media.gifforge.dev/samples/facepalm_s.gif",
			Width:   480,
			Height:  360,
			Source:  domain.SourceMock,
		},
		{
			ID:      "mock-mind-blown",
			Title:   "Mind Blown",
			URL:     "https://media.gifforge.dev/samples/mind-blown.gif",
			Preview: "https://media.gifforge.dev/samples/mind-blown_s.gif",
			Width:   500,
			Height:  281,
			Source:  domain.SourceMock,
		},
	}
}
