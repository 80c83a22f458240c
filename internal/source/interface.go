package source

import (
	"context"

	"github.com/timmy/gifforge/internal/domain"
)

// SearchPage is one page of normalized provider results.
type SearchPage struct {
	Results    []domain.GifDescriptor
	TotalCount int
	HasMore    bool
}

// SearchParams carries the provider-agnostic search inputs.
type SearchParams struct {
	Limit  int
	Offset int
	Rating string
}

// Provider defines the interface for GIF search providers.
type Provider interface {
	// ID returns the stable provider identifier.
	// Parameters: none.
	// Returns:
	//   - domain.GifSource: provenance tag stamped on results.
	ID() domain.GifSource

	// Name returns a human-readable name for this provider.
	// Parameters: none.
	// Returns:
	//   - string: display-friendly provider name.
	Name() string

	// Search queries the provider and normalizes its response.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - query: sanitized search text.
	//   - params: paging and rating filters.
	// Returns:
	//   - *SearchPage: normalized results.
	//   - error: non-nil if the provider call fails.
	Search(ctx context.Context, query string, params SearchParams) (*SearchPage, error)

	// GetByID fetches one GIF by its provider-native id.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - id: provider-native GIF id.
	// Returns:
	//   - *domain.GifDescriptor: the GIF, or nil when unknown.
	//   - error: non-nil if the lookup fails.
	GetByID(ctx context.Context, id string) (*domain.GifDescriptor, error)
}
