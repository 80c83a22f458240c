package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/timmy/gifforge/internal/cache"
	"github.com/timmy/gifforge/internal/domain"
	"github.com/timmy/gifforge/internal/logger"
	"github.com/timmy/gifforge/internal/metrics"
	"github.com/timmy/gifforge/internal/source"
	"github.com/timmy/gifforge/internal/source/mock"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
	maxQueryLength     = 100
)

// htmlSignificant strips characters that could leak markup or break outbound
// request construction.
var htmlSignificant = regexp.MustCompile(`[<>"'&;]`)

// SearchRequest represents a GIF search request.
type SearchRequest struct {
	Query    string `json:"query" binding:"required"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
	Rating   string `json:"rating,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// SearchResponse represents the normalized search response.
type SearchResponse struct {
	Results    []domain.GifDescriptor `json:"results"`
	TotalCount int                    `json:"total_count"`
	HasMore    bool                   `json:"has_more"`
	Query      string                 `json:"query"`
	Provider   string                 `json:"provider,omitempty"`
	Fallback   bool                   `json:"fallback,omitempty"`
}

// SearchService queries GIF providers with fallback ordering and caches
// normalized results. Searches may run concurrently with each other and with
// an in-flight processing job; they share only the cache.
type SearchService struct {
	providers []source.Provider
	results   *cache.Cache[*SearchResponse]
	gifs      *cache.Cache[*domain.GifDescriptor]
	logger    *logger.Logger
}

// NewSearchService creates the search orchestrator.
// Parameters:
//   - providers: providers in fallback order; the first is primary.
//   - results: cache for search responses.
//   - gifs: cache for individual descriptors.
//   - log: logger instance.
//
// Returns:
//   - *SearchService: initialized service.
func NewSearchService(
	providers []source.Provider,
	results *cache.Cache[*SearchResponse],
	gifs *cache.Cache[*domain.GifDescriptor],
	log *logger.Logger,
) *SearchService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &SearchService{
		providers: providers,
		results:   results,
		gifs:      gifs,
		logger:    log.WithField(logger.FieldComponent, "search"),
	}
}

func (s *SearchService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// SearchGifs queries providers in fallback order. On total provider failure
// it returns the built-in fallback set instead of an error so the UI always
// has something renderable.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: search request; query is sanitized before any outbound use.
//
// Returns:
//   - *SearchResponse: normalized results.
//   - error: non-nil only for empty queries after sanitization.
func (s *SearchService) SearchGifs(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	query := SanitizeQuery(req.Query)
	if query == "" {
		return nil, domain.NewValidationError("A search query is required.", "Type something to search for.")
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}
	if req.Limit > maxSearchLimit {
		req.Limit = maxSearchLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	key := fmt.Sprintf("search:%s:%d:%d:%s:%s", query, req.Limit, req.Offset, req.Rating, req.Provider)
	if cached, ok := s.results.Get(key); ok {
		metrics.CacheRequestsTotal.WithLabelValues("search", "hit").Inc()
		return cached, nil
	}
	metrics.CacheRequestsTotal.WithLabelValues("search", "miss").Inc()

	params := source.SearchParams{Limit: req.Limit, Offset: req.Offset, Rating: req.Rating}
	var lastErr error
	for _, provider := range s.order(req.Provider) {
		page, err := provider.Search(ctx, query, params)
		if err != nil {
			lastErr = err
			metrics.ProviderRequestsTotal.WithLabelValues(string(provider.ID()), "error").Inc()
			s.log(ctx).WithError(err).
				WithField(logger.FieldProvider, string(provider.ID())).
				Warn("provider search failed, trying next")
			continue
		}
		metrics.ProviderRequestsTotal.WithLabelValues(string(provider.ID()), "ok").Inc()

		resp := &SearchResponse{
			Results:    page.Results,
			TotalCount: page.TotalCount,
			HasMore:    page.HasMore,
			Query:      query,
			Provider:   string(provider.ID()),
		}
		s.results.Set(key, resp)
		s.rememberGifs(page.Results)
		return resp, nil
	}

	s.log(ctx).WithError(lastErr).Error("all providers failed, serving fallback results")
	page := mock.Fallback()
	return &SearchResponse{
		Results:    page.Results,
		TotalCount: page.TotalCount,
		HasMore:    page.HasMore,
		Query:      query,
		Provider:   string(domain.SourceMock),
		Fallback:   true,
	}, nil
}

// GetGifByID resolves a descriptor by id, preferring cached copies.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: provider-native GIF id.
//
// Returns:
//   - *domain.GifDescriptor: the GIF, or nil when no provider knows it.
//   - error: non-nil when every provider lookup fails.
func (s *SearchService) GetGifByID(ctx context.Context, id string) (*domain.GifDescriptor, error) {
	if cached, ok := s.gifs.Get("gif:" + id); ok {
		metrics.CacheRequestsTotal.WithLabelValues("gifs", "hit").Inc()
		return cached, nil
	}
	metrics.CacheRequestsTotal.WithLabelValues("gifs", "miss").Inc()

	var lastErr error
	for _, provider := range s.providers {
		gif, err := provider.GetByID(ctx, id)
		if err != nil {
			lastErr = err
			metrics.ProviderRequestsTotal.WithLabelValues(string(provider.ID()), "error").Inc()
			continue
		}
		metrics.ProviderRequestsTotal.WithLabelValues(string(provider.ID()), "ok").Inc()
		if gif != nil {
			s.gifs.Set("gif:"+id, gif)
			return gif, nil
		}
	}
	if lastErr != nil {
		return nil, domain.Classify(lastErr)
	}
	return nil, nil
}

// order returns the provider chain, promoting the named provider when set.
func (s *SearchService) order(preferred string) []source.Provider {
	if preferred == "" {
		return s.providers
	}
	ordered := make([]source.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		if string(p.ID()) == preferred {
			ordered = append(ordered, p)
		}
	}
	for _, p := range s.providers {
		if string(p.ID()) != preferred {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

func (s *SearchService) rememberGifs(gifs []domain.GifDescriptor) {
	for i := range gifs {
		gif := gifs[i]
		s.gifs.Set("gif:"+gif.ID, &gif)
	}
}

// SanitizeQuery strips HTML-significant characters, collapses whitespace,
// and caps the length before the query is used in any outbound request.
// Parameters:
//   - q: raw user query.
//
// Returns:
//   - string: sanitized query, possibly empty.
func SanitizeQuery(q string) string {
	q = htmlSignificant.ReplaceAllString(q, "")
	q = strings.Join(strings.Fields(q), " ")
	runes := []rune(q)
	if len(runes) > maxQueryLength {
		q = strings.TrimSpace(string(runes[:maxQueryLength]))
	}
	return q
}
