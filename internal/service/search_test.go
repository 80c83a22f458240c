package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/timmy/gifforge/internal/cache"
	"github.com/timmy/gifforge/internal/domain"
	"github.com/timmy/gifforge/internal/source"
)

type fakeProvider struct {
	id      domain.GifSource
	calls   int
	err     error
	page    *source.SearchPage
	byID    map[string]*domain.GifDescriptor
	lastQ   string
	lastPar source.SearchParams
}

func (f *fakeProvider) ID() domain.GifSource { return f.id }
func (f *fakeProvider) Name() string         { return string(f.id) }

func (f *fakeProvider) Search(ctx context.Context, query string, params source.SearchParams) (*source.SearchPage, error) {
	f.calls++
	f.lastQ = query
	f.lastPar = params
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func (f *fakeProvider) GetByID(ctx context.Context, id string) (*domain.GifDescriptor, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byID[id], nil
}

func pageFor(src domain.GifSource, ids ...string) *source.SearchPage {
	results := make([]domain.GifDescriptor, 0, len(ids))
	for _, id := range ids {
		results = append(results, domain.GifDescriptor{
			ID:     id,
			Title:  "gif " + id,
			URL:    "https://media.example.com/" + id + ".gif",
			Source: src,
		})
	}
	return &source.SearchPage{Results: results, TotalCount: len(results)}
}

func newSearchService(t *testing.T, providers ...source.Provider) *SearchService {
	t.Helper()
	results, err := cache.New[*SearchResponse]("search", 16, time.Minute, 0, nil)
	if err != nil {
		t.Fatalf("search cache: %v", err)
	}
	gifs, err := cache.New[*domain.GifDescriptor]("gifs", 16, time.Minute, 0, nil)
	if err != nil {
		t.Fatalf("gifs cache: %v", err)
	}
	t.Cleanup(func() {
		results.Dispose()
		gifs.Dispose()
	})
	return NewSearchService(providers, results, gifs, nil)
}

func TestSearchGifsPrimaryProvider(t *testing.T) {
	giphy := &fakeProvider{id: domain.SourceGiphy, page: pageFor(domain.SourceGiphy, "a", "b")}
	tenor := &fakeProvider{id: domain.SourceTenor, page: pageFor(domain.SourceTenor, "x")}
	svc := newSearchService(t, giphy, tenor)

	resp, err := svc.SearchGifs(context.Background(), &SearchRequest{Query: "cats"})
	if err != nil {
		t.Fatalf("SearchGifs: %v", err)
	}
	if resp.Provider != "giphy" || len(resp.Results) != 2 {
		t.Errorf("resp = provider %q with %d results, want giphy/2", resp.Provider, len(resp.Results))
	}
	if tenor.calls != 0 {
		t.Error("fallback provider queried while primary succeeded")
	}
	if giphy.lastPar.Limit != defaultSearchLimit {
		t.Errorf("default limit = %d, want %d", giphy.lastPar.Limit, defaultSearchLimit)
	}
}

func TestSearchGifsFallsThroughOnFailure(t *testing.T) {
	giphy := &fakeProvider{id: domain.SourceGiphy, err: errors.New("upstream 500")}
	tenor := &fakeProvider{id: domain.SourceTenor, page: pageFor(domain.SourceTenor, "x")}
	svc := newSearchService(t, giphy, tenor)

	resp, err := svc.SearchGifs(context.Background(), &SearchRequest{Query: "dogs"})
	if err != nil {
		t.Fatalf("SearchGifs: %v", err)
	}
	if resp.Provider != "tenor" {
		t.Errorf("provider = %q, want tenor", resp.Provider)
	}
	if giphy.calls != 1 || tenor.calls != 1 {
		t.Errorf("calls giphy=%d tenor=%d, want 1/1", giphy.calls, tenor.calls)
	}
}

func TestSearchGifsServesFallbackSetWhenAllFail(t *testing.T) {
	giphy := &fakeProvider{id: domain.SourceGiphy, err: errors.New("down")}
	tenor := &fakeProvider{id: domain.SourceTenor, err: errors.New("down too")}
	svc := newSearchService(t, giphy, tenor)

	resp, err := svc.SearchGifs(context.Background(), &SearchRequest{Query: "anything"})
	if err != nil {
		t.Fatalf("SearchGifs: %v", err)
	}
	if !resp.Fallback {
		t.Error("fallback flag not set")
	}
	if len(resp.Results) == 0 {
		t.Error("fallback set is empty")
	}
	for _, g := range resp.Results {
		if g.Source != domain.SourceMock {
			t.Errorf("fallback result from %q, want mock", g.Source)
		}
	}

	// Fallback responses are not cached; recovery should reach providers again.
	giphy.err = nil
	giphy.page = pageFor(domain.SourceGiphy, "a")
	resp, err = svc.SearchGifs(context.Background(), &SearchRequest{Query: "anything"})
	if err != nil {
		t.Fatalf("second SearchGifs: %v", err)
	}
	if resp.Fallback || resp.Provider != "giphy" {
		t.Errorf("recovered search = provider %q fallback=%v, want giphy/false", resp.Provider, resp.Fallback)
	}
}

func TestSearchGifsCachesResponses(t *testing.T) {
	giphy := &fakeProvider{id: domain.SourceGiphy, page: pageFor(domain.SourceGiphy, "a")}
	svc := newSearchService(t, giphy)

	for i := 0; i < 3; i++ {
		if _, err := svc.SearchGifs(context.Background(), &SearchRequest{Query: "repeat"}); err != nil {
			t.Fatalf("SearchGifs %d: %v", i, err)
		}
	}
	if giphy.calls != 1 {
		t.Errorf("provider calls = %d, want 1", giphy.calls)
	}
}

func TestSearchGifsPreferredProviderOverride(t *testing.T) {
	giphy := &fakeProvider{id: domain.SourceGiphy, page: pageFor(domain.SourceGiphy, "a")}
	tenor := &fakeProvider{id: domain.SourceTenor, page: pageFor(domain.SourceTenor, "x")}
	svc := newSearchService(t, giphy, tenor)

	resp, err := svc.SearchGifs(context.Background(), &SearchRequest{Query: "cats", Provider: "tenor"})
	if err != nil {
		t.Fatalf("SearchGifs: %v", err)
	}
	if resp.Provider != "tenor" {
		t.Errorf("provider = %q, want tenor", resp.Provider)
	}
	if giphy.calls != 0 {
		t.Error("non-preferred provider queried first")
	}
}

func TestSearchGifsRejectsEmptyQuery(t *testing.T) {
	svc := newSearchService(t, &fakeProvider{id: domain.SourceGiphy})
	for _, q := range []string{"", "   ", "<>&;"} {
		if _, err := svc.SearchGifs(context.Background(), &SearchRequest{Query: q}); !domain.IsType(err, domain.ErrValidation) {
			t.Errorf("query %q: error = %v, want validation", q, err)
		}
	}
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "funny cats", "funny cats"},
		{"strips markup", `<script>alert("x")</script>cats`, "scriptalert(x)/scriptcats"},
		{"collapses whitespace", "  too   many\t spaces \n", "too many spaces"},
		{"strips ampersand and semicolon", "tom & jerry; dog", "tom jerry dog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeQuery(tt.in); got != tt.want {
				t.Errorf("SanitizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	long := SanitizeQuery(strings.Repeat("a", 300))
	if len([]rune(long)) > maxQueryLength {
		t.Errorf("long query not capped: %d runes", len([]rune(long)))
	}
}

func TestGetGifByID(t *testing.T) {
	gif := &domain.GifDescriptor{ID: "a", URL: "https://media.example.com/a.gif", Source: domain.SourceGiphy}
	giphy := &fakeProvider{id: domain.SourceGiphy, byID: map[string]*domain.GifDescriptor{"a": gif}}
	tenor := &fakeProvider{id: domain.SourceTenor, byID: map[string]*domain.GifDescriptor{}}
	svc := newSearchService(t, giphy, tenor)

	got, err := svc.GetGifByID(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetGifByID: %v", err)
	}
	if got == nil || got.ID != "a" {
		t.Fatalf("got = %+v, want gif a", got)
	}

	missing, err := svc.GetGifByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetGifByID miss: %v", err)
	}
	if missing != nil {
		t.Errorf("unknown id resolved to %+v", missing)
	}
}

func TestSearchResultsPopulateGifCache(t *testing.T) {
	giphy := &fakeProvider{id: domain.SourceGiphy, page: pageFor(domain.SourceGiphy, "a", "b")}
	svc := newSearchService(t, giphy)

	if _, err := svc.SearchGifs(context.Background(), &SearchRequest{Query: "cats"}); err != nil {
		t.Fatalf("SearchGifs: %v", err)
	}

	// Lookup should be served from cache without a provider GetByID hit.
	got, err := svc.GetGifByID(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetGifByID: %v", err)
	}
	if got == nil || got.Title != "gif a" {
		t.Errorf("cached descriptor = %+v", got)
	}
}
