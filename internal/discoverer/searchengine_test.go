package discoverer

import (
	"context"
	"testing"
	"time"

	"docscan/internal/filefinder"
	"docscan/internal/logging"
)

type fakeSearchProvider struct {
	pages [][]SearchResult
}

func (p *fakeSearchProvider) Search(ctx context.Context, query string, page int) ([]SearchResult, bool, error) {
	idx := page - 1
	if idx < 0 || idx >= len(p.pages) {
		return nil, false, nil
	}
	return p.pages[idx], idx < len(p.pages)-1, nil
}

func TestSearchEngine_PagesUntilExhausted(t *testing.T) {
	provider := &fakeSearchProvider{pages: [][]SearchResult{
		{{URL: "http://example.test/a.pdf"}, {URL: "http://example.test/a.txt"}},
		{{URL: "http://example.test/b.pdf"}},
	}}
	filter, err := filefinder.NewFilter("*.pdf")
	if err != nil {
		t.Fatal(err)
	}

	se := NewSearchEngine("annual report", provider, []*filefinder.Filter{filter}, logging.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := se.Start(ctx, 0)
	hits, _ := drainEvents(t, ctx, ev)

	if len(hits) != 2 {
		t.Fatalf("expected 2 hits across both pages, got %d: %+v", len(hits), hits)
	}
}

func TestSearchEngine_StopsAtQuota(t *testing.T) {
	provider := &fakeSearchProvider{pages: [][]SearchResult{
		{{URL: "http://example.test/a.pdf"}, {URL: "http://example.test/b.pdf"}, {URL: "http://example.test/c.pdf"}},
	}}
	filter, err := filefinder.NewFilter("*.pdf")
	if err != nil {
		t.Fatal(err)
	}

	se := NewSearchEngine("annual report", provider, []*filefinder.Filter{filter}, logging.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := se.Start(ctx, 1)
	hits, _ := drainEvents(t, ctx, ev)

	if len(hits) != 1 {
		t.Fatalf("expected exactly 1 hit for a quota of 1, got %d: %+v", len(hits), hits)
	}
}
