package discoverer

import (
	"context"
	"fmt"

	"docscan/internal/filefinder"
	"docscan/internal/logging"
	"docscan/internal/urlnorm"
	"docscan/internal/xmlutil"
)

// SearchResult is one item an external search API returned for a query.
type SearchResult struct {
	URL string
}

// SearchProvider is the narrow façade SearchEngine drives; a concrete
// implementation wraps whichever external search API is configured.
// Search returns the page'th page of results for query (pages are
// 1-indexed); ok is false once the provider has no further pages.
type SearchProvider interface {
	Search(ctx context.Context, query string, page int) (results []SearchResult, ok bool, err error)
}

// SearchEngine pages through a SearchProvider's results for a fixed
// query, normalizing and filtering every returned URL until the quota is
// reached or the provider runs out of pages.
type SearchEngine struct {
	query    string
	provider SearchProvider
	filters  []*filefinder.Filter
	logger   *logging.Logger
}

// NewSearchEngine builds a SearchEngine driving provider with query.
func NewSearchEngine(query string, provider SearchProvider, filters []*filefinder.Filter, logger *logging.Logger) *SearchEngine {
	return &SearchEngine{query: query, provider: provider, filters: filters, logger: logger}
}

// Start implements Discoverer.
func (s *SearchEngine) Start(ctx context.Context, quota int) Events {
	hits := make(chan filefinder.CandidateHit, 64)
	reports := make(chan string, 64)
	done := make(chan struct{})

	go s.run(ctx, quota, hits, reports, done)
	return Events{Hits: hits, Reports: reports, Done: done}
}

func (s *SearchEngine) run(ctx context.Context, quota int, hits chan filefinder.CandidateHit, reports chan string, done chan struct{}) {
	defer close(done)
	defer close(reports)
	defer close(hits)

	emitReport(ctx, reports, fmt.Sprintf(`<searchengine event="start" query="%s" numexpectedhits="%d" />`, xmlutil.Xmlify(s.query), quota))

	found := 0
	page := 1

pages:
	for {
		if ctx.Err() != nil {
			break
		}
		if quota > 0 && found >= quota {
			break
		}

		results, ok, err := s.provider.Search(ctx, s.query, page)
		if err != nil {
			s.logger.Warn("search provider error", logging.Fields{"query": s.query, "page": page, "error": err.Error()})
			emitReport(ctx, reports, fmt.Sprintf(`<searchengine event="error" query="%s" page="%d" message="%s" />`, xmlutil.Xmlify(s.query), page, xmlutil.Xmlify(err.Error())))
			break
		}

		for _, result := range results {
			normalized, err := urlnorm.Normalize(result.URL, nil)
			if err != nil {
				continue
			}
			normStr := normalized.String()

			for _, f := range s.filters {
				if !f.TryHit(normStr) {
					continue
				}
				found++
				if !emitHit(ctx, hits, filefinder.CandidateHit{URL: normStr, Filter: f}) {
					break pages
				}
				emitReport(ctx, reports, fmt.Sprintf(`<filefinder event="hit" url="%s" filter="%s" />`, xmlutil.Xmlify(normStr), xmlutil.Xmlify(f.Glob)))
				break
			}
			if quota > 0 && found >= quota {
				break pages
			}
		}

		if !ok {
			break
		}
		page++
	}

	emitReport(ctx, reports, fmt.Sprintf(`<searchengine event="summary" numfoundhits="%d" />`, found))
}
