package discoverer

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"docscan/internal/filefinder"
	"docscan/internal/logging"
	"docscan/internal/xmlutil"
)

// LogReplay re-derives a discoverer's hits from a previous run's XML log
// instead of touching the network or filesystem again: it scans for
// <filefinder event="hit" url="..."> fragments and re-emits the ones whose
// URL still matches one of the current filters. Deterministic and
// network-free, it is the discoverer variant for re-running the later
// pipeline stages against an unchanged crawl.
type LogReplay struct {
	r       io.Reader
	filters []*filefinder.Filter
	logger  *logging.Logger
}

// NewLogReplay builds a LogReplay reading a previous run's log from r.
func NewLogReplay(r io.Reader, filters []*filefinder.Filter, logger *logging.Logger) *LogReplay {
	return &LogReplay{r: r, filters: filters, logger: logger}
}

// Start implements Discoverer.
func (l *LogReplay) Start(ctx context.Context, quota int) Events {
	hits := make(chan filefinder.CandidateHit, 64)
	reports := make(chan string, 64)
	done := make(chan struct{})

	go l.run(ctx, quota, hits, reports, done)
	return Events{Hits: hits, Reports: reports, Done: done}
}

type filefinderFragment struct {
	XMLName xml.Name `xml:"filefinder"`
	Event   string   `xml:"event,attr"`
	URL     string   `xml:"url,attr"`
}

func (l *LogReplay) run(ctx context.Context, quota int, hits chan filefinder.CandidateHit, reports chan string, done chan struct{}) {
	defer close(done)
	defer close(reports)
	defer close(hits)

	found := 0
	dec := xml.NewDecoder(l.r)

outer:
	for {
		if ctx.Err() != nil {
			break
		}

		tok, err := dec.Token()
		if err != nil {
			if err != io.EOF {
				l.logger.Warn("log replay decode error", logging.Fields{"error": err.Error()})
			}
			break
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "filefinder" {
			continue
		}

		var frag filefinderFragment
		if err := dec.DecodeElement(&frag, &start); err != nil {
			continue
		}
		if frag.Event != "hit" || frag.URL == "" {
			continue
		}

		// encoding/xml already unescapes attribute values, so frag.URL is
		// the literal URL here, not an XML-escaped form.
		urlStr := frag.URL
		for _, f := range l.filters {
			if !f.Match(urlStr) {
				continue
			}
			if quota > 0 && found >= quota {
				break outer
			}
			if !f.TryHit(urlStr) {
				continue
			}
			found++
			if !emitHit(ctx, hits, filefinder.CandidateHit{URL: urlStr, Filter: f}) {
				break outer
			}
			emitReport(ctx, reports, fmt.Sprintf(`<filefinder event="hit" url="%s" filter="%s" />`, xmlutil.Xmlify(urlStr), xmlutil.Xmlify(f.Glob)))
			break
		}
	}

	emitReport(ctx, reports, fmt.Sprintf(`<logreplay event="summary" numfoundhits="%d" />`, found))
}
