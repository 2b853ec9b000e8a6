package discoverer

import (
	"context"
	"strings"
	"testing"
	"time"

	"docscan/internal/filefinder"
	"docscan/internal/logging"
)

const sampleLog = `<?xml version="1.0" encoding="UTF-8"?>
<log>
<logitem source="webcrawler" time="2026-01-01T00:00:00Z"><webcrawler event="start" base="http://example.test/" numexpectedhits="0" /></logitem>
<logitem source="webcrawler" time="2026-01-01T00:00:01Z"><filefinder event="hit" url="http://example.test/report.pdf" filter="*.pdf" /></logitem>
<logitem source="webcrawler" time="2026-01-01T00:00:02Z"><filefinder event="hit" url="http://example.test/notes.txt" filter="*.txt" /></logitem>
<logitem source="webcrawler" time="2026-01-01T00:00:03Z"><webcrawler event="summary" numfoundhits="2" numvisited="4" /></logitem>
</log>
`

func TestLogReplay_ReemitsMatchingHits(t *testing.T) {
	filter, err := filefinder.NewFilter("*.pdf")
	if err != nil {
		t.Fatal(err)
	}

	lr := NewLogReplay(strings.NewReader(sampleLog), []*filefinder.Filter{filter}, logging.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := lr.Start(ctx, 0)
	hits, _ := drainEvents(t, ctx, ev)

	if len(hits) != 1 {
		t.Fatalf("expected 1 hit matching the current *.pdf filter, got %d: %+v", len(hits), hits)
	}
	if hits[0].URL != "http://example.test/report.pdf" {
		t.Errorf("unexpected replayed URL %q", hits[0].URL)
	}
}

func TestLogReplay_NoNetworkNoMatchingFilter(t *testing.T) {
	filter, err := filefinder.NewFilter("*.docx")
	if err != nil {
		t.Fatal(err)
	}

	lr := NewLogReplay(strings.NewReader(sampleLog), []*filefinder.Filter{filter}, logging.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := lr.Start(ctx, 0)
	hits, _ := drainEvents(t, ctx, ev)

	if len(hits) != 0 {
		t.Errorf("expected no hits when no filter matches, got %+v", hits)
	}
}
