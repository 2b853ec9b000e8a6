package otheranalyzers

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"docscan/internal/filefinder"
)

type recordingAnalyzer struct {
	seen []string
}

func (r *recordingAnalyzer) AnalyzeEntry(ctx context.Context, path, name string) string {
	r.seen = append(r.seen, name)
	return fmt.Sprintf("<fileanalysis><meta><fileformat mimetype=\"test/entry\" /></meta></fileanalysis>\n")
}

func TestAnalyzeZIPOfDocuments_RecursesMatchingEntries(t *testing.T) {
	path := writeZip(t, "bundle.zip", []zipEntry{
		{"report.pdf", "%PDF-1.4 fake"},
		{"notes.txt", "not a match"},
		{"scan.pdf", "%PDF-1.4 fake too"},
	})

	pdfFilter, err := filefinder.NewFilter("*.pdf")
	if err != nil {
		t.Fatal(err)
	}

	analyzer := &recordingAnalyzer{}
	got := AnalyzeZIPOfDocuments(context.Background(), path, []*filefinder.Filter{pdfFilter}, analyzer)

	if len(analyzer.seen) != 2 {
		t.Fatalf("expected 2 matching entries recursed into, got %d: %v", len(analyzer.seen), analyzer.seen)
	}
	if !strings.Contains(got, "report.pdf") || !strings.Contains(got, "scan.pdf") {
		t.Errorf("expected both pdf entry names in the container record, got %s", got)
	}
	if strings.Contains(got, "notes.txt") {
		t.Errorf("notes.txt should not have matched the *.pdf filter, got %s", got)
	}
}
