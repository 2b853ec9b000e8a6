package pipeline

import (
	"context"
	"os"
	"strings"

	"docscan/internal/filefinder"
	"docscan/internal/otheranalyzers"
	"docscan/internal/pdfpipeline"
)

// fileAnalyzer dispatches a downloaded (or ZIP-extracted) file to the PDF
// forensics orchestrator or the other-format analyzers depending on what
// its own bytes say it is — the same "%PDF-1." sniff WebCrawler uses to
// classify a response regardless of its URL — and, when that sniff does
// not match, on whether the name it arrived under ends in ".pdf". It
// implements otheranalyzers.EntryAnalyzer so a ZIP-of-documents container
// recurses back through this same dispatch for each matching entry,
// including a ZIP nested inside a ZIP.
type fileAnalyzer struct {
	orchestrator *pdfpipeline.Orchestrator
	filters      []*filefinder.Filter
}

func newFileAnalyzer(orchestrator *pdfpipeline.Orchestrator, filters []*filefinder.Filter) *fileAnalyzer {
	return &fileAnalyzer{orchestrator: orchestrator, filters: filters}
}

// AnalyzeEntry satisfies otheranalyzers.EntryAnalyzer for ZIP-of-documents
// recursion; name is only used for the PDF-extension fast path below, the
// same way AnalyzeZIPOfDocuments's caller already matched it against a
// filter before extracting it.
func (a *fileAnalyzer) AnalyzeEntry(ctx context.Context, path, name string) string {
	return a.analyze(ctx, path, name)
}

// analyze is the engine's single per-file entry point: sniff, then
// dispatch. tag is whatever name the caller has on hand for the file —
// a download's source URL, or a ZIP entry's name — used only as the
// fallback: a tag ending in ".pdf" sends the file to the orchestrator
// even when its leading bytes do not carry the PDF signature.
func (a *fileAnalyzer) analyze(ctx context.Context, path, tag string) string {
	if a.orchestrator != nil && (looksLikePDFFile(path) || strings.HasSuffix(strings.ToLower(tag), ".pdf")) {
		return a.orchestrator.AnalyzeFile(ctx, path)
	}
	return otheranalyzers.Analyze(ctx, path, a.filters, a)
}

func looksLikePDFFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, len(pdfMagic))
	n, _ := f.Read(head)
	return looksLikePDF(head[:n])
}
