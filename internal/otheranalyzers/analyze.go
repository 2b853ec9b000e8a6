package otheranalyzers

import (
	"archive/zip"
	"context"
	"os"
	"strings"

	"docscan/internal/filefinder"
)

// Analyze sniffs path's contents and filename, dispatches to whichever
// format analyzer in this package applies, and always returns a
// <fileanalysis> record — even for a file this package cannot make
// sense of at all, it returns an <error> record rather than nothing,
// the same "never fatal" contract pdfpipeline.Orchestrator.AnalyzeFile
// follows.
func Analyze(ctx context.Context, path string, filters []*filefinder.Filter, zipEntryAnalyzer EntryAnalyzer) string {
	head, err := readHead(path, 512)
	if err != nil {
		return errorRecord("application/octet-stream", err.Error())
	}

	switch Detect(head) {
	case KindLegacyOffice:
		return AnalyzeLegacyOffice(path)
	case KindJPEG:
		return AnalyzeJPEG(path)
	case KindZIPContainer:
		return analyzeZIP(ctx, path, filters, zipEntryAnalyzer)
	default:
		if strings.HasSuffix(strings.ToLower(path), ".rtf") {
			return AnalyzeRTF(path)
		}
		return errorRecord("application/octet-stream", "unrecognized file format")
	}
}

// analyzeZIP distinguishes OpenXML from ODF from a plain ZIP-of-documents
// container, all three sharing the ZIP magic bytes Detect alone cannot
// tell apart.
func analyzeZIP(ctx context.Context, path string, filters []*filefinder.Filter, zipEntryAnalyzer EntryAnalyzer) string {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return errorRecord("application/zip", err.Error())
	}
	_, odf := IsODF(&zr.Reader)
	isOpenXML := IsOpenXML(&zr.Reader)
	zr.Close()

	switch {
	case odf:
		return AnalyzeODF(path)
	case isOpenXML:
		return AnalyzeOpenXML(path)
	case zipEntryAnalyzer != nil:
		return AnalyzeZIPOfDocuments(ctx, path, filters, zipEntryAnalyzer)
	default:
		return errorRecord("application/zip", "ZIP container with no entry analyzer configured")
	}
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.Read(buf)
	if err != nil && read == 0 {
		return nil, err
	}
	return buf[:read], nil
}
