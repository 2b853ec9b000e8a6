package otheranalyzers

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"docscan/internal/filefinder"
	"docscan/internal/xmlutil"
)

// EntryAnalyzer is the narrow seam AnalyzeZIPOfDocuments calls back
// into for each matching archive member — ordinarily
// internal/pipeline's per-format dispatcher, kept as an interface here
// so this package never has to import the pipeline (or pdfpipeline)
// packages just to recurse into a ZIP.
type EntryAnalyzer interface {
	AnalyzeEntry(ctx context.Context, path, name string) string
}

// AnalyzeZIPOfDocuments treats path as a plain archive (one already
// ruled out as OpenXML or ODF by IsOpenXML/IsODF) and recurses into
// every member whose name matches one of filters, per SPEC_FULL.md
// §4.9. Each matching member is extracted to a temporary file so
// analyzer — which expects a filesystem path, the same contract every
// other analyzer in this package and pdfpipeline.Orchestrator use — can
// run against it unmodified.
func AnalyzeZIPOfDocuments(ctx context.Context, path string, filters []*filefinder.Filter, analyzer EntryAnalyzer) string {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return errorRecord("application/zip", err.Error())
	}
	defer zr.Close()

	tmpDir, err := os.MkdirTemp("", "docscan-zipdocs-*")
	if err != nil {
		return errorRecord("application/zip", err.Error())
	}
	defer os.RemoveAll(tmpDir)

	var sb strings.Builder
	sb.WriteString("<fileanalysis>\n<meta>\n")
	sb.WriteString(fileformatXML("application/zip"))
	sb.WriteString("<container>\n")

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !matchesAny(filters, f.Name) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		extracted, err := extractEntry(tmpDir, f)
		if err != nil {
			sb.WriteString(fmt.Sprintf("<entry name=\"%s\"><error>%s</error></entry>\n", xmlutil.Xmlify(f.Name), xmlutil.Xmlify(err.Error())))
			continue
		}

		inner := analyzer.AnalyzeEntry(ctx, extracted, f.Name)
		sb.WriteString(fmt.Sprintf("<entry name=\"%s\">\n%s</entry>\n", xmlutil.Xmlify(f.Name), inner))
	}

	sb.WriteString("</container>\n")
	sb.WriteString("</meta>\n</fileanalysis>\n")
	return sb.String()
}

func matchesAny(filters []*filefinder.Filter, name string) bool {
	for _, f := range filters {
		if f.Match(name) {
			return true
		}
	}
	return false
}

func extractEntry(dir string, f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dest := filepath.Join(dir, filepath.Base(f.Name))
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return "", err
	}
	return dest, nil
}
