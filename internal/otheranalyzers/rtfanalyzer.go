package otheranalyzers

import (
	"os"

	"docscan/internal/otheranalyzers/rtf"
)

// AnalyzeRTF wraps the rtf façade's \info extraction in this package's
// shared <fileanalysis> record shape.
func AnalyzeRTF(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return errorRecord("application/rtf", err.Error())
	}
	defer f.Close()

	info, err := rtf.Parse(f)
	if err != nil {
		return errorRecord("application/rtf", err.Error())
	}

	author := info.Author
	if author == "" {
		author = info.Operator
	}
	h := Header{
		Title:    info.Title,
		Author:   author,
		Created:  info.Created,
		Modified: info.Revised,
	}
	return record("application/rtf", h)
}
