// Package otheranalyzers implements the non-PDF format family spec.md
// §2 lists as "OtherAnalyzers": OpenXML, ODF, RTF, JPEG, ZIP-of-documents,
// and (as a supplement — see DESIGN.md) legacy compound-file Office
// documents. Every analyzer here emits a <fileanalysis><meta> record that
// opens with the same <fileformat> element. The document formats (OpenXML,
// ODF, RTF, legacy Office) follow it with the <tools>/<header> pair the PDF
// orchestrator also emits; JPEG follows it with <dimensions> and <header>
// but no <tools>, and ZIP-of-documents with a <container> of per-entry
// records.
package otheranalyzers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"docscan/internal/classify"
	"docscan/internal/xmlutil"
)

// Header is the metadata every format analyzer in this package extracts,
// in whatever subset a given container format actually exposes.
type Header struct {
	Title       string
	Author      string
	Subject     string
	Keywords    string
	Generator   string // Application (OpenXML) / meta:generator (ODF) / tool signature (legacy Office)
	Created     time.Time
	Modified    time.Time
	NumPages    int
	Language    string
}

// dateXML renders a parsed date the same way pdfpipeline's
// formatDateXML does: a <date> element carrying epoch seconds, base and
// the broken-down year/month/day, with the RFC 3339 rendering as its
// text, so every format family's <header> dates share one shape.
func dateXML(t time.Time, base string) string {
	if t.IsZero() {
		return ""
	}
	attrs := map[string]string{
		"epoch": strconv.FormatInt(t.Unix(), 10),
		"base":  base,
		"year":  strconv.Itoa(t.Year()),
		"month": strconv.Itoa(int(t.Month())),
		"day":   strconv.Itoa(t.Day()),
		"":      t.Format(time.RFC3339),
	}
	order := []string{"epoch", "base", "year", "month", "day"}
	return xmlutil.FormatMap("date", attrs, order)
}

// ToXML renders the <header> element for h. The Generator field is not
// part of it; record passes Generator to toolXML, which classifies it
// the way the PDF orchestrator classifies Producer/Creator.
func (h Header) ToXML() string {
	var sb strings.Builder
	sb.WriteString("<header>\n")

	sb.WriteString(dateXML(h.Created, "creation"))
	sb.WriteString(dateXML(h.Modified, "modification"))

	if h.Title != "" {
		sb.WriteString(xmlutil.FormatMap("title", map[string]string{"": h.Title}, []string{""}))
	}
	if h.Author != "" {
		sb.WriteString(xmlutil.FormatMap("author", map[string]string{"": h.Author}, []string{""}))
	}
	if h.Subject != "" {
		sb.WriteString(xmlutil.FormatMap("subject", map[string]string{"": h.Subject}, []string{""}))
	}
	if h.Keywords != "" {
		sb.WriteString(xmlutil.FormatMap("keyword", map[string]string{"": h.Keywords}, []string{""}))
	}
	if h.Language != "" {
		sb.WriteString(xmlutil.FormatMap("language", map[string]string{"": h.Language, "origin": "aspell"}, []string{"origin", ""}))
	}
	if h.NumPages > 0 {
		sb.WriteString(fmt.Sprintf("<num-pages>%d</num-pages>\n", h.NumPages))
	}

	sb.WriteString("</header>\n")
	return sb.String()
}

// toolXML classifies generator (an application/producer name string) and
// renders the <tools> element wrapping it, or an empty <tools> when
// generator is blank.
func toolXML(generator string) string {
	if generator == "" {
		return "<tools>\n</tools>\n"
	}
	tf := classify.ClassifyTool(generator)
	attrs, order := tf.ToXMLAttrs()

	var sb strings.Builder
	sb.WriteString("<tools>\n")
	sb.WriteString(xmlutil.FormatMap("tool", attrs, order))
	sb.WriteString("</tools>\n")
	return sb.String()
}

// fileformatXML emits the <fileformat> element every analyzer's record
// opens with, naming the detected mimetype.
func fileformatXML(mimetype string) string {
	return xmlutil.FormatMap("fileformat", map[string]string{"mimetype": mimetype}, []string{"mimetype"})
}

// record assembles the fixed <fileanalysis><meta>...</meta></fileanalysis>
// skeleton every format family in this package shares.
func record(mimetype string, header Header) string {
	var sb strings.Builder
	sb.WriteString("<fileanalysis>\n<meta>\n")
	sb.WriteString(fileformatXML(mimetype))
	sb.WriteString(toolXML(header.Generator))
	sb.WriteString(header.ToXML())
	sb.WriteString("</meta>\n</fileanalysis>\n")
	return sb.String()
}

// errorRecord is the uniform shape every analyzer falls back to when it
// cannot make sense of a file at all — still a <fileanalysis> record,
// never a bare Go error surfaced to the pipeline.
func errorRecord(mimetype, message string) string {
	return fmt.Sprintf("<fileanalysis>\n<meta>\n%s<error>%s</error>\n</meta>\n</fileanalysis>\n",
		fileformatXML(mimetype), xmlutil.Xmlify(message))
}
