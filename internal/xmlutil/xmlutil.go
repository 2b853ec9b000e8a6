// Package xmlutil provides the small set of XML text helpers shared by
// every report-emitting component: escaping raw text for inclusion inside
// an XML fragment, the inverse for re-reading a previous log, and rendering
// a string-keyed map as a self-closing or text-bearing XML element the way
// the PDF and font classifiers do.
package xmlutil

import "strings"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

var unescaper = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&apos;", "'",
)

// Xmlify escapes text for safe inclusion as XML character data or an
// attribute value.
func Xmlify(text string) string {
	return escaper.Replace(text)
}

// Dexmlify reverses Xmlify, used when re-parsing a previous run's log
// (LogReplay discoverer/downloader).
func Dexmlify(text string) string {
	return unescaper.Replace(text)
}

// FormatMap renders a string-keyed attribute map as an XML element named
// tag. The empty key holds the element's text content; every other key
// becomes an attribute. Mirrors DocScan::formatMap from the original
// implementation, which the ToolFingerprintClassifier and
// FontFingerprintClassifier both depend on for their fixed attribute order.
func FormatMap(tag string, attrs map[string]string, order []string) string {
	if len(attrs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(tag)
	for _, key := range order {
		if key == "" {
			continue
		}
		val, ok := attrs[key]
		if !ok || val == "" {
			continue
		}
		sb.WriteByte(' ')
		sb.WriteString(key)
		sb.WriteString("=\"")
		sb.WriteString(Xmlify(val))
		sb.WriteByte('"')
	}

	text, hasText := attrs[""]
	if !hasText || text == "" {
		sb.WriteString(" />\n")
		return sb.String()
	}

	sb.WriteByte('>')
	sb.WriteString(Xmlify(text))
	sb.WriteString("</")
	sb.WriteString(tag)
	sb.WriteString(">\n")
	return sb.String()
}
