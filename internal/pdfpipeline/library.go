package pdfpipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"docscan/internal/classify"
	"docscan/internal/pdflib"
	"docscan/internal/xmlutil"
)

// fontNamePrefixRe strips a PDF subset-tag prefix before classification,
// looser than classify's own six-letter pdfSubsetTag: the original removes
// any run of uppercase letters followed by "+", not just exactly six, so a
// font's reported <name> already shows the desubsetted form.
var fontNamePrefixRe = regexp.MustCompile(`^[A-Z]+\+`)

// microsoftToolRegexp recognizes Microsoft Office's "Microsoft Word - Foo"
// style Creator/Producer strings: group 1 is the product ("Word"), group 2
// is whatever follows the " - " or " " separator (usually the document's
// original title, useful for cleaning up a <title> that Word has prefixed
// with its own name).
var microsoftToolRegexp = regexp.MustCompile(`^Microsoft\s(.+\S) [ -][ ]?(\S.*)$`)

var whitespaceRunRe = regexp.MustCompile(`\s+`)

func yesno(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// simplified mirrors QString::simplified(): collapse runs of whitespace to
// a single space and trim the ends.
func simplified(s string) string {
	return strings.TrimSpace(whitespaceRunRe.ReplaceAllString(s, " "))
}

// guessToolText decides which of a document's two free-text tool fields
// to classify: altToolString (normally Creator) wins outright if it looks
// like a "Microsoft Word - <title>" string, since in that case the real
// producing application is the Microsoft match, not whatever Producer
// says; otherwise the non-empty of toolString (normally Producer) or
// altToolString is used verbatim.
func guessToolText(toolString, altToolString string) (classifyText, titleRemainder string) {
	if m := microsoftToolRegexp.FindStringSubmatch(altToolString); m != nil {
		return m[0], m[2]
	}
	if toolString != "" {
		return toolString, ""
	}
	return altToolString, ""
}

// parsePDFDate parses a PDF date string (ISO 32000-1 §7.9.4),
// "D:YYYYMMDDHHmmSSOHH'mm'", tolerating a missing "D:" prefix and any
// truncation after the year.
func parsePDFDate(s string) (time.Time, bool) {
	s = strings.TrimPrefix(s, "D:")
	if len(s) < 4 {
		return time.Time{}, false
	}
	digits := s
	for i, r := range s {
		if r < '0' || r > '9' {
			digits = s[:i]
			break
		}
	}
	if len(digits) < 4 {
		return time.Time{}, false
	}
	if len(digits) > 14 {
		digits = digits[:14]
	}
	for len(digits) < 14 {
		digits += "0"
	}
	// A zeroed-out month/day (e.g. a year-only date padded above) is not a
	// valid calendar date; fall back to January 1st rather than reject it.
	if digits[4:6] == "00" {
		digits = digits[:4] + "01" + digits[6:]
	}
	if digits[6:8] == "00" {
		digits = digits[:6] + "01" + digits[8:]
	}
	t, err := time.Parse("20060102150405", digits)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// formatDateXML renders a parsed date the way the original's
// formatDate(QDate, base) does: a single <date> element carrying epoch
// seconds and the broken-down year/month/day as attributes, base
// distinguishing creation from modification, and the ISO-8601 rendering
// (Qt::ISODate in the original) as the element's text content.
func formatDateXML(t time.Time, base string) string {
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

func between(v, lo, hi int) bool { return v >= lo && v <= hi }

// evaluatePaperSize classifies a page by its millimeter dimensions against
// A4/Letter/Legal, in either orientation, with the same tolerance bands as
// FileAnalyzerAbstract::evaluatePaperSize.
func evaluatePaperSize(mmw, mmh int) (name, orientation string) {
	switch {
	case between(mmw, 208, 212) && between(mmh, 295, 299):
		return "A4", "portrait"
	case between(mmh, 208, 212) && between(mmw, 295, 299):
		return "A4", "landscape"
	case between(mmw, 214, 218) && between(mmh, 277, 281):
		return "letter", "portrait"
	case between(mmh, 214, 218) && between(mmw, 277, 281):
		return "letter", "landscape"
	case between(mmw, 214, 218) && between(mmh, 254, 258):
		return "legal", "portrait"
	case between(mmh, 214, 218) && between(mmw, 254, 258):
		return "legal", "landscape"
	default:
		return "", ""
	}
}

func evaluatePaperSizeXML(widthPt, heightPt float64) string {
	mmw := int(widthPt / 72.0 * 25.4)
	mmh := int(heightPt / 72.0 * 25.4)
	name, orientation := evaluatePaperSize(mmw, mmh)

	attrs := map[string]string{"height": strconv.Itoa(mmh), "width": strconv.Itoa(mmw)}
	order := []string{"height", "width"}
	if name != "" {
		attrs["name"] = name
		order = append(order, "name")
	}
	if orientation != "" {
		attrs["orientation"] = orientation
		order = append(order, "orientation")
	}
	return xmlutil.FormatMap("papersize", attrs, order)
}

// fileformatXML emits the <fileformat> element: PDF version and whether
// the library had to go through the decryption path to read anything at
// all. The original distinguishes isLocked() from isEncrypted(); this port
// treats them as the same concept, since pdflib.Document only exposes one.
func fileformatXML(doc pdflib.Document) string {
	attrs := map[string]string{
		"version": doc.Version(),
		"locked":  yesno(doc.IsEncrypted()),
	}
	order := []string{"version", "locked"}
	return xmlutil.FormatMap("fileformat", attrs, order)
}

// toolsXML emits the <tools> element wrapping a single classified <tool>,
// chosen by guessToolText from the document's Producer (primary) and
// Creator (fallback/override) info fields.
func toolsXML(doc pdflib.Document) string {
	text, _ := guessToolText(doc.Info("Producer"), doc.Info("Creator"))
	if text == "" {
		return "<tools>\n</tools>\n"
	}
	tf := classify.ClassifyTool(text)
	attrs, order := tf.ToXMLAttrs()

	var sb strings.Builder
	sb.WriteString("<tools>\n")
	sb.WriteString(xmlutil.FormatMap("tool", attrs, order))
	sb.WriteString("</tools>\n")
	return sb.String()
}

// fontsXML emits the <fonts> element: one <font> per embedded/referenced
// font the library found, each wrapping a classify.FontFingerprint.
func fontsXML(doc pdflib.Document) string {
	fonts := doc.Fonts()
	if len(fonts) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("<fonts>\n")
	for _, f := range fonts {
		name := fontNamePrefixRe.ReplaceAllString(f.Name, "")
		ff := classify.ClassifyFont(name, f.Type)

		sb.WriteString("<font embedded=\"")
		sb.WriteString(yesno(f.Embedded))
		sb.WriteString("\" subset=\"")
		sb.WriteString(yesno(f.Subset))
		sb.WriteString("\">\n")
		sb.WriteString(ff.ToXMLFragment())
		sb.WriteString("</font>\n")
	}
	sb.WriteString("</fonts>\n")
	return sb.String()
}

// headerAndBodyXML emits the document-info-derived <header> element and,
// when text extraction is enabled and the library produced any plain
// text, a sibling <body> element. Language guessing only ever runs
// against that plain text, never against the external validators' output.
func (o *Orchestrator) headerAndBodyXML(ctx context.Context, doc pdflib.Document) (header, body string) {
	var sb strings.Builder
	sb.WriteString("<header>\n")

	if d, ok := parsePDFDate(doc.Info("CreationDate")); ok {
		sb.WriteString(formatDateXML(d, "creation"))
	}
	if d, ok := parsePDFDate(doc.Info("ModDate")); ok {
		sb.WriteString(formatDateXML(d, "modification"))
	}

	_, titleRemainder := guessToolText(doc.Info("Producer"), doc.Info("Creator"))
	title := simplified(doc.Info("Title"))
	if title == "" {
		title = simplified(titleRemainder)
	}
	if title != "" {
		sb.WriteString(xmlutil.FormatMap("title", map[string]string{"": title}, []string{""}))
	}
	if author := simplified(doc.Info("Author")); author != "" {
		sb.WriteString(xmlutil.FormatMap("author", map[string]string{"": author}, []string{""}))
	}
	if subject := simplified(doc.Info("Subject")); subject != "" {
		sb.WriteString(xmlutil.FormatMap("subject", map[string]string{"": subject}, []string{""}))
	}
	if keywords := simplified(doc.Info("Keywords")); keywords != "" {
		sb.WriteString(xmlutil.FormatMap("keyword", map[string]string{"": keywords}, []string{""}))
	}

	sb.WriteString(xmlutil.FormatMap("num-pages", map[string]string{"": strconv.Itoa(doc.NumPages())}, []string{""}))
	if w, h, ok := doc.FirstPageSizePt(); ok {
		sb.WriteString(evaluatePaperSizeXML(w, h))
	}

	if o.textLevel != TextExtractionNone {
		text := doc.PlainText()
		if text != "" {
			if o.languager != nil {
				if lang, err := o.languager.Guess(ctx, text); err == nil && lang != "" {
					sb.WriteString(xmlutil.FormatMap("language", map[string]string{"origin": "aspell", "": lang}, []string{"origin"}))
				}
			}
			if o.textLevel == TextExtractionFullText {
				body = fmt.Sprintf("<body length=\"%d\">%s</body>\n", len(text), xmlutil.Xmlify(text))
			} else {
				body = fmt.Sprintf("<body length=\"%d\" />\n", len(text))
			}
		}
	}

	sb.WriteString("</header>\n")
	return sb.String(), body
}
