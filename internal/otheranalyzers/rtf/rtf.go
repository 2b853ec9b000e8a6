// Package rtf is the narrow façade SPEC_FULL.md §4.9 calls for: just
// enough of an RTF reader to pull Title/Author/Operator and the three
// \info timestamps (\creatim, \revtim, \printim) out of a document's
// \info group, grounded on rtf-qt's destination-per-control-word model
// (InfoPrintedTimeDestination.cpp et al. feed \yr/\mo/\dy/\hr/\min
// control words into a QDateTime and hand it to the matching
// set*DateTime callback on group close). Full RTF rendering — body
// text, formatting, embedded objects — is out of scope; this package
// only ever looks inside the \info group.
package rtf

import (
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Info is the subset of an RTF document's \info group this façade
// extracts.
type Info struct {
	Title    string
	Author   string
	Operator string
	Created  time.Time
	Revised  time.Time
	Printed  time.Time
}

// Parse reads all of r and extracts whatever \info fields are present.
// A document with no \info group at all yields a zero Info and no
// error — RTF files are not required to carry one.
func Parse(r io.Reader) (Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}
	text := string(data)

	info := Info{}
	infoGroup, ok := extractGroup(text, "info")
	if !ok {
		return info, nil
	}

	if title, ok := extractText(infoGroup, "title"); ok {
		info.Title = title
	}
	if author, ok := extractText(infoGroup, "author"); ok {
		info.Author = author
	}
	if operator, ok := extractText(infoGroup, "operator"); ok {
		info.Operator = operator
	}
	if group, ok := extractGroup(infoGroup, "creatim"); ok {
		info.Created = extractDateTime(group)
	}
	if group, ok := extractGroup(infoGroup, "revtim"); ok {
		info.Revised = extractDateTime(group)
	}
	if group, ok := extractGroup(infoGroup, "printim"); ok {
		info.Printed = extractDateTime(group)
	}

	return info, nil
}

// extractGroup finds the "{\controlWord ... }" group in text and
// returns its full contents (excluding the enclosing braces and the
// leading control word itself), tracking brace depth so nested
// sub-groups inside it are included whole. Literal escaped braces
// (\{, \}) are not distinguished from group delimiters, a known
// limitation acceptable for the well-behaved \info group this façade
// targets.
func extractGroup(text, controlWord string) (string, bool) {
	re := regexp.MustCompile(`\{\\` + controlWord + `\b`)
	loc := re.FindStringIndex(text)
	if loc == nil {
		return "", false
	}

	depth := 0
	start := loc[0]
	contentStart := loc[1]
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[contentStart:i], true
			}
		}
	}
	return text[contentStart:], true
}

// extractText returns the plain-text content of a "{\controlWord text}"
// destination group, stripped of any nested control words and RTF's
// backslash escapes.
func extractText(text, controlWord string) (string, bool) {
	group, ok := extractGroup(text, controlWord)
	if !ok {
		return "", false
	}
	return cleanRTFText(group), true
}

var controlWordRe = regexp.MustCompile(`\\[A-Za-z]+-?\d*\s?`)
var hexEscapeRe = regexp.MustCompile(`\\'[0-9a-fA-F]{2}`)

func cleanRTFText(s string) string {
	s = hexEscapeRe.ReplaceAllString(s, "")
	s = controlWordRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "{", "")
	s = strings.ReplaceAll(s, "}", "")
	return strings.TrimSpace(s)
}

var timeFieldRe = map[string]*regexp.Regexp{
	"yr":  regexp.MustCompile(`\\yr(\d+)`),
	"mo":  regexp.MustCompile(`\\mo(\d+)`),
	"dy":  regexp.MustCompile(`\\dy(\d+)`),
	"hr":  regexp.MustCompile(`\\hr(\d+)`),
	"min": regexp.MustCompile(`\\min(\d+)`),
}

// extractDateTime reads the \yr/\mo/\dy/\hr/\min control words out of
// one of \info's three time groups, the same fields
// InfoTimeDestination::dateTime() assembles in the original.
func extractDateTime(group string) time.Time {
	field := func(name string, def int) int {
		m := timeFieldRe[name].FindStringSubmatch(group)
		if m == nil {
			return def
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return def
		}
		return n
	}

	year := field("yr", 0)
	if year == 0 {
		return time.Time{}
	}
	month := field("mo", 1)
	day := field("dy", 1)
	hour := field("hr", 0)
	minute := field("min", 0)

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
}
