package otheranalyzers

import (
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"github.com/richardlehane/mscfb"
	"github.com/richardlehane/msoleps"
)

const summaryInformationStream = "\x05SummaryInformation"

// AnalyzeLegacyOffice reads the \x05SummaryInformation OLE property set
// out of a legacy .doc/.xls/.ppt compound file (SPEC_FULL.md §4.9's
// supplemented format), walking the CFB directory with mscfb and
// decoding the property set itself with msoleps, so the same
// Title/Author/Subject/Keywords/date fields OpenXML and ODF expose are
// available for the pre-XML Office formats too.
func AnalyzeLegacyOffice(path string) string {
	mimetype := "application/x-ole-compound-document"

	f, err := os.Open(path)
	if err != nil {
		return errorRecord(mimetype, err.Error())
	}
	defer f.Close()

	cfr, err := mscfb.New(f)
	if err != nil {
		return errorRecord(mimetype, err.Error())
	}

	h := Header{}
	found := false
	for entry, entryErr := cfr.Next(); entryErr == nil; entry, entryErr = cfr.Next() {
		if entry.Name != summaryInformationStream {
			continue
		}
		data, err := io.ReadAll(entry)
		if err != nil {
			continue
		}
		if fillHeaderFromSummaryInformation(&h, data) {
			found = true
		}
		break
	}
	if !found {
		h = Header{}
	}

	return record(mimetype, h)
}

// fillHeaderFromSummaryInformation decodes raw into an OLE property set
// via msoleps and maps the well-known SummaryInformation property names
// onto Header's fields. Property name casing/spelling is dictated by
// msoleps's own lookup table, not by this package, so matching is
// case-insensitive.
func fillHeaderFromSummaryInformation(h *Header, raw []byte) bool {
	doc, err := msoleps.NewFrom(bytes.NewReader(raw))
	if err != nil {
		return false
	}

	any := false
	for _, p := range doc.Property {
		name := strings.ToLower(p.Name)
		val := strings.TrimSpace(p.String())
		if val == "" {
			continue
		}
		switch name {
		case "title":
			h.Title, any = val, true
		case "subject":
			h.Subject, any = val, true
		case "author":
			h.Author, any = val, true
		case "keywords":
			h.Keywords, any = val, true
		case "create_dtm", "created", "createdate":
			if t, ok := parseSummaryInfoDate(val); ok {
				h.Created, any = t, true
			}
		case "lastsave_dtm", "lastsavedtm", "lastsaved":
			if t, ok := parseSummaryInfoDate(val); ok {
				h.Modified, any = t, true
			}
		case "appname", "application":
			h.Generator, any = val, true
		}
	}
	return any
}

func parseSummaryInfoDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
