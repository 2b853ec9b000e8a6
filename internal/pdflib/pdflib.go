// Package pdflib is the narrow façade DocScan's PDF forensics orchestrator
// consumes instead of touching a PDF parsing library directly (spec.md §1
// explicitly excludes "the PDF parsing library itself" from scope). The
// Document interface exposes exactly the handful of properties the
// orchestrator's library-based inspection stage needs before it ever
// shells out to an external validator: version, lock/encryption state,
// document-info fields, page count, and embedded font names.
package pdflib

import (
	"fmt"
	"regexp"

	"seehuhn.de/go/pdf"
)

// FontInfo is one entry of a PDF's embedded/referenced font list, the
// input to classify.ClassifyFont and the <font> element's attributes.
type FontInfo struct {
	Name     string
	Type     string // PDF Subtype: "Type0", "Type1", "TrueType", "Type3", ...
	Embedded bool
	Subset   bool
	Filename string
}

var subsetTagRe = regexp.MustCompile(`^[A-Z]{6}\+`)

// Document is the read-only view of a PDF file the orchestrator needs.
// Real PDFs are opened through Open; tests substitute a fake
// implementation so orchestrator fusion logic can be exercised without a
// real PDF library or file on disk.
type Document interface {
	Version() string
	IsEncrypted() bool
	NumPages() int
	Info(field string) string // "Title", "Author", "Subject", "Keywords", "Creator", "Producer"
	Fonts() []FontInfo
	// FirstPageSizePt returns the first page's MediaBox width/height in PDF
	// points (1/72 inch); ok is false if the document has no pages or the
	// box could not be read.
	FirstPageSizePt() (widthPt, heightPt float64, ok bool)
	// PlainText is a best-effort text extraction of the document body,
	// used only to drive the language guess and the <body length> report.
	// Real documents may legitimately return "" — DocScan's contract with
	// the PDF library is read-only inspection, not a text-layout engine.
	PlainText() string
	Close() error
}

type document struct {
	reader *pdf.Reader
}

// Open opens the PDF at path and returns a Document backed by
// seehuhn.de/go/pdf. Callers must call Close when done.
func Open(path string) (Document, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdflib: opening %s: %w", path, err)
	}
	return &document{reader: r}, nil
}

func (d *document) Version() string {
	return d.reader.PDFVersion()
}

func (d *document) IsEncrypted() bool {
	return d.reader.Trailer["Encrypt"] != nil
}

func (d *document) NumPages() int {
	pagesDict, err := d.reader.GetDict(d.reader.Catalog.Pages)
	if err != nil {
		return 0
	}
	count, err := d.reader.GetInt(pagesDict["Count"])
	if err != nil {
		return 0
	}
	return int(count)
}

func (d *document) Info(field string) string {
	infoRef, ok := d.reader.Trailer["Info"]
	if !ok {
		return ""
	}
	infoDict, err := d.reader.GetDict(infoRef)
	if err != nil {
		return ""
	}
	val, ok := infoDict[pdf.Name(field)]
	if !ok {
		return ""
	}
	str, err := d.reader.GetString(val)
	if err != nil {
		return ""
	}
	return string(str)
}

func (d *document) Fonts() []FontInfo {
	var fonts []FontInfo
	seen := map[string]bool{}

	pagesDict, err := d.reader.GetDict(d.reader.Catalog.Pages)
	if err != nil {
		return fonts
	}
	kids, err := d.reader.GetArray(pagesDict["Kids"])
	if err != nil {
		return fonts
	}
	for _, kidRef := range kids {
		page, err := d.reader.GetDict(kidRef)
		if err != nil {
			continue
		}
		resources, err := d.reader.GetDict(page["Resources"])
		if err != nil {
			continue
		}
		fontDicts, err := d.reader.GetDict(resources["Font"])
		if err != nil {
			continue
		}
		for _, fontRef := range fontDicts {
			fontDict, err := d.reader.GetDict(fontRef)
			if err != nil {
				continue
			}
			base, ok := fontDict["BaseFont"]
			if !ok {
				continue
			}
			name, ok := base.(pdf.Name)
			if !ok || seen[string(name)] {
				continue
			}
			seen[string(name)] = true

			info := FontInfo{
				Name:   string(name),
				Subset: subsetTagRe.MatchString(string(name)),
			}
			if subtype, ok := fontDict["Subtype"].(pdf.Name); ok {
				info.Type = string(subtype)
			}
			if descRef, ok := fontDict["FontDescriptor"]; ok {
				if desc, err := d.reader.GetDict(descRef); err == nil {
					_, hasFile := desc["FontFile"]
					_, hasFile2 := desc["FontFile2"]
					_, hasFile3 := desc["FontFile3"]
					info.Embedded = hasFile || hasFile2 || hasFile3
				}
			}
			fonts = append(fonts, info)
		}
	}
	return fonts
}

// FirstPageSizePt reads the MediaBox of the first page reached from the
// document's page tree. Inherited MediaBoxes (declared on an ancestor
// Pages node rather than the leaf page) are not resolved; callers see
// ok == false in that case and skip paper-size reporting.
func (d *document) FirstPageSizePt() (widthPt, heightPt float64, ok bool) {
	pagesDict, err := d.reader.GetDict(d.reader.Catalog.Pages)
	if err != nil {
		return 0, 0, false
	}
	kids, err := d.reader.GetArray(pagesDict["Kids"])
	if err != nil || len(kids) == 0 {
		return 0, 0, false
	}
	page, err := d.reader.GetDict(kids[0])
	if err != nil {
		return 0, 0, false
	}
	box, err := d.reader.GetArray(page["MediaBox"])
	if err != nil || len(box) != 4 {
		return 0, 0, false
	}
	coords := make([]float64, 4)
	for i, v := range box {
		n, err := d.reader.GetNumber(v)
		if err != nil {
			return 0, 0, false
		}
		coords[i] = float64(n)
	}
	return coords[2] - coords[0], coords[3] - coords[1], true
}

// PlainText always returns "" for the real implementation: layout-aware
// text extraction belongs to the PDF library, not to this façade, and
// seehuhn.de/go/pdf was not retrieved with a text-extraction entry point
// to wrap. LanguageGuesser and the <body> length report both treat an
// empty string as "no text available" rather than an error.
func (d *document) PlainText() string {
	return ""
}

func (d *document) Close() error {
	return d.reader.Close()
}
