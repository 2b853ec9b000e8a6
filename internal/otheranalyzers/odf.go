package otheranalyzers

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"
)

// odfMimetypes maps an ODF package's first ZIP entry ("mimetype",
// always stored uncompressed per the ODF spec) to the human-readable
// fileformat string this package's records use.
var odfMimetypes = map[string]string{
	"application/vnd.oasis.opendocument.text":         "application/vnd.oasis.opendocument.text",
	"application/vnd.oasis.opendocument.spreadsheet":  "application/vnd.oasis.opendocument.spreadsheet",
	"application/vnd.oasis.opendocument.presentation": "application/vnd.oasis.opendocument.presentation",
}

// IsODF reports whether a ZIP archive's first entry is an ODF
// "mimetype" marker, the exact-subtype signal OpenXML packages lack.
func IsODF(zr *zip.Reader) (mimetype string, ok bool) {
	if len(zr.File) == 0 || zr.File[0].Name != "mimetype" {
		return "", false
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		return "", false
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", false
	}
	mt := strings.TrimSpace(string(data))
	if _, known := odfMimetypes[mt]; !known {
		return "", false
	}
	return mt, true
}

// AnalyzeODF reads meta.xml out of a .odt/.ods/.odp ZIP container.
// meta:generator is fed through ToolFingerprintClassifier the same way
// OpenXML's app.xml "Application" field is.
func AnalyzeODF(path string) string {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return errorRecord("application/vnd.oasis.opendocument", err.Error())
	}
	defer zr.Close()

	mimetype, ok := IsODF(&zr.Reader)
	if !ok {
		mimetype = "application/vnd.oasis.opendocument"
	}

	h := Header{}
	for _, f := range zr.File {
		if f.Name == "meta.xml" {
			fillHeaderFromMetaXML(&h, f)
			break
		}
	}
	return record(mimetype, h)
}

func fillHeaderFromMetaXML(h *Header, f *zip.File) {
	rc, err := f.Open()
	if err != nil {
		return
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "title", "creator", "initial-creator", "subject", "keyword", "generator", "creation-date", "date":
		default:
			// Step into containers such as office:meta instead of
			// decoding them whole, so their children are still visited.
			continue
		}
		var text string
		dec.DecodeElement(&text, &start)
		switch start.Name.Local {
		case "title":
			h.Title = text
		case "creator", "initial-creator":
			if h.Author == "" {
				h.Author = text
			}
		case "subject":
			h.Subject = text
		case "keyword":
			if h.Keywords == "" {
				h.Keywords = text
			} else {
				h.Keywords = h.Keywords + ", " + text
			}
		case "generator":
			h.Generator = text
		case "creation-date":
			h.Created = parseISO8601(text)
		case "date":
			h.Modified = parseISO8601(text)
		}
	}
}
