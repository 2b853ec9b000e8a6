package otheranalyzers

import (
	"archive/zip"
	"strings"
	"testing"
)

const sampleMetaXML = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-meta xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:meta="urn:oasis:names:tc:opendocument:xmlns:meta:1.0">
  <office:meta>
    <dc:title>Meeting Notes</dc:title>
    <dc:creator>John Smith</dc:creator>
    <meta:initial-creator>John Smith</meta:initial-creator>
    <meta:generator>LibreOffice/7.5.3.2</meta:generator>
    <meta:creation-date>2023-11-01T09:00:00</meta:creation-date>
    <dc:date>2023-11-02T10:15:00</dc:date>
  </office:meta>
</office:document-meta>`

func TestAnalyzeODF_MetaProperties(t *testing.T) {
	path := writeZip(t, "notes.odt", []zipEntry{
		{"mimetype", "application/vnd.oasis.opendocument.text"},
		{"meta.xml", sampleMetaXML},
	})

	got := AnalyzeODF(path)

	if !strings.Contains(got, "Meeting Notes") {
		t.Errorf("expected title in record, got %s", got)
	}
	if !strings.Contains(got, "John Smith") {
		t.Errorf("expected author in record, got %s", got)
	}
	if !strings.Contains(got, "opendocument.text") {
		t.Errorf("expected ODF text mimetype, got %s", got)
	}
}

func TestIsODF_RequiresMimetypeAsFirstEntry(t *testing.T) {
	path := writeZip(t, "x.odt", []zipEntry{
		{"meta.xml", sampleMetaXML},
		{"mimetype", "application/vnd.oasis.opendocument.text"},
	})
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	// mimetype was added second here, so it is not the archive's first
	// entry and must not be recognized as ODF.
	if _, ok := IsODF(&zr.Reader); ok {
		t.Error("expected IsODF to require mimetype as the literal first entry")
	}
}

func TestIsODF_FirstEntryMimetype(t *testing.T) {
	path := writeZip(t, "y.odt", []zipEntry{
		{"mimetype", "application/vnd.oasis.opendocument.spreadsheet"},
		{"content.xml", "<office/>"},
	})
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	mt, ok := IsODF(&zr.Reader)
	if !ok || mt != "application/vnd.oasis.opendocument.spreadsheet" {
		t.Errorf("IsODF = (%q, %v), want the spreadsheet mimetype and true", mt, ok)
	}
}
