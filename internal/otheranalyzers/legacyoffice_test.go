package otheranalyzers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnalyzeLegacyOffice_NotACompoundFileYieldsErrorRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-doc.doc")
	if err := os.WriteFile(path, []byte("not actually an OLE2 compound file"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := AnalyzeLegacyOffice(path)
	if !strings.Contains(got, "<error>") {
		t.Errorf("expected an <error> record for a malformed compound file, got %s", got)
	}
}

func TestAnalyzeLegacyOffice_MissingFileYieldsErrorRecord(t *testing.T) {
	got := AnalyzeLegacyOffice(filepath.Join(t.TempDir(), "does-not-exist.doc"))
	if !strings.Contains(got, "<error>") {
		t.Errorf("expected an <error> record for a missing file, got %s", got)
	}
}
