package pdflib

import "testing"

func TestFake_SatisfiesDocument(t *testing.T) {
	f := &Fake{
		VersionValue:   "1.7",
		EncryptedValue: true,
		NumPagesValue:  3,
		InfoFields:     map[string]string{"Title": "Report", "Author": "Jane Doe"},
		FontsValue:     []FontInfo{{Name: "ABCDEF+Arial", Type: "TrueType", Embedded: true, Subset: true}},
		PageWidthPt:    612,
		PageHeightPt:   792,
		HasPageSize:    true,
		PlainTextValue: "hello world",
	}

	var doc Document = f
	if doc.Version() != "1.7" {
		t.Errorf("Version() = %q, want 1.7", doc.Version())
	}
	if !doc.IsEncrypted() {
		t.Error("expected IsEncrypted() true")
	}
	if doc.NumPages() != 3 {
		t.Errorf("NumPages() = %d, want 3", doc.NumPages())
	}
	if doc.Info("Title") != "Report" {
		t.Errorf("Info(Title) = %q, want Report", doc.Info("Title"))
	}
	if doc.Info("Subject") != "" {
		t.Errorf("Info(Subject) = %q, want empty for an unset field", doc.Info("Subject"))
	}
	if len(doc.Fonts()) != 1 || doc.Fonts()[0].Name != "ABCDEF+Arial" {
		t.Errorf("Fonts() = %+v, want one ABCDEF+Arial entry", doc.Fonts())
	}
	w, h, ok := doc.FirstPageSizePt()
	if !ok || w != 612 || h != 792 {
		t.Errorf("FirstPageSizePt() = (%v,%v,%v), want (612,792,true)", w, h, ok)
	}
	if doc.PlainText() != "hello world" {
		t.Errorf("PlainText() = %q", doc.PlainText())
	}
	if err := doc.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestFake_NilInfoFields(t *testing.T) {
	f := &Fake{}
	if f.Info("Title") != "" {
		t.Errorf("Info(Title) on zero-value Fake = %q, want empty", f.Info("Title"))
	}
}

func TestSubsetTagRe(t *testing.T) {
	cases := map[string]bool{
		"ABCDEF+Arial":   true,
		"Arial":          false,
		"ABCDE+Arial":    false, // five letters, not six
		"ABCDEFG+Arial":  false, // seven letters, not six
	}
	for name, want := range cases {
		if got := subsetTagRe.MatchString(name); got != want {
			t.Errorf("subsetTagRe.MatchString(%q) = %v, want %v", name, got, want)
		}
	}
}
