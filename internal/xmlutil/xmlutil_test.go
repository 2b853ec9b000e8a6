package xmlutil

import "testing"

func TestXmlifyRoundTrip(t *testing.T) {
	cases := []string{
		`hello & world`,
		`<tag attr="val">`,
		`nothing special`,
		``,
	}
	for _, c := range cases {
		escaped := Xmlify(c)
		if got := Dexmlify(escaped); got != c {
			t.Errorf("round trip failed: %q -> %q -> %q", c, escaped, got)
		}
	}
}

func TestXmlifyEscapesAllSpecialChars(t *testing.T) {
	got := Xmlify(`a&b<c>d"e'f`)
	want := `a&amp;b&lt;c&gt;d&quot;e&apos;f`
	if got != want {
		t.Errorf("Xmlify() = %q, want %q", got, want)
	}
}

func TestFormatMapSelfClosing(t *testing.T) {
	attrs := map[string]string{"type": "open", "name": "GPL"}
	got := FormatMap("license", attrs, []string{"type", "name"})
	want := "<license type=\"open\" name=\"GPL\" />\n"
	if got != want {
		t.Errorf("FormatMap() = %q, want %q", got, want)
	}
}

func TestFormatMapWithText(t *testing.T) {
	attrs := map[string]string{"": "Times New Roman"}
	got := FormatMap("name", attrs, nil)
	want := "<name>Times New Roman</name>\n"
	if got != want {
		t.Errorf("FormatMap() = %q, want %q", got, want)
	}
}

func TestFormatMapEmpty(t *testing.T) {
	if got := FormatMap("x", map[string]string{}, nil); got != "" {
		t.Errorf("FormatMap() on empty map = %q, want empty string", got)
	}
}
