package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New("WARN", false, &buf)
	l.Info("should not appear", nil)
	l.Warn("should appear", nil)

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("INFO message leaked through a WARN-level logger: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("WARN message missing from output: %q", out)
	}
}

func TestTextFormatIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New("TRACE", false, &buf)
	l.Info("fetched", Fields{"url": "http://example.com"})

	out := buf.String()
	if !strings.Contains(out, "[INFO]") || !strings.Contains(out, "url=http://example.com") {
		t.Errorf("unexpected text format: %q", out)
	}
}

func TestJSONFormatIsValid(t *testing.T) {
	var buf bytes.Buffer
	l := New("TRACE", true, &buf)
	l.Error("download failed", Fields{"status": 404})

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, buf.String())
	}
	if decoded["level"] != "ERROR" || decoded["message"] != "download failed" {
		t.Errorf("unexpected decoded entry: %+v", decoded)
	}
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New("bogus", false, &buf)
	l.Trace("hidden", nil)
	l.Info("shown", nil)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("TRACE message should be filtered when level defaults to INFO")
	}
	if !strings.Contains(out, "shown") {
		t.Error("INFO message should pass through default level")
	}
}

func TestNopDiscardsOutput(t *testing.T) {
	l := Nop()
	l.Error("this goes nowhere", Fields{"x": 1})
}
