package logcollector

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestWriteToPreservesArrivalOrder(t *testing.T) {
	c := New()
	c.Submit("webcrawler", "<founturl href=\"a\" />")
	c.Submit("downloader", "<download url=\"a\" status=\"success\" />")
	c.Submit("fileanalyzer", "<fileanalysis filename=\"a\" />")

	var sb strings.Builder
	if err := c.WriteTo(&sb); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	out := sb.String()

	iCrawler := strings.Index(out, "webcrawler")
	iDownload := strings.Index(out, "downloader")
	iAnalyzer := strings.Index(out, "fileanalyzer")
	if !(iCrawler < iDownload && iDownload < iAnalyzer) {
		t.Errorf("items out of arrival order in output:\n%s", out)
	}
}

func TestWriteToWrapsEachFragmentInLogitem(t *testing.T) {
	c := New()
	c.Submit("webcrawler", "<hit/>")

	var sb strings.Builder
	if err := c.WriteTo(&sb); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, `<logitem source="webcrawler" time=`) {
		t.Errorf("missing logitem wrapper: %s", out)
	}
	if !strings.Contains(out, "<hit/></logitem>") {
		t.Errorf("payload not nested inside logitem: %s", out)
	}
	if !strings.HasPrefix(out, "<?xml") {
		t.Error("missing XML prologue")
	}
	if !strings.Contains(out, "<log>") || !strings.Contains(out, "</log>") {
		t.Error("missing log root element")
	}
}

func TestSubmitIsConcurrencySafe(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Submit("worker", "<x/>")
		}()
	}
	wg.Wait()
	if c.Len() != 100 {
		t.Errorf("Len() = %d, want 100", c.Len())
	}
}

func TestWriteOutAtomicallyWritesFile(t *testing.T) {
	c := New()
	c.Submit("webcrawler", "<hit/>")

	path := filepath.Join(t.TempDir(), "docscan.xml")
	if err := c.WriteOut(path); err != nil {
		t.Fatalf("WriteOut: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(data), "<hit/>") {
		t.Errorf("output missing expected payload: %s", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".logcollector-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}
