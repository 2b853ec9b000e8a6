// Package logcollector assembles the single XML <log> document that is
// DocScan's structured deliverable output, as distinct from operational
// diagnostics (internal/logging). Every stage — discoverer, downloader,
// pdfpipeline, classify, otheranalyzers — submits tagged fragments here;
// LogCollector wraps each in a <logitem> and writes the whole document
// out, atomically, once every producer has quiesced.
package logcollector

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Item is one buffered <logitem>: a producer tag, the UTC instant it
// arrived, and its already-XML-escaped payload fragment.
type Item struct {
	Source  string
	Time    time.Time
	Payload string
}

// LogCollector buffers report fragments in arrival order (spec §4.7/§9:
// "preserves arrival order, not wall-clock causal order") and serializes
// them as a single XML document on WriteOut. Its buffer is append-only
// under a single mutex (spec §5(d)), never read or mutated elsewhere.
type LogCollector struct {
	mu    sync.Mutex
	items []Item
}

// New returns an empty LogCollector.
func New() *LogCollector {
	return &LogCollector{}
}

// Submit appends a tagged fragment to the buffer, stamping it with the
// current UTC instant. source is the producer's class tag, e.g.
// "webcrawler", "downloader", "fileanalyzer". payload must already be
// valid XML (callers build it with internal/xmlutil or an encoding/xml
// marshaler); LogCollector does not re-escape it.
func (c *LogCollector) Submit(source, payload string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, Item{Source: source, Time: time.Now().UTC(), Payload: payload})
}

// Len reports the number of buffered items, for tests and the engine's
// "pipeline quiesced" log line.
func (c *LogCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// WriteTo serializes the buffered items, in arrival order, as a complete
// XML document: prologue, <log>, every <logitem>, </log>.
func (c *LogCollector) WriteTo(w io.Writer) error {
	c.mu.Lock()
	items := make([]Item, len(c.items))
	copy(items, c.items)
	c.mu.Unlock()

	if _, err := io.WriteString(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<log>\n"); err != nil {
		return fmt.Errorf("logcollector: writing prologue: %w", err)
	}
	for _, it := range items {
		_, err := fmt.Fprintf(w, "<logitem source=\"%s\" time=\"%s\">%s</logitem>\n",
			it.Source, it.Time.Format("2006-01-02T15:04:05Z"), it.Payload)
		if err != nil {
			return fmt.Errorf("logcollector: writing item for source %s: %w", it.Source, err)
		}
	}
	if _, err := io.WriteString(w, "</log>\n"); err != nil {
		return fmt.Errorf("logcollector: writing closing tag: %w", err)
	}
	return nil
}

// WriteOut serializes the buffer to path atomically: it writes to a
// sibling temp file and renames it into place, so a reader never observes
// a partially-written log (spec §4.8's file format note: "written
// atomically at the end of a run").
func (c *LogCollector) WriteOut(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".logcollector-*.tmp")
	if err != nil {
		return fmt.Errorf("logcollector: creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if err := c.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("logcollector: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("logcollector: renaming temp file into place: %w", err)
	}
	return nil
}
