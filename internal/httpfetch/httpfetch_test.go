package httpfetch

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"docscan/internal/config"
	"docscan/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	c := config.Default()
	c.DownloadDir = filepath.Join(t.TempDir(), "downloads")
	c.LogDir = filepath.Join(t.TempDir(), "logs")
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return c
}

func TestFetchPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	client := New(testConfig(t), logging.Nop())
	resp, err := client.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(resp.Body) != "<html><body>hello</body></html>" {
		t.Errorf("Body = %q", resp.Body)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
}

func TestFetchGzipBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "text/plain")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("decompressed content"))
		gz.Close()
	}))
	defer srv.Close()

	client := New(testConfig(t), logging.Nop())
	resp, err := client.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(resp.Body) != "decompressed content" {
		t.Errorf("Body = %q, want decompressed content", resp.Body)
	}
}

func TestFetchNonOKStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(testConfig(t), logging.Nop())
	resp, err := client.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Errorf("expected partial response with status 404, got %+v", resp)
	}
}

func TestFetchBodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 1024))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.MaxBodySize = 100
	client := New(cfg, logging.Nop())
	if _, err := client.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for oversized body")
	}
}

func TestDetectCharsetFromContentType(t *testing.T) {
	if got := detectCharset("text/html; charset=ISO-8859-1", nil); got != "iso-8859-1" {
		t.Errorf("detectCharset() = %q, want iso-8859-1", got)
	}
}

func TestDetectCharsetDefaultsToUTF8(t *testing.T) {
	if got := detectCharset("", []byte("<html></html>")); got != "utf-8" {
		t.Errorf("detectCharset() = %q, want utf-8", got)
	}
}
