package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docscan/internal/config"
	"docscan/internal/filefinder"
	"docscan/internal/httpfetch"
	"docscan/internal/logging"
)

func drainEvents(t *testing.T, ctx context.Context, ev Events) ([]Downloaded, []string) {
	t.Helper()

	var downloaded []Downloaded
	var reports []string
	dCh, rCh := ev.Downloaded, ev.Reports

	for dCh != nil || rCh != nil {
		select {
		case d, ok := <-dCh:
			if !ok {
				dCh = nil
				continue
			}
			downloaded = append(downloaded, d)
		case r, ok := <-rCh:
			if !ok {
				rCh = nil
				continue
			}
			reports = append(reports, r)
		case <-ctx.Done():
			t.Fatal("timed out draining downloader events")
		}
	}
	return downloaded, reports
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		MaxParallelDownloads: 4,
		MaxParallelPerHost:   2,
		PerDownloadTimeout:   5 * time.Second,
		MaxRedirects:         10,
		MaxBodySize:          1 << 20,
		UserAgent:            "docscan-test/1.0",
		DownloadDir:          dir,
		FilenamePattern:      "%{h:8}_%{s}",
	}
}

func TestUrlDownloader_FetchesAndSaves(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 test content"))
	}))
	defer srv.Close()

	cfg := newTestConfig(t)
	client := httpfetch.New(cfg, logging.Nop())
	d := NewUrlDownloader(cfg, client, logging.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := d.Start(ctx)
	d.Submit(ctx, filefinder.CandidateHit{URL: srv.URL + "/doc.pdf"})
	d.Close()

	downloaded, _ := drainEvents(t, ctx, ev)
	if len(downloaded) != 1 {
		t.Fatalf("expected exactly 1 downloaded item, got %d", len(downloaded))
	}
	if _, err := os.Stat(downloaded[0].LocalPath); err != nil {
		t.Errorf("downloaded file not found on disk: %v", err)
	}
	if filepath.Dir(downloaded[0].LocalPath) != cfg.DownloadDir {
		t.Errorf("expected file under %s, got %q", cfg.DownloadDir, downloaded[0].LocalPath)
	}
}

// Idempotence: resubmitting the same normalized URL must not trigger a
// second fetch, and must be reported as a duplicate.
func TestUrlDownloader_DuplicateSubmitIsDropped(t *testing.T) {
	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Write([]byte("content"))
	}))
	defer srv.Close()

	cfg := newTestConfig(t)
	client := httpfetch.New(cfg, logging.Nop())
	d := NewUrlDownloader(cfg, client, logging.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := d.Start(ctx)
	d.Submit(ctx, filefinder.CandidateHit{URL: srv.URL + "/x.pdf"})
	d.Submit(ctx, filefinder.CandidateHit{URL: srv.URL + "/x.pdf"})
	d.Close()

	downloaded, reports := drainEvents(t, ctx, ev)
	if len(downloaded) != 1 {
		t.Fatalf("expected exactly 1 downloaded item despite duplicate submit, got %d", len(downloaded))
	}

	foundDuplicate := false
	for _, r := range reports {
		if strings.Contains(r, `status="duplicate"`) {
			foundDuplicate = true
		}
	}
	if !foundDuplicate {
		t.Errorf("expected a duplicate status report, got %v", reports)
	}
}

func TestUrlDownloader_FetchErrorReportsFailure(t *testing.T) {
	cfg := newTestConfig(t)
	client := httpfetch.New(cfg, logging.Nop())
	d := NewUrlDownloader(cfg, client, logging.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := d.Start(ctx)
	d.Submit(ctx, filefinder.CandidateHit{URL: "http://127.0.0.1:1/unreachable"})
	d.Close()

	downloaded, reports := drainEvents(t, ctx, ev)
	if len(downloaded) != 0 {
		t.Errorf("expected no downloaded items for an unreachable host, got %d", len(downloaded))
	}
	found := false
	for _, r := range reports {
		if strings.Contains(r, `status="error"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an error status report, got %v", reports)
	}
}

// Per-host cap: with MaxParallelPerHost=1 and three hits against the same
// host, the downloader must still deliver all of them without deadlocking
// (each waits for the previous one's slot to free rather than running
// concurrently with it).
func TestUrlDownloader_PerHostCapAllowsSequentialDrain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	cfg := newTestConfig(t)
	cfg.MaxParallelPerHost = 1
	client := httpfetch.New(cfg, logging.Nop())
	d := NewUrlDownloader(cfg, client, logging.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := d.Start(ctx)
	for i := 0; i < 3; i++ {
		d.Submit(ctx, filefinder.CandidateHit{URL: fmt.Sprintf("%s/f%d.pdf", srv.URL, i)})
	}
	d.Close()

	downloaded, _ := drainEvents(t, ctx, ev)
	if len(downloaded) != 3 {
		t.Fatalf("expected all 3 items to eventually download under a per-host cap of 1, got %d", len(downloaded))
	}
}

func TestUrlDownloader_FinalReportCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := newTestConfig(t)
	client := httpfetch.New(cfg, logging.Nop())
	d := NewUrlDownloader(cfg, client, logging.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := d.Start(ctx)
	d.Submit(ctx, filefinder.CandidateHit{URL: srv.URL + "/a.pdf"})
	d.Submit(ctx, filefinder.CandidateHit{URL: srv.URL + "/a.pdf"})
	d.Close()
	<-ev.Done

	report := d.FinalReport()
	if !strings.Contains(report, `numsuccess="1"`) || !strings.Contains(report, `numduplicate="1"`) {
		t.Errorf("unexpected final report: %s", report)
	}
}
