package downloader

import (
	"context"
	"strings"
	"testing"
	"time"

	"docscan/internal/logging"
)

const sampleDownloadLog = `<log>
  <logitem><download url="http://example.test/a.pdf" filename="/data/a.pdf" status="success" /></logitem>
  <logitem><download url="http://example.test/b.pdf" status="error" message="timeout" /></logitem>
  <logitem><download url="http://example.test/c.pdf" filename="/data/c.pdf" status="success" /></logitem>
  <logitem><download url="http://example.test/dup.pdf" status="duplicate" /></logitem>
</log>`

func TestLogReplayDownloader_ReplaysOnlySuccesses(t *testing.T) {
	r := NewLogReplayDownloader(strings.NewReader(sampleDownloadLog), logging.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := r.Start(ctx)
	downloaded, reports := drainEvents(t, ctx, ev)

	if len(downloaded) != 2 {
		t.Fatalf("expected 2 replayed successes, got %d: %+v", len(downloaded), downloaded)
	}
	if downloaded[0].URL != "http://example.test/a.pdf" || downloaded[0].LocalPath != "/data/a.pdf" {
		t.Errorf("unexpected first replayed item: %+v", downloaded[0])
	}
	if downloaded[1].URL != "http://example.test/c.pdf" {
		t.Errorf("unexpected second replayed item: %+v", downloaded[1])
	}

	found := false
	for _, rep := range reports {
		if strings.Contains(rep, `numreplayed="2"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a summary report with numreplayed=\"2\", got %v", reports)
	}
}

func TestLogReplayDownloader_EmptyLogEmitsZeroSummary(t *testing.T) {
	r := NewLogReplayDownloader(strings.NewReader(`<log></log>`), logging.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := r.Start(ctx)
	downloaded, reports := drainEvents(t, ctx, ev)

	if len(downloaded) != 0 {
		t.Errorf("expected no replayed items, got %d", len(downloaded))
	}
	found := false
	for _, rep := range reports {
		if strings.Contains(rep, `numreplayed="0"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a summary report with numreplayed=\"0\", got %v", reports)
	}
}
