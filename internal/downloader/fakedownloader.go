package downloader

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"docscan/internal/filefinder"
	"docscan/internal/logging"
	"docscan/internal/xmlutil"
)

// FakeDownloader treats each submitted CandidateHit's URL as a local
// path (optionally "file://"-prefixed), verifying it is readable and
// emitting it as downloaded without copying any bytes. It exists for
// tests and dry runs over a FilesystemScanner's hits, where copying a
// file that is already on disk into the download directory would be
// pure overhead.
type FakeDownloader struct {
	logger *logging.Logger
	in     chan filefinder.CandidateHit

	successes int64
	failures  int64
}

// NewFakeDownloader builds a FakeDownloader.
func NewFakeDownloader(logger *logging.Logger) *FakeDownloader {
	return &FakeDownloader{logger: logger, in: make(chan filefinder.CandidateHit, 64)}
}

// Start launches the dispatcher and returns the event channels.
func (f *FakeDownloader) Start(ctx context.Context) Events {
	downloaded := make(chan Downloaded, 64)
	reports := make(chan string, 64)
	done := make(chan struct{})

	go f.run(ctx, downloaded, reports, done)
	return Events{Downloaded: downloaded, Reports: reports, Done: done}
}

// Submit enqueues hit for a readability check.
func (f *FakeDownloader) Submit(ctx context.Context, hit filefinder.CandidateHit) {
	select {
	case f.in <- hit:
	case <-ctx.Done():
	}
}

// Close signals that no further Submit calls will be made.
func (f *FakeDownloader) Close() {
	close(f.in)
}

// FinalReport returns the closing summary fragment.
func (f *FakeDownloader) FinalReport() string {
	return fmt.Sprintf(`<fakedownloader event="summary" numsuccess="%d" numfailure="%d" />`,
		atomic.LoadInt64(&f.successes), atomic.LoadInt64(&f.failures))
}

func (f *FakeDownloader) run(ctx context.Context, downloaded chan Downloaded, reports chan string, done chan struct{}) {
	defer close(done)
	defer close(reports)
	defer close(downloaded)

	for {
		select {
		case hit, ok := <-f.in:
			if !ok {
				return
			}
			f.check(ctx, hit, downloaded, reports)
		case <-ctx.Done():
			return
		}
	}
}

func (f *FakeDownloader) check(ctx context.Context, hit filefinder.CandidateHit, downloaded chan<- Downloaded, reports chan<- string) {
	path := strings.TrimPrefix(hit.URL, "file://")

	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		atomic.AddInt64(&f.failures, 1)
		f.logger.Warn("fake download target unreadable", logging.Fields{"url": hit.URL, "error": errString(err)})
		emitReport(ctx, reports, fmt.Sprintf(`<download url="%s" status="error" message="unreadable" />`, xmlutil.Xmlify(hit.URL)))
		return
	}

	fh, err := os.Open(path)
	if err != nil {
		atomic.AddInt64(&f.failures, 1)
		emitReport(ctx, reports, fmt.Sprintf(`<download url="%s" status="error" message="%s" />`, xmlutil.Xmlify(hit.URL), xmlutil.Xmlify(err.Error())))
		return
	}
	fh.Close()

	atomic.AddInt64(&f.successes, 1)
	if !emitDownloaded(ctx, downloaded, Downloaded{URL: hit.URL, LocalPath: path}) {
		return
	}
	emitReport(ctx, reports, fmt.Sprintf(`<download url="%s" filename="%s" status="success" />`, xmlutil.Xmlify(hit.URL), xmlutil.Xmlify(path)))
}
