package downloader

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"docscan/internal/config"
	"docscan/internal/filefinder"
	"docscan/internal/httpfetch"
	"docscan/internal/logging"
	"docscan/internal/urlnorm"
	"docscan/internal/xmlutil"
)

// UrlDownloader fetches submitted CandidateHits over HTTP, bounding total
// in-flight fetches at cfg.MaxParallelDownloads and per-host in-flight
// fetches (keyed by urlnorm.EffectiveDomain) at cfg.MaxParallelPerHost. A
// per-host rate.Limiter additionally paces how fast new fetches to that
// host are issued, a politeness mechanism the hard per-host cap alone
// does not provide. Re-submitting a URL already seen is dropped and
// reported as a duplicate rather than downloaded twice.
type UrlDownloader struct {
	cfg    *config.Config
	client *httpfetch.Client
	logger *logging.Logger

	mu           sync.Mutex
	known        map[string]bool
	pending      []filefinder.CandidateHit
	hostInFlight map[string]int
	limiters     map[string]*rate.Limiter
	closed       bool

	inFlight   int32
	successes  int64
	failures   int64
	duplicates int64

	reportsOut chan string
}

// NewUrlDownloader builds a UrlDownloader. client should already be
// constructed with cfg's timeouts; cfg's MaxParallelDownloads and
// MaxParallelPerHost govern this downloader's own dispatch, independent
// of any per-request timeout client.Fetch enforces.
func NewUrlDownloader(cfg *config.Config, client *httpfetch.Client, logger *logging.Logger) *UrlDownloader {
	return &UrlDownloader{
		cfg:          cfg,
		client:       client,
		logger:       logger,
		known:        make(map[string]bool),
		hostInFlight: make(map[string]int),
		limiters:     make(map[string]*rate.Limiter),
	}
}

// Start launches the dispatcher and returns the event channels. Submit
// must not be called before Start.
func (d *UrlDownloader) Start(ctx context.Context) Events {
	downloaded := make(chan Downloaded, 64)
	reports := make(chan string, 64)
	done := make(chan struct{})

	d.reportsOut = reports

	go d.run(ctx, downloaded, reports, done)
	return Events{Downloaded: downloaded, Reports: reports, Done: done}
}

// Submit enqueues hit for download, unless its normalized URL has
// already been seen, in which case a duplicate report fragment is
// emitted instead (spec.md §3 idempotence invariant).
func (d *UrlDownloader) Submit(ctx context.Context, hit filefinder.CandidateHit) {
	key := hit.URL
	if normalized, err := urlnorm.Normalize(hit.URL, nil); err == nil {
		key = normalized.String()
	}

	d.mu.Lock()
	if d.known[key] {
		d.mu.Unlock()
		atomic.AddInt64(&d.duplicates, 1)
		if d.reportsOut != nil {
			emitReport(ctx, d.reportsOut, fmt.Sprintf(`<download url="%s" status="duplicate" />`, xmlutil.Xmlify(key)))
		}
		return
	}
	d.known[key] = true
	d.pending = append(d.pending, hit)
	d.mu.Unlock()
}

// Close signals that no further Submit calls will be made; the
// dispatcher quiesces once the pending queue drains and every in-flight
// fetch completes.
func (d *UrlDownloader) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// FinalReport returns the closing summary fragment. Call it once the
// Done channel from Start has closed.
func (d *UrlDownloader) FinalReport() string {
	return fmt.Sprintf(`<urldownloader event="summary" numsuccess="%d" numfailure="%d" numduplicate="%d" />`,
		atomic.LoadInt64(&d.successes), atomic.LoadInt64(&d.failures), atomic.LoadInt64(&d.duplicates))
}

func (d *UrlDownloader) run(ctx context.Context, downloaded chan Downloaded, reports chan string, done chan struct{}) {
	defer close(done)
	defer close(reports)
	defer close(downloaded)

	sem := make(chan struct{}, d.cfg.MaxParallelDownloads)
	var wg sync.WaitGroup

	for {
		if ctx.Err() != nil {
			break
		}

		item, domain, ok := d.dequeueReady()
		if !ok {
			if atomic.LoadInt32(&d.inFlight) == 0 && d.isClosed() && d.pendingEmpty() {
				break
			}
			select {
			case <-ctx.Done():
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		if err := d.limiterFor(domain).Wait(ctx); err != nil {
			d.releaseHostSlot(domain)
			continue
		}

		wg.Add(1)
		atomic.AddInt32(&d.inFlight, 1)
		sem <- struct{}{}
		go func(it filefinder.CandidateHit, domain string) {
			defer wg.Done()
			defer atomic.AddInt32(&d.inFlight, -1)
			defer func() { <-sem }()
			defer d.releaseHostSlot(domain)
			d.fetchAndSave(ctx, it, downloaded, reports)
		}(item, domain)
	}

	wg.Wait()
}

// dequeueReady scans the pending queue for the first item whose host has
// a free slot, reserves that slot, and removes the item from the queue,
// all under a single lock so the scan-and-reserve is atomic.
func (d *UrlDownloader) dequeueReady() (filefinder.CandidateHit, string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, item := range d.pending {
		domain := urlnorm.EffectiveDomain(hostOf(item.URL))
		if d.hostInFlight[domain] >= d.cfg.MaxParallelPerHost {
			continue
		}
		d.pending = append(d.pending[:i:i], d.pending[i+1:]...)
		d.hostInFlight[domain]++
		return item, domain, true
	}
	return filefinder.CandidateHit{}, "", false
}

func (d *UrlDownloader) releaseHostSlot(domain string) {
	d.mu.Lock()
	d.hostInFlight[domain]--
	d.mu.Unlock()
}

func (d *UrlDownloader) pendingEmpty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending) == 0
}

func (d *UrlDownloader) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *UrlDownloader) limiterFor(domain string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[domain]
	if !ok {
		l = rate.NewLimiter(rate.Limit(d.cfg.MaxParallelPerHost), d.cfg.MaxParallelPerHost)
		d.limiters[domain] = l
	}
	return l
}

func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func (d *UrlDownloader) fetchAndSave(ctx context.Context, item filefinder.CandidateHit, downloaded chan<- Downloaded, reports chan<- string) {
	fetchCtx, cancel := context.WithTimeout(ctx, d.cfg.PerDownloadTimeout)
	defer cancel()

	resp, err := d.client.Fetch(fetchCtx, item.URL)
	if err != nil {
		atomic.AddInt64(&d.failures, 1)
		d.logger.Warn("download failed", logging.Fields{"url": item.URL, "error": err.Error()})
		emitReport(ctx, reports, fmt.Sprintf(`<download url="%s" status="error" message="%s" />`, xmlutil.Xmlify(item.URL), xmlutil.Xmlify(err.Error())))
		return
	}

	filename := deriveFilename(d.cfg.FilenamePattern, resp.Body, item.URL)
	localPath := filepath.Join(d.cfg.DownloadDir, filename)

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		atomic.AddInt64(&d.failures, 1)
		emitReport(ctx, reports, fmt.Sprintf(`<download url="%s" status="error" message="%s" />`, xmlutil.Xmlify(item.URL), xmlutil.Xmlify(err.Error())))
		return
	}
	if err := os.WriteFile(localPath, resp.Body, 0o644); err != nil {
		atomic.AddInt64(&d.failures, 1)
		emitReport(ctx, reports, fmt.Sprintf(`<download url="%s" status="error" message="%s" />`, xmlutil.Xmlify(item.URL), xmlutil.Xmlify(err.Error())))
		return
	}

	atomic.AddInt64(&d.successes, 1)
	if !emitDownloaded(ctx, downloaded, Downloaded{URL: item.URL, LocalPath: localPath}) {
		return
	}
	emitReport(ctx, reports, fmt.Sprintf(`<download url="%s" filename="%s" status="success" />`, xmlutil.Xmlify(item.URL), xmlutil.Xmlify(filename)))
}
