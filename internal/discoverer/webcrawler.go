package discoverer

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"

	"docscan/internal/filefinder"
	"docscan/internal/httpfetch"
	"docscan/internal/logging"
	"docscan/internal/urlnorm"
	"docscan/internal/xmlutil"
)

// pdfMagic is the byte prefix that identifies a response body as a PDF
// regardless of what extension, if any, its URL carries.
const pdfMagic = "%PDF-1."

// WebCrawler walks a web site breadth-first from a single base URL,
// dispatching fetches against a bounded worker pool and testing every
// discovered anchor against the configured filters. It owns the
// known-URLs set and the FIFO queue itself; both are touched only through
// enqueue/dequeue/markKnown/isKnown, which hold w.mu for the duration of the mutation and
// never across a blocking call, per the rule that a Discoverer's
// queue/known-set may never be held across an await.
type WebCrawler struct {
	base            *url.URL
	filters         []*filefinder.Filter
	client          *httpfetch.Client
	logger          *logging.Logger
	requiredContent string
	maxParallel     int
	maxVisitedPages int
	baseTimeout     time.Duration

	mu    sync.Mutex
	known map[string]bool
	queue []string

	inFlight  int32
	visited   int64
	totalHits int64
}

// NewWebCrawler builds a WebCrawler rooted at base. requiredContent, when
// non-empty, is a substring a fetched HTML page's body must contain before
// its anchors are scanned at all (the original's "content must match"
// guard against crawling into an unrelated part of a shared host).
// maxParallel <= 0 defaults to 16 and maxVisitedPages <= 0 to 32768, the
// same defaults config.Default ships.
func NewWebCrawler(base *url.URL, filters []*filefinder.Filter, client *httpfetch.Client, logger *logging.Logger, requiredContent string, maxParallel, maxVisitedPages int, baseTimeout time.Duration) *WebCrawler {
	if maxParallel <= 0 {
		maxParallel = 16
	}
	if maxVisitedPages <= 0 {
		maxVisitedPages = 32768
	}
	if baseTimeout <= 0 {
		baseTimeout = 10 * time.Second
	}
	return &WebCrawler{
		base:            base,
		filters:         filters,
		client:          client,
		logger:          logger,
		requiredContent: requiredContent,
		maxParallel:     maxParallel,
		maxVisitedPages: maxVisitedPages,
		baseTimeout:     baseTimeout,
		known:           make(map[string]bool),
	}
}

// Start implements Discoverer.
func (w *WebCrawler) Start(ctx context.Context, quota int) Events {
	hits := make(chan filefinder.CandidateHit, 64)
	reports := make(chan string, 64)
	done := make(chan struct{})

	w.enqueue(w.base.String())

	go w.run(ctx, quota, hits, reports, done)
	return Events{Hits: hits, Reports: reports, Done: done}
}

func (w *WebCrawler) run(ctx context.Context, quota int, hits chan filefinder.CandidateHit, reports chan string, done chan struct{}) {
	defer close(done)
	defer close(reports)
	defer close(hits)

	emitReport(ctx, reports, fmt.Sprintf(`<webcrawler event="start" base="%s" numexpectedhits="%d" />`, xmlutil.Xmlify(w.base.String()), quota))

	sem := make(chan struct{}, w.maxParallel)
	var wg sync.WaitGroup

	for {
		if ctx.Err() != nil {
			break
		}
		if quota > 0 && atomic.LoadInt64(&w.totalHits) >= int64(quota) {
			break
		}
		if w.allFiltersQuotaReached() {
			break
		}
		if atomic.LoadInt64(&w.visited) >= int64(w.maxVisitedPages) {
			break
		}

		next, ok := w.dequeue()
		if !ok {
			if atomic.LoadInt32(&w.inFlight) == 0 {
				break
			}
			select {
			case <-ctx.Done():
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		wg.Add(1)
		atomic.AddInt32(&w.inFlight, 1)
		sem <- struct{}{}
		go func(target string) {
			defer wg.Done()
			defer atomic.AddInt32(&w.inFlight, -1)
			defer func() { <-sem }()
			w.visit(ctx, target, hits, reports)
		}(next)
	}

	wg.Wait()
	emitReport(ctx, reports, fmt.Sprintf(`<webcrawler event="summary" numfoundhits="%d" numvisited="%d" />`, atomic.LoadInt64(&w.totalHits), atomic.LoadInt64(&w.visited)))
}

func (w *WebCrawler) allFiltersQuotaReached() bool {
	if len(w.filters) == 0 {
		return false
	}
	for _, f := range w.filters {
		if !f.QuotaReached() {
			return false
		}
	}
	return true
}

func (w *WebCrawler) enqueue(u string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.known[u] {
		return
	}
	w.known[u] = true
	w.queue = append(w.queue, u)
}

func (w *WebCrawler) markKnown(u string) {
	w.mu.Lock()
	w.known[u] = true
	w.mu.Unlock()
}

func (w *WebCrawler) isKnown(u string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.known[u]
}

func (w *WebCrawler) dequeue() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return "", false
	}
	next := w.queue[0]
	w.queue = w.queue[1:]
	return next, true
}

// visit fetches target, retrying once with a www.-toggled host on a
// not-found DNS error, ignoring TLS certificate errors outright, and
// otherwise reporting the failure before giving up on this URL.
func (w *WebCrawler) visit(ctx context.Context, target string, hits chan<- filefinder.CandidateHit, reports chan<- string) {
	if atomic.AddInt64(&w.visited, 1) > int64(w.maxVisitedPages) {
		return
	}

	running := atomic.LoadInt32(&w.inFlight)
	timeout := w.baseTimeout + time.Duration(running)*time.Second
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := w.client.Fetch(fetchCtx, target)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			if retryURL, ok := toggleWWW(target); ok {
				resp, err = w.client.Fetch(fetchCtx, retryURL)
			}
		}
	}
	if err != nil {
		if isTLSError(err) {
			w.logger.Warn("ignoring TLS certificate error", logging.Fields{"url": target, "error": err.Error()})
			return
		}
		w.logger.Warn("fetch failed", logging.Fields{"url": target, "error": err.Error()})
		emitReport(ctx, reports, fmt.Sprintf(`<webcrawler event="error" url="%s" message="%s" />`, xmlutil.Xmlify(target), xmlutil.Xmlify(err.Error())))
		return
	}

	w.process(ctx, resp, hits, reports)
}

func toggleWWW(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := u.Hostname()
	port := u.Port()
	var newHost string
	if strings.HasPrefix(host, "www.") {
		newHost = strings.TrimPrefix(host, "www.")
	} else {
		newHost = "www." + host
	}
	if port != "" {
		newHost += ":" + port
	}
	u.Host = newHost
	return u.String(), true
}

func isTLSError(err error) bool {
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var certInvalid x509.CertificateInvalidError
	return errors.As(err, &unknownAuth) || errors.As(err, &hostnameErr) || errors.As(err, &certInvalid)
}

// process inspects a successfully fetched response: a "%PDF-1." body is a
// hit for any filter mentioning ".pdf" regardless of the URL's own
// filename; otherwise, if the body looks like HTML (and, when configured,
// contains the required substring), its anchors are scanned.
func (w *WebCrawler) process(ctx context.Context, resp *httpfetch.Response, hits chan<- filefinder.CandidateHit, reports chan<- string) {
	effectiveURL := resp.FinalURL
	if effectiveURL == "" {
		effectiveURL = resp.URL
	}
	if effectiveURL != resp.URL {
		// net/http followed the redirect chain transparently; mark the
		// landing URL known so it is never independently re-queued and
		// re-fetched, since its body has already been obtained here.
		w.markKnown(effectiveURL)
	}

	if bytes.HasPrefix(resp.Body, []byte(pdfMagic)) {
		for _, f := range w.filters {
			if !strings.Contains(f.Glob, ".pdf") {
				continue
			}
			if !f.ForceHit() {
				continue
			}
			atomic.AddInt64(&w.totalHits, 1)
			if !emitHit(ctx, hits, filefinder.CandidateHit{URL: effectiveURL, Filter: f}) {
				return
			}
			emitReport(ctx, reports, fmt.Sprintf(`<filefinder event="hit" url="%s" filter="%s" />`, xmlutil.Xmlify(effectiveURL), xmlutil.Xmlify(f.Glob)))
		}
		return
	}

	if !looksLikeHTML(resp.Body) {
		return
	}
	if w.requiredContent != "" && !bytes.Contains(resp.Body, []byte(w.requiredContent)) {
		return
	}

	pageURL, err := url.Parse(effectiveURL)
	if err != nil {
		return
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		w.logger.Warn("html parse failed", logging.Fields{"url": effectiveURL, "error": err.Error()})
		return
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		w.handleLink(ctx, href, pageURL, hits, reports)
	})
}

func looksLikeHTML(body []byte) bool {
	n := len(body)
	if n > 256 {
		n = 256
	}
	return strings.Contains(strings.ToLower(string(body[:n])), "<html")
}

// handleLink normalizes href against pageURL and either records it as a
// hit, enqueues it for further crawling, or drops it, per the web
// crawler's link-filtering rules: blacklisted extensions and off-site
// hosts are dropped outright; an already-known URL is dropped silently;
// a filter match is a hit; otherwise a same-site, page-like URL is queued.
func (w *WebCrawler) handleLink(ctx context.Context, href string, pageURL *url.URL, hits chan<- filefinder.CandidateHit, reports chan<- string) {
	normalized, err := urlnorm.Normalize(href, pageURL)
	if err != nil {
		return
	}
	normStr := normalized.String()

	if urlnorm.IsBlacklistedExtension(normStr) {
		return
	}
	if !strings.HasSuffix(normalized.Host, w.base.Host) {
		return
	}
	if w.isKnown(normStr) {
		return
	}

	for _, f := range w.filters {
		if !f.TryHit(normStr) {
			continue
		}
		atomic.AddInt64(&w.totalHits, 1)
		w.markKnown(normStr)
		if !emitHit(ctx, hits, filefinder.CandidateHit{URL: normStr, Filter: f}) {
			return
		}
		emitReport(ctx, reports, fmt.Sprintf(`<filefinder event="hit" url="%s" filter="%s" />`, xmlutil.Xmlify(normStr), xmlutil.Xmlify(f.Glob)))
		return
	}

	if urlnorm.IsSubAddress(normalized, w.base) && urlnorm.IsPageLike(normStr) {
		w.enqueue(normStr)
	}
}
