// Package filefinder implements the glob-to-regex Filter compiler and the
// CandidateHit value that flows from Discoverer to Downloader (spec §3).
package filefinder

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Filter is a label such as "*.pdf" compiled into an anchored regular
// expression, carrying a mutable hit counter that is incremented every
// time a discovered URL matches it. The counter is guarded by its own
// lock so a single Filter can be shared, read, and incremented
// concurrently by multiple discoverer goroutines (spec §5(c): "Filter
// counters are incremented under the same lock as the [known-URLs] set" —
// here the Filter owns that lock itself so callers never have to reach
// into the Discoverer's internals to bump a counter).
type Filter struct {
	Glob string
	re   *regexp.Regexp

	mu       sync.Mutex
	hits     int
	quota    int // 0 means unlimited
}

// compileGlob translates a shell-style glob into the anchored pattern
// "(^|/)<glob>([?].+)?$": "." is escaped literally and "*" becomes
// "[^/ \"']*", matching any run of characters that can't plausibly belong
// to an adjacent path segment or HTML attribute delimiter.
func compileGlob(glob string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString(`(^|/)`)
	for _, r := range glob {
		switch r {
		case '.':
			sb.WriteString(`\.`)
		case '*':
			sb.WriteString(`[^/ "']*`)
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString(`([?].+)?$`)
	return regexp.Compile(sb.String())
}

// NewFilter compiles glob into a Filter with no hit quota.
func NewFilter(glob string) (*Filter, error) {
	return NewFilterWithQuota(glob, 0)
}

// NewFilterWithQuota compiles glob into a Filter whose hit counter must
// never be allowed to exceed quota once start_search(Q) semantics are in
// effect (spec §8 property 2); quota <= 0 means unlimited.
func NewFilterWithQuota(glob string, quota int) (*Filter, error) {
	re, err := compileGlob(glob)
	if err != nil {
		return nil, fmt.Errorf("filefinder: compiling filter %q: %w", glob, err)
	}
	if quota < 0 {
		quota = 0
	}
	return &Filter{Glob: glob, re: re, quota: quota}, nil
}

// Match reports whether urlStr matches the filter's compiled pattern.
func (f *Filter) Match(urlStr string) bool {
	return f.re.MatchString(urlStr)
}

// TryHit reports whether the filter's pattern matches urlStr and, if so
// and the quota has not yet been reached, increments the hit counter and
// returns true. A quota that has already been reached causes TryHit to
// return false even on a pattern match, holding foundHits <= quota exactly.
func (f *Filter) TryHit(urlStr string) bool {
	if !f.Match(urlStr) {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quota > 0 && f.hits >= f.quota {
		return false
	}
	f.hits++
	return true
}

// ForceHit increments the hit counter without a pattern match, respecting
// the quota exactly as TryHit does. It exists for the web crawler's
// "%PDF-1." magic-byte check: a response recognized as a PDF by its body
// is a hit for any filter that mentions ".pdf", regardless of whether the
// triggering URL's own filename happens to match the glob.
func (f *Filter) ForceHit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quota > 0 && f.hits >= f.quota {
		return false
	}
	f.hits++
	return true
}

// Hits returns the current hit count.
func (f *Filter) Hits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits
}

// QuotaReached reports whether the filter's quota (if any) has been hit.
func (f *Filter) QuotaReached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quota > 0 && f.hits >= f.quota
}

// CandidateHit pairs a discovered URL with the Filter that matched it; it
// is the unit of work Discoverer emits and Downloader consumes.
type CandidateHit struct {
	URL    string
	Filter *Filter
}
