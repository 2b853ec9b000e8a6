// Package urlnorm implements the URL normal form and the handful of
// string transforms (slugging, domain extraction, sub-address testing)
// that the discoverer and downloader stages share. Normalized form is the
// deduplication key everywhere in DocScan: "scheme+host lowercased,
// canonical percent-encoding, empty path -> '/', no fragment" per spec §3.
package urlnorm

import (
	"net/url"
	"regexp"
	"strings"
)

// Normalize rewrites rawURL into DocScan's canonical form. It resolves
// rawURL against base when rawURL is relative, strips the fragment, lowers
// scheme and host, and rewrites an empty path to "/".
func Normalize(rawURL string, base *url.URL) (*url.URL, error) {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(rawURL)), "mailto:") {
		return nil, errNotHTTP
	}

	text := strings.ReplaceAll(rawURL, "&amp;", "&")

	u, err := url.Parse(text)
	if err != nil {
		return nil, err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	if !strings.HasPrefix(strings.ToLower(u.Scheme), "http") {
		return nil, errNotHTTP
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""

	return u, nil
}

type normError string

func (e normError) Error() string { return string(e) }

const errNotHTTP = normError("urlnorm: not an http(s) URL")

// twoLabelCountryTLDs are the public two-label suffixes for which the effective
// registrable domain is three labels, not two (e.g. "example.co.uk", not
// "co.uk"). This is the same heuristic UrlDownloader applies to compute its
// per-host parallelism key; it is not a full public-suffix-list
// implementation, by design (spec §4.2 calls it "heuristic").
var twoLabelCountryTLDs = map[string]bool{
	"co.uk": true, "co.jp": true, "co.kr": true, "co.nz": true, "co.za": true,
	"com.au": true, "com.br": true, "com.cn": true, "com.mx": true,
	"org.uk": true, "net.au": true, "ac.uk": true, "gov.uk": true,
}

// EffectiveDomain computes the per-host politeness key: the last two
// labels of hostname, or three when the last two form a known country-code
// second-level suffix.
func EffectiveDomain(hostname string) string {
	hostname = strings.ToLower(hostname)
	labels := strings.Split(hostname, ".")
	if len(labels) <= 2 {
		return hostname
	}

	lastTwo := strings.Join(labels[len(labels)-2:], ".")
	if twoLabelCountryTLDs[lastTwo] && len(labels) >= 3 {
		return strings.Join(labels[len(labels)-3:], ".")
	}
	return lastTwo
}

var slugExtensionRegExp = regexp.MustCompile(`[^a-z0-9]`)
var slugFinalRunRegExp = regexp.MustCompile(`(?i)_([a-z0-9]{1,4})$`)

// Slug renders urlStr the way the downloader's %{s} filename-pattern
// placeholder does: every non-alphanumeric character becomes an
// underscore (runs are not collapsed, so "://" yields "___"), then the
// final short underscore-delimited run is
// rewritten into a dotted extension so the slug still looks like a
// filename (spec §3's "slug").
func Slug(urlStr string) string {
	lowered := strings.ToLower(urlStr)
	underscored := slugExtensionRegExp.ReplaceAllString(lowered, "_")
	return slugFinalRunRegExp.ReplaceAllString(underscored, ".$1")
}

// IsSubAddress reports whether query is a crawlable descendant of base:
// same host, or (per the Open Question flagged in spec §9) a host that
// merely has base's host as a dotted suffix when base's path is a single
// character or shorter — preserved verbatim though it is flagged as
// possibly admitting an unintended match such as "evil.base.test".
func IsSubAddress(query, base *url.URL) bool {
	sameHost := query.Host == base.Host
	suffixMatch := len(base.Path) <= 1 && strings.HasSuffix(query.Host, "."+base.Host)
	if !sameHost && !suffixMatch {
		return false
	}
	return strings.HasPrefix(query.Path, base.Path)
}

// imageExtensions and multimediaExtensions are the blacklists the web
// crawler consults before even testing a link against the configured
// Filters (spec §4.1): binary media is never worth a fetch.
var imageExtensions = map[string]bool{
	".jpg": true, "jpeg": true, ".png": true, ".gif": true, ".eps": true, ".bmp": true,
}

var multimediaExtensions = map[string]bool{
	".avi": true, "mpeg": true, ".mpg": true, ".mp4": true, ".mp3": true, ".wmv": true, ".wma": true,
}

// IsBlacklistedExtension reports whether urlStr's trailing four characters
// (simplification: "extension, with or without dot, is four characters
// long" per the original crawler) match a known image or multimedia
// extension.
func IsBlacklistedExtension(urlStr string) bool {
	if len(urlStr) < 4 {
		return false
	}
	ext := strings.ToLower(urlStr[len(urlStr)-4:])
	return imageExtensions[ext] || multimediaExtensions[ext]
}

var pageLikeExtensionRegExp = regexp.MustCompile(`(?i)\.(s?html?|jsp|asp[x]?|php)([?#].*)?$`)
var anyExtensionRegExp = regexp.MustCompile(`(?i)\.[a-z0-9]{1,5}([?#].*)?$`)

// IsPageLike reports whether urlStr looks like something worth crawling
// further rather than a download target: an htm/html/jsp/asp/aspx/php
// extension, or no recognizable extension at all (spec §4.1).
func IsPageLike(urlStr string) bool {
	if pageLikeExtensionRegExp.MatchString(urlStr) {
		return true
	}
	return !anyExtensionRegExp.MatchString(urlStr)
}
