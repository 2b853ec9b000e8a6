// Package httpfetch wraps net/http with the decompression and charset
// normalization every downstream consumer (discoverer's anchor scan,
// downloader's body capture) needs: gzip/deflate transfer decoding and
// conversion of non-UTF-8 page bodies to UTF-8 before they're handed to
// goquery or hashed for the filename pattern's %{h}.
package httpfetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/htmlindex"

	"docscan/internal/config"
	"docscan/internal/logging"
)

// Response is a fetched resource: its decompressed, UTF-8-normalized
// body plus the metadata the discoverer and downloader both need.
type Response struct {
	URL           string
	FinalURL      string
	StatusCode    int
	ContentType   string
	ContentLength int64
	LastModified  string
	Charset       string
	Body          []byte
}

// Client fetches URLs over HTTP(S), enforcing the configured body size
// cap, redirect limit, and TLS verification policy, and normalizes
// response bodies to UTF-8.
type Client struct {
	http   *http.Client
	cfg    *config.Config
	logger *logging.Logger
}

// New builds a Client from cfg, logging warnings through logger.
func New(cfg *config.Config, logger *logging.Logger) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.BaseRequestTimeout,
		ExpectContinueTimeout: time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxParallelPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: false},
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.PerDownloadTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("httpfetch: too many redirects (limit %d)", cfg.MaxRedirects)
			}
			return nil
		},
	}

	return &Client{http: httpClient, cfg: cfg, logger: logger}
}

// Fetch performs a GET for urlStr, decompressing and UTF-8-normalizing
// the body. A status below 200 or at 400 and above is returned as an
// error alongside the partial Response so callers can still inspect status/headers.
func (c *Client) Fetch(ctx context.Context, urlStr string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: building request for %s: %w", urlStr, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("httpfetch: %s timed out or canceled: %w", urlStr, err)
		}
		return nil, fmt.Errorf("httpfetch: requesting %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	out := &Response{
		URL:           urlStr,
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		LastModified:  resp.Header.Get("Last-Modified"),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		out.FinalURL = resp.Request.URL.String()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return out, fmt.Errorf("httpfetch: %s returned status %d", urlStr, resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, c.cfg.MaxBodySize)

	var reader io.Reader = limited
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gzr, err := gzip.NewReader(limited)
		if err != nil {
			return out, fmt.Errorf("httpfetch: gzip reader for %s: %w", urlStr, err)
		}
		defer gzr.Close()
		reader = gzr
	case "deflate":
		fr := flate.NewReader(limited)
		defer fr.Close()
		reader = fr
	}

	body, err := io.ReadAll(reader)
	if err != nil && len(body) == 0 {
		return out, fmt.Errorf("httpfetch: reading body of %s: %w", urlStr, err)
	}
	if err != nil {
		c.logger.Warn("partial body read", logging.Fields{"url": urlStr, "error": err.Error(), "bytes": len(body)})
	}
	if int64(len(body)) >= c.cfg.MaxBodySize {
		return out, fmt.Errorf("httpfetch: body of %s reached the %d byte cap", urlStr, c.cfg.MaxBodySize)
	}

	cs := detectCharset(out.ContentType, body)
	out.Charset = cs
	utf8Body, err := convertToUTF8(body, cs)
	if err != nil {
		c.logger.Warn("charset conversion failed", logging.Fields{"url": urlStr, "charset": cs, "error": err.Error()})
		utf8Body = body
	}
	out.Body = utf8Body

	return out, nil
}

func detectCharset(contentType string, body []byte) string {
	if contentType != "" {
		for _, part := range strings.Split(contentType, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(strings.ToLower(part), "charset=") {
				return strings.Trim(strings.TrimPrefix(strings.ToLower(part), "charset="), `"'`)
			}
		}
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err == nil {
		if cs := findMetaCharset(doc); cs != "" {
			return cs
		}
	}

	return "utf-8"
}

func findMetaCharset(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var httpEquiv, content, charsetAttr string
		for _, attr := range n.Attr {
			switch strings.ToLower(attr.Key) {
			case "http-equiv":
				httpEquiv = strings.ToLower(attr.Val)
			case "content":
				content = attr.Val
			case "charset":
				charsetAttr = attr.Val
			}
		}
		if charsetAttr != "" {
			return charsetAttr
		}
		if httpEquiv == "content-type" && content != "" {
			for _, part := range strings.Split(content, ";") {
				part = strings.TrimSpace(part)
				if strings.HasPrefix(strings.ToLower(part), "charset=") {
					return strings.TrimPrefix(strings.ToLower(part), "charset=")
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if cs := findMetaCharset(c); cs != "" {
			return cs
		}
	}
	return ""
}

func convertToUTF8(body []byte, charsetName string) ([]byte, error) {
	charsetName = strings.ToLower(strings.TrimSpace(charsetName))
	if charsetName == "" || charsetName == "utf-8" || charsetName == "utf8" {
		return body, nil
	}

	enc, err := htmlindex.Get(charsetName)
	if err != nil {
		return body, nil
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body, nil
	}
	return decoded, nil
}
