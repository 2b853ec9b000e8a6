// Package config holds the single Config struct every DocScan component is
// constructed from, and the Validate method that range-checks it and
// creates any directories it names. Flag parsing itself lives in cmd/docscan;
// this package only owns the struct's shape and its invariants.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config is the one struct threaded through every stage of a DocScan run:
// the discoverer, the downloader, the PDF forensics orchestrator and the
// logger are all constructed from fields of a single validated Config.
type Config struct {
	// Parallelism (spec §5 concurrency model)
	MaxParallelDownloads int
	MaxParallelPerHost   int
	MaxVisitedPages       int

	// Timeouts
	BaseRequestTimeout   time.Duration // fixed part of the discoverer's 10s+1s*n formula
	PerDownloadTimeout   time.Duration
	VeraPDFDeadline      time.Duration
	JHoveDeadline        time.Duration
	PDFBoxDeadline       time.Duration
	CallasDeadline       time.Duration

	// HTTP
	UserAgent    string
	MaxRedirects int
	MaxBodySize  int64

	// Directories
	DownloadDir string
	LogDir      string

	// Output
	FilenamePattern string // e.g. "%{h:8}_%{s}"
	LogFilePath     string

	// Logging
	LogLevel string
	LogJSON  bool

	// Language guessing
	AspellPath         string // empty uses language.Guesser's own default
	AspellDictionaries []string

	// PDF forensics orchestrator: pathnames of external validators. Empty
	// means "not configured to run" — the orchestrator still emits that
	// tool's <info>not configured</info> slot.
	VeraPDFPath          string
	JHoveShellscript     string
	PDFBoxValidatorClass string
	CallasPdfAPilotPath  string
}

// Default returns a Config with the same conservative defaults the
// original implementation's command-line tool shipped with.
func Default() *Config {
	return &Config{
		MaxParallelDownloads: 16,
		MaxParallelPerHost:   4,
		MaxVisitedPages:      32768,

		BaseRequestTimeout: 10 * time.Second,
		PerDownloadTimeout: 120 * time.Second,
		VeraPDFDeadline:    6 * time.Minute,
		JHoveDeadline:      4 * time.Minute,
		PDFBoxDeadline:     2 * time.Minute,
		CallasDeadline:     2 * time.Minute,

		UserAgent:    "DocScan/1.0 (+file format forensics crawler)",
		MaxRedirects: 10,
		MaxBodySize:  50 * 1024 * 1024,

		DownloadDir: "./data/downloads",
		LogDir:      "./data/logs",

		FilenamePattern: "%{h:8}_%{s}",
		LogFilePath:     "./data/logs/docscan.xml",

		LogLevel: "INFO",
		LogJSON:  false,

		AspellDictionaries: []string{"en", "de", "fr", "es"},
	}
}

// Validate range-checks every field, clamping the ones with a sane
// fallback and rejecting the ones that can't be fixed up silently, and
// creates DownloadDir/LogDir if they don't already exist.
func (c *Config) Validate() error {
	if c.MaxParallelDownloads < 1 {
		return fmt.Errorf("config: MaxParallelDownloads must be >= 1, got %d", c.MaxParallelDownloads)
	}
	if c.MaxParallelPerHost < 1 {
		c.MaxParallelPerHost = 1
	}
	if c.MaxParallelPerHost > c.MaxParallelDownloads {
		c.MaxParallelPerHost = c.MaxParallelDownloads
	}
	if c.MaxVisitedPages < 1 {
		return fmt.Errorf("config: MaxVisitedPages must be >= 1, got %d", c.MaxVisitedPages)
	}

	if c.BaseRequestTimeout <= 0 {
		c.BaseRequestTimeout = 10 * time.Second
	}
	if c.PerDownloadTimeout <= 0 {
		c.PerDownloadTimeout = 120 * time.Second
	}
	if c.VeraPDFDeadline <= 0 || c.JHoveDeadline <= 0 || c.PDFBoxDeadline <= 0 || c.CallasDeadline <= 0 {
		return fmt.Errorf("config: PDF tool deadlines must all be positive")
	}

	if c.UserAgent == "" {
		return fmt.Errorf("config: UserAgent must not be empty")
	}
	if c.MaxRedirects < 0 {
		c.MaxRedirects = 0
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = 50 * 1024 * 1024
	}

	if c.FilenamePattern == "" {
		return fmt.Errorf("config: FilenamePattern must not be empty")
	}

	for _, dir := range []string{c.DownloadDir, c.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: failed to create directory %s: %w", dir, err)
		}
	}

	if len(c.AspellDictionaries) == 0 {
		c.AspellDictionaries = []string{"en"}
	}

	return nil
}
