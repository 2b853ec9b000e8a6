// Command docscan runs one DocScan pipeline: discover candidate URLs,
// download each one, analyze whatever format it turns out to be, and
// write the fused report log. It mirrors the shape of the teacher's own
// CLI entry point — flag-parsed configuration, a leveled logger, a
// signal-driven graceful shutdown — wired to DocScan's own stages instead
// of a web-comment crawler's.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"docscan/internal/config"
	"docscan/internal/discoverer"
	"docscan/internal/downloader"
	"docscan/internal/filefinder"
	"docscan/internal/httpfetch"
	"docscan/internal/language"
	"docscan/internal/logging"
	"docscan/internal/pdfpipeline"
	"docscan/internal/pipeline"
)

// cliFlags is this command's surface; spec.md §1 excludes the concrete
// shape of the command line itself from what's being specified, but a
// real run still needs one to pick a Discoverer/Downloader pair and
// point every component's tunables somewhere.
type cliFlags struct {
	DiscovererMode string // "crawl", "fs", "replay"
	DownloaderMode string // "url", "fake", "replay"

	SeedURL         string
	FSRoot          string
	ReplayLogPath   string
	RequiredContent string
	FilterGlobs     string // comma-separated globs, e.g. "*.pdf,*.docx"
	Quota           int

	DownloadDir     string
	LogDir          string
	LogFilePath     string
	FilenamePattern string

	MaxParallelDownloads int
	MaxParallelPerHost   int
	MaxVisitedPages      int
	MaxConcurrentAnalyze int

	UserAgent string

	VeraPDFPath          string
	JHoveShellscript     string
	PDFBoxValidatorClass string
	CallasPdfAPilotPath  string
	TextExtraction       string // "none", "aspell", "fulltext"

	AspellPath         string
	AspellDictionaries string // comma-separated

	LogLevel string
	LogJSON  bool
}

func parseFlags() (*cliFlags, error) {
	f := &cliFlags{}

	flag.StringVar(&f.DiscovererMode, "discoverer", "fs", "discoverer mode: crawl, fs, replay")
	flag.StringVar(&f.DownloaderMode, "downloader", "fake", "downloader mode: url, fake, replay")

	flag.StringVar(&f.SeedURL, "seed", "", "seed URL for crawl mode")
	flag.StringVar(&f.FSRoot, "root", ".", "root directory for fs mode")
	flag.StringVar(&f.ReplayLogPath, "replay-log", "", "previous run's XML log, for replay discoverer/downloader modes")
	flag.StringVar(&f.RequiredContent, "required-content", "", "substring a crawled page must contain before its links are followed")
	flag.StringVar(&f.FilterGlobs, "filters", "*.pdf", "comma-separated filename glob filters")
	flag.IntVar(&f.Quota, "quota", 0, "total hit quota across all filters (0 = unlimited)")

	flag.StringVar(&f.DownloadDir, "download-dir", "./data/downloads", "directory downloaded files are saved under")
	flag.StringVar(&f.LogDir, "log-dir", "./data/logs", "directory operational logs are written under")
	flag.StringVar(&f.LogFilePath, "log-file", "./data/logs/docscan.xml", "path the fused XML report is written to")
	flag.StringVar(&f.FilenamePattern, "filename-pattern", "%{h:8}_%{s}", "downloaded filename pattern")

	flag.IntVar(&f.MaxParallelDownloads, "max-parallel-downloads", 16, "global download concurrency cap")
	flag.IntVar(&f.MaxParallelPerHost, "max-parallel-per-host", 4, "per-host download concurrency cap")
	flag.IntVar(&f.MaxVisitedPages, "max-visited-pages", 32768, "crawl mode's visited-page cap")
	flag.IntVar(&f.MaxConcurrentAnalyze, "max-concurrent-analyses", 8, "file analysis concurrency cap")

	flag.StringVar(&f.UserAgent, "user-agent", "", "HTTP User-Agent header (empty uses the config default)")

	flag.StringVar(&f.VeraPDFPath, "verapdf", "", "path to the veraPDF executable (empty disables it)")
	flag.StringVar(&f.JHoveShellscript, "jhove", "", "path to the jhove shellscript (empty disables it)")
	flag.StringVar(&f.PDFBoxValidatorClass, "pdfbox-validator-class", "", "pdfboxValidator classpath entry (empty disables it)")
	flag.StringVar(&f.CallasPdfAPilotPath, "callas-pdfapilot", "", "path to the callasPdfAPilot executable (empty disables it)")
	flag.StringVar(&f.TextExtraction, "text-extraction", "none", "PDF body text level fed to the report: none, aspell, fulltext")

	flag.StringVar(&f.AspellPath, "aspell-path", "", "path to aspell (empty uses its own default)")
	flag.StringVar(&f.AspellDictionaries, "aspell-dictionaries", "en,de,fr,es", "comma-separated aspell dictionary candidates")

	flag.StringVar(&f.LogLevel, "log-level", "INFO", "operational log level: TRACE, INFO, WARN, ERROR")
	flag.BoolVar(&f.LogJSON, "log-json", false, "emit operational logs as JSON")

	flag.Parse()

	switch f.DiscovererMode {
	case "crawl":
		if f.SeedURL == "" {
			return nil, fmt.Errorf("-seed is required for -discoverer=crawl")
		}
	case "fs":
	case "replay":
		if f.ReplayLogPath == "" {
			return nil, fmt.Errorf("-replay-log is required for -discoverer=replay")
		}
	default:
		return nil, fmt.Errorf("unknown -discoverer mode %q", f.DiscovererMode)
	}

	switch f.DownloaderMode {
	case "url", "fake":
	case "replay":
		if f.ReplayLogPath == "" {
			return nil, fmt.Errorf("-replay-log is required for -downloader=replay")
		}
	default:
		return nil, fmt.Errorf("unknown -downloader mode %q", f.DownloaderMode)
	}

	return f, nil
}

// buildConfig folds the flag-parsed tunables this command owns into the
// one Config struct every component is constructed from.
func buildConfig(f *cliFlags) *config.Config {
	cfg := config.Default()
	cfg.DownloadDir = f.DownloadDir
	cfg.LogDir = f.LogDir
	cfg.LogFilePath = f.LogFilePath
	cfg.FilenamePattern = f.FilenamePattern
	cfg.MaxParallelDownloads = f.MaxParallelDownloads
	cfg.MaxParallelPerHost = f.MaxParallelPerHost
	cfg.MaxVisitedPages = f.MaxVisitedPages
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	cfg.VeraPDFPath = f.VeraPDFPath
	cfg.JHoveShellscript = f.JHoveShellscript
	cfg.PDFBoxValidatorClass = f.PDFBoxValidatorClass
	cfg.CallasPdfAPilotPath = f.CallasPdfAPilotPath
	cfg.AspellPath = f.AspellPath
	cfg.AspellDictionaries = splitNonEmpty(f.AspellDictionaries)
	cfg.LogLevel = f.LogLevel
	cfg.LogJSON = f.LogJSON
	return cfg
}

func splitNonEmpty(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func buildFilters(csv string) ([]*filefinder.Filter, error) {
	globs := splitNonEmpty(csv)
	if len(globs) == 0 {
		return nil, fmt.Errorf("no filename filters configured")
	}
	filters := make([]*filefinder.Filter, 0, len(globs))
	for _, g := range globs {
		filter, err := filefinder.NewFilter(g)
		if err != nil {
			return nil, fmt.Errorf("compiling filter %q: %w", g, err)
		}
		filters = append(filters, filter)
	}
	return filters, nil
}

func buildDiscoverer(f *cliFlags, filters []*filefinder.Filter, client *httpfetch.Client, logger *logging.Logger, cfg *config.Config) (discoverer.Discoverer, error) {
	switch f.DiscovererMode {
	case "crawl":
		base, err := url.Parse(f.SeedURL)
		if err != nil {
			return nil, fmt.Errorf("parsing -seed: %w", err)
		}
		// Reuses the download concurrency cap as the crawl's own fetch
		// concurrency: both bound how many outstanding network
		// operations this process runs at once, and Config has no
		// separate dial for the two.
		return discoverer.NewWebCrawler(base, filters, client, logger, f.RequiredContent,
			cfg.MaxParallelDownloads, cfg.MaxVisitedPages, cfg.BaseRequestTimeout), nil
	case "fs":
		return discoverer.NewFilesystemScanner(f.FSRoot, filters, logger), nil
	case "replay":
		r, err := os.Open(f.ReplayLogPath)
		if err != nil {
			return nil, fmt.Errorf("opening -replay-log: %w", err)
		}
		return discoverer.NewLogReplay(r, filters, logger), nil
	default:
		return nil, fmt.Errorf("unknown -discoverer mode %q", f.DiscovererMode)
	}
}

// downloaderEngine is the narrow surface pipeline.New needs from
// whichever Downloader variant is selected.
type downloaderEngine interface {
	Start(ctx context.Context) downloader.Events
}

// submitter mirrors pipeline's own unexported interface of the same
// name; declared again here because Go interfaces are structural and
// main has no need to import pipeline's internals to satisfy it.
type submitter interface {
	Submit(ctx context.Context, hit filefinder.CandidateHit)
	Close()
	FinalReport() string
}

func buildDownloader(f *cliFlags, client *httpfetch.Client, logger *logging.Logger, cfg *config.Config) (downloaderEngine, submitter, error) {
	switch f.DownloaderMode {
	case "url":
		d := downloader.NewUrlDownloader(cfg, client, logger)
		return d, d, nil
	case "fake":
		d := downloader.NewFakeDownloader(logger)
		return d, d, nil
	case "replay":
		r, err := os.Open(f.ReplayLogPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening -replay-log: %w", err)
		}
		return downloader.NewLogReplayDownloader(r, logger), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown -downloader mode %q", f.DownloaderMode)
	}
}

// asLanguageGuesser adapts a possibly-nil *language.Guesser to the
// narrow interface pdfpipeline.New expects, returning a genuinely nil
// interface value (not an interface wrapping a nil pointer) when g is
// nil — pdfpipeline.Orchestrator checks "languager != nil" to decide
// whether to skip language guessing entirely, a check that a nil
// *language.Guesser assigned directly to an interface parameter would
// silently defeat.
func asLanguageGuesser(g *language.Guesser) interface {
	Guess(ctx context.Context, text string) (string, error)
} {
	if g == nil {
		return nil
	}
	return g
}

func textExtractionLevel(s string) (pdfpipeline.TextExtractionLevel, error) {
	switch s {
	case "none":
		return pdfpipeline.TextExtractionNone, nil
	case "aspell":
		return pdfpipeline.TextExtractionAspell, nil
	case "fulltext":
		return pdfpipeline.TextExtractionFullText, nil
	default:
		return 0, fmt.Errorf("unknown -text-extraction level %q", s)
	}
}

func main() {
	flags, err := parseFlags()
	if err != nil {
		log.Fatalf("invalid flags: %v", err)
	}

	cfg := buildConfig(flags)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogJSON, os.Stderr)

	filters, err := buildFilters(flags.FilterGlobs)
	if err != nil {
		logger.Error("failed to build filters", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}

	client := httpfetch.New(cfg, logger)

	disc, err := buildDiscoverer(flags, filters, client, logger, cfg)
	if err != nil {
		logger.Error("failed to build discoverer", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}

	dl, sub, err := buildDownloader(flags, client, logger, cfg)
	if err != nil {
		logger.Error("failed to build downloader", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}

	textLevel, err := textExtractionLevel(flags.TextExtraction)
	if err != nil {
		logger.Error("failed to configure text extraction", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}

	var languager *language.Guesser
	if textLevel != pdfpipeline.TextExtractionNone {
		languager = language.New(cfg.AspellPath, cfg.AspellDictionaries, cfg.BaseRequestTimeout, logger)
	}

	orchestrator := pdfpipeline.New(pdfpipeline.NewToolConfig(cfg), logger, asLanguageGuesser(languager), textLevel)

	eng := pipeline.New(disc, dl, sub, orchestrator, filters, flags.MaxConcurrentAnalyze, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", logging.Fields{"signal": sig.String()})
		cancel()
	}()

	runCtx, runCancel := context.WithTimeout(ctx, 24*time.Hour)
	defer runCancel()

	if err := eng.Run(runCtx, flags.Quota, cfg.LogFilePath); err != nil {
		logger.Error("pipeline run failed", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}

	logger.Info("pipeline run completed successfully", nil)
}
