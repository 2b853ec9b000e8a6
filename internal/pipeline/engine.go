// Package pipeline wires the three stages spec.md §2 calls out —
// Discovery, Acquisition, Analysis — into the running graph: a
// Discoverer's hits feed a Downloader, every successful download feeds
// the PDF forensics orchestrator or the other-format analyzers depending
// on what the bytes turn out to be, and every stage's report fragments
// land on one LogCollector. A Watchdog declares the run over once every
// stage has quiesced, at which point the collected log is sealed to disk.
//
// This is the component spec.md §2's table calls "the engine" and leaves
// unnamed as a type; pavuk5_refactored.go's MainCrawler/DomainCrawler
// dispatcher-loop shape is the model, adapted from its polling-based
// shutdown to the done-channel model internal/watchdog implements.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"docscan/internal/discoverer"
	"docscan/internal/downloader"
	"docscan/internal/filefinder"
	"docscan/internal/logcollector"
	"docscan/internal/logging"
	"docscan/internal/pdfpipeline"
	"docscan/internal/watchdog"
)

// submitter is the subset of UrlDownloader/FakeDownloader's surface the
// engine needs to hand a Discoverer's hits to a Downloader.
// LogReplayDownloader deliberately does not implement this — it takes no
// external input — so an Engine built around one carries a nil submitter
// and simply never calls into it.
type submitter interface {
	Submit(ctx context.Context, hit filefinder.CandidateHit)
	Close()
	FinalReport() string
}

// Engine runs one Discoverer against one Downloader, analyzes every
// successful download, and collects every stage's report fragments into
// a single log. maxConcurrentAnalyses bounds how many files are analyzed
// at once, independent of the download parallelism cap that governs how
// many files are in flight to disk.
type Engine struct {
	disc        discoverer.Discoverer
	dl          interface{ Start(ctx context.Context) downloader.Events }
	sub         submitter
	analyzer    *fileAnalyzer
	log         *logcollector.LogCollector
	logger      *logging.Logger
	watchdog    *watchdog.Watchdog
	maxAnalyses int
}

// New builds an Engine. sub may be nil when dl is a LogReplayDownloader
// (or any other Downloader that takes no Submit calls); orchestrator may
// be nil to skip PDF forensics entirely and send every downloaded file
// through the other-format analyzers.
func New(
	disc discoverer.Discoverer,
	dl interface{ Start(ctx context.Context) downloader.Events },
	sub submitter,
	orchestrator *pdfpipeline.Orchestrator,
	filters []*filefinder.Filter,
	maxConcurrentAnalyses int,
	logger *logging.Logger,
) *Engine {
	if maxConcurrentAnalyses < 1 {
		maxConcurrentAnalyses = 1
	}
	return &Engine{
		disc:        disc,
		dl:          dl,
		sub:         sub,
		analyzer:    newFileAnalyzer(orchestrator, filters),
		log:         logcollector.New(),
		logger:      logger,
		watchdog:    watchdog.New(),
		maxAnalyses: maxConcurrentAnalyses,
	}
}

// Log returns the engine's LogCollector, so a caller can inspect it
// mid-run (tests) or after Run returns (cmd/docscan's final WriteOut).
func (e *Engine) Log() *logcollector.LogCollector {
	return e.log
}

// Run starts every stage, pumps events between them until both the
// Discoverer and the Downloader have quiesced and every in-flight file
// analysis has finished, then writes the collected log out to logPath.
// It returns once the log has been written, or ctx's error if canceled
// first (in which case no log is written — the caller owns deciding
// whether a partial run is worth persisting).
func (e *Engine) Run(ctx context.Context, quota int, logPath string) error {
	e.logger.Info("pipeline run starting", logging.Fields{"quota": quota, "logPath": logPath})

	discEvents := e.disc.Start(ctx, quota)
	dlEvents := e.dl.Start(ctx)

	e.watchdog.Watch(discEvents.Done)
	e.watchdog.Watch(dlEvents.Done)

	var analysisWG sync.WaitGroup
	analysisDone := make(chan struct{})
	e.watchdog.Watch(analysisDone)

	go e.pumpReports(ctx, "discoverer", discEvents.Reports)
	go e.pumpReports(ctx, "downloader", dlEvents.Reports)
	go e.pumpHits(ctx, discEvents.Hits)
	go e.pumpDownloads(ctx, dlEvents.Downloaded, &analysisWG, analysisDone)

	err := e.watchdog.AwaitAll(ctx, func() error {
		if e.sub != nil {
			e.log.Submit("downloader", e.sub.FinalReport())
		}
		e.logger.Info("pipeline quiesced, sealing log", logging.Fields{"items": e.log.Len()})
		return e.log.WriteOut(logPath)
	})
	if err != nil {
		e.logger.Error("pipeline run failed", logging.Fields{"error": err.Error()})
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

// pumpHits forwards every Discoverer hit into the Downloader, closing
// the Downloader's input once the Discoverer has emitted its last one.
// When sub is nil (a self-contained Downloader like LogReplayDownloader)
// there is nothing to forward to and the hits channel is simply drained.
func (e *Engine) pumpHits(ctx context.Context, hits <-chan filefinder.CandidateHit) {
	for hit := range hits {
		if e.sub != nil {
			e.sub.Submit(ctx, hit)
		}
	}
	if e.sub != nil {
		e.sub.Close()
	}
}

// pumpReports tags every report fragment from source with its producer
// and hands it to the LogCollector, in arrival order.
func (e *Engine) pumpReports(ctx context.Context, source string, reports <-chan string) {
	for r := range reports {
		e.log.Submit(source, r)
	}
}

// pumpDownloads fans each successful download out to a bounded pool of
// analysis workers and submits the resulting <fileanalysis> record to
// the LogCollector. done is closed once the downloaded channel has
// closed and every spawned analysis has finished — the two conditions
// watchdog.AwaitAll must see together before it is safe to seal the log.
func (e *Engine) pumpDownloads(ctx context.Context, downloaded <-chan downloader.Downloaded, wg *sync.WaitGroup, done chan struct{}) {
	sem := make(chan struct{}, e.maxAnalyses)
	for d := range downloaded {
		d := d
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			record := e.analyzer.analyze(ctx, d.LocalPath, sourceURLTag(d.URL))
			e.logger.Trace("file analyzed", logging.Fields{"path": d.LocalPath, "url": d.URL})
			e.log.Submit("fileanalyzer", record)
		}()
	}
	wg.Wait()
	close(done)
}

// pdfMagic is the byte prefix the original's WebCrawler also checks to
// force-classify a response as a PDF regardless of its URL's extension
// (spec.md §4.1's "%PDF-1." override); the engine reuses the same
// signature to decide, on the downloaded bytes themselves, whether a
// file belongs to the PDF orchestrator or the other-format analyzers.
var pdfMagic = []byte("%PDF-1.")

func looksLikePDF(head []byte) bool {
	return len(head) >= len(pdfMagic) && string(head[:len(pdfMagic)]) == string(pdfMagic)
}

func sourceURLTag(urlStr string) string {
	if i := strings.LastIndexByte(urlStr, '/'); i >= 0 && i+1 < len(urlStr) {
		return urlStr[i+1:]
	}
	return urlStr
}
