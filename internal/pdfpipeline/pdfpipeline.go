// Package pdfpipeline implements the PDF forensics orchestrator: for
// every downloaded PDF it drives up to four external validators
// (veraPDF, jhove, pdfboxValidator, callasPdfAPilot) alongside an
// in-process library inspection, and fuses everything into a single
// <fileanalysis> XML record. Ported from FileAnalyzerPDF::analyzeFile,
// the hardest single component of the original pipeline.
package pdfpipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/tiendc/go-deepcopy"

	"docscan/internal/config"
	"docscan/internal/logging"
	"docscan/internal/pdflib"
	"docscan/internal/xmlutil"
)

// niceArgs is prepended to every external tool invocation: CPU niceness
// 17, IO scheduling class 3 (idle), matching the original's
// defaultArgumentsForNice exactly so existing log readers that expect
// these argv entries keep working.
var niceArgs = []string{"-n", "17", "ionice", "-c", "3"}

const niceProgram = "/usr/bin/nice"

// largeFileThreshold is the size above which AnalyzeFile doubles the
// jhove and pdfbox deadlines on its cloned ToolConfig: both tools have
// been observed to need longer on multi-hundred-page scans, and the
// per-call deadlines are otherwise tuned for typical web-harvested PDFs.
const largeFileThreshold = 64 * 1024 * 1024

// ToolConfig names the external validators and the deadline each gets
// for a single run. An empty path means the tool is not configured;
// the orchestrator still emits that tool's unconditional <info> slot.
type ToolConfig struct {
	VeraPDFPath          string
	JHoveShellscript     string
	PDFBoxValidatorClass string
	CallasPdfAPilotPath  string

	VeraPDFDeadline time.Duration
	JHoveDeadline   time.Duration
	PDFBoxDeadline  time.Duration
	CallasDeadline  time.Duration
}

// NewToolConfig builds a ToolConfig from a validated Config.
func NewToolConfig(cfg *config.Config) ToolConfig {
	return ToolConfig{
		VeraPDFPath:          cfg.VeraPDFPath,
		JHoveShellscript:     cfg.JHoveShellscript,
		PDFBoxValidatorClass: cfg.PDFBoxValidatorClass,
		CallasPdfAPilotPath:  cfg.CallasPdfAPilotPath,
		VeraPDFDeadline:      cfg.VeraPDFDeadline,
		JHoveDeadline:        cfg.JHoveDeadline,
		PDFBoxDeadline:       cfg.PDFBoxDeadline,
		CallasDeadline:       cfg.CallasDeadline,
	}
}

// toolResult is what running one external validator produces: whether
// the process actually started, its exit code (math.MinInt32 if it
// never ran), and its captured output streams.
type toolResult struct {
	Started  bool
	ExitCode int
	Stdout   string
	Stderr   string
}

const notRun = -1 << 31

// runFunc executes program with args under a deadline derived from ctx,
// optionally inside dir (empty string inherits the current directory),
// and is swapped out in tests so orchestrator fusion logic can be
// exercised without real veraPDF/jhove/pdfbox/callas binaries on disk.
type runFunc func(ctx context.Context, deadline time.Duration, dir, program string, args []string) toolResult

func realRun(ctx context.Context, deadline time.Duration, dir, program string, args []string) toolResult {
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	cmd := exec.CommandContext(runCtx, program, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return toolResult{Started: false, ExitCode: notRun}
	}
	err := cmd.Wait()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	return toolResult{Started: true, ExitCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}
}

// Orchestrator drives the four external validators and the pdflib
// inspection for one PDF at a time; it holds no per-file state, so a
// single Orchestrator may run many AnalyzeFile calls concurrently.
type Orchestrator struct {
	tools     ToolConfig
	logger    *logging.Logger
	run       runFunc
	openDoc   func(path string) (pdflib.Document, error)
	languager languageGuesser
	textLevel TextExtractionLevel
}

// languageGuesser is the subset of internal/language.Guesser this
// package depends on; kept as a local interface so pdfpipeline does not
// import internal/language, avoiding a cycle risk as that package grows
// its own dependency on pdfpipeline's ToolConfig clone pattern.
type languageGuesser interface {
	Guess(ctx context.Context, text string) (string, error)
}

// TextExtractionLevel mirrors the original's global teNone/teAspell/
// teFullText tri-state: how much of the document body ends up in the
// fused record.
type TextExtractionLevel int

const (
	TextExtractionNone TextExtractionLevel = iota
	TextExtractionAspell
	TextExtractionFullText
)

// New builds an Orchestrator. logger may be logging.Nop() in tests.
// languager may be nil to skip language guessing entirely.
func New(tools ToolConfig, logger *logging.Logger, languager languageGuesser, textLevel TextExtractionLevel) *Orchestrator {
	return &Orchestrator{
		tools:     tools,
		logger:    logger,
		run:       realRun,
		openDoc:   pdflib.Open,
		languager: languager,
		textLevel: textLevel,
	}
}

// AnalyzeFile drives every configured validator plus the library
// inspection for the PDF at path and returns the fused <fileanalysis>
// record. It never returns an error: every failure mode the original
// distinguishes — a validator that failed to start, timed out, or
// produced malformed output — is folded into the record itself, per the
// "no fatal errors other than configuration impossibilities" rule.
func (o *Orchestrator) AnalyzeFile(ctx context.Context, path string) string {
	start := time.Now()

	tools := o.tools
	if fi, err := os.Stat(path); err == nil && fi.Size() > largeFileThreshold {
		var cloned ToolConfig
		if err := deepcopy.Copy(&cloned, &o.tools); err == nil {
			cloned.JHoveDeadline *= 2
			cloned.PDFBoxDeadline *= 2
			tools = cloned
		}
	}

	// The four validators share nothing and are launched together, exactly
	// as the original's analyzeFile starts all four QProcesses before
	// waiting on any of them.
	var vera veraResult
	var callas callasResult
	var jhove jhoveResult
	var pdfbox pdfboxResult
	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); vera = o.runVeraPDF(ctx, tools, path) }()
	go func() { defer wg.Done(); callas = o.runCallas(ctx, tools, path) }()
	go func() { defer wg.Done(); jhove = o.runJHove(ctx, tools, path) }()
	go func() { defer wg.Done(); pdfbox = o.runPDFBox(ctx, tools, path) }()
	wg.Wait()

	externalTime := time.Since(start)

	doc, err := o.openDoc(path)
	libraryOK := err == nil
	var fileformatFragment, header, body string
	var toolsFragment, fontsFragment string
	if libraryOK {
		defer doc.Close()
		fileformatFragment = fileformatXML(doc)
		toolsFragment = toolsXML(doc)
		fontsFragment = fontsXML(doc)
		header, body = o.headerAndBodyXML(ctx, doc)
	}

	metaText := fileformatFragment + toolsFragment + fontsFragment
	metaText += jhoveXML(jhove)
	metaText += veraPDFXML(vera)
	metaText += pdfboxXML(pdfbox)
	metaText += callasXML(callas)

	var fi os.FileInfo
	var size int64
	if fi, err = os.Stat(path); err == nil {
		size = fi.Size()
	}
	metaText += fmt.Sprintf("<file size=\"%d\" />\n", size)

	var logText strings.Builder
	logText.WriteString(header)
	if body != "" {
		logText.WriteString(body)
	}
	logText.WriteString("<meta>\n")
	logText.WriteString(metaText)
	logText.WriteString("</meta>\n")

	elapsed := time.Since(start)

	recognized := libraryOK || jhove.IsPDF || pdfbox.ValidPDFA1b
	if !recognized {
		return fmt.Sprintf(
			"<fileanalysis filename=\"%s\" message=\"invalid-fileformat\" status=\"error\" external_time=\"%d\"><meta><file size=\"%d\" /></meta></fileanalysis>\n",
			xmlutil.Xmlify(path), externalTime.Milliseconds(), size)
	}

	return fmt.Sprintf("<fileanalysis filename=\"%s\" status=\"ok\" time=\"%d\" external_time=\"%d\">\n%s</fileanalysis>\n",
		xmlutil.Xmlify(path), elapsed.Milliseconds(), externalTime.Milliseconds(), logText.String())
}

// niceCommand prepends the nice/ionice wrapper to the given tool
// invocation, returning the program and argv realRun/run should execute.
func niceCommand(toolArgs ...string) (string, []string) {
	args := make([]string, 0, len(niceArgs)+len(toolArgs))
	args = append(args, niceArgs...)
	args = append(args, toolArgs...)
	return niceProgram, args
}

// indexFrom mimics QString::indexOf(needle, from): searches haystack for
// needle starting no earlier than index from, clamping a negative from
// to 0 (the original's arithmetic can produce p-64 < 0 for a match near
// the start of the buffer; Qt's own negative-from semantics count from
// the end of the string, which is never the original author's intent
// here, so the clamp is the sane reading).
func indexFrom(haystack, needle string, from int) int {
	if from < 0 {
		from = 0
	}
	if from > len(haystack) {
		return -1
	}
	idx := strings.Index(haystack[from:], needle)
	if idx < 0 {
		return -1
	}
	return idx + from
}
