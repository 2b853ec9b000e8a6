package pdfpipeline

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
)

// pdfboxResult is what one pdfboxValidator run against a file produced.
type pdfboxResult struct {
	Configured  bool
	Started     bool
	ExitCode    int
	ValidPDFA1b bool
	Stdout      string
	Stderr      string
}

// runPDFBox invokes Apache PDFBox's preflight validator class, with every
// jar under tools.PDFBoxValidatorClass's directory on the classpath: the
// original ships pdfboxValidator as a directory of jars plus a single
// entry-point class name rather than a runnable fat jar.
func (o *Orchestrator) runPDFBox(ctx context.Context, tools ToolConfig, path string) pdfboxResult {
	if tools.PDFBoxValidatorClass == "" {
		return pdfboxResult{Configured: false}
	}

	dir := filepath.Dir(tools.PDFBoxValidatorClass)
	classpath := filepath.Join(dir, "*")
	className := filepath.Base(tools.PDFBoxValidatorClass)

	program, args := niceCommand("java", "-cp", classpath, className, path)
	res := o.run(ctx, tools.PDFBoxDeadline, dir, program, args)
	if !res.Started {
		return pdfboxResult{Configured: true, Started: false, ExitCode: res.ExitCode}
	}

	return pdfboxResult{
		Configured:  true,
		Started:     true,
		ExitCode:    res.ExitCode,
		ValidPDFA1b: strings.Contains(res.Stdout, "is a valid PDF/A-1b file"),
		Stdout:      res.Stdout,
		Stderr:      res.Stderr,
	}
}

// pdfboxXML emits pdfboxValidator's unconditional report slot.
func pdfboxXML(p pdfboxResult) string {
	if !p.Configured {
		return "<pdfboxvalidator><info>not configured</info></pdfboxvalidator>\n"
	}
	if !p.Started {
		return "<pdfboxvalidator><error>failed to start</error></pdfboxvalidator>\n"
	}

	var sb strings.Builder
	sb.WriteString("<pdfboxvalidator exitcode=\"")
	sb.WriteString(strconv.Itoa(p.ExitCode))
	sb.WriteString("\" pdfa1b=\"")
	sb.WriteString(yesno(p.ValidPDFA1b))
	sb.WriteString("\" />\n")
	return sb.String()
}
