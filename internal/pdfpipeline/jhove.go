package pdfpipeline

import (
	"context"
	"strconv"
	"strings"

	"docscan/internal/xmlutil"
)

// jhoveResult is what one jhove run against a file produced. The boolean
// flags are derived from the "Status:"/"Profile:" lines of jhove's text
// report, not from its exit code, which is not a reliable well-formedness
// signal for this tool.
type jhoveResult struct {
	Configured bool
	Started    bool
	ExitCode   int
	IsPDF      bool
	Wellformed bool
	Valid      bool
	Version    string
	Profile    string
	Stdout     string
	Stderr     string
}

// runJHove invokes the configured jhove shellscript against path and
// classifies its text report.
func (o *Orchestrator) runJHove(ctx context.Context, tools ToolConfig, path string) jhoveResult {
	if tools.JHoveShellscript == "" {
		return jhoveResult{Configured: false}
	}

	program, args := niceCommand(tools.JHoveShellscript, "-m", "PDF-hul", path)
	res := o.run(ctx, tools.JHoveDeadline, "", program, args)
	if !res.Started {
		return jhoveResult{Configured: true, Started: false, ExitCode: res.ExitCode}
	}

	jr := jhoveResult{Configured: true, Started: true, ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}

	// jhove's report is line-oriented; flattening newlines to a single
	// marker makes the Status/Version/Profile extraction below a single
	// plain substring search instead of a line-by-line scan.
	flat := strings.ReplaceAll(res.Stdout, "\n", "###")

	jr.IsPDF = strings.Contains(flat, "Format: PDF")

	if idx := strings.Index(flat, "Status: "); idx >= 0 {
		rest := flat[idx+len("Status: "):]
		if end := strings.Index(rest, "###"); end >= 0 {
			rest = rest[:end]
		}
		jr.Wellformed = strings.Contains(rest, "Well-Formed")
		jr.Valid = strings.Contains(rest, "valid")
	}

	if idx := strings.Index(flat, "Version: "); idx >= 0 {
		rest := flat[idx+len("Version: "):]
		if end := strings.Index(rest, "###"); end >= 0 {
			rest = rest[:end]
		}
		jr.Version = strings.TrimSpace(rest)
	}

	if idx := strings.Index(flat, "Profile: "); idx >= 0 {
		rest := flat[idx+len("Profile: "):]
		if end := strings.Index(rest, "###"); end >= 0 {
			rest = rest[:end]
		}
		jr.Profile = strings.TrimSpace(rest)
	}

	return jr
}

// jhoveXML emits jhove's unconditional report slot.
func jhoveXML(j jhoveResult) string {
	if !j.Configured {
		return "<jhove><info>not configured</info></jhove>\n"
	}
	if !j.Started {
		return "<jhove><error>failed to start</error></jhove>\n"
	}

	var sb strings.Builder
	sb.WriteString("<jhove exitcode=\"")
	sb.WriteString(strconv.Itoa(j.ExitCode))
	sb.WriteString("\" ispdf=\"")
	sb.WriteString(yesno(j.IsPDF))
	sb.WriteString("\" wellformed=\"")
	sb.WriteString(yesno(j.Wellformed))
	sb.WriteString("\" valid=\"")
	sb.WriteString(yesno(j.Valid))
	sb.WriteString("\"")
	if j.Version != "" {
		sb.WriteString(" version=\"")
		sb.WriteString(xmlutil.Xmlify(j.Version))
		sb.WriteString("\"")
	}
	if j.Profile != "" {
		sb.WriteString(" profile=\"")
		sb.WriteString(xmlutil.Xmlify(j.Profile))
		sb.WriteString("\"")
	}
	sb.WriteString(">\n")
	if j.Stdout != "" {
		sb.WriteString(xmlutil.FormatMap("output", map[string]string{"": strings.ReplaceAll(j.Stdout, "###", "\n")}, []string{""}))
	} else if j.Stderr != "" {
		sb.WriteString(xmlutil.FormatMap("error", map[string]string{"": j.Stderr}, []string{""}))
	}
	sb.WriteString("</jhove>\n")
	return sb.String()
}
