package pdfpipeline

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"docscan/internal/xmlutil"
)

// callasSecondPassDeadline is the wait callasPdfAPilot gets for its second,
// full-validation pass, distinct from the first pass's tools.CallasDeadline:
// the second pass does real content checking rather than a quick summary
// scan, so it is given longer regardless of how the first pass was tuned.
const callasSecondPassDeadline = 4 * time.Minute

// callasInfoPDFARe finds the first pass's one-line verdict on which PDF/A-1
// conformance level, if any, callasPdfAPilot thinks the file claims.
var callasInfoPDFARe = regexp.MustCompile(`\bInfo\s+PDFA\s+PDF/A-1([ab])\b`)

// callasSummaryRe finds the second pass's error/warning tally line.
var callasSummaryRe = regexp.MustCompile(`\bSummary\t(Errors|Warnings)\t(0|[1-9][0-9]*)\b`)

// callasResult is what one or two callasPdfAPilot runs produced.
// CountErrors/CountWarnings are -1 when the second pass never ran or its
// summary line could not be found.
type callasResult struct {
	Configured    bool
	Started       bool
	ExitCode      int
	Display       string
	Stderr        string
	PDFA1Letter   byte // 'a', 'b', or 0 if the first pass found neither
	CountErrors   int
	CountWarnings int
}

// tailBytes returns the last n bytes of s, the window the original scans
// for callasPdfAPilot's trailing summary rather than re-scanning the whole
// (potentially large) captured output on every call.
func tailBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// runCallas runs callasPdfAPilot's quick info pass; if that pass reports
// the file claims PDF/A-1a or PDF/A-1b conformance, a second, slower full
// validation pass is run to get an actual error/warning count.
func (o *Orchestrator) runCallas(ctx context.Context, tools ToolConfig, path string) callasResult {
	if tools.CallasPdfAPilotPath == "" {
		return callasResult{Configured: false, CountErrors: -1, CountWarnings: -1}
	}

	program, args := niceCommand(tools.CallasPdfAPilotPath, "-a", "-i", path)
	res := o.run(ctx, tools.CallasDeadline, "", program, args)
	if !res.Started {
		return callasResult{Configured: true, Started: false, ExitCode: res.ExitCode, CountErrors: -1, CountWarnings: -1}
	}

	cr := callasResult{
		Configured: true, Started: true, ExitCode: res.ExitCode,
		Display: res.Stdout, Stderr: res.Stderr,
		CountErrors: -1, CountWarnings: -1,
	}

	if m := callasInfoPDFARe.FindStringSubmatch(tailBytes(res.Stdout, 512)); m != nil {
		cr.PDFA1Letter = m[1][0]
	}
	if cr.PDFA1Letter == 0 {
		return cr
	}

	program2, args2 := niceCommand(tools.CallasPdfAPilotPath, "-a", path)
	res2 := o.run(ctx, callasSecondPassDeadline, "", program2, args2)
	if !res2.Started {
		return cr
	}
	cr.Display += res2.Stdout
	cr.Stderr += res2.Stderr

	tail := tailBytes(cr.Display, 512)
	for _, m := range callasSummaryRe.FindAllStringSubmatch(tail, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		switch m[1] {
		case "Errors":
			cr.CountErrors = n
		case "Warnings":
			cr.CountWarnings = n
		}
	}
	return cr
}

// callasXML emits callasPdfAPilot's unconditional report slot.
func callasXML(c callasResult) string {
	if !c.Configured {
		return "<callaspdfapilot><info>not configured</info></callaspdfapilot>\n"
	}
	if !c.Started {
		return "<callaspdfapilot><error>failed to start</error></callaspdfapilot>\n"
	}

	isPDFA1a := c.PDFA1Letter == 'a' && c.CountErrors == 0 && c.CountWarnings == 0
	isPDFA1b := isPDFA1a || (c.PDFA1Letter == 'b' && c.CountErrors == 0 && c.CountWarnings == 0)

	var sb strings.Builder
	sb.WriteString("<callaspdfapilot exitcode=\"")
	sb.WriteString(strconv.Itoa(c.ExitCode))
	sb.WriteString("\" pdfa1b=\"")
	sb.WriteString(yesno(isPDFA1b))
	sb.WriteString("\" pdfa1a=\"")
	sb.WriteString(yesno(isPDFA1a))
	sb.WriteString("\"")
	if c.CountErrors >= 0 {
		sb.WriteString(" errors=\"")
		sb.WriteString(strconv.Itoa(c.CountErrors))
		sb.WriteString("\"")
	}
	if c.CountWarnings >= 0 {
		sb.WriteString(" warnings=\"")
		sb.WriteString(strconv.Itoa(c.CountWarnings))
		sb.WriteString("\"")
	}
	sb.WriteString(">\n")
	if c.Display != "" {
		sb.WriteString(xmlutil.Xmlify(c.Display))
	} else if c.Stderr != "" {
		sb.WriteString("<error>")
		sb.WriteString(xmlutil.Xmlify(c.Stderr))
		sb.WriteString("</error>\n")
	}
	sb.WriteString("</callaspdfapilot>\n")
	return sb.String()
}
