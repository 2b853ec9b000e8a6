package pdfpipeline

import (
	"context"
	"strconv"
	"strings"

	"docscan/internal/xmlutil"
)

// wrapIfMalformedVeraOutput mirrors the original's well-formedness guard on
// veraPDF's XML report: veraPDF is known to sometimes emit truncated or
// otherwise broken XML, recognizable by the absence of a matching
// <rawResults>...</rawResults> or <ns2:cliReport>...</ns2:cliReport> pair.
// When that happens the raw (and possibly binary-garbled) output is kept
// only as escaped text inside an <error> wrapper rather than spliced
// straight into the report as if it were well-formed XML.
func wrapIfMalformedVeraOutput(stdout string) string {
	hasRawResults := strings.Contains(stdout, "<rawResults>") && strings.Contains(stdout, "</rawResults>")
	hasCliReport := strings.Contains(stdout, "<ns2:cliReport") && strings.Contains(stdout, "</ns2:cliReport>")
	if hasRawResults || hasCliReport {
		return stdout
	}
	return "<error>No matching opening and closing 'rawResults' or 'ns2:cliReport' tags found in output:\n" + xmlutil.Xmlify(stdout) + "</error>"
}

// veraResult is what one or two veraPDF runs against a file produced.
// IsPDFA1B/IsPDFA1A only become meaningful when Started is true and the
// output actually parsed as a recognizable veraPDF report.
type veraResult struct {
	Configured bool
	Started    bool
	ExitCode   int
	Display    string
	Stderr     string
	FileSize   int64
	IsPDFA1B   bool
	IsPDFA1A   bool
}

// runVeraPDF runs veraPDF once against the PDF/A-1B flavour. If the first
// pass reports the file compliant with PDF/A-1B, a second pass against the
// PDF/A-1A flavour is run and its (XML-declaration-stripped) output is
// appended to the first pass's, mirroring the original's two-stage check:
// 1A compliance is only worth asking about once 1B is already established.
func (o *Orchestrator) runVeraPDF(ctx context.Context, tools ToolConfig, path string) veraResult {
	if tools.VeraPDFPath == "" {
		return veraResult{Configured: false}
	}

	program, args := niceCommand(tools.VeraPDFPath, "-f", "1b", "--format", "xml", path)
	res := o.run(ctx, tools.VeraPDFDeadline, "", program, args)
	if !res.Started {
		return veraResult{Configured: true, Started: false, ExitCode: res.ExitCode}
	}

	vr := veraResult{Configured: true, Started: true, ExitCode: res.ExitCode, Display: wrapIfMalformedVeraOutput(res.Stdout), Stderr: res.Stderr}

	if idx := indexFrom(res.Stdout, "flavour=\"PDFA_1_B\"", 0); idx >= 0 {
		if cIdx := indexFrom(res.Stdout, "isCompliant=\"true\"", idx); cIdx >= 0 && cIdx-idx < 512 {
			vr.IsPDFA1B = true
		}
	}
	if sizeIdx := indexFrom(res.Stdout, "item size=\"", 0); sizeIdx >= 0 {
		start := sizeIdx + len("item size=\"")
		end := indexFrom(res.Stdout, "\"", start)
		if end > start {
			if n, err := strconv.ParseInt(res.Stdout[start:end], 10, 64); err == nil {
				vr.FileSize = n
			}
		}
	}

	if !vr.IsPDFA1B {
		return vr
	}

	program2, args2 := niceCommand(tools.VeraPDFPath, "-f", "1a", "--format", "xml", path)
	res2 := o.run(ctx, tools.VeraPDFDeadline, "", program2, args2)
	if !res2.Started {
		return vr
	}

	newOut := res2.Stdout
	stripped := newOut
	if declEnd := strings.Index(stripped, "?>"); declEnd >= 0 {
		if ltIdx := indexFrom(stripped, "<", declEnd); ltIdx >= 0 {
			stripped = stripped[ltIdx:]
		}
	}
	hasRawResults := strings.Contains(newOut, "<rawResults>") && strings.Contains(newOut, "</rawResults>")
	hasCliReport := strings.Contains(newOut, "<ns2:cliReport") && strings.Contains(newOut, "</ns2:cliReport>")
	if hasRawResults || hasCliReport {
		vr.Display += "\n" + stripped
	} else {
		vr.Display += wrapIfMalformedVeraOutput(newOut)
	}
	vr.Stderr += res2.Stderr

	if idx := indexFrom(newOut, "flavour=\"PDFA_1_A\"", 0); idx >= 0 {
		if cIdx := indexFrom(newOut, "isCompliant=\"true\"", idx); cIdx >= 0 && cIdx-idx < 512 {
			vr.IsPDFA1A = true
		}
	}

	return vr
}

// veraPDFXML emits the validator's unconditional report slot: "not
// configured" when VeraPDFPath is empty, a bare error when the binary
// failed to even start, or the full compliance/filesize breakdown.
func veraPDFXML(v veraResult) string {
	if !v.Configured {
		return "<verapdf><info>not configured</info></verapdf>\n"
	}
	if !v.Started {
		return "<verapdf><error>failed to start</error></verapdf>\n"
	}
	var sb strings.Builder
	sb.WriteString("<verapdf exitcode=\"")
	sb.WriteString(strconv.Itoa(v.ExitCode))
	sb.WriteString("\"")
	if v.FileSize > 0 {
		sb.WriteString(" filesize=\"")
		sb.WriteString(strconv.FormatInt(v.FileSize, 10))
		sb.WriteString("\"")
	}
	sb.WriteString(" pdfa1b=\"")
	sb.WriteString(yesno(v.IsPDFA1B))
	sb.WriteString("\"")
	sb.WriteString(" pdfa1a=\"")
	sb.WriteString(yesno(v.IsPDFA1A))
	sb.WriteString("\">\n")
	sb.WriteString(v.Display)
	sb.WriteString("\n</verapdf>\n")
	return sb.String()
}
