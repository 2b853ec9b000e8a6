package pdfpipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"docscan/internal/logging"
	"docscan/internal/pdflib"
)

var errNotAPDF = errors.New("pdfpipeline test: not a pdf")

func testOrchestrator(tools ToolConfig, run runFunc, doc pdflib.Document, docErr error) *Orchestrator {
	return &Orchestrator{
		tools:  tools,
		logger: logging.Nop(),
		run:    run,
		openDoc: func(string) (pdflib.Document, error) {
			return doc, docErr
		},
		textLevel: TextExtractionNone,
	}
}

func failIfCalled(t *testing.T) runFunc {
	return func(ctx context.Context, deadline time.Duration, dir, program string, args []string) toolResult {
		t.Fatalf("unexpected external tool invocation: %s %v", program, args)
		return toolResult{}
	}
}

// S5: every validator emits its unconditional report slot even when none
// of them are configured to run.
func TestAnalyzeFile_ValidatorSlotsWhenUnconfigured(t *testing.T) {
	doc := &pdflib.Fake{VersionValue: "1.4", NumPagesValue: 1}
	o := testOrchestrator(ToolConfig{}, failIfCalled(t), doc, nil)

	out := o.AnalyzeFile(context.Background(), "/tmp/does-not-matter.pdf")

	for _, tag := range []string{"<verapdf><info>not configured</info></verapdf>", "<jhove><info>not configured</info></jhove>",
		"<pdfboxvalidator><info>not configured</info></pdfboxvalidator>", "<callaspdfapilot><info>not configured</info></callaspdfapilot>"} {
		if !strings.Contains(out, tag) {
			t.Errorf("expected %q in output, got:\n%s", tag, out)
		}
	}
	if !strings.Contains(out, `status="ok"`) {
		t.Errorf("expected ok status when the library opened the file, got:\n%s", out)
	}
}

// S5: a validator that fails to start still emits a slot, distinct from
// "not configured".
func TestAnalyzeFile_ValidatorFailedToStart(t *testing.T) {
	tools := ToolConfig{VeraPDFPath: "verapdf", VeraPDFDeadline: time.Second}
	run := func(ctx context.Context, deadline time.Duration, dir, program string, args []string) toolResult {
		return toolResult{Started: false, ExitCode: notRun}
	}
	doc := &pdflib.Fake{VersionValue: "1.4"}
	o := testOrchestrator(tools, run, doc, nil)

	out := o.AnalyzeFile(context.Background(), "/tmp/x.pdf")

	if !strings.Contains(out, "<verapdf><error>failed to start</error></verapdf>") {
		t.Errorf("expected veraPDF failed-to-start slot, got:\n%s", out)
	}
}

// S7: a file the library can't open and neither jhove nor pdfbox
// recognize as a PDF gets demoted to an error record.
func TestAnalyzeFile_InvalidFileFormatDemotion(t *testing.T) {
	o := testOrchestrator(ToolConfig{}, failIfCalled(t), nil, errNotAPDF)

	out := o.AnalyzeFile(context.Background(), "/tmp/garbage.bin")

	if !strings.Contains(out, `status="error"`) || !strings.Contains(out, `message="invalid-fileformat"`) {
		t.Errorf("expected invalid-fileformat error record, got:\n%s", out)
	}
	if strings.Contains(out, "<header>") {
		t.Errorf("error record should not carry header/meta detail, got:\n%s", out)
	}
}

// S7: jhove alone recognizing the file as a PDF is enough to avoid the
// error demotion even when the library failed to open it.
func TestAnalyzeFile_JHoveRecognitionAvoidsDemotion(t *testing.T) {
	tools := ToolConfig{JHoveShellscript: "jhove.sh", JHoveDeadline: time.Second}
	run := func(ctx context.Context, deadline time.Duration, dir, program string, args []string) toolResult {
		return toolResult{Started: true, ExitCode: 0, Stdout: "Format: PDF###Status: Well-Formed and valid###"}
	}
	o := testOrchestrator(tools, run, nil, errNotAPDF)

	out := o.AnalyzeFile(context.Background(), "/tmp/x.pdf")

	if strings.Contains(out, "invalid-fileformat") {
		t.Errorf("jhove recognized the file, should not be demoted:\n%s", out)
	}
	if !strings.Contains(out, `ispdf="yes"`) || !strings.Contains(out, `wellformed="yes"`) || !strings.Contains(out, `valid="yes"`) {
		t.Errorf("expected jhove slot to report the recognized/wellformed/valid flags, got:\n%s", out)
	}
}

// S6/S4: veraPDF's second pass (1a) only runs once the first pass (1b)
// reports the file compliant, and its result is fused into the same slot.
func TestRunVeraPDF_StagedSecondPass(t *testing.T) {
	tools := ToolConfig{VeraPDFPath: "verapdf", VeraPDFDeadline: time.Second}
	calls := 0
	run := func(ctx context.Context, deadline time.Duration, dir, program string, args []string) toolResult {
		calls++
		for _, a := range args {
			if a == "1a" {
				return toolResult{Started: true, Stdout: "<?xml version=\"1.0\"?>\n<report><ns2:cliReport flavour=\"PDFA_1_A\"><validationResult isCompliant=\"true\" /></ns2:cliReport></report>"}
			}
		}
		return toolResult{Started: true, Stdout: `<report><ns2:cliReport flavour="PDFA_1_B"><validationResult isCompliant="true" /></ns2:cliReport><item size="98765" /></report>`}
	}
	o := testOrchestrator(tools, run, nil, nil)

	v := o.runVeraPDF(context.Background(), tools, "/tmp/x.pdf")

	if calls != 2 {
		t.Fatalf("expected exactly 2 veraPDF invocations, got %d", calls)
	}
	if !v.IsPDFA1B || !v.IsPDFA1A {
		t.Errorf("expected both 1b and 1a compliance, got %+v", v)
	}
	if v.FileSize != 98765 {
		t.Errorf("expected filesize 98765, got %d", v.FileSize)
	}
	if strings.Contains(v.Display, "<?xml") {
		t.Errorf("expected the second pass's xml declaration to be stripped before fusing, got:\n%s", v.Display)
	}
}

func TestRunVeraPDF_NoSecondPassWhenNotCompliant(t *testing.T) {
	tools := ToolConfig{VeraPDFPath: "verapdf", VeraPDFDeadline: time.Second}
	calls := 0
	run := func(ctx context.Context, deadline time.Duration, dir, program string, args []string) toolResult {
		calls++
		return toolResult{Started: true, Stdout: `<report><ns2:cliReport flavour="PDFA_1_B"><validationResult isCompliant="false" /></ns2:cliReport></report>`}
	}
	o := testOrchestrator(tools, run, nil, nil)

	v := o.runVeraPDF(context.Background(), tools, "/tmp/x.pdf")

	if calls != 1 {
		t.Fatalf("expected exactly 1 veraPDF invocation when 1b is not compliant, got %d", calls)
	}
	if v.IsPDFA1B || v.IsPDFA1A {
		t.Errorf("expected no compliance flags, got %+v", v)
	}
}

// S6: callasPdfAPilot's second, full-validation pass only runs once the
// quick info pass reports a PDF/A-1 conformance claim.
func TestRunCallas_StagedSecondPass(t *testing.T) {
	tools := ToolConfig{CallasPdfAPilotPath: "callas", CallasDeadline: time.Second}
	calls := 0
	run := func(ctx context.Context, deadline time.Duration, dir, program string, args []string) toolResult {
		calls++
		if calls == 1 {
			return toolResult{Started: true, Stdout: "Info\tPDFA\tPDF/A-1b\n"}
		}
		return toolResult{Started: true, Stdout: "Summary\tErrors\t0\nSummary\tWarnings\t3\n"}
	}
	o := testOrchestrator(tools, run, nil, nil)

	c := o.runCallas(context.Background(), tools, "/tmp/x.pdf")

	if calls != 2 {
		t.Fatalf("expected exactly 2 callas invocations, got %d", calls)
	}
	if c.PDFA1Letter != 'b' {
		t.Errorf("expected PDF/A-1b claim, got %q", c.PDFA1Letter)
	}
	if c.CountErrors != 0 || c.CountWarnings != 3 {
		t.Errorf("expected 0 errors / 3 warnings, got %+v", c)
	}
}

func TestRunCallas_NoSecondPassWithoutClaim(t *testing.T) {
	tools := ToolConfig{CallasPdfAPilotPath: "callas", CallasDeadline: time.Second}
	calls := 0
	run := func(ctx context.Context, deadline time.Duration, dir, program string, args []string) toolResult {
		calls++
		return toolResult{Started: true, Stdout: "nothing interesting here\n"}
	}
	o := testOrchestrator(tools, run, nil, nil)

	c := o.runCallas(context.Background(), tools, "/tmp/x.pdf")

	if calls != 1 {
		t.Fatalf("expected exactly 1 callas invocation, got %d", calls)
	}
	if c.CountErrors != -1 || c.CountWarnings != -1 {
		t.Errorf("expected no counts without a second pass, got %+v", c)
	}
}

func TestEvaluatePaperSize(t *testing.T) {
	cases := []struct {
		mmw, mmh   int
		name, orie string
	}{
		{210, 297, "A4", "portrait"},
		{297, 210, "A4", "landscape"},
		{216, 279, "letter", "portrait"},
		{216, 356, "", ""},
	}
	for _, c := range cases {
		name, orientation := evaluatePaperSize(c.mmw, c.mmh)
		if name != c.name || orientation != c.orie {
			t.Errorf("evaluatePaperSize(%d,%d) = (%q,%q), want (%q,%q)", c.mmw, c.mmh, name, orientation, c.name, c.orie)
		}
	}
}

func TestParsePDFDate(t *testing.T) {
	d, ok := parsePDFDate("D:20230615142530+02'00'")
	if !ok {
		t.Fatal("expected a parseable date")
	}
	if d.Year() != 2023 || d.Month() != 6 || d.Day() != 15 {
		t.Errorf("got %v", d)
	}

	if _, ok := parsePDFDate(""); ok {
		t.Error("expected empty string to fail to parse")
	}
}

func TestGuessToolText_MicrosoftOverride(t *testing.T) {
	text, remainder := guessToolText("", "Microsoft Word - Annual Report.doc")
	if !strings.Contains(text, "Microsoft Word") {
		t.Errorf("expected Microsoft match to win, got %q", text)
	}
	if remainder != "Annual Report.doc" {
		t.Errorf("expected title remainder, got %q", remainder)
	}
}

func TestGuessToolText_FallsBackToProducer(t *testing.T) {
	text, remainder := guessToolText("Acrobat Distiller 9.0", "")
	if text != "Acrobat Distiller 9.0" {
		t.Errorf("expected producer text, got %q", text)
	}
	if remainder != "" {
		t.Errorf("expected no title remainder, got %q", remainder)
	}
}
