// Package language guesses the natural language of an extracted text
// sample by shelling out to aspell once per candidate dictionary and
// picking the dictionary with the fewest reported misspellings, per
// spec.md §4.6. The list of dictionaries aspell actually has installed
// is fetched once per Guesser and cached for that Guesser's lifetime, since it
// never changes while the process runs and querying it is itself a
// subprocess call.
package language

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"docscan/internal/logging"
)

const defaultAspellPath = "/usr/bin/aspell"

// runFunc executes program with args, feeding stdin to the process and
// collecting its stdout; swapped out in tests so Guesser's dictionary
// selection can be exercised without a real aspell binary on disk.
type runFunc func(ctx context.Context, program string, args []string, stdin string) (stdout string, err error)

func realRun(ctx context.Context, program string, args []string, stdin string) (string, error) {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Stdin = strings.NewReader(stdin)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return out.String(), nil
}

// availableDictRe matches the two-letter (optionally region-qualified)
// codes aspell's "dicts" subcommand lists, filtering out the aliases
// and variant names interleaved in that output.
var availableDictRe = regexp.MustCompile(`^[a-z]{2}(_[A-Z]{2})?$`)

// Guesser guesses a text sample's language by running aspell's
// interactive word list mode once per candidate dictionary and keeping
// the dictionary that reports the fewest, but more than zero,
// unrecognized words. A zero count means aspell likely never received
// the text (wrong dictionary name, process failure) rather than a
// perfect match, so it is excluded rather than preferred.
type Guesser struct {
	aspellPath string
	candidates []string
	timeout    time.Duration
	logger     *logging.Logger
	run        runFunc

	availableOnce sync.Once
	available     []string
}

// New builds a Guesser. candidates restricts which of aspell's
// installed dictionaries are ever tried; an empty list means "try
// whatever aspell reports as installed." aspellPath defaults to
// /usr/bin/aspell when empty.
func New(aspellPath string, candidates []string, timeout time.Duration, logger *logging.Logger) *Guesser {
	if aspellPath == "" {
		aspellPath = defaultAspellPath
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Guesser{
		aspellPath: aspellPath,
		candidates: candidates,
		timeout:    timeout,
		logger:     logger,
		run:        realRun,
	}
}

// Guess returns the best candidate dictionary code for text, or "" if
// every run failed or reported zero misspellings.
func (g *Guesser) Guess(ctx context.Context, text string) (string, error) {
	dicts := g.dictionariesToTry(ctx)

	best := ""
	bestCount := -1
	for _, dict := range dicts {
		count, err := g.countUnknown(ctx, text, dict)
		if err != nil {
			g.logger.Warn("aspell run failed", logging.Fields{"dictionary": dict, "error": err.Error()})
			continue
		}
		if count <= 0 {
			continue
		}
		if bestCount == -1 || count < bestCount {
			bestCount = count
			best = dict
		}
	}
	return best, nil
}

// dictionariesToTry intersects the configured candidate list with
// aspell's actually-installed dictionaries, falling back to the
// installed list verbatim when no candidates were configured.
func (g *Guesser) dictionariesToTry(ctx context.Context) []string {
	available := g.availableDictionaries(ctx)
	if len(g.candidates) == 0 {
		return available
	}

	installed := make(map[string]bool, len(available))
	for _, d := range available {
		installed[d] = true
	}

	var out []string
	for _, c := range g.candidates {
		if installed[c] {
			out = append(out, c)
		}
	}
	return out
}

// availableDictionaries returns aspell's installed dictionary codes,
// fetching them on the first call of this Guesser's lifetime and
// reusing that result for every subsequent call.
func (g *Guesser) availableDictionaries(ctx context.Context) []string {
	g.availableOnce.Do(func() {
		runCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		out, err := g.run(runCtx, g.aspellPath, []string{"dicts"}, "")
		if err != nil {
			g.logger.Warn("aspell dicts failed", logging.Fields{"error": err.Error()})
			return
		}

		seen := make(map[string]bool)
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if availableDictRe.MatchString(line) && !seen[line] {
				seen[line] = true
				g.available = append(g.available, line)
			}
		}
	})
	return g.available
}

// countUnknown runs "aspell -d dict list" with text on stdin and
// returns the number of lines it writes back, each one a word aspell
// did not recognize.
func (g *Guesser) countUnknown(ctx context.Context, text, dict string) (int, error) {
	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.run(runCtx, g.aspellPath, []string{"-d", dict, "list"}, text)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count, nil
}
