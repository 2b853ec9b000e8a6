package language

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"docscan/internal/logging"
)

// fakeRun simulates aspell: "dicts" returns a fixed installed list, and
// "-d X list" returns one line per unrecognized word, keyed by dict so
// different tests can make different dictionaries "win".
func fakeRun(dicts []string, unknownCounts map[string]int, err error) runFunc {
	return func(ctx context.Context, program string, args []string, stdin string) (string, error) {
		if err != nil {
			return "", err
		}
		if len(args) == 1 && args[0] == "dicts" {
			return strings.Join(dicts, "\n"), nil
		}
		// args = ["-d", dict, "list"]
		dict := args[1]
		n := unknownCounts[dict]
		lines := make([]string, n)
		for i := range lines {
			lines[i] = "unknownword"
		}
		return strings.Join(lines, "\n"), nil
	}
}

func newGuesser(candidates []string, run runFunc) *Guesser {
	g := New("/usr/bin/aspell", candidates, 5*time.Second, logging.Nop())
	g.run = run
	return g
}

func TestGuesser_PicksSmallestPositiveCount(t *testing.T) {
	run := fakeRun([]string{"en", "de", "fr"}, map[string]int{"en": 40, "de": 2, "fr": 15}, nil)
	g := newGuesser(nil, run)

	got, err := g.Guess(context.Background(), "some sample text")
	if err != nil {
		t.Fatal(err)
	}
	if got != "de" {
		t.Errorf("Guess() = %q, want %q (fewest misspellings)", got, "de")
	}
}

func TestGuesser_ZeroCountIsNotPreferred(t *testing.T) {
	// "en" reports zero unknown words (treated as a failure indicator,
	// not a perfect match) while "de" reports a small positive count.
	run := fakeRun([]string{"en", "de"}, map[string]int{"en": 0, "de": 3}, nil)
	g := newGuesser(nil, run)

	got, err := g.Guess(context.Background(), "text")
	if err != nil {
		t.Fatal(err)
	}
	if got != "de" {
		t.Errorf("Guess() = %q, want %q (zero count must lose to a positive one)", got, "de")
	}
}

func TestGuesser_AllZeroYieldsEmpty(t *testing.T) {
	run := fakeRun([]string{"en", "de"}, map[string]int{"en": 0, "de": 0}, nil)
	g := newGuesser(nil, run)

	got, err := g.Guess(context.Background(), "text")
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("Guess() = %q, want empty when every dictionary reports zero", got)
	}
}

func TestGuesser_CandidatesRestrictToInstalled(t *testing.T) {
	run := fakeRun([]string{"en", "de"}, map[string]int{"en": 5, "de": 1}, nil)
	// "fr" is requested but not installed, so only "en" is tried; "de"
	// is installed but was never requested, so it must not be tried.
	g := newGuesser([]string{"en", "fr"}, run)

	got, err := g.Guess(context.Background(), "text")
	if err != nil {
		t.Fatal(err)
	}
	if got != "en" {
		t.Errorf("Guess() = %q, want %q (only installed candidate)", got, "en")
	}
}

func TestGuesser_AvailableDictionariesCachedAcrossCalls(t *testing.T) {
	calls := 0
	run := func(ctx context.Context, program string, args []string, stdin string) (string, error) {
		if len(args) == 1 && args[0] == "dicts" {
			calls++
			return "en\nde\n", nil
		}
		return "", nil
	}
	g := newGuesser(nil, run)

	g.Guess(context.Background(), "a")
	g.Guess(context.Background(), "b")

	if calls != 1 {
		t.Errorf("expected aspell dicts to be invoked once and cached, got %d calls", calls)
	}
}

func TestGuesser_RunErrorIsSkippedNotFatal(t *testing.T) {
	run := fakeRun(nil, nil, errors.New("aspell not found"))
	g := newGuesser([]string{"en"}, run)

	got, err := g.Guess(context.Background(), "text")
	if err != nil {
		t.Fatalf("Guess should never return an error, got %v", err)
	}
	if got != "" {
		t.Errorf("Guess() = %q, want empty when aspell cannot run at all", got)
	}
}
