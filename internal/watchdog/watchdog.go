// Package watchdog implements DocScan's termination coordinator. The
// original design polled an is_alive predicate on every producer at a
// fixed interval and declared the run over after two consecutive all-false
// polls; per the redesign notes this is replaced with each stage closing
// an explicit done channel when it quiesces, and the Watchdog simply
// waiting on all of them before triggering the final log write.
package watchdog

import (
	"context"
	"fmt"
	"sync"
)

// Watchdog waits for a set of producer done-channels to all close, then
// runs a single termination action exactly once.
type Watchdog struct {
	mu   sync.Mutex
	done []<-chan struct{}
}

// New returns an empty Watchdog.
func New() *Watchdog {
	return &Watchdog{}
}

// Watch registers a producer's done channel. It must be closed by the
// producer when it permanently quiesces (queue drained, quota met,
// context canceled); Watchdog never closes channels it did not create.
func (w *Watchdog) Watch(done <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = append(w.done, done)
}

// AwaitAll blocks until every registered producer's done channel has
// closed, then calls onQuiesce exactly once. It returns ctx.Err() if ctx
// is canceled first, in which case onQuiesce is not called.
func (w *Watchdog) AwaitAll(ctx context.Context, onQuiesce func() error) error {
	w.mu.Lock()
	channels := make([]<-chan struct{}, len(w.done))
	copy(channels, w.done)
	w.mu.Unlock()

	for _, ch := range channels {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := onQuiesce(); err != nil {
		return fmt.Errorf("watchdog: termination action: %w", err)
	}
	return nil
}
