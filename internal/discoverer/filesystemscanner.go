package discoverer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"docscan/internal/filefinder"
	"docscan/internal/logging"
	"docscan/internal/xmlutil"
)

// FilesystemScanner walks a directory tree breadth-first, testing every
// regular file's path against the configured filters. Directories are
// visited in lexical order within each level so a run is reproducible.
type FilesystemScanner struct {
	root    string
	filters []*filefinder.Filter
	logger  *logging.Logger
}

// NewFilesystemScanner builds a FilesystemScanner rooted at root.
func NewFilesystemScanner(root string, filters []*filefinder.Filter, logger *logging.Logger) *FilesystemScanner {
	return &FilesystemScanner{root: root, filters: filters, logger: logger}
}

// Start implements Discoverer.
func (s *FilesystemScanner) Start(ctx context.Context, quota int) Events {
	hits := make(chan filefinder.CandidateHit, 64)
	reports := make(chan string, 64)
	done := make(chan struct{})

	go s.run(ctx, quota, hits, reports, done)
	return Events{Hits: hits, Reports: reports, Done: done}
}

func (s *FilesystemScanner) run(ctx context.Context, quota int, hits chan filefinder.CandidateHit, reports chan string, done chan struct{}) {
	defer close(done)
	defer close(reports)
	defer close(hits)

	emitReport(ctx, reports, fmt.Sprintf(`<filesystemscanner event="start" root="%s" numexpectedhits="%d" />`, xmlutil.Xmlify(s.root), quota))

	found := 0
	queue := []string{s.root}

outer:
	for len(queue) > 0 {
		if ctx.Err() != nil {
			break
		}
		if quota > 0 && found >= quota {
			break
		}

		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			s.logger.Warn("readdir failed", logging.Fields{"dir": dir, "error": err.Error()})
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				queue = append(queue, full)
				continue
			}

			for _, f := range s.filters {
				if !f.TryHit(full) {
					continue
				}
				found++
				if !emitHit(ctx, hits, filefinder.CandidateHit{URL: full, Filter: f}) {
					break outer
				}
				emitReport(ctx, reports, fmt.Sprintf(`<filefinder event="hit" url="%s" filter="%s" />`, xmlutil.Xmlify(full), xmlutil.Xmlify(f.Glob)))
				break
			}
			if quota > 0 && found >= quota {
				break outer
			}
		}
	}

	emitReport(ctx, reports, fmt.Sprintf(`<filesystemscanner event="summary" numfoundhits="%d" />`, found))
}
