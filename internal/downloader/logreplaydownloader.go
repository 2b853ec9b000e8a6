package downloader

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"docscan/internal/logging"
)

// LogReplayDownloader re-derives a previous run's successful downloads
// from its XML log instead of fetching anything again: it scans for
// <download url="..." filename="..." status="success"> fragments and
// re-emits the (url, localPath) pair for each one. Unlike UrlDownloader
// and FakeDownloader it takes no Submit calls — a replay's input is
// entirely the log it was built with.
type LogReplayDownloader struct {
	r      io.Reader
	logger *logging.Logger
}

// NewLogReplayDownloader builds a LogReplayDownloader reading a previous
// run's log from r.
func NewLogReplayDownloader(r io.Reader, logger *logging.Logger) *LogReplayDownloader {
	return &LogReplayDownloader{r: r, logger: logger}
}

// Start parses the log and emits every successful download it finds.
func (l *LogReplayDownloader) Start(ctx context.Context) Events {
	downloaded := make(chan Downloaded, 64)
	reports := make(chan string, 64)
	done := make(chan struct{})

	go l.run(ctx, downloaded, reports, done)
	return Events{Downloaded: downloaded, Reports: reports, Done: done}
}

type downloadFragment struct {
	XMLName  xml.Name `xml:"download"`
	URL      string   `xml:"url,attr"`
	Filename string   `xml:"filename,attr"`
	Status   string   `xml:"status,attr"`
}

func (l *LogReplayDownloader) run(ctx context.Context, downloaded chan Downloaded, reports chan string, done chan struct{}) {
	defer close(done)
	defer close(reports)
	defer close(downloaded)

	replayed := 0
	dec := xml.NewDecoder(l.r)

	for {
		if ctx.Err() != nil {
			break
		}

		tok, err := dec.Token()
		if err != nil {
			if err != io.EOF {
				l.logger.Warn("log replay decode error", logging.Fields{"error": err.Error()})
			}
			break
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "download" {
			continue
		}

		var frag downloadFragment
		if err := dec.DecodeElement(&frag, &start); err != nil {
			continue
		}
		if frag.Status != "success" || frag.URL == "" || frag.Filename == "" {
			continue
		}

		replayed++
		if !emitDownloaded(ctx, downloaded, Downloaded{URL: frag.URL, LocalPath: frag.Filename}) {
			break
		}
	}

	emitReport(ctx, reports, fmt.Sprintf(`<logreplaydownloader event="summary" numreplayed="%d" />`, replayed))
}
