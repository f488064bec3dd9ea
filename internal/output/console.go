package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"toprepos/internal/reposlist"
)

// DefaultContributorWidth is the text budget for a row's contributor summary.
const DefaultContributorWidth = 60

// pendingMarker stands in for contributors that have not arrived.
const pendingMarker = "…"

var (
	nameStyle  = color.New(color.Bold)
	starStyle  = color.New(color.FgYellow)
	errorStyle = color.New(color.FgRed, color.Bold)
	faintStyle = color.New(color.Faint)
)

type ConsoleSink struct {
	writer  io.Writer
	format  string // "text", "json", "ndjson"
	width   int
	mu      sync.Mutex
	listing *Listing // For JSON output
}

func NewConsoleSink(w io.Writer, format string, width int) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	if width == 0 {
		width = DefaultContributorWidth
	}
	return &ConsoleSink{writer: w, format: format, width: width}
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	switch s.format {
	case "json":
		l, ok := v.(Listing)
		if !ok {
			// Ignore lifecycle events in JSON console mode.
			return nil
		}
		s.listing = &l
		return nil
	case "ndjson":
		e, ok := v.(Event)
		if !ok {
			return nil
		}
		if err := json.NewEncoder(s.writer).Encode(e); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case "text":
		l, ok := v.(Listing)
		if !ok {
			// Ignore events in text mode.
			return nil
		}
		if err := renderText(s.writer, l, s.width); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		if s.listing == nil {
			return nil
		}
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(s.listing); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case "text", "ndjson":
		return nil
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func renderText(w io.Writer, l Listing, width int) error {
	var err error
	printf := func(format string, args ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, args...)
	}

	switch l.State {
	case reposlist.KindRepositoryList:
		printf("Top %d repositories\n\n", len(l.Rows))
		for _, row := range l.Rows {
			printf("%3d. %s  %s\n", row.Rank, nameStyle.Sprint(row.Repository.FullName), starStyle.Sprintf("★ %d", row.Repository.StarCount))
			summary := pendingMarker
			if row.ContributorsLoaded {
				summary = SummarizeContributors(row.Contributors, width)
			}
			printf("     %s\n", faintStyle.Sprint(summary))
		}
	case reposlist.KindEmpty:
		printf("No repositories found.\n")
	case reposlist.KindError:
		msg := l.Message
		if msg == "" {
			msg = "unknown error"
		}
		printf("%s %s\n", errorStyle.Sprint("Error:"), msg)
	default:
		printf("No results (state: %s).\n", l.State)
	}
	return err
}
