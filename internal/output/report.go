package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"toprepos/internal/reposlist"
)

// reportContributorWidth bounds the contributor column of the markdown table.
const reportContributorWidth = 80

// ReportSink writes a markdown summary of the final Listing on Close.
type ReportSink struct {
	path         string
	file         *os.File
	mu           sync.Mutex
	listing      *Listing
	exitCode     int
	haveExitCode bool
	now          func() time.Time
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{path: path, file: f, now: time.Now}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case Listing:
		s.listing = &t
	case Event:
		if t.Type == EventRunFinished {
			s.exitCode = t.ExitCode
			s.haveExitCode = true
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing := Listing{}
	if s.listing != nil {
		listing = *s.listing
	}

	var b strings.Builder
	b.WriteString("# Top GitHub Repositories\n\n")
	fmt.Fprintf(&b, "Generated %s.\n\n", s.now().UTC().Format(time.RFC3339))

	switch listing.State {
	case reposlist.KindRepositoryList:
		writeSummary(&b, listing)
		writeTable(&b, listing)
		writeTopContributors(&b, listing)
	case reposlist.KindEmpty:
		b.WriteString("The search returned no repositories.\n")
	case reposlist.KindError:
		b.WriteString("## Error\n\n")
		msg := listing.Message
		if msg == "" {
			msg = "unknown error"
		}
		fmt.Fprintf(&b, "The repository search failed: %s\n", msg)
	default:
		b.WriteString("No results were produced.\n")
	}

	if s.haveExitCode {
		fmt.Fprintf(&b, "\n---\n\nExit code: %d\n", s.exitCode)
	}

	if _, err := s.file.WriteString(b.String()); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

func writeSummary(b *strings.Builder, l Listing) {
	loaded, stars := 0, 0
	for _, row := range l.Rows {
		stars += row.Repository.StarCount
		if row.ContributorsLoaded {
			loaded++
		}
	}
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(b, "- Repositories: %d\n", len(l.Rows))
	fmt.Fprintf(b, "- Total stars: %d\n", stars)
	fmt.Fprintf(b, "- Contributors loaded: %d/%d\n\n", loaded, len(l.Rows))
}

func writeTable(b *strings.Builder, l Listing) {
	b.WriteString("## Repositories\n\n")
	b.WriteString("| # | Repository | Stars | Contributors |\n")
	b.WriteString("|---|------------|-------|--------------|\n")
	for _, row := range l.Rows {
		summary := pendingMarker
		if row.ContributorsLoaded {
			summary = SummarizeContributors(row.Contributors, reportContributorWidth)
		}
		fmt.Fprintf(b, "| %d | %s | %d | %s |\n",
			row.Rank, escapeCell(row.Repository.FullName), row.Repository.StarCount, escapeCell(summary))
	}
	b.WriteString("\n")
}

// writeTopContributors lists logins appearing in the most loaded repositories.
func writeTopContributors(b *strings.Builder, l Listing) {
	type tally struct {
		login string
		repos int
	}
	counts := make(map[int64]*tally)
	for _, row := range l.Rows {
		seen := make(map[int64]bool)
		for _, c := range row.Contributors {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			t, ok := counts[c.ID]
			if !ok {
				t = &tally{login: c.Login}
				counts[c.ID] = t
			}
			t.repos++
		}
	}

	var shared []*tally
	for _, t := range counts {
		if t.repos > 1 {
			shared = append(shared, t)
		}
	}
	if len(shared) == 0 {
		return
	}
	sort.Slice(shared, func(i, j int) bool {
		if shared[i].repos != shared[j].repos {
			return shared[i].repos > shared[j].repos
		}
		return shared[i].login < shared[j].login
	})
	if len(shared) > 10 {
		shared = shared[:10]
	}

	b.WriteString("## Contributors Across Repositories\n\n")
	for _, t := range shared {
		fmt.Fprintf(b, "- %s: %d repositories\n", t.login, t.repos)
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
