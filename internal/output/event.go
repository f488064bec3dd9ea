package output

import (
	"toprepos/internal/model"
	"toprepos/internal/reposlist"
)

// Event types written in NDJSON mode.
const (
	EventRunStarted         = "run.started"
	EventStateChanged       = "state.changed"
	EventContributorsLoaded = "contributors.loaded"
	EventRunFinished        = "run.finished"
)

// Event is a lifecycle record for NDJSON streaming output, one JSON object
// per line. JSON and text modes render the final Listing instead.
type Event struct {
	Type         string              `json:"type"`
	State        string              `json:"state,omitempty"`
	Message      string              `json:"message,omitempty"`
	Repositories int                 `json:"repositories,omitempty"`
	RepositoryID int64               `json:"repository_id,omitempty"`
	Contributors []model.Contributor `json:"contributors,omitempty"`
	ExitCode     int                 `json:"exit_code,omitempty"`
}

func EventFromState(s reposlist.State) Event {
	e := Event{Type: EventStateChanged}
	if s == nil {
		return e
	}
	e.State = s.Kind()
	switch t := s.(type) {
	case reposlist.RepositoryListState:
		e.Repositories = len(t.Repositories)
	case reposlist.ErrorState:
		e.Message = t.ErrorMessage()
	}
	return e
}

// EventFromEffect converts an effect. ok is false for effects with no
// streaming representation.
func EventFromEffect(eff reposlist.Effect) (Event, bool) {
	loaded, ok := eff.(reposlist.ContributorsLoaded)
	if !ok {
		return Event{}, false
	}
	return Event{
		Type:         EventContributorsLoaded,
		RepositoryID: loaded.RepositoryID,
		Contributors: loaded.Contributors,
	}, true
}

// Row is one repository of a Listing. ContributorsLoaded is false while the
// contributor lookup is outstanding or produced nothing.
type Row struct {
	Rank               int                 `json:"rank"`
	Repository         model.Repository    `json:"repository"`
	Contributors       []model.Contributor `json:"contributors,omitempty"`
	ContributorsLoaded bool                `json:"contributors_loaded"`
}

// Listing is the final rendering of a run: the terminal State plus whatever
// contributors arrived for its repositories.
type Listing struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
	Rows    []Row  `json:"repositories"`
}

func NewListing(s reposlist.State, contributors map[int64][]model.Contributor) Listing {
	l := Listing{Rows: []Row{}}
	if s == nil {
		return l
	}
	l.State = s.Kind()
	switch t := s.(type) {
	case reposlist.RepositoryListState:
		for i, repo := range t.Repositories {
			row := Row{Rank: i + 1, Repository: repo}
			if list, ok := contributors[repo.ID]; ok {
				row.Contributors = list
				row.ContributorsLoaded = true
			}
			l.Rows = append(l.Rows, row)
		}
	case reposlist.ErrorState:
		l.Message = t.ErrorMessage()
	}
	return l
}
