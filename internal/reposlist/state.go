package reposlist

import (
	"slices"

	"toprepos/internal/model"
)

// State kinds, stable across releases; used in logs and JSON output.
const (
	KindInitial        = "initial"
	KindLoading        = "loading"
	KindRepositoryList = "content.repository_list"
	KindEmpty          = "content.empty"
	KindError          = "error"
)

// State is what a consumer renders. Exactly one State is current at a time.
type State interface {
	Kind() string
	isState()
}

// Content is a State worth restoring after a restart.
type Content interface {
	State
	isContent()
}

type InitialState struct{}

type LoadingState struct{}

// RepositoryListState holds the search hits in the order they were returned.
type RepositoryListState struct {
	Repositories []model.Repository
}

// EmptyState means the search succeeded with no hits.
type EmptyState struct{}

// ErrorState means the last search failed. Message is nil when the failure
// carried no text.
type ErrorState struct {
	Message *string
}

func (InitialState) Kind() string        { return KindInitial }
func (LoadingState) Kind() string        { return KindLoading }
func (RepositoryListState) Kind() string { return KindRepositoryList }
func (EmptyState) Kind() string          { return KindEmpty }
func (ErrorState) Kind() string          { return KindError }

func (InitialState) isState()        {}
func (LoadingState) isState()        {}
func (RepositoryListState) isState() {}
func (EmptyState) isState()          {}
func (ErrorState) isState()          {}

func (RepositoryListState) isContent() {}
func (EmptyState) isContent()          {}

// ErrorMessage returns the message of an ErrorState, or "".
func (s ErrorState) ErrorMessage() string {
	if s.Message == nil {
		return ""
	}
	return *s.Message
}

// StatesEqual reports value equality. Two nil states are equal.
func StatesEqual(a, b State) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case RepositoryListState:
		y := b.(RepositoryListState)
		return slices.Equal(x.Repositories, y.Repositories)
	case ErrorState:
		y := b.(ErrorState)
		if x.Message == nil || y.Message == nil {
			return x.Message == nil && y.Message == nil
		}
		return *x.Message == *y.Message
	default:
		return true
	}
}
