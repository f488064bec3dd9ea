package reposlist

import "toprepos/internal/model"

// Event is anything an intent's work produces: a Change or an Effect.
type Event interface {
	isEvent()
}

// Change is folded into State by Reduce.
type Change interface {
	Event
	isChange()
}

// Effect is delivered to current effect subscribers and never touches State.
type Effect interface {
	Event
	isEffect()
}

// LoadingStarted is emitted before a search begins.
type LoadingStarted struct{}

// RepositoriesLoaded carries a successful search page.
type RepositoriesLoaded struct {
	Page model.RepositoryPage
}

// LoadFailed carries the human-readable reason a search failed.
type LoadFailed struct {
	Message string
}

// ContributorsLoaded carries a non-empty contributor list for one repository.
type ContributorsLoaded struct {
	RepositoryID int64               `json:"repository_id"`
	Contributors []model.Contributor `json:"contributors"`
}

func (LoadingStarted) isEvent()     {}
func (RepositoriesLoaded) isEvent() {}
func (LoadFailed) isEvent()         {}
func (ContributorsLoaded) isEvent() {}

func (LoadingStarted) isChange()     {}
func (RepositoriesLoaded) isChange() {}
func (LoadFailed) isChange()         {}

func (ContributorsLoaded) isEffect() {}
