// Package reposlist is the repository list pipeline: intents are routed to
// gateway work, the resulting events are folded into a single State stream by
// a pure reducer, and one-shot effects are broadcast beside it.
package reposlist

import "toprepos/internal/model"

// Intent is a request submitted by a consumer.
type Intent interface {
	isIntent()
}

// Startup loads the first page of top repositories.
type Startup struct{}

// FetchContributors asks for the contributors of one repository.
type FetchContributors struct {
	Repository model.Repository
}

func (Startup) isIntent()           {}
func (FetchContributors) isIntent() {}

// IntentName returns a short label for logs.
func IntentName(in Intent) string {
	switch in.(type) {
	case Startup:
		return "startup"
	case FetchContributors:
		return "fetch_contributors"
	default:
		return "unknown"
	}
}
