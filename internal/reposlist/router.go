package reposlist

import (
	"context"
	"fmt"
	"log/slog"

	"toprepos/internal/gateway"
	"toprepos/internal/model"
)

const (
	// SearchQuery selects every repository with at least one star; the search
	// API ranks the hits.
	SearchQuery = "stars:>0"
	// PageSize is the single page of results requested by Startup.
	PageSize = 100
)

// ContributorSource resolves contributor lists. contributors.Cache implements
// it.
type ContributorSource interface {
	Request(ctx context.Context, id int64, owner, name string) ([]model.Contributor, bool, error)
}

// IntentRouter turns an intent into the stream of events its work produces.
type IntentRouter interface {
	Route(ctx context.Context, in Intent) <-chan Event
}

// Router maps intents to gateway calls.
type Router struct {
	search       gateway.SearchGateway
	contributors ContributorSource
	logger       *slog.Logger
}

var _ IntentRouter = (*Router)(nil)

func NewRouter(search gateway.SearchGateway, contributors ContributorSource, logger *slog.Logger) (*Router, error) {
	if search == nil {
		return nil, fmt.Errorf("router: nil search gateway")
	}
	if contributors == nil {
		return nil, fmt.Errorf("router: nil contributor source")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{search: search, contributors: contributors, logger: logger}, nil
}

// Route starts the work for in and returns its events. The channel is closed
// when the work ends and is buffered so the work never blocks on a reader
// that went away.
//
// Gateway calls are detached from ctx cancellation; ctx only carries values.
func (r *Router) Route(ctx context.Context, in Intent) <-chan Event {
	switch in := in.(type) {
	case Startup:
		return r.startup(ctx)
	case FetchContributors:
		return r.fetchContributors(ctx, in.Repository)
	default:
		r.logger.Warn("unhandled intent", "type", fmt.Sprintf("%T", in))
		ch := make(chan Event)
		close(ch)
		return ch
	}
}

func (r *Router) startup(ctx context.Context) <-chan Event {
	ch := make(chan Event, 2)
	// Consumers must observe loading even when the search returns at once.
	ch <- LoadingStarted{}

	go func() {
		defer close(ch)
		page, err := r.search.FindRepositories(context.WithoutCancel(ctx), SearchQuery, PageSize)
		if err != nil {
			r.logger.Debug("search failed", "error", err)
			ch <- LoadFailed{Message: err.Error()}
			return
		}
		ch <- RepositoriesLoaded{Page: page}
	}()
	return ch
}

func (r *Router) fetchContributors(ctx context.Context, repo model.Repository) <-chan Event {
	ch := make(chan Event, 1)

	go func() {
		defer close(ch)
		list, ok, err := r.contributors.Request(ctx, repo.ID, repo.Owner.Login, repo.Name)
		if err != nil {
			r.logger.Debug("contributors lookup failed", "repository", repo.FullName, "error", err)
			return
		}
		if !ok || len(list) == 0 {
			return
		}
		ch <- ContributorsLoaded{RepositoryID: repo.ID, Contributors: list}
	}()
	return ch
}
