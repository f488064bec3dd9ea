package reposlist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toprepos/internal/contributors"
	"toprepos/internal/model"
)

type unknownIntent struct{}

func (unknownIntent) isIntent() {}

func newTestRouter(t *testing.T, search *fakeSearch, gw *fakeContributors) *Router {
	t.Helper()
	cache, err := contributors.NewCache(gw)
	require.NoError(t, err)
	r, err := NewRouter(search, cache, nil)
	require.NoError(t, err)
	return r
}

func TestNewRouter_RequiresDependencies(t *testing.T) {
	cache, err := contributors.NewCache(&fakeContributors{})
	require.NoError(t, err)

	_, err = NewRouter(nil, cache, nil)
	assert.Error(t, err)
	_, err = NewRouter(&fakeSearch{}, nil, nil)
	assert.Error(t, err)
}

func TestRoute_StartupSuccess(t *testing.T) {
	page := model.RepositoryPage{TotalCount: 1, Items: []model.Repository{repoA}}
	search := &fakeSearch{pages: []model.RepositoryPage{page}}
	r := newTestRouter(t, search, &fakeContributors{})

	events := drainEvents(t, r.Route(context.Background(), Startup{}))

	require.Len(t, events, 2)
	assert.Equal(t, LoadingStarted{}, events[0])
	assert.Equal(t, RepositoriesLoaded{Page: page}, events[1])
	assert.Equal(t, []string{"stars:>0"}, search.queries)
}

func TestRoute_StartupLoadingPrecedesSearch(t *testing.T) {
	search := &fakeSearch{gate: make(chan struct{})}
	r := newTestRouter(t, search, &fakeContributors{})

	ch := r.Route(context.Background(), Startup{})
	assert.Equal(t, LoadingStarted{}, <-ch, "loading should be readable before the search settles")

	close(search.gate)
	rest := drainEvents(t, ch)
	require.Len(t, rest, 1)
	assert.IsType(t, RepositoriesLoaded{}, rest[0])
}

func TestRoute_StartupFailure(t *testing.T) {
	search := &fakeSearch{errs: []error{errors.New("Error fetching repositories")}}
	r := newTestRouter(t, search, &fakeContributors{})

	events := drainEvents(t, r.Route(context.Background(), Startup{}))

	require.Len(t, events, 2)
	assert.Equal(t, LoadFailed{Message: "Error fetching repositories"}, events[1])
}

func TestRoute_StartupIgnoresCanceledContext(t *testing.T) {
	search := &fakeSearch{}
	r := newTestRouter(t, search, &fakeContributors{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := drainEvents(t, r.Route(ctx, Startup{}))
	require.Len(t, events, 2)
	assert.Equal(t, RepositoriesLoaded{Page: model.RepositoryPage{}}, events[1])
}

func TestRoute_FetchContributors(t *testing.T) {
	list := []model.Contributor{{ID: 5, Login: "gopher"}}

	tests := []struct {
		name string
		gw   *fakeContributors
		want []Event
	}{
		{
			name: "loaded",
			gw:   &fakeContributors{list: list},
			want: []Event{ContributorsLoaded{RepositoryID: repoA.ID, Contributors: list}},
		},
		{
			name: "empty list emits nothing",
			gw:   &fakeContributors{list: []model.Contributor{}},
		},
		{
			name: "failure is swallowed",
			gw:   &fakeContributors{err: errors.New("boom")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, &fakeSearch{}, tt.gw)
			events := drainEvents(t, r.Route(context.Background(), FetchContributors{Repository: repoA}))
			assert.Equal(t, tt.want, events)
		})
	}
}

func TestRoute_UnknownIntent(t *testing.T) {
	r := newTestRouter(t, &fakeSearch{}, &fakeContributors{})
	assert.Empty(t, drainEvents(t, r.Route(context.Background(), unknownIntent{})))
}
