package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v81/github"

	gh "toprepos/internal/github"
	"toprepos/internal/model"
)

// GitHub implements SearchGateway and ContributorsGateway against the GitHub
// REST API. GitHub meters search and the other REST endpoints in separate
// buckets, so each call reserves a request from the budget of its own bucket.
type GitHub struct {
	client  *gh.Client
	core    *RequestBudget
	search  *RequestBudget
	maxWait time.Duration
}

var (
	_ SearchGateway       = (*GitHub)(nil)
	_ ContributorsGateway = (*GitHub)(nil)
)

// maxBudgetWait bounds how long a call waits for its rate-limit bucket before
// failing. It covers a full search window.
const maxBudgetWait = time.Minute

// Values of the X-RateLimit-Resource response header.
const (
	headerResource = "X-RateLimit-Resource"
	resourceCore   = "core"
	resourceSearch = "search"
)

// NewGitHub builds the gateway. core budgets contributor lookups; a nil core
// gets a fresh budget.
func NewGitHub(client *gh.Client, core *RequestBudget) (*GitHub, error) {
	if client == nil || client.Client == nil {
		return nil, fmt.Errorf("github gateway: nil client (use github.NewClient)")
	}
	if core == nil {
		core = NewRequestBudget()
	}
	return &GitHub{
		client:  client,
		core:    core,
		search:  newSearchBudget(),
		maxWait: maxBudgetWait,
	}, nil
}

// acquire reserves a request from b, giving up after maxWait with a rate limit
// error so callers that cannot be canceled still settle.
func (g *GitHub) acquire(ctx context.Context, op string, b *RequestBudget) error {
	wctx := ctx
	if g.maxWait > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, g.maxWait)
		defer cancel()
	}
	err := b.Acquire(wctx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return &NetworkError{Op: op, Message: "API rate limit exceeded", StatusCode: http.StatusForbidden, Err: err}
	}
	return &NetworkError{Op: op, Err: err}
}

// record folds rate-limit headers into the bucket the response names,
// falling back to the caller's bucket when the header is absent.
func (g *GitHub) record(fallback *RequestBudget, resp *github.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	switch resp.Header.Get(headerResource) {
	case resourceCore:
		g.core.UpdateFromResponse(resp.Response)
	case resourceSearch:
		g.search.UpdateFromResponse(resp.Response)
	case "":
		fallback.UpdateFromResponse(resp.Response)
	}
}

// FindRepositories runs a repository search and returns its first page.
func (g *GitHub) FindRepositories(ctx context.Context, query string, pageSize int) (model.RepositoryPage, error) {
	if pageSize <= 0 {
		return model.RepositoryPage{}, fmt.Errorf("FindRepositories: page size must be > 0 (got %d)", pageSize)
	}
	if err := g.acquire(ctx, "search repositories", g.search); err != nil {
		return model.RepositoryPage{}, err
	}

	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: pageSize}}
	res, resp, err := g.client.Client.Search.Repositories(ctx, query, opts)
	g.record(g.search, resp)
	if err != nil {
		return model.RepositoryPage{}, newNetworkError("search repositories", resp, err)
	}
	return model.PageFromGitHub(res), nil
}

// ListContributors returns the first page of contributors for owner/name,
// most active first.
func (g *GitHub) ListContributors(ctx context.Context, owner, name string) ([]model.Contributor, error) {
	if owner == "" || name == "" {
		return nil, fmt.Errorf("ListContributors: repo owner/name is required")
	}
	if err := g.acquire(ctx, "list contributors", g.core); err != nil {
		return nil, err
	}

	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	list, resp, err := g.client.Client.Repositories.ListContributors(ctx, owner, name, opts)
	g.record(g.core, resp)
	if err != nil {
		return nil, newNetworkError("list contributors", resp, err)
	}
	return model.ContributorsFromGitHub(list), nil
}
