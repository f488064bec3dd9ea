// Package gateway defines the remote collaborators of the repository list
// pipeline and their GitHub-backed implementation.
//
// Each call yields exactly one result or one error. Failures are reported as
// *NetworkError carrying the origin's human-readable message.
package gateway

import (
	"context"

	"toprepos/internal/model"
)

// SearchGateway finds repositories matching a search query.
type SearchGateway interface {
	FindRepositories(ctx context.Context, query string, pageSize int) (model.RepositoryPage, error)
}

// ContributorsGateway lists the contributors of a single repository.
type ContributorsGateway interface {
	ListContributors(ctx context.Context, owner, name string) ([]model.Contributor, error)
}
