package model

import "github.com/google/go-github/v81/github"

// Owner identifies the account that owns a repository.
type Owner struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// Repository is one search hit. Values are comparable and never mutated after
// they leave the gateway.
type Repository struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	FullName  string `json:"full_name"`
	Owner     Owner  `json:"owner"`
	StarCount int    `json:"stargazers_count"`
}

// RepositoryPage is a single page of search results. Items keep the order
// returned by the search API.
type RepositoryPage struct {
	TotalCount        int          `json:"total_count"`
	IncompleteResults bool         `json:"incomplete_results"`
	Items             []Repository `json:"items"`
}

// Contributor is a single entry of a repository's contributor list.
type Contributor struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// RepositoryFromGitHub converts a go-github repository. A nil input yields the
// zero Repository.
func RepositoryFromGitHub(r *github.Repository) Repository {
	if r == nil {
		return Repository{}
	}
	return Repository{
		ID:       r.GetID(),
		Name:     r.GetName(),
		FullName: r.GetFullName(),
		Owner: Owner{
			ID:    r.GetOwner().GetID(),
			Login: r.GetOwner().GetLogin(),
		},
		StarCount: r.GetStargazersCount(),
	}
}

// PageFromGitHub converts a search result, preserving item order. Nil entries
// in the result are skipped.
func PageFromGitHub(res *github.RepositoriesSearchResult) RepositoryPage {
	if res == nil {
		return RepositoryPage{Items: []Repository{}}
	}
	items := make([]Repository, 0, len(res.Repositories))
	for _, r := range res.Repositories {
		if r == nil {
			continue
		}
		items = append(items, RepositoryFromGitHub(r))
	}
	return RepositoryPage{
		TotalCount:        res.GetTotal(),
		IncompleteResults: res.GetIncompleteResults(),
		Items:             items,
	}
}

// ContributorsFromGitHub converts a contributor listing, preserving order.
func ContributorsFromGitHub(in []*github.Contributor) []Contributor {
	out := make([]Contributor, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		out = append(out, Contributor{ID: c.GetID(), Login: c.GetLogin()})
	}
	return out
}
