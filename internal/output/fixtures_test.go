package output

import (
	"toprepos/internal/model"
	"toprepos/internal/reposlist"
)

var (
	goRepo    = model.Repository{ID: 1, Name: "go", FullName: "golang/go", Owner: model.Owner{ID: 10, Login: "golang"}, StarCount: 120000}
	linuxRepo = model.Repository{ID: 2, Name: "linux", FullName: "torvalds/linux", Owner: model.Owner{ID: 20, Login: "torvalds"}, StarCount: 98000}

	goContributors = []model.Contributor{
		{ID: 100, Login: "rsc"},
		{ID: 101, Login: "ianlancetaylor"},
		{ID: 102, Login: "griesemer"},
	}
)

func sampleListing() Listing {
	state := reposlist.RepositoryListState{Repositories: []model.Repository{goRepo, linuxRepo}}
	return NewListing(state, map[int64][]model.Contributor{goRepo.ID: goContributors})
}
