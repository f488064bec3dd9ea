package reposlist

// Reduce folds one event into the previous State. It is pure: the same inputs
// always give the same output and nothing outside the return value changes.
//
// Effects never change State. An ErrorState only leaves through a new
// LoadingStarted; other changes arriving while in error are ignored.
func Reduce(prev State, ev Event) State {
	change, ok := ev.(Change)
	if !ok {
		return prev
	}

	if _, failed := prev.(ErrorState); failed {
		if _, ok := change.(LoadingStarted); ok {
			return LoadingState{}
		}
		return prev
	}

	switch c := change.(type) {
	case LoadingStarted:
		return LoadingState{}
	case RepositoriesLoaded:
		if len(c.Page.Items) == 0 {
			return EmptyState{}
		}
		return RepositoryListState{Repositories: c.Page.Items}
	case LoadFailed:
		if c.Message == "" {
			return ErrorState{}
		}
		msg := c.Message
		return ErrorState{Message: &msg}
	default:
		return prev
	}
}
