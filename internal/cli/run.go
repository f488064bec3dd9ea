package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"toprepos/internal/config"
	"toprepos/internal/contributors"
	"toprepos/internal/gateway"
	"toprepos/internal/model"
	"toprepos/internal/output"
	"toprepos/internal/reposlist"
	"toprepos/internal/savedstate"
)

// Exit codes of `toprepos list`.
const (
	exitOK          = 0
	exitSearchError = 1
	exitFatal       = 3
)

func exitCodeForState(s reposlist.State) int {
	// Exit code contract:
	// 0 = repositories listed (possibly none)
	// 1 = the search failed
	// 3 = fatal error (no terminal state was reached)
	switch s.(type) {
	case reposlist.Content:
		return exitOK
	case reposlist.ErrorState:
		return exitSearchError
	default:
		return exitFatal
	}
}

func isTerminal(s reposlist.State) bool {
	switch s.(type) {
	case reposlist.Content, reposlist.ErrorState:
		return true
	}
	return false
}

// listDeps are the collaborators of a list run. Tests swap the gateways.
type listDeps struct {
	search       gateway.SearchGateway
	contributors gateway.ContributorsGateway
	stdout       io.Writer
	stderr       io.Writer
	logger       *slog.Logger
}

func setupOutputManager(cfg *config.Config, stdout io.Writer) (*output.Manager, error) {
	outMgr := output.NewManager()

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(stdout, cfg.Output.ConsoleFormat, cfg.Output.ContributorWidth)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(stdout, emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// File Sink
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Report Sink
	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// runList drives one container through Startup and the contributor lookups
// for the first cfg.Runtime.Contributors repositories, writing every state,
// effect and the final listing to the configured sinks.
func runList(ctx context.Context, cfg *config.Config, deps listDeps) int {
	logger := deps.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	outMgr, err := setupOutputManager(cfg, deps.stdout)
	if err != nil {
		fmt.Fprintf(deps.stderr, "Error: %v\n", err)
		return exitFatal
	}
	defer func() {
		if err := outMgr.Close(); err != nil {
			fmt.Fprintf(deps.stderr, "Error: closing output: %v\n", err)
		}
	}()

	cache, err := contributors.NewCache(deps.contributors)
	if err != nil {
		fmt.Fprintf(deps.stderr, "Error: %v\n", err)
		return exitFatal
	}
	router, err := reposlist.NewRouter(deps.search, cache, logger)
	if err != nil {
		fmt.Fprintf(deps.stderr, "Error: %v\n", err)
		return exitFatal
	}
	container, err := reposlist.New(router,
		reposlist.WithLogger(logger),
		reposlist.WithSavedStateSlot(reposlist.NewHandleSlot(savedstate.NewHandle())),
	)
	if err != nil {
		fmt.Fprintf(deps.stderr, "Error: %v\n", err)
		return exitFatal
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	_ = outMgr.Write(output.Event{Type: output.EventRunStarted})

	var (
		final  reposlist.State
		loaded map[int64][]model.Contributor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return container.Run(gctx)
	})
	g.Go(func() error {
		defer container.Close()
		var err error
		final, loaded, err = collect(gctx, cfg, container, cache, outMgr)
		return err
	})
	err = g.Wait()

	if final == nil || !isTerminal(final) {
		if err == nil || errors.Is(err, context.Canceled) {
			err = ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no result within %s", cfg.Runtime.Timeout)
		}
		fmt.Fprintf(deps.stderr, "Error: %v\n", err)
		_ = outMgr.Write(output.Event{Type: output.EventRunFinished, ExitCode: exitFatal})
		return exitFatal
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("run ended with error", "error", err)
	}

	code := exitCodeForState(final)
	if err := outMgr.Write(output.NewListing(final, loaded)); err != nil {
		logger.Warn("writing listing failed", "error", err)
	}
	_ = outMgr.Write(output.Event{Type: output.EventRunFinished, ExitCode: code})
	return code
}

// collect submits Startup, follows the state stream to a terminal state, then
// requests contributors and gathers effects until every lookup settled or the
// contributor wait elapsed.
func collect(ctx context.Context, cfg *config.Config, c *reposlist.Container, cache *contributors.Cache, out *output.Manager) (reposlist.State, map[int64][]model.Contributor, error) {
	states := c.States(ctx)
	effects := c.Effects(ctx)
	loaded := make(map[int64][]model.Contributor)

	if !c.Submit(reposlist.Startup{}) {
		return nil, loaded, errors.New("container closed before startup")
	}

	var final reposlist.State
	for final == nil {
		select {
		case <-ctx.Done():
			return nil, loaded, ctx.Err()
		case s, ok := <-states:
			if !ok {
				return nil, loaded, errors.New("state stream ended")
			}
			_ = out.Write(output.EventFromState(s))
			// The slot starts empty, so the first terminal state is the
			// outcome of this Startup.
			if isTerminal(s) {
				final = s
			}
		}
	}

	list, ok := final.(reposlist.RepositoryListState)
	if !ok || cfg.Runtime.Contributors == 0 {
		return final, loaded, nil
	}

	pending := make(map[int64]bool)
	for i, repo := range list.Repositories {
		if i >= cfg.Runtime.Contributors {
			break
		}
		pending[repo.ID] = true
		c.Submit(reposlist.FetchContributors{Repository: repo})
	}

	wait := time.NewTimer(cfg.Runtime.ContributorWait)
	defer wait.Stop()
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()

	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return final, loaded, nil
		case <-wait.C:
			return final, loaded, nil
		case eff, ok := <-effects:
			if !ok {
				return final, loaded, nil
			}
			if ev, ok := output.EventFromEffect(eff); ok {
				_ = out.Write(ev)
			}
			if cl, ok := eff.(reposlist.ContributorsLoaded); ok && pending[cl.RepositoryID] {
				loaded[cl.RepositoryID] = cl.Contributors
				delete(pending, cl.RepositoryID)
			}
		case <-poll.C:
			// Empty resolutions emit no effect; settle them from the cache.
			for id := range pending {
				if got, ok := cache.Lookup(id); ok && len(got) == 0 {
					loaded[id] = got
					delete(pending, id)
				}
			}
		}
	}
	return final, loaded, nil
}
