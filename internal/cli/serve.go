package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"toprepos/internal/config"
	"toprepos/internal/contributors"
	"toprepos/internal/flags"
	"toprepos/internal/gateway"
	"toprepos/internal/reposlist"
	"toprepos/internal/savedstate"
	"toprepos/internal/server"
)

const (
	shutdownGrace = 5 * time.Second

	// streamBacklog bounds what a stalled SSE client can hold buffered
	// before its stream is closed.
	streamBacklog = 1024
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the repository list over HTTP",
	Long: `Serve the repository list pipeline over HTTP.

Endpoints:
	POST /intents/startup            load the top repositories
	POST /intents/contributors/:id   load contributors of a listed repository
	GET  /state                      current state as JSON
	GET  /states                     state stream (server-sent events)
	GET  /effects                    contributor results (server-sent events)
	POST /session/restart            rebuild the pipeline from the last saved list
	GET  /healthz                    liveness

Contributor lookups are cached for the lifetime of the process and shared
across restarts.

Examples:
	toprepos serve
	toprepos serve --addr 127.0.0.1:9000 --allowed-origins http://localhost:3000
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(serveMain(cmd))
	},
}

func serveMain(cmd *cobra.Command) int {
	loaded, err := resolveConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}
	logger := newLogger(os.Stderr, loaded.Runtime.Verbose)
	if !loaded.Runtime.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := newGitHubGateway(ctx, loaded, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}
	if err := runServe(ctx, loaded, gw, gw, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}
	return exitOK
}

// newContainerFactory returns a factory whose containers share one contributor
// cache and one saved-state handle, so a rebuilt container restores the last
// listed content.
func newContainerFactory(search gateway.SearchGateway, cgw gateway.ContributorsGateway, logger *slog.Logger) (server.ContainerFactory, error) {
	cache, err := contributors.NewCache(cgw)
	if err != nil {
		return nil, err
	}
	slot := reposlist.NewHandleSlot(savedstate.NewHandle())
	return func() (*reposlist.Container, error) {
		router, err := reposlist.NewRouter(search, cache, logger)
		if err != nil {
			return nil, err
		}
		return reposlist.New(router,
			reposlist.WithSavedStateSlot(slot),
			reposlist.WithLogger(logger),
			reposlist.WithMaxBacklog(streamBacklog),
		)
	}, nil
}

// runServe listens on cfg.Server.Addr until ctx is done, then shuts down.
func runServe(ctx context.Context, cfg *config.Config, search gateway.SearchGateway, cgw gateway.ContributorsGateway, logger *slog.Logger) error {
	factory, err := newContainerFactory(search, cgw, logger)
	if err != nil {
		return err
	}
	srv, err := server.New(factory,
		server.WithLogger(logger),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if err := srv.Start(gctx); err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Ends open event streams so Shutdown does not wait on them.
		srv.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownGrace)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&cfg.Server.Addr, flags.FlagAddr, cfg.Server.Addr, "Listen address")
	serveCmd.Flags().StringSliceVar(&cfg.Server.AllowedOrigins, flags.FlagAllowedOrigins, nil, "CORS origins allowed to call the API (repeatable; comma-separated accepted; empty = any)")
}
