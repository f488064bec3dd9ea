// Package server exposes a repository list container over HTTP: intents are
// posted as requests and states/effects are streamed as Server-Sent Events.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"toprepos/internal/reposlist"
)

// ErrClosed is returned once the server has been closed.
var ErrClosed = errors.New("server: closed")

// ContainerFactory builds a fresh container. Containers built by one factory
// usually share a contributor cache and a saved-state slot, so a rebuilt
// container starts from the last content and skips resolved lookups.
type ContainerFactory func() (*reposlist.Container, error)

type session struct {
	id        string
	container *reposlist.Container
	cancel    context.CancelFunc
	done      chan struct{}
}

// Server owns the current container session and the gin engine serving it.
type Server struct {
	factory        ContainerFactory
	logger         *slog.Logger
	allowedOrigins []string
	heartbeat      time.Duration

	mu      sync.RWMutex
	baseCtx context.Context
	current *session
	closed  bool

	clients *clientRegistry
	engine  *gin.Engine
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAllowedOrigins restricts CORS to the given origins. Empty or "*" allows
// every origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithHeartbeat sets the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

func New(factory ContainerFactory, opts ...Option) (*Server, error) {
	if factory == nil {
		return nil, fmt.Errorf("server: nil container factory")
	}
	s := &Server{
		factory:   factory,
		logger:    slog.Default(),
		heartbeat: 30 * time.Second,
		clients:   newClientRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	r.Use(cors.New(s.corsConfig()))

	r.GET("/healthz", s.health)
	r.GET("/state", s.getState)
	r.GET("/states", s.streamStates)
	r.GET("/effects", s.streamEffects)

	intents := r.Group("/intents")
	{
		intents.POST("/startup", s.postStartup)
		intents.POST("/contributors/:id", s.postFetchContributors)
	}
	r.POST("/session/restart", s.postRestart)
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Cache-Control"},
		MaxAge:       12 * time.Hour,
	}
	all := len(s.allowedOrigins) == 0
	for _, o := range s.allowedOrigins {
		if o == "*" {
			all = true
		}
	}
	if all {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.allowedOrigins
	}
	return cfg
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).Truncate(time.Millisecond),
		)
	}
}

// Handler returns the HTTP handler. Start must be called before serving.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start builds and runs the first container. Containers run until ctx is done
// or Close is called.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("server: ctx is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.current != nil {
		return fmt.Errorf("server: already started")
	}
	s.baseCtx = ctx
	sess, err := s.startSessionLocked()
	if err != nil {
		return err
	}
	s.current = sess
	return nil
}

func (s *Server) startSessionLocked() (*session, error) {
	c, err := s.factory()
	if err != nil {
		return nil, fmt.Errorf("build container: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("build container: factory returned nil")
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	sess := &session{
		id:        uuid.NewString(),
		container: c,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go func() {
		defer close(sess.done)
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("container stopped", "session", sess.id, "error", err)
		}
	}()
	s.logger.Debug("session started", "session", sess.id, "state", c.Current().Kind())
	return sess, nil
}

// Restart tears down the current container and replaces it with a new one
// from the factory. Open state and effect streams move to the new container.
func (s *Server) Restart() (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	if s.current == nil {
		s.mu.Unlock()
		return "", fmt.Errorf("server: not started")
	}
	next, err := s.startSessionLocked()
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	prev := s.current
	s.current = next
	s.mu.Unlock()

	stopSession(prev)
	s.logger.Info("session restarted", "previous", prev.id, "session", next.id)
	return next.id, nil
}

func stopSession(sess *session) {
	sess.container.Close()
	sess.cancel()
	<-sess.done
}

// Close stops the current container and ends every open stream. Idempotent.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sess := s.current
	s.mu.Unlock()

	if sess != nil {
		stopSession(sess)
	}
}

func (s *Server) session() (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.current == nil {
		return nil, fmt.Errorf("server: not started")
	}
	return s.current, nil
}
