package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"toprepos/internal/model"
	"toprepos/internal/reposlist"
)

// StateResponse is the JSON form of a reposlist.State.
type StateResponse struct {
	Kind         string             `json:"kind"`
	Message      *string            `json:"message,omitempty"`
	Repositories []model.Repository `json:"repositories,omitempty"`
}

func stateResponse(st reposlist.State) StateResponse {
	resp := StateResponse{Kind: st.Kind()}
	switch t := st.(type) {
	case reposlist.RepositoryListState:
		resp.Repositories = t.Repositories
	case reposlist.ErrorState:
		resp.Message = t.Message
	}
	return resp
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) abortUnavailable(c *gin.Context, err error) {
	status := http.StatusServiceUnavailable
	if !errors.Is(err, ErrClosed) {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

// health handles GET /healthz
func (s *Server) health(c *gin.Context) {
	sess, err := s.session()
	if err != nil {
		s.abortUnavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"session":     sess.id,
		"state":       sess.container.Current().Kind(),
		"subscribers": s.clients.counts(),
		"pipeline":    sess.container.Stats(),
	})
}

// getState handles GET /state
func (s *Server) getState(c *gin.Context) {
	sess, err := s.session()
	if err != nil {
		s.abortUnavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, stateResponse(sess.container.Current()))
}

// postStartup handles POST /intents/startup
func (s *Server) postStartup(c *gin.Context) {
	sess, err := s.session()
	if err != nil {
		s.abortUnavailable(c, err)
		return
	}
	if !sess.container.Submit(reposlist.Startup{}) {
		s.abortUnavailable(c, ErrClosed)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": "startup"})
}

// postFetchContributors handles POST /intents/contributors/:id. The id must
// belong to a repository in the current list.
func (s *Server) postFetchContributors(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "repository id must be an integer"})
		return
	}
	sess, err := s.session()
	if err != nil {
		s.abortUnavailable(c, err)
		return
	}

	list, ok := sess.container.Current().(reposlist.RepositoryListState)
	if !ok {
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Error: "no repository list loaded"})
		return
	}
	for _, repo := range list.Repositories {
		if repo.ID != id {
			continue
		}
		if !sess.container.Submit(reposlist.FetchContributors{Repository: repo}) {
			s.abortUnavailable(c, ErrClosed)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"accepted": "fetch_contributors", "repository": repo.FullName})
		return
	}
	c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "repository not in current list"})
}

// postRestart handles POST /session/restart
func (s *Server) postRestart(c *gin.Context) {
	id, err := s.Restart()
	if err != nil {
		s.abortUnavailable(c, err)
		return
	}
	sess, err := s.session()
	if err != nil {
		s.abortUnavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": id, "state": sess.container.Current().Kind()})
}

// streamStates handles GET /states (text/event-stream). Each event carries a
// StateResponse; the first is the current state.
func (s *Server) streamStates(c *gin.Context) {
	s.stream(c, "states", func(ctx context.Context, ct *reposlist.Container) <-chan any {
		return forward(ctx, ct.States(ctx), func(st reposlist.State) any { return stateResponse(st) })
	})
}

// streamEffects handles GET /effects (text/event-stream).
func (s *Server) streamEffects(c *gin.Context) {
	s.stream(c, "effects", func(ctx context.Context, ct *reposlist.Container) <-chan any {
		return forward(ctx, ct.Effects(ctx), func(e reposlist.Effect) any { return e })
	})
}

func forward[T any](ctx context.Context, in <-chan T, conv func(T) any) <-chan any {
	out := make(chan any)
	go func() {
		defer close(out)
		for v := range in {
			select {
			case out <- conv(v):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// stream writes SSE events from subscribe until the client goes away or the
// server closes. When a restart replaces the container the stream resubscribes
// to the new one.
func (s *Server) stream(c *gin.Context, name string, subscribe func(context.Context, *reposlist.Container) <-chan any) {
	sess, err := s.session()
	if err != nil {
		s.abortUnavailable(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	client := s.clients.add(name)
	defer s.clients.remove(client.ID)

	ctx := c.Request.Context()
	event := name[:len(name)-1] // "states" -> "state"

	c.Status(http.StatusOK)
	c.SSEvent("connected", gin.H{"client": client.ID, "session": sess.id})
	c.Writer.Flush()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		ch := subscribe(ctx, sess.container)
	recv:
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-ch:
				if !ok {
					break recv
				}
				c.SSEvent(event, v)
				c.Writer.Flush()
			case <-ticker.C:
				c.SSEvent("heartbeat", "ping")
				c.Writer.Flush()
			}
		}

		next, err := s.session()
		if err != nil || next == sess {
			return
		}
		sess = next
		c.SSEvent("session", gin.H{"session": sess.id})
		c.Writer.Flush()
	}
}
