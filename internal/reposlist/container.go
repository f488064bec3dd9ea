package reposlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"toprepos/internal/relay"
)

// ErrAlreadyRunning is returned by a second call to Container.Run.
var ErrAlreadyRunning = errors.New("container: already running")

// Container owns the current State. A single Run goroutine routes intents,
// folds their events through Reduce, and publishes the results.
type Container struct {
	router IntentRouter
	slot   SavedStateSlot
	logger *slog.Logger

	intents *relay.Queue[Intent]
	events  *relay.Queue[Event]
	states  *relay.Relay[State]
	effects *relay.Relay[Effect]

	// streamCtx is canceled on Close to stop forwarding in-flight streams.
	streamCtx    context.Context
	cancelStream context.CancelFunc

	maxBacklog int

	running   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Container)

// WithSavedStateSlot restores the initial State from slot and saves every
// Content State into it.
func WithSavedStateSlot(slot SavedStateSlot) Option {
	return func(c *Container) {
		c.slot = slot
	}
}

// WithMaxBacklog cuts off a States or Effects subscriber once n values are
// waiting for it; its channel closes after the buffered values.
func WithMaxBacklog(n int) Option {
	return func(c *Container) {
		c.maxBacklog = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(router IntentRouter, opts ...Option) (*Container, error) {
	if router == nil {
		return nil, fmt.Errorf("container: nil router")
	}
	c := &Container{
		router:  router,
		logger:  slog.Default(),
		intents: relay.NewQueue[Intent](),
		events:  relay.NewQueue[Event](),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	var initial State = InitialState{}
	if c.slot != nil {
		if saved, ok := c.slot.LoadSavedState(); ok {
			initial = saved
			c.logger.Debug("state restored", "kind", saved.Kind())
		}
	}
	c.states = relay.NewBehavior(initial, relay.WithMaxBacklog(c.maxBacklog))
	c.effects = relay.NewPublish[Effect](relay.WithMaxBacklog(c.maxBacklog))
	c.streamCtx, c.cancelStream = context.WithCancel(context.Background())
	return c, nil
}

// Submit enqueues an intent without blocking. It returns false once the
// container is closed.
func (c *Container) Submit(in Intent) bool {
	if in == nil {
		return false
	}
	return c.intents.Push(in)
}

// States replays the current State, then delivers every later distinct State.
// The channel closes when ctx is done or the container is closed.
func (c *Container) States(ctx context.Context) <-chan State {
	return c.states.Subscribe(ctx)
}

// Effects delivers effects produced while subscribed. Nothing is replayed.
func (c *Container) Effects(ctx context.Context) <-chan Effect {
	return c.effects.Subscribe(ctx)
}

// Current returns the current State.
func (c *Container) Current() State {
	s, _ := c.states.Value()
	return s
}

// Stats is a point-in-time view of a container's load.
type Stats struct {
	PendingIntents    int `json:"pending_intents"`
	PendingEvents     int `json:"pending_events"`
	StateSubscribers  int `json:"state_subscribers"`
	EffectSubscribers int `json:"effect_subscribers"`
}

func (c *Container) Stats() Stats {
	return Stats{
		PendingIntents:    c.intents.Len(),
		PendingEvents:     c.events.Len(),
		StateSubscribers:  c.states.Subscribers(),
		EffectSubscribers: c.effects.Subscribers(),
	}
}

// Run processes intents and events until ctx is done or Close is called.
// Canceling ctx closes the container.
func (c *Container) Run(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("container: ctx is nil")
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	for {
		select {
		case <-c.done:
			return nil
		default:
		}

		if in, ok := c.intents.TryPop(); ok {
			c.route(in)
			continue
		}
		if ev, ok := c.events.TryPop(); ok {
			c.fold(ev)
			continue
		}

		select {
		case <-ctx.Done():
			c.Close()
			return ctx.Err()
		case <-c.done:
			return nil
		case <-c.intents.Wait():
		case <-c.events.Wait():
		}
	}
}

func (c *Container) route(in Intent) {
	c.logger.Debug("intent", "type", IntentName(in))

	stream := c.router.Route(c.streamCtx, in)
	go func() {
		for {
			select {
			case <-c.streamCtx.Done():
				return
			case ev, ok := <-stream:
				if !ok {
					return
				}
				if !c.events.Push(ev) {
					return
				}
			}
		}
	}()
}

func (c *Container) fold(ev Event) {
	if eff, ok := ev.(Effect); ok {
		if loaded, ok := eff.(ContributorsLoaded); ok {
			c.logger.Debug("effect", "repository_id", loaded.RepositoryID, "contributors", len(loaded.Contributors))
		}
		c.effects.Publish(eff)
		return
	}

	// Run is the only publisher, so the retained value is the current State.
	prev := c.Current()
	next := Reduce(prev, ev)
	if StatesEqual(prev, next) {
		return
	}

	c.logger.Debug("state", "from", prev.Kind(), "to", next.Kind())
	c.states.Publish(next)

	if content, ok := next.(Content); ok && c.slot != nil {
		if err := c.slot.SaveState(content); err != nil {
			c.logger.Warn("saving state failed", "kind", content.Kind(), "error", err)
		}
	}
}

// Close stops Run, ends every subscription and stops forwarding in-flight
// streams. Gateway calls already started are left to finish. Idempotent.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancelStream()
		c.intents.Close()
		c.events.Close()
		c.states.Close()
		c.effects.Close()
	})
}

// Done is closed once Close has been called.
func (c *Container) Done() <-chan struct{} {
	return c.done
}
