package auth

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/akbidlab/internal/cache"
	"github.com/geocoder89/akbidlab/internal/session"
	"github.com/google/uuid"
)

var ErrUnknownSession = errors.New("unknown session")

// Registry hands out one Controller per client session id. Controllers that
// see no traffic for the idle TTL are dropped unless something still listens
// to them; the session entry itself lives on in the store and is restored by
// the next controller.
type Registry struct {
	store       session.Store
	identity    Identity
	opts        Options
	controllers *cache.Cache[*Controller]
}

func NewRegistry(store session.Store, id Identity, opts Options, idleTTL time.Duration) *Registry {
	return &Registry{
		store:       store,
		identity:    id,
		opts:        opts,
		controllers: cache.New[*Controller](idleTTL),
	}
}

// Controller returns the initialized controller for sessionID. A controller
// that already existed re-reads the store, since other replicas may have
// logged the session in or out in the meantime.
func (r *Registry) Controller(ctx context.Context, sessionID string) *Controller {
	c, loaded := r.controllers.GetOrSet(sessionID, func() *Controller {
		return NewController(sessionID, r.store, r.identity, r.opts)
	})

	c.Initialize(ctx)
	if loaded {
		c.Revalidate(ctx)
	}
	return c
}

// Rotate moves the controller of sessionID, with its store entries, to a
// freshly generated id and returns that id. The old id is forgotten.
func (r *Registry) Rotate(ctx context.Context, sessionID string) (string, *Controller, error) {
	c, ok := r.controllers.Get(sessionID)
	if !ok {
		return "", nil, ErrUnknownSession
	}

	next := uuid.NewString()
	if err := c.rebind(ctx, next); err != nil {
		return "", nil, err
	}

	r.controllers.Set(next, c)
	r.controllers.Delete(sessionID)
	return next, c, nil
}

// Lookup returns the controller for sessionID without creating one.
func (r *Registry) Lookup(sessionID string) (*Controller, bool) {
	return r.controllers.Get(sessionID)
}

func (r *Registry) Forget(sessionID string) {
	r.controllers.Delete(sessionID)
}

func (r *Registry) Len() int {
	return r.controllers.Len()
}

// Sweep drops idle controllers. One with live subscribers, such as an open
// websocket, is kept so pushes keep flowing from the instance that serves
// the session's requests.
func (r *Registry) Sweep() int {
	return r.controllers.SweepUnless(func(_ string, c *Controller) bool {
		return c.Subscribers() > 0
	})
}
