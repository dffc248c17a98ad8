// Package ws pushes auth state snapshots to the client over a websocket, so
// a logout or role switch in one place flips every open view of that session.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/geocoder89/akbidlab/internal/auth"
)

// StateSource is the slice of auth.Controller the hub needs.
type StateSource interface {
	State() auth.State
	Subscribe(fn func(auth.State)) (cancel func())
}

type ConnObserver interface {
	WSOpened()
	WSClosed()
}

type noopObserver struct{}

func (noopObserver) WSOpened() {}
func (noopObserver) WSClosed() {}

type Message struct {
	Type  string     `json:"type"`
	State auth.State `json:"state"`
}

type envelope struct {
	sessionID string
	payload   []byte
}

// sessionClients is the set of open connections of one session and the
// subscription feeding them.
type sessionClients struct {
	clients map[*Client]struct{}
	source  StateSource
	cancel  func()
}

// Hub tracks connections per session id. The first connection of a session
// subscribes to its controller; the last one to leave unsubscribes.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
	done       chan struct{}

	sessions map[string]*sessionClients
	obs      ConnObserver
	log      *slog.Logger
}

func NewHub(obs ConnObserver, log *slog.Logger) *Hub {
	if obs == nil {
		obs = noopObserver{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 64),
		done:       make(chan struct{}),
		sessions:   make(map[string]*sessionClients),
		obs:        obs,
		log:        log,
	}
}

// Run owns all hub state until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, s := range h.sessions {
				s.cancel()
				for c := range s.clients {
					close(c.send)
				}
			}
			h.sessions = map[string]*sessionClients{}
			return

		case c := <-h.register:
			s, ok := h.sessions[c.sessionID]
			if !ok {
				s = &sessionClients{clients: make(map[*Client]struct{})}
				h.sessions[c.sessionID] = s
			}
			if s.source != c.source {
				// the session's controller was rebuilt; follow the live one
				h.subscribe(s, c.sessionID, c.source)
			}
			s.clients[c] = struct{}{}
			h.obs.WSOpened()
			h.log.Debug("ws: client registered", "session_id", c.sessionID)

		case c := <-h.unregister:
			h.drop(c)

		case env := <-h.broadcast:
			s, ok := h.sessions[env.sessionID]
			if !ok {
				continue
			}
			for c := range s.clients {
				select {
				case c.send <- env.payload:
				default:
					// slow reader, cut it loose
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) subscribe(s *sessionClients, sessionID string, src StateSource) {
	if s.cancel != nil {
		s.cancel()
	}
	s.source = src
	s.cancel = src.Subscribe(func(st auth.State) { h.publish(sessionID, st) })
}

func (h *Hub) drop(c *Client) {
	s, ok := h.sessions[c.sessionID]
	if !ok {
		return
	}
	if _, ok := s.clients[c]; !ok {
		return
	}

	delete(s.clients, c)
	close(c.send)
	h.obs.WSClosed()

	if len(s.clients) == 0 {
		s.cancel()
		delete(h.sessions, c.sessionID)
	}
}

func (h *Hub) publish(sessionID string, st auth.State) {
	payload, err := encode(st)
	if err != nil {
		h.log.Error("ws: encode state", "err", err)
		return
	}

	select {
	case h.broadcast <- envelope{sessionID: sessionID, payload: payload}:
	case <-h.done:
	}
}

// Register hands c to the hub. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func encode(st auth.State) ([]byte, error) {
	return json.Marshal(Message{Type: "auth_state", State: st})
}
