package ws

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// ErrNotConnected reports that the target user holds no live connection.
// Callers treat it as a transient delivery failure: the message is already
// persisted and the recipient will see it on the next poll or reconnect.
var ErrNotConnected = errors.New("user has no active connections")

// Envelope is the frame exchanged over the push channel.
type Envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

func NewEnvelope(kind string, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "marshal envelope payload")
	}
	return Envelope{Type: kind, Data: raw}, nil
}

// Hub is the process-local presence registry: which user holds which live
// connections. Fan-out resolves the recipient's connections here directly;
// there is no per-conversation room abstraction.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uint]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.clients[c.userID]
	if conns == nil {
		conns = make(map[*Client]struct{})
		h.clients[c.userID] = conns
	}
	conns[c] = struct{}{}
	jww.DEBUG.Printf("ws: user %d connected (%d connections)", c.userID, len(conns))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.clients[c.userID]
	if conns == nil {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
}

// Online reports whether the user holds at least one live connection.
func (h *Hub) Online(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// SendToUser fans an envelope out to every live connection of one user.
// A connection with a full send buffer is skipped; delivery succeeds when
// at least one connection accepted the frame.
func (h *Hub) SendToUser(userID uint, env Envelope) error {
	return h.sendExcept(userID, nil, env)
}

// SendToUserExcept mirrors a frame to the user's other connections,
// skipping the one that originated it.
func (h *Hub) SendToUserExcept(userID uint, origin *Client, env Envelope) error {
	return h.sendExcept(userID, origin, env)
}

func (h *Hub) sendExcept(userID uint, skip *Client, env Envelope) error {
	frame, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.clients[userID]
	delivered := false
	for c := range conns {
		if c == skip {
			delivered = true
			continue
		}
		select {
		case c.send <- frame:
			delivered = true
		default:
			// Slow consumer; drop the frame rather than block fan-out.
			jww.WARN.Printf("ws: dropping frame for user %d, send buffer full", userID)
		}
	}
	if !delivered {
		return ErrNotConnected
	}
	return nil
}
