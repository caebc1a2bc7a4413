package diagrams

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	sessioncontext "sitecanvas/frontend/shared/context"
)

// Presence message types. The channel is a pure side channel: nothing here
// touches stored diagrams.
const (
	PresenceJoin   = "user_joined"
	PresenceLeave  = "user_left"
	PresenceList   = "presence_list"
	PresenceCursor = "cursor"
)

// PresenceMessage is the envelope relayed between participants of a diagram.
type PresenceMessage struct {
	Type     string          `json:"type"`
	ConnID   string          `json:"connId"`
	Username string          `json:"username"`
	Users    []PresenceUser  `json:"users,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// PresenceUser identifies one live participant.
type PresenceUser struct {
	ConnID   string `json:"connId"`
	Username string `json:"username"`
}

type presenceConn struct {
	id       string
	username string
	ws       *websocket.Conn
	send     chan PresenceMessage
}

// PresenceHub tracks who is looking at each diagram and relays their cursor
// positions.
type PresenceHub struct {
	mu    sync.Mutex
	rooms map[int64]map[string]*presenceConn
}

func NewPresenceHub() *PresenceHub {
	return &PresenceHub{rooms: make(map[int64]map[string]*presenceConn)}
}

// Users returns the current participants of a diagram.
func (h *PresenceHub) Users(diagramID int64) []PresenceUser {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.usersLocked(diagramID)
}

func (h *PresenceHub) usersLocked(diagramID int64) []PresenceUser {
	users := make([]PresenceUser, 0, len(h.rooms[diagramID]))
	for _, c := range h.rooms[diagramID] {
		users = append(users, PresenceUser{ConnID: c.id, Username: c.username})
	}
	return users
}

// broadcastLocked queues msg for everyone in the room except the sender.
func (h *PresenceHub) broadcastLocked(diagramID int64, senderID string, msg PresenceMessage) {
	for _, c := range h.rooms[diagramID] {
		if c.id == senderID {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.dropLocked(diagramID, c.id, false)
		}
	}
}

func (h *PresenceHub) dropLocked(diagramID int64, id string, announce bool) {
	c, ok := h.rooms[diagramID][id]
	if !ok {
		return
	}
	delete(h.rooms[diagramID], id)
	if len(h.rooms[diagramID]) == 0 {
		delete(h.rooms, diagramID)
	}
	close(c.send)
	_ = c.ws.Close()
	if announce {
		h.broadcastLocked(diagramID, id, PresenceMessage{
			Type: PresenceLeave, ConnID: c.id, Username: c.username,
		})
	}
}

func (h *PresenceHub) leave(diagramID int64, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(diagramID, id, true)
}

// Handler upgrades the request into a presence connection for the diagram.
// The joiner gets the current participant list; everyone else gets a join
// notice. Cursor messages are relayed verbatim to the rest of the room.
func (h *PresenceHub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		diagramID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || diagramID <= 0 {
			http.Error(w, "invalid diagram id", http.StatusBadRequest)
			return
		}

		username := "anonymous"
		if session, ok := sessioncontext.GetSessionFromContext(r.Context()); ok {
			username = session.User.Username
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("presence ws upgrade failed", slog.Any("err", err))
			return
		}

		c := &presenceConn{
			id:       uuid.NewString(),
			username: username,
			ws:       ws,
			send:     make(chan PresenceMessage, 32),
		}

		h.mu.Lock()
		if h.rooms[diagramID] == nil {
			h.rooms[diagramID] = make(map[string]*presenceConn)
		}
		h.rooms[diagramID][c.id] = c
		c.send <- PresenceMessage{Type: PresenceList, ConnID: c.id, Users: h.usersLocked(diagramID)}
		h.broadcastLocked(diagramID, c.id, PresenceMessage{
			Type: PresenceJoin, ConnID: c.id, Username: c.username,
		})
		h.mu.Unlock()

		go h.writeLoop(diagramID, c)
		h.readLoop(diagramID, c)
	}
}

func (h *PresenceHub) writeLoop(diagramID int64, c *presenceConn) {
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteJSON(msg); err != nil {
			h.leave(diagramID, c.id)
			return
		}
	}
}

func (h *PresenceHub) readLoop(diagramID int64, c *presenceConn) {
	defer h.leave(diagramID, c.id)
	for {
		var msg PresenceMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type != PresenceCursor {
			continue
		}
		// The relay stamps the sender; clients cannot spoof each other.
		msg.ConnID = c.id
		msg.Username = c.username
		h.mu.Lock()
		h.broadcastLocked(diagramID, c.id, msg)
		h.mu.Unlock()
	}
}
