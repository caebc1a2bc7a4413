package diagrams

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Events pushed to subscribers of a diagram.
const (
	EventDiagramUpdated = "diagram_updated"
	EventNewDiagram     = "new_diagram"
)

// SyncEvent is one push notification on the sync channel.
type SyncEvent struct {
	Type      string `json:"type"`
	DiagramID int64  `json:"diagramId"`
	ProjectID int64  `json:"projectId,omitempty"`
}

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Session auth happens in the surrounding middleware; the origin check is
	// left to the deployment proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

type syncConn struct {
	id   string
	ws   *websocket.Conn
	send chan SyncEvent
}

// SyncHub fans diagram change notifications out to websocket subscribers,
// grouped by diagram id. Connections are removed on any write or read error.
type SyncHub struct {
	mu    sync.Mutex
	conns map[int64]map[string]*syncConn
}

func NewSyncHub() *SyncHub {
	return &SyncHub{conns: make(map[int64]map[string]*syncConn)}
}

// Broadcast queues an event for every subscriber of the diagram, plus the
// id-0 lobby where sessions wait before their first save assigns an id.
// Subscribers too slow to drain their queue are dropped rather than blocking
// the caller.
func (h *SyncHub) Broadcast(ev SyncEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, channel := range []int64{ev.DiagramID, 0} {
		for _, c := range h.conns[channel] {
			select {
			case c.send <- ev:
			default:
				h.removeLocked(channel, c.id)
			}
		}
	}
}

// SubscriberCount reports the live subscribers of a diagram.
func (h *SyncHub) SubscriberCount(diagramID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[diagramID])
}

func (h *SyncHub) add(diagramID int64, c *syncConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[diagramID] == nil {
		h.conns[diagramID] = make(map[string]*syncConn)
	}
	h.conns[diagramID][c.id] = c
}

func (h *SyncHub) remove(diagramID int64, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(diagramID, id)
}

func (h *SyncHub) removeLocked(diagramID int64, id string) {
	c, ok := h.conns[diagramID][id]
	if !ok {
		return
	}
	delete(h.conns[diagramID], id)
	if len(h.conns[diagramID]) == 0 {
		delete(h.conns, diagramID)
	}
	close(c.send)
	_ = c.ws.Close()
}

// Handler upgrades the request and subscribes it to the diagram in the URL.
func (h *SyncHub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// id 0 is the lobby channel for sessions without a saved diagram yet.
		diagramID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || diagramID < 0 {
			http.Error(w, "invalid diagram id", http.StatusBadRequest)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("sync ws upgrade failed", slog.Any("err", err))
			return
		}

		c := &syncConn{id: uuid.NewString(), ws: ws, send: make(chan SyncEvent, 16)}
		h.add(diagramID, c)
		slog.Debug("sync subscriber joined", slog.Int64("diagram_id", diagramID), slog.String("conn_id", c.id))

		go h.writeLoop(diagramID, c)
		h.readLoop(diagramID, c)
	}
}

func (h *SyncHub) writeLoop(diagramID int64, c *syncConn) {
	for ev := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteJSON(ev); err != nil {
			h.remove(diagramID, c.id)
			return
		}
	}
}

// readLoop discards inbound frames; the sync channel is server-to-client.
// It exists to detect close.
func (h *SyncHub) readLoop(diagramID int64, c *syncConn) {
	defer h.remove(diagramID, c.id)
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
