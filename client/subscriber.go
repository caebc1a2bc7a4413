package client

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const defaultReconnectDelay = 3 * time.Second

// SyncEvent is a push notification about a diagram, as sent by the server.
type SyncEvent struct {
	Type      string `json:"type"`
	DiagramID int64  `json:"diagramId"`
	ProjectID int64  `json:"projectId,omitempty"`
}

// Subscriber maintains a websocket subscription to one diagram's sync channel
// (diagram id 0 is the all-diagrams lobby) and hands each event to a callback.
// It reconnects after a fixed delay whenever the connection drops and stops
// when its context is cancelled.
type Subscriber struct {
	client    *Client
	diagramID int64
	onEvent   func(SyncEvent)
	delay     time.Duration
	log       *slog.Logger

	done chan struct{}
}

// Subscribe starts a subscription for diagramID using the client's session
// cookie. onEvent runs on the subscriber's goroutine; keep it short or hand off.
func (c *Client) Subscribe(ctx context.Context, diagramID int64, onEvent func(SyncEvent)) *Subscriber {
	return c.subscribe(ctx, diagramID, onEvent, defaultReconnectDelay)
}

func (c *Client) subscribe(ctx context.Context, diagramID int64, onEvent func(SyncEvent), delay time.Duration) *Subscriber {
	s := &Subscriber{
		client:    c,
		diagramID: diagramID,
		onEvent:   onEvent,
		delay:     delay,
		log:       c.log,
		done:      make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Done closes when the subscriber has fully stopped.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) wsURL() string {
	base := s.client.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/diagrams/" + strconv.FormatInt(s.diagramID, 10)
}

func (s *Subscriber) run(ctx context.Context) {
	defer close(s.done)
	for {
		if err := s.listen(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("diagram sync connection lost", slog.Int64("diagram_id", s.diagramID), slog.Any("err", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.delay):
		}
	}
}

func (s *Subscriber) listen(ctx context.Context) error {
	dialer := websocket.Dialer{
		Jar:              s.client.httpc.Jar,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, s.wsURL(), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return err
	}
	defer conn.Close()

	// Unblock ReadJSON when the context ends.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var ev SyncEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		if ev.Type == "" {
			continue
		}
		s.onEvent(ev)
	}
}
