// Package operator pushes live attendance activity to operator
// consoles over websockets and routes their decision replies back into
// the capture pipeline.
package operator

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait is how long a subscriber may stay silent before the
	// read side gives up. Pings go out at pingPeriod.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	// sendBuffer is the per-subscriber outbound queue. A subscriber
	// that falls this far behind is evicted.
	sendBuffer = 64
)

// DecisionFunc resolves an assistant decision and returns the outcome
// to echo back to the submitting console.
type DecisionFunc func(ctx context.Context, decisionID, decision string) any

// inbound is the one structured message consoles send.
type inbound struct {
	Type       string `json:"type"`
	DecisionID string `json:"decision_id"`
	Decision   string `json:"decision"`
}

type subscriber struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// Hub fans broadcast messages out to every connected console. Plain
// progress lines go out as text frames; decision requests and replies
// are JSON. All methods are safe for concurrent use.
type Hub struct {
	log      *logrus.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	subs   map[uuid.UUID]*subscriber
	decide DecisionFunc
}

// NewHub builds an empty hub.
func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		log:  log,
		subs: make(map[uuid.UUID]*subscriber),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Consoles connect from arbitrary lab machines; access
			// control lives on the HTTP layer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// OnDecision installs the resolver called for decision_response
// messages. Without one, decision replies are ignored.
func (h *Hub) OnDecision(fn DecisionFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.decide = fn
}

// ServeWS upgrades an HTTP request and serves the subscriber until the
// peer goes away. It blocks for the lifetime of the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	s := &subscriber{id: uuid.New(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(s)

	go h.writePump(s)
	h.readPump(s)
}

// Broadcast sends a text line to every subscriber.
func (h *Hub) Broadcast(message string) {
	h.fanout([]byte(message))
}

// BroadcastJSON marshals v and sends it to every subscriber.
func (h *Hub) BroadcastJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Error("broadcast payload does not marshal")
		return
	}
	h.fanout(data)
}

// SubscriberCount returns the number of connected consoles.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Shutdown tells every console the server is going away and closes
// the connections.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, s := range h.subs {
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait),
		)
		close(s.send)
		_ = s.conn.Close()
		delete(h.subs, id)
	}
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[s.id] = s
	h.log.WithFields(logrus.Fields{"subscriber": s.id, "total": len(h.subs)}).Debug("console connected")
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.subs[s.id]; !ok || current != s {
		return
	}
	delete(h.subs, s.id)
	close(s.send)
	h.log.WithFields(logrus.Fields{"subscriber": s.id, "total": len(h.subs)}).Debug("console disconnected")
}

// fanout queues data for every subscriber, evicting any whose queue is
// full.
func (h *Hub) fanout(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, s := range h.subs {
		select {
		case s.send <- data:
		default:
			delete(h.subs, id)
			close(s.send)
			_ = s.conn.Close()
			h.log.WithField("subscriber", id).Warn("console too slow, dropped")
		}
	}
}

// reply queues data for one subscriber only.
func (h *Hub) reply(s *subscriber, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.subs[s.id]; !ok || current != s {
		return
	}
	select {
	case s.send <- data:
	default:
		delete(h.subs, s.id)
		close(s.send)
		_ = s.conn.Close()
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.remove(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.WithError(err).Debug("console read failed")
			}
			return
		}
		h.handleInbound(s, data)
	}
}

// handleInbound routes one console message. Decision replies go
// through the resolver and its outcome is echoed back; anything else
// is acknowledged verbatim.
func (h *Hub) handleInbound(s *subscriber, data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "decision_response" {
		h.reply(s, []byte("Message received: "+string(data)))
		return
	}

	if msg.DecisionID == "" || msg.Decision == "" {
		h.replyJSON(s, map[string]string{"error": "Missing decision_id or decision"})
		return
	}

	h.mu.Lock()
	fn := h.decide
	h.mu.Unlock()
	if fn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	h.replyJSON(s, fn(ctx, msg.DecisionID, msg.Decision))
}

func (h *Hub) replyJSON(s *subscriber, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Error("decision reply does not marshal")
		return
	}
	h.reply(s, data)
}
