package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/em32/mlcatalog/catalog/plan"
)

const (
	// Buffered messages per client before a slow consumer drops events.
	wsClientBufferSize = 256
	// Events retained for reconnecting clients.
	wsHistorySize = 1000
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The control server is bound to trusted networks only.
		return true
	},
}

// Event is one entry of the control server's event stream.
type Event struct {
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
	Item      string `json:"item,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
}

// EventBroadcaster fans events out to WebSocket clients, keeping a bounded
// history so reconnecting clients catch up.
type EventBroadcaster struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	history []Event
}

type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	closed bool
	mu     sync.Mutex
}

// NewEventBroadcaster creates an event broadcaster.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		clients: make(map[*wsClient]struct{}),
		history: make([]Event, 0, wsHistorySize),
	}
}

// Broadcast sends an event to all clients and stores it in history.
func (b *EventBroadcaster) Broadcast(ev Event) {
	b.mu.Lock()
	if len(b.history) >= wsHistorySize {
		b.history = b.history[1:]
	}
	b.history = append(b.history, ev)
	b.mu.Unlock()

	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("WARN: failed to marshal event: %v", err)
		return
	}
	b.broadcastRaw(data)
}

// History returns a copy of the buffered events.
func (b *EventBroadcaster) History() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make([]Event, len(b.history))
	copy(result, b.history)
	return result
}

// ClientCount returns the number of connected clients.
func (b *EventBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *EventBroadcaster) broadcastRaw(data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client.send <- data:
		default:
			log.Printf("WARN: websocket client buffer full, dropping event")
		}
	}
}

func (b *EventBroadcaster) addClient(client *wsClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
}

func (b *EventBroadcaster) removeClient(client *wsClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, client)
}

// broadcastItemUpdate translates plan item updates into stream events.
func (h *Handlers) broadcastItemUpdate(item *plan.Item) {
	h.events.Broadcast(Event{
		Timestamp: time.Now().Unix(),
		Type:      string(item.ItemType),
		Item:      item.Name,
		Status:    string(item.GetStatus()),
		Message:   item.GetError(),
	})
}

// EventsSocket handles GET /api/events - upgrades to WebSocket and streams
// events, replaying history first.
func (h *Handlers) EventsSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR: websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, wsClientBufferSize),
	}

	// History goes straight to the connection, before the client joins the
	// broadcast map: the send channel is sized for live traffic, not for a
	// full replay, and replay must not interleave with live events.
	for _, ev := range h.events.History() {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			return
		}
	}

	h.events.addClient(client)

	go h.events.writePump(client)
	go h.events.readPump(client)
}

func (b *EventBroadcaster) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		b.closeClient(client)
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One event per text frame so each frame is valid JSON.
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
			n := len(client.send)
			for i := 0; i < n; i++ {
				if err := client.conn.WriteMessage(websocket.TextMessage, <-client.send); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (b *EventBroadcaster) readPump(client *wsClient) {
	defer b.closeClient(client)
	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WARN: websocket unexpected close: %v", err)
			}
			break
		}
	}
}

// closeClient removes a client from the broadcast map before closing its
// channel, so no broadcaster can send on a closed channel. Both pumps may
// call it; client.mu keeps the teardown idempotent.
func (b *EventBroadcaster) closeClient(client *wsClient) {
	b.removeClient(client)

	client.mu.Lock()
	defer client.mu.Unlock()
	if !client.closed {
		client.closed = true
		close(client.send)
		client.conn.Close()
	}
}
