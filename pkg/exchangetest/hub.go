package exchangetest

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // test server, all origins fine
	},
}

// Hub maintains active push connections and routes events to the rooms
// clients subscribed to. It emulates the exchange's push layer closely
// enough to exercise the realtime channel end to end.
type Hub struct {
	mu      sync.RWMutex
	clients map[*pushClient]bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[*pushClient]bool)}
}

// Push sends a named event to every client subscribed to roomKey.
// Room keys: "globalUpdates:<SYMBOL>" and "userUpdates:<TOKEN>".
func (h *Hub) Push(roomKey, event string, data any) {
	payload, err := json.Marshal(map[string]any{
		"event": event,
		"data":  data,
	})
	if err != nil {
		log.Printf("[mock-ws] marshal error: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.isSubscribed(roomKey) {
			select {
			case client.send <- payload:
			default:
				// Buffer full, skip this client
			}
		}
	}
}

// ClientCount returns the number of connected push clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DisconnectAll force-closes every push connection from the server
// side, for exercising client reconnect behavior.
func (h *Hub) DisconnectAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.conn.Close()
	}
}

func (h *Hub) register(c *pushClient) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(c *pushClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// pushClient represents one websocket connection to the mock exchange.
type pushClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	subsMu        sync.RWMutex
	subscriptions map[string]bool
}

func (c *pushClient) isSubscribed(roomKey string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	return c.subscriptions[roomKey]
}

func (c *pushClient) subscribe(roomKey string) {
	c.subsMu.Lock()
	c.subscriptions[roomKey] = true
	c.subsMu.Unlock()
}

func (c *pushClient) unsubscribe(roomKey string) {
	c.subsMu.Lock()
	delete(c.subscriptions, roomKey)
	c.subsMu.Unlock()
}

// wireRoom mirrors the client's room descriptor shape.
type wireRoom struct {
	Room   string `json:"room"`
	Symbol string `json:"symbol,omitempty"`
	Token  string `json:"token,omitempty"`
}

type wireControl struct {
	Type  string     `json:"type"`
	Rooms []wireRoom `json:"rooms"`
}

func (r wireRoom) key() string {
	if r.Room == "userUpdates" {
		return r.Room + ":" + r.Token
	}
	return r.Room + ":" + r.Symbol
}

// readPump handles SUBSCRIBE/UNSUBSCRIBE control frames from the client.
func (c *pushClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var ctrl wireControl
		if err := json.Unmarshal(message, &ctrl); err != nil {
			continue
		}

		switch ctrl.Type {
		case "SUBSCRIBE":
			for _, room := range ctrl.Rooms {
				c.subscribe(room.key())
			}
		case "UNSUBSCRIBE":
			for _, room := range ctrl.Rooms {
				c.unsubscribe(room.key())
			}
		}
	}
}

// writePump drains the send buffer onto the connection.
func (c *pushClient) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// handleWebSocket upgrades the connection and starts the pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[mock-ws] upgrade error: %v", err)
		return
	}

	client := &pushClient{
		hub:           s.Hub,
		conn:          conn,
		send:          make(chan []byte, 256),
		subscriptions: make(map[string]bool),
	}
	s.Hub.register(client)

	go client.writePump()
	go client.readPump()
}
