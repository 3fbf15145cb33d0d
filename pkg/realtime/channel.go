package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State of the channel's connection lifecycle:
// Closed -> Connecting -> Open -> Closed.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

// Channel maintains one logical connection to the exchange's push layer
// and routes named events to caller-registered callbacks.
//
// The callback table is instance-owned: running several channels in one
// process (maker + taker in a test) cannot leak listeners across
// instances. Registration is last-writer-wins per event key. Dispatch is
// single-threaded in arrival order; no callback runs concurrently with
// another.
//
// Reconnection (when enabled) re-establishes the transport only. The
// subscription set is reset on every disconnect, so callers must
// resubscribe from their OnReconnect hook.
type Channel struct {
	socketURL     string
	dialer        *websocket.Dialer
	log           *zap.Logger
	autoReconnect bool

	mu       sync.RWMutex
	state    State
	conn     *websocket.Conn
	handlers map[string]func(json.RawMessage)
	rooms    map[string]Room
	closed   bool // explicit Close() requested

	writeMu sync.Mutex

	onOpen      func()
	onClose     func()
	onReconnect func()
}

// Option configures a Channel.
type Option func(*Channel)

// WithAutoReconnect redials the socket with exponential backoff after a
// transport-level disconnect. Subscriptions are not restored.
func WithAutoReconnect() Option {
	return func(c *Channel) { c.autoReconnect = true }
}

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Channel) { c.dialer = d }
}

// NewChannel creates a closed channel for the given socket URL.
// log may be nil.
func NewChannel(socketURL string, log *zap.Logger, opts ...Option) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Channel{
		socketURL: socketURL,
		dialer:    websocket.DefaultDialer,
		log:       log,
		handlers:  make(map[string]func(json.RawMessage)),
		rooms:     make(map[string]Room),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Open establishes the transport and starts the dispatch loop. Returns
// once the transport reports connected, or with the dial error.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateClosed {
		c.mu.Unlock()
		return fmt.Errorf("channel already open")
	}
	c.state = StateConnecting
	c.closed = false
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.socketURL, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		return fmt.Errorf("failed to open realtime channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateOpen
	onOpen := c.onOpen
	c.mu.Unlock()

	c.log.Info("realtime channel open", zap.String("url", c.socketURL))
	if onOpen != nil {
		onOpen()
	}

	go c.readLoop(conn)
	return nil
}

// readLoop reads frames and dispatches them until the transport drops.
func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		var frame eventFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.log.Warn("dropping unparseable realtime frame", zap.Error(err))
			continue
		}

		c.mu.RLock()
		handler := c.handlers[frame.Event]
		c.mu.RUnlock()

		// Events nobody registered for are dropped.
		if handler != nil {
			handler(frame.Data)
		}
	}
}

// handleDisconnect tears down after a transport-level drop of conn.
// Close() and a subsequent Open() may already have replaced the
// connection by the time the old read loop's error lands; a stale conn
// must not clobber the live one.
func (c *Channel) handleDisconnect(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	c.conn = nil
	// Subscriptions do not survive the transport; the server forgot them.
	c.rooms = make(map[string]Room)
	onClose := c.onClose
	c.mu.Unlock()

	if onClose != nil {
		onClose()
	}

	c.log.Warn("realtime channel disconnected", zap.Error(cause))
	if !c.autoReconnect {
		return
	}

	redialed, err := backoff.Retry(context.Background(), func() (*websocket.Conn, error) {
		conn, _, err := c.dialer.Dial(c.socketURL, nil)
		return conn, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()))
	if err != nil {
		c.log.Error("realtime reconnect failed", zap.Error(err))
		return
	}

	c.mu.Lock()
	if c.closed || c.conn != nil {
		// Explicitly closed, or the caller reopened meanwhile.
		c.mu.Unlock()
		redialed.Close()
		return
	}
	c.conn = redialed
	c.state = StateOpen
	onReconnect := c.onReconnect
	c.mu.Unlock()

	c.log.Info("realtime channel reconnected")
	if onReconnect != nil {
		onReconnect()
	}
	go c.readLoop(redialed)
}

// Close tears down the transport and clears registered callbacks and
// subscriptions.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.state = StateClosed
	c.handlers = make(map[string]func(json.RawMessage))
	c.rooms = make(map[string]Room)
	onClose := c.onClose
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	// The read loop's disconnect path no longer owns this conn; notify
	// from here.
	if onClose != nil {
		onClose()
	}
	return err
}

// sendControl emits a SUBSCRIBE/UNSUBSCRIBE frame. Subscription is
// fire-and-forget over an unreliable transport: a closed channel or a
// write failure yields false, never an error.
func (c *Channel) sendControl(frameType string, room Room) bool {
	c.mu.RLock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.RUnlock()
	if !open || conn == nil {
		return false
	}

	frame := controlFrame{Type: frameType, Rooms: []Room{room}}
	payload, err := json.Marshal(frame)
	if err != nil {
		return false
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		c.log.Warn("failed to send control frame", zap.Error(err))
		return false
	}
	return true
}

// SubscribeGlobalUpdates joins the per-symbol market room. Idempotent:
// re-subscribing an already subscribed room is a no-op returning true.
func (c *Channel) SubscribeGlobalUpdates(symbol string) bool {
	room := Room{Name: RoomGlobalUpdates, Symbol: symbol}
	c.mu.Lock()
	if _, ok := c.rooms[room.key()]; ok {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	if !c.sendControl("SUBSCRIBE", room) {
		return false
	}
	c.mu.Lock()
	c.rooms[room.key()] = room
	c.mu.Unlock()
	return true
}

// UnsubscribeGlobalUpdates leaves the per-symbol market room.
func (c *Channel) UnsubscribeGlobalUpdates(symbol string) bool {
	room := Room{Name: RoomGlobalUpdates, Symbol: symbol}
	if !c.sendControl("UNSUBSCRIBE", room) {
		return false
	}
	c.mu.Lock()
	delete(c.rooms, room.key())
	c.mu.Unlock()
	return true
}

// SubscribeUserUpdates joins the authenticated user room keyed by the
// bearer token (optionally plus an API token).
func (c *Channel) SubscribeUserUpdates(token string, apiToken ...string) bool {
	room := Room{Name: RoomUserUpdates, Token: token}
	if len(apiToken) > 0 {
		room.APIToken = apiToken[0]
	}
	c.mu.Lock()
	if _, ok := c.rooms[room.key()]; ok {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	if !c.sendControl("SUBSCRIBE", room) {
		return false
	}
	c.mu.Lock()
	c.rooms[room.key()] = room
	c.mu.Unlock()
	return true
}

// UnsubscribeUserUpdates leaves the user room.
func (c *Channel) UnsubscribeUserUpdates(token string) bool {
	room := Room{Name: RoomUserUpdates, Token: token}
	if !c.sendControl("UNSUBSCRIBE", room) {
		return false
	}
	c.mu.Lock()
	delete(c.rooms, room.key())
	c.mu.Unlock()
	return true
}

// on registers the handler for an event key, replacing any earlier one.
func (c *Channel) on(event string, handler func(json.RawMessage)) {
	c.mu.Lock()
	c.handlers[event] = handler
	c.mu.Unlock()
}

// OnOpen registers a handler invoked synchronously when the transport
// connects.
func (c *Channel) OnOpen(handler func()) {
	c.mu.Lock()
	c.onOpen = handler
	c.mu.Unlock()
}

// OnClose registers a handler invoked synchronously when the transport
// drops or is closed.
func (c *Channel) OnClose(handler func()) {
	c.mu.Lock()
	c.onClose = handler
	c.mu.Unlock()
}

// OnReconnect registers a handler invoked after an automatic redial.
// Subscriptions were reset by then; resubscribe here.
func (c *Channel) OnReconnect(handler func()) {
	c.mu.Lock()
	c.onReconnect = handler
	c.mu.Unlock()
}
