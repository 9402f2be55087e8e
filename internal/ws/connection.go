package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateRegistered
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateRegistered:
		return "registered"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is one authenticated websocket. The handshake has already
// verified the bearer token, so a Connection starts out Authenticated.
type Connection struct {
	id      string
	subject string
	ws      *websocket.Conn
	gw      *Gateway
	limiter *rate.Limiter

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32
}

func newConnection(conn *websocket.Conn, subject string, gw *Gateway) *Connection {
	s := gw.settings
	c := &Connection{
		id:      uuid.NewString(),
		subject: subject,
		ws:      conn,
		gw:      gw,
		limiter: rate.NewLimiter(rate.Limit(s.RatePerSecond), s.RatePerSecond),
		send:    make(chan []byte, s.SendBuffer),
		done:    make(chan struct{}),
	}
	c.state.Store(int32(StateAuthenticated))
	return c
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) State() State { return State(c.state.Load()) }

// Close is idempotent and safe from any goroutine. The write pump notices and
// tears the socket down, which in turn ends the read pump.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
	})
}

// enqueue never blocks; a full buffer means the client is too slow and the frame is dropped.
func (c *Connection) enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *Connection) emit(event string, data any) {
	b, err := encode(event, data)
	if err != nil {
		return
	}
	c.enqueue(b)
}

func (c *Connection) handleFrame(data []byte) {
	if !c.limiter.Allow() {
		c.emit(EventError, errorPayload{Message: "rate limit exceeded"})
		return
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		c.emit(EventError, errorPayload{Message: "malformed frame"})
		return
	}
	switch env.Event {
	case EventRegister:
		c.register(env.Data)
	default:
		c.gw.log.Debug("ws unknown event", zap.String("conn_id", c.id), zap.String("event", env.Event))
	}
}

func (c *Connection) register(data json.RawMessage) {
	var userID string
	if err := json.Unmarshal(data, &userID); err != nil || userID == "" {
		c.emit(EventError, errorPayload{Message: "register requires a user id"})
		return
	}
	if userID != c.subject {
		c.gw.log.Warn("ws register for foreign user",
			zap.String("conn_id", c.id), zap.String("subject", c.subject), zap.String("user_id", userID))
		c.emit(EventError, errorPayload{Message: "cannot register as another user"})
		return
	}
	if c.State() == StateClosed {
		return
	}

	c.state.Store(int32(StateRegistered))
	prev := c.gw.registry.Register(userID, c)
	if prev != nil && prev.ID() != c.id {
		if stale, ok := prev.(*Connection); ok {
			c.gw.log.Debug("ws closing replaced connection", zap.String("user_id", userID), zap.String("conn_id", stale.id))
			stale.Close()
		}
	}
	c.emit(EventRegistered, userID)
}

func (c *Connection) readPump() {
	defer func() {
		c.gw.registry.Unregister(c)
		c.Close()
	}()

	s := c.gw.settings
	c.ws.SetReadLimit(s.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(s.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(s.PongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.gw.log.Debug("ws read", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(s.PongWait))
		c.handleFrame(data)
	}
}

func (c *Connection) writePump() {
	s := c.gw.settings
	ticker := time.NewTicker(s.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(s.WriteDeadline))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(s.WriteDeadline))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		}
	}
}
