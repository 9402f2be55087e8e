package ws

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/auth"
	"github.com/fathima-sithara/chat-app/internal/metrics"
	"github.com/fathima-sithara/chat-app/internal/presence"
)

const localsUserID = "user_id"

type Settings struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteDeadline  time.Duration
	MaxMessageSize int64
	SendBuffer     int
	RatePerSecond  int
}

func (s Settings) withDefaults() Settings {
	if s.PingInterval <= 0 {
		s.PingInterval = 25 * time.Second
	}
	if s.PongWait <= s.PingInterval {
		s.PongWait = s.PingInterval * 2
	}
	if s.WriteDeadline <= 0 {
		s.WriteDeadline = 10 * time.Second
	}
	if s.MaxMessageSize <= 0 {
		s.MaxMessageSize = 64 * 1024
	}
	if s.SendBuffer <= 0 {
		s.SendBuffer = 256
	}
	if s.RatePerSecond <= 0 {
		s.RatePerSecond = 10
	}
	return s
}

// sender is implemented by *Connection; handles of other types are never pushed to.
type sender interface {
	enqueue(b []byte) bool
}

// Gateway accepts websocket connections, binds them to users through the
// presence registry and pushes events to them.
type Gateway struct {
	registry *presence.Registry
	verifier auth.Verifier
	settings Settings
	log      *zap.Logger
}

func NewGateway(registry *presence.Registry, verifier auth.Verifier, settings Settings, log *zap.Logger) *Gateway {
	g := &Gateway{
		registry: registry,
		verifier: verifier,
		settings: settings.withDefaults(),
		log:      log,
	}
	registry.Subscribe(g.BroadcastPresenceChange)
	registry.Subscribe(func(string, bool) { metrics.OnlineUsers.Set(float64(registry.Len())) })
	return g
}

// Authenticate runs before the upgrade. A rejected handshake never becomes a connection.
func (g *Gateway) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token, err := auth.TokenFromRequest(c.Get(fiber.HeaderAuthorization), c.Query("token"))
		if err != nil {
			return err
		}
		claims, err := g.verifier.Verify(token)
		if err != nil {
			g.log.Debug("ws handshake rejected", zap.String("ip", c.IP()), zap.Error(err))
			return err
		}
		c.Locals(localsUserID, claims.UserID())
		return c.Next()
	}
}

func (g *Gateway) Handler() fiber.Handler {
	return websocket.New(g.serve)
}

func (g *Gateway) serve(conn *websocket.Conn) {
	uid, _ := conn.Locals(localsUserID).(string)
	c := newConnection(conn, uid, g)

	metrics.Connections.Inc()
	defer metrics.Connections.Dec()
	g.log.Debug("ws connected", zap.String("conn_id", c.id), zap.String("user_id", uid))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()
	c.readPump()
	<-writerDone
	g.log.Debug("ws closed", zap.String("conn_id", c.id), zap.String("user_id", uid))
}

// PushToUser reports whether the event was handed to the user's live connection.
// false means offline (or a full/closed connection); the caller has nothing to undo.
func (g *Gateway) PushToUser(userID, event string, payload any) bool {
	h, ok := g.registry.HandleFor(userID)
	if !ok {
		metrics.Pushes.WithLabelValues("offline").Inc()
		return false
	}
	s, ok := h.(sender)
	if !ok {
		return false
	}
	b, err := encode(event, payload)
	if err != nil {
		g.log.Error("encode push", zap.String("event", event), zap.Error(err))
		return false
	}
	if !s.enqueue(b) {
		metrics.Pushes.WithLabelValues("dropped").Inc()
		return false
	}
	metrics.Pushes.WithLabelValues("delivered").Inc()
	return true
}

// BroadcastPresenceChange fans out to every registered connection, best effort.
func (g *Gateway) BroadcastPresenceChange(userID string, online bool) {
	event := EventUserOffline
	if online {
		event = EventUserOnline
	}
	b, err := encode(event, userID)
	if err != nil {
		return
	}
	for _, h := range g.registry.Handles() {
		if s, ok := h.(sender); ok {
			s.enqueue(b)
		}
	}
}
