package ws

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	fws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/auth"
	"github.com/fathima-sithara/chat-app/internal/presence"
	"github.com/fathima-sithara/chat-app/internal/server"
)

const socketSecret = "socket-test-secret"

type socketServer struct {
	url      string
	gateway  *Gateway
	registry *presence.Registry
	jwt      *auth.JWTManager
}

func startSocketServer(t *testing.T) *socketServer {
	t.Helper()
	log := zap.NewNop()
	jwtMgr := auth.NewJWTManager(socketSecret, "chat-app", time.Hour)
	reg := presence.NewRegistry()
	g := NewGateway(reg, jwtMgr, Settings{SendBuffer: 16, RatePerSecond: 100}, log)

	app := fiber.New(fiber.Config{DisableStartupMessage: true, ErrorHandler: server.ErrorHandler(log)})
	app.Get("/ws", g.Authenticate(), g.Handler())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return &socketServer{url: "ws://" + ln.Addr().String() + "/ws", gateway: g, registry: reg, jwt: jwtMgr}
}

func (s *socketServer) dial(t *testing.T, token string) (*fws.Conn, int, error) {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := fws.DefaultDialer.Dial(s.url, header)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, status, err
}

func (s *socketServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, _, err := s.jwt.Issue(userID, "user")
	require.NoError(t, err)
	return tok
}

func readFrame(t *testing.T, conn *fws.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func dataString(t *testing.T, f frame) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(f.Data, &s))
	return s
}

func TestGateway_Handshake(t *testing.T) {
	req := require.New(t)

	// Given
	srv := startSocketServer(t)
	expired, _, err := auth.NewJWTManager(socketSecret, "chat-app", -time.Minute).Issue("u1", "user")
	req.NoError(err)
	forged, _, err := auth.NewJWTManager("other-secret", "chat-app", time.Hour).Issue("u1", "user")
	req.NoError(err)

	cases := []struct {
		name   string
		token  string
		status int
	}{
		{name: "missing token", token: "", status: http.StatusUnauthorized},
		{name: "expired token", token: expired, status: http.StatusUnauthorized},
		{name: "invalid token", token: forged, status: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// When
			conn, status, err := srv.dial(t, tc.token)

			// Then the upgrade never happens
			require.ErrorIs(t, err, fws.ErrBadHandshake)
			require.Nil(t, conn)
			require.Equal(t, tc.status, status)
		})
	}
	req.Zero(srv.registry.Len())
}

func TestGateway_SocketLifecycle(t *testing.T) {
	req := require.New(t)

	// Given bob is connected and registered
	srv := startSocketServer(t)
	bob, _, err := srv.dial(t, srv.token(t, "bob"))
	req.NoError(err)
	req.NoError(bob.WriteMessage(fws.TextMessage, registerFrame("bob")))

	f := readFrame(t, bob)
	req.Equal(EventUserOnline, f.Event)
	req.Equal("bob", dataString(t, f))
	f = readFrame(t, bob)
	req.Equal(EventRegistered, f.Event)
	req.True(srv.registry.IsOnline("bob"))

	// When ann connects and registers
	ann, _, err := srv.dial(t, srv.token(t, "ann"))
	req.NoError(err)
	req.NoError(ann.WriteMessage(fws.TextMessage, registerFrame("ann")))

	// Then bob hears about it
	f = readFrame(t, bob)
	req.Equal(EventUserOnline, f.Event)
	req.Equal("ann", dataString(t, f))
	req.Equal(EventUserOnline, readFrame(t, ann).Event)
	req.Equal(EventRegistered, readFrame(t, ann).Event)

	// When a message is pushed to bob
	delivered := srv.gateway.PushToUser("bob", EventReceiveMessage, map[string]string{"content": "hi"})

	// Then it arrives on bob's socket
	req.True(delivered)
	f = readFrame(t, bob)
	req.Equal(EventReceiveMessage, f.Event)
	req.JSONEq(`{"content":"hi"}`, string(f.Data))

	// When bob closes his socket
	req.NoError(bob.WriteMessage(fws.CloseMessage, fws.FormatCloseMessage(fws.CloseNormalClosure, "")))
	req.NoError(bob.Close())

	// Then bob is unregistered and ann is told
	f = readFrame(t, ann)
	req.Equal(EventUserOffline, f.Event)
	req.Equal("bob", dataString(t, f))
	req.Eventually(func() bool { return !srv.registry.IsOnline("bob") }, 2*time.Second, 10*time.Millisecond)
	req.Equal(1, srv.registry.Len())
	req.False(srv.gateway.PushToUser("bob", EventReceiveMessage, "late"))
}
