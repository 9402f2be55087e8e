package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/auth"
	"github.com/fathima-sithara/chat-app/internal/config"
	"github.com/fathima-sithara/chat-app/internal/handlers"
	"github.com/fathima-sithara/chat-app/internal/models"
	"github.com/fathima-sithara/chat-app/internal/presence"
	"github.com/fathima-sithara/chat-app/internal/repository"
	"github.com/fathima-sithara/chat-app/internal/routes"
	"github.com/fathima-sithara/chat-app/internal/server"
	"github.com/fathima-sithara/chat-app/internal/service"
	"github.com/fathima-sithara/chat-app/internal/storage"
	"github.com/fathima-sithara/chat-app/internal/store"
	"github.com/fathima-sithara/chat-app/internal/ws"
)

const testSecret = "handler-test-secret"

type testEnv struct {
	app      *fiber.App
	jwt      *auth.JWTManager
	accounts *service.AccountService
	users    *repository.MemoryUserRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	cfg := &config.Config{
		App:     config.AppConfig{Env: "test", FrontendURL: "*"},
		Uploads: config.UploadsConfig{MaxBytes: 1 << 20, ImportMaxBytes: 1 << 16},
	}

	users := repository.NewMemoryUserRepository()
	msgStore := store.NewMessageStore(repository.NewMemoryMessageRepository(), users)
	jwtMgr := auth.NewJWTManager(testSecret, "chat-app", time.Hour)
	registry := presence.NewRegistry()
	gateway := ws.NewGateway(registry, jwtMgr, ws.Settings{}, log)
	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	router := service.NewMessageRouter(msgStore, users, gateway, nil, "message.sent", log)
	accounts := service.NewAccountService(users, jwtMgr, log)
	directory := service.NewDirectoryService(users, accounts, log)

	app := server.New(cfg, log)
	routes.Setup(app, routes.Deps{
		Verifier: jwtMgr,
		Auth:     handlers.NewAuthHandler(accounts, log),
		Chat:     handlers.NewChatHandler(router, storage.NewUploader(blobs, cfg.Uploads.MaxBytes, log), blobs, msgStore, 0, log),
		Admin:    handlers.NewAdminHandler(directory, cfg.Uploads.ImportMaxBytes, log),
		Presence: handlers.NewPresenceHandler(registry, nil, log),
		Gateway:  gateway,
	})
	return &testEnv{app: app, jwt: jwtMgr, accounts: accounts, users: users}
}

func (e *testEnv) user(t *testing.T, name string, role models.Role) (models.User, string) {
	t.Helper()
	u := &models.User{Name: name, Email: strings.ToLower(name) + "@example.com", MobileNo: name + "-000000", Role: role}
	require.NoError(t, e.users.Create(context.Background(), u))
	token, _, err := e.jwt.Issue(u.ID, string(role))
	require.NoError(t, err)
	return *u, token
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func jsonRequest(method, target, token string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func multipartRequest(t *testing.T, target, token string, fields map[string]string, filename string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

type sendResponse struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	Data    models.MessageView `json:"data"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func TestAuthRoutes(t *testing.T) {
	t.Run("signup then login", func(t *testing.T) {
		req := require.New(t)

		// Given
		env := newTestEnv(t)
		signup := map[string]string{"name": "Ann", "email": "ann@example.com", "mobileNo": "5550001", "password": "secret1"}

		// When
		status, _ := env.do(t, jsonRequest(http.MethodPost, "/api/auth/signup", "", signup))
		dupStatus, _ := env.do(t, jsonRequest(http.MethodPost, "/api/auth/signup", "", signup))
		loginStatus, body := env.do(t, jsonRequest(http.MethodPost, "/api/auth/login", "",
			map[string]string{"email": "ann@example.com", "password": "secret1"}))

		// Then
		req.Equal(http.StatusCreated, status)
		req.Equal(http.StatusConflict, dupStatus)
		req.Equal(http.StatusOK, loginStatus)
		login := decode[struct {
			Token string             `json:"token"`
			User  models.Participant `json:"user"`
		}](t, body)
		req.NotEmpty(login.Token)
		req.Equal("Ann", login.User.Name)

		status, body = env.do(t, jsonRequest(http.MethodGet, "/api/auth/profile", login.Token, nil))
		req.Equal(http.StatusOK, status)
		req.NotContains(string(body), "password")
	})

	t.Run("invalid signup body is a validation error", func(t *testing.T) {
		env := newTestEnv(t)

		status, body := env.do(t, jsonRequest(http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "not-an-email"}))

		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "error", decode[errorResponse](t, body).Status)
	})

	t.Run("missing, expired and invalid tokens are told apart", func(t *testing.T) {
		req := require.New(t)

		// Given
		env := newTestEnv(t)
		u, _ := env.user(t, "Ann", models.RoleUser)
		expired, _, err := auth.NewJWTManager(testSecret, "chat-app", -time.Minute).Issue(u.ID, "user")
		req.NoError(err)
		forged, _, err := auth.NewJWTManager("other-secret", "chat-app", time.Hour).Issue(u.ID, "user")
		req.NoError(err)

		// When
		missing, missingBody := env.do(t, jsonRequest(http.MethodGet, "/api/auth/validate", "", nil))
		exp, expBody := env.do(t, jsonRequest(http.MethodGet, "/api/auth/validate", expired, nil))
		inv, invBody := env.do(t, jsonRequest(http.MethodGet, "/api/auth/validate", forged, nil))

		// Then
		req.Equal(http.StatusUnauthorized, missing)
		req.Equal(http.StatusUnauthorized, exp)
		req.Equal(http.StatusForbidden, inv)
		req.NotEqual(decode[errorResponse](t, missingBody).Message, decode[errorResponse](t, expBody).Message)
		req.NotEqual(decode[errorResponse](t, expBody).Message, decode[errorResponse](t, invBody).Message)
	})
}

func TestChatRoutes(t *testing.T) {
	t.Run("send then history from both sides", func(t *testing.T) {
		req := require.New(t)

		// Given
		env := newTestEnv(t)
		ann, annToken := env.user(t, "Ann", models.RoleUser)
		bob, bobToken := env.user(t, "Bob", models.RoleUser)

		// When
		status, body := env.do(t, multipartRequest(t, "/api/chat/messages/"+bob.ID, annToken,
			map[string]string{"content": "hi"}, "", nil))

		// Then
		req.Equal(http.StatusCreated, status, string(body))
		sent := decode[sendResponse](t, body)
		req.Equal("hi", sent.Data.Content)
		req.Equal(ann.ID, sent.Data.Sender.ID)
		req.Nil(sent.Data.FilePath)

		for _, token := range []string{annToken, bobToken} {
			peer := bob.ID
			if token == bobToken {
				peer = ann.ID
			}
			status, body = env.do(t, jsonRequest(http.MethodGet, "/api/chat/messages/"+peer, token, nil))
			req.Equal(http.StatusOK, status)
			hist := decode[[]models.MessageView](t, body)
			req.Len(hist, 1)
			req.Equal(sent.Data.ID, hist[0].ID)
		}
	})

	t.Run("history and attachment survive a deleted peer", func(t *testing.T) {
		req := require.New(t)

		// Given Ann sent Bob a picture and an admin then removed Bob
		env := newTestEnv(t)
		_, annToken := env.user(t, "Ann", models.RoleUser)
		bob, _ := env.user(t, "Bob", models.RoleUser)
		_, adminToken := env.user(t, "Root", models.RoleAdmin)
		var img bytes.Buffer
		req.NoError(png.Encode(&img, image.NewGray(image.Rect(0, 0, 4, 4))))
		status, body := env.do(t, multipartRequest(t, "/api/chat/messages/"+bob.ID, annToken,
			map[string]string{"content": "look"}, "pic.png", img.Bytes()))
		req.Equal(http.StatusCreated, status, string(body))
		sent := decode[sendResponse](t, body)
		status, _ = env.do(t, jsonRequest(http.MethodDelete, "/api/admin/users/"+bob.ID, adminToken, nil))
		req.Equal(http.StatusOK, status)

		// When
		status, body = env.do(t, jsonRequest(http.MethodGet, "/api/chat/messages/"+bob.ID, annToken, nil))

		// Then
		req.Equal(http.StatusOK, status, string(body))
		hist := decode[[]models.MessageView](t, body)
		req.Len(hist, 1)
		req.Equal(bob.ID, hist[0].Receiver.ID)
		req.Empty(hist[0].Receiver.Name)
		status, _ = env.do(t, jsonRequest(http.MethodGet, "/api/chat/attachments/"+*sent.Data.FilePath, annToken, nil))
		req.Equal(http.StatusOK, status)
	})

	t.Run("legacy send route and url-encoded form", func(t *testing.T) {
		req := require.New(t)

		env := newTestEnv(t)
		_, annToken := env.user(t, "Ann", models.RoleUser)
		bob, _ := env.user(t, "Bob", models.RoleUser)
		r := httptest.NewRequest(http.MethodPost, "/api/chat/send-message/"+bob.ID, strings.NewReader("content=hello"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.Header.Set("Authorization", "Bearer "+annToken)

		status, body := env.do(t, r)

		req.Equal(http.StatusCreated, status, string(body))
		req.Equal("hello", decode[sendResponse](t, body).Data.Content)
	})

	t.Run("empty message is rejected and nothing is stored", func(t *testing.T) {
		req := require.New(t)

		env := newTestEnv(t)
		_, annToken := env.user(t, "Ann", models.RoleUser)
		bob, _ := env.user(t, "Bob", models.RoleUser)

		status, _ := env.do(t, multipartRequest(t, "/api/chat/messages/"+bob.ID, annToken,
			map[string]string{"content": "  "}, "", nil))
		_, body := env.do(t, jsonRequest(http.MethodGet, "/api/chat/messages/"+bob.ID, annToken, nil))

		req.Equal(http.StatusBadRequest, status)
		req.Empty(decode[[]models.MessageView](t, body))
	})

	t.Run("unknown receiver is not found", func(t *testing.T) {
		env := newTestEnv(t)
		_, annToken := env.user(t, "Ann", models.RoleUser)

		status, _ := env.do(t, multipartRequest(t, "/api/chat/messages/000000000000000000000000", annToken,
			map[string]string{"content": "hello?"}, "", nil))

		require.Equal(t, http.StatusNotFound, status)
	})

	t.Run("attachments are served to participants only", func(t *testing.T) {
		req := require.New(t)

		// Given a message with an image attachment
		env := newTestEnv(t)
		_, annToken := env.user(t, "Ann", models.RoleUser)
		bob, bobToken := env.user(t, "Bob", models.RoleUser)
		_, eveToken := env.user(t, "Eve", models.RoleUser)
		var img bytes.Buffer
		req.NoError(png.Encode(&img, image.NewGray(image.Rect(0, 0, 8, 8))))

		status, body := env.do(t, multipartRequest(t, "/api/chat/messages/"+bob.ID, annToken,
			map[string]string{}, "pic.png", img.Bytes()))
		req.Equal(http.StatusCreated, status, string(body))
		sent := decode[sendResponse](t, body)
		req.NotNil(sent.Data.FilePath)
		req.NotNil(sent.Data.ThumbnailPath)
		target := "/api/chat/attachments/" + *sent.Data.FilePath

		// When / Then
		status, body = env.do(t, jsonRequest(http.MethodGet, target, bobToken, nil))
		req.Equal(http.StatusOK, status)
		req.Equal(img.Bytes(), body)

		status, _ = env.do(t, jsonRequest(http.MethodGet, "/api/chat/attachments/"+*sent.Data.ThumbnailPath, annToken, nil))
		req.Equal(http.StatusOK, status)

		status, _ = env.do(t, jsonRequest(http.MethodGet, target, eveToken, nil))
		req.Equal(http.StatusForbidden, status)

		status, _ = env.do(t, jsonRequest(http.MethodGet, target, "", nil))
		req.Equal(http.StatusUnauthorized, status)

		status, _ = env.do(t, jsonRequest(http.MethodGet, target+"?token="+bobToken, "", nil))
		req.Equal(http.StatusOK, status)
	})

	t.Run("disallowed file type is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		_, annToken := env.user(t, "Ann", models.RoleUser)
		bob, _ := env.user(t, "Bob", models.RoleUser)

		status, _ := env.do(t, multipartRequest(t, "/api/chat/messages/"+bob.ID, annToken,
			map[string]string{"content": "see attached"}, "run.exe", []byte("MZ\x90\x00")))

		require.Equal(t, http.StatusUnsupportedMediaType, status)
	})

	t.Run("presence of an offline user", func(t *testing.T) {
		req := require.New(t)

		env := newTestEnv(t)
		_, annToken := env.user(t, "Ann", models.RoleUser)
		bob, _ := env.user(t, "Bob", models.RoleUser)

		status, body := env.do(t, jsonRequest(http.MethodGet, "/api/chat/presence/"+bob.ID, annToken, nil))

		req.Equal(http.StatusOK, status)
		req.JSONEq(`{"userId":"`+bob.ID+`","online":false,"lastSeen":null}`, string(body))
	})
}

func TestAdminRoutes(t *testing.T) {
	t.Run("non-admin is forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		_, token := env.user(t, "Ann", models.RoleUser)

		status, _ := env.do(t, jsonRequest(http.MethodGet, "/api/admin/users", token, nil))

		require.Equal(t, http.StatusForbidden, status)
	})

	t.Run("block, import and export", func(t *testing.T) {
		req := require.New(t)

		// Given
		env := newTestEnv(t)
		_, adminToken := env.user(t, "Root", models.RoleAdmin)
		ann, err := env.accounts.Signup(context.Background(), service.SignupInput{
			Name: "Ann", Email: "ann@example.com", MobileNo: "5550001", Password: "secret1",
		})
		req.NoError(err)

		// When blocked
		status, body := env.do(t, jsonRequest(http.MethodPut, "/api/admin/users/block/"+ann.ID, adminToken, nil))

		// Then login is refused
		req.Equal(http.StatusOK, status, string(body))
		req.Contains(string(body), "User blocked successfully")
		status, _ = env.do(t, jsonRequest(http.MethodPost, "/api/auth/login", "",
			map[string]string{"email": "ann@example.com", "password": "secret1"}))
		req.Equal(http.StatusForbidden, status)

		// When importing
		csvBody := "name,email,mobileNo,password\nBob,bob@example.com,5550002,pw\nAnn,ann@example.com,5550001,pw\n"
		status, body = env.do(t, multipartRequest(t, "/api/admin/users/import", adminToken, nil, "roster.csv", []byte(csvBody)))

		// Then
		req.Equal(http.StatusOK, status, string(body))
		counts := decode[struct {
			Imported int `json:"importedCount"`
			Skipped  int `json:"skippedCount"`
		}](t, body)
		req.Equal(1, counts.Imported)
		req.Equal(1, counts.Skipped)

		// When exporting
		resp, err := env.app.Test(jsonRequest(http.MethodGet, "/api/admin/export", adminToken, nil), -1)
		req.NoError(err)
		defer resp.Body.Close()

		// Then
		req.Equal(http.StatusOK, resp.StatusCode)
		req.Contains(resp.Header.Get("Content-Type"), "spreadsheetml")
		req.Contains(resp.Header.Get("Content-Disposition"), "users.xlsx")
	})

	t.Run("oversized import is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		_, adminToken := env.user(t, "Root", models.RoleAdmin)

		big := bytes.Repeat([]byte("a"), 1<<16+1)
		status, _ := env.do(t, multipartRequest(t, "/api/admin/users/import", adminToken, nil, "big.csv", big))

		require.Equal(t, http.StatusRequestEntityTooLarge, status)
	})
}

func TestOperationalRoutes(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	status, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	req.Equal(http.StatusOK, status)
	req.JSONEq(`{"status":"ok"}`, string(body))

	status, body = env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	req.Equal(http.StatusOK, status)
	req.Contains(string(body), "ws_active_connections")

	status, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/ws", nil))
	req.Equal(http.StatusUpgradeRequired, status)
}
