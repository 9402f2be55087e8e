package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	redisstore "github.com/fathima-sithara/chat-app/internal/redis"
)

type OnlineChecker interface {
	IsOnline(userID string) bool
}

type LastSeenReader interface {
	Get(ctx context.Context, userID string) (redisstore.Presence, bool, error)
}

type PresenceHandler struct {
	registry OnlineChecker
	lastSeen LastSeenReader
	log      *zap.Logger
}

// NewPresenceHandler accepts a nil lastSeen when Redis is not configured.
func NewPresenceHandler(registry OnlineChecker, lastSeen LastSeenReader, log *zap.Logger) *PresenceHandler {
	return &PresenceHandler{registry: registry, lastSeen: lastSeen, log: log}
}

// GET /api/chat/presence/:userId
func (h *PresenceHandler) Get(c *fiber.Ctx) error {
	userID := c.Params("userId")
	resp := fiber.Map{"userId": userID, "online": h.registry.IsOnline(userID), "lastSeen": nil}

	if h.lastSeen != nil {
		p, ok, err := h.lastSeen.Get(c.UserContext(), userID)
		switch {
		case err != nil:
			h.log.Debug("last seen lookup", zap.String("user_id", userID), zap.Error(err))
		case ok:
			resp["lastSeen"] = p.LastSeen
		}
	}
	return c.JSON(resp)
}
