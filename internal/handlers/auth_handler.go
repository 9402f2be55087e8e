package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/middleware"
	"github.com/fathima-sithara/chat-app/internal/models"
	"github.com/fathima-sithara/chat-app/internal/service"
	"github.com/fathima-sithara/chat-app/internal/utils"
)

type AuthHandler struct {
	accounts *service.AccountService
	log      *zap.Logger
}

func NewAuthHandler(accounts *service.AccountService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

// POST /api/auth/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.accounts.Signup(c.UserContext(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		MobileNo: req.MobileNo,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	h.log.Info("user signed up", zap.String("user_id", u.ID))
	return utils.JSONMessage(c, fiber.StatusCreated, "User registered successfully", models.ParticipantOf(u))
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
		"user":      models.ParticipantOf(res.User),
	})
}

// GET /api/auth/validate
func (h *AuthHandler) Validate(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Token is valid", "user": middleware.Claims(c)})
}

// GET /api/auth/profile
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	u, err := h.accounts.Profile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(u)
}

// GET /api/auth/user/:id
func (h *AuthHandler) PublicUser(c *fiber.Ctx) error {
	u, err := h.accounts.Profile(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"name": u.Name, "email": u.Email})
}
