package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/fathima-sithara/chat-app/internal/auth"
	"github.com/fathima-sithara/chat-app/internal/handlers"
	"github.com/fathima-sithara/chat-app/internal/metrics"
	"github.com/fathima-sithara/chat-app/internal/middleware"
	"github.com/fathima-sithara/chat-app/internal/models"
	"github.com/fathima-sithara/chat-app/internal/ws"
)

type Deps struct {
	Verifier    auth.Verifier
	Auth        *handlers.AuthHandler
	Chat        *handlers.ChatHandler
	Admin       *handlers.AdminHandler
	Presence    *handlers.PresenceHandler
	Gateway     *ws.Gateway
	SendLimiter fiber.Handler
}

func Setup(app *fiber.App, d Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	protected := middleware.Protected(d.Verifier)
	sendLimiter := d.SendLimiter
	if sendLimiter == nil {
		sendLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	authGroup := app.Group("/api/auth")
	authGroup.Post("/signup", d.Auth.Signup)
	authGroup.Post("/login", d.Auth.Login)
	authGroup.Get("/validate", protected, d.Auth.Validate)
	authGroup.Get("/profile", protected, d.Auth.Profile)
	authGroup.Get("/user/:id", protected, d.Auth.PublicUser)

	chat := app.Group("/api/chat")
	chat.Post("/messages/:receiverId", protected, sendLimiter, d.Chat.SendMessage)
	chat.Post("/send-message/:receiverId", protected, sendLimiter, d.Chat.SendMessage)
	chat.Get("/messages/:receiverId", protected, d.Chat.GetMessages)
	chat.Get("/attachments/*", middleware.ProtectedAllowQuery(d.Verifier), d.Chat.GetAttachment)
	chat.Get("/presence/:userId", protected, d.Presence.Get)

	admin := app.Group("/api/admin", protected, middleware.RequireRole(string(models.RoleAdmin)))
	admin.Get("/users", d.Admin.ListUsers)
	admin.Post("/users", d.Admin.AddUser)
	admin.Post("/users/import", d.Admin.Import)
	admin.Put("/users/block/:id", d.Admin.ToggleBlock)
	admin.Put("/users/:id", d.Admin.UpdateUser)
	admin.Delete("/users/:id", d.Admin.DeleteUser)
	admin.Get("/export", d.Admin.Export)

	app.Get("/ws", d.Gateway.Authenticate(), d.Gateway.Handler())
}
