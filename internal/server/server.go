package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/config"
	"github.com/fathima-sithara/chat-app/internal/middleware"
	"github.com/fathima-sithara/chat-app/internal/utils"
)

// multipart framing on top of the largest accepted file
const bodySlack = 1 << 20

// New initializes the Fiber application with config and global middlewares.
// Routes are registered separately by the routes package.
func New(cfg *config.Config, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "chat-app",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		BodyLimit:             int(cfg.Uploads.MaxBytes) + bodySlack,
		DisableStartupMessage: !cfg.IsDevelopment(),
		ErrorHandler:          ErrorHandler(logger),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.IsDevelopment()}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.App.FrontendURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.ZapLogger(logger))

	return app
}

// ErrorHandler renders every returned error as {"status":"error","message":...}.
// Unclassified errors are logged and answered with a generic 500.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return utils.JSONError(c, fe.Code, fe.Message)
		}
		status := apperrors.HTTPStatus(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return utils.JSONError(c, status, apperrors.PublicMessage(err))
	}
}
