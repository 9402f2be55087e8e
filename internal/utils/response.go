package utils

import "github.com/gofiber/fiber/v2"

func JSONMessage(c *fiber.Ctx, status int, msg string, payload interface{}) error {
	return c.Status(status).JSON(fiber.Map{"status": "ok", "message": msg, "data": payload})
}

func JSONError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"status": "error", "message": msg})
}
