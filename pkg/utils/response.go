package utils

import "github.com/gofiber/fiber/v2"

// Success writes data as the bare JSON body.
func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

func Message(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message})
}

// Error writes the client-facing failure body. Every failure carries a
// human-readable message and nothing else.
func Error(c *fiber.Ctx, status int, message string) error {
	return Message(c, status, message)
}
