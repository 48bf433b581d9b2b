package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// ActorHeader carries the authenticated user's id. Authentication itself
	// happens upstream (gateway); the vault trusts this header.
	ActorHeader = "X-User-ID"
	// ActorLocalKey is the key used to store the actor id in Fiber's context locals.
	ActorLocalKey = "actor_id"
)

// Actor requires a well-formed X-User-ID header and stores it in locals.
// Routes behind this middleware can read the actor id without re-validating.
func Actor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(ActorHeader)
		if id == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"request_id": c.Locals(RequestIDLocalKey),
				"error": fiber.Map{
					"code":    "MISSING_USER",
					"message": "X-User-ID header is required",
				},
			})
		}
		if _, err := uuid.Parse(id); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"request_id": c.Locals(RequestIDLocalKey),
				"error": fiber.Map{
					"code":    "INVALID_USER",
					"message": "X-User-ID must be a UUID",
				},
			})
		}

		c.Locals(ActorLocalKey, id)
		return c.Next()
	}
}
