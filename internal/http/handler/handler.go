package handler

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/http/middleware"
)

// actor returns the authenticated user id stored by middleware.Actor.
func actor(c *fiber.Ctx) string {
	if id, ok := c.Locals(middleware.ActorLocalKey).(string); ok {
		return id
	}
	return ""
}

// pathID validates the named path parameter as a UUID.
func pathID(c *fiber.Ctx, name string) (string, bool) {
	id := c.Params(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// pageParams parses limit/offset query params with the usual defaults.
func pageParams(c *fiber.Ctx) (limit, offset int, ok bool) {
	var err error
	limit, err = strconv.Atoi(c.Query("limit", "10"))
	if err != nil {
		return 0, 0, false
	}
	offset, err = strconv.Atoi(c.Query("offset", "0"))
	if err != nil {
		return 0, 0, false
	}
	return limit, offset, true
}

// optionalQueryPassword returns the share-link password if the client sent one.
func optionalQueryPassword(c *fiber.Ctx) *string {
	if p := c.Query("password"); p != "" {
		return &p
	}
	return nil
}

// HealthCheck checks DB connectivity only.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness probe.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
