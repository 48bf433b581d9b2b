package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

// ListTrash handles GET /api/trash.
func ListTrash(svc service.TrashService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, ok := pageParams(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGINATION", "invalid limit or offset")
		}
		res, err := svc.List(c.UserContext(), actor(c), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// RestoreTrashItem handles POST /api/trash/:id/restore.
func RestoreTrashItem(svc service.TrashService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Restore(c.UserContext(), actor(c), id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PurgeTrashItem handles DELETE /api/trash/:id (permanent).
func PurgeTrashItem(svc service.TrashService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.PermanentlyDelete(c.UserContext(), actor(c), id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// EmptyTrash handles DELETE /api/trash.
func EmptyTrash(svc service.TrashService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.EmptyTrash(c.UserContext(), actor(c)); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
