package handler

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

type createFolderRequest struct {
	Name        string  `json:"name"`
	ParentID    *string `json:"parent_id"`
	Color       string  `json:"color"`
	Description string  `json:"description"`
}

func (r createFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.ParentID, is.UUID),
		validation.Field(&r.Color, validation.Length(0, 32)),
		validation.Field(&r.Description, validation.Length(0, 1024)),
	)
}

type updateFolderRequest struct {
	Name        *string `json:"name"`
	Color       *string `json:"color"`
	Description *string `json:"description"`
}

func (r updateFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&r.Color, validation.Length(0, 32)),
		validation.Field(&r.Description, validation.Length(0, 1024)),
	)
}

type moveFolderRequest struct {
	ParentID *string `json:"parent_id"`
}

func (r moveFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ParentID, is.UUID),
	)
}

// CreateFolder handles POST /api/folders.
func CreateFolder(svc service.FolderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createFolderRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		if err := req.Validate(); err != nil {
			return serviceError(c, err)
		}

		folder, err := svc.Create(c.UserContext(), actor(c), service.CreateFolderParams{
			Name:        req.Name,
			ParentID:    req.ParentID,
			Color:       req.Color,
			Description: req.Description,
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(folder)
	}
}

// GetFolder handles GET /api/folders/:id.
func GetFolder(svc service.FolderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		folder, err := svc.Get(c.UserContext(), actor(c), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(folder)
	}
}

// GetOrCreateRootFolder handles GET /api/folders/root. The root record is
// materialized on first use.
func GetOrCreateRootFolder(svc service.FolderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		folder, err := svc.GetOrCreateRoot(c.UserContext(), actor(c))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(folder)
	}
}

// UpdateFolder handles PATCH /api/folders/:id.
func UpdateFolder(svc service.FolderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req updateFolderRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		if err := req.Validate(); err != nil {
			return serviceError(c, err)
		}

		folder, err := svc.Update(c.UserContext(), actor(c), id, service.UpdateFolderParams{
			Name:        req.Name,
			Color:       req.Color,
			Description: req.Description,
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(folder)
	}
}

// MoveFolder handles POST /api/folders/:id/move. A null parent moves the
// folder to the top level.
func MoveFolder(svc service.FolderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req moveFolderRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		if err := req.Validate(); err != nil {
			return serviceError(c, err)
		}

		folder, err := svc.Move(c.UserContext(), actor(c), id, req.ParentID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(folder)
	}
}

// DeleteFolder handles DELETE /api/folders/:id (soft delete with cascade).
func DeleteFolder(svc service.FolderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), actor(c), id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RestoreFolder handles POST /api/folders/:id/restore.
func RestoreFolder(svc service.FolderService) fiber.Handler {
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

// ListFolderChildren handles GET /api/folders/children; without parent_id it
// lists the user's top-level folders.
func ListFolderChildren(svc service.FolderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var parentID *string
		if p := c.Query("parent_id"); p != "" {
			parentID = &p
		}
		folders, err := svc.ListChildren(c.UserContext(), actor(c), parentID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"data": folders})
	}
}

// FolderTree handles GET /api/folders/tree.
func FolderTree(svc service.FolderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tree, err := svc.Tree(c.UserContext(), actor(c))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(tree)
	}
}

// SearchFolders handles GET /api/folders/search?q=.
func SearchFolders(svc service.FolderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return writeError(c, fiber.StatusBadRequest, "MISSING_QUERY", "q is required")
		}
		limit, offset, ok := pageParams(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGINATION", "invalid limit or offset")
		}
		res, err := svc.Search(c.UserContext(), actor(c), query, limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}
