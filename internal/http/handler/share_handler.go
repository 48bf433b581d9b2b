package handler

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"

	"docvault/internal/model"
	"docvault/internal/service"
)

type shareGrantRequest struct {
	ItemType     string     `json:"item_type"`
	ItemID       string     `json:"item_id"`
	GranteeEmail string     `json:"grantee_email"`
	Permission   string     `json:"permission"`
	ExpiresAt    *time.Time `json:"expires_at"`
	Message      string     `json:"message"`
}

func (r shareGrantRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ItemType, validation.Required, validation.In("DOCUMENT", "FOLDER")),
		validation.Field(&r.ItemID, validation.Required, is.UUID),
		validation.Field(&r.GranteeEmail, validation.Required, is.EmailFormat),
		validation.Field(&r.Permission, validation.Required, validation.In("VIEW", "DOWNLOAD", "EDIT")),
		validation.Field(&r.Message, validation.Length(0, 1024)),
	)
}

type shareLinkRequest struct {
	ItemType       string     `json:"item_type"`
	ItemID         string     `json:"item_id"`
	Permission     string     `json:"permission"`
	ExpiresAt      *time.Time `json:"expires_at"`
	Password       *string    `json:"password"`
	MaxAccessCount *int64     `json:"max_access_count"`
}

func (r shareLinkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ItemType, validation.Required, validation.In("DOCUMENT", "FOLDER")),
		validation.Field(&r.ItemID, validation.Required, is.UUID),
		validation.Field(&r.Permission, validation.Required, validation.In("VIEW", "DOWNLOAD", "EDIT")),
		validation.Field(&r.Password, validation.Length(4, 128)),
		validation.Field(&r.MaxAccessCount, validation.Min(int64(1))),
	)
}

// itemTypeParam maps the ?type= query value; documents are the default.
func itemTypeParam(c *fiber.Ctx) model.ItemType {
	if strings.EqualFold(c.Query("type"), "folder") {
		return model.ItemFolder
	}
	return model.ItemDocument
}

// ShareWithUser handles POST /api/shares.
func ShareWithUser(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req shareGrantRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		if err := req.Validate(); err != nil {
			return serviceError(c, err)
		}

		grant, err := svc.ShareWithUser(c.UserContext(), actor(c), service.ShareGrantParams{
			ItemType:     model.ItemType(req.ItemType),
			ItemID:       req.ItemID,
			GranteeEmail: req.GranteeEmail,
			Permission:   model.Permission(req.Permission),
			ExpiresAt:    req.ExpiresAt,
			Message:      req.Message,
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(grant)
	}
}

// RevokeShare handles DELETE /api/shares/:id.
func RevokeShare(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.RevokeShare(c.UserContext(), actor(c), id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListSharedWithMe handles GET /api/shares/with-me?type=.
func ListSharedWithMe(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, ok := pageParams(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGINATION", "invalid limit or offset")
		}
		res, err := svc.ListSharedWithMe(c.UserContext(), actor(c), itemTypeParam(c), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// ListSharedByMe handles GET /api/shares/by-me?type=.
func ListSharedByMe(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, ok := pageParams(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGINATION", "invalid limit or offset")
		}
		res, err := svc.ListSharedByMe(c.UserContext(), actor(c), itemTypeParam(c), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// CreateShareLink handles POST /api/share-links.
func CreateShareLink(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req shareLinkRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		if err := req.Validate(); err != nil {
			return serviceError(c, err)
		}

		link, err := svc.CreateShareLink(c.UserContext(), actor(c), service.ShareLinkParams{
			ItemType:       model.ItemType(req.ItemType),
			ItemID:         req.ItemID,
			Permission:     model.Permission(req.Permission),
			ExpiresAt:      req.ExpiresAt,
			Password:       req.Password,
			MaxAccessCount: req.MaxAccessCount,
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(link)
	}
}

// DeactivateShareLink handles DELETE /api/share-links/:id.
func DeactivateShareLink(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.DeactivateLink(c.UserContext(), actor(c), id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListMyShareLinks handles GET /api/share-links.
func ListMyShareLinks(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, ok := pageParams(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGINATION", "invalid limit or offset")
		}
		res, err := svc.ListMyLinks(c.UserContext(), actor(c), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// EffectivePermission handles GET /api/shares/permission?item_type=&item_id=.
func EffectivePermission(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		itemType := strings.ToUpper(c.Query("item_type", "DOCUMENT"))
		if itemType != "DOCUMENT" && itemType != "FOLDER" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ITEM_TYPE", "item_type must be DOCUMENT or FOLDER")
		}
		itemID := c.Query("item_id")
		if itemID == "" {
			return writeError(c, fiber.StatusBadRequest, "MISSING_ITEM_ID", "item_id is required")
		}

		perm, ok, err := svc.EffectivePermission(c.UserContext(), actor(c), model.ItemType(itemType), itemID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"permission": perm, "has_access": ok})
	}
}

// ResolveShareLink handles GET /share/:token (anonymous). The optional
// password travels as a query parameter.
func ResolveShareLink(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		link, err := svc.ResolveLink(c.UserContext(), c.Params("token"), optionalQueryPassword(c))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(link)
	}
}

// SharedDocument handles GET /share/:token/document (anonymous).
func SharedDocument(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := svc.LinkDocument(c.UserContext(), c.Params("token"), optionalQueryPassword(c))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// SharedDocumentDownload handles GET /share/:token/download (anonymous).
func SharedDocumentDownload(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, doc, err := svc.LinkDownload(c.UserContext(), c.Params("token"), optionalQueryPassword(c))
		if err != nil {
			return serviceError(c, err)
		}

		c.Set(fiber.HeaderContentType, doc.MimeType)
		c.Set(fiber.HeaderContentDisposition, "attachment; filename=\""+doc.Name+"\"")
		return c.SendStream(rc, int(doc.FileSize))
	}
}

// SharedFolderContents handles GET /share/:token/contents (anonymous).
func SharedFolderContents(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		content, err := svc.LinkFolderContents(c.UserContext(), c.Params("token"), optionalQueryPassword(c))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(content)
	}
}
