package handler

import (
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"

	"docvault/internal/model"
	"docvault/internal/service"
)

type renameDocumentRequest struct {
	Name string `json:"name"`
}

func (r renameDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

type moveDocumentRequest struct {
	FolderID *string `json:"folder_id"`
}

func (r moveDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FolderID, is.UUID),
	)
}

type addTagRequest struct {
	Name string `json:"name"`
}

func (r addTagRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 64)),
	)
}

// UploadDocument handles POST /api/documents (multipart/form-data, field
// name: file, optional form value: folder_id).
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		var folderID *string
		if v := c.FormValue("folder_id"); v != "" {
			folderID = &v
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		doc, err := svc.Upload(c.UserContext(), actor(c), f, service.UploadParams{
			FolderID:     folderID,
			OriginalName: fh.Filename,
			MimeType:     ct,
			Size:         fh.Size,
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument handles GET /api/documents/:id.
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), actor(c), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument handles GET /api/documents/:id/download, streaming the
// content.
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, doc, err := svc.Download(c.UserContext(), actor(c), id)
		if err != nil {
			return serviceError(c, err)
		}

		c.Set(fiber.HeaderContentType, doc.MimeType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Name))
		return c.SendStream(rc, int(doc.FileSize))
	}
}

// PreviewDocument handles GET /api/documents/:id/preview, returning a
// time-limited presigned URL.
func PreviewDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		url, err := svc.PreviewURL(c.UserContext(), actor(c), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"url": url})
	}
}

// RenameDocument handles PATCH /api/documents/:id.
func RenameDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req renameDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		if err := req.Validate(); err != nil {
			return serviceError(c, err)
		}

		doc, err := svc.Rename(c.UserContext(), actor(c), id, req.Name)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// MoveDocument handles POST /api/documents/:id/move. A null folder moves the
// document to the unfiled root.
func MoveDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req moveDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		if err := req.Validate(); err != nil {
			return serviceError(c, err)
		}

		doc, err := svc.Move(c.UserContext(), actor(c), id, req.FolderID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// CopyDocument handles POST /api/documents/:id/copy.
func CopyDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Copy(c.UserContext(), actor(c), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// DeleteDocument handles DELETE /api/documents/:id (soft delete).
func DeleteDocument(svc service.DocumentService) fiber.Handler {
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

// RestoreDocument handles POST /api/documents/:id/restore.
func RestoreDocument(svc service.DocumentService) fiber.Handler {
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

// ToggleFavorite handles POST /api/documents/:id/favorite.
func ToggleFavorite(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.ToggleFavorite(c.UserContext(), actor(c), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// AddDocumentTag handles POST /api/documents/:id/tags.
func AddDocumentTag(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req addTagRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		if err := req.Validate(); err != nil {
			return serviceError(c, err)
		}

		if err := svc.AddTag(c.UserContext(), actor(c), id, req.Name); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RemoveDocumentTag handles DELETE /api/documents/:id/tags/:tag.
func RemoveDocumentTag(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.RemoveTag(c.UserContext(), actor(c), id, c.Params("tag")); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListUserTags handles GET /api/documents/tags.
func ListUserTags(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tags, err := svc.ListUserTags(c.UserContext(), actor(c))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"data": tags})
	}
}

// ListDocuments handles GET /api/documents; an optional folder_id filters to
// one folder, otherwise unfiled documents are returned.
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, ok := pageParams(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGINATION", "invalid limit or offset")
		}
		var folderID *string
		if v := c.Query("folder_id"); v != "" {
			folderID = &v
		}
		res, err := svc.ListByFolder(c.UserContext(), actor(c), folderID, limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// ListDocumentsByCategory handles GET /api/documents/category/:category.
func ListDocumentsByCategory(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, ok := pageParams(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGINATION", "invalid limit or offset")
		}
		category := model.Category(strings.ToUpper(c.Params("category")))
		res, err := svc.ListByCategory(c.UserContext(), actor(c), category, limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// ListRecentDocuments handles GET /api/documents/recent.
func ListRecentDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, ok := pageParams(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGINATION", "invalid limit or offset")
		}
		res, err := svc.ListRecent(c.UserContext(), actor(c), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// ListFavoriteDocuments handles GET /api/documents/favorites.
func ListFavoriteDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, ok := pageParams(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGINATION", "invalid limit or offset")
		}
		res, err := svc.ListFavorites(c.UserContext(), actor(c), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// SearchDocuments handles GET /api/documents/search?q=.
func SearchDocuments(svc service.DocumentService) fiber.Handler {
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

// ReplaceDocumentContent handles PUT /api/documents/:id/content
// (multipart/form-data, field name: file, optional form value: change_note).
func ReplaceDocumentContent(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		doc, err := svc.ReplaceContent(c.UserContext(), actor(c), id, f, service.ReplaceContentParams{
			OriginalName: fh.Filename,
			MimeType:     ct,
			Size:         fh.Size,
			ChangeNote:   c.FormValue("change_note"),
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

type metadataRequest struct {
	Attributes      map[string]any `json:"attributes"`
	ExtractedText   *string        `json:"extracted_text"`
	PageCount       *int           `json:"page_count"`
	Width           *int           `json:"width"`
	Height          *int           `json:"height"`
	DurationSeconds *int64         `json:"duration_seconds"`
	Author          *string        `json:"author"`
	Title           *string        `json:"title"`
}

func (r metadataRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PageCount, validation.Min(1)),
		validation.Field(&r.Width, validation.Min(1)),
		validation.Field(&r.Height, validation.Min(1)),
		validation.Field(&r.DurationSeconds, validation.Min(int64(0))),
		validation.Field(&r.Author, validation.Length(0, 255)),
		validation.Field(&r.Title, validation.Length(0, 512)),
	)
}

// GetDocumentMetadata handles GET /api/documents/:id/metadata.
func GetDocumentMetadata(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		meta, err := svc.GetMetadata(c.UserContext(), actor(c), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(meta)
	}
}

// SetDocumentMetadata handles PUT /api/documents/:id/metadata, replacing the
// sidecar wholesale.
func SetDocumentMetadata(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req metadataRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		if err := req.Validate(); err != nil {
			return serviceError(c, err)
		}

		meta, err := svc.SetMetadata(c.UserContext(), actor(c), id, service.MetadataParams{
			Attributes:      req.Attributes,
			ExtractedText:   req.ExtractedText,
			PageCount:       req.PageCount,
			Width:           req.Width,
			Height:          req.Height,
			DurationSeconds: req.DurationSeconds,
			Author:          req.Author,
			Title:           req.Title,
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(meta)
	}
}

// ListDocumentVersions handles GET /api/documents/:id/versions.
func ListDocumentVersions(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		versions, err := svc.ListVersions(c.UserContext(), actor(c), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"data": versions})
	}
}

// RestoreDocumentVersion handles POST /api/documents/:id/versions/:number/restore.
func RestoreDocumentVersion(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		number, err := strconv.Atoi(c.Params("number"))
		if err != nil || number < 1 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_VERSION", "version number must be a positive integer")
		}
		doc, err := svc.RestoreVersion(c.UserContext(), actor(c), id, number)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}
