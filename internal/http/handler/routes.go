package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// Services bundles the service layer for route registration.
type Services struct {
	Folders   service.FolderService
	Documents service.DocumentService
	Trash     service.TrashService
	Sharing   service.SharingService
}

// RegisterRoutes attaches all HTTP routes to the provided Fiber app. The
// /api group requires an authenticated actor; /share is anonymous.
func RegisterRoutes(app *fiber.App, db *sql.DB, svcs Services) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	// Anonymous share-link surface. Every route resolves the token (and
	// optional password) before touching the target.
	share := app.Group("/share")
	share.Get("/:token", ResolveShareLink(svcs.Sharing))
	share.Get("/:token/document", SharedDocument(svcs.Sharing))
	share.Get("/:token/download", SharedDocumentDownload(svcs.Sharing))
	share.Get("/:token/contents", SharedFolderContents(svcs.Sharing))

	api := app.Group("/api", middleware.Actor())

	folders := api.Group("/folders")
	folders.Post("/", CreateFolder(svcs.Folders))
	folders.Get("/root", GetOrCreateRootFolder(svcs.Folders))
	folders.Get("/tree", FolderTree(svcs.Folders))
	folders.Get("/children", ListFolderChildren(svcs.Folders))
	folders.Get("/search", SearchFolders(svcs.Folders))
	folders.Get("/:id", GetFolder(svcs.Folders))
	folders.Patch("/:id", UpdateFolder(svcs.Folders))
	folders.Post("/:id/move", MoveFolder(svcs.Folders))
	folders.Delete("/:id", DeleteFolder(svcs.Folders))
	folders.Post("/:id/restore", RestoreFolder(svcs.Folders))

	documents := api.Group("/documents")
	documents.Post("/", UploadDocument(svcs.Documents))
	documents.Get("/", ListDocuments(svcs.Documents))
	documents.Get("/recent", ListRecentDocuments(svcs.Documents))
	documents.Get("/favorites", ListFavoriteDocuments(svcs.Documents))
	documents.Get("/search", SearchDocuments(svcs.Documents))
	documents.Get("/tags", ListUserTags(svcs.Documents))
	documents.Get("/category/:category", ListDocumentsByCategory(svcs.Documents))
	documents.Get("/:id", GetDocument(svcs.Documents))
	documents.Get("/:id/download", DownloadDocument(svcs.Documents))
	documents.Get("/:id/preview", PreviewDocument(svcs.Documents))
	documents.Patch("/:id", RenameDocument(svcs.Documents))
	documents.Post("/:id/move", MoveDocument(svcs.Documents))
	documents.Post("/:id/copy", CopyDocument(svcs.Documents))
	documents.Delete("/:id", DeleteDocument(svcs.Documents))
	documents.Post("/:id/restore", RestoreDocument(svcs.Documents))
	documents.Post("/:id/favorite", ToggleFavorite(svcs.Documents))
	documents.Post("/:id/tags", AddDocumentTag(svcs.Documents))
	documents.Delete("/:id/tags/:tag", RemoveDocumentTag(svcs.Documents))
	documents.Put("/:id/content", ReplaceDocumentContent(svcs.Documents))
	documents.Get("/:id/metadata", GetDocumentMetadata(svcs.Documents))
	documents.Put("/:id/metadata", SetDocumentMetadata(svcs.Documents))
	documents.Get("/:id/versions", ListDocumentVersions(svcs.Documents))
	documents.Post("/:id/versions/:number/restore", RestoreDocumentVersion(svcs.Documents))

	trash := api.Group("/trash")
	trash.Get("/", ListTrash(svcs.Trash))
	trash.Post("/:id/restore", RestoreTrashItem(svcs.Trash))
	trash.Delete("/:id", PurgeTrashItem(svcs.Trash))
	trash.Delete("/", EmptyTrash(svcs.Trash))

	shares := api.Group("/shares")
	shares.Post("/", ShareWithUser(svcs.Sharing))
	shares.Get("/with-me", ListSharedWithMe(svcs.Sharing))
	shares.Get("/by-me", ListSharedByMe(svcs.Sharing))
	shares.Get("/permission", EffectivePermission(svcs.Sharing))
	shares.Delete("/:id", RevokeShare(svcs.Sharing))

	links := api.Group("/share-links")
	links.Post("/", CreateShareLink(svcs.Sharing))
	links.Get("/", ListMyShareLinks(svcs.Sharing))
	links.Delete("/:id", DeactivateShareLink(svcs.Sharing))
}
