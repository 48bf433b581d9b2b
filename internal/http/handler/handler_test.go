package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docvault/internal/apperr"
	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
	serviceMocks "docvault/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// testActor injects the actor id the way middleware.Actor would.
func testActor(id string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.ActorLocalKey, id)
		return c.Next()
	}
}

func multipartFile(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadDocument(t *testing.T) {
	userID := uuid.New().String()
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Post("/documents", testActor(userID), UploadDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		body, contentType := multipartFile(t, "file", "test.txt", "hello world")

		expectedDoc := &model.Document{ID: uuid.New().String(), Name: "test.txt"}
		mockSvc.On("Upload", mock.Anything, userID, mock.Anything, mock.MatchedBy(func(p service.UploadParams) bool {
			return p.OriginalName == "test.txt" && p.Size == 11 && p.FolderID == nil
		})).Return(expectedDoc, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expectedDoc.ID, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_REQUIRED", res.Error.Code)
	})

	t.Run("quota exceeded", func(t *testing.T) {
		body, contentType := multipartFile(t, "file", "big.bin", "too much data")

		mockSvc.On("Upload", mock.Anything, userID, mock.Anything, mock.Anything).
			Return(nil, apperr.QuotaExceeded(1000, 2000)).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "QUOTA_EXCEEDED", res.Error.Code)
		assert.EqualValues(t, 1000, res.Details["available_bytes"])
		assert.EqualValues(t, 2000, res.Details["required_bytes"])
		mockSvc.AssertExpectations(t)
	})
}

func TestGetDocument(t *testing.T) {
	userID := uuid.New().String()
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id", testActor(userID), GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		expectedDoc := &model.Document{ID: id, Name: "test.txt"}
		mockSvc.On("Get", mock.Anything, userID, id).Return(expectedDoc, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, userID, id).Return(nil, apperr.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents/invalid-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, userID, id).Return(nil, errors.New("db error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDownloadDocument(t *testing.T) {
	userID := uuid.New().String()
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id/download", testActor(userID), DownloadDocument(mockSvc))

	id := uuid.New().String()
	doc := &model.Document{ID: id, Name: "notes.txt", MimeType: "text/plain", FileSize: 7}
	mockSvc.On("Download", mock.Anything, userID, id).
		Return(io.NopCloser(strings.NewReader("content")), doc, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "notes.txt")

	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "content", string(data))
	mockSvc.AssertExpectations(t)
}

func TestSetDocumentMetadata(t *testing.T) {
	userID := uuid.New().String()
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Put("/documents/:id/metadata", testActor(userID), SetDocumentMetadata(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("SetMetadata", mock.Anything, userID, id, mock.MatchedBy(func(p service.MetadataParams) bool {
			return p.Attributes["project"] == "alpha" && p.PageCount != nil && *p.PageCount == 12
		})).Return(&model.DocumentMetadata{DocumentID: id}, nil).Once()

		body := `{"attributes":{"project":"alpha"},"page_count":12}`
		req := httptest.NewRequest(http.MethodPut, "/documents/"+id+"/metadata", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("rejects non-positive page count", func(t *testing.T) {
		id := uuid.New().String()
		req := httptest.NewRequest(http.MethodPut, "/documents/"+id+"/metadata", strings.NewReader(`{"page_count":0}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeleteDocument(t *testing.T) {
	userID := uuid.New().String()
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Delete("/documents/:id", testActor(userID), DeleteDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, userID, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, userID, id).Return(apperr.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestCreateFolder(t *testing.T) {
	userID := uuid.New().String()
	mockSvc := new(serviceMocks.MockFolderService)
	app := fiber.New()
	app.Post("/folders", testActor(userID), CreateFolder(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, userID, service.CreateFolderParams{Name: "Invoices"}).
			Return(&model.Folder{ID: uuid.New().String(), Name: "Invoices", Path: "/Invoices"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/folders", strings.NewReader(`{"name":"Invoices"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/folders", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "VALIDATION_FAILED", res.Error.Code)
	})

	t.Run("duplicate sibling", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, userID, mock.Anything).
			Return(nil, apperr.ErrConflict).Once()

		req := httptest.NewRequest(http.MethodPost, "/folders", strings.NewReader(`{"name":"Invoices"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestMoveFolder(t *testing.T) {
	userID := uuid.New().String()
	mockSvc := new(serviceMocks.MockFolderService)
	app := fiber.New()
	app.Post("/folders/:id/move", testActor(userID), MoveFolder(mockSvc))

	t.Run("cyclic move rejected", func(t *testing.T) {
		id := uuid.New().String()
		target := uuid.New().String()
		mockSvc.On("Move", mock.Anything, userID, id, mock.Anything).
			Return(nil, apperr.ErrValidation).Once()

		req := httptest.NewRequest(http.MethodPost, "/folders/"+id+"/move",
			strings.NewReader(`{"parent_id":"`+target+`"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("root move forbidden", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Move", mock.Anything, userID, id, (*string)(nil)).
			Return(nil, apperr.ErrForbidden).Once()

		req := httptest.NewRequest(http.MethodPost, "/folders/"+id+"/move", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestListTrash(t *testing.T) {
	userID := uuid.New().String()
	mockSvc := new(serviceMocks.MockTrashService)
	app := fiber.New()
	app.Get("/trash", testActor(userID), ListTrash(mockSvc))

	mockSvc.On("List", mock.Anything, userID, 10, 0).Return(&service.ListResult[service.TrashItemView]{
		Items: []service.TrashItemView{{DaysUntilPurge: 12}},
		Total: 1,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/trash", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result service.ListResult[service.TrashItemView]
	json.NewDecoder(resp.Body).Decode(&result)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 12, result.Items[0].DaysUntilPurge)
	mockSvc.AssertExpectations(t)
}

func TestShareWithUser(t *testing.T) {
	userID := uuid.New().String()
	mockSvc := new(serviceMocks.MockSharingService)
	app := fiber.New()
	app.Post("/shares", testActor(userID), ShareWithUser(mockSvc))

	itemID := uuid.New().String()
	payload := `{"item_type":"DOCUMENT","item_id":"` + itemID + `","grantee_email":"friend@example.com","permission":"VIEW"}`

	t.Run("duplicate grant", func(t *testing.T) {
		mockSvc.On("ShareWithUser", mock.Anything, userID, mock.Anything).
			Return(nil, apperr.ErrConflict).Once()

		req := httptest.NewRequest(http.MethodPost, "/shares", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("bad permission rejected before the service", func(t *testing.T) {
		bad := `{"item_type":"DOCUMENT","item_id":"` + itemID + `","grantee_email":"friend@example.com","permission":"OWNER"}`
		req := httptest.NewRequest(http.MethodPost, "/shares", strings.NewReader(bad))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestResolveShareLink(t *testing.T) {
	mockSvc := new(serviceMocks.MockSharingService)
	app := fiber.New()
	app.Get("/share/:token", ResolveShareLink(mockSvc))

	t.Run("success with password", func(t *testing.T) {
		password := "hunter2"
		link := &model.ShareLink{ID: uuid.New().String(), Token: "sometoken", AccessCount: 1}
		mockSvc.On("ResolveLink", mock.Anything, "sometoken", &password).Return(link, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/share/sometoken?password=hunter2", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.ShareLink
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, int64(1), result.AccessCount)
		mockSvc.AssertExpectations(t)
	})

	t.Run("expired link", func(t *testing.T) {
		mockSvc.On("ResolveLink", mock.Anything, "deadtoken", (*string)(nil)).
			Return(nil, apperr.ErrUnauthorized).Once()

		req := httptest.NewRequest(http.MethodGet, "/share/deadtoken", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestActorRequired(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(app, nil, Services{
		Folders:   new(serviceMocks.MockFolderService),
		Documents: new(serviceMocks.MockDocumentService),
		Trash:     new(serviceMocks.MockTrashService),
		Sharing:   new(serviceMocks.MockSharingService),
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/folders/tree", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/folders/tree", nil)
		req.Header.Set(middleware.ActorHeader, "not-a-uuid")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})
	RegisterRoutes(app, nil, Services{
		Folders:   new(serviceMocks.MockFolderService),
		Documents: new(serviceMocks.MockDocumentService),
		Trash:     new(serviceMocks.MockTrashService),
		Sharing:   new(serviceMocks.MockSharingService),
	})

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})
}
