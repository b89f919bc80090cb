package handlers

import (
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/imagevault/backend/internal/middleware"
	"github.com/imagevault/backend/internal/models"
	"github.com/imagevault/backend/internal/services"
	"github.com/imagevault/backend/pkg/logger"
	"github.com/imagevault/backend/pkg/utils"
)

type ImagesHandler struct {
	Images        *services.ImageService
	Audit         *services.AuditService
	UploadsPrefix string
}

func NewImagesHandler(images *services.ImageService, audit *services.AuditService, uploadsPrefix string) *ImagesHandler {
	if uploadsPrefix == "" {
		uploadsPrefix = "/uploads"
	}
	return &ImagesHandler{
		Images:        images,
		Audit:         audit,
		UploadsPrefix: strings.TrimRight(uploadsPrefix, "/"),
	}
}

func (h *ImagesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Authentication required")
	}

	folderID, err := parseOptionalUUID(c.Query("folderId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid folder id")
	}

	images, err := h.Images.List(c.UserContext(), currentUser.ID, services.ListImagesInput{
		FolderID: folderID,
		Search:   c.Query("search"),
	})
	if err != nil {
		return respondError(c, "image_list_failed", err)
	}

	for i := range images {
		h.withURL(&images[i])
	}
	return utils.Success(c, fiber.StatusOK, images)
}

func (h *ImagesHandler) Suggestions(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Authentication required")
	}

	suggestions, err := h.Images.Suggest(c.UserContext(), currentUser.ID, c.Query("q"))
	if err != nil {
		return respondError(c, "image_suggestions_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, suggestions)
}

func (h *ImagesHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Authentication required")
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "No image file provided")
	}

	folderID, err := parseOptionalUUID(c.FormValue("folderId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid folder id")
	}

	originalName := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(originalName)))
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed opening uploaded file")
	}
	defer stream.Close()

	image, err := h.Images.Upload(c.UserContext(), currentUser.ID, services.UploadImageInput{
		Name:         c.FormValue("name"),
		OriginalName: originalName,
		MimeType:     contentType,
		Size:         fileHeader.Size,
		Content:      stream,
		FolderID:     folderID,
		Description:  c.FormValue("description"),
		TagsText:     c.FormValue("tags"),
	})
	if err != nil {
		return respondError(c, "image_upload_failed", err)
	}

	auditDetails := map[string]interface{}{
		"name":      image.Name,
		"filename":  image.Filename,
		"size":      image.Size,
		"mime_type": image.MimeType,
	}
	if image.FolderID != nil {
		auditDetails["folder_id"] = image.FolderID.String()
	}
	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       services.AuditImageUpload,
		ResourceType: "image",
		ResourceID:   &image.ID,
		Details:      auditDetails,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	h.withURL(image)
	return utils.Success(c, fiber.StatusCreated, image)
}

func (h *ImagesHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Authentication required")
	}

	imageID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Image not found")
	}

	image, err := h.Images.Get(c.UserContext(), currentUser.ID, imageID)
	if err != nil {
		return respondError(c, "image_get_failed", err)
	}

	h.withURL(image)
	return utils.Success(c, fiber.StatusOK, image)
}

func (h *ImagesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Authentication required")
	}

	imageID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Image not found")
	}

	image, err := h.Images.Delete(c.UserContext(), currentUser.ID, imageID)
	if err != nil {
		return respondError(c, "image_delete_failed", err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       services.AuditImageDelete,
		ResourceType: "image",
		ResourceID:   &image.ID,
		Details: map[string]interface{}{
			"name":     image.Name,
			"filename": image.Filename,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Message(c, fiber.StatusOK, "Image deleted successfully")
}

// Download sends the stored bytes with the original filename as the
// suggested save-as name.
func (h *ImagesHandler) Download(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Authentication required")
	}

	imageID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Image not found")
	}

	image, reader, info, err := h.Images.Open(c.UserContext(), currentUser.ID, imageID)
	if err != nil {
		return respondError(c, "image_download_failed", err)
	}

	logger.InfoWithUser(currentUser.ID.String(), "image_downloaded", map[string]interface{}{
		"image_id": image.ID.String(),
		"filename": image.Filename,
		"size":     info.Size,
	})

	c.Set(fiber.HeaderContentType, info.ContentType)
	c.Set(fiber.HeaderContentDisposition, contentDisposition("attachment", image.OriginalName))
	return c.SendStream(reader, int(info.Size))
}

// ServeUpload serves stored bytes by generated filename under the public
// uploads prefix.
func (h *ImagesHandler) ServeUpload(c *fiber.Ctx) error {
	filename := strings.TrimSpace(c.Params("filename"))
	if filename == "" {
		return utils.Error(c, fiber.StatusNotFound, "File not found")
	}

	image, reader, info, err := h.Images.OpenByFilename(c.UserContext(), filename)
	if err != nil {
		return respondError(c, "upload_serve_failed", err)
	}

	c.Set(fiber.HeaderContentType, info.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderContentSecurityPolicy, uploadsContentSecurityPolicy)
	if isScriptableImage(info.ContentType) {
		c.Set(fiber.HeaderContentDisposition, contentDisposition("attachment", image.OriginalName))
	}
	return c.SendStream(reader, int(info.Size))
}

// Uploaded bytes are untrusted. Opened directly they get no script, no
// subresources and an opaque origin.
const uploadsContentSecurityPolicy = "default-src 'none'; style-src 'unsafe-inline'; sandbox"

// isScriptableImage reports image types that can carry markup.
func isScriptableImage(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	return mediaType == "image/svg+xml"
}

func (h *ImagesHandler) withURL(image *models.Image) {
	image.URL = h.UploadsPrefix + "/" + image.Filename
}

func contentDisposition(kind, filename string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	return fmt.Sprintf("%s; filename=\"%s\"; filename*=UTF-8''%s", kind, fallback, url.PathEscape(filename))
}
