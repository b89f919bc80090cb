package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/imagevault/backend/internal/middleware"
	"github.com/imagevault/backend/internal/services"
	"github.com/imagevault/backend/pkg/utils"
)

type FoldersHandler struct {
	Folders *services.FolderService
	Audit   *services.AuditService
}

func NewFoldersHandler(folders *services.FolderService, audit *services.AuditService) *FoldersHandler {
	return &FoldersHandler{Folders: folders, Audit: audit}
}

type createFolderRequest struct {
	Name         string  `json:"name"`
	ParentFolder *string `json:"parentFolder"`
	Color        string  `json:"color"`
}

func (h *FoldersHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Authentication required")
	}

	folders, err := h.Folders.List(c.UserContext(), currentUser.ID)
	if err != nil {
		return respondError(c, "folder_list_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, folders)
}

func (h *FoldersHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Authentication required")
	}

	var req createFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	input := services.CreateFolderInput{Name: req.Name, Color: req.Color}
	if req.ParentFolder != nil {
		parentID, err := parseOptionalUUID(*req.ParentFolder)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "Invalid parent folder id")
		}
		input.ParentFolderID = parentID
	}

	folder, err := h.Folders.Create(c.UserContext(), currentUser.ID, input)
	if err != nil {
		return respondError(c, "folder_create_failed", err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       services.AuditFolderCreate,
		ResourceType: "folder",
		ResourceID:   &folder.ID,
		Details: map[string]interface{}{
			"name": folder.Name,
			"path": folder.Path,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, folder)
}

func (h *FoldersHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Authentication required")
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Folder not found")
	}

	folder, err := h.Folders.Delete(c.UserContext(), currentUser.ID, folderID)
	if err != nil {
		return respondError(c, "folder_delete_failed", err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       services.AuditFolderDelete,
		ResourceType: "folder",
		ResourceID:   &folder.ID,
		Details: map[string]interface{}{
			"name": folder.Name,
			"path": folder.Path,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Message(c, fiber.StatusOK, "Folder deleted successfully")
}

func (h *FoldersHandler) Tree(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Authentication required")
	}

	tree, err := h.Folders.Tree(c.UserContext(), currentUser.ID)
	if err != nil {
		return respondError(c, "folder_tree_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, tree)
}

func (h *FoldersHandler) Breadcrumb(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Authentication required")
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Folder not found")
	}

	crumbs, err := h.Folders.Breadcrumb(c.UserContext(), currentUser.ID, folderID)
	if err != nil {
		return respondError(c, "folder_breadcrumb_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, crumbs)
}
