package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/imagevault/backend/internal/models"
	"github.com/imagevault/backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type FolderService struct {
	DB *gorm.DB
}

func NewFolderService(db *gorm.DB) *FolderService {
	return &FolderService{DB: db}
}

type CreateFolderInput struct {
	Name           string
	ParentFolderID *uuid.UUID
	Color          string
}

// List returns every folder owned by ownerID, newest first, with the
// parent's name filled in.
func (s *FolderService) List(ctx context.Context, ownerID uuid.UUID) ([]models.Folder, error) {
	var folders []models.Folder
	if err := s.DB.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&folders).Error; err != nil {
		return nil, &ServerError{Message: "Failed loading folders", Cause: err}
	}

	names := make(map[uuid.UUID]string, len(folders))
	for _, f := range folders {
		names[f.ID] = f.Name
	}
	for i := range folders {
		if folders[i].ParentFolderID != nil {
			folders[i].ParentName = names[*folders[i].ParentFolderID]
		}
	}

	return folders, nil
}

func (s *FolderService) Get(ctx context.Context, ownerID, folderID uuid.UUID) (*models.Folder, error) {
	var folder models.Folder
	err := s.DB.WithContext(ctx).First(&folder, "id = ? AND owner_id = ?", folderID, ownerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "Folder not found"}
		}
		return nil, &ServerError{Message: "Failed loading folder", Cause: err}
	}
	return &folder, nil
}

func (s *FolderService) Create(ctx context.Context, ownerID uuid.UUID, in CreateFolderInput) (*models.Folder, error) {
	name := strings.TrimSpace(in.Name)
	if err := validation.Validate(name,
		validation.Required.Error("Folder name is required"),
		validation.RuneLength(1, 255).Error("Folder name must be at most 255 characters"),
	); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = models.DefaultFolderColor
	}
	if err := validation.Validate(color,
		validation.Match(hexColorPattern).Error("Folder color must be a hex value like #3b82f6"),
	); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	path := name
	var parent *models.Folder
	if in.ParentFolderID != nil {
		loaded, err := s.Get(ctx, ownerID, *in.ParentFolderID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, &NotFoundError{Message: "Parent folder not found"}
			}
			return nil, err
		}
		parent = loaded
		path = parent.Path + "/" + name
	}

	exists, err := s.siblingExists(ctx, ownerID, in.ParentFolderID, name)
	if err != nil {
		return nil, &ServerError{Message: "Failed checking folder name", Cause: err}
	}
	if exists {
		return nil, duplicateFolderError()
	}

	folder := models.Folder{
		Name:           name,
		ParentFolderID: in.ParentFolderID,
		OwnerID:        ownerID,
		Path:           path,
		Color:          color,
	}

	// The unique index is the source of truth; the pre-check above only
	// produces a friendlier path for the common case.
	if err := s.DB.WithContext(ctx).Create(&folder).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, duplicateFolderError()
		}
		return nil, &ServerError{Message: "Failed creating folder", Cause: err}
	}

	if parent != nil {
		folder.ParentName = parent.Name
	}

	logger.InfoWithUser(ownerID.String(), "folder_created", map[string]interface{}{
		"folder_id": folder.ID.String(),
		"path":      folder.Path,
	})

	return &folder, nil
}

// Delete removes a leaf folder. A folder is only deletable when no folder
// names it as parent and no image is filed in it.
func (s *FolderService) Delete(ctx context.Context, ownerID, folderID uuid.UUID) (*models.Folder, error) {
	folder, err := s.Get(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.Folder
		err := lockRow(tx, lockUpdate).First(&locked, "id = ? AND owner_id = ?", folder.ID, ownerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Message: "Folder not found"}
		}
		if err != nil {
			return &ServerError{Message: "Failed deleting folder", Cause: err}
		}

		var subfolders int64
		if err := tx.Model(&models.Folder{}).Where("parent_folder_id = ?", folder.ID).Count(&subfolders).Error; err != nil {
			return &ServerError{Message: "Failed checking subfolders", Cause: err}
		}
		if subfolders > 0 {
			return &ConflictError{Message: "Cannot delete folder with subfolders"}
		}

		var images int64
		if err := tx.Model(&models.Image{}).Where("folder_id = ?", folder.ID).Count(&images).Error; err != nil {
			return &ServerError{Message: "Failed checking folder contents", Cause: err}
		}
		if images > 0 {
			return &ConflictError{Message: "Cannot delete folder that contains images"}
		}

		result := tx.Delete(&models.Folder{}, "id = ? AND owner_id = ?", folder.ID, ownerID)
		if result.Error != nil {
			return &ServerError{Message: "Failed deleting folder", Cause: result.Error}
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Message: "Folder not found"}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoWithUser(ownerID.String(), "folder_deleted", map[string]interface{}{
		"folder_id": folder.ID.String(),
		"path":      folder.Path,
	})

	return folder, nil
}

func (s *FolderService) Tree(ctx context.Context, ownerID uuid.UUID) ([]*models.FolderNode, error) {
	folders, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return BuildFolderTree(folders), nil
}

func (s *FolderService) Breadcrumb(ctx context.Context, ownerID, folderID uuid.UUID) ([]models.Crumb, error) {
	folders, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	crumbs, ok := BuildBreadcrumb(folders, folderID)
	if !ok {
		return nil, &NotFoundError{Message: "Folder not found"}
	}
	return crumbs, nil
}

func (s *FolderService) siblingExists(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string) (bool, error) {
	query := s.DB.WithContext(ctx).Model(&models.Folder{}).Where("owner_id = ? AND name = ?", ownerID, name)
	if parentID == nil {
		query = query.Where("parent_folder_id IS NULL")
	} else {
		query = query.Where("parent_folder_id = ?", *parentID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func duplicateFolderError() error {
	return &ConflictError{Message: "Folder with this name already exists in this location"}
}

const (
	lockShare  = "SHARE"
	lockUpdate = "UPDATE"
)

// lockRow adds a row lock on PostgreSQL. SQLite serialises writers itself.
func lockRow(tx *gorm.DB, strength string) *gorm.DB {
	if tx.Dialector.Name() != "postgres" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: strength})
}
