package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/imagevault/backend/internal/models"
	"github.com/imagevault/backend/internal/storage"
	"github.com/imagevault/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	DefaultMaxUploadBytes = 10 * 1024 * 1024
	MaxSuggestions        = 5
)

type ImageService struct {
	DB             *gorm.DB
	Store          storage.BlobStore
	Suggestions    *SuggestionCache
	MaxUploadBytes int64
}

func NewImageService(db *gorm.DB, store storage.BlobStore, suggestions *SuggestionCache, maxUploadBytes int64) *ImageService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &ImageService{
		DB:             db,
		Store:          store,
		Suggestions:    suggestions,
		MaxUploadBytes: maxUploadBytes,
	}
}

type ListImagesInput struct {
	FolderID *uuid.UUID
	Search   string
}

type UploadImageInput struct {
	Name         string
	OriginalName string
	MimeType     string
	Size         int64
	Content      io.Reader
	FolderID     *uuid.UUID
	Description  string
	TagsText     string
}

// List returns the owner's images, newest first. FolderID restricts to that
// exact folder; Search applies the store's text matching over name,
// description and tags.
func (s *ImageService) List(ctx context.Context, ownerID uuid.UUID, in ListImagesInput) ([]models.Image, error) {
	query := s.DB.WithContext(ctx).
		Preload("Folder").
		Where("owner_id = ?", ownerID)

	if in.FolderID != nil {
		query = query.Where("folder_id = ?", *in.FolderID)
	}

	if search := strings.TrimSpace(in.Search); search != "" {
		query = s.applySearch(query, search)
	}

	images := make([]models.Image, 0)
	if err := query.Order("created_at DESC").Find(&images).Error; err != nil {
		return nil, &ServerError{Message: "Failed loading images", Cause: err}
	}
	return images, nil
}

func (s *ImageService) Get(ctx context.Context, ownerID, imageID uuid.UUID) (*models.Image, error) {
	var image models.Image
	err := s.DB.WithContext(ctx).Preload("Folder").First(&image, "id = ? AND owner_id = ?", imageID, ownerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "Image not found"}
		}
		return nil, &ServerError{Message: "Failed loading image", Cause: err}
	}
	return &image, nil
}

// Suggest returns up to MaxSuggestions images for autocomplete. Name-prefix
// matches come first, then substring matches on name or tags.
func (s *ImageService) Suggest(ctx context.Context, ownerID uuid.UUID, prefixText string) ([]models.Suggestion, error) {
	prefix := strings.ToLower(strings.TrimSpace(prefixText))
	if prefix == "" {
		return []models.Suggestion{}, nil
	}

	cached, cacheKey, ok := s.Suggestions.Get(ownerID, prefix)
	if ok {
		return cached, nil
	}

	pattern := escapeLike(prefix)

	var prefixMatches []models.Image
	if err := s.DB.WithContext(ctx).
		Select("id", "name", "filename").
		Where("owner_id = ?", ownerID).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern+"%").
		Order("name ASC").
		Limit(MaxSuggestions).
		Find(&prefixMatches).Error; err != nil {
		return nil, &ServerError{Message: "Failed loading suggestions", Cause: err}
	}

	matches := prefixMatches
	if remaining := MaxSuggestions - len(matches); remaining > 0 {
		query := s.DB.WithContext(ctx).
			Select("id", "name", "filename").
			Where("owner_id = ?", ownerID).
			Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(tags) LIKE ? ESCAPE '\')`, "%"+pattern+"%", "%"+pattern+"%")
		if len(prefixMatches) > 0 {
			ids := make([]uuid.UUID, len(prefixMatches))
			for i, m := range prefixMatches {
				ids[i] = m.ID
			}
			query = query.Where("id NOT IN ?", ids)
		}

		var containsMatches []models.Image
		if err := query.Order("name ASC").Limit(remaining).Find(&containsMatches).Error; err != nil {
			return nil, &ServerError{Message: "Failed loading suggestions", Cause: err}
		}
		matches = append(matches, containsMatches...)
	}

	suggestions := make([]models.Suggestion, 0, len(matches))
	for _, m := range matches {
		suggestions = append(suggestions, models.Suggestion{ID: m.ID, Name: m.Name, Filename: m.Filename})
	}

	s.Suggestions.Set(cacheKey, suggestions)
	return suggestions, nil
}

// Upload stores the file and then writes its record. The record is only
// written after the file is durable, so a crash in between can leave an
// orphaned file but never a record without a file. Every failure after the
// write deletes the file again.
func (s *ImageService) Upload(ctx context.Context, ownerID uuid.UUID, in UploadImageInput) (*models.Image, error) {
	name := strings.TrimSpace(in.Name)
	mimeType := strings.ToLower(strings.TrimSpace(in.MimeType))

	if err := validation.Validate(mimeType,
		validation.Required.Error("Only image files are allowed"),
		validation.By(requireImageMimeType),
	); err != nil {
		imageUploadsTotal.WithLabelValues("rejected").Inc()
		return nil, &ValidationError{Message: err.Error()}
	}
	if in.Size > s.MaxUploadBytes {
		imageUploadsTotal.WithLabelValues("rejected").Inc()
		return nil, s.oversizeError()
	}
	if err := validation.Validate(name,
		validation.Required.Error("Image name is required"),
		validation.RuneLength(1, 255).Error("Image name must be at most 255 characters"),
	); err != nil {
		imageUploadsTotal.WithLabelValues("rejected").Inc()
		return nil, &ValidationError{Message: err.Error()}
	}
	if in.Content == nil {
		imageUploadsTotal.WithLabelValues("rejected").Inc()
		return nil, &ValidationError{Message: "No image file provided"}
	}

	objectName := storage.GenerateObjectName(in.OriginalName)
	written, err := s.Store.Save(ctx, objectName, io.LimitReader(in.Content, s.MaxUploadBytes+1), in.Size, mimeType)
	if err != nil {
		imageUploadsTotal.WithLabelValues("failed").Inc()
		return nil, &ServerError{Message: "Failed storing image", Cause: err}
	}
	if written > s.MaxUploadBytes {
		s.discard(ctx, ownerID, objectName, "oversize")
		imageUploadsTotal.WithLabelValues("rejected").Inc()
		return nil, s.oversizeError()
	}

	image := models.Image{
		Name:         name,
		Filename:     objectName,
		OriginalName: strings.TrimSpace(in.OriginalName),
		MimeType:     mimeType,
		Size:         written,
		FolderID:     in.FolderID,
		OwnerID:      ownerID,
		Tags:         ParseTags(in.TagsText),
		Description:  strings.TrimSpace(in.Description),
	}
	if image.OriginalName == "" {
		image.OriginalName = objectName
	}

	folder, err := s.createRecord(ctx, ownerID, &image)
	if err != nil {
		s.discard(ctx, ownerID, objectName, "record_create")
		if errors.Is(err, ErrNotFound) {
			imageUploadsTotal.WithLabelValues("rejected").Inc()
		} else {
			imageUploadsTotal.WithLabelValues("failed").Inc()
		}
		return nil, err
	}
	image.Folder = folder

	s.Suggestions.Invalidate(ownerID)
	imageUploadsTotal.WithLabelValues("accepted").Inc()
	uploadedBytesTotal.Add(float64(written))

	logger.InfoWithUser(ownerID.String(), "image_uploaded", map[string]interface{}{
		"image_id":  image.ID.String(),
		"filename":  image.Filename,
		"size":      image.Size,
		"mime_type": image.MimeType,
		"folder_id": image.FolderID,
	})

	return &image, nil
}

// createRecord checks the target folder and inserts the image in one
// transaction. On PostgreSQL the folder row is share-locked, so a concurrent
// folder delete either waits and then sees the image, or wins and makes the
// upload fail with not found.
func (s *ImageService) createRecord(ctx context.Context, ownerID uuid.UUID, image *models.Image) (*models.Folder, error) {
	var folder *models.Folder
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if image.FolderID != nil {
			var loaded models.Folder
			err := lockRow(tx, lockShare).First(&loaded, "id = ? AND owner_id = ?", *image.FolderID, ownerID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Message: "Folder not found"}
			}
			if err != nil {
				return &ServerError{Message: "Failed validating folder", Cause: err}
			}
			folder = &loaded
		}
		if err := tx.Omit("Folder").Create(image).Error; err != nil {
			return &ServerError{Message: "Failed saving image", Cause: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// Delete removes the stored file and the record. Both deletions are always
// attempted; any failure is reported as a server error.
func (s *ImageService) Delete(ctx context.Context, ownerID, imageID uuid.UUID) (*models.Image, error) {
	image, err := s.Get(ctx, ownerID, imageID)
	if err != nil {
		return nil, err
	}

	fileErr := s.deleteFile(ctx, ownerID, image)

	result := s.DB.WithContext(ctx).Delete(&models.Image{}, "id = ? AND owner_id = ?", image.ID, ownerID)
	recordErr := result.Error
	if recordErr != nil {
		recordErr = fmt.Errorf("delete record %s: %w", image.ID, recordErr)
	}

	s.Suggestions.Invalidate(ownerID)

	if fileErr != nil || recordErr != nil {
		joined := errors.Join(fileErr, recordErr)
		logger.ErrorWithUser(ownerID.String(), "image_delete_failed", joined, map[string]interface{}{
			"image_id":     image.ID.String(),
			"filename":     image.Filename,
			"file_deleted": fileErr == nil,
			"row_deleted":  recordErr == nil,
		})
		return nil, &ServerError{Message: "Failed deleting image", Cause: joined}
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Message: "Image not found"}
	}

	logger.InfoWithUser(ownerID.String(), "image_deleted", map[string]interface{}{
		"image_id": image.ID.String(),
		"filename": image.Filename,
	})

	return image, nil
}

// deleteFile removes the stored object. An object that is already gone is
// logged and treated as cleaned up.
func (s *ImageService) deleteFile(ctx context.Context, ownerID uuid.UUID, image *models.Image) error {
	exists, err := s.Store.Exists(ctx, image.Filename)
	if err == nil && !exists {
		logger.WarnWithUser(ownerID.String(), "image_file_missing", map[string]interface{}{
			"image_id": image.ID.String(),
			"filename": image.Filename,
		})
		return nil
	}
	if err := s.Store.Delete(ctx, image.Filename); err != nil {
		return fmt.Errorf("delete file %s: %w", image.Filename, err)
	}
	return nil
}

// Open streams the stored bytes of an owned image.
func (s *ImageService) Open(ctx context.Context, ownerID, imageID uuid.UUID) (*models.Image, io.ReadCloser, storage.ObjectInfo, error) {
	image, err := s.Get(ctx, ownerID, imageID)
	if err != nil {
		return nil, nil, storage.ObjectInfo{}, err
	}
	reader, info, err := s.openObject(ctx, image.Filename)
	if err != nil {
		return nil, nil, storage.ObjectInfo{}, err
	}
	if info.ContentType == "" {
		info.ContentType = image.MimeType
	}
	return image, reader, info, nil
}

// OpenByFilename serves the public uploads prefix. Only filenames that belong
// to an image record are served.
func (s *ImageService) OpenByFilename(ctx context.Context, filename string) (*models.Image, io.ReadCloser, storage.ObjectInfo, error) {
	var image models.Image
	err := s.DB.WithContext(ctx).First(&image, "filename = ?", filename).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, storage.ObjectInfo{}, &NotFoundError{Message: "File not found"}
		}
		return nil, nil, storage.ObjectInfo{}, &ServerError{Message: "Failed loading file", Cause: err}
	}
	reader, info, err := s.openObject(ctx, image.Filename)
	if err != nil {
		return nil, nil, storage.ObjectInfo{}, err
	}
	if info.ContentType == "" {
		info.ContentType = image.MimeType
	}
	return &image, reader, info, nil
}

func (s *ImageService) openObject(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error) {
	reader, info, err := s.Store.Open(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidName) {
			return nil, storage.ObjectInfo{}, &NotFoundError{Message: "File not found"}
		}
		return nil, storage.ObjectInfo{}, &ServerError{Message: "Failed reading file", Cause: err}
	}
	return reader, info, nil
}

func (s *ImageService) applySearch(query *gorm.DB, search string) *gorm.DB {
	if s.DB.Dialector.Name() == "postgres" {
		return query.Where(`to_tsvector('simple',
			coalesce(name, '') || ' ' || coalesce(description, '') || ' ' || coalesce(tags, ''))
			@@ plainto_tsquery('simple', ?)`, search)
	}

	terms := strings.Fields(strings.ToLower(search))
	clauses := make([]string, 0, len(terms))
	args := make([]interface{}, 0, len(terms)*3)
	for _, term := range terms {
		pattern := "%" + escapeLike(term) + "%"
		clauses = append(clauses, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(tags) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	return query.Where("("+strings.Join(clauses, " OR ")+")", args...)
}

func (s *ImageService) discard(ctx context.Context, ownerID uuid.UUID, objectName, reason string) {
	// The request context may already be cancelled; cleanup must still run.
	cleanupCtx := context.WithoutCancel(ctx)
	if err := s.Store.Delete(cleanupCtx, objectName); err != nil {
		orphanCleanupsTotal.WithLabelValues("failed").Inc()
		logger.ErrorWithUser(ownerID.String(), "orphan_file_cleanup_failed", err, map[string]interface{}{
			"filename": objectName,
			"reason":   reason,
		})
		return
	}
	orphanCleanupsTotal.WithLabelValues("removed").Inc()
	logger.WarnWithUser(ownerID.String(), "orphan_file_removed", map[string]interface{}{
		"filename": objectName,
		"reason":   reason,
	})
}

func (s *ImageService) oversizeError() error {
	return &ValidationError{Message: fmt.Sprintf("Image exceeds the %s size limit", humanize.IBytes(uint64(s.MaxUploadBytes)))}
}

// ParseTags splits a comma-separated list, trims every entry and drops
// empty ones. Order is kept and repeats are removed.
func ParseTags(text string) []string {
	tags := make([]string, 0)
	seen := make(map[string]bool)
	for _, part := range strings.Split(text, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

func requireImageMimeType(value interface{}) error {
	mimeType, _ := value.(string)
	if mimeType != "" && !strings.HasPrefix(mimeType, "image/") {
		return errors.New("Only image files are allowed")
	}
	return nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
