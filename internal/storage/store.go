package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidName    = errors.New("invalid object name")
)

// BlobStore holds image bytes keyed by generated object name.
type BlobStore interface {
	Save(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes the object. Deleting an absent object is not an error.
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

type ObjectInfo struct {
	Size        int64
	ContentType string
}

var extensionPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// GenerateObjectName returns a collision-resistant name that keeps only the
// extension of the client's filename.
func GenerateObjectName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(strings.TrimSpace(originalName))))
	if !extensionPattern.MatchString(ext) {
		ext = ""
	}
	return uuid.New().String() + ext
}

func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return ErrInvalidName
	}
	return nil
}
