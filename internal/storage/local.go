package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/imagevault/backend/pkg/logger"
)

// LocalStore keeps objects as flat files in one directory.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed creating upload directory %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save streams into a staging file, fsyncs it and renames it into place, so
// a reader never observes a partially written object.
func (s *LocalStore) Save(_ context.Context, name string, reader io.Reader, _ int64, contentType string) (int64, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}

	finalPath := filepath.Join(s.dir, name)
	stagingPath := filepath.Join(s.dir, "."+name+"."+uuid.New().String()[:8]+".tmp")

	f, err := os.OpenFile(stagingPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return 0, fmt.Errorf("failed creating staging file: %w", err)
	}

	written, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(stagingPath)
		return 0, fmt.Errorf("failed writing object: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(stagingPath)
		return 0, fmt.Errorf("failed syncing object: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(stagingPath)
		return 0, fmt.Errorf("failed closing object: %w", err)
	}

	if err := os.Rename(stagingPath, finalPath); err != nil {
		os.Remove(stagingPath)
		return 0, fmt.Errorf("failed moving object into place: %w", err)
	}

	logger.Debug("local_store_save", map[string]interface{}{
		"object_name":  name,
		"size":         written,
		"content_type": contentType,
	})

	return written, nil
}

func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, ObjectInfo, error) {
	if err := validateName(name); err != nil {
		return nil, ObjectInfo{}, err
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, err
	}

	return f, ObjectInfo{
		Size:        stat.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
	}, nil
}

func (s *LocalStore) Delete(_ context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Error("local_store_delete_failed", err, map[string]interface{}{
			"object_name": name,
		})
		return err
	}
	return nil
}

func (s *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}

	_, err := os.Stat(filepath.Join(s.dir, name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
