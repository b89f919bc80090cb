package services

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/imagevault/backend/internal/database"
	"github.com/imagevault/backend/internal/models"
	"github.com/imagevault/backend/internal/storage"
	"github.com/imagevault/backend/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var loggerOnce sync.Once

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	loggerOnce.Do(func() {
		logger.InitWithWriter(io.Discard, "error")
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, username string) uuid.UUID {
	t.Helper()
	user := models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

type imageFixture struct {
	db      *gorm.DB
	dir     string
	store   *storage.LocalStore
	folders *FolderService
	images  *ImageService
	ownerID uuid.UUID
}

func newImageFixture(t *testing.T) *imageFixture {
	t.Helper()
	db := newTestDB(t)
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	return &imageFixture{
		db:      db,
		dir:     dir,
		store:   store,
		folders: NewFolderService(db),
		images:  NewImageService(db, store, NewSuggestionCache(32, time.Minute), 64),
		ownerID: newTestUser(t, db, "owner"),
	}
}

func (f *imageFixture) fileCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	return len(entries)
}

func (f *imageFixture) imageCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.Image{}).Count(&count).Error)
	return count
}

func bg() context.Context {
	return context.Background()
}
