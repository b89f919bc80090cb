package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/imagevault/backend/internal/config"
	"github.com/imagevault/backend/internal/database"
	"github.com/imagevault/backend/internal/handlers"
	"github.com/imagevault/backend/internal/middleware"
	"github.com/imagevault/backend/internal/services"
	"github.com/imagevault/backend/internal/storage"
	"github.com/imagevault/backend/pkg/logger"
	"github.com/imagevault/backend/pkg/utils"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Log.Level)
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	blobStore, err := newBlobStore(cfg.Storage)
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}

	auditService := services.NewAuditService(db, cfg.Audit.QueueSize)
	folderService := services.NewFolderService(db)
	suggestionCache := services.NewSuggestionCache(cfg.Cache.SuggestionSize, cfg.Cache.SuggestionTTL)
	imageService := services.NewImageService(db, blobStore, suggestionCache, cfg.Upload.MaxBytes)

	router := &handlers.Router{
		Auth:           handlers.NewAuthHandler(db, auditService),
		Folders:        handlers.NewFoldersHandler(folderService, auditService),
		Images:         handlers.NewImagesHandler(imageService, auditService, cfg.Server.UploadsPrefix),
		Activity:       handlers.NewActivityHandler(auditService),
		AuthMiddleware: middleware.NewAuthMiddleware(db),
	}

	app := fiber.New(fiber.Config{BodyLimit: cfg.BodyLimit()})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.CORSOrigins))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())
	app.Use(middleware.Metrics())
	router.Register(app)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":           cfg.Server.Port,
		"address":        listenAddr,
		"db_driver":      cfg.DB.Driver,
		"storage_driver": cfg.Storage.Driver,
		"body_limit":     cfg.BodyLimit(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("server_stopping", map[string]interface{}{"signal": sig.String()})
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("server_shutdown_failed", err, nil)
		}
		auditService.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		logger.Info("server_stopped", nil)
	case err := <-errCh:
		if err != nil {
			auditService.Close()
			log.Fatalf("server error: %v", err)
		}
	}
}

func newBlobStore(cfg config.StorageConfig) (storage.BlobStore, error) {
	switch cfg.Driver {
	case config.StorageDriverMinIO:
		store, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed ensuring minio bucket: %w", err)
		}
		return store, nil
	case config.StorageDriverLocal, "":
		return storage.NewLocalStore(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
