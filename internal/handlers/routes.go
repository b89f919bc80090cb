package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/imagevault/backend/internal/middleware"
)

type Router struct {
	Auth           *AuthHandler
	Folders        *FoldersHandler
	Images         *ImagesHandler
	Activity       *ActivityHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func (r *Router) Register(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", middleware.MetricsHandler())

	app.Get(r.Images.UploadsPrefix+"/:filename", r.Images.ServeUpload)

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", r.Auth.Register)
	authRoutes.Post("/login", r.Auth.Login)
	authRoutes.Get("/me", r.AuthMiddleware.RequireAuth, r.Auth.Me)

	folderRoutes := api.Group("/folders", r.AuthMiddleware.RequireAuth)
	folderRoutes.Get("/", r.Folders.List)
	folderRoutes.Post("/", r.Folders.Create)
	folderRoutes.Get("/tree", r.Folders.Tree)
	folderRoutes.Get("/:id/breadcrumb", r.Folders.Breadcrumb)
	folderRoutes.Delete("/:id", r.Folders.Delete)

	imageRoutes := api.Group("/images", r.AuthMiddleware.RequireAuth)
	imageRoutes.Get("/", r.Images.List)
	imageRoutes.Get("/suggestions", r.Images.Suggestions)
	imageRoutes.Post("/upload", r.Images.Upload)
	imageRoutes.Get("/:id/download", r.Images.Download)
	imageRoutes.Get("/:id", r.Images.Get)
	imageRoutes.Delete("/:id", r.Images.Delete)

	api.Get("/activity", r.AuthMiddleware.RequireAuth, r.Activity.List)
}
