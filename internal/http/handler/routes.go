package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"uploadq/internal/service"
)

// RegisterRoutes attaches the receiver routes to app.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.UploadService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/upload", ReceiveUpload(svc))

	app.Get("/uploads", ListUploads(svc))
	app.Get("/uploads/:id", GetUpload(svc))
	app.Get("/uploads/:id/content", DownloadUpload(svc))
	app.Delete("/uploads/:id", DeleteUpload(svc))
}
