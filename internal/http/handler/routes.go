package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"sgxfeed/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, ingest service.IngestionService, catalog service.CatalogService) {
	app.Get("/", StatusRoot())
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/runs", TriggerRun(ingest))

	app.Get("/files", ListFiles(catalog))
	app.Get("/files/:name/versions", ListVersions(catalog))
	app.Get("/files/:name/versions/current", CurrentVersion(catalog))
	app.Get("/files/:name/versions/:version/download", DownloadVersion(catalog))

	app.Get("/objects", ListObjects(catalog))
}
