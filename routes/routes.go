package routes

import (
	"github.com/beladevo/redirector/config"
	campaignController "github.com/beladevo/redirector/controllers/campaign"
	"github.com/beladevo/redirector/controllers/capture"
	logsController "github.com/beladevo/redirector/controllers/logs"
	"github.com/beladevo/redirector/middleware"
	"github.com/beladevo/redirector/services/logstore"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRedirectRoutes wires the capture listener: a health probe plus the
// catch-all capture-and-redirect handler.
func SetupRedirectRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	captureController := capture.NewCaptureController(logstore.New(db), cfg)

	// Registered before the catch-all so probes are not redirected.
	app.Get("/health", captureController.Health)
	app.All("/*", captureController.HandleAll)
}

// SetupDashboardRoutes wires the dashboard listener.
func SetupDashboardRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	store := logstore.New(db)
	logs := logsController.NewLogsController(store, cfg)
	campaigns := campaignController.NewCampaignController(db, store)

	auth := middleware.DashboardAuth(cfg)

	// The bare liveness probe stays reachable without credentials.
	app.Get("/health", healthHandler(db))

	app.Get("/", auth, dashboardHome)

	/*=============================================================================
	| API Routes
	===============================================================================*/
	api := app.Group("/api", auth)
	api.Get("/health", healthHandler(db))
	api.Get("/campaigns", campaigns.Index)
	api.Post("/campaigns", campaigns.Store)
	api.Get("/campaign-cards", campaigns.Cards)
	api.Get("/logs", logs.Index)
	api.Get("/logs/export.csv", logs.ExportCSV)
	api.Get("/logs/export.jsonl", logs.ExportJSONL)
	api.Get("/stats", logs.Stats)
}

// healthHandler reports ok only while the storage connection answers pings.
func healthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).
				JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

func dashboardHome(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(dashboardPage)
}
