package main

import (
	"fmt"
	"os"
	"time"

	"github.com/beladevo/redirector/config"
	"github.com/beladevo/redirector/database"
	"github.com/beladevo/redirector/logger"
	"github.com/beladevo/redirector/models/campaign"
	"github.com/beladevo/redirector/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg, err := config.Load(os.Getenv("REDIRECTOR_CONFIG"))
	if err != nil {
		logger.Error("Invalid configuration", err)
		fmt.Fprintln(os.Stderr, "Invalid configuration:", err)
		os.Exit(1)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		os.Exit(1)
	}

	if err := campaign.Ensure(db, cfg.Campaign); err != nil {
		logger.Error("Failed to register the active campaign", err)
		os.Exit(1)
	}

	redirectApp := fiber.New(fiber.Config{
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		BodyLimit:    50 * 1024 * 1024, // 50MB body limit
	})
	redirectApp.Use(cors.New())
	routes.SetupRedirectRoutes(redirectApp, db, cfg)

	dashboardApp := fiber.New(fiber.Config{
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
	})
	dashboardApp.Use(cors.New())
	routes.SetupDashboardRoutes(dashboardApp, db, cfg)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.RedirectPort)
		logger.Success("Redirect listener running on " + addr + " -> " + cfg.RedirectURL)
		if err := redirectApp.Listen(addr); err != nil {
			logger.Fatal("Redirect listener failed: " + err.Error())
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.DashboardPort)
	logger.Success("Dashboard listener running on " + addr + " (campaign: " + cfg.Campaign + ")")
	if err := dashboardApp.Listen(addr); err != nil {
		logger.Fatal("Dashboard listener failed: " + err.Error())
	}
}
