package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rxtech-lab/playlist-launchpad/internal/api"
	"github.com/rxtech-lab/playlist-launchpad/internal/config"
	"github.com/rxtech-lab/playlist-launchpad/internal/server"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
	"github.com/sirupsen/logrus"
)

var (
	apiServer *api.APIServer
	initOnce  sync.Once
	initErr   error
)

// Handler is the main Vercel function handler. It serves the signing page and the playlist API;
// MCP itself runs from cmd/streamable-http.
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(func() {
		initErr = initializeAPIServer()
	})
	if initErr != nil {
		logrus.WithError(initErr).Error("Failed to initialize API server")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	adaptor.FiberApp(apiServer.GetFiberApp())(w, r)
}

func initializeAPIServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dbService, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	svc, err := server.InitializeServices(dbService.GetDB(), cfg, server.Options{})
	if err != nil {
		return err
	}
	server.RegisterHooks(svc.HookService, server.InitializeHooks(svc))

	apiServer = api.NewAPIServer(dbService, svc.TxService, svc.HookService, svc.ChainService, svc.DeploymentService, svc.PlaylistService)
	apiServer.SetSaveCents(cfg.SavePlaylistCents)
	apiServer.SetupRoutes()

	apiServer.GetFiberApp().Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Playlist Launchpad API",
			"status":  "running",
			"version": "1.0.0",
		})
	})

	return nil
}

func openDatabase(cfg *config.Config) (services.DBService, error) {
	if cfg.PostgresURL != "" {
		return services.NewPostgresDBService(cfg.PostgresURL)
	}
	dbPath, err := getDatabasePath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}
	return services.NewSqliteDBService(dbPath)
}

// getDatabasePath returns a writable SQLite path: /tmp on Vercel, the home directory elsewhere
func getDatabasePath() (string, error) {
	if os.Getenv("VERCEL") == "1" {
		return "/tmp/playlist-launchpad.db", nil
	}

	homePath, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homePath, "playlist-launchpad.db"), nil
}
