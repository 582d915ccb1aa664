package main

import (
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file if present
	"github.com/rxtech-lab/playlist-launchpad/internal/api"
	"github.com/rxtech-lab/playlist-launchpad/internal/config"
	"github.com/rxtech-lab/playlist-launchpad/internal/mcp"
	"github.com/rxtech-lab/playlist-launchpad/internal/server"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
	"github.com/sirupsen/logrus"
)

func newDBService(cfg *config.Config) (services.DBService, error) {
	if cfg.PostgresURL != "" {
		return services.NewPostgresDBService(cfg.PostgresURL)
	}
	dbPath := cfg.DatabasePath
	if dbPath == "" {
		dbPath = "playlist-launchpad.db"
	}
	logrus.WithField("path", dbPath).Warn("POSTGRES_URL is not set, using SQLite")
	return services.NewSqliteDBService(dbPath)
}

func newServiceOptions(cfg *config.Config) (server.Options, error) {
	opts := server.Options{}
	if cfg.RedisURL == "" {
		return opts, nil
	}
	client, err := services.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return opts, err
	}
	opts.Cache = services.NewRedisQuoteCache(client, cfg.QuoteCacheTTL)
	logrus.Info("sharing payment quotes through redis")
	return opts, nil
}

func configureAndStartServer(dbService services.DBService, cfg *config.Config, opts server.Options, port int) (*api.APIServer, *server.Services, int, error) {
	svc, err := server.InitializeServices(dbService.GetDB(), cfg, opts)
	if err != nil {
		return nil, nil, 0, err
	}
	server.RegisterHooks(svc.HookService, server.InitializeHooks(svc))

	mcpServer, err := mcp.NewMCPServer(svc, port)
	if err != nil {
		return nil, nil, 0, err
	}

	apiServer := api.NewAPIServer(dbService, svc.TxService, svc.HookService, svc.ChainService, svc.DeploymentService, svc.PlaylistService)
	apiServer.SetSaveCents(cfg.SavePlaylistCents)
	apiServer.SetMCPServer(mcpServer)
	apiServer.EnableStreamableHttp(api.AuthOptions{
		JwksURI:             cfg.JwksURI,
		ResourceID:          cfg.ResourceID,
		AuthorizationServer: cfg.AuthorizationServer,
		BaseURL:             cfg.BaseURL,
	})

	var portPtr *int
	if port != 0 {
		portPtr = &port
	}
	startedPort, err := apiServer.Start(portPtr)
	if err != nil {
		return nil, nil, 0, err
	}
	return apiServer, svc, startedPort, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}

	dbService, err := newDBService(cfg)
	if err != nil {
		logrus.Fatal("Failed to initialize database service: ", err)
	}
	defer dbService.Close()

	opts, err := newServiceOptions(cfg)
	if err != nil {
		logrus.Fatal("Failed to connect to redis: ", err)
	}

	apiServer, svc, startedPort, err := configureAndStartServer(dbService, cfg, opts, cfg.Port)
	if err != nil {
		logrus.Fatal("Failed to start API server: ", err)
	}
	logrus.WithField("port", startedPort).Info("API server started")

	refresher, err := server.NewQuoteRefresher(svc)
	if err != nil {
		logrus.Fatal("Failed to create quote refresher: ", err)
	}
	refresher.Start()

	// Set up graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logrus.Info("Shutting down server...")

	refresher.Stop()
	if err := apiServer.Shutdown(); err != nil {
		logrus.WithError(err).Error("Error shutting down API server")
	}
	svc.DeploymentService.Wait()

	logrus.Info("Server shut down successfully")
}
