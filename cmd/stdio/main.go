package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rxtech-lab/playlist-launchpad/internal/api"
	"github.com/rxtech-lab/playlist-launchpad/internal/config"
	"github.com/rxtech-lab/playlist-launchpad/internal/mcp"
	"github.com/rxtech-lab/playlist-launchpad/internal/server"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
	"github.com/sirupsen/logrus"
)

// Build information (set via ldflags)
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

func configureAndStartServer(dbService services.DBService, cfg *config.Config, opts server.Options, port int) (*api.APIServer, *server.Services, int, error) {
	// Initialize services and hooks
	svc, err := server.InitializeServices(dbService.GetDB(), cfg, opts)
	if err != nil {
		return nil, nil, 0, err
	}
	server.RegisterHooks(svc.HookService, server.InitializeHooks(svc))

	// Initialize API server (HTTP server for transaction signing) - NO AUTHENTICATION
	apiServer := api.NewAPIServer(dbService, svc.TxService, svc.HookService, svc.ChainService, svc.DeploymentService, svc.PlaylistService)
	apiServer.SetSaveCents(svc.Config.SavePlaylistCents)
	apiServer.SetupRoutes()

	// Start API server first to get the actual port
	var portPtr *int
	if port != 0 {
		portPtr = &port
	}
	startedPort, err := apiServer.Start(portPtr)
	if err != nil {
		return nil, nil, 0, err
	}

	// The signing URL handed out by the tools points at the port actually in use
	mcpServer, err := mcp.NewMCPServer(svc, startedPort)
	if err != nil {
		_ = apiServer.Shutdown()
		return nil, nil, 0, err
	}
	apiServer.SetMCPServer(mcpServer)

	return apiServer, svc, startedPort, nil
}

func main() {
	// Command line flags
	var showVersion = flag.Bool("version", false, "Show version information")
	var showHelp = flag.Bool("help", false, "Show help information")
	var enableLog = flag.Bool("log", false, "Enable logging output")
	flag.Parse()

	// stdout carries the MCP protocol, so logs go to stderr and only when asked for
	logrus.SetOutput(os.Stderr)
	if !*enableLog {
		logrus.SetOutput(io.Discard)
	}

	if *showVersion {
		fmt.Fprintf(os.Stderr, "Playlist Launchpad MCP Server\n")
		fmt.Fprintf(os.Stderr, "Version: %s\n", Version)
		fmt.Fprintf(os.Stderr, "Commit: %s\n", CommitHash)
		fmt.Fprintf(os.Stderr, "Built: %s\n", BuildTime)
		return
	}

	if *showHelp {
		fmt.Fprintf(os.Stderr, "Playlist Launchpad MCP Server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fmt.Fprintf(os.Stderr, "  --version    Show version information\n")
		fmt.Fprintf(os.Stderr, "  --help       Show this help message\n")
		fmt.Fprintf(os.Stderr, "  --log        Enable logging output\n\n")
		fmt.Fprintf(os.Stderr, "Description:\n")
		fmt.Fprintf(os.Stderr, "  Saves playlists as contracts on Base through a browser wallet.\n")
		fmt.Fprintf(os.Stderr, "  Provides 7 MCP tools for chain selection, payment quotes and playlist deployment.\n\n")
		fmt.Fprintf(os.Stderr, "Database: ~/playlist-launchpad.db (SQLite), or DATABASE_PATH\n")
		fmt.Fprintf(os.Stderr, "Web Interface: http://localhost:[random-port]\n")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}

	dbPath := cfg.DatabasePath
	if dbPath == "" {
		homePath, err := os.UserHomeDir()
		if err != nil {
			logrus.Fatal("Failed to get home directory: ", err)
		}
		dbPath = filepath.Join(homePath, "playlist-launchpad.db")
	}

	dbService, err := services.NewSqliteDBService(dbPath)
	if err != nil {
		logrus.Fatal("Failed to initialize database: ", err)
	}
	defer dbService.Close()

	apiServer, svc, port, err := configureAndStartServer(dbService, cfg, server.Options{}, 0) // 0 for random port
	if err != nil {
		logrus.Fatal("Failed to start API server: ", err)
	}
	logrus.WithField("port", port).Info("API server started")

	refresher, err := server.NewQuoteRefresher(svc)
	if err != nil {
		logrus.Fatal("Failed to create quote refresher: ", err)
	}
	refresher.Start()
	defer refresher.Stop()

	mcpServer := apiServer.GetMCPServer()
	if mcpServer == nil {
		logrus.Fatal("MCP server not found")
	}

	go func() {
		if err := mcpServer.StartStdioServer(); err != nil {
			logrus.SetOutput(os.Stderr)
			logrus.Fatal("Failed to start MCP server: ", err)
		}
	}()

	// Set up graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logrus.Info("Shutting down servers...")

	if err := apiServer.Shutdown(); err != nil {
		logrus.WithError(err).Error("Error shutting down API server")
	}
	svc.DeploymentService.Wait()

	logrus.Info("Servers shut down successfully")
}
