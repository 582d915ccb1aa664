package api

import (
	"fmt"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/rxtech-lab/playlist-launchpad/internal/api/middleware"
	"github.com/rxtech-lab/playlist-launchpad/internal/assets"
	"github.com/rxtech-lab/playlist-launchpad/internal/constants"
	"github.com/rxtech-lab/playlist-launchpad/internal/mcp"
	"github.com/rxtech-lab/playlist-launchpad/internal/metrics"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
	"github.com/rxtech-lab/playlist-launchpad/internal/utils"
	"github.com/sirupsen/logrus"
)

type APIServer struct {
	app               *fiber.App
	dbService         services.DBService
	txService         services.TransactionService
	hookService       services.HookService
	chainService      services.ChainService
	deploymentService services.PlaylistDeploymentService
	playlistService   services.PlaylistService
	mcpServer         *mcp.MCPServer
	saveCents         uint64
	routesReady       bool
	port              int
}

// AuthOptions configures bearer authentication of the /mcp endpoint
type AuthOptions struct {
	JwksURI             string
	ResourceID          string
	AuthorizationServer string
	// BaseURL is the public URL of this server, used as the protected resource identifier
	BaseURL string
}

func NewAPIServer(
	dbService services.DBService,
	txService services.TransactionService,
	hookService services.HookService,
	chainService services.ChainService,
	deploymentService services.PlaylistDeploymentService,
	playlistService services.PlaylistService,
) *APIServer {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
		Output:     logrus.StandardLogger().Writer(),
	}))

	return &APIServer{
		app:               app,
		dbService:         dbService,
		txService:         txService,
		hookService:       hookService,
		chainService:      chainService,
		deploymentService: deploymentService,
		playlistService:   playlistService,
		saveCents:         constants.SavePlaylistCents,
	}
}

// SetSaveCents changes the default cost quoted by /api/payment/required
func (s *APIServer) SetSaveCents(cents uint64) {
	s.saveCents = cents
}

func (s *APIServer) SetupRoutes() {
	if s.routesReady {
		return
	}
	s.routesReady = true

	// Transaction signing
	s.app.Get("/tx/:session_id", s.handleTransactionPage)
	s.app.Get("/api/tx/:session_id", s.handleTransactionAPI)
	s.app.Post("/api/tx/:session_id/transaction/:index", s.handleTransactionStatus)

	s.app.Get("/static/tx/signing.js", s.handleSigningAppJS)

	// Playlist reads
	s.app.Get("/api/playlists", s.handleListPlaylists)
	s.app.Get("/api/playlists/:address", s.handleGetPlaylist)
	s.app.Get("/api/deployments/:attempt_id", s.handleGetDeployment)
	s.app.Get("/api/payment/required", s.handleRequiredPayment)

	s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	s.app.Get("/health", s.handleHealth)
}

// EnableStreamableHttp mounts the MCP server at /mcp behind bearer authentication.
// SetMCPServer must be called first.
func (s *APIServer) EnableStreamableHttp(auth AuthOptions) {
	s.SetupRoutes()

	authConfig := middleware.AuthConfig{
		ResourceID:    auth.ResourceID,
		SkipWellKnown: true,
	}
	if auth.BaseURL != "" {
		authConfig.ResourceMetadataURL = strings.TrimSuffix(auth.BaseURL, "/") + "/.well-known/oauth-protected-resource"
	}
	if auth.JwksURI != "" {
		authConfig.JWTAuthenticator = utils.NewJwtAuthenticator(auth.JwksURI)
	} else {
		logrus.Warn("JWKS_URI is not set, every request to /mcp will be rejected")
	}

	s.app.Get("/.well-known/oauth-protected-resource", func(c *fiber.Ctx) error {
		return s.handleOAuthProtectedResource(c, auth)
	})

	handler := adaptor.HTTPHandler(s.mcpServer.StreamableHTTPHandler())
	s.app.All("/mcp", middleware.AuthMiddleware(authConfig), handler)
	s.app.All("/mcp/*", middleware.AuthMiddleware(authConfig), handler)
}

// Start listens on port, or on a random free port when port is nil, and returns the port in use
func (s *APIServer) Start(port *int) (int, error) {
	s.SetupRoutes()

	address := ":0"
	if port != nil {
		address = fmt.Sprintf(":%d", *port)
	}
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return 0, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.port = listener.Addr().(*net.TCPAddr).Port

	go func() {
		if err := s.app.Listener(listener); err != nil {
			logrus.WithError(err).Error("API server stopped")
		}
	}()

	return s.port, nil
}

func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}

func (s *APIServer) GetPort() int {
	return s.port
}

// GetFiberApp exposes the fiber app for serverless handlers and tests
func (s *APIServer) GetFiberApp() *fiber.App {
	return s.app
}

// SetMCPServer sets the MCP server instance for accessing MCP methods
func (s *APIServer) SetMCPServer(mcpServer *mcp.MCPServer) {
	s.mcpServer = mcpServer
}

// GetMCPServer returns the MCP server instance
func (s *APIServer) GetMCPServer() *mcp.MCPServer {
	return s.mcpServer
}

func (s *APIServer) handleHealth(c *fiber.Ctx) error {
	if s.dbService != nil {
		sqlDB, err := s.dbService.GetDB().DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *APIServer) handleOAuthProtectedResource(c *fiber.Ctx, auth AuthOptions) error {
	authorizationServers := []string{}
	if auth.AuthorizationServer != "" {
		authorizationServers = append(authorizationServers, auth.AuthorizationServer)
	}
	resource := auth.BaseURL
	if resource == "" {
		resource = c.BaseURL()
	}

	return c.JSON(fiber.Map{
		"authorization_servers":    authorizationServers,
		"bearer_methods_supported": []string{"header"},
		"resource":                 resource,
		"scopes_supported":         []string{},
	})
}

// handleSigningAppJS serves the embedded signing script
func (s *APIServer) handleSigningAppJS(c *fiber.Ctx) error {
	c.Set("Content-Type", "application/javascript")
	return c.Send(assets.SigningJS)
}
