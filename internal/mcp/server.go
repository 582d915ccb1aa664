package mcp

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	launchpad "github.com/rxtech-lab/playlist-launchpad/internal/server"
	"github.com/rxtech-lab/playlist-launchpad/internal/tools"
	"github.com/rxtech-lab/playlist-launchpad/internal/utils"
	"github.com/sirupsen/logrus"
)

type MCPServer struct {
	server *server.MCPServer
}

// NewMCPServer registers the playlist tools. serverPort is the port of the API server that hosts
// the signing page.
func NewMCPServer(svc *launchpad.Services, serverPort int) (*MCPServer, error) {
	var deployerKey *ecdsa.PrivateKey
	if svc.Config.DeployerPrivateKey != "" {
		key, err := utils.ParsePrivateKey(svc.Config.DeployerPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid DEPLOYER_PRIVATE_KEY: %w", err)
		}
		deployerKey = key
		logrus.Info("headless deployments enabled, playlists are signed by the server key")
	}

	mcpServer := &MCPServer{}
	mcpServer.InitializeTools(svc, tools.DeployPlaylistOptions{
		BaseURL:     svc.Config.BaseURL,
		ServerPort:  serverPort,
		DeployerKey: deployerKey,
	})
	return mcpServer, nil
}

func (s *MCPServer) InitializeTools(svc *launchpad.Services, deployOptions tools.DeployPlaylistOptions) {
	srv := server.NewMCPServer(
		"Playlist Launchpad MCP Server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv.AddPrompt(mcp.NewPrompt("playlist-launchpad-usage",
		mcp.WithPromptDescription("Instructions and guidance for using playlist launchpad MCP tools"),
		mcp.WithArgument("tool_category",
			mcp.ArgumentDescription("Category of tools to get instructions for (chain, deployment, or all)"),
			mcp.RequiredArgument(),
		),
	), func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		category := request.Params.Arguments["tool_category"]
		if category == "" {
			return nil, fmt.Errorf("tool_category is required")
		}

		instructions := getToolInstructions(category)

		return mcp.NewGetPromptResult(
			fmt.Sprintf("Playlist Launchpad MCP Tools - %s", category),
			[]mcp.PromptMessage{
				mcp.NewPromptMessage(
					mcp.RoleUser,
					mcp.NewTextContent(instructions),
				),
			},
		), nil
	})

	// Chain Management Tools
	listChainsTool, listChainsHandler := tools.NewListChainsTool(svc.ChainService)
	srv.AddTool(listChainsTool, listChainsHandler)

	selectChainTool, selectChainHandler := tools.NewSelectChainTool(svc.ChainService)
	srv.AddTool(selectChainTool, selectChainHandler)

	// Deployment Tools
	getRequiredPaymentTool, getRequiredPaymentHandler := tools.NewGetRequiredPaymentTool(svc.ChainService, svc.DeploymentService, svc.Config.SavePlaylistCents)
	srv.AddTool(getRequiredPaymentTool, getRequiredPaymentHandler)

	deployPlaylistTool := tools.NewDeployPlaylistTool(
		svc.ChainService,
		svc.EvmService,
		svc.TxService,
		svc.AttemptService,
		svc.DeploymentService,
		svc.Backends,
		deployOptions,
	)
	srv.AddTool(deployPlaylistTool.GetTool(), deployPlaylistTool.GetHandler())

	getDeploymentStatusTool, getDeploymentStatusHandler := tools.NewGetDeploymentStatusTool(svc.DeploymentService, svc.PlaylistService)
	srv.AddTool(getDeploymentStatusTool, getDeploymentStatusHandler)

	confirmDeploymentTool, confirmDeploymentHandler := tools.NewConfirmDeploymentTool(svc.DeploymentService)
	srv.AddTool(confirmDeploymentTool, confirmDeploymentHandler)

	listPlaylistsTool, listPlaylistsHandler := tools.NewListPlaylistsTool(svc.PlaylistService)
	srv.AddTool(listPlaylistsTool, listPlaylistsHandler)

	s.server = srv
}

func getToolInstructions(category string) string {
	switch category {
	case "chain":
		return `Chain Management Tools:

1. list_chains - List the chains playlists can be deployed to
   Usage: See Base Sepolia (84532) and Base (8453) with their RPC and factory address

2. select_chain - Select the active chain, optionally with a custom RPC endpoint
   Usage: The RPC endpoint must report the same chain id before it is saved`

	case "deployment":
		return `Deployment Tools:

1. get_required_payment - Quote the save cost in the native currency
   Usage: Shows the amount the factory expects and whether it came from the price feed or the fallback

2. deploy_playlist - Prepare a playlist deployment and return a signing URL
   Usage: Provide name, owner_address and optionally cover_image_url, description and tags.
   The owner opens the URL, connects the wallet and signs the deployPlaylist transaction.

3. get_deployment_status - Follow a deployment attempt
   Usage: idle -> pending -> submitted -> confirmed -> decoding -> success, or failed / stalled

4. confirm_deployment - Check the receipt of a submitted or stalled attempt again
   Usage: Use when get_deployment_status reports stalled

5. list_playlists - List saved playlists by owner and chain`

	case "all":
		return `Playlist Launchpad MCP Tools Overview:

This MCP server provides 7 tools for saving playlists as contracts on Base:

CHAIN MANAGEMENT (2 tools):
- list_chains: Show supported chains
- select_chain: Switch the active chain

DEPLOYMENT (5 tools):
- get_required_payment: Quote the save cost
- deploy_playlist: Create a signing session for a playlist deployment
- get_deployment_status: Follow a deployment attempt
- confirm_deployment: Re-check a stalled deployment
- list_playlists: View saved playlists

Every retry of deploy_playlist draws a new salt, so a failed attempt never blocks the next one.
Signing happens in the browser wallet unless the server runs with a deployer key.`

	default:
		return `Invalid category. Available categories: chain, deployment, all`
	}
}

// StartStdioServer serves MCP over stdin/stdout
func (s *MCPServer) StartStdioServer() error {
	return server.ServeStdio(s.server)
}

// StreamableHTTPHandler serves MCP over the streamable HTTP transport
func (s *MCPServer) StreamableHTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.server)
}

// HandleMessage processes one raw JSON-RPC message
func (s *MCPServer) HandleMessage(ctx context.Context, message []byte) mcp.JSONRPCMessage {
	return s.server.HandleMessage(ctx, message)
}
