package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/playlist-launchpad/internal/contracts"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
	"github.com/rxtech-lab/playlist-launchpad/internal/utils"
)

const rpcProbeTimeout = 10 * time.Second

func NewSelectChainTool(chainService services.ChainService) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("select_chain",
		mcp.WithDescription("Select the chain playlists are deployed to. Optionally replace its RPC endpoint; the endpoint is checked to serve the same chain id before it is saved."),
		mcp.WithString("chain_id",
			mcp.Required(),
			mcp.Description("The chain id to select (84532 for Base Sepolia, 8453 for Base)"),
		),
		mcp.WithString("rpc",
			mcp.Description("Optional RPC endpoint URL to use for this chain"),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		chainIDStr, err := request.RequireString("chain_id")
		if err != nil {
			return nil, fmt.Errorf("chain_id parameter is required: %w", err)
		}
		chainID, err := strconv.ParseUint(chainIDStr, 10, 64)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid chain_id: %v", err)), nil
		}
		if !contracts.IsSupportedChain(chainID) {
			_, err := contracts.GetContractAddresses(chainID)
			return mcp.NewToolResultError(err.Error()), nil
		}

		if _, err := chainService.GetChainByNetworkID(chainID); err != nil {
			if errors.Is(err, services.ErrChainNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Chain %d is not configured. Use list_chains to see the available chains", chainID)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Error loading chain: %v", err)), nil
		}

		if rpc := request.GetString("rpc", ""); rpc != "" {
			probeCtx, cancel := context.WithTimeout(ctx, rpcProbeTimeout)
			defer cancel()
			client := utils.NewRPCClient(rpc)
			client.SetTimeout(rpcProbeTimeout)
			served, err := client.ChainID(probeCtx)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Could not reach RPC endpoint: %v", err)), nil
			}
			if served != chainID {
				return mcp.NewToolResultError(fmt.Sprintf("RPC endpoint serves chain %d, expected %d", served, chainID)), nil
			}
			if err := chainService.UpdateChainRPC(chainID, rpc); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Error updating chain RPC: %v", err)), nil
			}
		}

		if err := chainService.SetActiveChainByNetworkID(chainID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error setting active chain: %v", err)), nil
		}
		activeChain, err := chainService.GetActiveChain()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error getting active chain: %v", err)), nil
		}

		result := chainSummary(*activeChain)
		result["message"] = fmt.Sprintf("Successfully selected %s (chain id %s)", activeChain.Name, activeChain.NetworkID)

		resultJSON, _ := json.Marshal(result)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(string(resultJSON)),
			},
		}, nil
	}

	return tool, handler
}
