package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/playlist-launchpad/internal/contracts"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
)

func chainSummary(chain models.Chain) map[string]interface{} {
	summary := map[string]interface{}{
		"id":         chain.ID,
		"name":       chain.Name,
		"chain_type": chain.ChainType,
		"rpc":        chain.RPC,
		"chain_id":   chain.NetworkID,
		"is_active":  chain.IsActive,
	}
	if networkID, err := chain.ChainIDUint64(); err == nil {
		if addresses, err := contracts.GetContractAddresses(networkID); err == nil {
			summary["factory"] = addresses.Factory.Hex()
			summary["playlist_nft"] = addresses.PlaylistNFT.Hex()
		}
	}
	return summary
}

func NewListChainsTool(chainService services.ChainService) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("list_chains",
		mcp.WithDescription("List the chains playlists can be deployed to, with their RPC endpoint and playlist factory address. The active chain is used by deploy_playlist."),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		chains, err := chainService.ListChains()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error listing chains: %v", err)), nil
		}

		summaries := make([]map[string]interface{}, 0, len(chains))
		response := map[string]interface{}{}
		for _, chain := range chains {
			summary := chainSummary(chain)
			summaries = append(summaries, summary)
			if chain.IsActive {
				response["active_chain"] = summary
			}
		}
		response["chains"] = summaries
		response["total"] = len(summaries)

		responseJSON, _ := json.MarshalIndent(response, "", "  ")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(string(responseJSON)),
			},
		}, nil
	}

	return tool, handler
}
