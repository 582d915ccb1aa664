package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
)

func NewListPlaylistsTool(playlistService services.PlaylistService) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("list_playlists",
		mcp.WithDescription("List deployed playlists, newest first"),
		mcp.WithString("owner_address",
			mcp.Description("Only list playlists owned by this address. Optional."),
		),
		mcp.WithString("chain_id",
			mcp.Description("Only list playlists on this chain id. Optional."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of playlists to return. Defaults to 50."),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := services.PlaylistFilter{
			Limit: request.GetInt("limit", 50),
		}
		if owner := request.GetString("owner_address", ""); owner != "" {
			if !common.IsHexAddress(owner) {
				return mcp.NewToolResultError(fmt.Sprintf("Invalid owner_address: %s", owner)), nil
			}
			filter.OwnerAddress = common.HexToAddress(owner).Hex()
		}
		if raw := request.GetString("chain_id", ""); raw != "" {
			chainID, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Invalid chain_id: %v", err)), nil
			}
			filter.ChainID = chainID
		}

		playlists, err := playlistService.ListPlaylists(filter)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error listing playlists: %v", err)), nil
		}

		response := map[string]interface{}{
			"playlists": playlists,
			"total":     len(playlists),
		}
		responseJSON, _ := json.MarshalIndent(response, "", "  ")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(string(responseJSON)),
			},
		}, nil
	}

	return tool, handler
}
