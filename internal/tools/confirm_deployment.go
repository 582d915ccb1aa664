package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
)

func NewConfirmDeploymentTool(deploymentService services.PlaylistDeploymentService) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("confirm_deployment",
		mcp.WithDescription("Wait for the receipt of a submitted or stalled playlist deployment and save the playlist once its address is decoded. Safe to call again on a stalled attempt."),
		mcp.WithString("attempt_id",
			mcp.Required(),
			mcp.Description("The attempt id returned by deploy_playlist"),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		attemptID, err := request.RequireString("attempt_id")
		if err != nil {
			return nil, fmt.Errorf("attempt_id parameter is required: %w", err)
		}

		deployed, err := deploymentService.Confirm(ctx, attemptID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrAttemptNotFound):
				return mcp.NewToolResultError(fmt.Sprintf("Deployment attempt %s not found", attemptID)), nil
			case errors.Is(err, services.ErrReceiptTimeout):
				return mcp.NewToolResultError("Transaction still pending, check your wallet or a block explorer and try again later"), nil
			case errors.Is(err, services.ErrInvalidTransition):
				return mcp.NewToolResultError(fmt.Sprintf("Deployment cannot be confirmed: %v", err)), nil
			default:
				return mcp.NewToolResultError(fmt.Sprintf("Deployment failed: %v", err)), nil
			}
		}

		resultJSON, _ := json.Marshal(deployed)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(fmt.Sprintf("Playlist saved at %s", deployed.Playlist.ContractAddress)),
				mcp.NewTextContent(string(resultJSON)),
			},
		}, nil
	}

	return tool, handler
}
