package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
)

func NewGetDeploymentStatusTool(deploymentService services.PlaylistDeploymentService, playlistService services.PlaylistService) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("get_deployment_status",
		mcp.WithDescription("Get the status of a playlist deployment attempt: idle, pending, submitted, confirmed, decoding, stalled, success or failed. A successful attempt includes the saved playlist."),
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

		attempt, err := deploymentService.GetAttempt(attemptID)
		if err != nil {
			if errors.Is(err, services.ErrAttemptNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Deployment attempt %s not found", attemptID)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Error loading deployment attempt: %v", err)), nil
		}

		result := map[string]interface{}{
			"attempt": attempt,
		}
		if attempt.Status == models.AttemptStatusSuccess {
			if playlist, err := playlistService.GetPlaylistByAttemptID(attempt.ID); err == nil {
				result["playlist"] = playlist
			}
		}
		if attempt.Status == models.AttemptStatusStalled {
			result["hint"] = "Use confirm_deployment to check the receipt again"
		}

		resultJSON, _ := json.Marshal(result)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(fmt.Sprintf("Deployment %s is %s", attempt.ID, attempt.Status)),
				mcp.NewTextContent(string(resultJSON)),
			},
		}, nil
	}

	return tool, handler
}
