package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
	"github.com/rxtech-lab/playlist-launchpad/internal/utils"
)

const noActiveChainMessage = "No active chain selected. Please use select_chain tool first"

// activeChain returns the selected chain together with its numeric chain id
func activeChain(chainService services.ChainService) (*models.Chain, uint64, error) {
	chain, err := chainService.GetActiveChain()
	if err != nil {
		return nil, 0, err
	}
	chainID, err := chain.ChainIDUint64()
	if err != nil {
		return nil, 0, err
	}
	return chain, chainID, nil
}

func NewGetRequiredPaymentTool(chainService services.ChainService, deploymentService services.PlaylistDeploymentService, defaultCents uint64) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("get_required_payment",
		mcp.WithDescription("Quote the native currency amount the playlist factory expects for saving a playlist on the active chain. Falls back to a fixed amount when the price feed cannot be read."),
		mcp.WithString("cents",
			mcp.Description(fmt.Sprintf("Cost in US cents to convert. Defaults to %d.", defaultCents)),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cents := defaultCents
		if raw := request.GetString("cents", ""); raw != "" {
			parsed, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Invalid cents: %v", err)), nil
			}
			cents = parsed
		}

		chain, chainID, err := activeChain(chainService)
		if err != nil {
			return mcp.NewToolResultError(noActiveChainMessage), nil
		}

		payment, err := deploymentService.RequiredPayment(ctx, chainID, cents)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error quoting payment: %v", err)), nil
		}

		result := map[string]interface{}{
			"chain_id":   chainID,
			"chain_name": chain.Name,
			"cents":      payment.Cents,
			"amount_wei": payment.Amount.String(),
			"amount_eth": utils.FormatEther(payment.Amount),
			"source":     payment.Source,
		}
		resultJSON, _ := json.Marshal(result)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(string(resultJSON)),
			},
		}, nil
	}

	return tool, handler
}
