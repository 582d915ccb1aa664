package tools

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/playlist-launchpad/internal/contracts"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
	"github.com/rxtech-lab/playlist-launchpad/internal/utils"
	"github.com/sirupsen/logrus"
)

type deployPlaylistTool struct {
	chainService      services.ChainService
	evmService        services.EvmService
	txService         services.TransactionService
	attemptService    services.AttemptService
	deploymentService services.PlaylistDeploymentService
	backends          services.BackendProvider
	options           DeployPlaylistOptions
}

// DeployPlaylistOptions controls where the signing link points and whether the server signs itself
type DeployPlaylistOptions struct {
	BaseURL    string
	ServerPort int
	// DeployerKey switches the tool to headless mode: the server signs and waits for the receipt
	DeployerKey *ecdsa.PrivateKey
}

type DeployPlaylistArguments struct {
	Name          string   `json:"name" validate:"required"`
	CoverImageURL string   `json:"cover_image_url,omitempty"`
	Description   string   `json:"description,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	OwnerAddress  string   `json:"owner_address,omitempty" validate:"omitempty,eth_addr"`
}

type DeployPlaylistResult struct {
	AttemptID        string `json:"attempt_id"`
	SessionID        string `json:"session_id,omitempty"`
	SigningURL       string `json:"signing_url,omitempty"`
	ChainID          uint64 `json:"chain_id"`
	Factory          string `json:"factory"`
	Owner            string `json:"owner"`
	ValueWei         string `json:"value_wei"`
	ValueEth         string `json:"value_eth"`
	PaymentSource    string `json:"payment_source"`
	PredictedAddress string `json:"predicted_address,omitempty"`
	PlaylistAddress  string `json:"playlist_address,omitempty"`
	TransactionHash  string `json:"transaction_hash,omitempty"`
	Status           string `json:"status"`
}

func NewDeployPlaylistTool(
	chainService services.ChainService,
	evmService services.EvmService,
	txService services.TransactionService,
	attemptService services.AttemptService,
	deploymentService services.PlaylistDeploymentService,
	backends services.BackendProvider,
	options DeployPlaylistOptions,
) *deployPlaylistTool {
	return &deployPlaylistTool{
		chainService:      chainService,
		evmService:        evmService,
		txService:         txService,
		attemptService:    attemptService,
		deploymentService: deploymentService,
		backends:          backends,
		options:           options,
	}
}

func (d *deployPlaylistTool) GetTool() mcp.Tool {
	return mcp.NewTool("deploy_playlist",
		mcp.WithDescription("Deploy a playlist contract on the active chain. Returns a signing URL where the owner connects a wallet and pays the save cost. The playlist is stored once the PlaylistDeployed event is decoded from the receipt; use get_deployment_status to follow it."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Playlist name"),
		),
		mcp.WithString("cover_image_url",
			mcp.Description("URL of the cover image. Optional."),
		),
		mcp.WithString("description",
			mcp.Description("Playlist description. Optional."),
		),
		mcp.WithArray("tags",
			mcp.Description("Tags of the playlist (e.g., [\"lofi\", \"study\"]). Empty and repeated tags are dropped."),
			mcp.Items(map[string]interface{}{
				"type": "string",
			}),
		),
		mcp.WithString("owner_address",
			mcp.Description("Address of the wallet that will own the playlist and sign the transaction. Required unless the server signs with its own deployer key."),
		),
	)
}

func (d *deployPlaylistTool) GetHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args DeployPlaylistArguments
		if err := request.BindArguments(&args); err != nil {
			return nil, fmt.Errorf("failed to bind arguments: %w", err)
		}
		if err := validator.New().Struct(args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		chain, chainID, err := activeChain(d.chainService)
		if err != nil {
			return mcp.NewToolResultError(noActiveChainMessage), nil
		}
		if chain.ChainType != models.TransactionChainTypeEthereum {
			return mcp.NewToolResultError(fmt.Sprintf("Playlists can only be deployed on ethereum chains, got %s", chain.ChainType)), nil
		}

		draft := models.PlaylistDraft{
			Name:          args.Name,
			CoverImageURL: args.CoverImageURL,
			Description:   args.Description,
			Tags:          args.Tags,
			OwnerAddress:  args.OwnerAddress,
		}

		if d.options.DeployerKey != nil {
			return d.deployHeadless(ctx, chainID, draft)
		}
		if args.OwnerAddress == "" {
			return mcp.NewToolResultError("owner_address is required: it is the wallet that signs the deployment"), nil
		}
		return d.createSigningSession(ctx, chain, chainID, draft)
	}
}

func (d *deployPlaylistTool) createSigningSession(ctx context.Context, chain *models.Chain, chainID uint64, draft models.PlaylistDraft) (*mcp.CallToolResult, error) {
	prepared, err := d.deploymentService.Prepare(ctx, services.DeployEnv{ChainID: chainID}, draft)
	if err != nil {
		return prepareError(err), nil
	}
	attempt := prepared.Attempt

	deployment := d.evmService.GetTransactionDeployment(
		prepared.Call,
		fmt.Sprintf("Save playlist \"%s\"", attempt.Name),
		fmt.Sprintf("Deploys the playlist contract on %s and pays %s ETH to the playlist factory", chain.Name, utils.FormatEther(prepared.Payment.Amount)),
	)
	sessionID, err := d.txService.CreateTransactionSession(services.CreateTransactionSessionRequest{
		Metadata: []models.TransactionMetadata{
			{Key: models.MetadataKeyAttemptID, Value: attempt.ID},
			{Key: "Playlist", Value: attempt.Name},
			{Key: "Owner", Value: attempt.OwnerAddress},
		},
		TransactionDeployments: []models.TransactionDeployment{deployment},
		ChainType:              chain.ChainType,
		ChainID:                chain.ID,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error creating transaction session: %v", err)), nil
	}
	if err := d.attemptService.SetSessionID(attempt.ID, sessionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error linking transaction session: %v", err)), nil
	}

	url, err := utils.GetTransactionSessionUrl(d.options.BaseURL, d.options.ServerPort, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get transaction session url: %v", err)), nil
	}

	result := newDeployPlaylistResult(attempt, prepared.Payment)
	result.SessionID = sessionID
	result.SigningURL = url
	resultJSON, _ := json.Marshal(result)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf("Playlist deployment prepared: %s", attempt.ID)),
			mcp.NewTextContent(string(resultJSON)),
			mcp.NewTextContent("Please sign the deployment in the URL:"),
			mcp.NewTextContent(url),
			mcp.NewTextContent("Please render the url using markdown link format"),
		},
	}, nil
}

func (d *deployPlaylistTool) deployHeadless(ctx context.Context, chainID uint64, draft models.PlaylistDraft) (*mcp.CallToolResult, error) {
	owner := crypto.PubkeyToAddress(d.options.DeployerKey.PublicKey)
	if draft.OwnerAddress != "" && !utils.SameAddress(draft.OwnerAddress, owner.Hex()) {
		return mcp.NewToolResultError(fmt.Sprintf("owner_address must be the deployer wallet %s", owner.Hex())), nil
	}

	backend, err := d.backends.Backend(ctx, chainID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error connecting to chain %d: %v", chainID, err)), nil
	}
	wallet := services.NewKeyWallet(d.options.DeployerKey, chainID, backend)

	deployed, err := d.deploymentService.Deploy(ctx, services.DeployEnv{ChainID: chainID, Owner: owner}, draft, wallet)
	if err != nil {
		logrus.WithError(err).WithField("chain_id", chainID).Warn("headless playlist deployment failed")
		if errors.Is(err, services.ErrReceiptTimeout) {
			return mcp.NewToolResultError("Transaction still pending. Use confirm_deployment later to finish saving the playlist"), nil
		}
		return prepareError(err), nil
	}

	amount, err := deployed.Attempt.ValueWei()
	if err != nil {
		return nil, err
	}
	result := newDeployPlaylistResult(deployed.Attempt, models.RequiredPayment{
		Amount: amount,
		Source: deployed.Attempt.PaymentSource,
	})
	resultJSON, _ := json.Marshal(result)
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf("Playlist deployed at %s", deployed.Playlist.ContractAddress)),
			mcp.NewTextContent(string(resultJSON)),
		},
	}, nil
}

func newDeployPlaylistResult(attempt *models.DeploymentAttempt, payment models.RequiredPayment) DeployPlaylistResult {
	return DeployPlaylistResult{
		AttemptID:        attempt.ID,
		ChainID:          attempt.ChainID,
		Factory:          attempt.FactoryAddress,
		Owner:            attempt.OwnerAddress,
		ValueWei:         attempt.Value,
		ValueEth:         utils.FormatEther(payment.Amount),
		PaymentSource:    string(payment.Source),
		PredictedAddress: attempt.PredictedAddress,
		PlaylistAddress:  attempt.PlaylistAddress,
		TransactionHash:  attempt.TransactionHash,
		Status:           string(attempt.Status),
	}
}

func prepareError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, services.ErrInvalidDraft):
		return mcp.NewToolResultError(fmt.Sprintf("Invalid playlist: %v", err))
	case errors.Is(err, contracts.ErrUnsupportedChain):
		return mcp.NewToolResultError(err.Error())
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Playlist deployment failed: %v", err))
	}
}
