package tools

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rxtech-lab/playlist-launchpad/internal/contracts"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
	"github.com/stretchr/testify/require"
)

const (
	TOOLS_TEST_SERVER_PORT = 9998
	testOwnerAddress       = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testOwnerKey           = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

var errNodeOffline = errors.New("node offline")

// offlineBackend fails every RPC, so quotes use the fallback amount and sends fail
type offlineBackend struct{}

func (offlineBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, errNodeOffline
}

func (offlineBackend) TransactionByHash(ctx context.Context, txHash common.Hash) (*types.Transaction, bool, error) {
	return nil, false, errNodeOffline
}

func (offlineBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func (offlineBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, errNodeOffline
}

func (offlineBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return nil, errNodeOffline
}

func (offlineBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 0, errNodeOffline
}

func (offlineBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return errNodeOffline
}

type testServices struct {
	db                services.DBService
	chainService      services.ChainService
	evmService        services.EvmService
	txService         services.TransactionService
	attemptService    services.AttemptService
	playlistService   services.PlaylistService
	deploymentService services.PlaylistDeploymentService
	backends          services.BackendProvider
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	db, err := services.NewSqliteDBService(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := contracts.NewFactorySchemaV1()
	require.NoError(t, err)

	chainService := services.NewChainService(db.GetDB())
	require.NoError(t, chainService.SeedDefaultChains())

	backends := services.BackendProviderFunc(func(ctx context.Context, chainID uint64) (services.EthBackend, error) {
		return offlineBackend{}, nil
	})
	evmService := services.NewEvmService(schema)
	attemptService := services.NewAttemptService(db.GetDB())
	playlistService := services.NewPlaylistService(db.GetDB())

	deploymentService := services.NewPlaylistDeploymentService(
		services.PlaylistDeploymentServiceConfig{SaveCents: 10, ReceiptTimeout: 50 * time.Millisecond},
		services.PlaylistDeploymentDeps{
			Backends:        backends,
			Oracle:          services.NewPriceOracleService(schema, nil),
			Evm:             evmService,
			Watcher:         services.NewReceiptWatcher(5*time.Millisecond, 50*time.Millisecond),
			AttemptService:  attemptService,
			PlaylistService: playlistService,
		},
	)
	t.Cleanup(deploymentService.Wait)

	return &testServices{
		db:                db,
		chainService:      chainService,
		evmService:        evmService,
		txService:         services.NewTransactionService(db.GetDB()),
		attemptService:    attemptService,
		playlistService:   playlistService,
		deploymentService: deploymentService,
		backends:          backends,
	}
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultText returns the text of every content item in order
func resultText(result *mcp.CallToolResult) []string {
	var texts []string
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			texts = append(texts, text.Text)
		}
	}
	return texts
}
