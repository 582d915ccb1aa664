package services

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ChainBackend is the read side of a node used by the deployment flow
type ChainBackend interface {
	ethereum.ContractCaller
	ethereum.TransactionReader
}

// TransactionBackend is what a key wallet needs to build and broadcast a transaction
type TransactionBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

type EthBackend interface {
	ChainBackend
	TransactionBackend
}

// BackendProvider resolves the node client of a chain
type BackendProvider interface {
	Backend(ctx context.Context, chainID uint64) (EthBackend, error)
}

type ethClientProvider struct {
	chainService ChainService

	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

// NewEthClientProvider dials the RPC endpoint stored for each chain and reuses the connection
func NewEthClientProvider(chainService ChainService) BackendProvider {
	return &ethClientProvider{
		chainService: chainService,
		clients:      make(map[string]*ethclient.Client),
	}
}

func (p *ethClientProvider) Backend(ctx context.Context, chainID uint64) (EthBackend, error) {
	chain, err := p.chainService.GetChainByNetworkID(chainID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[chain.RPC]; ok {
		return client, nil
	}
	client, err := ethclient.DialContext(ctx, chain.RPC)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s RPC: %w", chain.Name, err)
	}
	p.clients[chain.RPC] = client
	return client, nil
}

// BackendProviderFunc adapts a function to BackendProvider
type BackendProviderFunc func(ctx context.Context, chainID uint64) (EthBackend, error)

func (f BackendProviderFunc) Backend(ctx context.Context, chainID uint64) (EthBackend, error) {
	return f(ctx, chainID)
}
