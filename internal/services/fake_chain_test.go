package services

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rxtech-lab/playlist-launchpad/internal/contracts"
	"github.com/stretchr/testify/require"
)

// anvil account #0
const testOwnerKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var testPlaylistAddress = common.HexToAddress("0xABCD00000000000000000000000000000000ABCD")

func testOwner(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.HexToECDSA(testOwnerKey)
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

// fakeChain is an in-memory node with a playlist factory deployed on it. Sent transactions are
// mined immediately unless withholdReceipts is set.
type fakeChain struct {
	mu     sync.Mutex
	schema contracts.FactorySchema

	quote      *big.Int
	quoteErr   error
	predicted  common.Address
	predictErr error
	sendErr    error

	// deployed is the address put in PlaylistDeployed logs
	deployed common.Address
	// receiptFor overrides how a sent transaction is mined
	receiptFor       func(tx *types.Transaction) *types.Receipt
	withholdReceipts bool

	quoteCalls   int
	predictCalls int
	nonce        uint64
	sent         map[common.Hash]*types.Transaction
	receipts     map[common.Hash]*types.Receipt
}

func newFakeChain(t *testing.T) *fakeChain {
	t.Helper()
	schema, err := contracts.NewFactorySchemaV1()
	require.NoError(t, err)
	return &fakeChain{
		schema:    schema,
		quote:     big.NewInt(39582170607071750),
		predicted: testPlaylistAddress,
		deployed:  testPlaylistAddress,
		sent:      make(map[common.Hash]*types.Transaction),
		receipts:  make(map[common.Hash]*types.Receipt),
	}
}

func (c *fakeChain) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(call.Data) < 4 {
		return nil, errors.New("execution reverted")
	}
	methods := c.schema.ABI().Methods
	switch {
	case bytes.Equal(call.Data[:4], methods[contracts.MethodGetRequiredETHForCents].ID):
		c.quoteCalls++
		if c.quoteErr != nil {
			return nil, c.quoteErr
		}
		return methods[contracts.MethodGetRequiredETHForCents].Outputs.Pack(c.quote)
	case bytes.Equal(call.Data[:4], methods[contracts.MethodComputePlaylistAddress].ID):
		c.predictCalls++
		if c.predictErr != nil {
			return nil, c.predictErr
		}
		return methods[contracts.MethodComputePlaylistAddress].Outputs.Pack(c.predicted)
	}
	return nil, fmt.Errorf("unknown selector %x", call.Data[:4])
}

func (c *fakeChain) TransactionByHash(ctx context.Context, txHash common.Hash) (*types.Transaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.sent[txHash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, false, nil
}

func (c *fakeChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.withholdReceipts {
		return nil, ethereum.NotFound
	}
	receipt, ok := c.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (c *fakeChain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonce, nil
}

func (c *fakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (c *fakeChain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 500_000, nil
}

func (c *fakeChain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.nonce++
	c.sent[tx.Hash()] = tx

	var receipt *types.Receipt
	if c.receiptFor != nil {
		receipt = c.receiptFor(tx)
	} else {
		receipt = c.mine(tx)
	}
	if receipt != nil {
		receipt.TxHash = tx.Hash()
		c.receipts[tx.Hash()] = receipt
	}
	return nil
}

// mine executes a deployPlaylist call the way the factory does and emits PlaylistDeployed
func (c *fakeChain) mine(tx *types.Transaction) *types.Receipt {
	method := c.schema.ABI().Methods[contracts.MethodDeployPlaylist]
	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}
	if len(tx.Data()) < 4 || !bytes.Equal(tx.Data()[:4], method.ID) {
		return receipt
	}
	values, err := method.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		return receipt
	}

	event := c.schema.ABI().Events[contracts.EventPlaylistDeployed]
	data, err := event.Inputs.NonIndexed().Pack(values[0].(string), values[6].(*big.Int), values[3].([]string))
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		return receipt
	}
	owner := values[4].(common.Address)
	receipt.Logs = []*types.Log{{
		Address: *tx.To(),
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(c.deployed.Bytes()),
			common.BytesToHash(owner.Bytes()),
		},
		Data:   data,
		TxHash: tx.Hash(),
		Index:  0,
	}}
	return receipt
}

func (c *fakeChain) sentTransactions() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	txs := make([]*types.Transaction, 0, len(c.sent))
	for _, tx := range c.sent {
		txs = append(txs, tx)
	}
	return txs
}

func (c *fakeChain) setWithholdReceipts(withhold bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.withholdReceipts = withhold
}

func (c *fakeChain) calls() (quotes int, predictions int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quoteCalls, c.predictCalls
}

// countingProvider serves chain for every chain id and counts lookups
type countingProvider struct {
	mu    sync.Mutex
	chain *fakeChain
	count int
}

func (p *countingProvider) Backend(ctx context.Context, chainID uint64) (EthBackend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	return p.chain, nil
}

func (p *countingProvider) lookups() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

type fakeReferrals struct {
	mu    sync.Mutex
	err   error
	calls []common.Hash
	chain []uint64
}

func (f *fakeReferrals) Submit(ctx context.Context, txHash common.Hash, chainID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, txHash)
	f.chain = append(f.chain, chainID)
	return f.err
}

func (f *fakeReferrals) submitted() []common.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]common.Hash(nil), f.calls...)
}
