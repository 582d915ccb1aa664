package services

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyWallet(t *testing.T) {
	key, owner := testOwner(t)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), owner)

	t.Run("signs for the configured chain", func(t *testing.T) {
		chain := newFakeChain(t)
		chain.receiptFor = func(tx *types.Transaction) *types.Receipt { return nil }
		wallet := NewKeyWallet(key, 84532, chain)
		assert.Equal(t, owner, wallet.Address())

		to := common.HexToAddress("0x5A7861D29088B67Cc03d85c4D89B855201e030EB")
		hash, err := wallet.SendTransaction(context.Background(), models.ContractCall{
			To:    to,
			Data:  []byte{0xde, 0xad, 0xbe, 0xef},
			Value: big.NewInt(100),
		})
		require.NoError(t, err)

		tx, _, err := chain.TransactionByHash(context.Background(), hash)
		require.NoError(t, err)
		assert.Equal(t, to, *tx.To())
		assert.Equal(t, "100", tx.Value().String())
		assert.Equal(t, uint64(500_000), tx.Gas())
		assert.Equal(t, big.NewInt(84532), tx.ChainId())

		sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(84532)), tx)
		require.NoError(t, err)
		assert.Equal(t, owner, sender)
	})

	t.Run("nil value sends zero", func(t *testing.T) {
		chain := newFakeChain(t)
		wallet := NewKeyWallet(key, 84532, chain)

		hash, err := wallet.SendTransaction(context.Background(), models.ContractCall{To: common.HexToAddress("0x01")})
		require.NoError(t, err)
		tx, _, err := chain.TransactionByHash(context.Background(), hash)
		require.NoError(t, err)
		assert.Equal(t, 0, tx.Value().Sign())
	})

	t.Run("broadcast error", func(t *testing.T) {
		chain := newFakeChain(t)
		chain.sendErr = errors.New("nonce too low")
		wallet := NewKeyWallet(key, 84532, chain)

		_, err := wallet.SendTransaction(context.Background(), models.ContractCall{To: common.HexToAddress("0x01")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nonce too low")
	})
}
