package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainService(t *testing.T) {
	db := setupTestDB(t)
	service := NewChainService(db)

	_, err := service.GetActiveChain()
	assert.True(t, errors.Is(err, ErrChainNotFound))

	require.NoError(t, service.SeedDefaultChains())
	require.NoError(t, service.SeedDefaultChains())

	chains, err := service.ListChains()
	require.NoError(t, err)
	require.Len(t, chains, 2)

	active, err := service.GetActiveChain()
	require.NoError(t, err)
	assert.Equal(t, "84532", active.NetworkID)

	t.Run("select chain", func(t *testing.T) {
		require.NoError(t, service.SetActiveChainByNetworkID(8453))
		active, err := service.GetActiveChain()
		require.NoError(t, err)
		assert.Equal(t, "Base", active.Name)

		chains, err := service.ListChains()
		require.NoError(t, err)
		activeCount := 0
		for _, chain := range chains {
			if chain.IsActive {
				activeCount++
			}
		}
		assert.Equal(t, 1, activeCount)

		assert.True(t, errors.Is(service.SetActiveChainByNetworkID(999999), ErrChainNotFound))
	})

	t.Run("update rpc", func(t *testing.T) {
		require.NoError(t, service.UpdateChainRPC(84532, "http://localhost:8545"))
		chain, err := service.GetChainByNetworkID(84532)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8545", chain.RPC)

		id, err := chain.ChainIDUint64()
		require.NoError(t, err)
		assert.Equal(t, uint64(84532), id)

		assert.True(t, errors.Is(service.UpdateChainRPC(1, "http://x"), ErrChainNotFound))
	})

	t.Run("lookup missing chain", func(t *testing.T) {
		_, err := service.GetChainByNetworkID(1)
		assert.True(t, errors.Is(err, ErrChainNotFound))
	})
}
