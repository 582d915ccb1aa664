package services

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/rxtech-lab/playlist-launchpad/internal/constants"
	"github.com/rxtech-lab/playlist-launchpad/internal/contracts"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuoteRequest(cents uint64) QuoteRequest {
	addresses, _ := contracts.GetContractAddresses(contracts.BaseSepoliaChainID)
	return QuoteRequest{ChainID: contracts.BaseSepoliaChainID, Factory: addresses.Factory, Cents: cents}
}

func TestPriceOracleService_RequiredPayment(t *testing.T) {
	schema := contracts.MustFactorySchemaV1()

	t.Run("zero cents makes no call", func(t *testing.T) {
		chain := newFakeChain(t)
		oracle := NewPriceOracleService(schema, nil)

		payment, err := oracle.RequiredPayment(context.Background(), chain, testQuoteRequest(0))
		require.NoError(t, err)
		assert.Equal(t, models.PaymentSourceZero, payment.Source)
		assert.Equal(t, 0, payment.Amount.Sign())
		quotes, _ := chain.calls()
		assert.Equal(t, 0, quotes)
	})

	t.Run("oracle value", func(t *testing.T) {
		chain := newFakeChain(t)
		chain.quote = big.NewInt(12345)
		oracle := NewPriceOracleService(schema, nil)

		payment, err := oracle.RequiredPayment(context.Background(), chain, testQuoteRequest(10))
		require.NoError(t, err)
		assert.Equal(t, models.PaymentSourceOracle, payment.Source)
		assert.Equal(t, "12345", payment.Amount.String())
		assert.Equal(t, uint64(10), payment.Cents)
	})

	t.Run("oracle failure returns fallback", func(t *testing.T) {
		chain := newFakeChain(t)
		chain.quoteErr = errors.New("execution reverted")
		oracle := NewPriceOracleService(schema, nil)

		payment, err := oracle.RequiredPayment(context.Background(), chain, testQuoteRequest(10))
		require.NoError(t, err)
		assert.Equal(t, models.PaymentSourceFallback, payment.Source)
		assert.Equal(t, "39582170607071750", payment.Amount.String())

		// the returned amount must not alias the package constant
		payment.Amount.SetInt64(1)
		assert.Equal(t, "39582170607071750", constants.FallbackSavePlaylistWei.String())
	})

	t.Run("zero oracle answer returns fallback", func(t *testing.T) {
		chain := newFakeChain(t)
		chain.quote = big.NewInt(0)
		oracle := NewPriceOracleService(schema, nil)

		payment, err := oracle.RequiredPayment(context.Background(), chain, testQuoteRequest(10))
		require.NoError(t, err)
		assert.Equal(t, models.PaymentSourceFallback, payment.Source)
	})

	t.Run("cache hit skips the oracle", func(t *testing.T) {
		chain := newFakeChain(t)
		cache := NewMemoryQuoteCache(time.Minute)
		oracle := NewPriceOracleService(schema, cache)

		first, err := oracle.RequiredPayment(context.Background(), chain, testQuoteRequest(10))
		require.NoError(t, err)
		assert.Equal(t, models.PaymentSourceOracle, first.Source)

		second, err := oracle.RequiredPayment(context.Background(), chain, testQuoteRequest(10))
		require.NoError(t, err)
		assert.Equal(t, models.PaymentSourceCache, second.Source)
		assert.Equal(t, first.Amount.String(), second.Amount.String())

		quotes, _ := chain.calls()
		assert.Equal(t, 1, quotes)
	})

	t.Run("failure is not cached", func(t *testing.T) {
		chain := newFakeChain(t)
		chain.quoteErr = errors.New("rpc down")
		cache := NewMemoryQuoteCache(time.Minute)
		oracle := NewPriceOracleService(schema, cache)

		_, err := oracle.RequiredPayment(context.Background(), chain, testQuoteRequest(10))
		require.NoError(t, err)
		_, ok, err := cache.Get(context.Background(), testQuoteRequest(10).cacheKey())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewPriceOracleService(schema, nil).RequiredPayment(ctx, newFakeChain(t), testQuoteRequest(10))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPriceOracleService_Quote(t *testing.T) {
	schema := contracts.MustFactorySchemaV1()
	oracle := NewPriceOracleService(schema, nil)

	_, err := oracle.Quote(context.Background(), nil, testQuoteRequest(10))
	assert.Error(t, err)

	chain := newFakeChain(t)
	chain.quoteErr = errors.New("execution reverted")
	_, err = oracle.Quote(context.Background(), chain, testQuoteRequest(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), contracts.MethodGetRequiredETHForCents)
}
