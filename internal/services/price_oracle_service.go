package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rxtech-lab/playlist-launchpad/internal/constants"
	"github.com/rxtech-lab/playlist-launchpad/internal/contracts"
	"github.com/rxtech-lab/playlist-launchpad/internal/metrics"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/sirupsen/logrus"
)

// QuoteRequest identifies a save cost quote
type QuoteRequest struct {
	ChainID uint64
	Factory common.Address
	Cents   uint64
}

func (q QuoteRequest) cacheKey() string {
	return fmt.Sprintf("playlist-launchpad:quote:%d:%s:%d", q.ChainID, q.Factory.Hex(), q.Cents)
}

// PriceOracleService converts a fiat cost to the native amount the factory expects
type PriceOracleService interface {
	// RequiredPayment never fails because of the oracle: a failed read yields the fallback amount.
	// It only returns an error when ctx is already done.
	RequiredPayment(ctx context.Context, caller ethereum.ContractCaller, req QuoteRequest) (models.RequiredPayment, error)
	// Quote reads the oracle directly without cache or fallback
	Quote(ctx context.Context, caller ethereum.ContractCaller, req QuoteRequest) (*big.Int, error)
}

type priceOracleService struct {
	schema   contracts.FactorySchema
	cache    QuoteCache
	fallback *big.Int
}

// NewPriceOracleService creates the oracle adapter. cache may be nil.
func NewPriceOracleService(schema contracts.FactorySchema, cache QuoteCache) PriceOracleService {
	return &priceOracleService{
		schema:   schema,
		cache:    cache,
		fallback: constants.FallbackSavePlaylistWei,
	}
}

func (s *priceOracleService) RequiredPayment(ctx context.Context, caller ethereum.ContractCaller, req QuoteRequest) (models.RequiredPayment, error) {
	if req.Cents == 0 {
		metrics.RecordPaymentQuote(string(models.PaymentSourceZero))
		return models.RequiredPayment{Amount: big.NewInt(0), Cents: 0, Source: models.PaymentSourceZero}, nil
	}
	if err := ctx.Err(); err != nil {
		return models.RequiredPayment{}, err
	}

	logger := logrus.WithFields(logrus.Fields{
		"chain_id": req.ChainID,
		"factory":  req.Factory.Hex(),
		"cents":    req.Cents,
	})

	if s.cache != nil {
		amount, ok, err := s.cache.Get(ctx, req.cacheKey())
		if err != nil {
			logger.WithError(err).Warn("quote cache read failed")
		} else if ok {
			metrics.RecordPaymentQuote(string(models.PaymentSourceCache))
			return models.RequiredPayment{Amount: amount, Cents: req.Cents, Source: models.PaymentSourceCache}, nil
		}
	}

	amount, err := s.Quote(ctx, caller, req)
	if err != nil {
		logger.WithError(err).Warn("price oracle read failed, using fallback amount")
		metrics.RecordPaymentQuote(string(models.PaymentSourceFallback))
		return models.RequiredPayment{
			Amount: new(big.Int).Set(s.fallback),
			Cents:  req.Cents,
			Source: models.PaymentSourceFallback,
		}, nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, req.cacheKey(), amount); err != nil {
			logger.WithError(err).Warn("quote cache write failed")
		}
	}
	metrics.RecordPaymentQuote(string(models.PaymentSourceOracle))
	return models.RequiredPayment{Amount: amount, Cents: req.Cents, Source: models.PaymentSourceOracle}, nil
}

func (s *priceOracleService) Quote(ctx context.Context, caller ethereum.ContractCaller, req QuoteRequest) (*big.Int, error) {
	if caller == nil {
		return nil, fmt.Errorf("no contract caller for chain %d", req.ChainID)
	}
	data, err := s.schema.PackRequiredETHForCents(new(big.Int).SetUint64(req.Cents))
	if err != nil {
		return nil, err
	}

	factory := req.Factory
	output, err := caller.CallContract(ctx, ethereum.CallMsg{To: &factory, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", contracts.MethodGetRequiredETHForCents, err)
	}
	amount, err := s.schema.UnpackRequiredETHForCents(output)
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("oracle returned non-positive amount %s", amount)
	}
	return amount, nil
}
