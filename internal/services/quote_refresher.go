package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rxtech-lab/playlist-launchpad/internal/contracts"
	"github.com/sirupsen/logrus"
)

// QuoteRefresher periodically re-reads the save cost of the active chain and warms the quote cache
type QuoteRefresher struct {
	cron         *cron.Cron
	schedule     string
	chainService ChainService
	backends     BackendProvider
	oracle       PriceOracleService
	cache        QuoteCache
	cents        uint64
}

func NewQuoteRefresher(schedule string, cents uint64, chainService ChainService, backends BackendProvider, oracle PriceOracleService, cache QuoteCache) (*QuoteRefresher, error) {
	r := &QuoteRefresher{
		cron:         cron.New(),
		schedule:     schedule,
		chainService: chainService,
		backends:     backends,
		oracle:       oracle,
		cache:        cache,
		cents:        cents,
	}

	_, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := r.RefreshOnce(ctx); err != nil {
			logrus.WithError(err).Warn("quote refresh failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid quote refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *QuoteRefresher) Start() {
	logrus.WithField("schedule", r.schedule).Info("starting quote refresher")
	r.cron.Start()
}

// Stop halts the schedule and waits for a running refresh to finish
func (r *QuoteRefresher) Stop() {
	<-r.cron.Stop().Done()
}

// RefreshOnce reads the current quote for the active chain and stores it in the cache
func (r *QuoteRefresher) RefreshOnce(ctx context.Context) (*big.Int, error) {
	chain, err := r.chainService.GetActiveChain()
	if err != nil {
		return nil, err
	}
	chainID, err := chain.ChainIDUint64()
	if err != nil {
		return nil, err
	}
	addresses, err := contracts.GetContractAddresses(chainID)
	if err != nil {
		return nil, err
	}
	backend, err := r.backends.Backend(ctx, chainID)
	if err != nil {
		return nil, err
	}

	req := QuoteRequest{ChainID: chainID, Factory: addresses.Factory, Cents: r.cents}
	amount, err := r.oracle.Quote(ctx, backend, req)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, req.cacheKey(), amount); err != nil {
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"chain_id": chainID,
		"cents":    r.cents,
		"wei":      amount.String(),
	}).Debug("refreshed save playlist quote")
	return amount, nil
}
