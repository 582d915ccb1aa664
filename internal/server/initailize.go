package server

import (
	"fmt"

	"github.com/rxtech-lab/playlist-launchpad/internal/config"
	"github.com/rxtech-lab/playlist-launchpad/internal/contracts"
	"github.com/rxtech-lab/playlist-launchpad/internal/hooks"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Services bundles everything the API and MCP servers share
type Services struct {
	Config            *config.Config
	EvmService        services.EvmService
	TxService         services.TransactionService
	HookService       services.HookService
	ChainService      services.ChainService
	AttemptService    services.AttemptService
	PlaylistService   services.PlaylistService
	OracleService     services.PriceOracleService
	DeploymentService services.PlaylistDeploymentService
	Backends          services.BackendProvider
	QuoteCache        services.QuoteCache
}

// Options overrides the defaults of InitializeServices
type Options struct {
	// Cache defaults to an in-process cache
	Cache services.QuoteCache
	// Backends defaults to dialing the RPC stored for each chain
	Backends services.BackendProvider
	// Referrals defaults to the HTTP referral client; set DisableReferrals to skip attribution
	Referrals        services.ReferralService
	DisableReferrals bool
}

func InitializeServices(db *gorm.DB, cfg *config.Config, opts Options) (*Services, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	schema, err := contracts.NewFactorySchemaV1()
	if err != nil {
		return nil, err
	}

	chainService := services.NewChainService(db)
	if err := chainService.SeedDefaultChains(); err != nil {
		return nil, fmt.Errorf("failed to seed chains: %w", err)
	}

	cache := opts.Cache
	if cache == nil {
		cache = services.NewMemoryQuoteCache(cfg.QuoteCacheTTL)
	}
	backends := opts.Backends
	if backends == nil {
		backends = services.NewEthClientProvider(chainService)
	}
	referrals := opts.Referrals
	if referrals == nil && !opts.DisableReferrals {
		referrals = services.NewReferralService(cfg.ReferralAPIURL, services.ReferralOptions{})
	}

	evmService := services.NewEvmService(schema)
	attemptService := services.NewAttemptService(db)
	playlistService := services.NewPlaylistService(db)
	oracleService := services.NewPriceOracleService(schema, cache)

	deploymentService := services.NewPlaylistDeploymentService(
		services.PlaylistDeploymentServiceConfig{
			SaveCents:      cfg.SavePlaylistCents,
			ReceiptTimeout: cfg.ReceiptTimeout,
		},
		services.PlaylistDeploymentDeps{
			Backends:        backends,
			Oracle:          oracleService,
			Evm:             evmService,
			Watcher:         services.NewReceiptWatcher(cfg.ReceiptPollInterval, cfg.ReceiptTimeout),
			Referrals:       referrals,
			AttemptService:  attemptService,
			PlaylistService: playlistService,
		},
	)

	return &Services{
		Config:            cfg,
		EvmService:        evmService,
		TxService:         services.NewTransactionService(db),
		HookService:       services.NewHookService(),
		ChainService:      chainService,
		AttemptService:    attemptService,
		PlaylistService:   playlistService,
		OracleService:     oracleService,
		DeploymentService: deploymentService,
		Backends:          backends,
		QuoteCache:        cache,
	}, nil
}

func InitializeHooks(svc *Services) services.Hook {
	return hooks.NewPlaylistDeploymentHook(svc.DeploymentService)
}

func RegisterHooks(hookService services.HookService, playlistDeploymentHook services.Hook) {
	if err := hookService.AddHook(playlistDeploymentHook); err != nil {
		logrus.Fatal("Failed to register playlist deployment hook:", err)
	}
}

// NewQuoteRefresher keeps the quote cache warm for the active chain
func NewQuoteRefresher(svc *Services) (*services.QuoteRefresher, error) {
	return services.NewQuoteRefresher(
		svc.Config.QuoteRefreshSpec,
		svc.Config.SavePlaylistCents,
		svc.ChainService,
		svc.Backends,
		svc.OracleService,
		svc.QuoteCache,
	)
}
