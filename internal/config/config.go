package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/rxtech-lab/playlist-launchpad/internal/constants"
)

// Config is read from the environment. A .env file is loaded first when present.
type Config struct {
	Port         int    `env:"PORT,default=8080"`
	PostgresURL  string `env:"POSTGRES_URL"`
	DatabasePath string `env:"DATABASE_PATH"`
	RedisURL     string `env:"REDIS_URL"`
	BaseURL      string `env:"BASE_URL"`

	// DeployerPrivateKey enables headless deployments signed by the server
	DeployerPrivateKey string `env:"DEPLOYER_PRIVATE_KEY"`

	ReferralAPIURL      string        `env:"REFERRAL_API_URL"`
	ReceiptTimeout      time.Duration `env:"RECEIPT_TIMEOUT"`
	ReceiptPollInterval time.Duration `env:"RECEIPT_POLL_INTERVAL"`
	QuoteCacheTTL       time.Duration `env:"QUOTE_CACHE_TTL"`
	QuoteRefreshSpec    string        `env:"QUOTE_REFRESH_SCHEDULE"`
	SavePlaylistCents   uint64        `env:"SAVE_PLAYLIST_CENTS"`

	JwksURI    string `env:"JWKS_URI"`
	ResourceID string `env:"RESOURCE_ID"`
	// AuthorizationServer is advertised in the OAuth protected resource metadata
	AuthorizationServer string `env:"AUTHORIZATION_SERVER_URL"`
}

// Load decodes the environment into a Config and fills defaults
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config populated only with defaults
func Default() *Config {
	cfg := &Config{Port: 8080}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ReferralAPIURL == "" {
		c.ReferralAPIURL = constants.DefaultReferralAPIURL
	}
	if c.ReceiptTimeout <= 0 {
		c.ReceiptTimeout = constants.DefaultReceiptTimeout
	}
	if c.ReceiptPollInterval <= 0 {
		c.ReceiptPollInterval = constants.DefaultReceiptPollInterval
	}
	if c.QuoteCacheTTL <= 0 {
		c.QuoteCacheTTL = constants.DefaultQuoteCacheTTL
	}
	if c.QuoteRefreshSpec == "" {
		c.QuoteRefreshSpec = constants.DefaultQuoteRefreshSpec
	}
	if c.SavePlaylistCents == 0 {
		c.SavePlaylistCents = constants.SavePlaylistCents
	}
}

func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", c.Port)
	}
	if c.ReceiptPollInterval > c.ReceiptTimeout {
		return fmt.Errorf("receipt poll interval %s exceeds receipt timeout %s", c.ReceiptPollInterval, c.ReceiptTimeout)
	}
	return nil
}
