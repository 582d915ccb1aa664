package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// QuoteCache keeps recent oracle quotes for a short time
type QuoteCache interface {
	Get(ctx context.Context, key string) (*big.Int, bool, error)
	Set(ctx context.Context, key string, amount *big.Int) error
}

type memoryQuote struct {
	amount    *big.Int
	expiresAt time.Time
}

type memoryQuoteCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryQuote
}

// NewMemoryQuoteCache creates an in-process cache whose entries expire after ttl
func NewMemoryQuoteCache(ttl time.Duration) QuoteCache {
	return &memoryQuoteCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryQuote),
	}
}

func (c *memoryQuoteCache) Get(ctx context.Context, key string) (*big.Int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return new(big.Int).Set(entry.amount), true, nil
}

func (c *memoryQuoteCache) Set(ctx context.Context, key string, amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("cannot cache nil quote")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryQuote{
		amount:    new(big.Int).Set(amount),
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

type redisQuoteCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisQuoteCache shares quotes between server instances through Redis
func NewRedisQuoteCache(client redis.UniversalClient, ttl time.Duration) QuoteCache {
	return &redisQuoteCache{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (c *redisQuoteCache) Get(ctx context.Context, key string) (*big.Int, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read quote from redis: %w", err)
	}

	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, false, fmt.Errorf("invalid cached quote %q", value)
	}
	return amount, true, nil
}

func (c *redisQuoteCache) Set(ctx context.Context, key string, amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("cannot cache nil quote")
	}
	if err := c.client.Set(ctx, key, amount.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write quote to redis: %w", err)
	}
	return nil
}
