package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// ReferralService attributes a confirmed deployment to the referral program
type ReferralService interface {
	Submit(ctx context.Context, txHash common.Hash, chainID uint64) error
}

type ReferralOptions struct {
	MaxAttempts int
	Backoff     time.Duration
	// RequestsPerSecond limits calls to the attribution API across all deployments
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

type referralService struct {
	url         string
	client      *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
}

type referralRequest struct {
	TxHash  string `json:"txHash"`
	ChainID uint64 `json:"chainId"`
}

// permanentError stops the retry loop
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func NewReferralService(url string, opts ReferralOptions) ReferralService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &referralService{
		url:         url,
		client:      opts.HTTPClient,
		limiter:     rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
	}
}

func (s *referralService) Submit(ctx context.Context, txHash common.Hash, chainID uint64) error {
	body, err := json.Marshal(referralRequest{TxHash: txHash.Hex(), ChainID: chainID})
	if err != nil {
		return fmt.Errorf("failed to marshal referral: %w", err)
	}

	var lastErr error
	delay := s.backoff
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("referral rate limit: %w", err)
		}

		lastErr = s.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		var permanent *permanentError
		if errors.As(lastErr, &permanent) || attempt == s.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("failed to submit referral for %s: %w", txHash.Hex(), lastErr)
}

func (s *referralService) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return &permanentError{err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	message := resp.Status
	if gjson.ValidBytes(respBody) {
		for _, path := range []string{"error.message", "error", "message"} {
			if result := gjson.GetBytes(respBody, path); result.Exists() && result.Type == gjson.String {
				message = result.String()
				break
			}
		}
	}

	err = fmt.Errorf("referral API returned %d: %s", resp.StatusCode, message)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return &permanentError{err: err}
	}
	return err
}
