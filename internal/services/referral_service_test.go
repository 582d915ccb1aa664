package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralService_Submit(t *testing.T) {
	hash := common.HexToHash("0x5f3c0a9c1b7e4d2a8f6e0b3c9d1a7e5f2b4c6d8e0a1b3c5d7e9f1a3b5c7d9e0f")
	opts := ReferralOptions{MaxAttempts: 3, Backoff: time.Millisecond, RequestsPerSecond: 1000}

	t.Run("posts tx hash and chain id", func(t *testing.T) {
		var body referralRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		err := NewReferralService(server.URL, opts).Submit(context.Background(), hash, 84532)
		require.NoError(t, err)
		assert.Equal(t, hash.Hex(), body.TxHash)
		assert.Equal(t, uint64(84532), body.ChainID)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		err := NewReferralService(server.URL, opts).Submit(context.Background(), hash, 8453)
		require.NoError(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"slow down"}`))
		}))
		defer server.Close()

		err := NewReferralService(server.URL, opts).Submit(context.Background(), hash, 8453)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "slow down")
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"unknown transaction"}}`))
		}))
		defer server.Close()

		err := NewReferralService(server.URL, opts).Submit(context.Background(), hash, 8453)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown transaction")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := NewReferralService(server.URL, opts).Submit(ctx, hash, 8453)
		assert.Error(t, err)
	})
}
