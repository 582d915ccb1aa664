package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rxtech-lab/playlist-launchpad/internal/metrics"
	"github.com/sirupsen/logrus"
)

type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// ReceiptWatcher waits until a transaction is included. Finality is whatever the node reports.
type ReceiptWatcher interface {
	Wait(ctx context.Context, reader ReceiptReader, txHash common.Hash) (*types.Receipt, error)
}

type receiptWatcher struct {
	interval time.Duration
	timeout  time.Duration
}

func NewReceiptWatcher(interval, timeout time.Duration) ReceiptWatcher {
	return &receiptWatcher{interval: interval, timeout: timeout}
}

// Wait polls for the receipt of txHash. It returns ErrReceiptTimeout when the watcher's own
// timeout expires and ctx's error when ctx is cancelled first.
func (w *receiptWatcher) Wait(ctx context.Context, reader ReceiptReader, txHash common.Hash) (*types.Receipt, error) {
	start := time.Now()
	defer func() { metrics.RecordReceiptWait(time.Since(start)) }()

	waitCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		receipt, err := reader.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) && waitCtx.Err() == nil {
			logrus.WithError(err).WithField("tx_hash", txHash.Hex()).Debug("receipt lookup failed, retrying")
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w after %s: %s", ErrReceiptTimeout, w.timeout, txHash.Hex())
		case <-ticker.C:
		}
	}
}
