package services

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
)

// Wallet signs and broadcasts a contract call on behalf of the playlist owner
type Wallet interface {
	Address() common.Address
	SendTransaction(ctx context.Context, call models.ContractCall) (common.Hash, error)
}

// KeyWallet signs with a local private key. Used for headless deployments.
type KeyWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	signer  types.Signer
	backend TransactionBackend
}

func NewKeyWallet(key *ecdsa.PrivateKey, chainID uint64, backend TransactionBackend) *KeyWallet {
	return &KeyWallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		signer:  types.LatestSignerForChainID(new(big.Int).SetUint64(chainID)),
		backend: backend,
	}
}

func (w *KeyWallet) Address() common.Address {
	return w.address
}

func (w *KeyWallet) SendTransaction(ctx context.Context, call models.ContractCall) (common.Hash, error) {
	value := call.Value
	if value == nil {
		value = big.NewInt(0)
	}

	nonce, err := w.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}
	to := call.To
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.address,
		To:    &to,
		Value: value,
		Data:  call.Data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     call.Data,
	})
	signedTx, err := types.SignTx(tx, w.signer, w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := w.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	return signedTx.Hash(), nil
}
