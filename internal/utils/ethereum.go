package utils

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

func IsValidEthereumAddress(address string) bool {
	return common.IsHexAddress(address)
}

// SameAddress compares two hex addresses ignoring case
func SameAddress(a, b string) bool {
	if !common.IsHexAddress(a) || !common.IsHexAddress(b) {
		return false
	}
	return common.HexToAddress(a) == common.HexToAddress(b)
}

// ParsePrivateKey accepts a hex private key with or without the 0x prefix
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

// FormatEther renders a wei amount in ether with up to 18 decimals and no trailing zeros
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	value := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether))
	formatted := value.FloatString(18)
	formatted = strings.TrimRight(formatted, "0")
	return strings.TrimSuffix(formatted, ".")
}
