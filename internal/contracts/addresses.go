package contracts

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	BaseSepoliaChainID uint64 = 84532
	BaseMainnetChainID uint64 = 8453
)

var ErrUnsupportedChain = errors.New("unsupported chain ID")

// ChainAddresses are the playlist contracts deployed on one chain
type ChainAddresses struct {
	ChainID     uint64         `json:"chain_id"`
	Factory     common.Address `json:"factory"`
	PlaylistNFT common.Address `json:"playlist_nft"`
	PriceFeed   common.Address `json:"price_feed"`
}

var addressBook = map[uint64]ChainAddresses{
	BaseSepoliaChainID: {
		ChainID:     BaseSepoliaChainID,
		Factory:     common.HexToAddress("0x5A7861D29088B67Cc03d85c4D89B855201e030EB"),
		PlaylistNFT: common.HexToAddress("0x4B9c51D7F985DD62f226dAB60EaA254975cB177B"),
		PriceFeed:   common.HexToAddress("0x4aDC67696bA383F43DD60A9e78F2C97Fbbfc7cb1"), // ETH/USD
	},
	BaseMainnetChainID: {
		ChainID:     BaseMainnetChainID,
		Factory:     common.HexToAddress("0x585571bF2BE914e0C9CE549E99E2E61888d09cC2"),
		PlaylistNFT: common.HexToAddress("0x4B9c51D7F985DD62f226dAB60EaA254975cB177B"),
		PriceFeed:   common.HexToAddress("0x71041dddad3595F9CEd3DcCFBe3D1F4b0a16Bb70"), // ETH/USD
	},
}

// GetContractAddresses returns the contract addresses for chainID. It never touches the network.
func GetContractAddresses(chainID uint64) (ChainAddresses, error) {
	addresses, ok := addressBook[chainID]
	if !ok {
		return ChainAddresses{}, fmt.Errorf("%w %d: supported chains are Base Sepolia (%d), Base Mainnet (%d)",
			ErrUnsupportedChain, chainID, BaseSepoliaChainID, BaseMainnetChainID)
	}
	return addresses, nil
}

// IsSupportedChain reports whether playlist contracts exist on chainID
func IsSupportedChain(chainID uint64) bool {
	_, ok := addressBook[chainID]
	return ok
}
