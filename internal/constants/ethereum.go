package constants

import (
	"math/big"
	"time"
)

// SavePlaylistCents is the fiat cost of saving a playlist on chain
const SavePlaylistCents uint64 = 10

// FallbackSavePlaylistWei is attached when the price oracle cannot be read (about $0.10)
var FallbackSavePlaylistWei = func() *big.Int {
	val := new(big.Int)
	val.SetString("39582170607071750", 10)
	return val
}()

const (
	DefaultReceiptTimeout      = 5 * time.Minute
	DefaultReceiptPollInterval = 2 * time.Second
	DefaultQuoteCacheTTL       = 30 * time.Second
	DefaultQuoteRefreshSpec    = "@every 30s"
	TransactionSessionTTL      = 30 * time.Minute
)

const DefaultReferralAPIURL = "https://api.divvi.xyz/submitReferral"
