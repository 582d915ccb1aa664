package models

import (
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
)

type Chain struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	ChainType TransactionChainType `gorm:"not null" json:"chain_type"` // ethereum
	RPC       string               `gorm:"not null" json:"rpc"`
	NetworkID string               `gorm:"column:chain_id;uniqueIndex" json:"chain_id"` // The blockchain's chain ID (e.g., "8453" for Base mainnet)
	Name      string               `gorm:"not null" json:"name"`
	IsActive  bool                 `gorm:"default:false" json:"is_active"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	DeletedAt gorm.DeletedAt       `gorm:"index" json:"-"`
}

// ChainIDUint64 parses the network id stored on the chain row.
func (c Chain) ChainIDUint64() (uint64, error) {
	id, err := strconv.ParseUint(c.NetworkID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q: %w", c.NetworkID, err)
	}
	return id, nil
}
