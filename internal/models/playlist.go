package models

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PlaylistDraft holds the form fields collected before a playlist is deployed
type PlaylistDraft struct {
	Name          string   `json:"name" validate:"required"`
	CoverImageURL string   `json:"cover_image_url" validate:"omitempty,url"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags" validate:"dive,required"`
	OwnerAddress  string   `json:"owner_address" validate:"required,eth_addr"`
}

// Normalize trims every field and drops empty or repeated tags, keeping the first occurrence.
func (d PlaylistDraft) Normalize() PlaylistDraft {
	d.Name = strings.TrimSpace(d.Name)
	d.CoverImageURL = strings.TrimSpace(d.CoverImageURL)
	d.Description = strings.TrimSpace(d.Description)
	d.OwnerAddress = strings.TrimSpace(d.OwnerAddress)
	d.Tags = NormalizeTags(d.Tags)
	return d
}

// NormalizeTags trims tags and removes empty and duplicate entries preserving order
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Playlist is a playlist whose contract has been deployed and whose address was
// decoded from the PlaylistDeployed event.
type Playlist struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"not null" json:"name"`
	CoverImageURL   string     `json:"cover_image_url"`
	Description     string     `gorm:"type:text" json:"description"`
	Tags            StringList `gorm:"type:text" json:"tags"`
	ContractAddress string     `gorm:"not null;uniqueIndex" json:"contract_address"`
	OwnerAddress    string     `gorm:"index;not null" json:"owner_address"`
	ChainID         uint64     `gorm:"index;not null" json:"chain_id"`
	TransactionHash string     `gorm:"not null" json:"transaction_hash"`
	AttemptID       string     `gorm:"index" json:"attempt_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ContractCall is a single payable contract call ready to be signed by a wallet
type ContractCall struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}
