package services

import (
	"errors"
	"fmt"

	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"gorm.io/gorm"
)

// ChainService handles chain-related operations
type ChainService interface {
	CreateChain(chain *models.Chain) error
	GetActiveChain() (*models.Chain, error)
	GetChainByNetworkID(networkID uint64) (*models.Chain, error)
	SetActiveChainByNetworkID(networkID uint64) error
	UpdateChainRPC(networkID uint64, rpc string) error
	ListChains() ([]models.Chain, error)
	SeedDefaultChains() error
}

type chainService struct {
	db *gorm.DB
}

// DefaultChains are created on first start. Base Sepolia starts active.
var DefaultChains = []models.Chain{
	{
		ChainType: models.TransactionChainTypeEthereum,
		RPC:       "https://sepolia.base.org",
		NetworkID: "84532",
		Name:      "Base Sepolia",
		IsActive:  true,
	},
	{
		ChainType: models.TransactionChainTypeEthereum,
		RPC:       "https://mainnet.base.org",
		NetworkID: "8453",
		Name:      "Base",
	},
}

// NewChainService creates a new ChainService
func NewChainService(db *gorm.DB) ChainService {
	return &chainService{db: db}
}

// CreateChain creates a new chain
func (s *chainService) CreateChain(chain *models.Chain) error {
	return s.db.Create(chain).Error
}

// GetActiveChain returns the currently active chain
func (s *chainService) GetActiveChain() (*models.Chain, error) {
	var chain models.Chain
	err := s.db.Where("is_active = ?", true).First(&chain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no active chain selected: %w", ErrChainNotFound)
		}
		return nil, err
	}
	return &chain, nil
}

// GetChainByNetworkID returns the chain registered for a blockchain chain id
func (s *chainService) GetChainByNetworkID(networkID uint64) (*models.Chain, error) {
	var chain models.Chain
	err := s.db.Where("chain_id = ?", fmt.Sprint(networkID)).First(&chain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chain %d: %w", networkID, ErrChainNotFound)
		}
		return nil, err
	}
	return &chain, nil
}

// SetActiveChainByNetworkID makes the chain with networkID the only active chain
func (s *chainService) SetActiveChainByNetworkID(networkID uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var chain models.Chain
		if err := tx.Where("chain_id = ?", fmt.Sprint(networkID)).First(&chain).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("chain %d: %w", networkID, ErrChainNotFound)
			}
			return err
		}

		// Deactivate all chains
		if err := tx.Model(&models.Chain{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chain{}).Where("id = ?", chain.ID).Update("is_active", true).Error
	})
}

// UpdateChainRPC changes the RPC endpoint of a chain
func (s *chainService) UpdateChainRPC(networkID uint64, rpc string) error {
	result := s.db.Model(&models.Chain{}).Where("chain_id = ?", fmt.Sprint(networkID)).Update("rpc", rpc)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("chain %d: %w", networkID, ErrChainNotFound)
	}
	return nil
}

// ListChains returns all chains
func (s *chainService) ListChains() ([]models.Chain, error) {
	var chains []models.Chain
	err := s.db.Order("id asc").Find(&chains).Error
	return chains, err
}

// SeedDefaultChains inserts DefaultChains when the chains table is empty
func (s *chainService) SeedDefaultChains() error {
	var count int64
	if err := s.db.Model(&models.Chain{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count chains: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, chain := range DefaultChains {
		chain := chain
		if err := s.db.Create(&chain).Error; err != nil {
			return fmt.Errorf("failed to seed chain %s: %w", chain.Name, err)
		}
	}
	return nil
}
