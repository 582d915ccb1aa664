package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/playlist-launchpad/internal/constants"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"gorm.io/gorm"
)

type TransactionService interface {
	CreateTransactionSession(req CreateTransactionSessionRequest) (string, error)
	GetTransactionSession(sessionID string) (*models.TransactionSession, error)
	UpdateTransactionSession(sessionID string, session *models.TransactionSession) error
	// UpdateTransactionDeploymentStatus records the wallet outcome of one transaction in the session and
	// returns the updated session.
	UpdateTransactionDeploymentStatus(sessionID string, index int, status models.TransactionStatus, txHash string) (*models.TransactionSession, error)
	ListTransactionSessionsByUser(userID string) ([]models.TransactionSession, error)
}

type transactionService struct {
	db *gorm.DB
}

type CreateTransactionSessionRequest struct {
	Metadata               []models.TransactionMetadata   `json:"metadata"`
	TransactionDeployments []models.TransactionDeployment `json:"transaction_deployments"`
	ChainType              models.TransactionChainType    `json:"chain_type"`
	ChainID                uint                           `json:"chain_id"`
	UserID                 *string                        `json:"user_id,omitempty"`
}

func NewTransactionService(db *gorm.DB) TransactionService {
	return &transactionService{db: db}
}

func (s *transactionService) CreateTransactionSession(req CreateTransactionSessionRequest) (string, error) {
	if len(req.TransactionDeployments) == 0 {
		return "", fmt.Errorf("transaction session requires at least one transaction")
	}

	sessionID := uuid.New().String()
	now := time.Now()

	deployments := make([]models.TransactionDeployment, len(req.TransactionDeployments))
	for i, deployment := range req.TransactionDeployments {
		if deployment.Status == "" {
			deployment.Status = models.TransactionStatusPending
		}
		deployments[i] = deployment
	}

	session := &models.TransactionSession{
		ID:                     sessionID,
		UserID:                 req.UserID,
		Metadata:               req.Metadata,
		TransactionStatus:      models.TransactionStatusPending,
		TransactionChainType:   req.ChainType,
		TransactionDeployments: deployments,
		ChainID:                req.ChainID,
		CreatedAt:              now,
		UpdatedAt:              now,
		ExpiresAt:              now.Add(constants.TransactionSessionTTL),
	}

	if err := s.db.Create(session).Error; err != nil {
		return "", fmt.Errorf("failed to create transaction session: %w", err)
	}

	return sessionID, nil
}

// GetTransactionSession returns the transaction session by sessionID
func (s *transactionService) GetTransactionSession(sessionID string) (*models.TransactionSession, error) {
	var session models.TransactionSession
	err := s.db.Where("id = ?", sessionID).Preload("Chain").First(&session).Error
	if err != nil {
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// UpdateTransactionSession updates the transaction session by sessionID
func (s *transactionService) UpdateTransactionSession(sessionID string, session *models.TransactionSession) error {
	session.ID = sessionID
	session.UpdatedAt = time.Now()

	return s.db.Model(&models.TransactionSession{ID: sessionID}).
		Select("metadata", "transaction_status", "transaction_deployments", "updated_at").
		Updates(session).Error
}

func (s *transactionService) UpdateTransactionDeploymentStatus(sessionID string, index int, status models.TransactionStatus, txHash string) (*models.TransactionSession, error) {
	var updated *models.TransactionSession
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var session models.TransactionSession
		if err := tx.Where("id = ?", sessionID).Preload("Chain").First(&session).Error; err != nil {
			return err
		}
		if time.Now().After(session.ExpiresAt) {
			return ErrSessionExpired
		}
		if index < 0 || index >= len(session.TransactionDeployments) {
			return fmt.Errorf("transaction index %d out of range", index)
		}

		deployment := &session.TransactionDeployments[index]
		deployment.Status = status
		if txHash != "" {
			deployment.TransactionHash = txHash
		}
		session.TransactionStatus = aggregateSessionStatus(session.TransactionDeployments)
		session.UpdatedAt = time.Now()

		if err := tx.Model(&models.TransactionSession{ID: sessionID}).
			Select("transaction_status", "transaction_deployments", "updated_at").
			Updates(&session).Error; err != nil {
			return err
		}
		updated = &session
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}
	return updated, nil
}

// aggregateSessionStatus is failed if any transaction failed and confirmed once all are confirmed
func aggregateSessionStatus(deployments []models.TransactionDeployment) models.TransactionStatus {
	allConfirmed := true
	for _, deployment := range deployments {
		if deployment.Status == models.TransactionStatusFailed {
			return models.TransactionStatusFailed
		}
		if deployment.Status != models.TransactionStatusConfirmed {
			allConfirmed = false
		}
	}
	if allConfirmed {
		return models.TransactionStatusConfirmed
	}
	return models.TransactionStatusPending
}

// ListTransactionSessionsByUser returns all transaction sessions for a specific user
func (s *transactionService) ListTransactionSessionsByUser(userID string) ([]models.TransactionSession, error) {
	var sessions []models.TransactionSession
	err := s.db.Preload("Chain").Where("user_id = ?", userID).Find(&sessions).Error
	return sessions, err
}
