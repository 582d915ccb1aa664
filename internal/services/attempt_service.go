package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"gorm.io/gorm"
)

// AttemptFilter narrows ListAttempts. Zero values match everything.
type AttemptFilter struct {
	OwnerAddress string
	ChainID      uint64
	Status       models.AttemptStatus
	Limit        int
}

// AttemptService persists deployment attempts and enforces their state machine
type AttemptService interface {
	CreateAttempt(attempt *models.DeploymentAttempt) error
	GetAttempt(id string) (*models.DeploymentAttempt, error)
	GetAttemptBySessionID(sessionID string) (*models.DeploymentAttempt, error)
	ListAttempts(filter AttemptFilter) ([]models.DeploymentAttempt, error)
	SetSessionID(id string, sessionID string) error
	// Transition moves the attempt to status after validating the move. mutate, when set, may change
	// other fields of the row inside the same database transaction.
	Transition(id string, status models.AttemptStatus, mutate func(attempt *models.DeploymentAttempt)) (*models.DeploymentAttempt, error)
	UpdateReferralStatus(id string, status models.ReferralStatus) error
}

type attemptService struct {
	db *gorm.DB
}

func NewAttemptService(db *gorm.DB) AttemptService {
	return &attemptService{db: db}
}

func (s *attemptService) CreateAttempt(attempt *models.DeploymentAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.Status == "" {
		attempt.Status = models.AttemptStatusIdle
	}
	if err := s.db.Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create deployment attempt: %w", err)
	}
	return nil
}

func (s *attemptService) GetAttempt(id string) (*models.DeploymentAttempt, error) {
	return findAttempt(s.db, "id = ?", id)
}

func (s *attemptService) GetAttemptBySessionID(sessionID string) (*models.DeploymentAttempt, error) {
	return findAttempt(s.db, "session_id = ?", sessionID)
}

func findAttempt(db *gorm.DB, query string, arg interface{}) (*models.DeploymentAttempt, error) {
	var attempt models.DeploymentAttempt
	if err := db.Where(query, arg).First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get deployment attempt: %w", err)
	}
	return &attempt, nil
}

func (s *attemptService) ListAttempts(filter AttemptFilter) ([]models.DeploymentAttempt, error) {
	query := s.db.Model(&models.DeploymentAttempt{})
	if filter.OwnerAddress != "" {
		query = query.Where("LOWER(owner_address) = LOWER(?)", filter.OwnerAddress)
	}
	if filter.ChainID != 0 {
		query = query.Where("chain_id = ?", filter.ChainID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var attempts []models.DeploymentAttempt
	if err := query.Order("created_at desc").Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list deployment attempts: %w", err)
	}
	return attempts, nil
}

func (s *attemptService) SetSessionID(id string, sessionID string) error {
	result := s.db.Model(&models.DeploymentAttempt{}).Where("id = ?", id).Update("session_id", sessionID)
	if result.Error != nil {
		return fmt.Errorf("failed to link session to attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

func (s *attemptService) Transition(id string, status models.AttemptStatus, mutate func(attempt *models.DeploymentAttempt)) (*models.DeploymentAttempt, error) {
	var updated models.DeploymentAttempt
	err := s.db.Transaction(func(tx *gorm.DB) error {
		attempt, err := findAttempt(tx, "id = ?", id)
		if err != nil {
			return err
		}
		if !attempt.Status.CanTransition(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, attempt.Status, status)
		}

		attempt.Status = status
		if mutate != nil {
			mutate(attempt)
		}
		// mutate cannot change identity or status
		attempt.ID = id
		attempt.Status = status

		if err := tx.Save(attempt).Error; err != nil {
			return fmt.Errorf("failed to save deployment attempt: %w", err)
		}
		updated = *attempt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *attemptService) UpdateReferralStatus(id string, status models.ReferralStatus) error {
	result := s.db.Model(&models.DeploymentAttempt{}).Where("id = ?", id).Update("referral_status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update referral status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAttemptNotFound
	}
	return nil
}
