package services

import (
	"errors"
	"fmt"

	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlaylistFilter struct {
	OwnerAddress string
	ChainID      uint64
	Limit        int
	Offset       int
}

type PlaylistService interface {
	// CreatePlaylist stores a deployed playlist. Saving the same contract address twice keeps the first row.
	CreatePlaylist(playlist *models.Playlist) error
	GetPlaylistByAddress(contractAddress string) (*models.Playlist, error)
	GetPlaylistByAttemptID(attemptID string) (*models.Playlist, error)
	ListPlaylists(filter PlaylistFilter) ([]models.Playlist, error)
}

type playlistService struct {
	db *gorm.DB
}

func NewPlaylistService(db *gorm.DB) PlaylistService {
	return &playlistService{db: db}
}

func (s *playlistService) CreatePlaylist(playlist *models.Playlist) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contract_address"}},
		DoNothing: true,
	}).Create(playlist).Error
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}
	return nil
}

func (s *playlistService) GetPlaylistByAddress(contractAddress string) (*models.Playlist, error) {
	var playlist models.Playlist
	err := s.db.Where("LOWER(contract_address) = LOWER(?)", contractAddress).First(&playlist).Error
	if err != nil {
		return nil, err
	}
	return &playlist, nil
}

func (s *playlistService) GetPlaylistByAttemptID(attemptID string) (*models.Playlist, error) {
	var playlist models.Playlist
	err := s.db.Where("attempt_id = ?", attemptID).First(&playlist).Error
	if err != nil {
		return nil, err
	}
	return &playlist, nil
}

func (s *playlistService) ListPlaylists(filter PlaylistFilter) ([]models.Playlist, error) {
	query := s.db.Model(&models.Playlist{})
	if filter.OwnerAddress != "" {
		query = query.Where("LOWER(owner_address) = LOWER(?)", filter.OwnerAddress)
	}
	if filter.ChainID != 0 {
		query = query.Where("chain_id = ?", filter.ChainID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var playlists []models.Playlist
	if err := query.Order("created_at desc").Find(&playlists).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.Playlist{}, nil
		}
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, nil
}
