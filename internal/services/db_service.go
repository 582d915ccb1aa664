package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DBService handles database connection and lifecycle management
type DBService interface {
	GetDB() *gorm.DB
	Close() error
}

type dbService struct {
	db *gorm.DB
}

func newGormConfig() *gorm.Config {
	// Only log errors and slow queries
	gormLogger := logger.New(
		logrus.StandardLogger(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
	return &gorm.Config{Logger: gormLogger}
}

// NewSqliteDBService opens (and creates) a SQLite database at dbPath. ":memory:" is accepted.
func NewSqliteDBService(dbPath string) (DBService, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), newGormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// sqlite allows a single writer and every ":memory:" connection is a separate database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return newDBService(db)
}

// NewPostgresDBService connects to the postgres database at postgresURL
func NewPostgresDBService(postgresURL string) (DBService, error) {
	if postgresURL == "" {
		return nil, fmt.Errorf("postgres URL is required")
	}

	db, err := gorm.Open(postgres.Open(postgresURL), newGormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newDBService(db)
}

func newDBService(db *gorm.DB) (DBService, error) {
	service := &dbService{db: db}
	if err := service.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return service, nil
}

// GetDB returns the underlying GORM database instance
func (s *dbService) GetDB() *gorm.DB {
	return s.db
}

func (s *dbService) migrate() error {
	return AutoMigrate(s.db)
}

// AutoMigrate creates the launchpad tables on db
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Chain{},
		&models.TransactionSession{},
		&models.DeploymentAttempt{},
		&models.Playlist{},
	)
}

// Close closes the database connection
func (s *dbService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
