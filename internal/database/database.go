package database

import (
	"fmt"
	"time"

	"clarify-engine/internal/config"
	"clarify-engine/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	*gorm.DB
	config *config.DatabaseConfig
}

func New(cfg *config.DatabaseConfig) (*DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		DB:     db,
		config: cfg,
	}, nil
}

// AutoMigrate creates the engine-owned tables plus the read-side tables the
// ingestion and account layers populate (needed for local and test setups).
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&models.Transaction{},
		&models.ConfirmedDuplicate{},
		&models.ExclusionRecord{},
		&models.Pattern{},
		&models.InvestmentAccount{},
		&models.CategorizationRule{},
		&models.KnownVendor{},
		&models.LinkedAccountName{},
		&models.LinkSuggestionDismissal{},
	)
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) HealthCheck() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (db *DB) Transaction(fn func(*gorm.DB) error) error {
	return db.DB.Transaction(fn)
}

// CreateIndexes adds the indexes the detection queries lean on beyond what
// AutoMigrate derives from struct tags.
func (db *DB) CreateIndexes() error {
	queries := []string{
		"CREATE INDEX IF NOT EXISTS idx_transactions_source_date ON transactions(source, date)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_vendor_account ON transactions(vendor, account_number)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_name ON transactions(name)",
		"CREATE INDEX IF NOT EXISTS idx_exclusions_active ON transaction_exclusions(is_excluded) WHERE is_excluded",
		"CREATE INDEX IF NOT EXISTS idx_patterns_active ON patterns(is_active) WHERE is_active",
	}

	for _, query := range queries {
		if err := db.Exec(query).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
