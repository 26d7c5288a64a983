package database

import (
	"fmt"
	"testing"
	"time"

	"clarify-engine/internal/config"
	"clarify-engine/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), gormConfig)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	testDB := &DB{
		DB: db,
		config: &config.DatabaseConfig{
			MaxConnections: 1,
			MaxIdleConns:   1,
		},
	}

	if err := testDB.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return testDB
}

func CreateTestTransaction(t *testing.T, db *DB, identifier, vendor, source, name string, amount float64, date time.Time) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		Identifier: identifier,
		Vendor:     vendor,
		Source:     source,
		Date:       date,
		Amount:     decimal.NewFromFloat(amount),
		Name:       name,
	}

	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}

	return txn
}

func CreateTestPattern(t *testing.T, db *DB, name, expression, matchType string, userDefined bool) *models.Pattern {
	t.Helper()

	pattern := &models.Pattern{
		Name:          name,
		Expression:    expression,
		MatchType:     matchType,
		Confidence:    0.8,
		IsUserDefined: userDefined,
		IsActive:      true,
	}

	if err := db.Create(pattern).Error; err != nil {
		t.Fatalf("failed to create test pattern: %v", err)
	}

	return pattern
}

func CreateTestAccount(t *testing.T, db *DB, name, accountType string) *models.InvestmentAccount {
	t.Helper()

	account := &models.InvestmentAccount{
		Name: name,
		Type: accountType,
	}

	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}

	return account
}

func CleanupTestDB(t *testing.T, db *DB) {
	t.Helper()

	tables := []string{
		"transaction_exclusions",
		"confirmed_duplicates",
		"patterns",
		"link_suggestion_dismissals",
		"linked_account_names",
		"known_vendors",
		"categorization_rules",
		"investment_accounts",
		"transactions",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			t.Logf("failed to cleanup table %s: %v", table, err)
		}
	}
}
