package repositories

import (
	"fmt"

	"clarify-engine/internal/models"

	"gorm.io/gorm"
)

// accountDataRepository implements AccountDataRepositoryInterface. All four
// dictionaries are owned by the account layer and read here for matching.
type accountDataRepository struct {
	db *gorm.DB
}

// NewAccountDataRepository creates a new account data repository
func NewAccountDataRepository(db *gorm.DB) AccountDataRepositoryInterface {
	return &accountDataRepository{
		db: db,
	}
}

// GetAccounts retrieves all investment accounts
func (r *accountDataRepository) GetAccounts() ([]models.InvestmentAccount, error) {
	var accounts []models.InvestmentAccount
	if err := r.db.Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to get investment accounts: %w", err)
	}
	return accounts, nil
}

// GetLinkedNames retrieves all confirmed account name links
func (r *accountDataRepository) GetLinkedNames() ([]models.LinkedAccountName, error) {
	var names []models.LinkedAccountName
	if err := r.db.Find(&names).Error; err != nil {
		return nil, fmt.Errorf("failed to get linked account names: %w", err)
	}
	return names, nil
}

// GetKnownVendors retrieves all known vendor names
func (r *accountDataRepository) GetKnownVendors() ([]models.KnownVendor, error) {
	var vendors []models.KnownVendor
	if err := r.db.Find(&vendors).Error; err != nil {
		return nil, fmt.Errorf("failed to get known vendors: %w", err)
	}
	return vendors, nil
}

// GetRules retrieves all categorization rules
func (r *accountDataRepository) GetRules() ([]models.CategorizationRule, error) {
	var rules []models.CategorizationRule
	if err := r.db.Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to get categorization rules: %w", err)
	}
	return rules, nil
}
