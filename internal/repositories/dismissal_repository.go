package repositories

import (
	"errors"
	"fmt"
	"strings"

	"clarify-engine/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDismissalNotFound = errors.New("link suggestion dismissal not found")
)

// dismissalRepository implements DismissalRepositoryInterface
type dismissalRepository struct {
	db *gorm.DB
}

// NewDismissalRepository creates a new dismissal repository
func NewDismissalRepository(db *gorm.DB) DismissalRepositoryInterface {
	return &dismissalRepository{
		db: db,
	}
}

// Upsert records a dismissal, refreshing the transaction count and timestamp
// when the (account, fragment) pair was dismissed before.
func (r *dismissalRepository) Upsert(dismissal *models.LinkSuggestionDismissal) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "name_fragment"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"transaction_count", "dismissed_at",
		}),
	}).Create(dismissal).Error
	if err != nil {
		return fmt.Errorf("failed to upsert dismissal: %w", err)
	}
	return nil
}

// Get retrieves a dismissal by its (account, fragment) identity
func (r *dismissalRepository) Get(accountID int64, nameFragment string) (*models.LinkSuggestionDismissal, error) {
	var dismissal models.LinkSuggestionDismissal
	err := r.db.Where("account_id = ? AND name_fragment = ?", accountID, nameFragment).
		First(&dismissal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDismissalNotFound
		}
		return nil, fmt.Errorf("failed to get dismissal: %w", err)
	}
	return &dismissal, nil
}

// GetCovering retrieves the dismissal whose fragment the given name contains,
// case-insensitively. This is the lookup the suggestion surface uses: a
// dismissal of "menora pension" covers "Menora Pension Deposit".
func (r *dismissalRepository) GetCovering(accountID int64, name string) (*models.LinkSuggestionDismissal, error) {
	var dismissal models.LinkSuggestionDismissal
	err := r.db.Where(
		"account_id = ? AND ? LIKE ('%' || LOWER(name_fragment) || '%')",
		accountID, strings.ToLower(name),
	).First(&dismissal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDismissalNotFound
		}
		return nil, fmt.Errorf("failed to get covering dismissal: %w", err)
	}
	return &dismissal, nil
}

// Delete removes a dismissal, letting the suggestion surface again
func (r *dismissalRepository) Delete(id uuid.UUID) error {
	result := r.db.Where("id = ?", id).Delete(&models.LinkSuggestionDismissal{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete dismissal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDismissalNotFound
	}
	return nil
}
