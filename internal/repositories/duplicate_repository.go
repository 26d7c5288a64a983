package repositories

import (
	"errors"
	"fmt"

	"clarify-engine/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrDuplicateNotFound   = errors.New("confirmed duplicate not found")
	ErrDuplicatePairExists = errors.New("pair is already confirmed")
	ErrMemberConfirmed     = errors.New("transaction already belongs to a confirmed duplicate")
)

// duplicateRepository implements DuplicateRepositoryInterface
type duplicateRepository struct {
	db *gorm.DB
}

// NewDuplicateRepository creates a new confirmed duplicate repository
func NewDuplicateRepository(db *gorm.DB) DuplicateRepositoryInterface {
	return &duplicateRepository{
		db: db,
	}
}

// CreateWithExclusions creates a confirmed duplicate and its owned exclusion
// records, one per member, in one database transaction. Manual exclusions
// already covering any member are superseded: they are deleted inside the
// same transaction so the unique index on the exclusion identity admits the
// new duplicate-owned records. The same unique index rejects a concurrent
// confirmation of a member into another pair, surfaced as ErrMemberConfirmed.
func (r *duplicateRepository) CreateWithExclusions(duplicate *models.ConfirmedDuplicate, exclusions []*models.ExclusionRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(duplicate).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicatePairExists
			}
			return fmt.Errorf("failed to create confirmed duplicate: %w", err)
		}

		for _, exclusion := range exclusions {
			if err := tx.Where(
				"transaction_identifier = ? AND transaction_vendor = ? AND exclusion_type = ?",
				exclusion.TransactionIdentifier, exclusion.TransactionVendor, models.ExclusionTypeManual,
			).Delete(&models.ExclusionRecord{}).Error; err != nil {
				return fmt.Errorf("failed to supersede manual exclusion: %w", err)
			}

			exclusion.ConfirmedDuplicateID = &duplicate.ID
			if err := tx.Create(exclusion).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrMemberConfirmed
				}
				return fmt.Errorf("failed to create exclusion record: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves a confirmed duplicate by ID
func (r *duplicateRepository) GetByID(id uuid.UUID) (*models.ConfirmedDuplicate, error) {
	var duplicate models.ConfirmedDuplicate
	if err := r.db.Where("id = ?", id).First(&duplicate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDuplicateNotFound
		}
		return nil, fmt.Errorf("failed to get confirmed duplicate: %w", err)
	}
	return &duplicate, nil
}

// GetByPair retrieves the confirmation covering a pair, in either member
// order.
func (r *duplicateRepository) GetByPair(a, b models.TransactionRef) (*models.ConfirmedDuplicate, error) {
	first, second := models.CanonicalPair(a, b)

	var duplicate models.ConfirmedDuplicate
	err := r.db.Where(
		"transaction1_identifier = ? AND transaction1_vendor = ? AND transaction2_identifier = ? AND transaction2_vendor = ?",
		first.Identifier, first.Vendor, second.Identifier, second.Vendor,
	).First(&duplicate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDuplicateNotFound
		}
		return nil, fmt.Errorf("failed to get confirmed duplicate by pair: %w", err)
	}
	return &duplicate, nil
}

// GetAll retrieves confirmed duplicates with pagination
func (r *duplicateRepository) GetAll(offset, limit int) ([]models.ConfirmedDuplicate, int64, error) {
	var duplicates []models.ConfirmedDuplicate
	var total int64

	if err := r.db.Model(&models.ConfirmedDuplicate{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count confirmed duplicates: %w", err)
	}

	if err := r.db.Offset(offset).Limit(limit).
		Order("confirmed_at DESC").
		Find(&duplicates).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get confirmed duplicates: %w", err)
	}

	return duplicates, total, nil
}

// GetForTransaction retrieves every confirmation a transaction participates in
func (r *duplicateRepository) GetForTransaction(ref models.TransactionRef) ([]models.ConfirmedDuplicate, error) {
	var duplicates []models.ConfirmedDuplicate
	err := r.db.Where(
		"(transaction1_identifier = ? AND transaction1_vendor = ?) OR (transaction2_identifier = ? AND transaction2_vendor = ?)",
		ref.Identifier, ref.Vendor, ref.Identifier, ref.Vendor,
	).Find(&duplicates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get confirmed duplicates for transaction: %w", err)
	}
	return duplicates, nil
}

// DeleteWithExclusions deletes a confirmed duplicate and the exclusion records
// it owns, atomically. Manual exclusions on the same transactions survive.
func (r *duplicateRepository) DeleteWithExclusions(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("confirmed_duplicate_id = ?", id).
			Delete(&models.ExclusionRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete owned exclusions: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&models.ConfirmedDuplicate{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete confirmed duplicate: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrDuplicateNotFound
		}
		return nil
	})
}
