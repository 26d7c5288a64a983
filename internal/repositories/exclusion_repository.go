package repositories

import (
	"errors"
	"fmt"

	"clarify-engine/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrExclusionNotFound = errors.New("exclusion record not found")
	ErrExclusionExists   = errors.New("transaction already has an exclusion record")
)

// exclusionRepository implements ExclusionRepositoryInterface
type exclusionRepository struct {
	db *gorm.DB
}

// NewExclusionRepository creates a new exclusion repository
func NewExclusionRepository(db *gorm.DB) ExclusionRepositoryInterface {
	return &exclusionRepository{
		db: db,
	}
}

// Create creates a new exclusion record. The unique index on the transaction
// identity keeps a transaction's resolution state single-valued.
func (r *exclusionRepository) Create(record *models.ExclusionRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrExclusionExists
		}
		return fmt.Errorf("failed to create exclusion record: %w", err)
	}
	return nil
}

// GetByTransaction retrieves the exclusion record covering a transaction
func (r *exclusionRepository) GetByTransaction(ref models.TransactionRef) (*models.ExclusionRecord, error) {
	var record models.ExclusionRecord
	err := r.db.Where("transaction_identifier = ? AND transaction_vendor = ?",
		ref.Identifier, ref.Vendor).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExclusionNotFound
		}
		return nil, fmt.Errorf("failed to get exclusion record: %w", err)
	}
	return &record, nil
}

// GetActive retrieves all exclusion records currently in force
func (r *exclusionRepository) GetActive() ([]models.ExclusionRecord, error) {
	var records []models.ExclusionRecord
	if err := r.db.Where("is_excluded = ?", true).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get active exclusions: %w", err)
	}
	return records, nil
}

// GetManual retrieves manual exclusion records. Pattern learning mines them
// for recurring name fragments.
func (r *exclusionRepository) GetManual() ([]models.ExclusionRecord, error) {
	var records []models.ExclusionRecord
	if err := r.db.Where("exclusion_type = ?", models.ExclusionTypeManual).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get manual exclusions: %w", err)
	}
	return records, nil
}

// Update updates an exclusion record
func (r *exclusionRepository) Update(record *models.ExclusionRecord) error {
	result := r.db.Model(&models.ExclusionRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"is_excluded":          record.IsExcluded,
			"exclusion_reason":     record.ExclusionReason,
			"override_category_id": record.OverrideCategoryID,
			"notes":                record.Notes,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update exclusion record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrExclusionNotFound
	}
	return nil
}

// Delete deletes an exclusion record
func (r *exclusionRepository) Delete(id uuid.UUID) error {
	result := r.db.Where("id = ?", id).Delete(&models.ExclusionRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete exclusion record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrExclusionNotFound
	}
	return nil
}
