package repositories

import (
	"errors"
	"fmt"

	"clarify-engine/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrPatternNotFound = errors.New("pattern not found")
)

// patternRepository implements PatternRepositoryInterface
type patternRepository struct {
	db *gorm.DB
}

// NewPatternRepository creates a new pattern repository
func NewPatternRepository(db *gorm.DB) PatternRepositoryInterface {
	return &patternRepository{
		db: db,
	}
}

// Create creates a new pattern
func (r *patternRepository) Create(pattern *models.Pattern) error {
	if err := r.db.Create(pattern).Error; err != nil {
		return fmt.Errorf("failed to create pattern: %w", err)
	}
	return nil
}

// GetByID retrieves a pattern by ID
func (r *patternRepository) GetByID(id uuid.UUID) (*models.Pattern, error) {
	var pattern models.Pattern
	if err := r.db.Where("id = ?", id).First(&pattern).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatternNotFound
		}
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}
	return &pattern, nil
}

// GetAll retrieves patterns with pagination
func (r *patternRepository) GetAll(offset, limit int) ([]models.Pattern, int64, error) {
	var patterns []models.Pattern
	var total int64

	if err := r.db.Model(&models.Pattern{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count patterns: %w", err)
	}

	if err := r.db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&patterns).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get patterns: %w", err)
	}

	return patterns, total, nil
}

// GetActive retrieves all active patterns, most-matched first so that the
// detection pass tries the historically productive ones before the long tail.
func (r *patternRepository) GetActive() ([]models.Pattern, error) {
	var patterns []models.Pattern
	if err := r.db.Where("is_active = ?", true).
		Order("match_count DESC, created_at ASC").
		Find(&patterns).Error; err != nil {
		return nil, fmt.Errorf("failed to get active patterns: %w", err)
	}
	return patterns, nil
}

// Update updates a pattern
func (r *patternRepository) Update(pattern *models.Pattern) error {
	result := r.db.Model(&models.Pattern{}).
		Where("id = ?", pattern.ID).
		Updates(map[string]interface{}{
			"name":                 pattern.Name,
			"expression":           pattern.Expression,
			"match_type":           pattern.MatchType,
			"override_category_id": pattern.OverrideCategoryID,
			"confidence":           pattern.Confidence,
			"is_active":            pattern.IsActive,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update pattern: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPatternNotFound
	}
	return nil
}

// Delete deletes a pattern
func (r *patternRepository) Delete(id uuid.UUID) error {
	result := r.db.Where("id = ?", id).Delete(&models.Pattern{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete pattern: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPatternNotFound
	}
	return nil
}

// SetActive toggles a pattern's active flag
func (r *patternRepository) SetActive(id uuid.UUID, active bool) error {
	result := r.db.Model(&models.Pattern{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to set pattern active flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPatternNotFound
	}
	return nil
}

// IncrementMatchCount bumps a pattern's match counter atomically
func (r *patternRepository) IncrementMatchCount(id uuid.UUID) error {
	result := r.db.Model(&models.Pattern{}).
		Where("id = ?", id).
		Update("match_count", gorm.Expr("match_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment match count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPatternNotFound
	}
	return nil
}

// ExistsByExpression checks whether any pattern already carries the expression
func (r *patternRepository) ExistsByExpression(expression string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Pattern{}).
		Where("expression = ?", expression).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check pattern expression: %w", err)
	}
	return count > 0, nil
}
