package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ExclusionTypeManual    = "manual"
	ExclusionTypeDuplicate = "duplicate"
)

var (
	ErrInvalidExclusionType = errors.New("invalid exclusion type")
	ErrMissingOwner         = errors.New("duplicate exclusion requires an owning confirmed duplicate")
)

// ExclusionRecord ties a transaction to a resolution decision.
// Manual records are created and removed directly by the user and always
// carry IsExcluded=true.
// Duplicate records are owned by the confirmed-duplicate flow: one record
// exists per member transaction, created and deleted only together with
// their ConfirmedDuplicate, and the manual include/exclude path must never
// toggle them. IsExcluded marks the member whose amount leaves aggregate
// totals; the kept member's record has IsExcluded=false and only locks the
// transaction against further resolutions.
//
// The unique index over the transaction identity enforces that a transaction
// owns at most one active exclusion; it also serializes concurrent
// confirmations of the same transaction at the database.
type ExclusionRecord struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TransactionIdentifier string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_exclusion_txn" json:"transaction_identifier"`
	TransactionVendor     string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_exclusion_txn" json:"transaction_vendor"`
	IsExcluded            bool       `gorm:"not null" json:"is_excluded"`
	ExclusionType         string     `gorm:"type:varchar(20);not null" json:"exclusion_type"`
	ExclusionReason       string     `gorm:"type:varchar(255)" json:"exclusion_reason"`
	OverrideCategoryID    *int64     `json:"override_category_id,omitempty"`
	Notes                 string     `gorm:"type:text" json:"notes,omitempty"`
	ConfirmedDuplicateID  *uuid.UUID `gorm:"type:uuid;index" json:"confirmed_duplicate_id,omitempty"`
	CreatedAt             time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook for ExclusionRecord
func (e *ExclusionRecord) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return e.Validate()
}

// Validate validates the exclusion record fields
func (e *ExclusionRecord) Validate() error {
	if err := e.TransactionRef().Validate(); err != nil {
		return err
	}
	if !IsValidExclusionType(e.ExclusionType) {
		return ErrInvalidExclusionType
	}
	if e.ExclusionType == ExclusionTypeDuplicate && e.ConfirmedDuplicateID == nil {
		return ErrMissingOwner
	}
	return nil
}

// TransactionRef returns the excluded transaction's identity.
func (e *ExclusionRecord) TransactionRef() TransactionRef {
	return TransactionRef{Identifier: e.TransactionIdentifier, Vendor: e.TransactionVendor}
}

// IsDuplicateOwned reports whether the record belongs to a confirmed
// duplicate and may only be removed via unconfirm.
func (e *ExclusionRecord) IsDuplicateOwned() bool {
	return e.ExclusionType == ExclusionTypeDuplicate
}

// IsValidExclusionType checks if the exclusion type is valid
func IsValidExclusionType(exclusionType string) bool {
	switch exclusionType {
	case ExclusionTypeManual, ExclusionTypeDuplicate:
		return true
	default:
		return false
	}
}

// TableName returns the table name for ExclusionRecord
func (e *ExclusionRecord) TableName() string {
	return "transaction_exclusions"
}
