package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidMatchType  = errors.New("invalid match type")
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
	ErrSameTransaction   = errors.New("a transaction cannot duplicate itself")
)

// ConfirmedDuplicate records a user-confirmed decision that two transactions
// represent the same financial event. The two owned duplicate-type
// ExclusionRecords are created and deleted together with this record.
type ConfirmedDuplicate struct {
	ID                     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Transaction1Identifier string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_confirmed_pair" json:"transaction1_identifier"`
	Transaction1Vendor     string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_confirmed_pair" json:"transaction1_vendor"`
	Transaction2Identifier string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_confirmed_pair" json:"transaction2_identifier"`
	Transaction2Vendor     string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_confirmed_pair" json:"transaction2_vendor"`
	MatchType              string    `gorm:"type:varchar(30);not null" json:"match_type"`
	Confidence             float64   `gorm:"not null" json:"confidence"`
	ConfirmedAt            time.Time `gorm:"not null" json:"confirmed_at"`
}

// BeforeCreate hook for ConfirmedDuplicate
func (d *ConfirmedDuplicate) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.ConfirmedAt.IsZero() {
		d.ConfirmedAt = time.Now().UTC()
	}
	return d.Validate()
}

// Validate validates the confirmed duplicate fields
func (d *ConfirmedDuplicate) Validate() error {
	if err := d.Transaction1().Validate(); err != nil {
		return err
	}
	if err := d.Transaction2().Validate(); err != nil {
		return err
	}
	if d.Transaction1() == d.Transaction2() {
		return ErrSameTransaction
	}
	if !IsValidMatchType(d.MatchType) {
		return ErrInvalidMatchType
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return ErrInvalidConfidence
	}
	return nil
}

// Transaction1 returns the first member's ref.
func (d *ConfirmedDuplicate) Transaction1() TransactionRef {
	return TransactionRef{Identifier: d.Transaction1Identifier, Vendor: d.Transaction1Vendor}
}

// Transaction2 returns the second member's ref.
func (d *ConfirmedDuplicate) Transaction2() TransactionRef {
	return TransactionRef{Identifier: d.Transaction2Identifier, Vendor: d.Transaction2Vendor}
}

// Covers reports whether ref is a member of this confirmed pair.
func (d *ConfirmedDuplicate) Covers(ref TransactionRef) bool {
	return d.Transaction1() == ref || d.Transaction2() == ref
}

// CanonicalPair orders two refs deterministically so a pair is stored the
// same way regardless of which member the user confirmed first.
func CanonicalPair(a, b TransactionRef) (TransactionRef, TransactionRef) {
	if a.Vendor < b.Vendor || (a.Vendor == b.Vendor && a.Identifier < b.Identifier) {
		return a, b
	}
	return b, a
}

// TableName returns the table name for ConfirmedDuplicate
func (d *ConfirmedDuplicate) TableName() string {
	return "confirmed_duplicates"
}
