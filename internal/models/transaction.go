package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SourceBank       = "bank"
	SourceCreditCard = "credit_card"
	SourceInvestment = "investment"
)

var (
	ErrInvalidSource     = errors.New("invalid transaction source")
	ErrMissingIdentifier = errors.New("transaction identifier is required")
	ErrMissingVendor     = errors.New("transaction vendor is required")
)

// Transaction is a transaction as recorded by the ingestion layer. The
// reconciliation engine reads transactions but never creates, updates or
// deletes them; only their resolution state (exclusions, confirmed
// duplicates) is owned here.
//
// Identity is the (Identifier, Vendor) pair, which is globally unique across
// sources. Amount is signed: negative values are debits.
type Transaction struct {
	Identifier    string          `gorm:"primaryKey;type:varchar(100)" json:"identifier"`
	Vendor        string          `gorm:"primaryKey;type:varchar(100)" json:"vendor"`
	Source        string          `gorm:"type:varchar(20);not null;index" json:"source"`
	Date          time.Time       `gorm:"not null;index" json:"date"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	CategoryID    *int64          `gorm:"index" json:"category_id,omitempty"`
	AccountNumber *string         `gorm:"type:varchar(50);index" json:"account_number,omitempty"`
}

// TableName returns the table name for Transaction
func (t *Transaction) TableName() string {
	return "transactions"
}

// TransactionRef identifies a transaction across detection passes.
type TransactionRef struct {
	Identifier string `json:"identifier"`
	Vendor     string `json:"vendor"`
}

// Ref returns the transaction's stable identity.
func (t *Transaction) Ref() TransactionRef {
	return TransactionRef{Identifier: t.Identifier, Vendor: t.Vendor}
}

// String renders the ref in "vendor/identifier" form for logs and error context.
func (r TransactionRef) String() string {
	return fmt.Sprintf("%s/%s", r.Vendor, r.Identifier)
}

// IsZero reports whether the ref is empty.
func (r TransactionRef) IsZero() bool {
	return r.Identifier == "" && r.Vendor == ""
}

// Validate checks the ref carries both identity components.
func (r TransactionRef) Validate() error {
	if r.Identifier == "" {
		return ErrMissingIdentifier
	}
	if r.Vendor == "" {
		return ErrMissingVendor
	}
	return nil
}

// IsDebit reports whether the transaction is an outflow.
func (t *Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// AbsAmount returns the unsigned amount.
func (t *Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// BillingMonth returns the first day of the transaction's calendar month in
// UTC. Credit-card aggregates are grouped by this value.
func (t *Transaction) BillingMonth() time.Time {
	return time.Date(t.Date.Year(), t.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// IsValidSource checks if the source is one of the known ingestion sources
func IsValidSource(source string) bool {
	switch source {
	case SourceBank, SourceCreditCard, SourceInvestment:
		return true
	default:
		return false
	}
}

// DaysApart returns the absolute whole-day distance between two dates.
func DaysApart(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
