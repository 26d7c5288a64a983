package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Investment account types used by the type-specific name dictionaries.
const (
	AccountTypePension   = "pension"
	AccountTypeStudyFund = "study_fund"
	AccountTypeBrokerage = "brokerage"
	AccountTypeSavings   = "savings"
	AccountTypeProvident = "provident"
)

// InvestmentAccount is managed by the account layer; the engine consumes it
// read-only for fuzzy account matching.
type InvestmentAccount struct {
	ID   int64  `gorm:"primary_key" json:"id"`
	Name string `gorm:"type:varchar(255);not null" json:"name"`
	Type string `gorm:"type:varchar(30);not null" json:"type"`
}

// TableName returns the table name for InvestmentAccount
func (a *InvestmentAccount) TableName() string {
	return "investment_accounts"
}

// CategorizationRule is a rule from the external classifier, consumed here
// only for its name pattern during account matching.
type CategorizationRule struct {
	ID          int64  `gorm:"primary_key" json:"id"`
	NamePattern string `gorm:"type:varchar(255);not null" json:"name_pattern"`
	CategoryID  int64  `gorm:"not null" json:"category_id"`
}

// TableName returns the table name for CategorizationRule
func (r *CategorizationRule) TableName() string {
	return "categorization_rules"
}

// KnownVendor is a vendor/category name learned from categorized history.
type KnownVendor struct {
	Name       string `gorm:"primary_key;type:varchar(255)" json:"name"`
	CategoryID int64  `gorm:"not null" json:"category_id"`
}

// TableName returns the table name for KnownVendor
func (v *KnownVendor) TableName() string {
	return "known_vendors"
}

// LinkedAccountName is a confirmed account-to-transaction name link; a match
// against it is ground truth and outranks every heuristic tier.
type LinkedAccountName struct {
	Name      string `gorm:"primary_key;type:varchar(255)" json:"name"`
	AccountID int64  `gorm:"not null;index" json:"account_id"`
}

// TableName returns the table name for LinkedAccountName
func (l *LinkedAccountName) TableName() string {
	return "linked_account_names"
}

// Account match tiers, in priority order.
const (
	MatchTierLinkedAccount = "linked_account"
	MatchTierKnownVendor   = "known_vendor"
	MatchTierRule          = "categorization_rule"
	MatchTierTypePattern   = "type_pattern"
)

// AccountMatch is the result of fuzzy-matching a free-text account name.
type AccountMatch struct {
	Matched     bool    `json:"matched"`
	Tier        string  `json:"tier,omitempty"`
	CategoryID  *int64  `json:"category_id,omitempty"`
	AccountID   *int64  `json:"account_id,omitempty"`
	MatchedName string  `json:"matched_name,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	SourceCount int     `json:"source_count,omitempty"`
}

// LinkSuggestionDismissal persists a dismissed investment-account-link
// suggestion. The suggestion stays suppressed until ReappearThreshold new
// matching transactions accumulate past TransactionCount; ordinary duplicate
// dismissals are deliberately not persisted.
type LinkSuggestionDismissal struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	AccountID        int64     `gorm:"not null;uniqueIndex:idx_dismissal_account_name" json:"account_id"`
	NameFragment     string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_dismissal_account_name" json:"name_fragment"`
	TransactionCount int       `gorm:"not null" json:"transaction_count"`
	DismissedAt      time.Time `gorm:"not null" json:"dismissed_at"`
}

// BeforeCreate hook for LinkSuggestionDismissal
func (d *LinkSuggestionDismissal) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.DismissedAt.IsZero() {
		d.DismissedAt = time.Now().UTC()
	}
	return nil
}

// TableName returns the table name for LinkSuggestionDismissal
func (d *LinkSuggestionDismissal) TableName() string {
	return "link_suggestion_dismissals"
}
