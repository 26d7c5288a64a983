package repositories

import (
	"time"

	"clarify-engine/internal/models"

	"github.com/google/uuid"
)

// TransactionRepositoryInterface defines the read-only contract over the
// ingestion layer's transactions table. The engine never writes to it.
type TransactionRepositoryInterface interface {
	GetByRef(ref models.TransactionRef) (*models.Transaction, error)
	GetByRefs(refs []models.TransactionRef) ([]models.Transaction, error)
	GetBySource(source string, start, end time.Time) ([]models.Transaction, error)
	GetBankDebits(start, end time.Time) ([]models.Transaction, error)
	GetCreditCardCharges(start, end time.Time) ([]models.Transaction, error)
	CountByNameFragment(fragment string, since time.Time) (int64, error)
}

// PatternRepositoryInterface defines the contract for pattern repository operations
type PatternRepositoryInterface interface {
	Create(pattern *models.Pattern) error
	GetByID(id uuid.UUID) (*models.Pattern, error)
	GetAll(offset, limit int) ([]models.Pattern, int64, error)
	GetActive() ([]models.Pattern, error)
	Update(pattern *models.Pattern) error
	Delete(id uuid.UUID) error
	SetActive(id uuid.UUID, active bool) error
	IncrementMatchCount(id uuid.UUID) error
	ExistsByExpression(expression string) (bool, error)
}

// DuplicateRepositoryInterface defines the contract for confirmed duplicate
// repository operations. Writes that touch both a duplicate and its exclusion
// records are atomic.
type DuplicateRepositoryInterface interface {
	CreateWithExclusions(duplicate *models.ConfirmedDuplicate, exclusions []*models.ExclusionRecord) error
	GetByID(id uuid.UUID) (*models.ConfirmedDuplicate, error)
	GetByPair(a, b models.TransactionRef) (*models.ConfirmedDuplicate, error)
	GetAll(offset, limit int) ([]models.ConfirmedDuplicate, int64, error)
	GetForTransaction(ref models.TransactionRef) ([]models.ConfirmedDuplicate, error)
	DeleteWithExclusions(id uuid.UUID) error
}

// ExclusionRepositoryInterface defines the contract for exclusion repository operations
type ExclusionRepositoryInterface interface {
	Create(record *models.ExclusionRecord) error
	GetByTransaction(ref models.TransactionRef) (*models.ExclusionRecord, error)
	GetActive() ([]models.ExclusionRecord, error)
	GetManual() ([]models.ExclusionRecord, error)
	Update(record *models.ExclusionRecord) error
	Delete(id uuid.UUID) error
}

// DismissalRepositoryInterface defines the contract for link suggestion
// dismissal repository operations.
type DismissalRepositoryInterface interface {
	Upsert(dismissal *models.LinkSuggestionDismissal) error
	Get(accountID int64, nameFragment string) (*models.LinkSuggestionDismissal, error)
	GetCovering(accountID int64, name string) (*models.LinkSuggestionDismissal, error)
	Delete(id uuid.UUID) error
}

// AccountDataRepositoryInterface defines the read-only contract over the
// account layer's matching dictionaries.
type AccountDataRepositoryInterface interface {
	GetAccounts() ([]models.InvestmentAccount, error)
	GetLinkedNames() ([]models.LinkedAccountName, error)
	GetKnownVendors() ([]models.KnownVendor, error)
	GetRules() ([]models.CategorizationRule, error)
}
