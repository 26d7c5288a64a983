package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"clarify-engine/internal/models"

	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
)

// transactionRepository implements TransactionRepositoryInterface. It is a
// read-only view: the ingestion layer owns the table.
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepositoryInterface {
	return &transactionRepository{
		db: db,
	}
}

// GetByRef retrieves a transaction by its (identifier, vendor) identity
func (r *transactionRepository) GetByRef(ref models.TransactionRef) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := r.db.Where("identifier = ? AND vendor = ?", ref.Identifier, ref.Vendor).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &transaction, nil
}

// GetByRefs retrieves transactions for a set of identities. Missing refs are
// simply absent from the result; callers that need all refs present compare
// lengths.
func (r *transactionRepository) GetByRefs(refs []models.TransactionRef) ([]models.Transaction, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	// Row-value IN is not portable to sqlite, so build an OR chain.
	query := r.db
	for i, ref := range refs {
		cond := r.db.Where("identifier = ? AND vendor = ?", ref.Identifier, ref.Vendor)
		if i == 0 {
			query = query.Where(cond)
		} else {
			query = query.Or(cond)
		}
	}

	var transactions []models.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to get transactions by refs: %w", err)
	}
	return transactions, nil
}

// GetBySource retrieves transactions from one source within a date range
func (r *transactionRepository) GetBySource(source string, start, end time.Time) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := r.db.Where("source = ? AND date BETWEEN ? AND ?", source, start, end).
		Order("date ASC").
		Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to get transactions by source: %w", err)
	}
	return transactions, nil
}

// GetBankDebits retrieves bank outflows within a date range. Candidate bank
// legs of a credit-card repayment are always debits.
func (r *transactionRepository) GetBankDebits(start, end time.Time) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := r.db.Where("source = ? AND amount < 0 AND date BETWEEN ? AND ?",
		models.SourceBank, start, end).
		Order("date ASC").
		Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to get bank debits: %w", err)
	}
	return transactions, nil
}

// GetCreditCardCharges retrieves credit-card transactions within a date range
func (r *transactionRepository) GetCreditCardCharges(start, end time.Time) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := r.db.Where("source = ? AND date BETWEEN ? AND ?",
		models.SourceCreditCard, start, end).
		Order("date ASC").
		Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to get credit card charges: %w", err)
	}
	return transactions, nil
}

// CountByNameFragment counts transactions since a point in time whose name
// contains the fragment, case-insensitively. Dismissed link suggestions use
// this to decide when a suggestion has earned a reappearance.
func (r *transactionRepository) CountByNameFragment(fragment string, since time.Time) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Transaction{}).
		Where("LOWER(name) LIKE ? AND date >= ?", "%"+strings.ToLower(fragment)+"%", since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count transactions by name fragment: %w", err)
	}
	return count, nil
}
