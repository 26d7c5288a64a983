package services

import (
	"testing"
	"time"

	"clarify-engine/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleDataGenerator_RepaymentSettlesCharges(t *testing.T) {
	generator := NewSampleDataGenerator(42)
	month := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	charges := generator.GenerateCreditCardCharges("max", 15, month)
	require.Len(t, charges, 15)

	total := decimal.Zero
	for _, charge := range charges {
		assert.Equal(t, models.SourceCreditCard, charge.Source)
		assert.True(t, charge.Amount.IsNegative())
		assert.Equal(t, month, charge.BillingMonth())
		total = total.Add(charge.AbsAmount())
	}

	debit := generator.GenerateRepaymentDebit(charges)
	assert.Equal(t, models.SourceBank, debit.Source)
	assert.True(t, debit.AbsAmount().Equal(total))
	assert.True(t, debit.Date.After(month.AddDate(0, 1, 0)))
}

func TestSampleDataGenerator_Deterministic(t *testing.T) {
	month := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	first := NewSampleDataGenerator(7).GenerateBankTransactions(10, month)
	second := NewSampleDataGenerator(7).GenerateBankTransactions(10, month)

	require.Len(t, first, 10)
	for i := range first {
		assert.Equal(t, first[i].Identifier, second[i].Identifier)
		assert.True(t, first[i].Amount.Equal(second[i].Amount))
	}
}
