package services

import (
	"fmt"
	"time"

	"clarify-engine/internal/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
)

// sampleDataGenerator produces realistic transaction fixtures: ordinary bank
// activity, a month of card charges and the debit that settles them. Used by
// development seeding and tests.
type sampleDataGenerator struct {
	faker *gofakeit.Faker
}

// NewSampleDataGenerator creates a generator. The seed makes output
// reproducible; pass 0 for random.
func NewSampleDataGenerator(seed uint64) SampleDataGeneratorInterface {
	return &sampleDataGenerator{
		faker: gofakeit.New(seed),
	}
}

// GenerateBankTransactions produces count bank transactions spread over the
// given month, a mix of debits and the occasional credit.
func (g *sampleDataGenerator) GenerateBankTransactions(count int, month time.Time) []models.Transaction {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Hour)

	txns := make([]models.Transaction, 0, count)
	for i := 0; i < count; i++ {
		amount := decimal.NewFromFloat(g.faker.Price(20, 2000)).Neg()
		if g.faker.Number(0, 9) == 0 {
			amount = amount.Neg()
		}
		txns = append(txns, models.Transaction{
			Identifier: fmt.Sprintf("bank-%s", g.faker.UUID()),
			Vendor:     "discount",
			Source:     models.SourceBank,
			Date:       g.faker.DateRange(start, end),
			Amount:     amount,
			Name:       g.faker.Company(),
		})
	}
	return txns
}

// GenerateCreditCardCharges produces count card charges for one vendor inside
// the given billing month.
func (g *sampleDataGenerator) GenerateCreditCardCharges(vendor string, count int, month time.Time) []models.Transaction {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Hour)
	account := g.faker.Numerify("####")

	txns := make([]models.Transaction, 0, count)
	for i := 0; i < count; i++ {
		txns = append(txns, models.Transaction{
			Identifier:    fmt.Sprintf("cc-%s", g.faker.UUID()),
			Vendor:        vendor,
			Source:        models.SourceCreditCard,
			Date:          g.faker.DateRange(start, end),
			Amount:        decimal.NewFromFloat(g.faker.Price(10, 600)).Neg(),
			Name:          g.faker.Company(),
			AccountNumber: &account,
		})
	}
	return txns
}

// GenerateRepaymentDebit produces the bank debit that settles the given
// charges: the exact aggregate total, dated shortly after the billing month
// ends.
func (g *sampleDataGenerator) GenerateRepaymentDebit(charges []models.Transaction) models.Transaction {
	total := decimal.Zero
	month := time.Now().UTC()
	vendor := "card"
	for _, txn := range charges {
		total = total.Add(txn.AbsAmount())
		month = txn.BillingMonth()
		vendor = txn.Vendor
	}

	settleDate := month.AddDate(0, 1, g.faker.Number(2, 8))
	return models.Transaction{
		Identifier: fmt.Sprintf("bank-%s", g.faker.UUID()),
		Vendor:     "discount",
		Source:     models.SourceBank,
		Date:       settleDate,
		Amount:     total.Neg(),
		Name:       fmt.Sprintf("%s payment", vendor),
	}
}
