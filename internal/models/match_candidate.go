package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Match types for candidates and confirmed duplicates.
const (
	MatchTypeCreditCardPayment = "credit_card_payment"
	MatchTypeRent              = "rent"
	MatchTypeInvestment        = "investment"
	MatchTypeLoan              = "loan"
	MatchTypeTransfer          = "transfer"
	MatchTypeRefund            = "refund"
	MatchTypeManual            = "manual"
)

// IsValidMatchType checks if the match type is one of the known types
func IsValidMatchType(matchType string) bool {
	switch matchType {
	case MatchTypeCreditCardPayment, MatchTypeRent, MatchTypeInvestment,
		MatchTypeLoan, MatchTypeTransfer, MatchTypeRefund, MatchTypeManual:
		return true
	default:
		return false
	}
}

// PairingRequired reports whether candidates of this type must carry a
// counterpart transaction. Relabel-only types (investment, refund) may be
// emitted as singletons.
func PairingRequired(matchType string) bool {
	switch matchType {
	case MatchTypeRent, MatchTypeLoan, MatchTypeTransfer:
		return true
	default:
		return false
	}
}

// CreditCardAggregate is the sum of one card's transactions over a billing
// cycle, matched against the single bank debit that settles it. Derived on
// each detection pass, never persisted.
type CreditCardAggregate struct {
	Vendor             string          `json:"vendor"`
	AccountNumber      *string         `json:"account_number,omitempty"`
	Month              time.Time       `json:"month"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	TransactionCount   int             `json:"transaction_count"`
	DateRangeStart     time.Time       `json:"date_range_start"`
	DateRangeEnd       time.Time       `json:"date_range_end"`
	SampleTransactions []Transaction   `json:"sample_transactions"`
}

// Representative returns the ref that stands in for the aggregate when a
// credit-card-payment match is confirmed. The individual card line items stay
// visible for drill-down; only this sample and the bank debit are excluded.
func (a *CreditCardAggregate) Representative() TransactionRef {
	if len(a.SampleTransactions) == 0 {
		return TransactionRef{}
	}
	return a.SampleTransactions[0].Ref()
}

// TransactionPair holds the two members of a pairwise candidate.
type TransactionPair struct {
	First  Transaction `json:"first"`
	Second Transaction `json:"second"`
}

// AggregateMatch holds the members of a credit-card-payment candidate.
type AggregateMatch struct {
	Aggregate       CreditCardAggregate `json:"aggregate"`
	BankTransaction Transaction         `json:"bank_transaction"`
}

// MatchCandidate is an unconfirmed suggestion that its members represent a
// single financial event, or that a transaction should be relabelled.
// Candidates are recomputed on every detection pass and carry no identity of
// their own; exactly one of Pair, Aggregate or Singleton is set, selected by
// Type.
type MatchCandidate struct {
	Type             string           `json:"type"`
	Confidence       float64          `json:"confidence"`
	Pair             *TransactionPair `json:"pair,omitempty"`
	Aggregate        *AggregateMatch  `json:"aggregate,omitempty"`
	Singleton        *Transaction     `json:"singleton,omitempty"`
	AmountDifference decimal.Decimal  `json:"amount_difference"`
	DaysApart        int              `json:"days_apart"`
	Description      string           `json:"description"`
	PatternID        *string          `json:"pattern_id,omitempty"`
}

// Members returns the refs of all transactions the candidate covers. For
// aggregate candidates this is the bank debit plus the aggregate
// representative.
func (c *MatchCandidate) Members() []TransactionRef {
	switch {
	case c.Pair != nil:
		return []TransactionRef{c.Pair.First.Ref(), c.Pair.Second.Ref()}
	case c.Aggregate != nil:
		return []TransactionRef{
			c.Aggregate.BankTransaction.Ref(),
			c.Aggregate.Aggregate.Representative(),
		}
	case c.Singleton != nil:
		return []TransactionRef{c.Singleton.Ref()}
	default:
		return nil
	}
}

// SortCandidates orders candidates by descending confidence, breaking ties by
// smallest amount difference then smallest day gap so output is stable across
// passes over the same inputs.
func SortCandidates(candidates []MatchCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		if !candidates[i].AmountDifference.Equal(candidates[j].AmountDifference) {
			return candidates[i].AmountDifference.LessThan(candidates[j].AmountDifference)
		}
		return candidates[i].DaysApart < candidates[j].DaysApart
	})
}
