package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"clarify-engine/internal/config"
	"clarify-engine/internal/models"
	"clarify-engine/internal/repositories"

	"github.com/shopspring/decimal"
)

const aggregateSampleSize = 3

// detectionService implements DetectionServiceInterface. A detection pass is
// pure: it reads transactions and resolution state and produces candidates,
// never writing anything.
type detectionService struct {
	transactions repositories.TransactionRepositoryInterface
	patterns     repositories.PatternRepositoryInterface
	exclusions   repositories.ExclusionRepositoryInterface
	duplicates   repositories.DuplicateRepositoryInterface
	scorer       ConfidenceScorerInterface
	cfg          config.ReconciliationConfig
	logger       *slog.Logger
	metrics      MetricsRecorderInterface
	audit        AuditLoggerInterface
}

// NewDetectionService creates a new detection service
func NewDetectionService(
	transactions repositories.TransactionRepositoryInterface,
	patterns repositories.PatternRepositoryInterface,
	exclusions repositories.ExclusionRepositoryInterface,
	duplicates repositories.DuplicateRepositoryInterface,
	scorer ConfidenceScorerInterface,
	cfg config.ReconciliationConfig,
	logger *slog.Logger,
	metrics MetricsRecorderInterface,
	audit AuditLoggerInterface,
) DetectionServiceInterface {
	return &detectionService{
		transactions: transactions,
		patterns:     patterns,
		exclusions:   exclusions,
		duplicates:   duplicates,
		scorer:       scorer,
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
		audit:        audit,
	}
}

// aggregatePair is one (aggregate, bank debit) combination that satisfies the
// amount and date tolerances, before the assignment phase.
type aggregatePair struct {
	aggregate  models.CreditCardAggregate
	bank       models.Transaction
	amountDiff decimal.Decimal
	daysApart  int
}

// DetectDuplicates runs all three strategies over the window and returns
// candidates sorted by descending confidence. Any storage error aborts the
// whole pass; partial output is never returned.
func (s *detectionService) DetectDuplicates(ctx context.Context, start, end time.Time) ([]models.MatchCandidate, error) {
	s.audit.LogDetectionStarted(ctx, start, end)
	began := time.Now()

	resolved, err := s.resolvedRefs()
	if err != nil {
		s.audit.LogDetectionFailed(ctx, err.Error())
		return nil, err
	}

	bankDebits, err := s.transactions.GetBankDebits(start, end)
	if err != nil {
		s.audit.LogDetectionFailed(ctx, err.Error())
		return nil, err
	}
	bankDebits = filterResolved(bankDebits, resolved)

	// Charges that a repayment inside the window settles belong to earlier
	// billing months, so the card fetch window reaches back two months.
	charges, err := s.transactions.GetCreditCardCharges(start.AddDate(0, -2, 0), end)
	if err != nil {
		s.audit.LogDetectionFailed(ctx, err.Error())
		return nil, err
	}
	charges = filterResolved(charges, resolved)

	var candidates []models.MatchCandidate
	usedBank := make(map[models.TransactionRef]bool)
	usedCard := make(map[models.TransactionRef]bool)

	aggregateCandidates, err := s.matchAggregates(ctx, charges, bankDebits, usedBank, usedCard)
	if err != nil {
		s.audit.LogDetectionFailed(ctx, err.Error())
		return nil, err
	}
	candidates = append(candidates, aggregateCandidates...)

	candidates = append(candidates, s.matchImmediateRepayments(charges, bankDebits, usedBank, usedCard)...)

	universe, err := s.loadUniverse(start, end, resolved)
	if err != nil {
		s.audit.LogDetectionFailed(ctx, err.Error())
		return nil, err
	}

	patternCandidates, patternMatched, err := s.matchPatterns(ctx, universe)
	if err != nil {
		s.audit.LogDetectionFailed(ctx, err.Error())
		return nil, err
	}
	candidates = append(candidates, patternCandidates...)

	candidates = append(candidates, s.matchManualHeuristic(universe, patternMatched, usedBank, usedCard)...)

	models.SortCandidates(candidates)

	s.metrics.RecordProcessingTime("detection.pass", time.Since(began))
	s.audit.LogDetectionCompleted(ctx, len(candidates), time.Since(began).Milliseconds())
	return candidates, nil
}

// DetectPatternMatches returns, for each active pattern, the unresolved
// transactions in the window it matches.
func (s *detectionService) DetectPatternMatches(ctx context.Context, start, end time.Time) ([]PatternMatchGroup, error) {
	resolved, err := s.resolvedRefs()
	if err != nil {
		return nil, err
	}

	universe, err := s.loadUniverse(start, end, resolved)
	if err != nil {
		return nil, err
	}

	active, err := s.patterns.GetActive()
	if err != nil {
		return nil, err
	}

	groups := make([]PatternMatchGroup, 0, len(active))
	for i := range active {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("detection aborted: %w", err)
		}

		var matches []models.Transaction
		for _, txn := range universe {
			if active[i].Matches(txn.Name) {
				matches = append(matches, txn)
			}
		}
		if len(matches) > 0 {
			groups = append(groups, PatternMatchGroup{Pattern: active[i], Matches: matches})
		}
	}
	return groups, nil
}

// resolvedRefs collects every transaction identity already covered by an
// active exclusion or a confirmed duplicate.
func (s *detectionService) resolvedRefs() (map[models.TransactionRef]bool, error) {
	resolved := make(map[models.TransactionRef]bool)

	exclusions, err := s.exclusions.GetActive()
	if err != nil {
		return nil, err
	}
	for _, record := range exclusions {
		resolved[record.TransactionRef()] = true
	}

	const pageSize = 500
	for offset := 0; ; offset += pageSize {
		duplicates, total, err := s.duplicates.GetAll(offset, pageSize)
		if err != nil {
			return nil, err
		}
		for _, d := range duplicates {
			resolved[d.Transaction1()] = true
			resolved[d.Transaction2()] = true
		}
		if int64(offset+pageSize) >= total {
			break
		}
	}

	return resolved, nil
}

func (s *detectionService) loadUniverse(start, end time.Time, resolved map[models.TransactionRef]bool) ([]models.Transaction, error) {
	var universe []models.Transaction
	for _, source := range []string{models.SourceBank, models.SourceCreditCard, models.SourceInvestment} {
		txns, err := s.transactions.GetBySource(source, start, end)
		if err != nil {
			return nil, err
		}
		universe = append(universe, filterResolved(txns, resolved)...)
	}
	return universe, nil
}

type aggregateKey struct {
	vendor  string
	account string
	month   time.Time
}

// matchAggregates implements the aggregate credit-card-payment strategy:
// card transactions grouped by (vendor, account, billing month), each group
// matched against bank debits near the cycle end. Group scanning fans out to
// a bounded worker pool; the assignment phase that enforces one aggregate per
// debit runs after fan-in.
func (s *detectionService) matchAggregates(
	ctx context.Context,
	charges, bankDebits []models.Transaction,
	usedBank, usedCard map[models.TransactionRef]bool,
) ([]models.MatchCandidate, error) {
	groups := make(map[aggregateKey][]models.Transaction)
	for _, txn := range charges {
		if !txn.IsDebit() {
			continue
		}
		key := aggregateKey{vendor: txn.Vendor, month: txn.BillingMonth()}
		if txn.AccountNumber != nil {
			key.account = *txn.AccountNumber
		}
		groups[key] = append(groups[key], txn)
	}

	pairCh := make(chan []aggregatePair, len(groups))
	semaphore := make(chan struct{}, s.cfg.MaxDetectWorkers)
	var wg sync.WaitGroup

	for key, members := range groups {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("detection aborted: %w", err)
		}

		wg.Add(1)
		semaphore <- struct{}{}
		go func(key aggregateKey, members []models.Transaction) {
			defer wg.Done()
			defer func() { <-semaphore }()
			pairCh <- s.scanAggregateGroup(key, members, bankDebits)
		}(key, members)
	}

	wg.Wait()
	close(pairCh)

	var pairs []aggregatePair
	for batch := range pairCh {
		pairs = append(pairs, batch...)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("detection aborted: %w", err)
	}

	// Assignment: closest settlement wins, ties broken by smaller amount
	// difference. Each bank debit settles at most one aggregate and each
	// aggregate is settled by at most one debit.
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].daysApart != pairs[j].daysApart {
			return pairs[i].daysApart < pairs[j].daysApart
		}
		return pairs[i].amountDiff.LessThan(pairs[j].amountDiff)
	})

	usedAggregate := make(map[aggregateKey]bool)
	var candidates []models.MatchCandidate
	for _, pair := range pairs {
		key := aggregateKey{vendor: pair.aggregate.Vendor, month: pair.aggregate.Month}
		if pair.aggregate.AccountNumber != nil {
			key.account = *pair.aggregate.AccountNumber
		}
		if usedBank[pair.bank.Ref()] || usedAggregate[key] {
			continue
		}
		usedBank[pair.bank.Ref()] = true
		usedAggregate[key] = true
		for _, sample := range pair.aggregate.SampleTransactions {
			usedCard[sample.Ref()] = true
		}

		candidates = append(candidates, models.MatchCandidate{
			Type:       models.MatchTypeCreditCardPayment,
			Confidence: s.scorer.ScoreAggregate(pair.amountDiff, s.aggregateTolerance(pair.aggregate.TotalAmount), pair.daysApart),
			Aggregate: &models.AggregateMatch{
				Aggregate:       pair.aggregate,
				BankTransaction: pair.bank,
			},
			AmountDifference: pair.amountDiff,
			DaysApart:        pair.daysApart,
			Description: fmt.Sprintf("%d card transactions totaling %s settled by %s",
				pair.aggregate.TransactionCount, pair.aggregate.TotalAmount.StringFixed(2), pair.bank.Name),
		})
		s.metrics.IncrementCounter("detection.candidate", map[string]string{"strategy": "aggregate"})
	}

	return candidates, nil
}

// scanAggregateGroup builds the aggregate for one (vendor, account, month)
// group and collects every bank debit within tolerance of it.
func (s *detectionService) scanAggregateGroup(key aggregateKey, members []models.Transaction, bankDebits []models.Transaction) []aggregatePair {
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Date.Before(members[j].Date)
	})

	total := decimal.Zero
	for _, txn := range members {
		total = total.Add(txn.AbsAmount())
	}
	if !total.IsPositive() {
		return nil
	}

	aggregate := models.CreditCardAggregate{
		Vendor:             key.vendor,
		Month:              key.month,
		TotalAmount:        total,
		TransactionCount:   len(members),
		DateRangeStart:     members[0].Date,
		DateRangeEnd:       members[len(members)-1].Date,
		SampleTransactions: members[:minInt(aggregateSampleSize, len(members))],
	}
	if key.account != "" {
		account := key.account
		aggregate.AccountNumber = &account
	}

	// The repayment settles the cycle shortly after the billing month ends.
	cycleEnd := key.month.AddDate(0, 1, 0)
	tolerance := s.aggregateTolerance(total)

	var pairs []aggregatePair
	for _, debit := range bankDebits {
		daysApart := models.DaysApart(debit.Date, cycleEnd)
		if daysApart > s.cfg.AggregateDateWindowDays {
			continue
		}
		diff := debit.AbsAmount().Sub(total).Abs()
		if diff.GreaterThan(tolerance) {
			continue
		}
		pairs = append(pairs, aggregatePair{
			aggregate:  aggregate,
			bank:       debit,
			amountDiff: diff,
			daysApart:  daysApart,
		})
	}
	return pairs
}

// aggregateTolerance is the larger of the percentage tolerance and the fixed
// epsilon, so small aggregates still absorb rounding noise.
func (s *detectionService) aggregateTolerance(total decimal.Decimal) decimal.Decimal {
	percent := total.Mul(decimal.NewFromFloat(s.cfg.AmountTolerancePercent))
	if percent.GreaterThan(s.cfg.AmountToleranceEpsilon) {
		return percent
	}
	return s.cfg.AmountToleranceEpsilon
}

// matchImmediateRepayments handles the card transactions that are charged to
// the bank account immediately instead of riding the monthly cycle: an exact
// amount match within a few days is treated as a one-transaction aggregate.
func (s *detectionService) matchImmediateRepayments(
	charges, bankDebits []models.Transaction,
	usedBank, usedCard map[models.TransactionRef]bool,
) []models.MatchCandidate {
	var candidates []models.MatchCandidate

	for i := range charges {
		cc := charges[i]
		if !cc.IsDebit() || usedCard[cc.Ref()] {
			continue
		}

		for j := range bankDebits {
			debit := bankDebits[j]
			if usedBank[debit.Ref()] {
				continue
			}
			if !debit.AbsAmount().Equal(cc.AbsAmount()) {
				continue
			}
			daysApart := models.DaysApart(debit.Date, cc.Date)
			if daysApart > s.cfg.ImmediateWindowDays {
				continue
			}

			usedBank[debit.Ref()] = true
			usedCard[cc.Ref()] = true

			candidates = append(candidates, models.MatchCandidate{
				Type:       models.MatchTypeCreditCardPayment,
				Confidence: s.scorer.ScoreAggregate(decimal.Zero, s.aggregateTolerance(cc.AbsAmount()), daysApart),
				Aggregate: &models.AggregateMatch{
					Aggregate: models.CreditCardAggregate{
						Vendor:             cc.Vendor,
						AccountNumber:      cc.AccountNumber,
						Month:              cc.BillingMonth(),
						TotalAmount:        cc.AbsAmount(),
						TransactionCount:   1,
						DateRangeStart:     cc.Date,
						DateRangeEnd:       cc.Date,
						SampleTransactions: []models.Transaction{cc},
					},
					BankTransaction: debit,
				},
				AmountDifference: decimal.Zero,
				DaysApart:        daysApart,
				Description:      fmt.Sprintf("immediate repayment of %s", cc.Name),
			})
			s.metrics.IncrementCounter("detection.candidate", map[string]string{"strategy": "immediate"})
			break
		}
	}
	return candidates
}

// matchPatterns applies every active pattern to the window. Pairing types
// require an opposite-signed counterpart within tolerance; relabel types emit
// singleton candidates.
func (s *detectionService) matchPatterns(ctx context.Context, universe []models.Transaction) ([]models.MatchCandidate, map[models.TransactionRef]bool, error) {
	active, err := s.patterns.GetActive()
	if err != nil {
		return nil, nil, err
	}

	matched := make(map[models.TransactionRef]bool)
	var candidates []models.MatchCandidate

	for i := range active {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("detection aborted: %w", err)
		}

		pattern := &active[i]
		patternID := pattern.ID.String()

		var hits []models.Transaction
		for _, txn := range universe {
			if pattern.Matches(txn.Name) {
				hits = append(hits, txn)
				matched[txn.Ref()] = true
			}
		}

		confidence := s.scorer.ScorePattern(pattern)

		if models.PairingRequired(pattern.MatchType) {
			paired := make(map[models.TransactionRef]bool)
			for a := range hits {
				if paired[hits[a].Ref()] {
					continue
				}
				for b := a + 1; b < len(hits); b++ {
					if paired[hits[b].Ref()] {
						continue
					}
					if hits[a].IsDebit() == hits[b].IsDebit() {
						continue
					}
					diff := hits[a].AbsAmount().Sub(hits[b].AbsAmount()).Abs()
					if diff.GreaterThan(s.cfg.PairAmountTolerance) {
						continue
					}
					daysApart := models.DaysApart(hits[a].Date, hits[b].Date)
					if daysApart > s.cfg.PairDateWindowDays {
						continue
					}

					paired[hits[a].Ref()] = true
					paired[hits[b].Ref()] = true
					candidates = append(candidates, models.MatchCandidate{
						Type:       pattern.MatchType,
						Confidence: confidence,
						Pair: &models.TransactionPair{
							First:  hits[a],
							Second: hits[b],
						},
						AmountDifference: diff,
						DaysApart:        daysApart,
						Description:      fmt.Sprintf("pattern %q pair", pattern.Name),
						PatternID:        &patternID,
					})
					s.metrics.IncrementCounter("detection.candidate", map[string]string{"strategy": "pattern"})
					break
				}
			}
		} else {
			for h := range hits {
				txn := hits[h]
				candidates = append(candidates, models.MatchCandidate{
					Type:        pattern.MatchType,
					Confidence:  confidence,
					Singleton:   &txn,
					Description: fmt.Sprintf("pattern %q relabel", pattern.Name),
					PatternID:   &patternID,
				})
				s.metrics.IncrementCounter("detection.candidate", map[string]string{"strategy": "pattern"})
			}
		}
	}

	return candidates, matched, nil
}

// matchManualHeuristic pairs unresolved transactions with identical absolute
// amounts inside a short window, when no pattern or aggregate claimed them.
// The pair may come from any sources: a same-source transfer with no pattern
// yet lands here just like a cross-source twin. Low confidence; exists to
// surface the long tail for review.
func (s *detectionService) matchManualHeuristic(
	universe []models.Transaction,
	patternMatched, usedBank, usedCard map[models.TransactionRef]bool,
) []models.MatchCandidate {
	byAmount := make(map[string][]models.Transaction)
	for _, txn := range universe {
		ref := txn.Ref()
		if patternMatched[ref] || usedBank[ref] || usedCard[ref] {
			continue
		}
		key := txn.AbsAmount().StringFixed(2)
		byAmount[key] = append(byAmount[key], txn)
	}

	keys := make([]string, 0, len(byAmount))
	for key := range byAmount {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var candidates []models.MatchCandidate
	for _, key := range keys {
		group := byAmount[key]
		paired := make(map[models.TransactionRef]bool)
		for a := range group {
			if paired[group[a].Ref()] {
				continue
			}
			for b := a + 1; b < len(group); b++ {
				if paired[group[b].Ref()] {
					continue
				}
				daysApart := models.DaysApart(group[a].Date, group[b].Date)
				if daysApart > s.cfg.ManualDateWindowDays {
					continue
				}

				paired[group[a].Ref()] = true
				paired[group[b].Ref()] = true
				candidates = append(candidates, models.MatchCandidate{
					Type:       models.MatchTypeManual,
					Confidence: s.scorer.ScoreManual(decimal.Zero, s.cfg.PairAmountTolerance, daysApart),
					Pair: &models.TransactionPair{
						First:  group[a],
						Second: group[b],
					},
					AmountDifference: decimal.Zero,
					DaysApart:        daysApart,
					Description:      "identical amount within window",
				})
				s.metrics.IncrementCounter("detection.candidate", map[string]string{"strategy": "manual"})
				break
			}
		}
	}
	return candidates
}

func filterResolved(txns []models.Transaction, resolved map[models.TransactionRef]bool) []models.Transaction {
	filtered := txns[:0]
	for _, txn := range txns {
		if !resolved[txn.Ref()] {
			filtered = append(filtered, txn)
		}
	}
	return filtered
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
