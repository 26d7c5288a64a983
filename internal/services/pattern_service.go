package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"clarify-engine/internal/config"
	"clarify-engine/internal/models"
	"clarify-engine/internal/repositories"
	"clarify-engine/internal/similarity"

	"github.com/google/uuid"
)

var (
	ErrInvalidExpression     = errors.New("pattern expression does not compile")
	ErrPatternExists         = errors.New("a pattern with this expression already exists")
	ErrPatternNotFound       = errors.New("pattern not found")
	ErrPatternNotUserDefined = errors.New("only user-defined patterns can be deleted")
)

// Confidence assigned to freshly learned patterns; user review can raise it.
const learnedConfidence = 0.7

// patternService implements PatternServiceInterface
type patternService struct {
	patterns     repositories.PatternRepositoryInterface
	exclusions   repositories.ExclusionRepositoryInterface
	transactions repositories.TransactionRepositoryInterface
	cfg          config.ReconciliationConfig
	logger       *slog.Logger
	metrics      MetricsRecorderInterface
	audit        AuditLoggerInterface
}

// NewPatternService creates a new pattern service
func NewPatternService(
	patterns repositories.PatternRepositoryInterface,
	exclusions repositories.ExclusionRepositoryInterface,
	transactions repositories.TransactionRepositoryInterface,
	cfg config.ReconciliationConfig,
	logger *slog.Logger,
	metrics MetricsRecorderInterface,
	audit AuditLoggerInterface,
) PatternServiceInterface {
	return &patternService{
		patterns:     patterns,
		exclusions:   exclusions,
		transactions: transactions,
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
		audit:        audit,
	}
}

// CreatePattern stores a user-defined pattern. The expression must compile
// under the wildcard dialect and be unique.
func (s *patternService) CreatePattern(ctx context.Context, pattern *models.Pattern) error {
	if _, err := models.CompileExpression(pattern.Expression); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidExpression, err.Error())
	}

	exists, err := s.patterns.ExistsByExpression(pattern.Expression)
	if err != nil {
		return err
	}
	if exists {
		return ErrPatternExists
	}

	pattern.IsUserDefined = true
	pattern.IsAutoLearned = false
	pattern.IsActive = true
	if pattern.Confidence == 0 {
		pattern.Confidence = learnedConfidence
	}

	if err := s.patterns.Create(pattern); err != nil {
		return err
	}

	s.audit.LogPatternCreated(ctx, pattern.ID, pattern.Expression, true)
	return nil
}

// GetPatterns lists patterns with pagination
func (s *patternService) GetPatterns(offset, limit int) ([]models.Pattern, int64, error) {
	return s.patterns.GetAll(offset, limit)
}

// GetActivePatterns lists active patterns
func (s *patternService) GetActivePatterns() ([]models.Pattern, error) {
	return s.patterns.GetActive()
}

// ToggleActive flips a pattern's active flag and returns the updated pattern
func (s *patternService) ToggleActive(ctx context.Context, id uuid.UUID) (*models.Pattern, error) {
	pattern, err := s.patterns.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrPatternNotFound) {
			return nil, ErrPatternNotFound
		}
		return nil, err
	}

	if err := s.patterns.SetActive(id, !pattern.IsActive); err != nil {
		return nil, err
	}
	pattern.IsActive = !pattern.IsActive
	return pattern, nil
}

// DeletePattern removes a user-defined pattern. Auto-learned patterns are
// never deleted, only deactivated via ToggleActive, so their match history
// survives.
func (s *patternService) DeletePattern(ctx context.Context, id uuid.UUID) error {
	pattern, err := s.patterns.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrPatternNotFound) {
			return ErrPatternNotFound
		}
		return err
	}

	if !pattern.IsUserDefined {
		return ErrPatternNotUserDefined
	}

	if err := s.patterns.Delete(id); err != nil {
		return err
	}

	s.audit.LogPatternDeleted(ctx, id)
	return nil
}

// RecordPatternHit credits a pattern with a confirmed contribution
func (s *patternService) RecordPatternHit(ctx context.Context, id uuid.UUID) error {
	return s.patterns.IncrementMatchCount(id)
}

// LearnPatterns mines manual exclusions for recurring name structure. Groups
// of at least PatternLearnThreshold exclusions sharing a reason whose
// transaction names have a long-enough common fragment produce an
// auto-learned `%fragment%` pattern. Returns the number of patterns created.
func (s *patternService) LearnPatterns(ctx context.Context) (int, error) {
	manual, err := s.exclusions.GetManual()
	if err != nil {
		return 0, err
	}

	groups := make(map[string][]models.ExclusionRecord)
	for _, record := range manual {
		reason := similarity.Normalize(record.ExclusionReason)
		if reason == "" {
			continue
		}
		groups[reason] = append(groups[reason], record)
	}

	learned := 0
	for reason, records := range groups {
		if err := ctx.Err(); err != nil {
			return learned, err
		}
		if len(records) < s.cfg.PatternLearnThreshold {
			continue
		}

		fragment, err := s.commonNameFragment(records)
		if err != nil {
			return learned, err
		}
		if len([]rune(fragment)) < s.cfg.MinFragmentRunes {
			continue
		}

		expression := "%" + fragment + "%"
		exists, err := s.patterns.ExistsByExpression(expression)
		if err != nil {
			return learned, err
		}
		if exists {
			continue
		}

		pattern := &models.Pattern{
			Name:               "learned: " + reason,
			Expression:         expression,
			MatchType:          learnedMatchType(reason, fragment),
			OverrideCategoryID: sharedOverrideCategory(records),
			Confidence:         learnedConfidence,
			IsUserDefined:      false,
			IsAutoLearned:      true,
			IsActive:           true,
			MatchCount:         len(records),
		}
		if err := s.patterns.Create(pattern); err != nil {
			return learned, err
		}

		learned++
		s.metrics.IncrementCounter("pattern.learned", nil)
		s.audit.LogPatternLearned(ctx, pattern.ID, expression, len(records))
	}

	return learned, nil
}

// learnedTypeTerms classifies a learned pattern from the wording of its
// exclusion reason and name fragment. Checked in order; the investment terms
// mirror the account-type dictionaries.
var learnedTypeTerms = []struct {
	matchType string
	terms     []string
}{
	{models.MatchTypeInvestment, []string{
		"pension", "פנסיה", "deposit", "פיקדון", "השתלמות", "גמל",
		"savings", "חיסכון", "provident", "study fund",
	}},
	{models.MatchTypeTransfer, []string{"transfer", "העברה"}},
	{models.MatchTypeRent, []string{"rent", "שכירות", "שכר דירה"}},
}

// learnedMatchType picks the match type for a learned pattern so its
// detection hits surface under the right label. Unrecognized wording stays
// manual for the user to relabel.
func learnedMatchType(reason, fragment string) string {
	haystack := similarity.Normalize(reason + " " + fragment)
	for _, entry := range learnedTypeTerms {
		for _, term := range entry.terms {
			if strings.Contains(haystack, term) {
				return entry.matchType
			}
		}
	}
	return models.MatchTypeManual
}

// sharedOverrideCategory carries a category override onto the learned pattern
// when every source exclusion agrees on one.
func sharedOverrideCategory(records []models.ExclusionRecord) *int64 {
	var shared *int64
	for i := range records {
		id := records[i].OverrideCategoryID
		if id == nil {
			return nil
		}
		if shared == nil {
			shared = id
		} else if *shared != *id {
			return nil
		}
	}
	return shared
}

// commonNameFragment folds the longest common substring across the excluded
// transactions' names.
func (s *patternService) commonNameFragment(records []models.ExclusionRecord) (string, error) {
	refs := make([]models.TransactionRef, 0, len(records))
	for _, record := range records {
		refs = append(refs, record.TransactionRef())
	}

	txns, err := s.transactions.GetByRefs(refs)
	if err != nil {
		return "", err
	}
	if len(txns) < s.cfg.PatternLearnThreshold {
		return "", nil
	}

	fragment := similarity.Normalize(txns[0].Name)
	for _, txn := range txns[1:] {
		fragment = similarity.LongestCommonSubstring(fragment, txn.Name)
		if fragment == "" {
			return "", nil
		}
	}
	return strings.TrimSpace(fragment), nil
}
