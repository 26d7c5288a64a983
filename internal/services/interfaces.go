package services

import (
	"context"
	"time"

	"clarify-engine/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DetectionServiceInterface defines the contract for duplicate detection.
// Detection is a pure read: it never writes resolution state.
type DetectionServiceInterface interface {
	DetectDuplicates(ctx context.Context, start, end time.Time) ([]models.MatchCandidate, error)
	DetectPatternMatches(ctx context.Context, start, end time.Time) ([]PatternMatchGroup, error)
}

// PatternMatchGroup pairs a pattern with the transactions it currently matches
type PatternMatchGroup struct {
	Pattern models.Pattern       `json:"pattern"`
	Matches []models.Transaction `json:"matches"`
}

// ConfidenceScorerInterface defines the contract for candidate confidence
// scoring. Scores are deterministic and non-increasing in both the amount
// difference and the date distance.
type ConfidenceScorerInterface interface {
	ScoreAggregate(amountDiff, tolerance decimal.Decimal, daysApart int) float64
	ScorePattern(pattern *models.Pattern) float64
	ScoreManual(amountDiff, tolerance decimal.Decimal, daysApart int) float64
}

// ConfirmRequest carries everything needed to confirm a candidate pair.
// Exclude names the member whose amount leaves aggregate totals.
type ConfirmRequest struct {
	First      models.TransactionRef
	Second     models.TransactionRef
	Exclude    models.TransactionRef
	MatchType  string
	Confidence float64
	Reason     string
	PatternID  *uuid.UUID
}

// ExcludeRequest carries a manual exclusion.
type ExcludeRequest struct {
	Transaction        models.TransactionRef
	Reason             string
	OverrideCategoryID *int64
	Notes              string
}

// DismissRequest carries a suggestion dismissal. AccountID is set only for
// investment-account-link suggestions, which persist; plain duplicate
// dismissals are ephemeral.
type DismissRequest struct {
	AccountID    *int64
	NameFragment string
	Description  string
}

// ResolutionServiceInterface defines the contract for resolution state
// transitions. Every write is all-or-nothing.
type ResolutionServiceInterface interface {
	ConfirmDuplicate(ctx context.Context, req ConfirmRequest) (*models.ConfirmedDuplicate, error)
	UnconfirmDuplicate(ctx context.Context, id uuid.UUID) error
	ManualExclude(ctx context.Context, req ExcludeRequest) (*models.ExclusionRecord, error)
	ManualInclude(ctx context.Context, ref models.TransactionRef) error
	DismissSuggestion(ctx context.Context, req DismissRequest) error
	IsLinkSuggestionSuppressed(ctx context.Context, accountID int64, name string) (bool, error)
	GetConfirmedDuplicates(offset, limit int) ([]models.ConfirmedDuplicate, int64, error)
}

// LinkSuppressionChecker is the slice of the resolution surface the account
// matcher consults before re-suggesting a dismissed account link.
type LinkSuppressionChecker interface {
	IsLinkSuggestionSuppressed(ctx context.Context, accountID int64, name string) (bool, error)
}

// PatternServiceInterface defines the contract for pattern management and
// learning.
type PatternServiceInterface interface {
	CreatePattern(ctx context.Context, pattern *models.Pattern) error
	GetPatterns(offset, limit int) ([]models.Pattern, int64, error)
	GetActivePatterns() ([]models.Pattern, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (*models.Pattern, error)
	DeletePattern(ctx context.Context, id uuid.UUID) error
	RecordPatternHit(ctx context.Context, id uuid.UUID) error
	LearnPatterns(ctx context.Context) (int, error)
}

// PatternLearnerInterface is the async trigger surface the resolution path
// notifies; learning itself runs off the request path.
type PatternLearnerInterface interface {
	Start()
	Stop()
	NoteManualExclusion()
}

// AccountMatcherServiceInterface defines the contract for fuzzy account
// matching.
type AccountMatcherServiceInterface interface {
	MatchAccount(ctx context.Context, name, accountType string) (*models.AccountMatch, error)
}

// SampleDataGeneratorInterface generates realistic transaction fixtures for
// local development and tests.
type SampleDataGeneratorInterface interface {
	GenerateBankTransactions(count int, month time.Time) []models.Transaction
	GenerateCreditCardCharges(vendor string, count int, month time.Time) []models.Transaction
	GenerateRepaymentDebit(charges []models.Transaction) models.Transaction
}

// MetricsRecorderInterface abstracts metric emission so services stay
// testable without a registry.
type MetricsRecorderInterface interface {
	IncrementCounter(name string, tags map[string]string)
	RecordProcessingTime(name string, duration time.Duration)
	RecordGauge(name string, value float64, tags map[string]string)
}

// AuditLoggerInterface defines structured audit events for every resolution
// transition and detection pass.
type AuditLoggerInterface interface {
	LogDetectionStarted(ctx context.Context, start, end time.Time)
	LogDetectionCompleted(ctx context.Context, candidates int, durationMs int64)
	LogDetectionFailed(ctx context.Context, errorMsg string)
	LogDuplicateConfirmed(ctx context.Context, id uuid.UUID, matchType string, confidence float64)
	LogDuplicateUnconfirmed(ctx context.Context, id uuid.UUID)
	LogManualExclusion(ctx context.Context, ref models.TransactionRef, reason string)
	LogManualInclusion(ctx context.Context, ref models.TransactionRef)
	LogSuggestionDismissed(ctx context.Context, accountID *int64, nameFragment string)
	LogPatternCreated(ctx context.Context, id uuid.UUID, expression string, userDefined bool)
	LogPatternLearned(ctx context.Context, id uuid.UUID, expression string, sourceCount int)
	LogPatternDeleted(ctx context.Context, id uuid.UUID)
}
