package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clarify-engine/internal/config"
	"clarify-engine/internal/models"
	"clarify-engine/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrInvalidCandidate       = errors.New("candidate does not reference two distinct known transactions")
	ErrConflictingResolution  = errors.New("transaction is covered by a confirmed duplicate")
	ErrNotManuallyExcluded    = errors.New("exclusion is owned by a confirmed duplicate")
	ErrResolutionNotFound     = errors.New("resolution record not found")
	ErrMissingDismissFragment = errors.New("dismissal requires a name fragment")
)

// resolutionService implements ResolutionServiceInterface. All multi-row
// writes go through repository methods that wrap them in one database
// transaction.
type resolutionService struct {
	transactions repositories.TransactionRepositoryInterface
	duplicates   repositories.DuplicateRepositoryInterface
	exclusions   repositories.ExclusionRepositoryInterface
	patterns     repositories.PatternRepositoryInterface
	dismissals   repositories.DismissalRepositoryInterface
	learner      PatternLearnerInterface
	cfg          config.ReconciliationConfig
	logger       *slog.Logger
	metrics      MetricsRecorderInterface
	audit        AuditLoggerInterface
}

// NewResolutionService creates a new resolution service. The learner may be
// nil when async pattern learning is disabled.
func NewResolutionService(
	transactions repositories.TransactionRepositoryInterface,
	duplicates repositories.DuplicateRepositoryInterface,
	exclusions repositories.ExclusionRepositoryInterface,
	patterns repositories.PatternRepositoryInterface,
	dismissals repositories.DismissalRepositoryInterface,
	learner PatternLearnerInterface,
	cfg config.ReconciliationConfig,
	logger *slog.Logger,
	metrics MetricsRecorderInterface,
	audit AuditLoggerInterface,
) ResolutionServiceInterface {
	return &resolutionService{
		transactions: transactions,
		duplicates:   duplicates,
		exclusions:   exclusions,
		patterns:     patterns,
		dismissals:   dismissals,
		learner:      learner,
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
		audit:        audit,
	}
}

// ConfirmDuplicate confirms a candidate pair. Confirming an already confirmed
// pair returns the existing record unchanged; confirming a member of a
// different confirmed pair is refused. Both members get a duplicate-owned
// exclusion record, and manual exclusions on either member are superseded
// inside the same write transaction.
func (s *resolutionService) ConfirmDuplicate(ctx context.Context, req ConfirmRequest) (*models.ConfirmedDuplicate, error) {
	if err := s.validateConfirm(req); err != nil {
		return nil, err
	}

	if existing, err := s.duplicates.GetByPair(req.First, req.Second); err == nil {
		s.metrics.IncrementCounter("resolution.write", map[string]string{"operation": "confirm", "status": "idempotent"})
		return existing, nil
	} else if !errors.Is(err, repositories.ErrDuplicateNotFound) {
		return nil, err
	}

	// Not this pair, so any confirmation covering a member is a different one.
	for _, member := range []models.TransactionRef{req.First, req.Second} {
		covering, err := s.duplicates.GetForTransaction(member)
		if err != nil {
			return nil, err
		}
		if len(covering) > 0 {
			return nil, ErrConflictingResolution
		}
	}

	first, second := models.CanonicalPair(req.First, req.Second)
	duplicate := &models.ConfirmedDuplicate{
		Transaction1Identifier: first.Identifier,
		Transaction1Vendor:     first.Vendor,
		Transaction2Identifier: second.Identifier,
		Transaction2Vendor:     second.Vendor,
		MatchType:              req.MatchType,
		Confidence:             req.Confidence,
	}

	kept := req.First
	if req.Exclude == req.First {
		kept = req.Second
	}
	exclusions := []*models.ExclusionRecord{
		{
			TransactionIdentifier: req.Exclude.Identifier,
			TransactionVendor:     req.Exclude.Vendor,
			IsExcluded:            true,
			ExclusionType:         models.ExclusionTypeDuplicate,
			ExclusionReason:       req.Reason,
		},
		{
			TransactionIdentifier: kept.Identifier,
			TransactionVendor:     kept.Vendor,
			IsExcluded:            false,
			ExclusionType:         models.ExclusionTypeDuplicate,
			ExclusionReason:       req.Reason,
		},
	}

	if err := s.duplicates.CreateWithExclusions(duplicate, exclusions); err != nil {
		if errors.Is(err, repositories.ErrDuplicatePairExists) {
			// Lost a race with an identical confirmation; idempotence still holds.
			return s.duplicates.GetByPair(req.First, req.Second)
		}
		if errors.Is(err, repositories.ErrMemberConfirmed) {
			return nil, ErrConflictingResolution
		}
		s.metrics.IncrementCounter("resolution.write", map[string]string{"operation": "confirm", "status": "failed"})
		return nil, fmt.Errorf("failed to confirm duplicate: %w", err)
	}

	if req.PatternID != nil {
		if err := s.patterns.IncrementMatchCount(*req.PatternID); err != nil {
			// The confirmation itself succeeded; a stale pattern id only
			// costs the boost.
			s.logger.WarnContext(ctx, "failed to credit pattern match",
				slog.String("pattern_id", req.PatternID.String()),
				slog.String("error", err.Error()),
			)
		} else {
			s.metrics.IncrementCounter("pattern.hit", nil)
		}
	}

	s.metrics.IncrementCounter("resolution.write", map[string]string{"operation": "confirm", "status": "success"})
	s.metrics.IncrementCounter("resolution.confirmed", map[string]string{"match_type": req.MatchType})
	s.audit.LogDuplicateConfirmed(ctx, duplicate.ID, req.MatchType, req.Confidence)
	return duplicate, nil
}

func (s *resolutionService) validateConfirm(req ConfirmRequest) error {
	if req.First.Validate() != nil || req.Second.Validate() != nil {
		return ErrInvalidCandidate
	}
	if req.First == req.Second {
		return ErrInvalidCandidate
	}
	if req.Exclude != req.First && req.Exclude != req.Second {
		return ErrInvalidCandidate
	}
	if !models.IsValidMatchType(req.MatchType) {
		return models.ErrInvalidMatchType
	}

	found, err := s.transactions.GetByRefs([]models.TransactionRef{req.First, req.Second})
	if err != nil {
		return err
	}
	if len(found) != 2 {
		return ErrInvalidCandidate
	}
	return nil
}

// UnconfirmDuplicate reverses a confirmation, deleting the record and the
// exclusions it owns together.
func (s *resolutionService) UnconfirmDuplicate(ctx context.Context, id uuid.UUID) error {
	if err := s.duplicates.DeleteWithExclusions(id); err != nil {
		if errors.Is(err, repositories.ErrDuplicateNotFound) {
			return ErrResolutionNotFound
		}
		s.metrics.IncrementCounter("resolution.write", map[string]string{"operation": "unconfirm", "status": "failed"})
		return fmt.Errorf("failed to unconfirm duplicate: %w", err)
	}

	s.metrics.IncrementCounter("resolution.write", map[string]string{"operation": "unconfirm", "status": "success"})
	s.audit.LogDuplicateUnconfirmed(ctx, id)
	return nil
}

// ManualExclude excludes a transaction by hand. A member of a confirmed
// duplicate cannot also be manually excluded; unconfirm first. Re-excluding
// an already manually excluded transaction updates its reason, category
// override and notes.
func (s *resolutionService) ManualExclude(ctx context.Context, req ExcludeRequest) (*models.ExclusionRecord, error) {
	if err := req.Transaction.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.transactions.GetByRef(req.Transaction); err != nil {
		return nil, err
	}

	covering, err := s.duplicates.GetForTransaction(req.Transaction)
	if err != nil {
		return nil, err
	}
	if len(covering) > 0 {
		return nil, ErrConflictingResolution
	}

	existing, err := s.exclusions.GetByTransaction(req.Transaction)
	switch {
	case err == nil:
		if existing.IsDuplicateOwned() {
			// GetForTransaction above should have caught this; the owner
			// record may have been deleted out of band.
			return nil, ErrConflictingResolution
		}
		existing.ExclusionReason = req.Reason
		existing.OverrideCategoryID = req.OverrideCategoryID
		existing.Notes = req.Notes
		existing.IsExcluded = true
		if err := s.exclusions.Update(existing); err != nil {
			return nil, fmt.Errorf("failed to update manual exclusion: %w", err)
		}
		s.metrics.IncrementCounter("resolution.write", map[string]string{"operation": "exclude", "status": "updated"})
		return existing, nil
	case !errors.Is(err, repositories.ErrExclusionNotFound):
		return nil, err
	}

	record := &models.ExclusionRecord{
		TransactionIdentifier: req.Transaction.Identifier,
		TransactionVendor:     req.Transaction.Vendor,
		IsExcluded:            true,
		ExclusionType:         models.ExclusionTypeManual,
		ExclusionReason:       req.Reason,
		OverrideCategoryID:    req.OverrideCategoryID,
		Notes:                 req.Notes,
	}
	if err := s.exclusions.Create(record); err != nil {
		s.metrics.IncrementCounter("resolution.write", map[string]string{"operation": "exclude", "status": "failed"})
		return nil, fmt.Errorf("failed to create manual exclusion: %w", err)
	}

	s.metrics.IncrementCounter("resolution.write", map[string]string{"operation": "exclude", "status": "success"})
	s.audit.LogManualExclusion(ctx, req.Transaction, req.Reason)

	if s.learner != nil {
		s.learner.NoteManualExclusion()
	}
	return record, nil
}

// ManualInclude removes a manual exclusion. Duplicate-owned exclusions are
// refused; they only go away with their confirmation.
func (s *resolutionService) ManualInclude(ctx context.Context, ref models.TransactionRef) error {
	record, err := s.exclusions.GetByTransaction(ref)
	if err != nil {
		if errors.Is(err, repositories.ErrExclusionNotFound) {
			return ErrResolutionNotFound
		}
		return err
	}

	if record.IsDuplicateOwned() {
		return ErrNotManuallyExcluded
	}

	if err := s.exclusions.Delete(record.ID); err != nil {
		s.metrics.IncrementCounter("resolution.write", map[string]string{"operation": "include", "status": "failed"})
		return fmt.Errorf("failed to remove manual exclusion: %w", err)
	}

	s.metrics.IncrementCounter("resolution.write", map[string]string{"operation": "include", "status": "success"})
	s.audit.LogManualInclusion(ctx, ref)
	return nil
}

// DismissSuggestion records a dismissal. Ordinary duplicate dismissals are
// deliberately ephemeral: the candidate simply reappears on the next pass.
// Investment-account-link dismissals persist with the transaction count at
// dismissal time, so the suggestion stays down until enough new matching
// activity accumulates.
func (s *resolutionService) DismissSuggestion(ctx context.Context, req DismissRequest) error {
	if req.AccountID == nil {
		s.audit.LogSuggestionDismissed(ctx, nil, req.NameFragment)
		return nil
	}

	if req.NameFragment == "" {
		return ErrMissingDismissFragment
	}

	count, err := s.transactions.CountByNameFragment(req.NameFragment, time.Time{})
	if err != nil {
		return err
	}

	dismissal := &models.LinkSuggestionDismissal{
		AccountID:        *req.AccountID,
		NameFragment:     req.NameFragment,
		TransactionCount: int(count),
	}
	if err := s.dismissals.Upsert(dismissal); err != nil {
		return fmt.Errorf("failed to persist dismissal: %w", err)
	}

	s.audit.LogSuggestionDismissed(ctx, req.AccountID, req.NameFragment)
	return nil
}

// IsLinkSuggestionSuppressed reports whether a dismissed link suggestion is
// still suppressed for the given name. Any dismissal whose fragment the name
// contains counts; the suggestion resurfaces once the reappearance threshold
// of new matching transactions has accumulated since the dismissal.
func (s *resolutionService) IsLinkSuggestionSuppressed(ctx context.Context, accountID int64, name string) (bool, error) {
	dismissal, err := s.dismissals.GetCovering(accountID, name)
	if err != nil {
		if errors.Is(err, repositories.ErrDismissalNotFound) {
			return false, nil
		}
		return false, err
	}

	count, err := s.transactions.CountByNameFragment(dismissal.NameFragment, time.Time{})
	if err != nil {
		return false, err
	}

	newSince := int(count) - dismissal.TransactionCount
	return newSince < s.cfg.LinkReappearThreshold, nil
}

// GetConfirmedDuplicates lists confirmations with pagination
func (s *resolutionService) GetConfirmedDuplicates(offset, limit int) ([]models.ConfirmedDuplicate, int64, error) {
	return s.duplicates.GetAll(offset, limit)
}
