package dto

import (
	"time"

	"clarify-engine/internal/models"

	"github.com/google/uuid"
)

// TransactionRefDTO identifies a transaction in API requests.
type TransactionRefDTO struct {
	Identifier string `json:"identifier" validate:"required"`
	Vendor     string `json:"vendor" validate:"required"`
}

// Ref converts the DTO to the model identity.
func (r TransactionRefDTO) Ref() models.TransactionRef {
	return models.TransactionRef{Identifier: r.Identifier, Vendor: r.Vendor}
}

// DetectDuplicatesResponse is the response for a detection pass.
type DetectDuplicatesResponse struct {
	Candidates []models.MatchCandidate `json:"candidates"`
	Count      int                     `json:"count"`
	StartDate  time.Time               `json:"start_date"`
	EndDate    time.Time               `json:"end_date"`
}

// ConfirmDuplicateRequest confirms a match candidate as a real duplicate.
type ConfirmDuplicateRequest struct {
	First      TransactionRefDTO `json:"first" validate:"required"`
	Second     TransactionRefDTO `json:"second" validate:"required"`
	Exclude    TransactionRefDTO `json:"exclude" validate:"required"`
	MatchType  string            `json:"match_type" validate:"required,match_type"`
	Confidence float64           `json:"confidence" validate:"confidence"`
	Reason     string            `json:"reason" validate:"max=255"`
	PatternID  *uuid.UUID        `json:"pattern_id,omitempty"`
}

// ConfirmDuplicateResponse returns the stored confirmation.
type ConfirmDuplicateResponse struct {
	Duplicate *models.ConfirmedDuplicate `json:"duplicate"`
}

// ListConfirmedDuplicatesResponse is a paginated list of confirmations.
type ListConfirmedDuplicatesResponse struct {
	Duplicates []models.ConfirmedDuplicate `json:"duplicates"`
	Pagination PaginationInfo              `json:"pagination"`
}

// ExcludeTransactionRequest marks a transaction as manually excluded.
type ExcludeTransactionRequest struct {
	Identifier         string `json:"identifier" validate:"required"`
	Vendor             string `json:"vendor" validate:"required"`
	Reason             string `json:"reason" validate:"required,max=255"`
	OverrideCategoryID *int64 `json:"override_category_id,omitempty"`
	Notes              string `json:"notes,omitempty" validate:"max=1000"`
}

// DismissSuggestionRequest dismisses a suggestion. AccountID is present only
// for investment-account-link suggestions; those dismissals persist.
type DismissSuggestionRequest struct {
	AccountID    *int64 `json:"account_id,omitempty"`
	NameFragment string `json:"name_fragment" validate:"required,max=255"`
	Description  string `json:"description,omitempty" validate:"max=255"`
}

// CreatePatternRequest creates a user-defined pattern.
type CreatePatternRequest struct {
	Name               string  `json:"name" validate:"required,max=100"`
	Expression         string  `json:"expression" validate:"required,max=255,wildcard_expression"`
	MatchType          string  `json:"match_type" validate:"required,match_type"`
	Confidence         float64 `json:"confidence" validate:"confidence"`
	OverrideCategoryID *int64  `json:"override_category_id,omitempty"`
}

// PatternResponse returns a single pattern.
type PatternResponse struct {
	Pattern *models.Pattern `json:"pattern"`
}

// ListPatternsResponse is a paginated list of patterns.
type ListPatternsResponse struct {
	Patterns   []models.Pattern `json:"patterns"`
	Pagination PaginationInfo   `json:"pagination"`
}

// PatternMatchGroupDTO pairs a pattern with its current unresolved matches.
type PatternMatchGroupDTO struct {
	Pattern models.Pattern       `json:"pattern"`
	Matches []models.Transaction `json:"matches"`
}

// PatternMatchesResponse groups current matches per active pattern.
type PatternMatchesResponse struct {
	Groups    []PatternMatchGroupDTO `json:"groups"`
	StartDate time.Time              `json:"start_date"`
	EndDate   time.Time              `json:"end_date"`
}

// AccountMatchResponse returns the result of a fuzzy account-name match.
type AccountMatchResponse struct {
	Match *models.AccountMatch `json:"match"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
	Total  int64 `json:"total"`
}
