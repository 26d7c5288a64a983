package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"clarify-engine/internal/dto"
	"clarify-engine/internal/errors"
	"clarify-engine/internal/models"
	"clarify-engine/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	// Default detection window when the request carries no date range.
	defaultWindowMonths = 2
)

// ReconciliationHandler handles detection and resolution HTTP requests
type ReconciliationHandler struct {
	detection  services.DetectionServiceInterface
	resolution services.ResolutionServiceInterface
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(
	detection services.DetectionServiceInterface,
	resolution services.ResolutionServiceInterface,
) *ReconciliationHandler {
	return &ReconciliationHandler{
		detection:  detection,
		resolution: resolution,
	}
}

// DetectDuplicates runs a detection pass over the requested date window
// @Summary Detect duplicate candidates
// @Description Run all detection strategies over the window and return ranked, unresolved match candidates
// @Tags Reconciliation
// @Produce json
// @Param start_date query string false "Window start (YYYY-MM-DD), defaults to two months back"
// @Param end_date query string false "Window end (YYYY-MM-DD), defaults to today"
// @Success 200 {object} dto.DetectDuplicatesResponse "Ranked match candidates"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_005 - Invalid date range"
// @Failure 503 {object} errors.ErrorResponse "RECON_005 - Detection pass aborted"
// @Router /reconciliation/duplicates [get]
func (h *ReconciliationHandler) DetectDuplicates(c echo.Context) error {
	start, end, err := parseDateWindow(c)
	if err != nil {
		return SendError(c, errors.ValidationInvalidDate, errors.WithDetails(err.Error()))
	}

	candidates, err := h.detection.DetectDuplicates(c.Request().Context(), start, end)
	if err != nil {
		return SendError(c, errors.ReconDetectionAborted)
	}

	return c.JSON(http.StatusOK, dto.DetectDuplicatesResponse{
		Candidates: candidates,
		Count:      len(candidates),
		StartDate:  start,
		EndDate:    end,
	})
}

// ListConfirmedDuplicates lists confirmed duplicates with pagination
// @Summary List confirmed duplicates
// @Tags Reconciliation
// @Produce json
// @Param offset query int false "Pagination offset" default(0)
// @Param limit query int false "Number of results per page (max 100)" default(20)
// @Success 200 {object} dto.ListConfirmedDuplicatesResponse "Confirmed duplicates"
// @Router /reconciliation/duplicates/confirmed [get]
func (h *ReconciliationHandler) ListConfirmedDuplicates(c echo.Context) error {
	offset, limit := parsePagination(c)

	duplicates, total, err := h.resolution.GetConfirmedDuplicates(offset, limit)
	if err != nil {
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ListConfirmedDuplicatesResponse{
		Duplicates: duplicates,
		Pagination: dto.PaginationInfo{Offset: offset, Limit: limit, Total: total},
	})
}

// ConfirmDuplicate confirms a match candidate as a real duplicate
// @Summary Confirm a duplicate
// @Description Store a confirmed duplicate and exclude the chosen member from aggregate totals. Confirming the same pair twice returns the existing confirmation.
// @Tags Reconciliation
// @Accept json
// @Produce json
// @Param request body dto.ConfirmDuplicateRequest true "Candidate members and the member to exclude"
// @Success 201 {object} dto.ConfirmDuplicateResponse "Stored confirmation"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid request body"
// @Failure 409 {object} errors.ErrorResponse "RECON_001 - Conflicting resolution"
// @Failure 422 {object} errors.ErrorResponse "RECON_004 - Invalid candidate"
// @Router /reconciliation/duplicates/confirm [post]
func (h *ReconciliationHandler) ConfirmDuplicate(c echo.Context) error {
	var req dto.ConfirmDuplicateRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(err.Error()))
	}

	duplicate, err := h.resolution.ConfirmDuplicate(c.Request().Context(), services.ConfirmRequest{
		First:      req.First.Ref(),
		Second:     req.Second.Ref(),
		Exclude:    req.Exclude.Ref(),
		MatchType:  req.MatchType,
		Confidence: req.Confidence,
		Reason:     req.Reason,
		PatternID:  req.PatternID,
	})
	if err != nil {
		switch {
		case stderrors.Is(err, services.ErrInvalidCandidate):
			return SendError(c, errors.ReconInvalidCandidate, errors.WithDetails(err.Error()))
		case stderrors.Is(err, models.ErrInvalidMatchType):
			return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails(err.Error()))
		case stderrors.Is(err, services.ErrConflictingResolution):
			return SendError(c, errors.ReconConflictingResolution)
		default:
			return SendSystemError(c, err)
		}
	}

	return c.JSON(http.StatusCreated, dto.ConfirmDuplicateResponse{Duplicate: duplicate})
}

// UnconfirmDuplicate removes a confirmed duplicate and its owned exclusions
// @Summary Unconfirm a duplicate
// @Tags Reconciliation
// @Produce json
// @Param id path string true "Confirmed duplicate ID (UUID)"
// @Success 204 "Confirmation removed"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_003 - Invalid ID format"
// @Failure 404 {object} errors.ErrorResponse "RECON_003 - Confirmation not found"
// @Router /reconciliation/duplicates/{id} [delete]
func (h *ReconciliationHandler) UnconfirmDuplicate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Duplicate ID must be a valid UUID"))
	}

	if err := h.resolution.UnconfirmDuplicate(c.Request().Context(), id); err != nil {
		if stderrors.Is(err, services.ErrResolutionNotFound) {
			return SendError(c, errors.ReconNotFound)
		}
		return SendSystemError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ExcludeTransaction manually excludes a transaction from aggregate totals
// @Summary Manually exclude a transaction
// @Tags Reconciliation
// @Accept json
// @Produce json
// @Param request body dto.ExcludeTransactionRequest true "Transaction identity and reason"
// @Success 201 {object} models.ExclusionRecord "Stored exclusion"
// @Failure 409 {object} errors.ErrorResponse "RECON_001 - Transaction belongs to a confirmed duplicate"
// @Failure 422 {object} errors.ErrorResponse "RECON_004 - Unknown transaction"
// @Router /reconciliation/exclusions [post]
func (h *ReconciliationHandler) ExcludeTransaction(c echo.Context) error {
	var req dto.ExcludeTransactionRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(err.Error()))
	}

	record, err := h.resolution.ManualExclude(c.Request().Context(), services.ExcludeRequest{
		Transaction:        models.TransactionRef{Identifier: req.Identifier, Vendor: req.Vendor},
		Reason:             req.Reason,
		OverrideCategoryID: req.OverrideCategoryID,
		Notes:              req.Notes,
	})
	if err != nil {
		switch {
		case stderrors.Is(err, services.ErrInvalidCandidate):
			return SendError(c, errors.ReconInvalidCandidate, errors.WithDetails(err.Error()))
		case stderrors.Is(err, services.ErrConflictingResolution):
			return SendError(c, errors.ReconConflictingResolution,
				errors.WithTransaction(models.TransactionRef{Identifier: req.Identifier, Vendor: req.Vendor}, "part of a confirmed duplicate"))
		default:
			return SendSystemError(c, err)
		}
	}

	return c.JSON(http.StatusCreated, record)
}

// IncludeTransaction removes a manual exclusion
// @Summary Re-include a manually excluded transaction
// @Tags Reconciliation
// @Produce json
// @Param vendor path string true "Transaction vendor"
// @Param identifier path string true "Transaction identifier"
// @Success 204 "Exclusion removed"
// @Failure 404 {object} errors.ErrorResponse "RECON_003 - No exclusion on this transaction"
// @Failure 409 {object} errors.ErrorResponse "RECON_002 - Exclusion owned by a confirmed duplicate"
// @Router /reconciliation/exclusions/{vendor}/{identifier} [delete]
func (h *ReconciliationHandler) IncludeTransaction(c echo.Context) error {
	ref := models.TransactionRef{
		Identifier: c.Param("identifier"),
		Vendor:     c.Param("vendor"),
	}
	if err := ref.Validate(); err != nil {
		return SendError(c, errors.ValidationRequiredField, errors.WithDetails(err.Error()))
	}

	if err := h.resolution.ManualInclude(c.Request().Context(), ref); err != nil {
		switch {
		case stderrors.Is(err, services.ErrResolutionNotFound):
			return SendError(c, errors.ReconNotFound)
		case stderrors.Is(err, services.ErrNotManuallyExcluded):
			return SendError(c, errors.ReconNotManuallyExcluded,
				errors.WithTransaction(ref, "excluded by a confirmed duplicate"))
		default:
			return SendSystemError(c, err)
		}
	}

	return c.NoContent(http.StatusNoContent)
}

// DismissSuggestion dismisses a match or link suggestion
// @Summary Dismiss a suggestion
// @Description Duplicate-candidate dismissals are ephemeral. Investment-account-link dismissals (account_id set) persist and suppress the suggestion until enough new matching transactions accumulate.
// @Tags Reconciliation
// @Accept json
// @Produce json
// @Param request body dto.DismissSuggestionRequest true "Suggestion to dismiss"
// @Success 200 {object} SuccessResponse "Suggestion dismissed"
// @Router /reconciliation/suggestions/dismiss [post]
func (h *ReconciliationHandler) DismissSuggestion(c echo.Context) error {
	var req dto.DismissSuggestionRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(err.Error()))
	}

	if err := h.resolution.DismissSuggestion(c.Request().Context(), services.DismissRequest{
		AccountID:    req.AccountID,
		NameFragment: req.NameFragment,
		Description:  req.Description,
	}); err != nil {
		if stderrors.Is(err, services.ErrMissingDismissFragment) {
			return SendError(c, errors.ValidationRequiredField, errors.WithDetails(err.Error()))
		}
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "Suggestion dismissed"})
}

// parseDateWindow parses the start_date/end_date query parameters, applying
// the default window when absent.
func parseDateWindow(c echo.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := now.AddDate(0, -defaultWindowMonths, 0)
	end := now

	if startStr := c.QueryParam("start_date"); startStr != "" {
		parsed, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return start, end, fmt.Errorf("invalid start_date format, use YYYY-MM-DD")
		}
		start = parsed
	}

	if endStr := c.QueryParam("end_date"); endStr != "" {
		parsed, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return start, end, fmt.Errorf("invalid end_date format, use YYYY-MM-DD")
		}
		// Set to end of day
		end = parsed.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	}

	if end.Before(start) {
		return start, end, fmt.Errorf("end_date must not precede start_date")
	}

	return start, end, nil
}
