package handlers

import (
	stderrors "errors"
	"net/http"

	"clarify-engine/internal/dto"
	"clarify-engine/internal/errors"
	"clarify-engine/internal/models"
	"clarify-engine/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PatternHandler handles pattern management HTTP requests
type PatternHandler struct {
	patterns  services.PatternServiceInterface
	detection services.DetectionServiceInterface
}

// NewPatternHandler creates a new pattern handler
func NewPatternHandler(
	patterns services.PatternServiceInterface,
	detection services.DetectionServiceInterface,
) *PatternHandler {
	return &PatternHandler{
		patterns:  patterns,
		detection: detection,
	}
}

// ListPatterns lists patterns with pagination
// @Summary List patterns
// @Tags Patterns
// @Produce json
// @Param offset query int false "Pagination offset" default(0)
// @Param limit query int false "Number of results per page (max 100)" default(20)
// @Success 200 {object} dto.ListPatternsResponse "Patterns"
// @Router /reconciliation/patterns [get]
func (h *PatternHandler) ListPatterns(c echo.Context) error {
	offset, limit := parsePagination(c)

	patterns, total, err := h.patterns.GetPatterns(offset, limit)
	if err != nil {
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ListPatternsResponse{
		Patterns:   patterns,
		Pagination: dto.PaginationInfo{Offset: offset, Limit: limit, Total: total},
	})
}

// ListPatternMatches groups current unresolved matches per active pattern
// @Summary List current pattern matches
// @Tags Patterns
// @Produce json
// @Param start_date query string false "Window start (YYYY-MM-DD), defaults to two months back"
// @Param end_date query string false "Window end (YYYY-MM-DD), defaults to today"
// @Success 200 {object} dto.PatternMatchesResponse "Matches grouped by pattern"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_005 - Invalid date range"
// @Router /reconciliation/patterns/matches [get]
func (h *PatternHandler) ListPatternMatches(c echo.Context) error {
	start, end, err := parseDateWindow(c)
	if err != nil {
		return SendError(c, errors.ValidationInvalidDate, errors.WithDetails(err.Error()))
	}

	groups, err := h.detection.DetectPatternMatches(c.Request().Context(), start, end)
	if err != nil {
		return SendError(c, errors.ReconDetectionAborted)
	}

	response := dto.PatternMatchesResponse{
		Groups:    make([]dto.PatternMatchGroupDTO, 0, len(groups)),
		StartDate: start,
		EndDate:   end,
	}
	for _, group := range groups {
		response.Groups = append(response.Groups, dto.PatternMatchGroupDTO{
			Pattern: group.Pattern,
			Matches: group.Matches,
		})
	}

	return c.JSON(http.StatusOK, response)
}

// CreatePattern creates a user-defined pattern
// @Summary Create a pattern
// @Tags Patterns
// @Accept json
// @Produce json
// @Param request body dto.CreatePatternRequest true "Pattern definition"
// @Success 201 {object} dto.PatternResponse "Created pattern"
// @Failure 409 {object} errors.ErrorResponse "PATTERN_004 - Expression already exists"
// @Failure 422 {object} errors.ErrorResponse "PATTERN_001 - Expression does not compile"
// @Router /reconciliation/patterns [post]
func (h *PatternHandler) CreatePattern(c echo.Context) error {
	var req dto.CreatePatternRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(err.Error()))
	}

	pattern := &models.Pattern{
		Name:               req.Name,
		Expression:         req.Expression,
		MatchType:          req.MatchType,
		Confidence:         req.Confidence,
		OverrideCategoryID: req.OverrideCategoryID,
	}
	if err := h.patterns.CreatePattern(c.Request().Context(), pattern); err != nil {
		switch {
		case stderrors.Is(err, services.ErrInvalidExpression):
			return SendError(c, errors.PatternInvalidRegex, errors.WithDetails(err.Error()))
		case stderrors.Is(err, services.ErrPatternExists):
			return SendError(c, errors.PatternAlreadyExists)
		default:
			return SendSystemError(c, err)
		}
	}

	return c.JSON(http.StatusCreated, dto.PatternResponse{Pattern: pattern})
}

// TogglePattern flips a pattern's active flag
// @Summary Toggle a pattern
// @Tags Patterns
// @Produce json
// @Param id path string true "Pattern ID (UUID)"
// @Success 200 {object} dto.PatternResponse "Updated pattern"
// @Failure 404 {object} errors.ErrorResponse "PATTERN_003 - Pattern not found"
// @Router /reconciliation/patterns/{id}/toggle [post]
func (h *PatternHandler) TogglePattern(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Pattern ID must be a valid UUID"))
	}

	pattern, err := h.patterns.ToggleActive(c.Request().Context(), id)
	if err != nil {
		if stderrors.Is(err, services.ErrPatternNotFound) {
			return SendError(c, errors.PatternNotFound)
		}
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, dto.PatternResponse{Pattern: pattern})
}

// DeletePattern removes a user-defined pattern
// @Summary Delete a pattern
// @Description Only user-defined patterns can be deleted. Auto-learned patterns keep their match history and can only be deactivated.
// @Tags Patterns
// @Produce json
// @Param id path string true "Pattern ID (UUID)"
// @Success 204 "Pattern deleted"
// @Failure 404 {object} errors.ErrorResponse "PATTERN_003 - Pattern not found"
// @Failure 422 {object} errors.ErrorResponse "PATTERN_002 - Pattern is auto-learned"
// @Router /reconciliation/patterns/{id} [delete]
func (h *PatternHandler) DeletePattern(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Pattern ID must be a valid UUID"))
	}

	if err := h.patterns.DeletePattern(c.Request().Context(), id); err != nil {
		switch {
		case stderrors.Is(err, services.ErrPatternNotFound):
			return SendError(c, errors.PatternNotFound)
		case stderrors.Is(err, services.ErrPatternNotUserDefined):
			return SendError(c, errors.PatternNotUserDefined)
		default:
			return SendSystemError(c, err)
		}
	}

	return c.NoContent(http.StatusNoContent)
}
