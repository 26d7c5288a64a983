package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"

	"clarify-engine/internal/dto"
	"clarify-engine/internal/errors"
	"clarify-engine/internal/services"

	"github.com/labstack/echo/v4"
)

// AccountMatchHandler handles fuzzy account-name matching requests
type AccountMatchHandler struct {
	matcher services.AccountMatcherServiceInterface
}

// NewAccountMatchHandler creates a new account match handler
func NewAccountMatchHandler(matcher services.AccountMatcherServiceInterface) *AccountMatchHandler {
	return &AccountMatchHandler{matcher: matcher}
}

// MatchAccount resolves a free-text name against the account tiers
// @Summary Match an account name
// @Description Evaluate the matching tiers in priority order (linked accounts, known vendors, categorization rules, type dictionaries) and return the first qualifying match
// @Tags Accounts
// @Produce json
// @Param name query string true "Free-text account or transaction name"
// @Param type query string false "Investment account type filter" Enums(pension, study_fund, brokerage, savings, provident)
// @Success 200 {object} dto.AccountMatchResponse "Match result; matched=false when no tier qualifies"
// @Failure 400 {object} errors.ErrorResponse "MATCH_001 - Unknown account type or MATCH_002 - Name required"
// @Router /accounts/match [get]
func (h *AccountMatchHandler) MatchAccount(c echo.Context) error {
	name := c.QueryParam("name")
	if strings.TrimSpace(name) == "" {
		return SendError(c, errors.MatchNameRequired)
	}

	match, err := h.matcher.MatchAccount(c.Request().Context(), name, c.QueryParam("type"))
	if err != nil {
		if stderrors.Is(err, services.ErrInvalidAccountType) {
			return SendError(c, errors.MatchInvalidAccountType)
		}
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, dto.AccountMatchResponse{Match: match})
}
