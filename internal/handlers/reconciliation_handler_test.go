package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"clarify-engine/internal/database"
	"clarify-engine/internal/dto"
	"clarify-engine/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

func TestReconciliationHandler(t *testing.T) {
	suite.Run(t, new(ReconciliationHandlerSuite))
}

type ReconciliationHandlerSuite struct {
	suite.Suite
	env *testEnv
}

func (s *ReconciliationHandlerSuite) SetupTest() {
	s.env = newTestEnv(s.T())

	database.CreateTestTransaction(s.T(), s.env.db, "b1", "discount", models.SourceBank,
		"MAX IT FINANCE", -500.00, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC))
	for i := 0; i < 5; i++ {
		database.CreateTestTransaction(s.T(), s.env.db,
			fmt.Sprintf("cc-%d", i), "max", models.SourceCreditCard,
			fmt.Sprintf("charge %d", i), -100.00,
			time.Date(2025, 3, 3+i, 0, 0, 0, 0, time.UTC))
	}
}

func (s *ReconciliationHandlerSuite) TearDownTest() {
	database.CleanupTestDB(s.T(), s.env.db)
}

const confirmBody = `{
	"first": {"identifier": "b1", "vendor": "discount"},
	"second": {"identifier": "cc-0", "vendor": "max"},
	"exclude": {"identifier": "b1", "vendor": "discount"},
	"match_type": "credit_card_payment",
	"confidence": 0.93,
	"reason": "card repayment"
}`

func (s *ReconciliationHandlerSuite) TestDetectDuplicates() {
	c, rec := s.env.request(http.MethodGet,
		"/api/v1/reconciliation/duplicates?start_date=2025-03-01&end_date=2025-04-30", "")

	s.NoError(s.env.reconciliation.DetectDuplicates(c))
	s.Equal(http.StatusOK, rec.Code)

	var response dto.DetectDuplicatesResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Require().NotEmpty(response.Candidates)
	s.Equal(models.MatchTypeCreditCardPayment, response.Candidates[0].Type)
	s.Equal(len(response.Candidates), response.Count)
}

func (s *ReconciliationHandlerSuite) TestDetectDuplicates_InvalidDateRange() {
	c, rec := s.env.request(http.MethodGet,
		"/api/v1/reconciliation/duplicates?start_date=bogus", "")

	s.NoError(s.env.reconciliation.DetectDuplicates(c))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "VALIDATION_005")

	c, rec = s.env.request(http.MethodGet,
		"/api/v1/reconciliation/duplicates?start_date=2025-04-01&end_date=2025-03-01", "")
	s.NoError(s.env.reconciliation.DetectDuplicates(c))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ReconciliationHandlerSuite) TestConfirmDuplicate() {
	c, rec := s.env.request(http.MethodPost, "/api/v1/reconciliation/duplicates/confirm", confirmBody)

	s.NoError(s.env.reconciliation.ConfirmDuplicate(c))
	s.Equal(http.StatusCreated, rec.Code)

	var response dto.ConfirmDuplicateResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Require().NotNil(response.Duplicate)
	s.NotEqual(uuid.Nil, response.Duplicate.ID)
}

func (s *ReconciliationHandlerSuite) TestConfirmDuplicate_IdempotentPair() {
	c, _ := s.env.request(http.MethodPost, "/api/v1/reconciliation/duplicates/confirm", confirmBody)
	s.NoError(s.env.reconciliation.ConfirmDuplicate(c))

	c, rec := s.env.request(http.MethodPost, "/api/v1/reconciliation/duplicates/confirm", confirmBody)
	s.NoError(s.env.reconciliation.ConfirmDuplicate(c))
	s.Equal(http.StatusCreated, rec.Code)
}

func (s *ReconciliationHandlerSuite) TestConfirmDuplicate_InvalidMatchType() {
	body := `{
		"first": {"identifier": "b1", "vendor": "discount"},
		"second": {"identifier": "cc-0", "vendor": "max"},
		"exclude": {"identifier": "b1", "vendor": "discount"},
		"match_type": "guesswork",
		"confidence": 0.9
	}`
	c, rec := s.env.request(http.MethodPost, "/api/v1/reconciliation/duplicates/confirm", body)

	s.NoError(s.env.reconciliation.ConfirmDuplicate(c))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "VALIDATION_001")
}

func (s *ReconciliationHandlerSuite) TestConfirmDuplicate_UnknownTransaction() {
	body := `{
		"first": {"identifier": "ghost", "vendor": "discount"},
		"second": {"identifier": "cc-0", "vendor": "max"},
		"exclude": {"identifier": "ghost", "vendor": "discount"},
		"match_type": "credit_card_payment",
		"confidence": 0.9
	}`
	c, rec := s.env.request(http.MethodPost, "/api/v1/reconciliation/duplicates/confirm", body)

	s.NoError(s.env.reconciliation.ConfirmDuplicate(c))
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Contains(rec.Body.String(), "RECON_004")
}

func (s *ReconciliationHandlerSuite) TestUnconfirmDuplicate() {
	c, rec := s.env.request(http.MethodPost, "/api/v1/reconciliation/duplicates/confirm", confirmBody)
	s.NoError(s.env.reconciliation.ConfirmDuplicate(c))

	var response dto.ConfirmDuplicateResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))

	c, rec = s.env.request(http.MethodDelete, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(response.Duplicate.ID.String())

	s.NoError(s.env.reconciliation.UnconfirmDuplicate(c))
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *ReconciliationHandlerSuite) TestUnconfirmDuplicate_NotFound() {
	c, rec := s.env.request(http.MethodDelete, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	s.NoError(s.env.reconciliation.UnconfirmDuplicate(c))
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "RECON_003")
}

func (s *ReconciliationHandlerSuite) TestUnconfirmDuplicate_InvalidID() {
	c, rec := s.env.request(http.MethodDelete, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	s.NoError(s.env.reconciliation.UnconfirmDuplicate(c))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ReconciliationHandlerSuite) TestExcludeTransaction() {
	body := `{"identifier": "cc-1", "vendor": "max", "reason": "pension deposit"}`
	c, rec := s.env.request(http.MethodPost, "/api/v1/reconciliation/exclusions", body)

	s.NoError(s.env.reconciliation.ExcludeTransaction(c))
	s.Equal(http.StatusCreated, rec.Code)

	var record models.ExclusionRecord
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &record))
	s.Equal(models.ExclusionTypeManual, record.ExclusionType)
	s.True(record.IsExcluded)
}

func (s *ReconciliationHandlerSuite) TestExcludeTransaction_ConflictsWithConfirmed() {
	c, _ := s.env.request(http.MethodPost, "/api/v1/reconciliation/duplicates/confirm", confirmBody)
	s.NoError(s.env.reconciliation.ConfirmDuplicate(c))

	body := `{"identifier": "b1", "vendor": "discount", "reason": "noise"}`
	c, rec := s.env.request(http.MethodPost, "/api/v1/reconciliation/exclusions", body)

	s.NoError(s.env.reconciliation.ExcludeTransaction(c))
	s.Equal(http.StatusConflict, rec.Code)
	s.Contains(rec.Body.String(), "RECON_001")
}

func (s *ReconciliationHandlerSuite) TestIncludeTransaction() {
	body := `{"identifier": "cc-1", "vendor": "max", "reason": "noise"}`
	c, _ := s.env.request(http.MethodPost, "/api/v1/reconciliation/exclusions", body)
	s.NoError(s.env.reconciliation.ExcludeTransaction(c))

	c, rec := s.env.request(http.MethodDelete, "/", "")
	c.SetParamNames("vendor", "identifier")
	c.SetParamValues("max", "cc-1")

	s.NoError(s.env.reconciliation.IncludeTransaction(c))
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *ReconciliationHandlerSuite) TestIncludeTransaction_DuplicateOwned() {
	c, _ := s.env.request(http.MethodPost, "/api/v1/reconciliation/duplicates/confirm", confirmBody)
	s.NoError(s.env.reconciliation.ConfirmDuplicate(c))

	c, rec := s.env.request(http.MethodDelete, "/", "")
	c.SetParamNames("vendor", "identifier")
	c.SetParamValues("discount", "b1")

	s.NoError(s.env.reconciliation.IncludeTransaction(c))
	s.Equal(http.StatusConflict, rec.Code)
	s.Contains(rec.Body.String(), "RECON_002")
}

func (s *ReconciliationHandlerSuite) TestIncludeTransaction_NotFound() {
	c, rec := s.env.request(http.MethodDelete, "/", "")
	c.SetParamNames("vendor", "identifier")
	c.SetParamValues("max", "cc-4")

	s.NoError(s.env.reconciliation.IncludeTransaction(c))
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ReconciliationHandlerSuite) TestDismissSuggestion() {
	body := `{"name_fragment": "mystery pair"}`
	c, rec := s.env.request(http.MethodPost, "/api/v1/reconciliation/suggestions/dismiss", body)

	s.NoError(s.env.reconciliation.DismissSuggestion(c))
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ReconciliationHandlerSuite) TestDismissSuggestion_PersistedForAccountLink() {
	body := `{"account_id": 7, "name_fragment": "menora pension"}`
	c, rec := s.env.request(http.MethodPost, "/api/v1/reconciliation/suggestions/dismiss", body)

	s.NoError(s.env.reconciliation.DismissSuggestion(c))
	s.Equal(http.StatusOK, rec.Code)

	var count int64
	s.env.db.DB.Model(&models.LinkSuggestionDismissal{}).Count(&count)
	s.Equal(int64(1), count)
}

func (s *ReconciliationHandlerSuite) TestListConfirmedDuplicates() {
	c, _ := s.env.request(http.MethodPost, "/api/v1/reconciliation/duplicates/confirm", confirmBody)
	s.NoError(s.env.reconciliation.ConfirmDuplicate(c))

	c, rec := s.env.request(http.MethodGet, "/api/v1/reconciliation/duplicates/confirmed?limit=10", "")
	s.NoError(s.env.reconciliation.ListConfirmedDuplicates(c))
	s.Equal(http.StatusOK, rec.Code)

	var response dto.ListConfirmedDuplicatesResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Len(response.Duplicates, 1)
	s.Equal(int64(1), response.Pagination.Total)
}
