package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"clarify-engine/internal/database"
	"clarify-engine/internal/dto"
	"clarify-engine/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

func TestPatternHandler(t *testing.T) {
	suite.Run(t, new(PatternHandlerSuite))
}

type PatternHandlerSuite struct {
	suite.Suite
	env *testEnv
}

func (s *PatternHandlerSuite) SetupTest() {
	s.env = newTestEnv(s.T())
}

func (s *PatternHandlerSuite) TearDownTest() {
	database.CleanupTestDB(s.T(), s.env.db)
}

func (s *PatternHandlerSuite) TestCreatePattern() {
	body := `{"name": "transfers", "expression": "%transfer%", "match_type": "transfer", "confidence": 0.8}`
	c, rec := s.env.request(http.MethodPost, "/api/v1/reconciliation/patterns", body)

	s.NoError(s.env.patterns.CreatePattern(c))
	s.Equal(http.StatusCreated, rec.Code)

	var response dto.PatternResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Require().NotNil(response.Pattern)
	s.True(response.Pattern.IsUserDefined)
	s.True(response.Pattern.IsActive)
}

func (s *PatternHandlerSuite) TestCreatePattern_MissingFields() {
	body := `{"expression": "%transfer%"}`
	c, rec := s.env.request(http.MethodPost, "/api/v1/reconciliation/patterns", body)

	s.NoError(s.env.patterns.CreatePattern(c))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "VALIDATION_001")
}

func (s *PatternHandlerSuite) TestCreatePattern_DuplicateExpression() {
	database.CreateTestPattern(s.T(), s.env.db, "rent", "%rent%", models.MatchTypeRent, true)

	body := `{"name": "rent again", "expression": "%rent%", "match_type": "rent"}`
	c, rec := s.env.request(http.MethodPost, "/api/v1/reconciliation/patterns", body)

	s.NoError(s.env.patterns.CreatePattern(c))
	s.Equal(http.StatusConflict, rec.Code)
	s.Contains(rec.Body.String(), "PATTERN_004")
}

func (s *PatternHandlerSuite) TestListPatterns() {
	database.CreateTestPattern(s.T(), s.env.db, "rent", "%rent%", models.MatchTypeRent, true)
	database.CreateTestPattern(s.T(), s.env.db, "transfers", "%transfer%", models.MatchTypeTransfer, true)

	c, rec := s.env.request(http.MethodGet, "/api/v1/reconciliation/patterns?limit=10", "")
	s.NoError(s.env.patterns.ListPatterns(c))
	s.Equal(http.StatusOK, rec.Code)

	var response dto.ListPatternsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Len(response.Patterns, 2)
	s.Equal(int64(2), response.Pagination.Total)
}

func (s *PatternHandlerSuite) TestListPatternMatches() {
	database.CreateTestPattern(s.T(), s.env.db, "rent", "%rent%", models.MatchTypeRent, true)
	database.CreateTestTransaction(s.T(), s.env.db, "t1", "discount", models.SourceBank,
		"monthly rent payment", -3500.00, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	c, rec := s.env.request(http.MethodGet,
		"/api/v1/reconciliation/patterns/matches?start_date=2025-03-01&end_date=2025-03-31", "")
	s.NoError(s.env.patterns.ListPatternMatches(c))
	s.Equal(http.StatusOK, rec.Code)

	var response dto.PatternMatchesResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Require().Len(response.Groups, 1)
	s.Equal("rent", response.Groups[0].Pattern.Name)
	s.Len(response.Groups[0].Matches, 1)
}

func (s *PatternHandlerSuite) TestTogglePattern() {
	pattern := database.CreateTestPattern(s.T(), s.env.db, "rent", "%rent%", models.MatchTypeRent, true)

	c, rec := s.env.request(http.MethodPost, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(pattern.ID.String())

	s.NoError(s.env.patterns.TogglePattern(c))
	s.Equal(http.StatusOK, rec.Code)

	var response dto.PatternResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.False(response.Pattern.IsActive)
}

func (s *PatternHandlerSuite) TestTogglePattern_NotFound() {
	c, rec := s.env.request(http.MethodPost, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	s.NoError(s.env.patterns.TogglePattern(c))
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "PATTERN_003")
}

func (s *PatternHandlerSuite) TestDeletePattern() {
	pattern := database.CreateTestPattern(s.T(), s.env.db, "rent", "%rent%", models.MatchTypeRent, true)

	c, rec := s.env.request(http.MethodDelete, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(pattern.ID.String())

	s.NoError(s.env.patterns.DeletePattern(c))
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *PatternHandlerSuite) TestDeletePattern_AutoLearned() {
	learned := database.CreateTestPattern(s.T(), s.env.db, "learned: pension", "%pension%", models.MatchTypeManual, false)

	c, rec := s.env.request(http.MethodDelete, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(learned.ID.String())

	s.NoError(s.env.patterns.DeletePattern(c))
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Contains(rec.Body.String(), "PATTERN_002")
}
