package services

import (
	"context"
	"testing"

	"clarify-engine/internal/database"
	"clarify-engine/internal/models"
	"clarify-engine/internal/repositories"

	"github.com/stretchr/testify/suite"
)

func TestAccountMatcherService(t *testing.T) {
	suite.Run(t, new(AccountMatcherServiceSuite))
}

type AccountMatcherServiceSuite struct {
	suite.Suite
	db      *database.DB
	service AccountMatcherServiceInterface
}

func (s *AccountMatcherServiceSuite) SetupTest() {
	s.db = database.SetupTestDB(s.T())
	s.service = NewAccountMatcherService(
		repositories.NewAccountDataRepository(s.db.DB),
		nil, testReconConfig(), testLogger(), noopMetrics{},
	)
}

// stubSuppression reports a fixed suppression verdict.
type stubSuppression struct {
	suppressed bool
}

func (s stubSuppression) IsLinkSuggestionSuppressed(ctx context.Context, accountID int64, name string) (bool, error) {
	return s.suppressed, nil
}

func (s *AccountMatcherServiceSuite) TearDownTest() {
	database.CleanupTestDB(s.T(), s.db)
}

func (s *AccountMatcherServiceSuite) TestMatchAccount_LinkedAccountWins() {
	s.Require().NoError(s.db.DB.Create(&models.LinkedAccountName{
		Name:      "Menora Pension",
		AccountID: 5,
	}).Error)
	// A known vendor with the exact same name would score 1.0 too, but the
	// linked tier is consulted first.
	s.Require().NoError(s.db.DB.Create(&models.KnownVendor{
		Name:       "Menora Pension",
		CategoryID: 12,
	}).Error)

	match, err := s.service.MatchAccount(context.Background(), "menora pension", "")
	s.NoError(err)
	s.Require().True(match.Matched)
	s.Equal(models.MatchTierLinkedAccount, match.Tier)
	s.Require().NotNil(match.AccountID)
	s.Equal(int64(5), *match.AccountID)
	s.Equal(1.0, match.Confidence)
}

func (s *AccountMatcherServiceSuite) TestMatchAccount_LinkedAccountFuzzy() {
	s.Require().NoError(s.db.DB.Create(&models.LinkedAccountName{
		Name:      "Menora Pension Deposit",
		AccountID: 5,
	}).Error)

	// Token overlap carries the reordered name over the 0.8 threshold.
	match, err := s.service.MatchAccount(context.Background(), "Pension Deposit Menora", "")
	s.NoError(err)
	s.Require().True(match.Matched)
	s.Equal(models.MatchTierLinkedAccount, match.Tier)
	s.Equal(1.0, match.Confidence)
}

func (s *AccountMatcherServiceSuite) TestMatchAccount_DismissedLinkFallsThrough() {
	s.Require().NoError(s.db.DB.Create(&models.LinkedAccountName{
		Name:      "Menora Pension",
		AccountID: 5,
	}).Error)
	s.Require().NoError(s.db.DB.Create(&models.KnownVendor{
		Name:       "Menora Pension",
		CategoryID: 12,
	}).Error)

	service := NewAccountMatcherService(
		repositories.NewAccountDataRepository(s.db.DB),
		stubSuppression{suppressed: true},
		testReconConfig(), testLogger(), noopMetrics{},
	)

	// The dismissed account link stays down; the vendor tier still answers.
	match, err := service.MatchAccount(context.Background(), "menora pension", "")
	s.NoError(err)
	s.Require().True(match.Matched)
	s.Equal(models.MatchTierKnownVendor, match.Tier)
	s.Nil(match.AccountID)
}

func (s *AccountMatcherServiceSuite) TestMatchAccount_DismissedLinkNoOtherTier() {
	s.Require().NoError(s.db.DB.Create(&models.LinkedAccountName{
		Name:      "Acme Holdings",
		AccountID: 9,
	}).Error)

	service := NewAccountMatcherService(
		repositories.NewAccountDataRepository(s.db.DB),
		stubSuppression{suppressed: true},
		testReconConfig(), testLogger(), noopMetrics{},
	)

	match, err := service.MatchAccount(context.Background(), "acme holdings", "")
	s.NoError(err)
	s.False(match.Matched)
}

func (s *AccountMatcherServiceSuite) TestMatchAccount_KnownVendor() {
	s.Require().NoError(s.db.DB.Create(&models.KnownVendor{
		Name:       "Super-Pharm",
		CategoryID: 31,
	}).Error)

	match, err := s.service.MatchAccount(context.Background(), "super-pharm", "")
	s.NoError(err)
	s.Require().True(match.Matched)
	s.Equal(models.MatchTierKnownVendor, match.Tier)
	s.Require().NotNil(match.CategoryID)
	s.Equal(int64(31), *match.CategoryID)
	s.Nil(match.AccountID)
}

func (s *AccountMatcherServiceSuite) TestMatchAccount_Rule() {
	s.Require().NoError(s.db.DB.Create(&models.CategorizationRule{
		NamePattern: "electric company",
		CategoryID:  7,
	}).Error)

	match, err := s.service.MatchAccount(context.Background(), "Electric  Company", "")
	s.NoError(err)
	s.Require().True(match.Matched)
	s.Equal(models.MatchTierRule, match.Tier)
	s.Require().NotNil(match.CategoryID)
	s.Equal(int64(7), *match.CategoryID)
}

func (s *AccountMatcherServiceSuite) TestMatchAccount_TypeDictionaryContainment() {
	// Hebrew savings term contained in a longer name: raw similarity is low
	// but containment counts as a strong hit.
	match, err := s.service.MatchAccount(context.Background(), "הפקדה לחשבון פיקדון חודשי", models.AccountTypeSavings)
	s.NoError(err)
	s.Require().True(match.Matched)
	s.Equal(models.MatchTierTypePattern, match.Tier)
	s.GreaterOrEqual(match.Confidence, 0.9)
	s.GreaterOrEqual(match.SourceCount, 1)
}

func (s *AccountMatcherServiceSuite) TestMatchAccount_TypeDictionaryAllTypes() {
	// No accountType hint: every type's dictionary is consulted.
	match, err := s.service.MatchAccount(context.Background(), "study fund monthly deposit", "")
	s.NoError(err)
	s.Require().True(match.Matched)
	s.Equal(models.MatchTierTypePattern, match.Tier)
}

func (s *AccountMatcherServiceSuite) TestMatchAccount_NoMatch() {
	match, err := s.service.MatchAccount(context.Background(), "xkcd", "")
	s.NoError(err)
	s.False(match.Matched)
	s.Empty(match.Tier)
}

func (s *AccountMatcherServiceSuite) TestMatchAccount_BlankName() {
	match, err := s.service.MatchAccount(context.Background(), "   ", models.AccountTypePension)
	s.NoError(err)
	s.False(match.Matched)
}

func (s *AccountMatcherServiceSuite) TestMatchAccount_InvalidType() {
	_, err := s.service.MatchAccount(context.Background(), "anything", "checking")
	s.ErrorIs(err, ErrInvalidAccountType)
}
