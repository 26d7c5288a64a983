package services

import (
	"context"
	"testing"
	"time"

	"clarify-engine/internal/database"
	"clarify-engine/internal/models"
	"clarify-engine/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

func TestResolutionService(t *testing.T) {
	suite.Run(t, new(ResolutionServiceSuite))
}

type ResolutionServiceSuite struct {
	suite.Suite
	db         *database.DB
	duplicates repositories.DuplicateRepositoryInterface
	exclusions repositories.ExclusionRepositoryInterface
	patterns   repositories.PatternRepositoryInterface
	service    ResolutionServiceInterface
}

func (s *ResolutionServiceSuite) SetupTest() {
	s.db = database.SetupTestDB(s.T())
	transactions := repositories.NewTransactionRepository(s.db.DB)
	s.duplicates = repositories.NewDuplicateRepository(s.db.DB)
	s.exclusions = repositories.NewExclusionRepository(s.db.DB)
	s.patterns = repositories.NewPatternRepository(s.db.DB)
	dismissals := repositories.NewDismissalRepository(s.db.DB)

	s.service = NewResolutionService(
		transactions, s.duplicates, s.exclusions, s.patterns, dismissals,
		nil, testReconConfig(), testLogger(), noopMetrics{}, testAudit(),
	)

	database.CreateTestTransaction(s.T(), s.db, "b1", "discount", models.SourceBank,
		"MAX IT FINANCE", -4210.50, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC))
	database.CreateTestTransaction(s.T(), s.db, "cc1", "max", models.SourceCreditCard,
		"grocery store", -210.50, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
}

func (s *ResolutionServiceSuite) TearDownTest() {
	database.CleanupTestDB(s.T(), s.db)
}

func (s *ResolutionServiceSuite) confirmRequest() ConfirmRequest {
	return ConfirmRequest{
		First:      models.TransactionRef{Identifier: "b1", Vendor: "discount"},
		Second:     models.TransactionRef{Identifier: "cc1", Vendor: "max"},
		Exclude:    models.TransactionRef{Identifier: "b1", Vendor: "discount"},
		MatchType:  models.MatchTypeCreditCardPayment,
		Confidence: 0.93,
		Reason:     "credit card repayment",
	}
}

func (s *ResolutionServiceSuite) TestConfirmDuplicate() {
	duplicate, err := s.service.ConfirmDuplicate(context.Background(), s.confirmRequest())
	s.NoError(err)
	s.NotEqual(uuid.Nil, duplicate.ID)

	record, err := s.exclusions.GetByTransaction(models.TransactionRef{Identifier: "b1", Vendor: "discount"})
	s.NoError(err)
	s.True(record.IsDuplicateOwned())
	s.True(record.IsExcluded)

	// The kept member carries an owned record too, without leaving totals.
	kept, err := s.exclusions.GetByTransaction(models.TransactionRef{Identifier: "cc1", Vendor: "max"})
	s.NoError(err)
	s.True(kept.IsDuplicateOwned())
	s.False(kept.IsExcluded)
}

func (s *ResolutionServiceSuite) TestConfirmDuplicate_Idempotent() {
	first, err := s.service.ConfirmDuplicate(context.Background(), s.confirmRequest())
	s.NoError(err)

	// Same pair in swapped member order.
	req := s.confirmRequest()
	req.First, req.Second = req.Second, req.First
	second, err := s.service.ConfirmDuplicate(context.Background(), req)
	s.NoError(err)
	s.Equal(first.ID, second.ID)

	_, total, err := s.duplicates.GetAll(0, 10)
	s.NoError(err)
	s.Equal(int64(1), total)
}

func (s *ResolutionServiceSuite) TestConfirmDuplicate_SupersedesManualExclusion() {
	_, err := s.service.ManualExclude(context.Background(), ExcludeRequest{
		Transaction: models.TransactionRef{Identifier: "b1", Vendor: "discount"},
		Reason:      "looks odd",
	})
	s.NoError(err)

	_, err = s.service.ConfirmDuplicate(context.Background(), s.confirmRequest())
	s.NoError(err)

	record, err := s.exclusions.GetByTransaction(models.TransactionRef{Identifier: "b1", Vendor: "discount"})
	s.NoError(err)
	s.Equal(models.ExclusionTypeDuplicate, record.ExclusionType)
}

func (s *ResolutionServiceSuite) TestConfirmDuplicate_SupersedesManualOnKeptMember() {
	// Manual exclusion on the member that stays in totals after the confirm.
	_, err := s.service.ManualExclude(context.Background(), ExcludeRequest{
		Transaction: models.TransactionRef{Identifier: "cc1", Vendor: "max"},
		Reason:      "pension deposit",
	})
	s.NoError(err)

	duplicate, err := s.service.ConfirmDuplicate(context.Background(), s.confirmRequest())
	s.NoError(err)

	// The manual record gives way to the confirmation's owned record, so the
	// kept member comes back into totals and is locked by the pair alone.
	record, err := s.exclusions.GetByTransaction(models.TransactionRef{Identifier: "cc1", Vendor: "max"})
	s.NoError(err)
	s.Equal(models.ExclusionTypeDuplicate, record.ExclusionType)
	s.False(record.IsExcluded)
	s.Require().NotNil(record.ConfirmedDuplicateID)
	s.Equal(duplicate.ID, *record.ConfirmedDuplicateID)
}

func (s *ResolutionServiceSuite) TestConfirmDuplicate_RefusesMemberOfAnotherPair() {
	database.CreateTestTransaction(s.T(), s.db, "cc2", "max", models.SourceCreditCard,
		"MAX IT FINANCE", -4210.50, time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC))

	_, err := s.service.ConfirmDuplicate(context.Background(), s.confirmRequest())
	s.NoError(err)

	// b1 is spoken for; pairing it with cc2 must be refused in either role.
	req := s.confirmRequest()
	req.Second = models.TransactionRef{Identifier: "cc2", Vendor: "max"}
	_, err = s.service.ConfirmDuplicate(context.Background(), req)
	s.ErrorIs(err, ErrConflictingResolution)

	req.Exclude = req.Second
	_, err = s.service.ConfirmDuplicate(context.Background(), req)
	s.ErrorIs(err, ErrConflictingResolution)

	_, total, err := s.duplicates.GetAll(0, 10)
	s.NoError(err)
	s.Equal(int64(1), total)
}

func (s *ResolutionServiceSuite) TestConfirmDuplicate_RejectsInvalidCandidates() {
	t := s.T()

	t.Run("unknown transaction", func(t *testing.T) {
		req := s.confirmRequest()
		req.Second = models.TransactionRef{Identifier: "ghost", Vendor: "max"}
		_, err := s.service.ConfirmDuplicate(context.Background(), req)
		s.ErrorIs(err, ErrInvalidCandidate)
	})

	t.Run("self pair", func(t *testing.T) {
		req := s.confirmRequest()
		req.Second = req.First
		_, err := s.service.ConfirmDuplicate(context.Background(), req)
		s.ErrorIs(err, ErrInvalidCandidate)
	})

	t.Run("exclude outside pair", func(t *testing.T) {
		req := s.confirmRequest()
		req.Exclude = models.TransactionRef{Identifier: "other", Vendor: "max"}
		_, err := s.service.ConfirmDuplicate(context.Background(), req)
		s.ErrorIs(err, ErrInvalidCandidate)
	})

	t.Run("bad match type", func(t *testing.T) {
		req := s.confirmRequest()
		req.MatchType = "guess"
		_, err := s.service.ConfirmDuplicate(context.Background(), req)
		s.ErrorIs(err, models.ErrInvalidMatchType)
	})
}

func (s *ResolutionServiceSuite) TestConfirmDuplicate_CreditsPattern() {
	pattern := database.CreateTestPattern(s.T(), s.db, "repayments", "%finance%", models.MatchTypeCreditCardPayment, true)

	req := s.confirmRequest()
	req.PatternID = &pattern.ID
	_, err := s.service.ConfirmDuplicate(context.Background(), req)
	s.NoError(err)

	got, err := s.patterns.GetByID(pattern.ID)
	s.NoError(err)
	s.Equal(1, got.MatchCount)
}

func (s *ResolutionServiceSuite) TestUnconfirmDuplicate_RoundTrip() {
	duplicate, err := s.service.ConfirmDuplicate(context.Background(), s.confirmRequest())
	s.NoError(err)

	s.NoError(s.service.UnconfirmDuplicate(context.Background(), duplicate.ID))

	_, err = s.exclusions.GetByTransaction(models.TransactionRef{Identifier: "b1", Vendor: "discount"})
	s.ErrorIs(err, repositories.ErrExclusionNotFound)
	_, err = s.exclusions.GetByTransaction(models.TransactionRef{Identifier: "cc1", Vendor: "max"})
	s.ErrorIs(err, repositories.ErrExclusionNotFound)

	// A fresh confirm works again after the round trip.
	again, err := s.service.ConfirmDuplicate(context.Background(), s.confirmRequest())
	s.NoError(err)
	s.NotEqual(duplicate.ID, again.ID)
}

func (s *ResolutionServiceSuite) TestUnconfirmDuplicate_NotFound() {
	err := s.service.UnconfirmDuplicate(context.Background(), uuid.New())
	s.ErrorIs(err, ErrResolutionNotFound)
}

func (s *ResolutionServiceSuite) TestManualExclude_ConflictsWithConfirmedDuplicate() {
	_, err := s.service.ConfirmDuplicate(context.Background(), s.confirmRequest())
	s.NoError(err)

	// Both members are locked, not just the excluded one.
	for _, ref := range []models.TransactionRef{
		{Identifier: "b1", Vendor: "discount"},
		{Identifier: "cc1", Vendor: "max"},
	} {
		_, err := s.service.ManualExclude(context.Background(), ExcludeRequest{
			Transaction: ref,
			Reason:      "noise",
		})
		s.ErrorIs(err, ErrConflictingResolution)
	}
}

func (s *ResolutionServiceSuite) TestManualExclude_UpdateKeepsExcluded() {
	ref := models.TransactionRef{Identifier: "cc1", Vendor: "max"}

	_, err := s.service.ManualExclude(context.Background(), ExcludeRequest{
		Transaction: ref,
		Reason:      "pension deposit",
	})
	s.NoError(err)

	categoryID := int64(12)
	record, err := s.service.ManualExclude(context.Background(), ExcludeRequest{
		Transaction:        ref,
		Reason:             "pension deposit",
		OverrideCategoryID: &categoryID,
		Notes:              "recategorized",
	})
	s.NoError(err)
	s.True(record.IsExcluded)
	s.NotNil(record.OverrideCategoryID)
}

func (s *ResolutionServiceSuite) TestManualInclude() {
	ref := models.TransactionRef{Identifier: "cc1", Vendor: "max"}

	_, err := s.service.ManualExclude(context.Background(), ExcludeRequest{
		Transaction: ref,
		Reason:      "noise",
	})
	s.NoError(err)

	s.NoError(s.service.ManualInclude(context.Background(), ref))

	_, err = s.exclusions.GetByTransaction(ref)
	s.ErrorIs(err, repositories.ErrExclusionNotFound)
}

func (s *ResolutionServiceSuite) TestManualInclude_RefusesDuplicateOwned() {
	_, err := s.service.ConfirmDuplicate(context.Background(), s.confirmRequest())
	s.NoError(err)

	err = s.service.ManualInclude(context.Background(), models.TransactionRef{Identifier: "b1", Vendor: "discount"})
	s.ErrorIs(err, ErrNotManuallyExcluded)
}

func (s *ResolutionServiceSuite) TestManualInclude_NotExcluded() {
	err := s.service.ManualInclude(context.Background(), models.TransactionRef{Identifier: "cc1", Vendor: "max"})
	s.ErrorIs(err, ErrResolutionNotFound)
}

func (s *ResolutionServiceSuite) TestDismissSuggestion_EphemeralWithoutAccount() {
	s.NoError(s.service.DismissSuggestion(context.Background(), DismissRequest{
		NameFragment: "mystery",
	}))

	// Nothing persisted: an unrelated account sees no suppression.
	suppressed, err := s.service.IsLinkSuggestionSuppressed(context.Background(), 1, "mystery")
	s.NoError(err)
	s.False(suppressed)
}

func (s *ResolutionServiceSuite) TestDismissSuggestion_LinkSuppressionLifts() {
	accountID := int64(7)

	seed := func(n int) {
		for i := 0; i < n; i++ {
			database.CreateTestTransaction(s.T(), s.db,
				uuid.NewString(), "meitav", models.SourceInvestment,
				"Menora Pension Deposit", -1200,
				time.Date(2025, 3, 1+i, 0, 0, 0, 0, time.UTC))
		}
	}

	seed(2)
	s.NoError(s.service.DismissSuggestion(context.Background(), DismissRequest{
		AccountID:    &accountID,
		NameFragment: "menora pension",
	}))

	suppressed, err := s.service.IsLinkSuggestionSuppressed(context.Background(), accountID, "menora pension")
	s.NoError(err)
	s.True(suppressed)

	// Two new matching transactions are below the threshold of three.
	seed(2)
	suppressed, err = s.service.IsLinkSuggestionSuppressed(context.Background(), accountID, "menora pension")
	s.NoError(err)
	s.True(suppressed)

	seed(1)
	suppressed, err = s.service.IsLinkSuggestionSuppressed(context.Background(), accountID, "menora pension")
	s.NoError(err)
	s.False(suppressed)
}
