package repositories

import (
	"testing"

	"clarify-engine/internal/database"
	"clarify-engine/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

func TestPatternRepository(t *testing.T) {
	suite.Run(t, new(PatternRepositorySuite))
}

type PatternRepositorySuite struct {
	suite.Suite
	db   *database.DB
	repo PatternRepositoryInterface
}

func (s *PatternRepositorySuite) SetupTest() {
	s.db = database.SetupTestDB(s.T())
	s.repo = NewPatternRepository(s.db.DB)
}

func (s *PatternRepositorySuite) TearDownTest() {
	database.CleanupTestDB(s.T(), s.db)
}

func (s *PatternRepositorySuite) newPattern(name, expression string) *models.Pattern {
	return &models.Pattern{
		Name:          name,
		Expression:    expression,
		MatchType:     models.MatchTypeRent,
		Confidence:    0.8,
		IsUserDefined: true,
		IsActive:      true,
	}
}

func (s *PatternRepositorySuite) TestPatternRepository_Create() {
	pattern := s.newPattern("rent", "%rent%")

	err := s.repo.Create(pattern)
	s.NoError(err)
	s.NotEqual(uuid.Nil, pattern.ID)
	s.NotZero(pattern.CreatedAt)
}

func (s *PatternRepositorySuite) TestPatternRepository_GetByID_NotFound() {
	_, err := s.repo.GetByID(uuid.New())
	s.ErrorIs(err, ErrPatternNotFound)
}

func (s *PatternRepositorySuite) TestPatternRepository_GetActive_OrdersByMatchCount() {
	quiet := s.newPattern("quiet", "%one%")
	s.NoError(s.repo.Create(quiet))

	busy := s.newPattern("busy", "%two%")
	s.NoError(s.repo.Create(busy))

	inactive := s.newPattern("inactive", "%three%")
	inactive.IsActive = false
	s.NoError(s.repo.Create(inactive))

	for i := 0; i < 3; i++ {
		s.NoError(s.repo.IncrementMatchCount(busy.ID))
	}

	active, err := s.repo.GetActive()
	s.NoError(err)
	s.Len(active, 2)
	s.Equal("busy", active[0].Name)
	s.Equal(3, active[0].MatchCount)
}

func (s *PatternRepositorySuite) TestPatternRepository_SetActive() {
	pattern := s.newPattern("rent", "%rent%")
	s.NoError(s.repo.Create(pattern))

	s.NoError(s.repo.SetActive(pattern.ID, false))

	got, err := s.repo.GetByID(pattern.ID)
	s.NoError(err)
	s.False(got.IsActive)

	s.ErrorIs(s.repo.SetActive(uuid.New(), false), ErrPatternNotFound)
}

func (s *PatternRepositorySuite) TestPatternRepository_Update() {
	pattern := s.newPattern("rent", "%rent%")
	s.NoError(s.repo.Create(pattern))

	pattern.Expression = "%monthly rent%"
	pattern.Confidence = 0.9
	s.NoError(s.repo.Update(pattern))

	got, err := s.repo.GetByID(pattern.ID)
	s.NoError(err)
	s.Equal("%monthly rent%", got.Expression)
	s.Equal(0.9, got.Confidence)
}

func (s *PatternRepositorySuite) TestPatternRepository_Delete() {
	pattern := s.newPattern("rent", "%rent%")
	s.NoError(s.repo.Create(pattern))

	s.NoError(s.repo.Delete(pattern.ID))
	s.ErrorIs(s.repo.Delete(pattern.ID), ErrPatternNotFound)

	_, err := s.repo.GetByID(pattern.ID)
	s.ErrorIs(err, ErrPatternNotFound)
}

func (s *PatternRepositorySuite) TestPatternRepository_ExistsByExpression() {
	pattern := s.newPattern("rent", "%rent%")
	s.NoError(s.repo.Create(pattern))

	exists, err := s.repo.ExistsByExpression("%rent%")
	s.NoError(err)
	s.True(exists)

	exists, err = s.repo.ExistsByExpression("%loan%")
	s.NoError(err)
	s.False(exists)
}

func (s *PatternRepositorySuite) TestPatternRepository_GetAll_Paginates() {
	for _, name := range []string{"a", "b", "c"} {
		s.NoError(s.repo.Create(s.newPattern(name, "%"+name+"%")))
	}

	patterns, total, err := s.repo.GetAll(0, 2)
	s.NoError(err)
	s.Equal(int64(3), total)
	s.Len(patterns, 2)
}
