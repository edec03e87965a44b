package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vytor/verve/internal/db"
	"github.com/vytor/verve/internal/models"
	"github.com/vytor/verve/internal/repository"
	"github.com/vytor/verve/internal/repository/sqlite"
	"github.com/vytor/verve/internal/testutil"
)

type SetRepositorySuite struct {
	suite.Suite
	db    *db.DB
	repo  repository.SetRepository
	cards repository.CardRepository
	now   time.Time
}

func (s *SetRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewSetRepository(s.db.DB)
	s.cards = sqlite.NewCardRepository(s.db.DB)
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *SetRepositorySuite) TestCreateAndGet() {
	ctx := context.Background()

	id, err := s.repo.Create(ctx, "Küche", s.now)
	s.Require().NoError(err)
	s.Assert().Greater(id, int64(0))

	set, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(set)
	s.Assert().Equal("Küche", set.Name)
	s.Assert().True(set.CreatedAt.Equal(s.now))

	byName, err := s.repo.GetByName(ctx, "Küche")
	s.Require().NoError(err)
	s.Require().NotNil(byName)
	s.Assert().Equal(id, byName.ID)
}

func (s *SetRepositorySuite) TestGetMissing() {
	set, err := s.repo.Get(context.Background(), 42)
	s.Require().NoError(err)
	s.Assert().Nil(set)
}

func (s *SetRepositorySuite) TestDuplicateName() {
	ctx := context.Background()
	_, err := s.repo.Create(ctx, "Verbs", s.now)
	s.Require().NoError(err)

	_, err = s.repo.Create(ctx, "Verbs", s.now)
	s.Assert().ErrorIs(err, repository.ErrDuplicate)

	other, err := s.repo.Create(ctx, "Nouns", s.now)
	s.Require().NoError(err)
	err = s.repo.Rename(ctx, other, "Verbs", s.now)
	s.Assert().ErrorIs(err, repository.ErrDuplicate)
}

func (s *SetRepositorySuite) TestListWithCounts() {
	ctx := context.Background()
	verbs, err := s.repo.Create(ctx, "Verbs", s.now)
	s.Require().NoError(err)
	_, err = s.repo.Create(ctx, "Adjectives", s.now)
	s.Require().NoError(err)

	id, err := s.cards.Insert(ctx, verbs, models.CardInput{Front: "gehen", Back: "to go"}, s.now)
	s.Require().NoError(err)
	_, err = s.cards.Insert(ctx, verbs, models.CardInput{Front: "sehen", Back: "to see"}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.cards.UpdateSchedule(ctx, id, models.Schedule{Level: 2, LastInterval: 1, EaseFactor: 2.6, NextReview: s.now.Add(24 * time.Hour)}))

	sets, err := s.repo.List(ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(sets, 2)

	s.Assert().Equal("Adjectives", sets[0].Name)
	s.Assert().Equal(0, sets[0].CardCount)
	s.Assert().Equal(0, sets[0].DueCount)

	s.Assert().Equal("Verbs", sets[1].Name)
	s.Assert().Equal(2, sets[1].CardCount)
	s.Assert().Equal(1, sets[1].DueCount)
}

func (s *SetRepositorySuite) TestRenameAndTouch() {
	ctx := context.Background()
	id, err := s.repo.Create(ctx, "Old", s.now)
	s.Require().NoError(err)

	later := s.now.Add(time.Hour)
	s.Require().NoError(s.repo.Rename(ctx, id, "New", later))

	set, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Assert().Equal("New", set.Name)
	s.Assert().True(set.UpdatedAt.Equal(later))

	evenLater := later.Add(time.Hour)
	s.Require().NoError(s.repo.Touch(ctx, id, evenLater))
	set, err = s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Assert().True(set.UpdatedAt.Equal(evenLater))
}

func TestSetRepositorySuite(t *testing.T) {
	suite.Run(t, new(SetRepositorySuite))
}
