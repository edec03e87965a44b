package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/verve/internal/models"
)

// MockCardRepository is a mock implementation of repository.CardRepository
type MockCardRepository struct {
	mock.Mock
}

func (m *MockCardRepository) Insert(ctx context.Context, setID int64, in models.CardInput, now time.Time) (int64, error) {
	args := m.Called(ctx, setID, in, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCardRepository) InsertMany(ctx context.Context, setID int64, in []models.CardInput, now time.Time) (int, error) {
	args := m.Called(ctx, setID, in, now)
	return args.Int(0), args.Error(1)
}

func (m *MockCardRepository) Get(ctx context.Context, id int64) (*models.Card, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Card), args.Error(1)
}

func (m *MockCardRepository) GetByFront(ctx context.Context, setID int64, front string) (*models.Card, error) {
	args := m.Called(ctx, setID, front)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Card), args.Error(1)
}

func (m *MockCardRepository) Delete(ctx context.Context, setID, id int64) error {
	args := m.Called(ctx, setID, id)
	return args.Error(0)
}

func (m *MockCardRepository) DueCards(ctx context.Context, setID int64, now time.Time) ([]models.Card, error) {
	args := m.Called(ctx, setID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Card), args.Error(1)
}

func (m *MockCardRepository) AllCards(ctx context.Context, setID int64, wrongOnly bool) ([]models.Card, error) {
	args := m.Called(ctx, setID, wrongOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Card), args.Error(1)
}

func (m *MockCardRepository) UpdateSchedule(ctx context.Context, cardID int64, s models.Schedule) error {
	args := m.Called(ctx, cardID, s)
	return args.Error(0)
}

func (m *MockCardRepository) SetPracticeWrong(ctx context.Context, cardID int64, wrong bool) error {
	args := m.Called(ctx, cardID, wrong)
	return args.Error(0)
}

func (m *MockCardRepository) Restore(ctx context.Context, cardID int64, s models.Schedule, since time.Time) error {
	args := m.Called(ctx, cardID, s, since)
	return args.Error(0)
}

func (m *MockCardRepository) PersistOrder(ctx context.Context, setID int64, fronts []string) error {
	args := m.Called(ctx, setID, fronts)
	return args.Error(0)
}

func (m *MockCardRepository) ResetSet(ctx context.Context, setID int64, now time.Time) (int64, error) {
	args := m.Called(ctx, setID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCardRepository) InsertReviewHistory(ctx context.Context, cardID int64, quality int, at time.Time) error {
	args := m.Called(ctx, cardID, quality, at)
	return args.Error(0)
}

func (m *MockCardRepository) ReviewHistory(ctx context.Context, cardID int64) ([]models.ReviewHistory, error) {
	args := m.Called(ctx, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReviewHistory), args.Error(1)
}

func (m *MockCardRepository) Statistics(ctx context.Context, setID int64, now time.Time) (*models.SetStatistics, error) {
	args := m.Called(ctx, setID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SetStatistics), args.Error(1)
}
