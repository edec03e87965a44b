package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/verve/internal/models"
)

// MockSetRepository is a mock implementation of repository.SetRepository
type MockSetRepository struct {
	mock.Mock
}

func (m *MockSetRepository) Create(ctx context.Context, name string, now time.Time) (int64, error) {
	args := m.Called(ctx, name, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSetRepository) Get(ctx context.Context, id int64) (*models.VocabSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VocabSet), args.Error(1)
}

func (m *MockSetRepository) GetByName(ctx context.Context, name string) (*models.VocabSet, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VocabSet), args.Error(1)
}

func (m *MockSetRepository) List(ctx context.Context, now time.Time) ([]models.SetSummary, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SetSummary), args.Error(1)
}

func (m *MockSetRepository) Rename(ctx context.Context, id int64, name string, now time.Time) error {
	args := m.Called(ctx, id, name, now)
	return args.Error(0)
}

func (m *MockSetRepository) Touch(ctx context.Context, id int64, now time.Time) error {
	args := m.Called(ctx, id, now)
	return args.Error(0)
}

func (m *MockSetRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
