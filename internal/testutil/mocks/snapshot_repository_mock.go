package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockSnapshotRepository is a mock implementation of repository.SnapshotRepository
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Load(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSnapshotRepository) Save(ctx context.Context, key string, data []byte, at time.Time) error {
	args := m.Called(ctx, key, data, at)
	return args.Error(0)
}

func (m *MockSnapshotRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockSnapshotRepository) DeleteForSet(ctx context.Context, setID int64) (int64, error) {
	args := m.Called(ctx, setID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSnapshotRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
