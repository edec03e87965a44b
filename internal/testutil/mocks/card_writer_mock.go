package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/verve/internal/models"
)

// MockCardWriter is a mock implementation of worker.CardWriter
type MockCardWriter struct {
	mock.Mock
}

func (m *MockCardWriter) RecordRating(ctx context.Context, setID int64, front string, quality int, s models.Schedule, at time.Time) error {
	args := m.Called(ctx, setID, front, quality, s, at)
	return args.Error(0)
}

func (m *MockCardWriter) MarkPractice(ctx context.Context, setID int64, front string, correct bool) error {
	args := m.Called(ctx, setID, front, correct)
	return args.Error(0)
}

func (m *MockCardWriter) RestoreCard(ctx context.Context, setID int64, front string, s models.Schedule, since time.Time) error {
	args := m.Called(ctx, setID, front, s, since)
	return args.Error(0)
}

func (m *MockCardWriter) PersistOrder(ctx context.Context, setID int64, fronts []string) error {
	args := m.Called(ctx, setID, fronts)
	return args.Error(0)
}
