package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vytor/verve/internal/models"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate entry")

// SetRepository handles vocabulary set data access
type SetRepository interface {
	Create(ctx context.Context, name string, now time.Time) (int64, error)
	Get(ctx context.Context, id int64) (*models.VocabSet, error)
	GetByName(ctx context.Context, name string) (*models.VocabSet, error)
	List(ctx context.Context, now time.Time) ([]models.SetSummary, error)
	Rename(ctx context.Context, id int64, name string, now time.Time) error
	Touch(ctx context.Context, id int64, now time.Time) error
	Delete(ctx context.Context, id int64) error
}

// CardRepository handles card data access
type CardRepository interface {
	Insert(ctx context.Context, setID int64, in models.CardInput, now time.Time) (int64, error)
	InsertMany(ctx context.Context, setID int64, in []models.CardInput, now time.Time) (int, error)
	Get(ctx context.Context, id int64) (*models.Card, error)
	GetByFront(ctx context.Context, setID int64, front string) (*models.Card, error)
	Delete(ctx context.Context, setID, id int64) error

	// DueCards returns the cards of a set due at now, ordered by id.
	DueCards(ctx context.Context, setID int64, now time.Time) ([]models.Card, error)
	// AllCards returns every card of a set in persisted practice order,
	// falling back to id for cards that were never ordered.
	AllCards(ctx context.Context, setID int64, wrongOnly bool) ([]models.Card, error)

	UpdateSchedule(ctx context.Context, cardID int64, s models.Schedule) error
	SetPracticeWrong(ctx context.Context, cardID int64, wrong bool) error
	Restore(ctx context.Context, cardID int64, s models.Schedule, since time.Time) error
	PersistOrder(ctx context.Context, setID int64, fronts []string) error
	ResetSet(ctx context.Context, setID int64, now time.Time) (int64, error)

	InsertReviewHistory(ctx context.Context, cardID int64, quality int, at time.Time) error
	ReviewHistory(ctx context.Context, cardID int64) ([]models.ReviewHistory, error)

	Statistics(ctx context.Context, setID int64, now time.Time) (*models.SetStatistics, error)
}

// SnapshotRepository stores encoded session snapshots by key
type SnapshotRepository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, at time.Time) error
	Delete(ctx context.Context, key string) error
	DeleteForSet(ctx context.Context, setID int64) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
