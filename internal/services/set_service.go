package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/vytor/verve/internal/errors"
	"github.com/vytor/verve/internal/logger"
	"github.com/vytor/verve/internal/models"
	"github.com/vytor/verve/internal/repository"
)

// SetService handles vocabulary set business logic
type SetService interface {
	List(ctx context.Context) ([]models.SetSummary, error)
	Create(ctx context.Context, name string) (*models.VocabSet, error)
	Get(ctx context.Context, id int64) (*models.VocabSet, error)
	Statistics(ctx context.Context, id int64) (*models.SetStatistics, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
	Reset(ctx context.Context, id int64) (int64, error)
}

type setService struct {
	sets      repository.SetRepository
	cards     repository.CardRepository
	snapshots repository.SnapshotRepository
	clock     clockwork.Clock
}

// NewSetService creates a new SetService
func NewSetService(sets repository.SetRepository, cards repository.CardRepository, snapshots repository.SnapshotRepository, clock clockwork.Clock) SetService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &setService{sets: sets, cards: cards, snapshots: snapshots, clock: clock}
}

func (s *setService) List(ctx context.Context) ([]models.SetSummary, error) {
	sets, err := s.sets.List(ctx, s.clock.Now().UTC())
	if err != nil {
		logger.FromContext(ctx).Error("failed to list sets: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return sets, nil
}

func (s *setService) Create(ctx context.Context, name string) (*models.VocabSet, error) {
	log := logger.FromContext(ctx)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewValidationError("name", "must not be empty")
	}

	id, err := s.sets.Create(ctx, name, s.clock.Now().UTC())
	if err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.NewConflictError("a set named "+name+" already exists", err)
		}
		log.Error("failed to create set: %v", err)
		return nil, errors.NewInternalError(err)
	}
	log.Info("created set: id=%d, name=%s", id, name)
	return s.Get(ctx, id)
}

func (s *setService) Get(ctx context.Context, id int64) (*models.VocabSet, error) {
	set, err := s.sets.Get(ctx, id)
	if err != nil {
		logger.FromContext(ctx).Error("failed to get set: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if set == nil {
		return nil, errors.NewNotFoundError("set", id)
	}
	return set, nil
}

func (s *setService) Statistics(ctx context.Context, id int64) (*models.SetStatistics, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	stats, err := s.cards.Statistics(ctx, id, s.clock.Now().UTC())
	if err != nil {
		logger.FromContext(ctx).Error("failed to get set statistics: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return stats, nil
}

func (s *setService) Rename(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.NewValidationError("name", "must not be empty")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.sets.Rename(ctx, id, name, s.clock.Now().UTC()); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return errors.NewConflictError("a set named "+name+" already exists", err)
		}
		return errors.NewInternalError(err)
	}
	return nil
}

// Delete removes the set, its cards and every stored session of the set.
func (s *setService) Delete(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.sets.Delete(ctx, id); err != nil {
		log.Error("failed to delete set: %v", err)
		return errors.NewInternalError(err)
	}
	n, err := s.snapshots.DeleteForSet(ctx, id)
	if err != nil {
		log.Warn("set %d deleted but its sessions were not: %v", id, err)
	}
	log.Info("deleted set: id=%d, sessions=%d", id, n)
	return nil
}

// Reset puts every card of the set back to level 1, due now.
func (s *setService) Reset(ctx context.Context, id int64) (int64, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}
	now := s.clock.Now().UTC()
	n, err := s.cards.ResetSet(ctx, id, now)
	if err != nil {
		logger.FromContext(ctx).Error("failed to reset set: %v", err)
		return 0, errors.NewInternalError(err)
	}
	if err := s.sets.Touch(ctx, id, now); err != nil {
		logger.FromContext(ctx).Warn("failed to touch set %d: %v", id, err)
	}
	return n, nil
}
