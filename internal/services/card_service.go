package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/vytor/verve/internal/errors"
	"github.com/vytor/verve/internal/flashcard"
	"github.com/vytor/verve/internal/logger"
	"github.com/vytor/verve/internal/models"
	"github.com/vytor/verve/internal/repository"
)

// CardService handles card business logic. Besides the CRUD used by the
// HTTP layer it is the card source of review sessions and the writer behind
// the durable write queue.
type CardService interface {
	List(ctx context.Context, setID int64, dueOnly, wrongOnly bool) ([]models.Card, error)
	Add(ctx context.Context, setID int64, in models.CardInput) (*models.Card, error)
	Delete(ctx context.Context, setID, cardID int64) error

	DueCards(ctx context.Context, setID int64, now time.Time) ([]models.Card, error)
	AllCards(ctx context.Context, setID int64, wrongOnly bool) ([]models.Card, error)

	ApplyRating(ctx context.Context, setID int64, front string, quality int) (*models.RatingResult, error)
	RecordRating(ctx context.Context, setID int64, front string, quality int, s models.Schedule, at time.Time) error
	MarkPractice(ctx context.Context, setID int64, front string, correct bool) error
	RestoreCard(ctx context.Context, setID int64, front string, s models.Schedule, since time.Time) error
	PersistOrder(ctx context.Context, setID int64, fronts []string) error
}

type cardService struct {
	sets  repository.SetRepository
	cards repository.CardRepository
	clock clockwork.Clock
}

// NewCardService creates a new CardService
func NewCardService(sets repository.SetRepository, cards repository.CardRepository, clock clockwork.Clock) CardService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &cardService{sets: sets, cards: cards, clock: clock}
}

func (s *cardService) requireSet(ctx context.Context, setID int64) error {
	set, err := s.sets.Get(ctx, setID)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if set == nil {
		return errors.NewNotFoundError("set", setID)
	}
	return nil
}

func (s *cardService) List(ctx context.Context, setID int64, dueOnly, wrongOnly bool) ([]models.Card, error) {
	if err := s.requireSet(ctx, setID); err != nil {
		return nil, err
	}
	if dueOnly {
		cards, err := s.DueCards(ctx, setID, s.clock.Now().UTC())
		if err != nil || !wrongOnly {
			return cards, err
		}
		wrong := make([]models.Card, 0, len(cards))
		for _, c := range cards {
			if c.Level == 1 {
				wrong = append(wrong, c)
			}
		}
		return wrong, nil
	}
	return s.AllCards(ctx, setID, wrongOnly)
}

func (s *cardService) Add(ctx context.Context, setID int64, in models.CardInput) (*models.Card, error) {
	log := logger.FromContext(ctx)
	in.Front = strings.TrimSpace(in.Front)
	in.Back = strings.TrimSpace(in.Back)
	if in.Front == "" {
		return nil, errors.NewValidationError("front", "must not be empty")
	}
	if in.Back == "" {
		return nil, errors.NewValidationError("back", "must not be empty")
	}
	if err := s.requireSet(ctx, setID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	id, err := s.cards.Insert(ctx, setID, in, now)
	if err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.NewConflictError("card "+in.Front+" already exists in this set", err)
		}
		log.Error("failed to add card: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if err := s.sets.Touch(ctx, setID, now); err != nil {
		log.Warn("failed to touch set %d: %v", setID, err)
	}

	card, err := s.cards.Get(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	log.Debug("added card: id=%d, front=%s", id, in.Front)
	return card, nil
}

func (s *cardService) Delete(ctx context.Context, setID, cardID int64) error {
	card, err := s.cards.Get(ctx, cardID)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if card == nil || card.SetID != setID {
		return errors.NewNotFoundError("card", cardID)
	}
	if err := s.cards.Delete(ctx, setID, cardID); err != nil {
		logger.FromContext(ctx).Error("failed to delete card: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *cardService) DueCards(ctx context.Context, setID int64, now time.Time) ([]models.Card, error) {
	cards, err := s.cards.DueCards(ctx, setID, now)
	if err != nil {
		logger.FromContext(ctx).Error("failed to fetch due cards: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return cards, nil
}

func (s *cardService) AllCards(ctx context.Context, setID int64, wrongOnly bool) ([]models.Card, error) {
	cards, err := s.cards.AllCards(ctx, setID, wrongOnly)
	if err != nil {
		logger.FromContext(ctx).Error("failed to fetch cards: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return cards, nil
}

// cardByFront returns the card or a NOT_FOUND error that the write queue
// does not retry.
func (s *cardService) cardByFront(ctx context.Context, setID int64, front string) (*models.Card, error) {
	card, err := s.cards.GetByFront(ctx, setID, front)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if card == nil {
		return nil, backoff.Permanent(errors.NewNotFoundError("card", front))
	}
	return card, nil
}

func checkQuality(quality int) error {
	if quality < 0 || quality > 5 {
		return backoff.Permanent(errors.NewValidationError("quality", "must be between 0 and 5"))
	}
	return nil
}

// ApplyRating runs the scheduler on the stored card and persists the result.
func (s *cardService) ApplyRating(ctx context.Context, setID int64, front string, quality int) (*models.RatingResult, error) {
	log := logger.FromContext(ctx)
	log.Debug("applying rating: set_id=%d, front=%s, quality=%d", setID, front, quality)

	if err := checkQuality(quality); err != nil {
		return nil, err
	}
	card, err := s.cardByFront(ctx, setID, front)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	updated := flashcard.ApplyReview(*card, quality, now)
	if err := s.write(ctx, card.ID, quality, updated.Schedule(), now); err != nil {
		return nil, err
	}

	log.Info("rated card %q: level %d -> %d, next in %d days", front, card.Level, updated.Level, updated.LastInterval)
	return &models.RatingResult{
		Card:         updated,
		OldLevel:     card.Level,
		NewLevel:     updated.Level,
		IntervalDays: updated.LastInterval,
	}, nil
}

// RecordRating persists a schedule already computed by a review session.
func (s *cardService) RecordRating(ctx context.Context, setID int64, front string, quality int, sched models.Schedule, at time.Time) error {
	if err := checkQuality(quality); err != nil {
		return err
	}
	card, err := s.cardByFront(ctx, setID, front)
	if err != nil {
		return err
	}
	return s.write(ctx, card.ID, quality, sched, at)
}

func (s *cardService) write(ctx context.Context, cardID int64, quality int, sched models.Schedule, at time.Time) error {
	sched.NextReview = sched.NextReview.UTC()
	if err := s.cards.UpdateSchedule(ctx, cardID, sched); err != nil {
		logger.FromContext(ctx).Error("failed to update schedule: %v", err)
		return errors.NewInternalError(err)
	}
	if err := s.cards.InsertReviewHistory(ctx, cardID, quality, at.UTC()); err != nil {
		logger.FromContext(ctx).Error("failed to record review history: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *cardService) MarkPractice(ctx context.Context, setID int64, front string, correct bool) error {
	card, err := s.cardByFront(ctx, setID, front)
	if err != nil {
		return err
	}
	if err := s.cards.SetPracticeWrong(ctx, card.ID, !correct); err != nil {
		logger.FromContext(ctx).Error("failed to mark practice result: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

// RestoreCard puts back the schedule a card had before an undone answer and
// drops the review history written since.
func (s *cardService) RestoreCard(ctx context.Context, setID int64, front string, sched models.Schedule, since time.Time) error {
	log := logger.FromContext(ctx)
	if sched.Level < 1 || sched.EaseFactor < models.MinEaseFactor {
		return backoff.Permanent(errors.NewValidationError("schedule", "level must be >= 1 and ease factor >= 1.3"))
	}
	card, err := s.cardByFront(ctx, setID, front)
	if err != nil {
		return err
	}

	sched.NextReview = sched.NextReview.UTC()
	if !since.IsZero() {
		since = since.UTC()
	}
	if err := s.cards.Restore(ctx, card.ID, sched, since); err != nil {
		log.Error("failed to restore card: %v", err)
		return errors.NewInternalError(err)
	}
	log.Debug("restored card %q to level %d", front, sched.Level)
	return nil
}

func (s *cardService) PersistOrder(ctx context.Context, setID int64, fronts []string) error {
	if err := s.cards.PersistOrder(ctx, setID, fronts); err != nil {
		logger.FromContext(ctx).Error("failed to persist order: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}
