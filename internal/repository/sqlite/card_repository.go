package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/vytor/verve/internal/logger"
	"github.com/vytor/verve/internal/models"
	"github.com/vytor/verve/internal/repository"
)

var cardColumns = []string{
	"id", "set_id", "front", "back", "level", "ease_factor", "last_interval",
	"next_review", "practice_wrong", "shuffle_order", "created_at",
}

type cardRepository struct {
	db *sqlx.DB
}

// NewCardRepository creates a new CardRepository implementation
func NewCardRepository(db *sqlx.DB) repository.CardRepository {
	return &cardRepository{db: db}
}

const insertCardSQL = `
INSERT INTO cards (set_id, front, back, level, ease_factor, last_interval, next_review, practice_wrong, created_at)
VALUES (?, ?, ?, 1, ?, 0, ?, 0, ?)
`

func (r *cardRepository) Insert(ctx context.Context, setID int64, in models.CardInput, now time.Time) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("inserting card: set_id=%d, front=%s", setID, in.Front)

	res, err := r.db.ExecContext(ctx, insertCardSQL, setID, in.Front, in.Back, models.DefaultEaseFactor, now.UTC(), now.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("card %q: %w", in.Front, repository.ErrDuplicate)
		}
		log.Error("failed to insert card: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Error("failed to get card id: %v", err)
		return 0, err
	}
	log.Debug("card inserted: id=%d", id)
	return id, nil
}

// InsertMany inserts the given cards, skipping fronts that already exist in
// the set. It returns the number of cards actually added.
func (r *cardRepository) InsertMany(ctx context.Context, setID int64, in []models.CardInput, now time.Time) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("inserting %d cards: set_id=%d", len(in), setID)

	added := 0
	err := tx(ctx, r.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, `
INSERT OR IGNORE INTO cards (set_id, front, back, level, ease_factor, last_interval, next_review, practice_wrong, created_at)
VALUES (?, ?, ?, 1, ?, 0, ?, 0, ?)
`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range in {
			res, err := stmt.ExecContext(ctx, setID, c.Front, c.Back, models.DefaultEaseFactor, now.UTC(), now.UTC())
			if err != nil {
				return fmt.Errorf("insert %q: %w", c.Front, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			added += int(n)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to insert cards: %v", err)
		return 0, err
	}
	log.Debug("inserted %d of %d cards", added, len(in))
	return added, nil
}

func (r *cardRepository) Get(ctx context.Context, id int64) (*models.Card, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *cardRepository) GetByFront(ctx context.Context, setID int64, front string) (*models.Card, error) {
	return r.getOne(ctx, squirrel.Eq{"set_id": setID, "front": front})
}

func (r *cardRepository) getOne(ctx context.Context, where squirrel.Eq) (*models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")

	query, args, err := sqlBuilder.Select(cardColumns...).From("cards").Where(where).ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	var c models.Card
	err = r.db.GetContext(ctx, &c, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("card not found: %v", where)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get card: %v", err)
		return nil, err
	}
	return &c, nil
}

func (r *cardRepository) Delete(ctx context.Context, setID, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("deleting card: set_id=%d, id=%d", setID, id)

	_, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE set_id = ? AND id = ?`, setID, id)
	if err != nil {
		log.Error("failed to delete card: %v", err)
	}
	return err
}

func (r *cardRepository) DueCards(ctx context.Context, setID int64, now time.Time) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("fetching due cards: set_id=%d", setID)

	query := sqlBuilder.Select(cardColumns...).
		From("cards").
		Where(squirrel.Eq{"set_id": setID}).
		Where(squirrel.LtOrEq{"next_review": now.UTC()}).
		OrderBy("id ASC")

	cards, err := r.selectCards(ctx, query)
	if err != nil {
		log.Error("failed to fetch due cards: %v", err)
		return nil, err
	}
	log.Debug("found %d due cards", len(cards))
	return cards, nil
}

func (r *cardRepository) AllCards(ctx context.Context, setID int64, wrongOnly bool) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("fetching all cards: set_id=%d, wrong_only=%t", setID, wrongOnly)

	query := sqlBuilder.Select(cardColumns...).
		From("cards").
		Where(squirrel.Eq{"set_id": setID})
	if wrongOnly {
		query = query.Where(squirrel.Eq{"practice_wrong": true})
	}
	query = query.OrderBy("shuffle_order IS NULL", "shuffle_order ASC", "id ASC")

	cards, err := r.selectCards(ctx, query)
	if err != nil {
		log.Error("failed to fetch cards: %v", err)
		return nil, err
	}
	log.Debug("found %d cards", len(cards))
	return cards, nil
}

func (r *cardRepository) selectCards(ctx context.Context, query squirrel.SelectBuilder) ([]models.Card, error) {
	q, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	cards := []models.Card{}
	if err := r.db.SelectContext(ctx, &cards, q, args...); err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *cardRepository) UpdateSchedule(ctx context.Context, cardID int64, s models.Schedule) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("updating schedule: id=%d, level=%d, interval=%d, ease=%.2f", cardID, s.Level, s.LastInterval, s.EaseFactor)

	_, err := r.db.ExecContext(ctx, `
UPDATE cards
SET level = ?, last_interval = ?, ease_factor = ?, next_review = ?
WHERE id = ?
`, s.Level, s.LastInterval, s.EaseFactor, s.NextReview.UTC(), cardID)
	if err != nil {
		log.Error("failed to update schedule: %v", err)
	}
	return err
}

func (r *cardRepository) SetPracticeWrong(ctx context.Context, cardID int64, wrong bool) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("setting practice flag: id=%d, wrong=%t", cardID, wrong)

	_, err := r.db.ExecContext(ctx, `UPDATE cards SET practice_wrong = ? WHERE id = ?`, wrong, cardID)
	if err != nil {
		log.Error("failed to set practice flag: %v", err)
	}
	return err
}

// Restore overwrites the schedule of a card and removes review history
// recorded at or after since.
func (r *cardRepository) Restore(ctx context.Context, cardID int64, s models.Schedule, since time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("restoring card: id=%d, level=%d", cardID, s.Level)

	return tx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
UPDATE cards
SET level = ?, last_interval = ?, ease_factor = ?, next_review = ?
WHERE id = ?
`, s.Level, s.LastInterval, s.EaseFactor, s.NextReview.UTC(), cardID)
		if err != nil {
			return fmt.Errorf("restore card: %w", err)
		}
		if since.IsZero() {
			return nil
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM review_history WHERE card_id = ? AND reviewed_at >= ?`, cardID, since.UTC())
		if err != nil {
			return fmt.Errorf("drop review history: %w", err)
		}
		return nil
	})
}

// PersistOrder stores fronts' positions as the set's practice order. Cards
// not listed lose their order.
func (r *cardRepository) PersistOrder(ctx context.Context, setID int64, fronts []string) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("persisting order: set_id=%d, cards=%d", setID, len(fronts))

	return tx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE cards SET shuffle_order = NULL WHERE set_id = ?`, setID); err != nil {
			return err
		}
		stmt, err := tx.PreparexContext(ctx, `UPDATE cards SET shuffle_order = ? WHERE set_id = ? AND front = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, front := range fronts {
			if _, err := stmt.ExecContext(ctx, i, setID, front); err != nil {
				return fmt.Errorf("order %q: %w", front, err)
			}
		}
		return nil
	})
}

// ResetSet moves every card of the set back to level 1, due at now.
func (r *cardRepository) ResetSet(ctx context.Context, setID int64, now time.Time) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("resetting set: set_id=%d", setID)

	res, err := r.db.ExecContext(ctx, `
UPDATE cards
SET level = 1, last_interval = 0, ease_factor = ?, next_review = ?, practice_wrong = 0
WHERE set_id = ?
`, models.DefaultEaseFactor, now.UTC(), setID)
	if err != nil {
		log.Error("failed to reset set: %v", err)
		return 0, err
	}
	return res.RowsAffected()
}

func (r *cardRepository) InsertReviewHistory(ctx context.Context, cardID int64, quality int, at time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("inserting review history: card_id=%d, quality=%d", cardID, quality)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO review_history (card_id, quality, reviewed_at)
		VALUES (?, ?, ?)
	`, cardID, quality, at.UTC())
	if err != nil {
		log.Error("failed to insert review history: %v", err)
	}
	return err
}

func (r *cardRepository) ReviewHistory(ctx context.Context, cardID int64) ([]models.ReviewHistory, error) {
	var history []models.ReviewHistory
	err := r.db.SelectContext(ctx, &history, `
SELECT id, card_id, quality, reviewed_at
FROM review_history
WHERE card_id = ?
ORDER BY reviewed_at ASC, id ASC
`, cardID)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("card_repo").Error("failed to list review history: %v", err)
		return nil, err
	}
	return history, nil
}

func (r *cardRepository) Statistics(ctx context.Context, setID int64, now time.Time) (*models.SetStatistics, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("computing statistics: set_id=%d", setID)

	stats := &models.SetStatistics{LevelCounts: map[int]int{}, MaxLevel: 1}

	row := r.db.QueryRowxContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN next_review <= ? THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN practice_wrong THEN 1 ELSE 0 END), 0)
FROM cards
WHERE set_id = ?
`, now.UTC(), setID)
	if err := row.Scan(&stats.TotalCards, &stats.DueCards, &stats.WrongCards); err != nil {
		log.Error("failed to count cards: %v", err)
		return nil, err
	}

	var levels []struct {
		Level int `db:"level"`
		Count int `db:"count"`
	}
	err := r.db.SelectContext(ctx, &levels, `
SELECT level, COUNT(*) AS count
FROM cards
WHERE set_id = ?
GROUP BY level
ORDER BY level ASC
`, setID)
	if err != nil {
		log.Error("failed to count levels: %v", err)
		return nil, err
	}

	best := 0
	for _, l := range levels {
		stats.LevelCounts[l.Level] = l.Count
		if l.Count > best {
			best = l.Count
			stats.MaxLevel = l.Level
		}
	}
	return stats, nil
}
