package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vytor/verve/internal/logger"
	"github.com/vytor/verve/internal/models"
	"github.com/vytor/verve/internal/repository"
)

type setRepository struct {
	db *sqlx.DB
}

// NewSetRepository creates a new SetRepository implementation
func NewSetRepository(db *sqlx.DB) repository.SetRepository {
	return &setRepository{db: db}
}

func (r *setRepository) Create(ctx context.Context, name string, now time.Time) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("set_repo")
	log.Debug("creating set: name=%s", name)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO vocab_sets (name, created_at, updated_at)
VALUES (?, ?, ?)
`, name, now.UTC(), now.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			log.Debug("set name already taken: %s", name)
			return 0, fmt.Errorf("set %q: %w", name, repository.ErrDuplicate)
		}
		log.Error("failed to create set: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Error("failed to get set id: %v", err)
		return 0, err
	}
	log.Debug("set created: id=%d", id)
	return id, nil
}

func (r *setRepository) Get(ctx context.Context, id int64) (*models.VocabSet, error) {
	log := logger.FromContext(ctx).WithPrefix("set_repo")
	log.Debug("getting set: id=%d", id)

	var s models.VocabSet
	err := r.db.GetContext(ctx, &s, `SELECT id, name, created_at, updated_at FROM vocab_sets WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("set not found: id=%d", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get set: %v", err)
		return nil, err
	}
	return &s, nil
}

func (r *setRepository) GetByName(ctx context.Context, name string) (*models.VocabSet, error) {
	log := logger.FromContext(ctx).WithPrefix("set_repo")

	var s models.VocabSet
	err := r.db.GetContext(ctx, &s, `SELECT id, name, created_at, updated_at FROM vocab_sets WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get set by name: %v", err)
		return nil, err
	}
	return &s, nil
}

func (r *setRepository) List(ctx context.Context, now time.Time) ([]models.SetSummary, error) {
	log := logger.FromContext(ctx).WithPrefix("set_repo")
	log.Debug("listing sets")

	query, args, err := sqlBuilder.Select(
		"s.id", "s.name", "s.created_at", "s.updated_at",
		"COUNT(c.id) AS card_count",
	).
		Column("COALESCE(SUM(CASE WHEN c.next_review <= ? THEN 1 ELSE 0 END), 0) AS due_count", now.UTC()).
		From("vocab_sets s").
		LeftJoin("cards c ON c.set_id = s.id").
		GroupBy("s.id").
		OrderBy("s.name ASC").
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	var sets []models.SetSummary
	if err := r.db.SelectContext(ctx, &sets, query, args...); err != nil {
		log.Error("failed to list sets: %v", err)
		return nil, err
	}
	log.Debug("found %d sets", len(sets))
	return sets, nil
}

func (r *setRepository) Rename(ctx context.Context, id int64, name string, now time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("set_repo")
	log.Debug("renaming set: id=%d, name=%s", id, name)

	_, err := r.db.ExecContext(ctx, `UPDATE vocab_sets SET name = ?, updated_at = ? WHERE id = ?`, name, now.UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("set %q: %w", name, repository.ErrDuplicate)
		}
		log.Error("failed to rename set: %v", err)
	}
	return err
}

func (r *setRepository) Touch(ctx context.Context, id int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE vocab_sets SET updated_at = ? WHERE id = ?`, now.UTC(), id)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("set_repo").Error("failed to touch set: %v", err)
	}
	return err
}

func (r *setRepository) Delete(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("set_repo")
	log.Debug("deleting set: id=%d", id)

	_, err := r.db.ExecContext(ctx, `DELETE FROM vocab_sets WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to delete set: %v", err)
	}
	return err
}
