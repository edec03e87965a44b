package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vytor/verve/internal/logger"
	"github.com/vytor/verve/internal/repository"
)

type snapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new SnapshotRepository implementation
func NewSnapshotRepository(db *sqlx.DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Load returns the stored snapshot for key, or nil when there is none.
func (r *snapshotRepository) Load(ctx context.Context, key string) ([]byte, error) {
	log := logger.FromContext(ctx).WithPrefix("snapshot_repo")

	var data string
	err := r.db.GetContext(ctx, &data, `SELECT data FROM session_snapshots WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("no snapshot: key=%s", key)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to load snapshot: %v", err)
		return nil, err
	}
	return []byte(data), nil
}

func (r *snapshotRepository) Save(ctx context.Context, key string, data []byte, at time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("snapshot_repo")
	log.Debug("saving snapshot: key=%s, bytes=%d", key, len(data))

	_, err := r.db.ExecContext(ctx, `
INSERT INTO session_snapshots (key, data, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
`, key, string(data), at.UTC())
	if err != nil {
		log.Error("failed to save snapshot: %v", err)
	}
	return err
}

func (r *snapshotRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_snapshots WHERE key = ?`, key)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("snapshot_repo").Error("failed to delete snapshot: %v", err)
	}
	return err
}

// DeleteForSet removes the snapshots of every device for a set.
func (r *snapshotRepository) DeleteForSet(ctx context.Context, setID int64) (int64, error) {
	pattern := fmt.Sprintf("session:%%:%d:%%", setID)
	res, err := r.db.ExecContext(ctx, `DELETE FROM session_snapshots WHERE key LIKE ?`, pattern)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("snapshot_repo").Error("failed to delete set snapshots: %v", err)
		return 0, err
	}
	return res.RowsAffected()
}

func (r *snapshotRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("snapshot_repo")

	res, err := r.db.ExecContext(ctx, `DELETE FROM session_snapshots WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		log.Error("failed to purge snapshots: %v", err)
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	log.Debug("purged %d snapshots older than %s", n, cutoff.UTC().Format(time.RFC3339))
	return n, nil
}
