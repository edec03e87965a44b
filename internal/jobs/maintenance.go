package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"
	"github.com/vytor/verve/internal/logger"
	"github.com/vytor/verve/internal/repository"
)

// Maintenance periodically removes session snapshots that were not touched
// for longer than the TTL.
type Maintenance struct {
	scheduler *gocron.Scheduler
	snapshots repository.SnapshotRepository
	clock     clockwork.Clock
	ttl       time.Duration
	interval  time.Duration
	log       *logger.Logger
}

func NewMaintenance(snapshots repository.SnapshotRepository, clock clockwork.Clock, ttl, interval time.Duration) *Maintenance {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Maintenance{
		scheduler: s,
		snapshots: snapshots,
		clock:     clock,
		ttl:       ttl,
		interval:  interval,
		log:       logger.Default().WithPrefix("maintenance"),
	}
}

// Start schedules the purge. The first run happens immediately.
func (m *Maintenance) Start(ctx context.Context) error {
	_, err := m.scheduler.Every(m.interval).Do(func() {
		if _, err := m.PurgeSnapshots(ctx); err != nil {
			m.log.Error("snapshot purge failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	m.log.Info("purging snapshots older than %s every %s", m.ttl, m.interval)
	m.scheduler.StartAsync()
	return nil
}

func (m *Maintenance) Stop() {
	m.scheduler.Stop()
}

// PurgeSnapshots deletes the snapshots last saved before now minus the TTL.
func (m *Maintenance) PurgeSnapshots(ctx context.Context) (int64, error) {
	cutoff := m.clock.Now().UTC().Add(-m.ttl)
	n, err := m.snapshots.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.log.Info("purged %d stale snapshots", n)
	}
	return n, nil
}
