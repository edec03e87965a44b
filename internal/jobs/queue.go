package jobs

import (
	"context"

	"github.com/vytor/verve/internal/session"
)

// JobQueue provides an abstraction for enqueueing the durable card writes of
// review sessions
type JobQueue interface {
	session.Writer
	// Wait blocks until every enqueued write has finished or been dropped.
	Wait(ctx context.Context) error
}
