package jobs

import (
	"context"
	"time"

	"github.com/vytor/verve/internal/models"
	"github.com/vytor/verve/internal/worker"
)

// WorkerQueue implements JobQueue on a worker.Queue
type WorkerQueue struct {
	queue  *worker.Queue
	writer worker.CardWriter
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(queue *worker.Queue, writer worker.CardWriter) *WorkerQueue {
	return &WorkerQueue{
		queue:  queue,
		writer: writer,
	}
}

var _ JobQueue = (*WorkerQueue)(nil)

func (q *WorkerQueue) ApplyRating(setID int64, front string, quality int, s models.Schedule, at time.Time) error {
	return q.queue.Submit(&worker.RatingJob{
		Writer:   q.writer,
		SetID:    setID,
		Front:    front,
		Quality:  quality,
		Schedule: s,
		At:       at,
	})
}

func (q *WorkerQueue) MarkPractice(setID int64, front string, correct bool) error {
	return q.queue.Submit(&worker.PracticeJob{
		Writer:  q.writer,
		SetID:   setID,
		Front:   front,
		Correct: correct,
	})
}

func (q *WorkerQueue) RestoreCard(setID int64, front string, s models.Schedule, since time.Time) error {
	return q.queue.Submit(&worker.RestoreJob{
		Writer:   q.writer,
		SetID:    setID,
		Front:    front,
		Schedule: s,
		Since:    since,
	})
}

func (q *WorkerQueue) PersistOrder(setID int64, fronts []string) error {
	return q.queue.Submit(&worker.OrderJob{
		Writer: q.writer,
		SetID:  setID,
		Fronts: append([]string(nil), fronts...),
	})
}

func (q *WorkerQueue) CancelCard(setID int64, front string) int {
	return q.queue.Cancel(worker.CardKey(setID, front))
}

func (q *WorkerQueue) Wait(ctx context.Context) error {
	return q.queue.Wait(ctx)
}
