package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/vytor/verve/internal/models"
)

// CardWriter performs the durable card writes behind session operations.
type CardWriter interface {
	RecordRating(ctx context.Context, setID int64, front string, quality int, s models.Schedule, at time.Time) error
	MarkPractice(ctx context.Context, setID int64, front string, correct bool) error
	RestoreCard(ctx context.Context, setID int64, front string, s models.Schedule, since time.Time) error
	PersistOrder(ctx context.Context, setID int64, fronts []string) error
}

// CardKey identifies the jobs that write a single card.
func CardKey(setID int64, front string) string {
	return fmt.Sprintf("%d/%s", setID, front)
}

// OrderKey identifies the jobs that write a set's practice order.
func OrderKey(setID int64) string {
	return fmt.Sprintf("%d#order", setID)
}

type RatingJob struct {
	Writer   CardWriter
	SetID    int64
	Front    string
	Quality  int
	Schedule models.Schedule
	At       time.Time
}

func (j *RatingJob) Name() string { return "apply_rating" }
func (j *RatingJob) Key() string  { return CardKey(j.SetID, j.Front) }

func (j *RatingJob) Run(ctx context.Context) error {
	return j.Writer.RecordRating(ctx, j.SetID, j.Front, j.Quality, j.Schedule, j.At)
}

type PracticeJob struct {
	Writer  CardWriter
	SetID   int64
	Front   string
	Correct bool
}

func (j *PracticeJob) Name() string { return "mark_practice" }
func (j *PracticeJob) Key() string  { return CardKey(j.SetID, j.Front) }

func (j *PracticeJob) Run(ctx context.Context) error {
	return j.Writer.MarkPractice(ctx, j.SetID, j.Front, j.Correct)
}

// RestoreJob puts a card's schedule back to what it was before an undone
// answer.
type RestoreJob struct {
	Writer   CardWriter
	SetID    int64
	Front    string
	Schedule models.Schedule
	Since    time.Time
}

func (j *RestoreJob) Name() string { return "restore_card" }
func (j *RestoreJob) Key() string  { return CardKey(j.SetID, j.Front) }

func (j *RestoreJob) Run(ctx context.Context) error {
	return j.Writer.RestoreCard(ctx, j.SetID, j.Front, j.Schedule, j.Since)
}

type OrderJob struct {
	Writer CardWriter
	SetID  int64
	Fronts []string
}

func (j *OrderJob) Name() string { return "persist_order" }
func (j *OrderJob) Key() string  { return OrderKey(j.SetID) }

func (j *OrderJob) Run(ctx context.Context) error {
	return j.Writer.PersistOrder(ctx, j.SetID, j.Fronts)
}
