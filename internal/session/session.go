// Package session implements the per-device review session: which cards are
// shown and in what order, progress accounting, undo, and persistence of the
// session snapshot.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/vytor/verve/internal/models"
)

var (
	// ErrBusy is returned while controls are disabled or another operation
	// is in flight.
	ErrBusy = errors.New("session is busy")
	// ErrExhausted is returned when there is no card left to answer.
	ErrExhausted = errors.New("no cards left in session")
	// ErrNotLoaded is returned for operations on a session that has not
	// been loaded.
	ErrNotLoaded = errors.New("session not loaded")
)

// PassingQuality is the lowest quality counted as correct.
const PassingQuality = 3

type Mode struct {
	Practice  bool `json:"practice"`
	WrongOnly bool `json:"wrong_only"`
}

func (m Mode) String() string {
	s := "learn"
	if m.Practice {
		s = "practice"
	}
	if m.WrongOnly {
		s += "-wrong"
	}
	return s
}

type State string

const (
	StateEmpty     State = "empty"
	StateLoaded    State = "loaded"
	StateAnswering State = "answering"
	StateCompleted State = "completed"
)

func (s State) valid() bool {
	switch s {
	case StateEmpty, StateLoaded, StateAnswering, StateCompleted:
		return true
	}
	return false
}

type Stats struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
	Total   int `json:"total"`
}

// Remaining is the number of cards not yet answered.
func (s Stats) Remaining() int {
	return s.Total - (s.Correct + s.Wrong)
}

// UndoEntry is the card as it was before an answer, with the quality given.
type UndoEntry struct {
	Card       models.Card `json:"card"`
	Quality    int         `json:"quality"`
	AnsweredAt time.Time   `json:"answered_at"`
}

// Key identifies a controller: one per device and set.
type Key struct {
	Device string
	SetID  int64
}

// SnapshotKey is the storage key of a session snapshot.
func SnapshotKey(device string, setID int64, mode Mode) string {
	return fmt.Sprintf("session:%s:%d:%s", device, setID, mode)
}

// Frame is everything a view needs to draw the session.
type Frame struct {
	State        State        `json:"state"`
	Mode         Mode         `json:"mode"`
	Card         *models.Card `json:"card,omitempty"`
	Flipped      bool         `json:"flipped"`
	Position     int          `json:"position"`
	Stats        Stats        `json:"stats"`
	Remaining    int          `json:"remaining"`
	ShowProgress bool         `json:"show_progress"`
	Completed    bool         `json:"completed"`
	Empty        bool         `json:"empty"`
	CanUndo      bool         `json:"can_undo"`
}

// CardSource fetches the cards a session is built from.
type CardSource interface {
	DueCards(ctx context.Context, setID int64, now time.Time) ([]models.Card, error)
	AllCards(ctx context.Context, setID int64, wrongOnly bool) ([]models.Card, error)
}

// Writer enqueues durable writes. Calls must not block on storage.
type Writer interface {
	ApplyRating(setID int64, front string, quality int, s models.Schedule, at time.Time) error
	MarkPractice(setID int64, front string, correct bool) error
	RestoreCard(setID int64, front string, s models.Schedule, since time.Time) error
	PersistOrder(setID int64, fronts []string) error
	// CancelCard drops writes for the card that have not happened yet.
	CancelCard(setID int64, front string) int
}

// SnapshotStore keeps encoded snapshots by key. Load returns nil, nil when
// nothing is stored.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, at time.Time) error
	Delete(ctx context.Context, key string) error
}

// View receives a frame after every change.
type View interface {
	Render(Frame)
}

// Shuffler randomizes slices. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalRand struct{}

func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }
