package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/vytor/verve/internal/logger"
	"github.com/vytor/verve/internal/models"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.New(logger.WithOutput(io.Discard))
}

func newCard(id int64, front string, level int, due time.Time) models.Card {
	return models.Card{
		ID:           id,
		SetID:        1,
		Front:        front,
		Back:         front + "-back",
		Level:        level,
		EaseFactor:   models.DefaultEaseFactor,
		LastInterval: 0,
		NextReview:   due,
		CreatedAt:    testNow.Add(-48 * time.Hour),
	}
}

type fakeCards struct {
	mu      sync.Mutex
	cards   []models.Card
	err     error
	fetches int
}

func (f *fakeCards) DueCards(_ context.Context, _ int64, now time.Time) ([]models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Card
	for _, c := range f.cards {
		if c.IsDue(now) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (f *fakeCards) AllCards(_ context.Context, _ int64, wrongOnly bool) ([]models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Card
	for _, c := range f.cards {
		if !wrongOnly || c.PracticeWrong {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

type writeCall struct {
	Op      string
	Front   string
	Quality int
	Correct bool
	Sched   models.Schedule
	At      time.Time
	Fronts  []string
}

type fakeWriter struct {
	mu        sync.Mutex
	calls     []writeCall
	cancelled []string
	block     chan struct{}
	entered   chan struct{}
}

func (w *fakeWriter) record(c writeCall) error {
	if w.block != nil {
		w.entered <- struct{}{}
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, c)
	return nil
}

func (w *fakeWriter) ApplyRating(_ int64, front string, quality int, s models.Schedule, at time.Time) error {
	return w.record(writeCall{Op: "apply_rating", Front: front, Quality: quality, Sched: s, At: at})
}

func (w *fakeWriter) MarkPractice(_ int64, front string, correct bool) error {
	return w.record(writeCall{Op: "mark_practice", Front: front, Correct: correct})
}

func (w *fakeWriter) RestoreCard(_ int64, front string, s models.Schedule, since time.Time) error {
	return w.record(writeCall{Op: "restore_card", Front: front, Sched: s, At: since})
}

func (w *fakeWriter) PersistOrder(_ int64, fronts []string) error {
	return w.record(writeCall{Op: "persist_order", Fronts: append([]string(nil), fronts...)})
}

func (w *fakeWriter) CancelCard(_ int64, front string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelled = append(w.cancelled, front)
	return 0
}

func (w *fakeWriter) Calls() []writeCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]writeCall(nil), w.calls...)
}

func (w *fakeWriter) ops() []string {
	var ops []string
	for _, c := range w.Calls() {
		ops = append(ops, c.Op)
	}
	return ops
}

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
	loadErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (s *memStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	data, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *memStore) Save(_ context.Context, key string, data []byte, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *memStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

type recordView struct {
	mu     sync.Mutex
	frames []Frame
}

func (v *recordView) Render(f Frame) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frames = append(v.frames, f)
}

func (v *recordView) last() Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames[len(v.frames)-1]
}

// noShuffle leaves the order untouched.
type noShuffle struct{}

func (noShuffle) Shuffle(int, func(i, j int)) {}

// reverse reverses the order.
type reverse struct{}

func (reverse) Shuffle(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

var errFetch = errors.New("fetch failed")
