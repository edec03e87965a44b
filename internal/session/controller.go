package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vytor/verve/internal/flashcard"
	"github.com/vytor/verve/internal/logger"
	"github.com/vytor/verve/internal/models"
)

// Deps are the collaborators of a Controller.
type Deps struct {
	Cards     CardSource
	Writes    Writer
	Snapshots SnapshotStore
	View      View
	Clock     clockwork.Clock
	Rand      Shuffler
	Logger    *logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Rand == nil {
		d.Rand = globalRand{}
	}
	if d.Logger == nil {
		d.Logger = logger.Default()
	}
	return d
}

// Controller is the review session of one device for one set.
//
// Answer, Undo, Shuffle and Flip fail with ErrBusy while controls are
// disabled or another operation is running. Lifecycle operations (Load,
// Restart, SetMode, Destroy) wait for the running operation instead.
type Controller struct {
	key  Key
	deps Deps
	log  *logger.Logger

	busy     atomic.Bool
	disabled atomic.Bool

	mu            sync.Mutex
	mode          Mode
	state         State
	queue         []models.Card
	position      int
	stats         Stats
	undo          []UndoEntry
	freshPractice bool
}

func New(key Key, mode Mode, deps Deps) *Controller {
	deps = deps.withDefaults()
	return &Controller{
		key:  key,
		deps: deps,
		log: deps.Logger.WithPrefix("session").WithFields(map[string]any{
			"device": key.Device,
			"set_id": key.SetID,
		}),
		mode:  mode,
		state: StateEmpty,
		queue: []models.Card{},
	}
}

func (c *Controller) Key() Key { return c.key }

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) snapshotKey() string {
	return SnapshotKey(c.key.Device, c.key.SetID, c.mode)
}

// control guards Answer, Undo, Shuffle and Flip.
func (c *Controller) control() (func(), error) {
	if c.disabled.Load() || !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	c.mu.Lock()
	return func() {
		c.busy.Store(false)
		c.mu.Unlock()
	}, nil
}

func (c *Controller) lifecycle() func() {
	c.mu.Lock()
	c.busy.Store(true)
	return func() {
		c.busy.Store(false)
		c.mu.Unlock()
	}
}

// DisableControls rejects Answer, Undo, Shuffle and Flip until
// EnableControls is called.
func (c *Controller) DisableControls() { c.disabled.Store(true) }

func (c *Controller) EnableControls() { c.disabled.Store(false) }

// Load restores the stored snapshot or, when there is none or it cannot be
// used, builds a fresh session from the card source.
func (c *Controller) Load(ctx context.Context) error {
	defer c.lifecycle()()
	return c.loadLocked(ctx)
}

// ensureLoaded loads the session unless it already is.
func (c *Controller) ensureLoaded(ctx context.Context) error {
	defer c.lifecycle()()
	if c.state != StateEmpty {
		return nil
	}
	return c.loadLocked(ctx)
}

func (c *Controller) loadLocked(ctx context.Context) error {
	key := c.snapshotKey()

	data, err := c.deps.Snapshots.Load(ctx, key)
	if err != nil {
		c.log.Warn("failed to read snapshot %s, starting fresh: %v", key, err)
		data = nil
	}
	if data != nil {
		snap, err := decodeSnapshot(data, c.mode)
		if err == nil {
			c.restore(snap)
			c.log.Debug("restored session at position %d of %d", c.position, len(c.queue))
			c.render()
			return nil
		}
		c.log.Warn("discarding snapshot %s: %v", key, err)
		if err := c.deps.Snapshots.Delete(ctx, key); err != nil {
			c.log.Error("failed to delete snapshot %s: %v", key, err)
		}
	}
	return c.fetchLocked(ctx)
}

func (c *Controller) fetchLocked(ctx context.Context) error {
	setID := c.key.SetID

	var cards []models.Card
	var err error
	if c.mode.Practice {
		cards, err = c.deps.Cards.AllCards(ctx, setID, c.mode.WrongOnly)
	} else {
		cards, err = c.deps.Cards.DueCards(ctx, setID, c.now())
		if err == nil && c.mode.WrongOnly {
			cards = levelOne(cards)
		}
	}
	if err != nil {
		c.resetLocked()
		return fmt.Errorf("fetch cards for set %d: %w", setID, err)
	}

	queue := make([]models.Card, len(cards))
	for i, card := range cards {
		queue[i] = normalize(card)
	}

	if c.mode.Practice && c.freshPractice && len(queue) > 0 {
		c.deps.Rand.Shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })
		c.enqueue("persist_order", c.deps.Writes.PersistOrder(setID, fronts(queue)))
	}
	c.freshPractice = false

	c.queue = queue
	c.position = 0
	c.stats = Stats{Total: len(queue)}
	c.undo = nil
	c.state = StateLoaded
	if len(queue) == 0 {
		c.state = StateCompleted
	}
	c.log.Debug("loaded %d cards (%s)", len(queue), c.mode)

	c.saveLocked(ctx)
	c.render()
	return nil
}

// Flip turns the current card over.
func (c *Controller) Flip(ctx context.Context) error {
	done, err := c.control()
	if err != nil {
		return err
	}
	defer done()

	switch c.state {
	case StateEmpty:
		return ErrNotLoaded
	case StateCompleted:
		return ErrExhausted
	case StateLoaded:
		c.state = StateAnswering
	case StateAnswering:
		c.state = StateLoaded
	}
	c.saveLocked(ctx)
	c.render()
	return nil
}

// Answer rates the current card and moves to the next one. The durable
// write is queued; the session advances regardless of its outcome.
func (c *Controller) Answer(ctx context.Context, quality int) error {
	done, err := c.control()
	if err != nil {
		return err
	}
	defer done()

	if c.state == StateEmpty {
		return ErrNotLoaded
	}
	if c.position >= len(c.queue) {
		return ErrExhausted
	}

	now := c.now()
	card := c.queue[c.position]
	c.undo = append(c.undo, UndoEntry{Card: card.Clone(), Quality: quality, AnsweredAt: now})

	correct := quality >= PassingQuality
	if correct {
		c.stats.Correct++
	} else {
		c.stats.Wrong++
	}

	if c.mode.Practice {
		card.PracticeWrong = !correct
		c.enqueue("mark_practice", c.deps.Writes.MarkPractice(c.key.SetID, card.Front, correct))
	} else {
		card = flashcard.ApplyReview(card, quality, now)
		c.enqueue("apply_rating", c.deps.Writes.ApplyRating(c.key.SetID, card.Front, quality, card.Schedule(), now))
	}
	c.queue[c.position] = card

	c.position++
	c.state = StateLoaded
	if c.position == len(c.queue) {
		c.state = StateCompleted
	}

	c.saveLocked(ctx)
	c.render()
	return nil
}

// Undo reverts the most recent answer. It is a no-op when there is nothing
// to undo.
func (c *Controller) Undo(ctx context.Context) error {
	done, err := c.control()
	if err != nil {
		return err
	}
	defer done()

	if len(c.undo) == 0 {
		return nil
	}

	entry := c.undo[len(c.undo)-1]
	c.undo = c.undo[:len(c.undo)-1]

	if entry.Quality >= PassingQuality {
		c.stats.Correct = max(c.stats.Correct-1, 0)
	} else {
		c.stats.Wrong = max(c.stats.Wrong-1, 0)
	}
	c.position = max(c.position-1, 0)
	if c.position < len(c.queue) {
		c.queue[c.position] = entry.Card.Clone()
	}
	c.state = StateLoaded
	if len(c.queue) == 0 {
		c.state = StateCompleted
	}

	setID, front := c.key.SetID, entry.Card.Front
	if n := c.deps.Writes.CancelCard(setID, front); n > 0 {
		c.log.Debug("cancelled %d pending writes for %q", n, front)
	}
	if c.mode.Practice {
		c.enqueue("mark_practice", c.deps.Writes.MarkPractice(setID, front, !entry.Card.PracticeWrong))
	} else {
		c.enqueue("restore_card", c.deps.Writes.RestoreCard(setID, front, entry.Card.Schedule(), entry.AnsweredAt))
	}

	c.saveLocked(ctx)
	c.render()
	return nil
}

// Shuffle reorders the cards not yet answered. With grouped set, cards are
// kept in ascending level buckets and shuffled within each bucket.
func (c *Controller) Shuffle(ctx context.Context, grouped bool) error {
	done, err := c.control()
	if err != nil {
		return err
	}
	defer done()

	if c.state == StateEmpty {
		return ErrNotLoaded
	}

	tail := c.queue[c.position:]
	if len(tail) == 0 {
		return nil
	}
	current := tail[0].Front

	if grouped {
		shuffleGrouped(tail, c.deps.Rand)
	} else {
		c.deps.Rand.Shuffle(len(tail), func(i, j int) { tail[i], tail[j] = tail[j], tail[i] })
	}
	if len(tail) > 1 && tail[0].Front == current {
		for j := 1; j < len(tail); j++ {
			if tail[j].Front != current {
				tail[0], tail[j] = tail[j], tail[0]
				break
			}
		}
	}
	c.state = StateLoaded

	if c.mode.Practice {
		c.enqueue("persist_order", c.deps.Writes.PersistOrder(c.key.SetID, fronts(c.queue)))
	}

	c.saveLocked(ctx)
	c.render()
	return nil
}

// Restart clears the session and builds a fresh one in the same mode.
func (c *Controller) Restart(ctx context.Context) error {
	defer c.lifecycle()()

	c.clearLocked(ctx)
	c.freshPractice = c.mode.Practice
	return c.fetchLocked(ctx)
}

// SetMode switches the session to mode, discarding the current session.
// Setting the current mode does nothing.
func (c *Controller) SetMode(ctx context.Context, mode Mode) error {
	defer c.lifecycle()()

	if mode == c.mode && c.state != StateEmpty {
		return nil
	}
	// Both the old and the new mode start over.
	c.clearLocked(ctx)
	c.mode = mode
	c.clearLocked(ctx)
	c.freshPractice = mode.Practice
	return c.fetchLocked(ctx)
}

// Destroy discards the session and its snapshot.
func (c *Controller) Destroy(ctx context.Context) error {
	defer c.lifecycle()()

	c.clearLocked(ctx)
	c.render()
	return nil
}

func (c *Controller) clearLocked(ctx context.Context) {
	key := c.snapshotKey()
	if err := c.deps.Snapshots.Delete(ctx, key); err != nil {
		c.log.Error("failed to delete snapshot %s: %v", key, err)
	}
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.queue = []models.Card{}
	c.position = 0
	c.stats = Stats{}
	c.undo = nil
	c.state = StateEmpty
}

// Frame returns the current display data.
func (c *Controller) Frame() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameLocked()
}

func (c *Controller) frameLocked() Frame {
	f := Frame{
		State:        c.state,
		Mode:         c.mode,
		Flipped:      c.state == StateAnswering,
		Position:     c.position,
		Stats:        c.stats,
		Remaining:    c.stats.Remaining(),
		ShowProgress: !c.mode.Practice,
		Completed:    c.state == StateCompleted,
		Empty:        c.state == StateCompleted && c.stats.Total == 0,
		CanUndo:      len(c.undo) > 0,
	}
	if c.position < len(c.queue) && c.state != StateEmpty {
		card := c.queue[c.position].Clone()
		f.Card = &card
	}
	return f
}

// Snapshot returns the session as it would be persisted.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	queue := make([]models.Card, len(c.queue))
	for i, card := range c.queue {
		queue[i] = card.Clone()
	}
	var undo []UndoEntry
	if len(c.undo) > 0 {
		undo = make([]UndoEntry, len(c.undo))
		for i, e := range c.undo {
			e.Card = e.Card.Clone()
			undo[i] = e
		}
	}
	return Snapshot{
		Version:  snapshotVersion,
		Queue:    queue,
		Position: c.position,
		Stats:    c.stats,
		Undo:     undo,
		Mode:     c.mode,
		State:    c.state,
		SavedAt:  c.now(),
	}
}

func (c *Controller) restore(s Snapshot) {
	c.queue = s.Queue
	c.position = s.Position
	c.stats = s.Stats
	c.undo = nil
	if len(s.Undo) > 0 {
		c.undo = s.Undo
	}
	c.state = s.State
	c.freshPractice = false
}

func (c *Controller) saveLocked(ctx context.Context) {
	snap := c.snapshotLocked()
	data, err := encodeSnapshot(snap)
	if err != nil {
		c.log.Error("failed to encode snapshot: %v", err)
		return
	}
	if err := c.deps.Snapshots.Save(ctx, c.snapshotKey(), data, snap.SavedAt); err != nil {
		c.log.Warn("failed to save snapshot: %v", err)
	}
}

func (c *Controller) render() {
	if c.deps.View != nil {
		c.deps.View.Render(c.frameLocked())
	}
}

func (c *Controller) enqueue(op string, err error) {
	if err != nil {
		c.log.Warn("failed to queue %s: %v", op, err)
	}
}

func (c *Controller) now() time.Time {
	return c.deps.Clock.Now().UTC()
}

func normalize(card models.Card) models.Card {
	card = card.Clone()
	card.NextReview = card.NextReview.UTC()
	card.CreatedAt = card.CreatedAt.UTC()
	return card
}

func levelOne(cards []models.Card) []models.Card {
	out := make([]models.Card, 0, len(cards))
	for _, card := range cards {
		if card.Level == 1 {
			out = append(out, card)
		}
	}
	return out
}

func fronts(cards []models.Card) []string {
	out := make([]string, len(cards))
	for i, card := range cards {
		out[i] = card.Front
	}
	return out
}

// shuffleGrouped buckets cards by level, shuffles each bucket and writes the
// buckets back in ascending level order.
func shuffleGrouped(cards []models.Card, r Shuffler) {
	buckets := map[int][]models.Card{}
	for _, card := range cards {
		buckets[card.Level] = append(buckets[card.Level], card)
	}
	levels := make([]int, 0, len(buckets))
	for level := range buckets {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	i := 0
	for _, level := range levels {
		bucket := buckets[level]
		r.Shuffle(len(bucket), func(a, b int) { bucket[a], bucket[b] = bucket[b], bucket[a] })
		i += copy(cards[i:], bucket)
	}
}
