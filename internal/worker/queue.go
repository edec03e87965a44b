package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/vytor/verve/internal/logger"
)

var (
	ErrQueueFull    = errors.New("write queue is full")
	ErrQueueStopped = errors.New("write queue is stopped")
)

// Job is a unit of durable work. Jobs sharing a Key can be cancelled together.
type Job interface {
	Run(context.Context) error
	Name() string
	Key() string
}

type QueueConfig struct {
	Size           int
	MaxRetries     int
	InitialBackoff time.Duration
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Size:           256,
		MaxRetries:     3,
		InitialBackoff: time.Second,
	}
}

type entry struct {
	job       Job
	cancelled chan struct{}
	once      sync.Once
}

func (e *entry) cancel() {
	e.once.Do(func() { close(e.cancelled) })
}

func (e *entry) isCancelled() bool {
	select {
	case <-e.cancelled:
		return true
	default:
		return false
	}
}

// Queue runs jobs one at a time in submission order. A failed job is retried
// with exponential backoff on the queue's clock and dropped once the retries
// are spent; later jobs wait behind it.
type Queue struct {
	mu      sync.Mutex
	pending []*entry
	current *entry
	idle    chan struct{}
	wake    chan struct{}
	stopped bool

	cfg    QueueConfig
	clock  clockwork.Clock
	wg     sync.WaitGroup
	cancel context.CancelFunc
	log    *logger.Logger
}

func NewQueue(clock clockwork.Clock, cfg QueueConfig) *Queue {
	def := DefaultQueueConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log := logger.Default().WithPrefix("write-queue")
	log.Debug("creating write queue: size=%d, retries=%d, backoff=%s", cfg.Size, cfg.MaxRetries, cfg.InitialBackoff)
	return &Queue{
		cfg:   cfg,
		clock: clock,
		wake:  make(chan struct{}, 1),
		log:   log,
	}
}

func (q *Queue) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.log.Info("starting write queue")

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			e := q.next(ctx)
			if e == nil {
				q.log.Debug("worker shutting down (context cancelled)")
				return
			}
			q.run(ctx, e)
			q.finish()
		}
	}()
}

// Stop cancels the in-flight job and drops everything still pending.
func (q *Queue) Stop() {
	q.log.Info("stopping write queue")
	q.mu.Lock()
	q.stopped = true
	dropped := len(q.pending)
	q.pending = nil
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
	if dropped > 0 {
		q.log.Warn("write queue stopped with %d pending jobs", dropped)
	}
	q.log.Info("write queue stopped")
}

func (q *Queue) Submit(job Job) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrQueueStopped
	}
	if len(q.pending) >= q.cfg.Size {
		q.mu.Unlock()
		q.log.Warn("rejecting job %s (%s): queue full", job.Name(), job.Key())
		return ErrQueueFull
	}
	q.pending = append(q.pending, &entry{job: job, cancelled: make(chan struct{})})
	q.mu.Unlock()

	q.log.Debug("submitted job: %s key=%s", job.Name(), job.Key())
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Cancel removes pending jobs with the given key and marks a matching
// in-flight job as cancelled so it makes no further attempts. It returns the
// number of jobs affected.
func (q *Queue) Cancel(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	kept := q.pending[:0]
	for _, e := range q.pending {
		if e.job.Key() == key {
			e.cancel()
			n++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(q.pending); i++ {
		q.pending[i] = nil
	}
	q.pending = kept

	if q.current != nil && q.current.job.Key() == key {
		q.current.cancel()
		n++
	}
	if n > 0 {
		q.log.Debug("cancelled %d jobs for key=%s", n, key)
	}
	q.signalIdleLocked()
	return n
}

// Pending returns the number of jobs waiting to run, excluding the current one.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Wait blocks until the queue has nothing pending or running.
func (q *Queue) Wait(ctx context.Context) error {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 && q.current == nil {
			q.mu.Unlock()
			return nil
		}
		if q.idle == nil {
			q.idle = make(chan struct{})
		}
		idle := q.idle
		q.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *Queue) next(ctx context.Context) *entry {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			e := q.pending[0]
			q.pending[0] = nil
			q.pending = q.pending[1:]
			q.current = e
			q.mu.Unlock()
			return e
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-q.wake:
		}
	}
}

func (q *Queue) finish() {
	q.mu.Lock()
	q.current = nil
	q.signalIdleLocked()
	q.mu.Unlock()
}

func (q *Queue) signalIdleLocked() {
	if q.idle != nil && len(q.pending) == 0 && q.current == nil {
		close(q.idle)
		q.idle = nil
	}
}

func (q *Queue) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(q.cfg.InitialBackoff),
		backoff.WithRandomizationFactor(0),
		backoff.WithMultiplier(2),
		backoff.WithMaxInterval(time.Hour),
		backoff.WithMaxElapsedTime(0),
	)
	b.Clock = q.clock
	return backoff.WithMaxRetries(b, uint64(q.cfg.MaxRetries))
}

func (q *Queue) run(ctx context.Context, e *entry) {
	jobLog := q.log.WithFields(map[string]any{"job": e.job.Name(), "key": e.job.Key()})
	jobCtx := logger.NewContext(ctx, jobLog)
	start := q.clock.Now()

	b := q.newBackOff()
	b.Reset()

	for attempt := 1; ; attempt++ {
		if e.isCancelled() {
			jobLog.Debug("job cancelled before attempt %d", attempt)
			return
		}

		err := e.job.Run(jobCtx)
		if err == nil {
			jobLog.Debug("job completed in %v (attempt %d)", q.clock.Since(start), attempt)
			return
		}
		if ctx.Err() != nil {
			jobLog.Warn("job interrupted by shutdown: %v", err)
			return
		}

		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			jobLog.Warn("dropping job after %d attempts, not retryable: %v", attempt, permanent.Err)
			return
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			jobLog.Warn("dropping job after %d attempts in %v: %v", attempt, q.clock.Since(start), err)
			return
		}
		jobLog.Debug("attempt %d failed, retrying in %v: %v", attempt, delay, err)

		timer := q.clock.NewTimer(delay)
		select {
		case <-timer.Chan():
		case <-e.cancelled:
			timer.Stop()
			jobLog.Debug("job cancelled while waiting to retry")
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
