package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of background work, e.g. a single export render.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler consumes a job. A non-nil error schedules a retry.
type Handler func(context.Context, Job) error

// QueueConfig tunes the worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.BufferSize <= 0 {
		c.BufferSize = c.Workers * 4
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Queue fans jobs out to a fixed pool of goroutine workers over a buffered
// channel. Failed jobs are re-enqueued after RetryDelay until MaxRetries is
// spent, then dropped.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	log     *zap.SugaredLogger

	pending chan Job
	active  atomic.Bool

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewQueue builds a stopped queue; call Start before enqueueing.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	cfg = cfg.withDefaults()
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		log:     cfg.Logger.Sugar().With("queue", name),
		pending: make(chan Job, cfg.BufferSize),
	}
}

// Start launches the worker pool. Subsequent calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.once.Do(func() {
		q.runCtx, q.cancel = context.WithCancel(ctx)
		for i := 0; i < q.cfg.Workers; i++ {
			q.wg.Add(1)
			go q.run()
		}
		q.active.Store(true)
		q.log.Infow("queue started", "workers", q.cfg.Workers)
	})
}

// Stop cancels the pool and blocks until every worker has exited.
func (q *Queue) Stop() {
	if !q.active.CompareAndSwap(true, false) {
		return
	}
	q.cancel()
	q.wg.Wait()
	q.log.Infow("queue stopped")
}

// Enqueue hands a job to the pool. Fails when the queue is not running.
func (q *Queue) Enqueue(job Job) error {
	if !q.active.Load() {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case <-q.runCtx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, q.runCtx.Err())
	case q.pending <- job:
		return nil
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.runCtx.Done():
			return
		case job := <-q.pending:
			if err := q.handler(q.runCtx, job); err != nil {
				q.retry(job, err)
			}
		}
	}
}

func (q *Queue) retry(job Job, cause error) {
	job.Attempt++
	if job.Attempt > q.cfg.MaxRetries {
		q.log.Errorw("job dropped after exhausting retries", "job_id", job.ID, "type", job.Type, "error", cause)
		return
	}
	q.log.Warnw("job failed, scheduling retry", "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", cause)

	go func() {
		t := time.NewTimer(q.cfg.RetryDelay)
		defer t.Stop()
		select {
		case <-q.runCtx.Done():
		case <-t.C:
			if err := q.Enqueue(job); err != nil {
				q.log.Errorw("requeue failed", "job_id", job.ID, "error", err)
			}
		}
	}()
}
