// Package queue implements the named, process-unique façade in front of a
// Pool and a set of attached Workers: enqueue, counts, drain/empty, and
// start/stop/close lifecycle, plus queue-level event dispatch.
package queue

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SirClappington/enq/client"
	"github.com/SirClappington/enq/eventbus"
	"github.com/SirClappington/enq/perrors"
	"github.com/SirClappington/enq/pool"
	"github.com/SirClappington/enq/queueregistry"
)

// WorkerHandle is the subset of worker.Worker's surface a Queue needs to
// drive the lifecycle of its attached workers without importing the
// worker package.
type WorkerHandle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Close(ctx context.Context) error
}

// Queue is a named, process-unique handle over one Pool and a set of
// attached Workers.
type Queue struct {
	name      string
	poolCfg   pool.Config
	pool      *pool.Pool
	autostart bool
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	workers []WorkerHandle

	bus *eventbus.Bus[Event]
}

// Create is the combined "new + initialize" static factory: it registers
// name in the process-wide registry, builds the Queue's own Pool, runs
// InitQueueData through a temporary Client, and — unless WithAutostart(false)
// was passed — starts the Queue (which, at this point, has no workers yet
// to start; workers attached afterwards pick up the running state on
// their own Start).
func Create(ctx context.Context, name string, poolCfg pool.Config, opts ...Option) (*Queue, error) {
	if !queueregistry.Register(name) {
		return nil, perrors.NewQueueAlreadyExistsError(name)
	}

	q := &Queue{
		name:      name,
		poolCfg:   poolCfg,
		autostart: true,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.bus = eventbus.New[Event](q.logger)

	p, err := pool.New(ctx, poolCfg)
	if err != nil {
		queueregistry.Unregister(name)
		return nil, errors.Wrap(err, "queue: create pool")
	}
	q.pool = p

	if err := q.initialize(ctx); err != nil {
		p.Close()
		queueregistry.Unregister(name)
		return nil, err
	}

	if q.autostart {
		q.running = true
	}

	return q, nil
}

// initialize opens a temporary Client, runs InitQueueData, and tears the
// Client down, so the DDL lands before any enqueue can happen.
func (q *Queue) initialize(ctx context.Context) error {
	c, err := q.pool.GetClient(ctx, q.name)
	if err != nil {
		return errors.Wrap(err, "queue: initialize: get client")
	}
	defer c.Release()

	if err := c.InitQueueData(ctx); err != nil {
		return errors.Wrap(err, "queue: initialize")
	}
	return nil
}

// Name returns the queue's registered name.
func (q *Queue) Name() string { return q.name }

// PoolConfig returns the configuration this Queue's Pool was built from,
// so an attached Worker can build its own independent Pool from the same
// settings.
func (q *Queue) PoolConfig() pool.Config { return q.poolCfg }

// IsRunning reports whether the Queue is currently started.
func (q *Queue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// RegisterWorker attaches w to this Queue's worker set. Called by
// worker.New; not meant to be called directly by application code.
func (q *Queue) RegisterWorker(w WorkerHandle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.workers = append(q.workers, w)
}

// DeregisterWorker detaches w from this Queue's worker set. Called by
// Worker.Close; not meant to be called directly by application code.
func (q *Queue) DeregisterWorker(w WorkerHandle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, existing := range q.workers {
		if existing == w {
			q.workers = append(q.workers[:i], q.workers[i+1:]...)
			return
		}
	}
}

// On registers handler for event.
func (q *Queue) On(event Event, handler eventbus.Handler) {
	q.bus.On(event, handler)
}

// EmitActivated fans out an activated event. Called by an attached Worker
// after it leases a job.
func (q *Queue) EmitActivated(job *client.Job) {
	q.bus.Emit(EventActivated, ActivatedPayload{Job: job})
}

// EmitCompleted fans out a completed event.
func (q *Queue) EmitCompleted(job *client.Job) {
	q.bus.Emit(EventCompleted, CompletedPayload{Job: job})
}

// EmitFailed fans out a failed event.
func (q *Queue) EmitFailed(job *client.Job, err error) {
	q.bus.Emit(EventFailed, FailedPayload{Job: job, Err: err})
}

// EmitError fans out a non-acquire error from an attached Worker's loop.
func (q *Queue) EmitError(err error) {
	q.bus.Emit(EventError, ErrorPayload{Err: err})
}

// Add inserts a new waiting job with the given payload, marshalled to
// JSON, and the given priority (DefaultPriority if omitted).
func (q *Queue) Add(ctx context.Context, payload any, priority ...int32) (*client.Job, error) {
	p := client.DefaultPriority
	if len(priority) > 0 {
		p = priority[0]
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "queue: add: marshal payload")
	}

	c, err := q.pool.GetClient(ctx, q.name)
	if err != nil {
		return nil, errors.Wrap(err, "queue: add: get client")
	}
	defer c.Release()

	job, err := c.InsertJob(ctx, data, client.StateWaiting, p)
	if err != nil {
		return nil, errors.Wrap(err, "queue: add")
	}
	return job, nil
}

// GetJobCounts returns the number of jobs in each requested state
// (every state, if none are given).
func (q *Queue) GetJobCounts(ctx context.Context, states ...client.JobState) (map[client.JobState]int64, error) {
	c, err := q.pool.GetClient(ctx, q.name)
	if err != nil {
		return nil, errors.Wrap(err, "queue: getJobCounts: get client")
	}
	defer c.Release()

	return c.CountJobsByState(ctx, states...)
}

// Drain deletes all waiting jobs. Active jobs are untouched.
func (q *Queue) Drain(ctx context.Context) error {
	c, err := q.pool.GetClient(ctx, q.name)
	if err != nil {
		return errors.Wrap(err, "queue: drain: get client")
	}
	defer c.Release()

	return c.DeleteJobsByState(ctx, client.StateWaiting)
}

// Empty deletes jobs in all four states. The caller must stop workers
// first to avoid races with in-flight leases — Empty does not enforce
// this, matching the documented hazard: an Empty concurrent with an
// in-flight lease can make a Worker's final UpdateJobStateByID fail with
// JobNotFoundError, surfaced on the error channel.
func (q *Queue) Empty(ctx context.Context) error {
	c, err := q.pool.GetClient(ctx, q.name)
	if err != nil {
		return errors.Wrap(err, "queue: empty: get client")
	}
	defer c.Release()

	return c.DeleteJobsByState(ctx, client.AllStates...)
}

// Start sets running and starts every attached Worker in parallel, unless
// the Queue is already running.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = true
	workers := append([]WorkerHandle(nil), q.workers...)
	q.mu.Unlock()

	// Each Worker's Start launches a long-lived polling goroutine that
	// outlives this call, so it must keep running ctx, not a child context
	// errgroup cancels the moment Wait returns.
	var g errgroup.Group
	for _, w := range workers {
		w := w
		g.Go(func() error { return w.Start(ctx) })
	}
	return g.Wait()
}

// Stop clears running and stops every attached Worker in parallel.
// Idempotent.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	workers := append([]WorkerHandle(nil), q.workers...)
	q.mu.Unlock()

	var g errgroup.Group
	for _, w := range workers {
		w := w
		g.Go(func() error { return w.Stop(ctx) })
	}
	return g.Wait()
}

// Close stops the Queue, closes every attached Worker, closes the Pool,
// and unregisters the name. After Close, the Queue is unusable.
func (q *Queue) Close(ctx context.Context) error {
	var errs error
	if err := q.Stop(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}

	q.mu.Lock()
	workers := append([]WorkerHandle(nil), q.workers...)
	q.mu.Unlock()

	var g errgroup.Group
	for _, w := range workers {
		w := w
		g.Go(func() error { return w.Close(ctx) })
	}
	if err := g.Wait(); err != nil {
		errs = multierr.Append(errs, err)
	}

	q.pool.Close()
	queueregistry.Unregister(q.name)
	return errs
}
