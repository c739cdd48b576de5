// Package worker drives the polling loop that leases, runs, retries, and
// finalises jobs for one Queue. A Worker owns a private Pool, independent
// of the Queue's own, so worker connection demand never starves
// enqueuers.
package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/SirClappington/enq/client"
	"github.com/SirClappington/enq/eventbus"
	"github.com/SirClappington/enq/perrors"
	"github.com/SirClappington/enq/pool"
	"github.com/SirClappington/enq/queue"
	"github.com/SirClappington/enq/retry"
)

// Processor is the user-supplied function a Worker runs for each leased
// job. The payload is JSON-unmarshalled from the job's raw payload into T
// before each attempt.
type Processor[T any] func(ctx context.Context, job *client.Job, payload T) error

// Worker polls one Queue, leasing and running jobs through a Processor.
type Worker[T any] struct {
	id        string
	queue     *queue.Queue
	queueName string
	pool      *pool.Pool
	processor Processor[T]
	opts      options
	logger    *zap.Logger

	bus *eventbus.Bus[Event]

	mu      sync.Mutex
	running bool
	doneCh  chan struct{}
}

// New builds a Worker for q, registers it into q's worker set, and — if
// WithAutostart(false) was not passed and q is currently running —
// starts its polling loop.
func New[T any](ctx context.Context, q *queue.Queue, processor Processor[T], opts ...Option) (*Worker[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p, err := pool.New(ctx, q.PoolConfig())
	if err != nil {
		return nil, errors.Wrap(err, "worker: create pool")
	}

	id := uuid.New().String()
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("worker_id", id))

	w := &Worker[T]{
		id:        id,
		queue:     q,
		queueName: q.Name(),
		pool:      p,
		processor: processor,
		opts:      o,
		logger:    logger,
		bus:       eventbus.New[Event](logger),
	}

	q.RegisterWorker(w)

	if o.Autostart && q.IsRunning() {
		if err := w.Start(ctx); err != nil {
			return nil, err
		}
	}

	return w, nil
}

// On registers handler for event.
func (w *Worker[T]) On(event Event, handler eventbus.Handler) {
	w.bus.On(event, handler)
}

func (w *Worker[T]) isRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Start launches the polling loop if the Queue is running and the Worker
// is not already started. It is a no-op — not an error — if the Queue is
// not running: workers cannot outrun their Queue. Idempotent.
func (w *Worker[T]) Start(ctx context.Context) error {
	if !w.queue.IsRunning() {
		return nil
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.loop(ctx)
	return nil
}

// Stop clears the running flag and awaits the loop's completion. The loop
// observes the flag only between cycles, so Stop waits up to
// WaitingInterval in the worst case. Idempotent.
func (w *Worker[T]) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	done := w.doneCh
	w.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Close stops the Worker, closes its Pool, and deregisters it from its
// Queue.
func (w *Worker[T]) Close(ctx context.Context) error {
	if err := w.Stop(ctx); err != nil {
		return err
	}
	w.pool.Close()
	w.queue.DeregisterWorker(w)
	return nil
}

// loop is the single long-running polling task described by the core
// contract: sleep(processingInterval), try to acquire and process one
// job, and on any error (including "no job available") sleep
// (waitingInterval) before the next cycle.
func (w *Worker[T]) loop(ctx context.Context) {
	defer close(w.doneCh)

	for {
		if !w.isRunning() {
			return
		}

		if w.opts.ProcessingInterval > 0 {
			time.Sleep(w.opts.ProcessingInterval)
		}

		if w.runCycle(ctx) {
			time.Sleep(w.opts.WaitingInterval)
		}
	}
}

// runCycle runs one acquire+process+finalize cycle. It returns true when
// the caller should back off by WaitingInterval before the next cycle:
// on a failed acquire (waiting, or any other error) or on a finalize
// error. A successfully completed or failed-and-recorded job returns
// false, matching the "no extra sleep after a real cycle" contract.
func (w *Worker[T]) runCycle(ctx context.Context) (backoff bool) {
	c, err := w.pool.GetClient(ctx, w.queueName)
	if err != nil {
		w.queue.EmitError(err)
		return true
	}
	defer c.Release()

	job, err := c.AcquireJob(ctx)
	if err != nil {
		if errors.Is(err, perrors.ErrAcquirableJobNotFound) {
			w.bus.Emit(EventWaiting, WaitingPayload{})
		} else {
			w.queue.EmitError(err)
		}
		return true
	}

	w.bus.Emit(EventActivated, ActivatedPayload{Job: job})
	w.queue.EmitActivated(job)

	if processErr := w.runProcessor(ctx, job); processErr != nil {
		msg := processErr.Error()
		updated, err := c.UpdateJobStateByID(ctx, job.ID, client.StateFailed, &msg)
		if err != nil {
			w.queue.EmitError(err)
			return true
		}
		w.bus.Emit(EventFailed, FailedPayload{Job: updated, Err: processErr})
		w.queue.EmitFailed(updated, processErr)
		return false
	}

	updated, err := c.UpdateJobStateByID(ctx, job.ID, client.StateCompleted, nil)
	if err != nil {
		w.queue.EmitError(err)
		return true
	}
	w.bus.Emit(EventCompleted, CompletedPayload{Job: updated})
	w.queue.EmitCompleted(updated)
	return false
}

// runProcessor unmarshals job's payload into T and runs the user
// processor through retry.Do. A panicking processor is recovered and
// normalised into an error attempt, not a dead loop goroutine.
func (w *Worker[T]) runProcessor(ctx context.Context, job *client.Job) error {
	return retry.Do(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = perrors.Normalise(r)
			}
		}()

		var payload T
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return errors.Wrap(err, "unmarshal job payload")
		}
		return w.processor(ctx, job, payload)
	}, w.opts.MaxRetries, w.opts.RetryInterval)
}
