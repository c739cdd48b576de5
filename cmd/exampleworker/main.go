// Command exampleworker demonstrates a Queue with an attached Worker
// processing a sample JSON payload type. Enqueue a payload with
// "shouldFail": true to exercise the retry/failed path manually.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/SirClappington/enq/client"
	"github.com/SirClappington/enq/internal/exampleapp/config"
	"github.com/SirClappington/enq/pool"
	"github.com/SirClappington/enq/queue"
	"github.com/SirClappington/enq/worker"
)

// SamplePayload is the demo payload type. Workers bind a Processor to a
// concrete Go type via generics, so payload schema discipline lives with
// the caller, not the library.
type SamplePayload struct {
	Message    string `json:"message"`
	ShouldFail bool   `json:"shouldFail"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	q, err := queue.Create(ctx, cfg.QueueName, pool.Config{
		DSN:            cfg.PostgresDSN,
		MaxConns:       cfg.PoolMaxConns,
		MinConns:       cfg.PoolMinConns,
		ConnectTimeout: cfg.ConnectTimeout,
		Logger:         logger,
	}, queue.WithLogger(logger))
	if err != nil {
		log.Fatalf("queue: %v", err)
	}
	defer q.Close(ctx)

	q.On(queue.EventError, func(payload any) {
		p := payload.(queue.ErrorPayload)
		logger.Error("queue error", zap.Error(p.Err))
	})

	w, err := worker.New(ctx, q, processSample, worker.WithLogger(logger))
	if err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Close(ctx)

	w.On(worker.EventFailed, func(payload any) {
		p := payload.(worker.FailedPayload)
		logger.Warn("job failed", zap.Int64("job_id", p.Job.ID), zap.Error(p.Err))
	})

	<-ctx.Done()
	logger.Info("shutting down")
}

func processSample(_ context.Context, job *client.Job, payload SamplePayload) error {
	if payload.ShouldFail {
		return errors.New("boom")
	}
	log.Printf("processed job %d: %s", job.ID, payload.Message)
	return nil
}
