package worker

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	Autostart          bool
	ProcessingInterval time.Duration
	WaitingInterval    time.Duration
	MaxRetries         int
	RetryInterval      time.Duration
	Logger             *zap.Logger
}

func defaultOptions() options {
	return options{
		Autostart:          true,
		ProcessingInterval: 0,
		WaitingInterval:    1000 * time.Millisecond,
		MaxRetries:         3,
		RetryInterval:      500 * time.Millisecond,
		Logger:             zap.NewNop(),
	}
}

// Option configures a Worker at construction time.
type Option func(*options)

// WithAutostart controls whether the Worker starts immediately when the
// Queue is already running. Defaults to true.
func WithAutostart(autostart bool) Option {
	return func(o *options) { o.Autostart = autostart }
}

// WithProcessingInterval sets the sleep between successful acquire+process
// cycles. Defaults to 0.
func WithProcessingInterval(d time.Duration) Option {
	return func(o *options) { o.ProcessingInterval = d }
}

// WithWaitingInterval sets the sleep after a cycle that found no job or
// errored. Defaults to 1s.
func WithWaitingInterval(d time.Duration) Option {
	return func(o *options) { o.WaitingInterval = d }
}

// WithMaxRetries sets the number of attempts (not additional retries) the
// processor gets. Defaults to 3.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.MaxRetries = n }
}

// WithRetryInterval sets the sleep between processor attempts. Defaults
// to 500ms.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) { o.RetryInterval = d }
}

// WithLogger attaches a zap.Logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.Logger = logger }
}
