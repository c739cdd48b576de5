package queue

import "go.uber.org/zap"

// Option configures a Queue at construction time.
type Option func(*Queue)

// WithAutostart controls whether Create leaves the Queue running after
// initialization, so Workers attached later start on their own. Defaults
// to true.
func WithAutostart(autostart bool) Option {
	return func(q *Queue) { q.autostart = autostart }
}

// WithLogger attaches a zap.Logger for lifecycle and error logging.
// Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(q *Queue) { q.logger = logger }
}
