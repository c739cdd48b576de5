package queue

import "github.com/SirClappington/enq/client"

// Event names a Queue-level lifecycle event.
type Event string

const (
	EventActivated Event = "activated"
	EventCompleted Event = "completed"
	EventFailed    Event = "failed"
	EventError     Event = "error"
)

// ActivatedPayload is emitted when any attached Worker leases a job.
type ActivatedPayload struct {
	Job *client.Job
}

// CompletedPayload is emitted when any attached Worker's processor
// succeeds.
type CompletedPayload struct {
	Job *client.Job
}

// FailedPayload is emitted when any attached Worker's processor exhausts
// its retries.
type FailedPayload struct {
	Job *client.Job
	Err error
}

// ErrorPayload is emitted for any non-acquire error surfaced by an
// attached Worker's polling loop.
type ErrorPayload struct {
	Err error
}
