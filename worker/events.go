package worker

import "github.com/SirClappington/enq/client"

// Event names a Worker-level lifecycle event.
type Event string

const (
	EventWaiting   Event = "waiting"
	EventActivated Event = "activated"
	EventCompleted Event = "completed"
	EventFailed    Event = "failed"
)

// WaitingPayload is emitted by the one Worker that failed to acquire a
// job on a given cycle. It is a per-Worker signal, never a Queue-level
// one.
type WaitingPayload struct{}

// ActivatedPayload is emitted right after this Worker leases a job.
type ActivatedPayload struct {
	Job *client.Job
}

// CompletedPayload is emitted when this Worker's processor succeeds.
type CompletedPayload struct {
	Job *client.Job
}

// FailedPayload is emitted when this Worker's processor exhausts its
// retries.
type FailedPayload struct {
	Job *client.Job
	Err error
}
