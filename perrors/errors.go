// Package perrors defines the error taxonomy shared by client, queue, and
// worker. Every sentinel here is wrapped with github.com/pkg/errors so
// callers can recover context with errors.Cause while still matching the
// sentinel with errors.Is.
package perrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrJobNotFound is returned when an update or lookup by id matches no row.
var ErrJobNotFound = errors.New("job not found")

// ErrAcquirableJobNotFound is returned by Client.AcquireJob when no waiting
// job is available. It wraps ErrJobNotFound so errors.Is(err,
// ErrJobNotFound) also succeeds, matching the "subclass" relationship
// described for the source system.
var ErrAcquirableJobNotFound = errors.Wrap(ErrJobNotFound, "no acquirable job")

// ErrQueueAlreadyExists is returned synchronously by queue.Create when a
// live queue with the requested name already exists in the process.
var ErrQueueAlreadyExists = errors.New("queue already exists")

// JobNotFoundError carries the id that failed to resolve. Wrap it with
// NewJobNotFoundError so errors.Is(err, ErrJobNotFound) keeps working.
type JobNotFoundError struct {
	ID int64
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job %d not found", e.ID)
}

func (e *JobNotFoundError) Unwrap() error { return ErrJobNotFound }

// NewJobNotFoundError builds a JobNotFoundError for id, already wrapped with
// a stack trace via pkg/errors.
func NewJobNotFoundError(id int64) error {
	return errors.WithStack(&JobNotFoundError{ID: id})
}

// QueueAlreadyExistsError names the duplicate queue.
type QueueAlreadyExistsError struct {
	Name string
}

func (e *QueueAlreadyExistsError) Error() string {
	return fmt.Sprintf("Queue with name '%s' already exists", e.Name)
}

func (e *QueueAlreadyExistsError) Unwrap() error { return ErrQueueAlreadyExists }

// NewQueueAlreadyExistsError builds the synchronous construction error.
func NewQueueAlreadyExistsError(name string) error {
	return errors.WithStack(&QueueAlreadyExistsError{Name: name})
}

// MaxRetriesError is raised by retry.Do when a function has exhausted its
// attempts. Its message format is part of the contract: stored verbatim as
// a job's errorMessage and surfaced as the failed event's error.
type MaxRetriesError struct {
	Attempts int
	Cause    error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("Function failed after %d retries: %s", e.Attempts, e.Cause)
}

func (e *MaxRetriesError) Unwrap() error { return e.Cause }

// NewMaxRetriesError wraps cause, preserving it as the unwrap target so
// errors.Is/As still reach the original failure.
func NewMaxRetriesError(attempts int, cause error) error {
	return &MaxRetriesError{Attempts: attempts, Cause: cause}
}

// Normalise coerces an arbitrary recovered value into an error. Processors
// in this module already return error, so the only place this matters is a
// panic recovered from inside the worker loop.
func Normalise(v interface{}) error {
	if v == nil {
		return errors.New("null")
	}
	switch t := v.(type) {
	case error:
		return t
	case string:
		return errors.New(t)
	case fmt.Stringer:
		return errors.New(t.String())
	default:
		return errors.Errorf("%v", t)
	}
}
