package client

import (
	"encoding/json"
	"time"
)

// JobState is one of the four states a Job may occupy. It mirrors the
// Postgres enum type job_state.
type JobState string

const (
	StateWaiting   JobState = "waiting"
	StateActive    JobState = "active"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// AllStates lists every valid JobState, in the order the DDL declares the
// job_state enum.
var AllStates = []JobState{StateWaiting, StateActive, StateCompleted, StateFailed}

// DefaultPriority is used by Queue.Add when the caller omits a priority.
const DefaultPriority int32 = 5

// Job is the sole persisted entity: one row, one table per queue.
type Job struct {
	ID           int64
	Payload      json.RawMessage
	State        JobState
	Priority     int32
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CompareJobs implements the strict total dequeue order: priority
// descending, then createdAt ascending, then id ascending. It returns a
// negative number if a sorts before b, zero if equal, positive otherwise.
// It is pure and has no SQL dependency so the ordering contract can be
// tested directly, independent of any database.
func CompareJobs(a, b *Job) int {
	if a.Priority != b.Priority {
		return int(b.Priority) - int(a.Priority)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return int(a.ID - b.ID)
}
