package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SirClappington/enq/client"
	"github.com/SirClappington/enq/perrors"
)

type samplePayload struct {
	N int `json:"n"`
}

func TestRunProcessor_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	w := &Worker[samplePayload]{
		opts: options{MaxRetries: 3, RetryInterval: 0},
		processor: func(ctx context.Context, job *client.Job, payload samplePayload) error {
			calls++
			if calls < 2 {
				return errors.New("not yet")
			}
			assert.Equal(t, 7, payload.N)
			return nil
		},
	}

	raw, err := json.Marshal(samplePayload{N: 7})
	require.NoError(t, err)
	job := &client.Job{ID: 1, Payload: raw}

	err = w.runProcessor(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRunProcessor_ExhaustsRetries(t *testing.T) {
	calls := 0
	w := &Worker[samplePayload]{
		opts: options{MaxRetries: 3, RetryInterval: 0},
		processor: func(ctx context.Context, job *client.Job, payload samplePayload) error {
			calls++
			return errors.New("boom")
		},
	}

	raw, err := json.Marshal(samplePayload{N: 1})
	require.NoError(t, err)
	job := &client.Job{ID: 1, Payload: raw}

	err = w.runProcessor(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "Function failed after 3 retries: boom", err.Error())

	var maxErr *perrors.MaxRetriesError
	require.ErrorAs(t, err, &maxErr)
}

func TestRunProcessor_RespectsRetryInterval(t *testing.T) {
	w := &Worker[samplePayload]{
		opts: options{MaxRetries: 3, RetryInterval: 10 * time.Millisecond},
		processor: func(ctx context.Context, job *client.Job, payload samplePayload) error {
			return errors.New("boom")
		},
	}

	raw, _ := json.Marshal(samplePayload{})
	job := &client.Job{ID: 1, Payload: raw}

	start := time.Now()
	_ = w.runProcessor(context.Background(), job)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRunProcessor_RecoversPanic(t *testing.T) {
	calls := 0
	w := &Worker[samplePayload]{
		opts: options{MaxRetries: 2, RetryInterval: 0},
		processor: func(ctx context.Context, job *client.Job, payload samplePayload) error {
			calls++
			panic("nil map write")
		},
	}

	raw, err := json.Marshal(samplePayload{N: 1})
	require.NoError(t, err)
	job := &client.Job{ID: 1, Payload: raw}

	err = w.runProcessor(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "nil map write")

	var maxErr *perrors.MaxRetriesError
	require.ErrorAs(t, err, &maxErr)
}

func TestIsRunning_DefaultsFalse(t *testing.T) {
	w := &Worker[samplePayload]{}
	assert.False(t, w.isRunning())
}
