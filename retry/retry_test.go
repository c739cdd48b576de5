package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SirClappington/enq/perrors"
)

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, 3, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SucceedsOnLastAttempt(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 3, 0)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errors.New("boom")
	}, 3, 0)

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var maxErr *perrors.MaxRetriesError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 3, maxErr.Attempts)
	assert.Equal(t, "Function failed after 3 retries: boom", err.Error())
}

func TestDo_SleepsBetweenAttempts(t *testing.T) {
	start := time.Now()
	_ = Do(func() error { return errors.New("boom") }, 3, 10*time.Millisecond)
	elapsed := time.Since(start)

	// two inter-attempt sleeps, none after the final failure
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}

func TestDo2_ReturnsValueOnSuccess(t *testing.T) {
	v, err := Do2(func() (int, error) { return 42, nil }, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDo2_ExhaustsAttempts(t *testing.T) {
	_, err := Do2(func() (int, error) { return 0, errors.New("boom") }, 2, 0)
	require.Error(t, err)
	assert.Equal(t, "Function failed after 2 retries: boom", err.Error())
}
