package client

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/SirClappington/enq/perrors"
)

// mockConn adapts a pgxmock pool-shaped mock (which already implements
// Exec/Query/QueryRow/Begin) into the client.Conn interface by adding the
// Release method the real *pgxpool.Conn provides.
type mockConn struct {
	pgxmock.PgxPoolIface
}

func (mockConn) Release() {}

func newTestClient(t *testing.T) (*Client, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	c := New(mockConn{mock}, "jobs", nil)
	return c, mock
}

var jobRowColumns = []string{"id", "payload", "state", "priority", "errorMessage", "createdAt", "updatedAt"}

func TestClient_InsertJob(t *testing.T) {
	c, mock := newTestClient(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO")).
		WithArgs([]byte(`{}`), StateWaiting, int32(5)).
		WillReturnRows(pgxmock.NewRows(jobRowColumns).
			AddRow(int64(1), []byte(`{}`), StateWaiting, int32(5), (*string)(nil), now, now))

	job, err := c.InsertJob(context.Background(), []byte(`{}`), StateWaiting, 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), job.ID)
	require.Equal(t, StateWaiting, job.State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_AcquireJob_Success(t *testing.T) {
	c, mock := newTestClient(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(StateWaiting).
		WillReturnRows(pgxmock.NewRows(jobRowColumns).
			AddRow(int64(7), []byte(`{}`), StateWaiting, int32(5), (*string)(nil), now, now))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE")).
		WithArgs(StateActive, int64(7)).
		WillReturnRows(pgxmock.NewRows(jobRowColumns).
			AddRow(int64(7), []byte(`{}`), StateActive, int32(5), (*string)(nil), now, now))
	mock.ExpectCommit()

	job, err := c.AcquireJob(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateActive, job.State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_AcquireJob_NoneAvailable(t *testing.T) {
	c, mock := newTestClient(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(StateWaiting).
		WillReturnRows(pgxmock.NewRows(jobRowColumns))
	mock.ExpectRollback()

	_, err := c.AcquireJob(context.Background())
	require.ErrorIs(t, err, perrors.ErrAcquirableJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_UpdateJobStateByID_NotFound(t *testing.T) {
	c, mock := newTestClient(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE")).
		WithArgs(StateCompleted, (*string)(nil), int64(42)).
		WillReturnRows(pgxmock.NewRows(jobRowColumns))

	_, err := c.UpdateJobStateByID(context.Background(), 42, StateCompleted, nil)
	require.ErrorIs(t, err, perrors.ErrJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_CountJobsByState(t *testing.T) {
	c, mock := newTestClient(t)

	mock.ExpectQuery(regexp.QuoteMeta("SUM(CASE WHEN state")).
		WithArgs(StateWaiting, StateActive).
		WillReturnRows(pgxmock.NewRows([]string{"waiting", "active"}).AddRow(int64(3), int64(0)))

	counts, err := c.CountJobsByState(context.Background(), StateWaiting, StateActive)
	require.NoError(t, err)
	require.Equal(t, int64(3), counts[StateWaiting])
	require.Equal(t, int64(0), counts[StateActive])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_CountJobsByState_EmptyTableReturnsZero(t *testing.T) {
	c, mock := newTestClient(t)

	// An empty table makes the bare SUM(CASE ...) aggregate return SQL
	// NULL; COALESCE in the query is what keeps this a clean zero instead
	// of a scan error into *int64.
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(CASE WHEN state")).
		WithArgs(StateWaiting, StateActive).
		WillReturnRows(pgxmock.NewRows([]string{"waiting", "active"}).AddRow(int64(0), int64(0)))

	counts, err := c.CountJobsByState(context.Background(), StateWaiting, StateActive)
	require.NoError(t, err)
	require.Equal(t, int64(0), counts[StateWaiting])
	require.Equal(t, int64(0), counts[StateActive])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_InitQueueData_SwallowsAlreadyExists(t *testing.T) {
	c, mock := newTestClient(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TYPE job_state")).
		WillReturnError(&pgconn.PgError{Code: "42710"})
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS")).
		WillReturnResult(pgxmock.NewResult("CREATE INDEX", 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE OR REPLACE FUNCTION update_modified_column")).
		WillReturnResult(pgxmock.NewResult("CREATE FUNCTION", 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TRIGGER update_modified_column_trigger")).
		WillReturnError(&pgconn.PgError{Code: "42710"})

	err := c.InitQueueData(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_DeleteJobsByState(t *testing.T) {
	c, mock := newTestClient(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM")).
		WithArgs([]string{"waiting"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	err := c.DeleteJobsByState(context.Background(), StateWaiting)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
