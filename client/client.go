// Package client encapsulates every SQL interaction for a single queue.
// A Client is short-lived — bound to one connection for one logical
// operation — and must be released by its owner.
package client

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/SirClappington/enq/perrors"
)

// Querier is the subset of pgx's query surface the Client needs. Both
// *pgxpool.Conn and pgx.Tx satisfy it, which lets InsertJob,
// UpdateJobStateByID, CountJobsByState and DeleteJobsByState run
// identically whether they execute directly on the bound connection or
// inside a transaction opened by BeginTransaction. InitQueueData always
// runs on the connection, and AcquireJob uses a transaction of its own.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn is the connection-level surface the Client is bound to: a Querier
// that can also start transactions and be returned to its pool.
type Conn interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Release()
}

const jobColumns = `id, payload, state, priority, "errorMessage", "createdAt", "updatedAt"`

// Client is bound to one connection and one queue name. All SQL for that
// queue lives on this type.
type Client struct {
	conn      Conn
	tx        pgx.Tx
	queueName string
	table     string
	logger    *zap.Logger
}

// New binds conn to queueName. The caller owns conn and must eventually
// call Release.
func New(conn Conn, queueName string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		conn:      conn,
		queueName: queueName,
		table:     pgx.Identifier{queueName}.Sanitize(),
		logger:    logger,
	}
}

// querier returns whichever Querier is currently in scope: an open
// transaction started via BeginTx, or the bound connection itself.
func (c *Client) querier() Querier {
	if c.tx != nil {
		return c.tx
	}
	return c.conn
}

// InitQueueData ensures the job_state enum, the queue table, the dequeue
// index, and the updatedAt trigger exist. It is idempotent: backend error
// codes that mean "object already exists" are swallowed, everything else
// is rethrown.
func (c *Client) InitQueueData(ctx context.Context) error {
	statements := []string{
		`CREATE TYPE job_state AS ENUM ('waiting', 'active', 'completed', 'failed')`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			payload JSON NOT NULL,
			state job_state NOT NULL DEFAULT 'waiting',
			priority INTEGER NOT NULL DEFAULT %d,
			"errorMessage" TEXT,
			"createdAt" TIMESTAMP(3) NOT NULL DEFAULT now(),
			"updatedAt" TIMESTAMP(3) NOT NULL DEFAULT now()
		)`, c.table, DefaultPriority),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (state, priority DESC, "createdAt" ASC, id ASC)`,
			pgx.Identifier{c.queueName + "_dequeue_idx"}.Sanitize(), c.table),
		`CREATE OR REPLACE FUNCTION update_modified_column() RETURNS trigger AS $$
		BEGIN
			NEW."updatedAt" = now();
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`,
		fmt.Sprintf(`CREATE TRIGGER update_modified_column_trigger
			BEFORE UPDATE ON %s
			FOR EACH ROW
			EXECUTE PROCEDURE update_modified_column()`, c.table),
	}

	for _, stmt := range statements {
		if _, err := c.conn.Exec(ctx, stmt); err != nil {
			if isAlreadyExists(err) {
				c.logger.Debug("initQueueData: object already exists, skipping", zap.Error(err))
				continue
			}
			return errors.Wrap(err, "initQueueData")
		}
	}
	return nil
}

// isAlreadyExists reports whether err is a Postgres "object already
// exists" / duplicate-object error: unique_violation (23505) or
// duplicate_object (42710).
func isAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" || pgErr.Code == "42710"
}

// InsertJob inserts a new row and returns the fully populated job,
// including the database-assigned id and timestamps. Queue.Add always
// passes StateWaiting; the state parameter is kept on the Client API
// because insertion is not intrinsically tied to one state.
func (c *Client) InsertJob(ctx context.Context, payload []byte, state JobState, priority int32) (*Job, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (payload, state, priority) VALUES ($1, $2, $3) RETURNING %s`,
		c.table, jobColumns,
	)
	job, err := scanJob(c.querier().QueryRow(ctx, query, payload, state, priority))
	if err != nil {
		return nil, errors.Wrap(err, "insertJob")
	}
	return job, nil
}

// AcquireJob atomically leases the highest-priority waiting job and flips
// it to active, inside its own transaction. It returns
// perrors.ErrAcquirableJobNotFound when no waiting job is currently
// available without another transaction holding its row lock.
func (c *Client) AcquireJob(ctx context.Context) (job *Job, err error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "acquireJob: begin")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	selectQuery := fmt.Sprintf(
		`SELECT %s FROM %s WHERE state = $1 ORDER BY priority DESC, "createdAt" ASC, id ASC LIMIT 1 FOR UPDATE SKIP LOCKED`,
		jobColumns, c.table,
	)
	candidate, err := scanJob(tx.QueryRow(ctx, selectQuery, StateWaiting))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrAcquirableJobNotFound
		}
		return nil, errors.Wrap(err, "acquireJob: select")
	}

	updateQuery := fmt.Sprintf(
		`UPDATE %s SET state = $1 WHERE id = $2 RETURNING %s`,
		c.table, jobColumns,
	)
	leased, err := scanJob(tx.QueryRow(ctx, updateQuery, StateActive, candidate.ID))
	if err != nil {
		return nil, errors.Wrap(err, "acquireJob: update")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "acquireJob: commit")
	}
	committed = true
	return leased, nil
}

// UpdateJobStateByID updates one row by id and returns the updated job.
// errMsg should be nil on any transition other than to failed, per the
// documented MySQL-path hazard this module does not repeat.
func (c *Client) UpdateJobStateByID(ctx context.Context, id int64, state JobState, errMsg *string) (*Job, error) {
	query := fmt.Sprintf(
		`UPDATE %s SET state = $1, "errorMessage" = $2 WHERE id = $3 RETURNING %s`,
		c.table, jobColumns,
	)
	job, err := scanJob(c.querier().QueryRow(ctx, query, state, errMsg, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.NewJobNotFoundError(id)
		}
		return nil, errors.Wrap(err, "updateJobStateById")
	}
	return job, nil
}

// CountJobsByState returns the number of jobs in each requested state.
// States with no matching rows are present in the map with value zero.
func (c *Client) CountJobsByState(ctx context.Context, states ...JobState) (map[JobState]int64, error) {
	if len(states) == 0 {
		states = AllStates
	}

	selects := make([]string, len(states))
	args := make([]any, len(states))
	for i, s := range states {
		selects[i] = fmt.Sprintf(`COALESCE(SUM(CASE WHEN state = $%d THEN 1 ELSE 0 END), 0)`, i+1)
		args[i] = s
	}
	query := fmt.Sprintf(`SELECT %s FROM %s`, joinComma(selects), c.table)

	dest := make([]any, len(states))
	counts := make([]int64, len(states))
	for i := range counts {
		dest[i] = &counts[i]
	}
	if err := c.querier().QueryRow(ctx, query, args...).Scan(dest...); err != nil {
		return nil, errors.Wrap(err, "countJobsByState")
	}

	out := make(map[JobState]int64, len(states))
	for i, s := range states {
		out[s] = counts[i]
	}
	return out, nil
}

// DeleteJobsByState deletes every job whose state is in states.
func (c *Client) DeleteJobsByState(ctx context.Context, states ...JobState) error {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE state = ANY($1::job_state[])`, c.table)
	if _, err := c.querier().Exec(ctx, query, names); err != nil {
		return errors.Wrap(err, "deleteJobsByState")
	}
	return nil
}

// BeginTransaction opens an explicit transaction; subsequent calls on this
// Client run inside it until CommitTransaction or RollbackTransaction.
func (c *Client) BeginTransaction(ctx context.Context) error {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginTransaction")
	}
	c.tx = tx
	return nil
}

// CommitTransaction commits the transaction opened by BeginTransaction.
func (c *Client) CommitTransaction(ctx context.Context) error {
	if c.tx == nil {
		return errors.New("commitTransaction: no open transaction")
	}
	err := c.tx.Commit(ctx)
	c.tx = nil
	if err != nil {
		return errors.Wrap(err, "commitTransaction")
	}
	return nil
}

// RollbackTransaction rolls back the transaction opened by
// BeginTransaction.
func (c *Client) RollbackTransaction(ctx context.Context) error {
	if c.tx == nil {
		return errors.New("rollbackTransaction: no open transaction")
	}
	err := c.tx.Rollback(ctx)
	c.tx = nil
	if err != nil {
		return errors.Wrap(err, "rollbackTransaction")
	}
	return nil
}

// Release returns the bound connection to its Pool. It must be called
// exactly once per Client, on every exit path.
func (c *Client) Release() {
	c.conn.Release()
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	if err := row.Scan(&j.ID, &j.Payload, &j.State, &j.Priority, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
