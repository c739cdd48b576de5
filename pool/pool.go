// Package pool owns the backend connections and hands out short-lived
// Clients bound to a single queue. It holds no job state of its own.
package pool

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/SirClappington/enq/client"
)

// Config describes how to reach Postgres. It is a plain Go struct rather
// than environment variables: the core library never reads the
// environment, per the no-CLI/no-env constraint on its public surface.
type Config struct {
	DSN string

	// MaxConns bounds the pgxpool; zero uses pgxpool's own default.
	MaxConns int32

	// MinConns keeps warm connections around; zero uses pgxpool's default.
	MinConns int32

	// ConnectTimeout bounds each new connection's dial; zero means no
	// override.
	ConnectTimeout time.Duration

	Logger *zap.Logger
}

func (c Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

// Pool wraps a *pgxpool.Pool. It owns no job state; GetClient binds one
// connection from the pool to a queue name for the duration of one logical
// operation.
type Pool struct {
	raw    *pgxpool.Pool
	logger *zap.Logger
}

// New builds a Pool from cfg. The returned Pool must be Close()d exactly
// once by the caller, per the core's "close at most once per Pool"
// contract.
func New(ctx context.Context, cfg Config) (*Pool, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "parse postgres dsn")
	}
	if cfg.MaxConns > 0 {
		pgxCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pgxCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnectTimeout > 0 {
		pgxCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	raw, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, errors.Wrap(err, "create postgres pool")
	}

	return &Pool{raw: raw, logger: cfg.logger()}, nil
}

// GetClient acquires one connection and binds it to queueName. The
// returned Client owns the connection until Release is called.
func (p *Pool) GetClient(ctx context.Context, queueName string) (*client.Client, error) {
	conn, err := p.raw.Acquire(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "acquire connection")
	}
	return client.New(conn, queueName, p.logger.With(zap.String("queue", queueName))), nil
}

// Close drains and closes all connections. The core calls this at most
// once per Pool; pgxpool.Pool.Close is itself safe to call once.
func (p *Pool) Close() {
	p.raw.Close()
}
