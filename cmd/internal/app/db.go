package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

// NewDBPool builds a pgxpool and waits until it can hand out a connection,
// retrying with exponential backoff. It does not run migrations; use `lms migrate up`.
func NewDBPool(ctx context.Context, cfg Config, log Logger) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: parse url: %w", err)
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	var pool *pgxpool.Pool
	attempt := 0
	err = connectWithRetry(ctx, cfg.DBConnectRetries, cfg.DBConnectBackoff, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, pcfg)
		if err == nil {
			err = PingDB(ctx, p, 3*time.Second)
			if err != nil {
				p.Close()
			}
		}
		if err != nil {
			log.Warn("db.connect.retry", "attempt", attempt, "err", err)
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect after %d attempts: %w", attempt, err)
	}
	return pool, nil
}

// connectWithRetry runs fn until it succeeds, retries are exhausted or ctx ends.
// Every fn error is treated as retryable.
func connectWithRetry(ctx context.Context, retries int, base time.Duration, fn func(context.Context) error) error {
	if retries < 0 {
		retries = 0
	}
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(5*time.Second, b)
	b = retry.WithMaxRetries(uint64(retries), b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}
