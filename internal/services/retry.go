package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// RetryOptions bounds how often a signal transaction is retried after a
// serialization failure.
type RetryOptions struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryOptions returns the retry budget used by signal mutations.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries:      3,
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
		MaxElapsedTime:  2 * time.Second,
	}
}

// runInTx runs fn in a transaction and retries the whole unit when the
// database reports a transient conflict. Exhausted retries surface as
// ErrConflict; every other error is returned unchanged on first occurrence.
func runInTx(ctx context.Context, db *gorm.DB, opts RetryOptions, fn func(tx *gorm.DB) error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(opts.InitialInterval),
		backoff.WithMaxInterval(opts.MaxInterval),
		backoff.WithMaxElapsedTime(opts.MaxElapsedTime),
	), opts.MaxRetries), ctx)

	err := backoff.Retry(func() error {
		err := db.WithContext(ctx).Transaction(fn)
		if err == nil || isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b)
	if err != nil && isTransient(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// isTransient reports whether err is a conflict that a fresh transaction can
// resolve: serialization failures, deadlocks, lock timeouts and unique-key
// races between concurrent inserts.
func isTransient(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
