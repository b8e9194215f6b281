// Package retry runs read-modify-write steps against conditional writes and
// holds the error policies that decide whether a failed step is surfaced.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// ErrExhausted wraps the last conflict once every attempt has been used.
var ErrExhausted = errors.New("retries exhausted")

// Config bounds a retry loop. Jitter of zero keeps the delay fixed.
type Config struct {
	Attempts int
	Delay    time.Duration
	Jitter   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Attempts: 3,
		Delay:    100 * time.Millisecond,
	}
}

func (c Config) attempts() int {
	if c.Attempts < 1 {
		return 1
	}
	return c.Attempts
}

func (c Config) backoff() goretry.Backoff {
	delay := c.Delay
	if delay <= 0 {
		delay = time.Nanosecond
	}

	b := goretry.NewConstant(delay)
	if c.Jitter > 0 {
		b = goretry.WithJitter(c.Jitter, b)
	}
	return goretry.WithMaxRetries(uint64(c.attempts()-1), b)
}

// OnConflict calls fn until it returns nil, returns an error that is not
// conflict, or the attempt cap is reached. fn must re-read its inputs on every
// call: each attempt is a fresh read-modify-write.
func OnConflict(ctx context.Context, cfg Config, conflict error, fn func(ctx context.Context) error) error {
	attempts := 0
	err := goretry.Do(ctx, cfg.backoff(), func(ctx context.Context) error {
		attempts++
		err := fn(ctx)
		if err != nil && errors.Is(err, conflict) {
			return goretry.RetryableError(err)
		}
		return err
	})
	if err != nil && errors.Is(err, conflict) {
		return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
	}
	return err
}
