package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Linear      bool // delay grows as attempt * Delay
	Jitter      bool // add up to ~30% random jitter per wait
}

func WithRetry(ctx context.Context, config Config, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			if attempt == config.MaxAttempts {
				return fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, err)
			}

			delay := config.Delay
			if config.Linear {
				delay = time.Duration(attempt) * config.Delay
			}
			if config.Jitter {
				delay += time.Duration(rand.Int63n(int64(delay)/3 + 1))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		return nil
	}

	return lastErr
}
