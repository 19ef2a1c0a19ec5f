package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rogpeppe/retry"
	"go.uber.org/zap"
)

// WaitStrategy returns the retry schedule used while waiting for the
// database to accept connections. The budget bounds the total wait;
// once it is spent the wait is reported as fatal.
func WaitStrategy(budget time.Duration) retry.Strategy {
	return retry.Strategy{
		Delay:       3 * time.Second,
		MaxDelay:    15 * time.Second,
		Factor:      1.5,
		MaxDuration: budget,
	}
}

// WaitUntilReady polls p until a ping succeeds, the retry strategy is
// exhausted, or ctx is cancelled.
func WaitUntilReady(ctx context.Context, p Pinger, strategy retry.Strategy, log *zap.Logger) error {
	start := time.Now()
	attempts := 0
	for i := strategy.Start(); ; {
		if !i.Next(ctx.Done()) {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "database wait cancelled")
			}
			return errors.Errorf("database not reachable after %d attempts over %v", attempts, time.Since(start).Round(time.Second))
		}
		attempts++
		err := p.Ping(ctx)
		if err == nil {
			log.Info("database is reachable", zap.Int("attempts", attempts))
			return nil
		}
		log.Debug("database not ready yet", zap.Int("attempt", attempts), zap.Error(err))
	}
}
