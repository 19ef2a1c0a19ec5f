package db

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rogpeppe/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/venu-sivanadham/moodle-to-azure-aks/config"
)

type fakePinger struct {
	failures int
	calls    int
}

func (f *fakePinger) Ping(ctx context.Context) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection refused")
	}
	return nil
}

func fastStrategy(budget time.Duration) retry.Strategy {
	return retry.Strategy{
		Delay:       time.Millisecond,
		MaxDelay:    time.Millisecond,
		MaxDuration: budget,
	}
}

func TestWaitUntilReadyEventualSuccess(t *testing.T) {
	p := &fakePinger{failures: 3}
	err := WaitUntilReady(context.Background(), p, fastStrategy(5*time.Second), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 4, p.calls)
}

func TestWaitUntilReadyExhaustsBudget(t *testing.T) {
	p := &fakePinger{failures: 1 << 30}
	err := WaitUntilReady(context.Background(), p, fastStrategy(50*time.Millisecond), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not reachable")
	assert.Greater(t, p.calls, 1)
}

func TestWaitUntilReadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakePinger{failures: 1 << 30}
	err := WaitUntilReady(ctx, p, fastStrategy(time.Minute), zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDSN(t *testing.T) {
	d := config.Database{
		Host:     "mysql.internal",
		Port:     3307,
		Name:     "campus",
		User:     "moodle",
		Password: "pw",
	}
	dsn := DSN(d)
	assert.Contains(t, dsn, "moodle:pw@tcp(mysql.internal:3307)/campus")
}

func TestWaitStrategyBounded(t *testing.T) {
	s := WaitStrategy(2 * time.Minute)
	assert.Equal(t, 2*time.Minute, s.MaxDuration)
	assert.NotZero(t, s.Delay)
}
