package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoffGrowth(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2.0,
	}

	assert.Equal(t, time.Duration(0), eb.NextDelay(0))
	assert.Equal(t, time.Second, eb.NextDelay(1))
	assert.Equal(t, 2*time.Second, eb.NextDelay(2))
	assert.Equal(t, 4*time.Second, eb.NextDelay(3))
}

func TestExponentialBackoffCapsAtMax(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}

	assert.Equal(t, 5*time.Second, eb.NextDelay(10))
}

func TestExponentialBackoffJitterStaysInBand(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}

	for i := 0; i < 50; i++ {
		delay := eb.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 1800*time.Millisecond)
		assert.LessOrEqual(t, delay, 2200*time.Millisecond)
	}
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 3 * time.Second}
	assert.Equal(t, time.Duration(0), cb.NextDelay(0))
	assert.Equal(t, 3*time.Second, cb.NextDelay(1))
	assert.Equal(t, 3*time.Second, cb.NextDelay(7))
}

func TestWaitZeroDelayReturnsImmediately(t *testing.T) {
	start := time.Now()
	require.NoError(t, Wait(context.Background(), 0))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Wait(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
