package fetchwork

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igprofile/pkg/errors"
	"igprofile/pkg/instagram"
)

// fakeFetcher records concurrency and returns canned results
type fakeFetcher struct {
	delay      time.Duration
	err        error
	inFlight   int32
	maxSeen    int32
	totalCalls int32
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, username string) (*instagram.Profile, error) {
	atomic.AddInt32(&f.totalCalls, 1)
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)

	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if current <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, current) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.err != nil {
		return nil, f.err
	}
	return &instagram.Profile{Username: username}, nil
}

func TestPoolFetchReturnsProfile(t *testing.T) {
	fetcher := &fakeFetcher{}
	pool := NewPool(2, fetcher, nil)
	pool.Start()
	defer pool.Stop()

	profile, err := pool.Fetch(context.Background(), "nasa")
	require.NoError(t, err)
	assert.Equal(t, "nasa", profile.Username)
}

func TestPoolFetchPropagatesError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.NotFound("Instagram profile 'ghost' not found.")}
	pool := NewPool(2, fetcher, nil)
	pool.Start()
	defer pool.Stop()

	_, err := pool.Fetch(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestPoolBoundsConcurrency(t *testing.T) {
	fetcher := &fakeFetcher{delay: 50 * time.Millisecond}
	pool := NewPool(2, fetcher, nil)
	pool.Start()
	defer pool.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = pool.Fetch(context.Background(), "nasa")
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 8, fetcher.totalCalls)
	assert.LessOrEqual(t, fetcher.maxSeen, int32(2), "no more retrievals in flight than workers")
}

func TestPoolFetchHonorsCallerContext(t *testing.T) {
	fetcher := &fakeFetcher{delay: time.Second}
	pool := NewPool(1, fetcher, nil)
	pool.Start()
	defer pool.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := pool.Fetch(ctx, "nasa")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
