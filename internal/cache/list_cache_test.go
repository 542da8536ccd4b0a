package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ojt-labs/account-api/internal/models"
)

func sampleAccounts() []models.Account {
	return []models.Account{
		{ID: "a-1", Email: "one@example.com", Username: "one"},
		{ID: "a-2", Email: "two@example.com", Username: "two"},
	}
}

func TestGetOrFillMissThenHit(t *testing.T) {
	c := NewAccountListCache(time.Minute, time.Hour, nil, nil)

	var calls int32
	fill := func(ctx context.Context) ([]models.Account, error) {
		atomic.AddInt32(&calls, 1)
		return sampleAccounts(), nil
	}

	got, hit, err := c.GetOrFill(context.Background(), fill)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, got, 2)

	got, hit, err = c.GetOrFill(context.Background(), fill)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, got, 2)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrFillSingleFlight(t *testing.T) {
	c := NewAccountListCache(time.Minute, time.Hour, nil, nil)

	var calls int32
	release := make(chan struct{})
	fill := func(ctx context.Context) ([]models.Account, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return sampleAccounts(), nil
	}

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrFill(context.Background(), fill)
			errs <- err
		}()
	}

	// Let the goroutines pile up on the gate, then release the fill.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "exactly one query per miss window")
}

func TestGetOrFillErrorReleasesGate(t *testing.T) {
	c := NewAccountListCache(time.Minute, time.Hour, nil, nil)

	boom := errors.New("store down")
	_, _, err := c.GetOrFill(context.Background(), func(ctx context.Context) ([]models.Account, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	// A failed fill leaves the slot empty and the gate free.
	got, hit, err := c.GetOrFill(context.Background(), func(ctx context.Context) ([]models.Account, error) {
		return sampleAccounts(), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, got, 2)
}

func TestSlidingExpiry(t *testing.T) {
	c := NewAccountListCache(60*time.Second, time.Hour, nil, nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	c.now = func() time.Time { return current }

	var calls int
	fill := func(ctx context.Context) ([]models.Account, error) {
		calls++
		return sampleAccounts(), nil
	}

	_, hit, err := c.GetOrFill(context.Background(), fill)
	require.NoError(t, err)
	assert.False(t, hit)

	// Repeated access inside the idle window keeps renewing it.
	for i := 0; i < 5; i++ {
		current = current.Add(45 * time.Second)
		_, hit, err = c.GetOrFill(context.Background(), fill)
		require.NoError(t, err)
		assert.True(t, hit)
	}
	assert.Equal(t, 1, calls)

	// A full idle window with no access evicts the slot.
	current = current.Add(60 * time.Second)
	_, hit, err = c.GetOrFill(context.Background(), fill)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestAbsoluteExpiryCapsSliding(t *testing.T) {
	c := NewAccountListCache(60*time.Second, time.Hour, nil, nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	c.now = func() time.Time { return current }

	var calls int
	fill := func(ctx context.Context) ([]models.Account, error) {
		calls++
		return sampleAccounts(), nil
	}

	_, _, err := c.GetOrFill(context.Background(), fill)
	require.NoError(t, err)

	// Continuous access renews the sliding window but cannot outlive the
	// absolute deadline.
	for current.Sub(base) < time.Hour {
		current = current.Add(30 * time.Second)
		_, _, err = c.GetOrFill(context.Background(), fill)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, calls, "one fill at start, one after the absolute deadline")
}

func TestInvalidate(t *testing.T) {
	c := NewAccountListCache(time.Minute, time.Hour, nil, nil)

	var calls int
	fill := func(ctx context.Context) ([]models.Account, error) {
		calls++
		return sampleAccounts(), nil
	}

	_, _, err := c.GetOrFill(context.Background(), fill)
	require.NoError(t, err)

	c.Invalidate()

	_, hit, err := c.GetOrFill(context.Background(), fill)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

type countingRecorder struct {
	hits   int32
	misses int32
}

func (r *countingRecorder) RecordCacheOperation(hit bool, _ time.Duration) {
	if hit {
		atomic.AddInt32(&r.hits, 1)
	} else {
		atomic.AddInt32(&r.misses, 1)
	}
}

func TestRecorderObservesHitsAndMisses(t *testing.T) {
	rec := &countingRecorder{}
	c := NewAccountListCache(time.Minute, time.Hour, rec, nil)

	fill := func(ctx context.Context) ([]models.Account, error) {
		return sampleAccounts(), nil
	}

	_, _, err := c.GetOrFill(context.Background(), fill)
	require.NoError(t, err)
	_, _, err = c.GetOrFill(context.Background(), fill)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&rec.misses))
	assert.Equal(t, int32(1), atomic.LoadInt32(&rec.hits))
}
