package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"goodads/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/singleflight"
)

// blockingAds returns an API whose ListAds blocks until release is closed.
func blockingAds(calls *atomic.Int32, started chan<- struct{}, release <-chan struct{}) *fakeAPI {
	var once sync.Once
	return &fakeAPI{
		listAds: func(context.Context) ([]domain.Ad, error) {
			calls.Add(1)
			once.Do(func() { close(started) })
			<-release
			return []domain.Ad{{ID: "a1"}}, nil
		},
	}
}

func TestDedupCollapsesConcurrentCalls(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	api := NewDedupAPI(blockingAds(&calls, started, release), &singleflight.Group{}, "admin")

	var wg sync.WaitGroup
	results := make([][]domain.Ad, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ads, err := api.ListAds(context.Background())
			assert.NoError(t, err)
			results[i] = ads
		}()
	}
	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		require.Len(t, r, 1)
		assert.Equal(t, "a1", r[0].ID)
	}
}

func TestDedupScopesAreIsolated(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	next := blockingAds(&calls, started, release)
	group := &singleflight.Group{}

	var wg sync.WaitGroup
	for _, scope := range []string{"admin", "anon"} {
		api := NewDedupAPI(next, group, scope)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = api.ListAds(context.Background())
		}()
	}
	<-started
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()
}

func TestDedupCallerCancelDoesNotCancelSharedCall(t *testing.T) {
	release := make(chan struct{})
	inner := make(chan context.Context, 1)
	api := NewDedupAPI(&fakeAPI{
		getOverview: func(ctx context.Context) (domain.OverviewStats, error) {
			inner <- ctx
			<-release
			return domain.OverviewStats{Available: true}, nil
		},
	}, &singleflight.Group{}, "admin")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := api.GetOverview(ctx)
		done <- err
	}()

	innerCtx := <-inner
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.NoError(t, innerCtx.Err())
	close(release)
}
