package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"goodads/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var perfAds = []domain.Ad{{ID: "a1", Title: "First"}, {ID: "a2", Title: "Second"}}

func analyticsFor(adID string, shown int64) *domain.AdAnalytics {
	return &domain.AdAnalytics{
		AdID:            adID,
		EventAnalytics:  map[string]int64{"widgetShown": shown, "adSelected": 1},
		AvgTimeSpent:    4.5,
		DropOffAnalysis: map[string]float64{},
	}
}

func TestAdPerformanceSelect(t *testing.T) {
	p := NewAdPerformance(&fakeAPI{
		getAnalytics: func(_ context.Context, adID string) (*domain.AdAnalytics, error) {
			return analyticsFor(adID, 10), nil
		},
	}, perfAds, quietLog())
	assert.Equal(t, StateIdle, p.View().State)
	assert.Equal(t, "Select an ad to view analytics", p.View().Message)

	v := p.Select(context.Background(), "a2")
	assert.Equal(t, StateReady, v.State)
	assert.Equal(t, "a2", v.Selected.ID)
	require.Len(t, v.Events, 2)
	assert.Equal(t, EventCount{Name: "widgetShown", Label: "Widget Shown", Count: 10}, v.Events[0])
	assert.Equal(t, "4.5s", v.AvgTimeSpent)

	v = p.Select(context.Background(), "unknown")
	assert.Equal(t, "a1", v.Selected.ID)
}

func TestAdPerformanceNoAds(t *testing.T) {
	p := NewAdPerformance(&fakeAPI{}, nil, quietLog())
	v := p.Select(context.Background(), "a1")
	assert.Equal(t, StateEmpty, v.State)
	assert.Equal(t, "No ads available", v.Message)
}

func TestAdPerformanceEmptyPayload(t *testing.T) {
	p := NewAdPerformance(&fakeAPI{
		getAnalytics: func(_ context.Context, adID string) (*domain.AdAnalytics, error) {
			return &domain.AdAnalytics{AdID: adID, Missing: []string{domain.FieldAvgTimeSpent}}, nil
		},
	}, perfAds, quietLog())
	v := p.Select(context.Background(), "a1")
	assert.Equal(t, StateEmpty, v.State)
	assert.Equal(t, "No analytics data available for this ad", v.Message)
}

func TestAdPerformanceMissingAvgTime(t *testing.T) {
	p := NewAdPerformance(&fakeAPI{
		getAnalytics: func(_ context.Context, adID string) (*domain.AdAnalytics, error) {
			return &domain.AdAnalytics{
				EventAnalytics: map[string]int64{"widgetShown": 1},
				Missing:        []string{domain.FieldAvgTimeSpent},
			}, nil
		},
	}, perfAds, quietLog())
	v := p.Select(context.Background(), "a1")
	assert.Equal(t, StateReady, v.State)
	assert.Equal(t, NotAvailable, v.AvgTimeSpent)
}

func TestAdPerformanceFailureAndRetry(t *testing.T) {
	calls := 0
	p := NewAdPerformance(&fakeAPI{
		getAnalytics: func(_ context.Context, adID string) (*domain.AdAnalytics, error) {
			calls++
			if calls == 1 {
				return nil, &RequestError{StatusCode: 502}
			}
			return analyticsFor(adID, 3), nil
		},
	}, perfAds, quietLog())

	v := p.Select(context.Background(), "a2")
	assert.Equal(t, StateFailed, v.State)
	assert.Equal(t, "Failed to load ad analytics", v.Message)
	assert.Equal(t, "a2", v.Selected.ID)

	v = p.Retry(context.Background())
	assert.Equal(t, StateReady, v.State)
	assert.Equal(t, "a2", v.Selected.ID)
}

func TestAdPerformanceDiscardsSupersededResponse(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var firstCtx context.Context

	p := NewAdPerformance(&fakeAPI{
		getAnalytics: func(ctx context.Context, adID string) (*domain.AdAnalytics, error) {
			if adID == "a1" {
				firstCtx = ctx
				close(started)
				<-release
				return analyticsFor("a1", 999), nil
			}
			return analyticsFor("a2", 2), nil
		},
	}, perfAds, quietLog())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Select(context.Background(), "a1")
	}()
	<-started

	v := p.Select(context.Background(), "a2")
	assert.Equal(t, StateReady, v.State)
	assert.ErrorIs(t, firstCtx.Err(), context.Canceled)

	close(release)
	wg.Wait()

	v = p.View()
	assert.Equal(t, "a2", v.Selected.ID)
	require.NotEmpty(t, v.Events)
	assert.EqualValues(t, 2, v.Events[0].Count)
}

func TestAdPerformanceCallerCancellation(t *testing.T) {
	p := NewAdPerformance(&fakeAPI{
		getAnalytics: func(ctx context.Context, _ string) (*domain.AdAnalytics, error) {
			<-ctx.Done()
			return nil, &NetworkError{Err: ctx.Err()}
		},
	}, perfAds, quietLog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v := p.Select(ctx, "a1")
	assert.Equal(t, StateFailed, v.State)
	assert.True(t, errors.Is(p.err, context.Canceled))
}
