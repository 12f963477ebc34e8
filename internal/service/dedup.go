package service

import (
	"context"
	"fmt"

	"goodads/internal/domain"

	"golang.org/x/sync/singleflight"
)

// DedupAPI collapses identical in-flight calls. The shared call is detached
// from any single caller; each caller stops waiting when its own context ends.
type DedupAPI struct {
	next  BackendAPI
	group *singleflight.Group
	scope string
}

// NewDedupAPI wraps next. scope must differ between auth states, since admin
// responses may not be shared with anonymous callers.
func NewDedupAPI(next BackendAPI, group *singleflight.Group, scope string) *DedupAPI {
	return &DedupAPI{next: next, group: group, scope: scope}
}

func shared[T any](ctx context.Context, d *DedupAPI, key string, fn func(context.Context) (T, error)) (T, error) {
	ch := d.group.DoChan(d.scope+"|"+key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (d *DedupAPI) ListAds(ctx context.Context) ([]domain.Ad, error) {
	return shared(ctx, d, "ads", d.next.ListAds)
}

func (d *DedupAPI) GetOverview(ctx context.Context) (domain.OverviewStats, error) {
	return shared(ctx, d, "overview", d.next.GetOverview)
}

func (d *DedupAPI) GetFormSubmissions(ctx context.Context, adID string, page, limit int) (*domain.SubmissionPage, error) {
	return shared(ctx, d, fmt.Sprintf("forms|%s|%d|%d", adID, page, limit), func(ctx context.Context) (*domain.SubmissionPage, error) {
		return d.next.GetFormSubmissions(ctx, adID, page, limit)
	})
}

func (d *DedupAPI) GetAdAnalytics(ctx context.Context, adID string) (*domain.AdAnalytics, error) {
	return shared(ctx, d, "analytics|"+adID, func(ctx context.Context) (*domain.AdAnalytics, error) {
		return d.next.GetAdAnalytics(ctx, adID)
	})
}

func (d *DedupAPI) ListAPIKeys(ctx context.Context, page, limit int) (*domain.APIKeyPage, error) {
	return shared(ctx, d, fmt.Sprintf("keys|%d|%d", page, limit), func(ctx context.Context) (*domain.APIKeyPage, error) {
		return d.next.ListAPIKeys(ctx, page, limit)
	})
}

func (d *DedupAPI) GetAPIKeyDetail(ctx context.Context, apiKey string) (*domain.APIKeyDetail, error) {
	return shared(ctx, d, "key|"+apiKey, func(ctx context.Context) (*domain.APIKeyDetail, error) {
		return d.next.GetAPIKeyDetail(ctx, apiKey)
	})
}
