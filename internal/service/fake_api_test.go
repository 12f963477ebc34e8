package service

import (
	"context"
	"io"

	"goodads/internal/domain"

	"github.com/sirupsen/logrus"
)

// fakeAPI implements BackendAPI with overridable funcs.
type fakeAPI struct {
	listAds         func(ctx context.Context) ([]domain.Ad, error)
	getOverview     func(ctx context.Context) (domain.OverviewStats, error)
	getSubmissions  func(ctx context.Context, adID string, page, limit int) (*domain.SubmissionPage, error)
	getAnalytics    func(ctx context.Context, adID string) (*domain.AdAnalytics, error)
	listAPIKeys     func(ctx context.Context, page, limit int) (*domain.APIKeyPage, error)
	getAPIKeyDetail func(ctx context.Context, apiKey string) (*domain.APIKeyDetail, error)
}

func (f *fakeAPI) ListAds(ctx context.Context) ([]domain.Ad, error) {
	if f.listAds == nil {
		return []domain.Ad{}, nil
	}
	return f.listAds(ctx)
}

func (f *fakeAPI) GetOverview(ctx context.Context) (domain.OverviewStats, error) {
	if f.getOverview == nil {
		return domain.OverviewStats{Available: true}, nil
	}
	return f.getOverview(ctx)
}

func (f *fakeAPI) GetFormSubmissions(ctx context.Context, adID string, page, limit int) (*domain.SubmissionPage, error) {
	if f.getSubmissions == nil {
		return &domain.SubmissionPage{AdID: adID, Pagination: domain.NewPagination(page, limit, 0)}, nil
	}
	return f.getSubmissions(ctx, adID, page, limit)
}

func (f *fakeAPI) GetAdAnalytics(ctx context.Context, adID string) (*domain.AdAnalytics, error) {
	if f.getAnalytics == nil {
		return &domain.AdAnalytics{AdID: adID}, nil
	}
	return f.getAnalytics(ctx, adID)
}

func (f *fakeAPI) ListAPIKeys(ctx context.Context, page, limit int) (*domain.APIKeyPage, error) {
	if f.listAPIKeys == nil {
		return &domain.APIKeyPage{Pagination: domain.NewPagination(page, limit, 0)}, nil
	}
	return f.listAPIKeys(ctx, page, limit)
}

func (f *fakeAPI) GetAPIKeyDetail(ctx context.Context, apiKey string) (*domain.APIKeyDetail, error) {
	if f.getAPIKeyDetail == nil {
		return &domain.APIKeyDetail{}, nil
	}
	return f.getAPIKeyDetail(ctx, apiKey)
}

type authFlag bool

func (a authFlag) IsAuthenticated() bool { return bool(a) }

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
