package service

import (
	"context"
	"time"

	"goodads/internal/domain"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

type ShellState string

const (
	ShellLoading ShellState = "loading"
	ShellReady   ShellState = "ready"
	ShellFatal   ShellState = "fatal"
)

const FatalMessage = "Failed to initialize dashboard. Please check your connection and try again."

// Dashboard is the shell data shared by every tab.
type Dashboard struct {
	State    ShellState
	Overview domain.OverviewStats
	Ads      []domain.Ad

	OverviewErr error
	AdsErr      error
	Fatal       error
	LoadedAt    time.Time
}

func (d *Dashboard) OverviewUnavailable() bool { return !d.Overview.Available }
func (d *Dashboard) FunnelUnavailable() bool   { return !d.Overview.JourneyStats.Available }
func (d *Dashboard) NoAds() bool               { return len(d.Ads) == 0 }

type DashboardService struct {
	log *logrus.Entry
	now func() time.Time
}

func NewDashboardService(log *logrus.Entry) *DashboardService {
	return &DashboardService{log: log, now: time.Now}
}

// Load fetches overview and ads together and waits for both to settle. A
// failed call degrades to its fallback; only a crash in the join is fatal.
func (s *DashboardService) Load(ctx context.Context, api BackendAPI) *Dashboard {
	d := &Dashboard{State: ShellLoading, Ads: []domain.Ad{}}

	var (
		overview    domain.OverviewStats
		ads         []domain.Ad
		overviewErr error
		adsErr      error
	)

	// 1. Both calls run together and settle independently
	var wg conc.WaitGroup
	wg.Go(func() {
		overview, overviewErr = api.GetOverview(ctx)
	})
	wg.Go(func() {
		ads, adsErr = api.ListAds(ctx)
	})

	// 2. A panic in either call is the only fatal outcome
	if recovered := wg.WaitAndRecover(); recovered != nil {
		d.State = ShellFatal
		d.Fatal = recovered.AsError()
		s.log.WithError(d.Fatal).Error("Dashboard initialisation crashed")
		return d
	}

	// 3. Failed calls keep their empty fallbacks
	if overviewErr != nil {
		d.OverviewErr = overviewErr
		s.log.WithError(overviewErr).Warn("Overview unavailable, using empty fallback")
	} else {
		d.Overview = overview
	}

	if adsErr != nil {
		d.AdsErr = adsErr
		s.log.WithError(adsErr).Warn("Ad list unavailable, using empty fallback")
	} else if ads != nil {
		d.Ads = ads
	}

	d.State = ShellReady
	d.LoadedAt = s.now()
	return d
}
