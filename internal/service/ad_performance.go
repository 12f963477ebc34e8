package service

import (
	"context"
	"sort"
	"sync"

	"goodads/internal/domain"

	"github.com/sirupsen/logrus"
)

type EventCount struct {
	Name  string
	Label string
	Count int64
}

type DropOffRow struct {
	Stage   string
	Label   string
	Percent float64
}

// AdPerformanceView is an immutable snapshot for rendering.
type AdPerformanceView struct {
	State        PanelState
	Ads          []domain.Ad
	Selected     domain.Ad
	Events       []EventCount
	AvgTimeSpent string
	DropOffs     []DropOffRow
	Message      string
}

// AdPerformance loads analytics for one selected ad at a time. Selecting a new
// ad cancels the previous fetch and discards its result if it still arrives.
type AdPerformance struct {
	api BackendAPI
	log *logrus.Entry
	ads []domain.Ad

	mu        sync.Mutex
	selected  string
	state     PanelState
	analytics *domain.AdAnalytics
	err       error
	gen       uint64
	cancel    context.CancelFunc
}

func NewAdPerformance(api BackendAPI, ads []domain.Ad, log *logrus.Entry) *AdPerformance {
	p := &AdPerformance{api: api, ads: ads, log: log, state: StateIdle}
	if len(ads) == 0 {
		p.state = StateEmpty
	}
	return p
}

// Select switches to adID and waits for its analytics. Unknown ids fall back
// to the first ad.
func (p *AdPerformance) Select(ctx context.Context, adID string) AdPerformanceView {
	p.mu.Lock()
	if len(p.ads) == 0 {
		p.state = StateEmpty
		v := p.viewLocked()
		p.mu.Unlock()
		return v
	}
	if _, ok := domain.FindAd(p.ads, adID); !ok {
		adID = p.ads[0].ID
	}
	// 1. Cancel the previous fetch and claim a new generation
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	gen := p.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.selected = adID
	p.state = StateLoading
	p.analytics = nil
	p.err = nil
	p.mu.Unlock()

	// 2. Fetch without holding the lock
	analytics, err := p.api.GetAdAnalytics(fetchCtx, adID)
	cancel()

	// 3. Only the latest selection may publish its result
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		p.log.WithField("ad", adID).Debug("Discarding analytics for a superseded selection")
		return p.viewLocked()
	}
	p.cancel = nil

	switch {
	case err != nil:
		p.state = StateFailed
		p.err = err
		p.log.WithError(err).WithField("ad", adID).Warn("Ad analytics failed")
	case analytics == nil || analytics.Empty():
		p.state = StateEmpty
	default:
		p.state = StateReady
		p.analytics = analytics
	}
	return p.viewLocked()
}

// Retry reloads the current selection.
func (p *AdPerformance) Retry(ctx context.Context) AdPerformanceView {
	p.mu.Lock()
	id := p.selected
	p.mu.Unlock()
	return p.Select(ctx, id)
}

func (p *AdPerformance) View() AdPerformanceView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

func (p *AdPerformance) viewLocked() AdPerformanceView {
	v := AdPerformanceView{State: p.state, Ads: p.ads}
	if ad, ok := domain.FindAd(p.ads, p.selected); ok {
		v.Selected = ad
	}

	switch p.state {
	case StateEmpty:
		if len(p.ads) == 0 {
			v.Message = "No ads available"
		} else {
			v.Message = "No analytics data available for this ad"
		}
	case StateIdle:
		v.Message = "Select an ad to view analytics"
	case StateLoading:
		v.Message = "Loading analytics..."
	case StateFailed:
		v.Message = UserMessage(p.err, "Failed to load ad analytics")
	case StateReady:
		fillAnalytics(&v, p.analytics)
	}
	return v
}

func fillAnalytics(v *AdPerformanceView, a *domain.AdAnalytics) {
	for name, n := range a.EventAnalytics {
		v.Events = append(v.Events, EventCount{Name: name, Label: HumanizeEventName(name), Count: n})
	}
	sort.Slice(v.Events, func(i, j int) bool {
		if v.Events[i].Count != v.Events[j].Count {
			return v.Events[i].Count > v.Events[j].Count
		}
		return v.Events[i].Name < v.Events[j].Name
	})

	v.AvgTimeSpent = NotAvailable
	if a.HasAvgTimeSpent() {
		v.AvgTimeSpent = FormatSeconds(a.AvgTimeSpent)
	}

	for stage, pct := range a.DropOffAnalysis {
		v.DropOffs = append(v.DropOffs, DropOffRow{Stage: stage, Label: HumanizeEventName(stage), Percent: pct})
	}
	sort.Slice(v.DropOffs, func(i, j int) bool { return v.DropOffs[i].Stage < v.DropOffs[j].Stage })
}
