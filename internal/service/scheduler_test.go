package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"goodads/internal/conf"
	"goodads/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	ttl     time.Duration
	removed int
}

func (s *countingSweeper) Sweep(ttl time.Duration) int {
	s.ttl = ttl
	return s.removed
}

func TestSchedulerSweepSessions(t *testing.T) {
	sw := &countingSweeper{removed: 3}
	s := NewSchedulerService(conf.SchedulerConfig{}, sw, 2*time.Hour, &fakeAPI{}, nil, quietLog())

	assert.Equal(t, 3, s.SweepSessions())
	assert.Equal(t, 2*time.Hour, sw.ttl)

	s = NewSchedulerService(conf.SchedulerConfig{}, nil, time.Hour, &fakeAPI{}, nil, quietLog())
	assert.Equal(t, 0, s.SweepSessions())
}

func TestSchedulerProbeBackendSetsGauge(t *testing.T) {
	metrics := NewClientMetrics(prometheus.NewRegistry())
	fail := true
	api := &fakeAPI{
		listAds: func(context.Context) ([]domain.Ad, error) {
			if fail {
				return nil, &NetworkError{Endpoint: "/api/ads", Err: errors.New("dial tcp: refused")}
			}
			return []domain.Ad{}, nil
		},
	}
	s := NewSchedulerService(conf.SchedulerConfig{}, nil, time.Hour, api, metrics, quietLog())

	require.Error(t, s.ProbeBackend(context.Background()))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.backendUp))

	fail = false
	require.NoError(t, s.ProbeBackend(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.backendUp))
}

func TestSchedulerStart(t *testing.T) {
	s := NewSchedulerService(conf.SchedulerConfig{
		SweepSchedule: "*/10 * * * *",
		ProbeSchedule: "",
	}, &countingSweeper{}, time.Hour, &fakeAPI{}, nil, quietLog())
	require.NoError(t, s.Start())
	assert.Len(t, s.Cron.Entries(), 1)
	s.Stop()

	bad := NewSchedulerService(conf.SchedulerConfig{ProbeSchedule: "every tuesday"}, nil, time.Hour, &fakeAPI{}, nil, quietLog())
	assert.ErrorContains(t, bad.Start(), "backend_probe")
}
