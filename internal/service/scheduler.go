package service

import (
	"context"
	"fmt"
	"time"

	"goodads/internal/conf"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper is implemented by session storages that need explicit eviction.
type Sweeper interface {
	Sweep(ttl time.Duration) int
}

const probeTimeout = 15 * time.Second

type SchedulerService struct {
	Cron       *cron.Cron
	cfg        conf.SchedulerConfig
	sweeper    Sweeper
	sessionTTL time.Duration
	api        BackendAPI
	metrics    *ClientMetrics
	log        *logrus.Entry
}

// NewSchedulerService wires the background jobs. sweeper may be nil when the
// storage expires keys on its own.
func NewSchedulerService(cfg conf.SchedulerConfig, sweeper Sweeper, sessionTTL time.Duration, api BackendAPI, metrics *ClientMetrics, log *logrus.Entry) *SchedulerService {
	return &SchedulerService{
		Cron:       cron.New(),
		cfg:        cfg,
		sweeper:    sweeper,
		sessionTTL: sessionTTL,
		api:        api,
		metrics:    metrics,
		log:        log,
	}
}

func (s *SchedulerService) registerJob(name, schedule string, job func()) error {
	if schedule == "" {
		s.log.WithField("job", name).Info("Job disabled")
		return nil
	}
	if _, err := s.Cron.AddFunc(schedule, job); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, schedule, err)
	}
	s.log.WithFields(logrus.Fields{"job": name, "schedule": schedule}).Info("Job scheduled")
	return nil
}

func (s *SchedulerService) Start() error {
	if s.sweeper != nil {
		if err := s.registerJob("session_sweep", s.cfg.SweepSchedule, func() { s.SweepSessions() }); err != nil {
			return err
		}
	}

	err := s.registerJob("backend_probe", s.cfg.ProbeSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		_ = s.ProbeBackend(ctx)
	})
	if err != nil {
		return err
	}

	s.Cron.Start()
	return nil
}

// Stop halts scheduling and waits for running jobs.
func (s *SchedulerService) Stop() {
	<-s.Cron.Stop().Done()
}

func (s *SchedulerService) SweepSessions() int {
	if s.sweeper == nil {
		return 0
	}
	n := s.sweeper.Sweep(s.sessionTTL)
	if n > 0 {
		s.log.WithField("removed", n).Info("[Cron] Idle sessions swept")
	}
	return n
}

// ProbeBackend checks the public ad list endpoint and records the result.
func (s *SchedulerService) ProbeBackend(ctx context.Context) error {
	_, err := s.api.ListAds(ctx)
	s.metrics.SetBackendUp(err == nil)
	if err != nil {
		s.log.WithError(err).Warn("[Cron] Backend probe failed")
		return err
	}
	s.log.Debug("[Cron] Backend probe ok")
	return nil
}
