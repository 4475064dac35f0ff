package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richd0tcom/yaku/internal/domain"
	"github.com/richd0tcom/yaku/internal/metrics"
)

const DefaultInterval = 60 * time.Second

// Scheduler runs the pipeline back to back with a fixed pause after each tick.
type Scheduler struct {
	pipeline *Pipeline
	interval time.Duration
	failFast bool
	logger   logrus.FieldLogger

	// serializes scheduled and on-demand ticks
	mu sync.Mutex
}

func NewScheduler(pipeline *Pipeline, interval time.Duration, failFast bool, logger logrus.FieldLogger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scheduler{
		pipeline: pipeline,
		interval: interval,
		failFast: failFast,
		logger:   logger,
	}
}

// Run ticks immediately and then every interval after the previous tick finished.
// Tick errors are logged and the loop continues, unless fail-fast is set, in which
// case the first error is returned. Run returns nil when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Infof("Scheduler starting with interval %v", s.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-timer.C:
		}

		if _, err := s.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Info("Scheduler stopped")
				return nil
			}
			if s.failFast {
				return err
			}
		}
		timer.Reset(s.interval)
	}
}

// Tick runs one pipeline pass, logging and recording its outcome.
func (s *Scheduler) Tick(ctx context.Context) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	record, err := s.pipeline.RunOnce(ctx)
	duration := time.Since(start)

	if err != nil {
		stage := domain.Stage(err)
		metrics.ObserveTick(metrics.ResultError, stage, duration, start)
		entry := s.logger.WithError(err).WithField("stage", stage)
		if errors.Is(err, context.Canceled) {
			entry.Debug("Tick canceled")
		} else {
			entry.Error("Tick failed")
		}
		return nil, err
	}

	metrics.ObserveTick(metrics.ResultSuccess, "", duration, time.Now())
	s.logger.WithFields(logrus.Fields{
		"fields":   len(record),
		"duration": duration,
	}).Info("Record persisted")
	return record, nil
}
