package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/electricity-weather-aggregation/internal/energy"
)

// Syncer runs one weather reconciliation pass.
type Syncer interface {
	SyncWeatherData(ctx context.Context) energy.SyncReport
}

// Config controls when reconciliation passes run.
type Config struct {
	// Interval between passes; the first pass runs on Start.
	Interval time.Duration
	// Cron, when set, replaces Interval with a 5-field cron expression.
	Cron string
	// PassTimeout bounds a single pass. Zero means no deadline.
	PassTimeout time.Duration
}

// Scheduler periodically reconciles weather data with stored prices.
type Scheduler struct {
	scheduler *gocron.Scheduler
	syncer    Syncer
	cfg       Config
	log       *zap.Logger
}

// New creates a new Scheduler.
func New(cfg Config, syncer Syncer, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	// A pass still running when the next one is due delays it rather than overlapping.
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		syncer:    syncer,
		cfg:       cfg,
		log:       log.Named("scheduler"),
	}
}

// Start schedules the reconciliation job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	var err error
	if s.cfg.Cron != "" {
		_, err = s.scheduler.Cron(s.cfg.Cron).Do(s.run)
		s.log.Info("weather sync scheduled", zap.String("cron", s.cfg.Cron))
	} else {
		interval := s.cfg.Interval
		if interval <= 0 {
			interval = time.Minute
		}
		_, err = s.scheduler.Every(interval).Do(s.run)
		s.log.Info("weather sync scheduled", zap.Duration("interval", interval))
	}
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run() {
	ctx := context.Background()
	if s.cfg.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PassTimeout)
		defer cancel()
	}

	report := s.syncer.SyncWeatherData(ctx)
	if report.Aborted() {
		s.log.Warn("weather sync pass aborted", zap.String("pass_id", report.PassID), zap.Error(report.Err))
		return
	}
	s.log.Debug("weather sync pass finished",
		zap.String("pass_id", report.PassID),
		zap.Int("dates", len(report.Results)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
