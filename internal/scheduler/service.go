package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/mhosigiri/FeedbackAI/internal/config"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DigestRunner builds and sends the periodic CSI digest
type DigestRunner interface {
	RunDigest(ctx context.Context, period string) error
}

// QueuePoller checks the unresolved queue for new escalated cases
type QueuePoller interface {
	Poll(ctx context.Context) ([]models.Alert, error)
}

// PendingSweeper re-enqueues submissions whose classification never landed
type PendingSweeper interface {
	SweepPending(ctx context.Context) (int, error)
}

// Service handles scheduling of background jobs
type Service struct {
	config  *config.Config
	digest  DigestRunner
	poller  QueuePoller
	sweeper PendingSweeper
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewService creates a new scheduler service; any job dependency may be nil
func NewService(cfg *config.Config, digest DigestRunner, poller QueuePoller, sweeper PendingSweeper) (*Service, error) {
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.TimeZone, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		config:  cfg,
		digest:  digest,
		poller:  poller,
		sweeper: sweeper,
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(location)),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// DigestSchedule returns the cron expression for a report schedule, or ""
// when digests are off
func DigestSchedule(schedule string) string {
	switch schedule {
	case "daily":
		// Run daily at 9 AM
		return "0 0 9 * * *"
	case "weekly":
		// Run weekly on Monday at 9 AM
		return "0 0 9 * * MON"
	}
	return ""
}

// Start registers every configured job and starts the cron runner
func (s *Service) Start() error {
	if expr := DigestSchedule(s.config.ReportSchedule); expr != "" && s.digest != nil {
		period := s.config.ReportSchedule
		if _, err := s.cron.AddFunc(expr, func() {
			logrus.Infof("Starting scheduled %s digest", period)
			if err := s.digest.RunDigest(s.ctx, period); err != nil {
				logrus.Errorf("Scheduled digest failed: %v", err)
			}
		}); err != nil {
			return err
		}
	}

	if s.poller != nil {
		if _, err := s.cron.AddFunc(every(s.config.PollInterval), s.poll); err != nil {
			return err
		}
		// prime the seen set so cases open before startup do not alert
		go s.poll()
	}

	if s.sweeper != nil && s.config.SweepInterval > 0 {
		if _, err := s.cron.AddFunc(every(s.config.SweepInterval), s.sweep); err != nil {
			return err
		}
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s digest schedule (queue poll every %s, pending sweep every %s)",
		s.config.ReportSchedule, s.config.PollInterval, s.config.SweepInterval)
	return nil
}

func (s *Service) poll() {
	if _, err := s.poller.Poll(s.ctx); err != nil {
		logrus.Errorf("Unresolved queue poll failed: %v", err)
	}
}

func (s *Service) sweep() {
	if _, err := s.sweeper.SweepPending(s.ctx); err != nil {
		logrus.Errorf("Pending submission sweep failed: %v", err)
	}
}

// Jobs returns the number of registered jobs
func (s *Service) Jobs() int {
	return len(s.cron.Entries())
}

// Stop stops the scheduler and waits for running jobs
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cancel()
		logrus.Info("Scheduler stopped")
	}
}

func every(d time.Duration) string {
	return "@every " + d.String()
}
