package scheduler

import (
	"context"
	"fmt"
	"time"

	"gym_notification_service/internal/app" // For ExpirationService interface
	"gym_notification_service/internal/infra/health"
	"gym_notification_service/internal/infra/metrics"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job names, used in logs and metrics labels.
const (
	JobDailyCheck     = "daily_expiration_check"
	JobKeepAliveCheck = "keep_alive_and_membership_check"
)

const (
	cycleTimeout     = 5 * time.Minute
	defaultStopGrace = 30 * time.Second
)

// PipelineScheduler drives the two timer jobs of the expiration pipeline:
// a daily check at a configured UTC time-of-day, and a short-interval
// keep-alive check that also re-runs detection. Each named job is wrapped
// in SkipIfStillRunning, so a tick that fires while the previous execution
// of the same job is still going is skipped; the two jobs may run
// concurrently with each other since a cycle is idempotent per day.
type PipelineScheduler struct {
	cronEngine *cron.Cron
	service    app.ExpirationService // Using the interface
	prober     *health.Prober
	metrics    *metrics.Pipeline
	logger     *logrus.Logger

	dailyHour         int
	dailyMinute       int
	keepAliveInterval time.Duration
	stopGrace         time.Duration

	// Built in Start; exposed as fields so tests can drive the wrapped
	// jobs directly.
	dailyJob     cron.Job
	keepAliveJob cron.Job
}

func NewPipelineScheduler(
	service app.ExpirationService,
	prober *health.Prober,
	m *metrics.Pipeline,
	logger *logrus.Logger,
	dailyHour, dailyMinute int,
	keepAliveInterval time.Duration,
) *PipelineScheduler {
	return &PipelineScheduler{
		cronEngine:        cron.New(cron.WithLocation(time.UTC)), // All schedule math in UTC
		service:           service,
		prober:            prober,
		metrics:           m,
		logger:            logger,
		dailyHour:         dailyHour,
		dailyMinute:       dailyMinute,
		keepAliveInterval: keepAliveInterval,
		stopGrace:         defaultStopGrace,
	}
}

func (s *PipelineScheduler) Start() error {
	s.logger.Info("Starting pipeline scheduler...")
	cronLog := &cronLogrusAdapter{logger: s.logger}

	s.dailyJob = cron.NewChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	).Then(cron.FuncJob(func() {
		s.logger.WithField("job", JobDailyCheck).Info("Cron job triggered")
		s.runCycle(JobDailyCheck)
	}))

	dailySpec := fmt.Sprintf("%d %d * * *", s.dailyMinute, s.dailyHour)
	if _, err := s.cronEngine.AddJob(dailySpec, s.dailyJob); err != nil {
		return fmt.Errorf("could not add daily check job: %w", err)
	}

	s.keepAliveJob = cron.NewChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	).Then(cron.FuncJob(func() {
		s.logger.WithField("job", JobKeepAliveCheck).Debug("Cron job triggered")
		s.runKeepAlive()
	}))

	keepAliveSpec := fmt.Sprintf("@every %s", s.keepAliveInterval)
	if _, err := s.cronEngine.AddJob(keepAliveSpec, s.keepAliveJob); err != nil {
		return fmt.Errorf("could not add keep-alive job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"daily_check":        fmt.Sprintf("%02d:%02d UTC", s.dailyHour, s.dailyMinute),
		"keepalive_interval": s.keepAliveInterval.String(),
	}).Info("Pipeline scheduler started")
	return nil
}

// runCycle executes one detection cycle for today's UTC date. Errors stay
// at the job boundary: they are logged with the job name and the next tick
// proceeds normally.
func (s *PipelineScheduler) runCycle(jobName string) {
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	summary, err := s.service.RunCycle(ctx, time.Now().UTC())
	if err != nil {
		s.logger.WithField("job", jobName).WithError(err).Error("Expiration cycle failed")
		if s.metrics != nil {
			s.metrics.CycleRuns.WithLabelValues(jobName, "error").Inc()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.CycleRuns.WithLabelValues(jobName, "ok").Inc()
	}
	s.logger.WithFields(logrus.Fields{
		"job":     jobName,
		"expired": summary.ExpiredMembers,
		"created": summary.NotificationsCreated,
	}).Info("Cycle finished")
}

// runKeepAlive pings the health endpoint first, then runs a regular cycle.
// The ping keeps the hosting process warm; the cycle means an expiration is
// noticed within the keep-alive interval rather than only at the daily run.
func (s *PipelineScheduler) runKeepAlive() {
	if s.prober != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		s.prober.Ping(ctx)
		cancel()
	}
	s.runCycle(JobKeepAliveCheck)
}

// Stop halts new triggers immediately and waits for any running job, up to
// the grace period. A job that overruns the grace period is abandoned; its
// row writes are individually atomic, so partial progress stays valid.
func (s *PipelineScheduler) Stop() {
	s.logger.Info("Stopping pipeline scheduler...")
	ctx := s.cronEngine.Stop()
	select {
	case <-ctx.Done():
		s.logger.Info("Pipeline scheduler gracefully stopped")
	case <-time.After(s.stopGrace):
		s.logger.Warn("Grace period elapsed with a job still running; abandoning it")
	}
}

// cronLogrusAdapter lets the cron wrappers (Recover, SkipIfStillRunning)
// log through the service logger.
type cronLogrusAdapter struct {
	logger *logrus.Logger
}

func (a *cronLogrusAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.WithField("cron", keysAndValues).Debug(msg)
}

func (a *cronLogrusAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.WithField("cron", keysAndValues).WithError(err).Error(msg)
}
