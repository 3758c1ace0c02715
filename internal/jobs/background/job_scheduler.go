package background

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"agencydesk/internal/repositories"

	"github.com/go-co-op/gocron/v2"
)

const (
	jobTimeout         = 30 * time.Second
	auditPruneInterval = 24 * time.Hour
)

// AuditPruner deletes audit entries past their retention window.
type AuditPruner interface {
	Prune(ctx context.Context) (int64, error)
}

// JobScheduler runs periodic maintenance jobs
type JobScheduler struct {
	scheduler     gocron.Scheduler
	sessions      repositories.SessionRepository
	audits        AuditPruner
	sweepInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger
	jobs          map[string]gocron.Job
	mu            sync.RWMutex
}

// NewJobScheduler creates a scheduler with the session sweep registered. The audit
// prune job is registered only when audits is non-nil.
func NewJobScheduler(sessions repositories.SessionRepository, audits AuditPruner, sweepInterval time.Duration, now func() time.Time, logger *slog.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	js := &JobScheduler{
		scheduler:     scheduler,
		sessions:      sessions,
		audits:        audits,
		sweepInterval: sweepInterval,
		now:           now,
		logger:        logger.With("component", "jobs"),
		jobs:          make(map[string]gocron.Job),
	}
	if err := js.registerJobs(); err != nil {
		return nil, err
	}
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.logger.Info("starting background jobs", "count", len(js.jobs))
	js.scheduler.Start()
}

// Stop waits for running jobs and stops the scheduler
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background jobs")
	return js.scheduler.Shutdown()
}

// JobNames lists registered jobs.
func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()
	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return names
}

func (js *JobScheduler) registerJobs() error {
	if err := js.addJob("session-sweep", js.sweepInterval, js.runSessionSweep); err != nil {
		return err
	}
	if js.audits != nil {
		if err := js.addJob("audit-prune", auditPruneInterval, js.runAuditPrune); err != nil {
			return err
		}
	}
	return nil
}

func (js *JobScheduler) addJob(name string, every time.Duration, task func()) error {
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create %s job: %w", name, err)
	}

	js.mu.Lock()
	js.jobs[name] = job
	js.mu.Unlock()
	return nil
}

func (js *JobScheduler) runSessionSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := js.SweepExpiredSessions(ctx); err != nil {
		js.logger.Error("session sweep failed", "error", err)
	}
}

func (js *JobScheduler) runAuditPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	removed, err := js.audits.Prune(ctx)
	if err != nil {
		js.logger.Error("audit prune failed", "error", err)
		return
	}
	if removed > 0 {
		js.logger.Info("old audit entries removed", "count", removed)
	}
}

// SweepExpiredSessions deletes every session whose refresh window has closed.
func (js *JobScheduler) SweepExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := js.sessions.DeleteExpired(ctx, js.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		js.logger.Info("expired sessions removed", "count", removed)
	}
	return removed, nil
}
