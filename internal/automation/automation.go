// Package automation runs scheduled jobs against the workspace and keeps a
// history of every run in the database.
package automation

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/db"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/logging"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/ops"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
)

// JobFormReminders is the job name recorded for intake form reminder runs.
const JobFormReminders = "form_reminders"

// jobMu serializes job runs across every Runner in the process: the
// scheduler, the API, the MCP server and the CLI each build their own.
var jobMu sync.Mutex

// Runner executes jobs once and records each run.
type Runner struct {
	db  *sql.DB
	st  *store.Store
	log *logrus.Entry

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewRunner returns a Runner writing its history to database.
func NewRunner(database *sql.DB, st *store.Store) *Runner {
	return &Runner{
		db:      database,
		st:      st,
		log:     logging.NewLogger("automation"),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Scheduler owns the cron loop for a workspace.
type Scheduler struct {
	*Runner
	cron     *cron.Cron
	lead     time.Duration
	schedule string
}

// New builds a scheduler from cfg. The reminder schedule is a standard
// five-field cron spec; an empty spec disables the job.
func New(database *sql.DB, st *store.Store, cfg *config.Config) (*Scheduler, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if cfg.ReminderLeadHours < 0 {
		return nil, errors.NewInvalidRequest("reminder_lead_hours must not be negative")
	}

	runner := NewRunner(database, st)
	s := &Scheduler{
		Runner:   runner,
		cron:     cron.New(cron.WithLogger(cronLogger{runner.log})),
		lead:     time.Duration(cfg.ReminderLeadHours) * time.Hour,
		schedule: strings.TrimSpace(cfg.ReminderSchedule),
	}

	if s.schedule != "" {
		if _, err := cron.ParseStandard(s.schedule); err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid reminder_schedule %q: %v", s.schedule, err))
		}
		if _, err := s.cron.AddFunc(s.schedule, s.runScheduled); err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	if s.schedule == "" {
		s.log.Info("reminder job disabled")
		return
	}
	s.log.WithField("schedule", s.schedule).Info("scheduler started")
}

// Stop halts the scheduler and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

// Next returns the next time the reminder job fires. It is zero when the job
// is disabled or the scheduler has not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) runScheduled() {
	if _, _, err := s.RunFormReminders(context.Background()); err != nil {
		s.log.WithError(err).Error("form reminder run failed")
	}
}

// RunFormReminders runs the reminder job with the configured lead time.
func (s *Scheduler) RunFormReminders(ctx context.Context) (*db.AutomationRun, *ops.SendFormRemindersOutput, error) {
	return s.Runner.FormReminders(ctx, s.lead)
}

// FormReminders sends due intake form reminders once and records the run.
// A zero lead uses the default. A failed run is still recorded, with its error.
func (s *Runner) FormReminders(ctx context.Context, lead time.Duration) (*db.AutomationRun, *ops.SendFormRemindersOutput, error) {
	jobMu.Lock()
	defer jobMu.Unlock()

	started := time.Now()
	out, runErr := ops.SendFormReminders(ctx, s.st, ops.SendFormRemindersInput{Lead: lead})

	run := &db.AutomationRun{
		ID:         s.newID(started),
		Job:        JobFormReminders,
		StartedAt:  started.Unix(),
		FinishedAt: time.Now().Unix(),
	}
	if out != nil {
		run.Affected = len(out.Reminded)
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	if err := db.InsertAutomationRun(s.db, run); err != nil {
		s.log.WithError(err).Error("failed to record automation run")
		if runErr == nil {
			return run, out, err
		}
	}

	fields := logrus.Fields{"job": run.Job, "affected": run.Affected}
	if out != nil && out.Skipped != "" {
		fields["skipped"] = out.Skipped
	}
	s.log.WithFields(fields).Info("automation run finished")
	return run, out, runErr
}

func (s *Runner) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// History lists recorded runs of job, newest first. An empty job lists all jobs.
func History(database *sql.DB, job string, limit int) ([]db.AutomationRun, error) {
	return db.ListAutomationRuns(database, strings.TrimSpace(job), limit)
}

// cronLogger routes cron's own messages into logrus.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(kvFields(keysAndValues)).Error(msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
