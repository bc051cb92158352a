// Package schedule runs due newsletter schedules. Each run is claimed before it is
// generated and delivered, so a run is sent at most once even when passes overlap.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"newsroom/internal/core"
	"newsroom/internal/delivery"
	"newsroom/internal/logger"
	"newsroom/internal/persistence"
	"newsroom/internal/pipeline"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Generator produces a newsletter for a user.
type Generator interface {
	Generate(ctx context.Context, userID int64) (*pipeline.Newsletter, error)
}

// Deliverer sends a message and returns the terminal log entry without persisting
// it when logs is nil.
type Deliverer interface {
	Deliver(ctx context.Context, msg delivery.Message, logs delivery.LogWriter) (core.DeliveryLog, error)
}

// DefaultPassTimeout bounds one RunDue pass.
const DefaultPassTimeout = 30 * time.Minute

// ErrPassInProgress is returned by RunDue when another pass of the same Runner
// has not finished yet.
var ErrPassInProgress = errors.New("schedule pass already in progress")

// Summary reports one RunDue pass.
type Summary struct {
	Due       int
	Delivered int
	Failed    int
	Skipped   int // claimed by another pass or process
}

// Runner processes due schedules sequentially. Only one pass runs at a time.
type Runner struct {
	db          persistence.Database
	generator   Generator
	deliverer   Deliverer
	now         func() time.Time
	passTimeout time.Duration
	running     sync.Mutex
	log         *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(db persistence.Database, generator Generator, deliverer Deliverer) *Runner {
	return &Runner{
		db:          db,
		generator:   generator,
		deliverer:   deliverer,
		now:         time.Now,
		passTimeout: DefaultPassTimeout,
		log:         logger.Get(),
	}
}

// WithClock replaces the clock used to find due schedules.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// WithPassTimeout replaces the deadline applied to each pass. Zero disables it.
func (r *Runner) WithPassTimeout(d time.Duration) *Runner {
	r.passTimeout = d
	return r
}

// RunDue processes every active schedule whose next run has passed. A failure to
// record one schedule does not stop the others; those errors are joined. An
// overlapping call returns ErrPassInProgress without touching any schedule.
func (r *Runner) RunDue(ctx context.Context) (Summary, error) {
	if !r.running.TryLock() {
		r.log.Info("Schedule pass already running, skipping")
		return Summary{}, ErrPassInProgress
	}
	defer r.running.Unlock()

	if r.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.passTimeout)
		defer cancel()
	}

	now := r.now()
	due, err := r.db.Schedules().ListDue(ctx, now)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list due schedules: %w", err)
	}

	summary := Summary{Due: len(due)}
	if len(due) == 0 {
		r.log.Debug("No schedules due")
		return summary, nil
	}
	r.log.Info("Processing due schedules", "count", len(due))

	var errs []error
	for _, s := range due {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		next, active := NextRun(s, now)
		claimed, err := r.db.Schedules().Claim(ctx, s.ID, s.NextRun, next, active)
		if err != nil {
			r.log.Error("Failed to claim schedule", "schedule_id", s.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		if !claimed {
			r.log.Info("Schedule run already claimed, skipping", "schedule_id", s.ID)
			summary.Skipped++
			continue
		}
		r.log.Debug("Schedule claimed", "schedule_id", s.ID, "next_run", next, "active", active)

		entry := r.produce(ctx, s)
		if err := r.record(ctx, s.ID, entry); err != nil {
			r.log.Error("Failed to record schedule run", "schedule_id", s.ID, "error", err)
			errs = append(errs, err)
			continue
		}

		if entry.Status == core.DeliveryStatusSuccess {
			summary.Delivered++
		} else {
			summary.Failed++
		}
	}

	r.log.Info("Schedule pass completed", "due", summary.Due, "delivered", summary.Delivered,
		"failed", summary.Failed, "skipped", summary.Skipped)
	return summary, errors.Join(errs...)
}

// produce generates and delivers one schedule's newsletter and returns the
// terminal log entry. Generation failure yields a FAILED entry without delivery.
func (r *Runner) produce(ctx context.Context, s core.Schedule) core.DeliveryLog {
	scheduleID := s.ID

	newsletter, err := r.generator.Generate(ctx, s.UserID)
	if err != nil {
		r.log.Error("Newsletter generation failed", "schedule_id", s.ID, "user_id", s.UserID, "error", err)
		return core.DeliveryLog{
			ID:           uuid.NewString(),
			UserID:       s.UserID,
			ScheduleID:   &scheduleID,
			Recipient:    s.Recipient,
			Status:       core.DeliveryStatusFailed,
			ErrorMessage: err.Error(),
			Timestamp:    r.now().UTC(),
		}
	}

	entry, err := r.deliverer.Deliver(ctx, delivery.Message{
		UserID:     s.UserID,
		ScheduleID: &scheduleID,
		Recipient:  s.Recipient,
		Subject:    newsletter.Subject,
		HTML:       newsletter.HTML,
	}, nil)
	if err != nil {
		r.log.Warn("Scheduled delivery failed", "schedule_id", s.ID, "error", err)
	}
	return entry
}

// record writes the terminal entry. The schedule was already advanced by its claim.
func (r *Runner) record(ctx context.Context, scheduleID int64, entry core.DeliveryLog) error {
	// Recording must survive a cancellation that arrived during delivery.
	ctx = context.WithoutCancel(ctx)

	if err := r.db.DeliveryLogs().Create(ctx, &entry); err != nil {
		return fmt.Errorf("failed to record delivery for schedule %d: %w", scheduleID, err)
	}
	return nil
}

// NextRun advances s past now, skipping periods that were missed while the
// process was down. One-time schedules are deactivated.
func NextRun(s core.Schedule, now time.Time) (time.Time, bool) {
	for {
		next, active := s.Advance()
		if !active || next.After(now) {
			return next, active
		}
		s.NextRun = next
	}
}

// Start runs RunDue immediately and then on every tick until ctx is done.
func (r *Runner) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("schedule interval must be positive, got %s", interval)
	}

	r.log.Info("Scheduler started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunDue(ctx); err != nil && ctx.Err() == nil && !errors.Is(err, ErrPassInProgress) {
			r.log.Error("Scheduled run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			r.log.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}
