// Package delivery sends rendered newsletters with bounded retry and records
// exactly one terminal delivery log entry per send.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"newsroom/internal/core"
	"newsroom/internal/logger"
	"time"

	"github.com/google/uuid"
)

// MaxAttempts is the number of send attempts before giving up.
const MaxAttempts = 3

// ErrDeliveryFailed is returned when every attempt failed.
var ErrDeliveryFailed = errors.New("delivery failed")

// Message is one newsletter to send.
type Message struct {
	ID         string // Set by Deliver when empty; stable across retries
	UserID     int64
	ScheduleID *int64
	Recipient  string
	Subject    string
	HTML       string
}

// Transport sends a message over some channel (SMTP, HTTP API, ...).
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// LogWriter persists delivery log entries.
type LogWriter interface {
	Create(ctx context.Context, entry *core.DeliveryLog) error
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff returns the wait after failed attempt n (1-based): 2^n seconds.
func Backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// Deliverer applies the retry contract around a Transport.
type Deliverer struct {
	transport Transport
	sleep     Sleeper
	now       func() time.Time
	log       *slog.Logger
}

// NewDeliverer creates a Deliverer using real sleeps and the wall clock.
func NewDeliverer(transport Transport) *Deliverer {
	return &Deliverer{
		transport: transport,
		sleep:     SleepContext,
		now:       time.Now,
		log:       logger.Get(),
	}
}

// WithSleeper replaces the backoff sleeper, mostly for tests.
func (d *Deliverer) WithSleeper(s Sleeper) *Deliverer {
	d.sleep = s
	return d
}

// WithClock replaces the clock used for log timestamps.
func (d *Deliverer) WithClock(now func() time.Time) *Deliverer {
	d.now = now
	return d
}

// Deliver sends msg with up to MaxAttempts attempts, sleeping 2^n seconds after failed
// attempt n when another attempt follows. It writes one SUCCESS entry on the first
// success, or one FAILED entry with the last error after all attempts fail, and
// returns that entry. Failed attempts are not logged individually.
func (d *Deliverer) Deliver(ctx context.Context, msg Message, logs LogWriter) (core.DeliveryLog, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	var lastErr error

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		lastErr = d.transport.Send(ctx, msg)
		if lastErr == nil {
			d.log.Info("Newsletter delivered", "recipient", msg.Recipient, "attempt", attempt)
			entry := d.entry(msg, core.DeliveryStatusSuccess, "")
			return entry, d.write(ctx, logs, &entry)
		}

		d.log.Warn("Delivery attempt failed", "recipient", msg.Recipient, "attempt", attempt, "error", lastErr)

		if attempt == MaxAttempts {
			break
		}
		if err := d.sleep(ctx, Backoff(attempt)); err != nil {
			d.log.Warn("Delivery retries interrupted", "recipient", msg.Recipient, "error", err)
			break
		}
	}

	entry := d.entry(msg, core.DeliveryStatusFailed, lastErr.Error())
	if err := d.write(ctx, logs, &entry); err != nil {
		return entry, errors.Join(fmt.Errorf("%w: %w", ErrDeliveryFailed, lastErr), err)
	}
	return entry, fmt.Errorf("%w: %w", ErrDeliveryFailed, lastErr)
}

func (d *Deliverer) entry(msg Message, status core.DeliveryStatus, errMsg string) core.DeliveryLog {
	return core.DeliveryLog{
		ID:           msg.ID,
		UserID:       msg.UserID,
		ScheduleID:   msg.ScheduleID,
		Recipient:    msg.Recipient,
		Message:      msg.HTML,
		Status:       status,
		ErrorMessage: errMsg,
		Timestamp:    d.now().UTC(),
	}
}

// write persists the terminal entry even if ctx was cancelled during retries.
func (d *Deliverer) write(ctx context.Context, logs LogWriter, entry *core.DeliveryLog) error {
	if logs == nil {
		return nil
	}
	if err := logs.Create(context.WithoutCancel(ctx), entry); err != nil {
		d.log.Error("Failed to write delivery log", "recipient", entry.Recipient, "status", entry.Status, "error", err)
		return fmt.Errorf("failed to write delivery log: %w", err)
	}
	return nil
}
