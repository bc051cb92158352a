package delivery

import (
	"context"
	"errors"
	"fmt"
	"newsroom/internal/core"
	"strings"
	"testing"
	"time"
)

type flakyTransport struct {
	failures int
	calls    int
	ids      []string
}

func (f *flakyTransport) Send(ctx context.Context, msg Message) error {
	f.calls++
	f.ids = append(f.ids, msg.ID)
	if f.calls <= f.failures {
		return fmt.Errorf("smtp timeout %d", f.calls)
	}
	return nil
}

type memoryLog struct {
	entries []core.DeliveryLog
	err     error
}

func (m *memoryLog) Create(ctx context.Context, entry *core.DeliveryLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *entry)
	return nil
}

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestDeliverer(tr Transport, sl *recordingSleeper) *Deliverer {
	return NewDeliverer(tr).
		WithSleeper(sl.sleep).
		WithClock(func() time.Time { return fixedNow })
}

func TestBackoff(t *testing.T) {
	if Backoff(1) != 2*time.Second || Backoff(2) != 4*time.Second || Backoff(3) != 8*time.Second {
		t.Errorf("Unexpected backoff sequence: %v %v %v", Backoff(1), Backoff(2), Backoff(3))
	}
}

func TestDeliverSucceedsAfterRetries(t *testing.T) {
	tr := &flakyTransport{failures: 2}
	sl := &recordingSleeper{}
	logs := &memoryLog{}
	scheduleID := int64(9)

	entry, err := newTestDeliverer(tr, sl).Deliver(context.Background(), Message{
		UserID:     1,
		ScheduleID: &scheduleID,
		Recipient:  "reader@example.com",
		Subject:    "Digest",
		HTML:       "<p>hi</p>",
	}, logs)
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if tr.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", tr.calls)
	}
	if len(sl.waits) != 2 || sl.waits[0] != 2*time.Second || sl.waits[1] != 4*time.Second {
		t.Errorf("Unexpected waits: %v", sl.waits)
	}
	if len(logs.entries) != 1 {
		t.Fatalf("Expected exactly one log entry, got %d", len(logs.entries))
	}

	got := logs.entries[0]
	if got.Status != core.DeliveryStatusSuccess || got.ErrorMessage != "" {
		t.Errorf("Unexpected entry: %+v", got)
	}
	if got.ID == "" || got.ID != entry.ID {
		t.Errorf("Returned entry should match the logged one")
	}
	if got.ScheduleID == nil || *got.ScheduleID != 9 {
		t.Errorf("Expected schedule id to be recorded")
	}
	if !got.Timestamp.Equal(fixedNow) || got.Message != "<p>hi</p>" {
		t.Errorf("Unexpected timestamp or message: %+v", got)
	}
}

func TestDeliverFirstAttemptSuccessDoesNotSleep(t *testing.T) {
	tr := &flakyTransport{}
	sl := &recordingSleeper{}
	logs := &memoryLog{}

	if _, err := newTestDeliverer(tr, sl).Deliver(context.Background(), Message{Recipient: "a@b.c"}, logs); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if tr.calls != 1 || len(sl.waits) != 0 || len(logs.entries) != 1 {
		t.Errorf("calls=%d waits=%v entries=%d", tr.calls, sl.waits, len(logs.entries))
	}
}

func TestDeliverFailsAfterMaxAttempts(t *testing.T) {
	tr := &flakyTransport{failures: 10}
	sl := &recordingSleeper{}
	logs := &memoryLog{}

	entry, err := newTestDeliverer(tr, sl).Deliver(context.Background(), Message{Recipient: "a@b.c"}, logs)
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("Expected ErrDeliveryFailed, got %v", err)
	}
	if tr.calls != MaxAttempts {
		t.Errorf("Expected %d attempts, got %d", MaxAttempts, tr.calls)
	}
	if len(sl.waits) != 2 || sl.waits[0] != 2*time.Second || sl.waits[1] != 4*time.Second {
		t.Errorf("Unexpected waits: %v", sl.waits)
	}
	if len(logs.entries) != 1 {
		t.Fatalf("Expected exactly one log entry, got %d", len(logs.entries))
	}
	if logs.entries[0].Status != core.DeliveryStatusFailed {
		t.Errorf("Expected FAILED, got %s", logs.entries[0].Status)
	}
	if logs.entries[0].ErrorMessage != "smtp timeout 3" || entry.ErrorMessage != "smtp timeout 3" {
		t.Errorf("Expected last error recorded, got %q", logs.entries[0].ErrorMessage)
	}
}

func TestDeliverStopsWhenSleepInterrupted(t *testing.T) {
	tr := &flakyTransport{failures: 10}
	logs := &memoryLog{}
	d := NewDeliverer(tr).WithSleeper(func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	})

	_, err := d.Deliver(context.Background(), Message{Recipient: "a@b.c"}, logs)
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("Expected ErrDeliveryFailed, got %v", err)
	}
	if tr.calls != 1 {
		t.Errorf("Expected retries to stop after interruption, got %d calls", tr.calls)
	}
	if len(logs.entries) != 1 || logs.entries[0].Status != core.DeliveryStatusFailed {
		t.Errorf("Expected one FAILED entry, got %+v", logs.entries)
	}
}

func TestDeliverReportsLogWriteFailure(t *testing.T) {
	logs := &memoryLog{err: errors.New("disk full")}
	_, err := newTestDeliverer(&flakyTransport{}, &recordingSleeper{}).Deliver(context.Background(), Message{Recipient: "a@b.c"}, logs)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Expected log write error, got %v", err)
	}
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDeliverKeepsMessageIDAcrossRetries(t *testing.T) {
	tr := &flakyTransport{failures: 2}
	entry, err := newTestDeliverer(tr, &recordingSleeper{}).Deliver(context.Background(), Message{Recipient: "a@b.c"}, nil)
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if len(tr.ids) != 3 || tr.ids[0] == "" {
		t.Fatalf("Unexpected attempt ids %v", tr.ids)
	}
	if tr.ids[1] != tr.ids[0] || tr.ids[2] != tr.ids[0] {
		t.Errorf("Retries used different ids: %v", tr.ids)
	}
	if entry.ID != tr.ids[0] {
		t.Errorf("Log entry id %q does not match message id %q", entry.ID, tr.ids[0])
	}

	preset := &flakyTransport{}
	if _, err := newTestDeliverer(preset, &recordingSleeper{}).Deliver(context.Background(), Message{ID: "fixed", Recipient: "a@b.c"}, nil); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if preset.ids[0] != "fixed" {
		t.Errorf("Caller id was replaced: %q", preset.ids[0])
	}
}
