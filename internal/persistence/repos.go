package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"newsroom/internal/core"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// topicRepo implements TopicRepository
type topicRepo struct{ repo }

func (r *topicRepo) Create(ctx context.Context, topic *core.TopicContext) error {
	id, err := r.insertReturningID(ctx, r.sb.Insert("topics").
		Columns("name").
		Values(topic.TopicName))
	if err != nil {
		return fmt.Errorf("failed to create topic %q: %w", topic.TopicName, err)
	}
	topic.TopicID = id
	return nil
}

func (r *topicRepo) Subscribe(ctx context.Context, userID, topicID int64) error {
	_, err := r.exec(ctx, r.sb.Insert("user_topics").
		Columns("user_id", "topic_id").
		Values(userID, topicID).
		Suffix("ON CONFLICT (user_id, topic_id) DO NOTHING"))
	if err != nil {
		return fmt.Errorf("failed to subscribe user %d to topic %d: %w", userID, topicID, err)
	}
	return nil
}

func (r *topicRepo) ListForUser(ctx context.Context, userID int64) ([]core.TopicContext, error) {
	rows, err := r.queryRows(ctx, r.sb.Select("t.id", "t.name").
		From("topics t").
		Join("user_topics ut ON ut.topic_id = t.id").
		Where(sq.Eq{"ut.user_id": userID}).
		OrderBy("t.id"))
	if err != nil {
		return nil, fmt.Errorf("failed to list topics for user %d: %w", userID, err)
	}
	defer rows.Close()

	topics := []core.TopicContext{}
	for rows.Next() {
		var t core.TopicContext
		if err := rows.Scan(&t.TopicID, &t.TopicName); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// sourceRepo implements SourceRepository
type sourceRepo struct{ repo }

var sourceColumns = []string{"id", "topic_id", "url", "type", "active"}

func (r *sourceRepo) Create(ctx context.Context, source *core.Source) error {
	id, err := r.insertReturningID(ctx, r.sb.Insert("sources").
		Columns("topic_id", "url", "type", "active").
		Values(source.TopicID, source.URL, string(source.Type), source.Active))
	if err != nil {
		return fmt.Errorf("failed to create source %s: %w", source.URL, err)
	}
	source.ID = id
	return nil
}

func (r *sourceRepo) ListActiveByTopic(ctx context.Context, topicID int64) ([]core.Source, error) {
	return r.ListActiveByTopics(ctx, []int64{topicID})
}

func (r *sourceRepo) ListActiveByTopics(ctx context.Context, topicIDs []int64) ([]core.Source, error) {
	if len(topicIDs) == 0 {
		return []core.Source{}, nil
	}

	rows, err := r.queryRows(ctx, r.sb.Select(sourceColumns...).
		From("sources").
		Where(sq.Eq{"topic_id": topicIDs, "active": true}).
		OrderBy("topic_id", "id"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	sources := []core.Source{}
	for rows.Next() {
		var (
			s       core.Source
			rawType string
		)
		if err := rows.Scan(&s.ID, &s.TopicID, &s.URL, &rawType, &s.Active); err != nil {
			return nil, err
		}
		// Unknown types are kept verbatim; the aggregator skips them.
		if t, ok := core.ParseSourceType(rawType); ok {
			s.Type = t
		} else {
			s.Type = core.SourceType(rawType)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (r *sourceRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.exec(ctx, r.sb.Update("sources").
		Set("active", active).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to update source %d: %w", id, err)
	}
	return expectOne(res)
}

// styleSampleRepo implements StyleSampleRepository
type styleSampleRepo struct{ repo }

func (r *styleSampleRepo) Create(ctx context.Context, userID int64, text string, active bool) (int64, error) {
	id, err := r.insertReturningID(ctx, r.sb.Insert("style_samples").
		Columns("user_id", "text", "active", "created_at").
		Values(userID, text, active, time.Now().UTC()))
	if err != nil {
		return 0, fmt.Errorf("failed to create style sample: %w", err)
	}
	return id, nil
}

func (r *styleSampleRepo) ListActiveTexts(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.queryRows(ctx, r.sb.Select("text").
		From("style_samples").
		Where(sq.Eq{"user_id": userID, "active": true}).
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to list style samples for user %d: %w", userID, err)
	}
	defer rows.Close()

	texts := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

// deliveryLogRepo implements DeliveryLogRepository
type deliveryLogRepo struct{ repo }

var deliveryLogColumns = []string{"id", "user_id", "schedule_id", "recipient", "message", "status", "error_message", "created_at"}

func (r *deliveryLogRepo) Create(ctx context.Context, entry *core.DeliveryLog) error {
	var scheduleID sql.NullInt64
	if entry.ScheduleID != nil {
		scheduleID = sql.NullInt64{Int64: *entry.ScheduleID, Valid: true}
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := r.exec(ctx, r.sb.Insert("delivery_logs").
		Columns(deliveryLogColumns...).
		Values(entry.ID, entry.UserID, scheduleID, entry.Recipient, entry.Message,
			string(entry.Status), entry.ErrorMessage, ts.UTC()))
	if err != nil {
		return fmt.Errorf("failed to create delivery log %s: %w", entry.ID, err)
	}
	return nil
}

func (r *deliveryLogRepo) Get(ctx context.Context, id string) (*core.DeliveryLog, error) {
	row, err := r.queryRow(ctx, r.sb.Select(deliveryLogColumns...).
		From("delivery_logs").
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	entry, err := scanDeliveryLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery log %s: %w", id, err)
	}
	return entry, nil
}

func (r *deliveryLogRepo) ListForUser(ctx context.Context, userID int64, limit int) ([]core.DeliveryLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.queryRows(ctx, r.sb.Select(deliveryLogColumns...).
		From("delivery_logs").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery logs for user %d: %w", userID, err)
	}
	defer rows.Close()

	entries := []core.DeliveryLog{}
	for rows.Next() {
		entry, err := scanDeliveryLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDeliveryLog(row scanner) (*core.DeliveryLog, error) {
	var (
		entry      core.DeliveryLog
		scheduleID sql.NullInt64
		status     string
	)
	if err := row.Scan(&entry.ID, &entry.UserID, &scheduleID, &entry.Recipient, &entry.Message,
		&status, &entry.ErrorMessage, &entry.Timestamp); err != nil {
		return nil, err
	}
	if scheduleID.Valid {
		id := scheduleID.Int64
		entry.ScheduleID = &id
	}
	entry.Status = core.DeliveryStatus(status)
	entry.Timestamp = entry.Timestamp.UTC()
	return &entry, nil
}

// scheduleRepo implements ScheduleRepository
type scheduleRepo struct{ repo }

var scheduleColumns = []string{"id", "user_id", "recipient", "frequency", "next_run", "active"}

func (r *scheduleRepo) Create(ctx context.Context, schedule *core.Schedule) error {
	id, err := r.insertReturningID(ctx, r.sb.Insert("schedules").
		Columns("user_id", "recipient", "frequency", "next_run", "active").
		Values(schedule.UserID, schedule.Recipient, string(schedule.Frequency), schedule.NextRun.UTC(), schedule.Active))
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	schedule.ID = id
	return nil
}

func (r *scheduleRepo) Get(ctx context.Context, id int64) (*core.Schedule, error) {
	row, err := r.queryRow(ctx, r.sb.Select(scheduleColumns...).
		From("schedules").
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	schedule, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule %d: %w", id, err)
	}
	return schedule, nil
}

func (r *scheduleRepo) ListDue(ctx context.Context, now time.Time) ([]core.Schedule, error) {
	rows, err := r.queryRows(ctx, r.sb.Select(scheduleColumns...).
		From("schedules").
		Where(sq.Eq{"active": true}).
		Where(sq.LtOrEq{"next_run": now.UTC()}).
		OrderBy("next_run", "id"))
	if err != nil {
		return nil, fmt.Errorf("failed to list due schedules: %w", err)
	}
	defer rows.Close()

	schedules := []core.Schedule{}
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *schedule)
	}
	return schedules, rows.Err()
}

func (r *scheduleRepo) Claim(ctx context.Context, id int64, previous, nextRun time.Time, active bool) (bool, error) {
	res, err := r.exec(ctx, r.sb.Update("schedules").
		Set("next_run", nextRun.UTC()).
		Set("active", active).
		Where(sq.Eq{"id": id, "next_run": previous.UTC(), "active": true}))
	if err != nil {
		return false, fmt.Errorf("failed to claim schedule %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim schedule %d: %w", id, err)
	}
	return n == 1, nil
}

func scanSchedule(row scanner) (*core.Schedule, error) {
	var (
		s         core.Schedule
		frequency string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Recipient, &frequency, &s.NextRun, &s.Active); err != nil {
		return nil, err
	}
	s.Frequency = core.Frequency(frequency)
	s.NextRun = s.NextRun.UTC()
	return &s, nil
}
