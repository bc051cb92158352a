// Package persistence provides storage for the source registry, user topics,
// style samples, delivery logs and schedules.
package persistence

import (
	"context"
	"errors"
	"newsroom/internal/core"
	"time"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// TopicRepository handles topics and user subscriptions
type TopicRepository interface {
	// Create inserts a topic and sets its ID
	Create(ctx context.Context, topic *core.TopicContext) error

	// Subscribe links a user to a topic
	Subscribe(ctx context.Context, userID, topicID int64) error

	// ListForUser returns the topics a user is subscribed to, ordered by topic id
	ListForUser(ctx context.Context, userID int64) ([]core.TopicContext, error)
}

// SourceRepository handles the source registry
type SourceRepository interface {
	// Create inserts a source and sets its ID
	Create(ctx context.Context, source *core.Source) error

	// ListActiveByTopic returns the active sources registered for a topic
	ListActiveByTopic(ctx context.Context, topicID int64) ([]core.Source, error)

	// ListActiveByTopics returns the active sources of several topics, ordered by topic then id
	ListActiveByTopics(ctx context.Context, topicIDs []int64) ([]core.Source, error)

	// SetActive toggles a source
	SetActive(ctx context.Context, id int64, active bool) error
}

// StyleSampleRepository handles per-user writing samples
type StyleSampleRepository interface {
	// Create stores a sample text for a user
	Create(ctx context.Context, userID int64, text string, active bool) (int64, error)

	// ListActiveTexts returns the texts of the user's active samples in insertion order
	ListActiveTexts(ctx context.Context, userID int64) ([]string, error)
}

// DeliveryLogRepository handles delivery log persistence
type DeliveryLogRepository interface {
	// Create inserts a terminal delivery log entry
	Create(ctx context.Context, entry *core.DeliveryLog) error

	// Get retrieves an entry by ID
	Get(ctx context.Context, id string) (*core.DeliveryLog, error)

	// ListForUser returns the most recent entries for a user, newest first
	ListForUser(ctx context.Context, userID int64, limit int) ([]core.DeliveryLog, error)
}

// ScheduleRepository handles scheduled deliveries
type ScheduleRepository interface {
	// Create inserts a schedule and sets its ID
	Create(ctx context.Context, schedule *core.Schedule) error

	// Get retrieves a schedule by ID
	Get(ctx context.Context, id int64) (*core.Schedule, error)

	// ListDue returns active schedules whose next run is at or before now
	ListDue(ctx context.Context, now time.Time) ([]core.Schedule, error)

	// Claim moves an active schedule from previous to nextRun and active. It
	// reports false when the schedule no longer runs at previous, meaning another
	// pass already took this run.
	Claim(ctx context.Context, id int64, previous, nextRun time.Time, active bool) (bool, error)
}

// Repositories is the set of repositories shared by Database and Transaction
type Repositories interface {
	Topics() TopicRepository
	Sources() SourceRepository
	StyleSamples() StyleSampleRepository
	DeliveryLogs() DeliveryLogRepository
	Schedules() ScheduleRepository
}

// Database represents the main database interface that aggregates all repositories
type Database interface {
	Repositories

	// Migrate applies pending schema migrations
	Migrate(ctx context.Context) error

	// Close closes the database connection
	Close() error

	// Ping verifies the database connection
	Ping(ctx context.Context) error

	// BeginTx starts a new transaction
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	Repositories

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error
}
