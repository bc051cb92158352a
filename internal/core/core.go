package core

import (
	"strings"
	"time"
)

// MaxContentLength is the upper bound, in characters, of Article.Content.
const MaxContentLength = 1500

// SourceType identifies which adapter handles a source URL.
type SourceType string

const (
	SourceTypeAPI     SourceType = "API"
	SourceTypeReddit  SourceType = "REDDIT"
	SourceTypeArxiv   SourceType = "ARXIV"
	SourceTypeRSS     SourceType = "RSS"
	SourceTypeYouTube SourceType = "YOUTUBE"
)

// ParseSourceType normalizes a stored source type name.
func ParseSourceType(s string) (SourceType, bool) {
	switch t := SourceType(strings.ToUpper(strings.TrimSpace(s))); t {
	case SourceTypeAPI, SourceTypeReddit, SourceTypeArxiv, SourceTypeRSS, SourceTypeYouTube:
		return t, true
	default:
		return "", false
	}
}

// Source is a registered content source for a topic.
type Source struct {
	ID      int64      `json:"id"`       // Registry identifier
	TopicID int64      `json:"topic_id"` // Topic the source belongs to
	URL     string     `json:"url"`      // Endpoint fetched by the adapter
	Type    SourceType `json:"type"`     // Adapter selector
	Active  bool       `json:"active"`   // Inactive sources are never fetched
}

// Article is the normalized representation every adapter produces.
type Article struct {
	Source    string     `json:"source"`              // Canonical URL of the item
	Title     string     `json:"title"`               // Item title
	Content   string     `json:"content"`             // Body text, at most MaxContentLength characters
	Published *time.Time `json:"published,omitempty"` // Publication time when the source provides one
}

// TrendItem is one entry of a per-topic trend feed.
type TrendItem struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Link    string `json:"link"`
}

// TopicContext is a topic a user is subscribed to.
type TopicContext struct {
	TopicID   int64  `json:"topic_id"`
	TopicName string `json:"topic_name"`
}

// DeliveryStatus is the terminal outcome of a delivery.
type DeliveryStatus string

const (
	DeliveryStatusSuccess DeliveryStatus = "SUCCESS"
	DeliveryStatusFailed  DeliveryStatus = "FAILED"
)

// DeliveryLog records the outcome of one delivery attempt sequence.
type DeliveryLog struct {
	ID           string         `json:"id"`                      // Unique identifier for the entry
	UserID       int64          `json:"user_id"`                 // Owner of the newsletter
	ScheduleID   *int64         `json:"schedule_id,omitempty"`   // Set when produced by a scheduled run
	Recipient    string         `json:"recipient"`               // Destination address
	Message      string         `json:"message"`                 // Rendered artifact
	Status       DeliveryStatus `json:"status"`                  // SUCCESS or FAILED
	ErrorMessage string         `json:"error_message,omitempty"` // Last error when FAILED
	Timestamp    time.Time      `json:"timestamp"`               // When the outcome was recorded
}

// Frequency controls how a schedule advances after a run.
type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Schedule is a recurring (or one-time) newsletter delivery for a user.
type Schedule struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Recipient string    `json:"recipient"`
	Frequency Frequency `json:"frequency"`
	NextRun   time.Time `json:"next_run"`
	Active    bool      `json:"active"`
}

// Advance returns the next run time and whether the schedule stays active
// after the run that was due at s.NextRun.
func (s Schedule) Advance() (time.Time, bool) {
	switch s.Frequency {
	case FrequencyDaily:
		return s.NextRun.AddDate(0, 0, 1), true
	case FrequencyWeekly:
		return s.NextRun.AddDate(0, 0, 7), true
	case FrequencyMonthly:
		return s.NextRun.AddDate(0, 1, 0), true
	default:
		return s.NextRun, false
	}
}

// TruncateContent cuts s to MaxContentLength characters.
func TruncateContent(s string) string {
	return TruncateRunes(s, MaxContentLength)
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
