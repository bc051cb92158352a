package core

import (
	"strings"
	"testing"
	"time"
)

func TestParseSourceType(t *testing.T) {
	tests := []struct {
		in   string
		want SourceType
		ok   bool
	}{
		{"API", SourceTypeAPI, true},
		{"reddit", SourceTypeReddit, true},
		{" arxiv ", SourceTypeArxiv, true},
		{"Rss", SourceTypeRSS, true},
		{"YOUTUBE", SourceTypeYouTube, true},
		{"twitter", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseSourceType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSourceType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestScheduleAdvance(t *testing.T) {
	base := time.Date(2025, time.January, 31, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		frequency  Frequency
		wantNext   time.Time
		wantActive bool
	}{
		{"once deactivates", FrequencyOnce, base, false},
		{"daily", FrequencyDaily, base.AddDate(0, 0, 1), true},
		{"weekly", FrequencyWeekly, base.AddDate(0, 0, 7), true},
		{"monthly", FrequencyMonthly, base.AddDate(0, 1, 0), true},
		{"unknown deactivates", Frequency("hourly"), base, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Schedule{ID: 1, Frequency: tt.frequency, NextRun: base, Active: true}
			next, active := s.Advance()
			if !next.Equal(tt.wantNext) {
				t.Errorf("next = %v, want %v", next, tt.wantNext)
			}
			if active != tt.wantActive {
				t.Errorf("active = %v, want %v", active, tt.wantActive)
			}
		})
	}
}

func TestTruncateContent(t *testing.T) {
	short := "short content"
	if got := TruncateContent(short); got != short {
		t.Errorf("TruncateContent changed short input: %q", got)
	}

	long := strings.Repeat("a", MaxContentLength+250)
	if got := TruncateContent(long); len(got) != MaxContentLength {
		t.Errorf("Expected %d chars, got %d", MaxContentLength, len(got))
	}

	// Multi-byte runes must not be split.
	runes := strings.Repeat("é", MaxContentLength+1)
	got := TruncateContent(runes)
	if n := len([]rune(got)); n != MaxContentLength {
		t.Errorf("Expected %d runes, got %d", MaxContentLength, n)
	}
}

func TestTruncateRunesNonPositive(t *testing.T) {
	if got := TruncateRunes("abc", 0); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
}
