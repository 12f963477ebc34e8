package domain

import (
	"slices"
	"time"
)

// Field names of the API key payloads, used to report what the backend omitted.
const (
	FieldKeyInfo        = "apiKeyInfo"
	FieldKeyStats       = "stats"
	FieldRecentActivity = "recentActivity"
)

type APIKeyStats struct {
	TotalSubmissions int64
	TotalEvents      int64
	UniqueSessions   int64
}

// APIKeyRecord is a publisher integration key with its usage totals.
type APIKeyRecord struct {
	APIKey     string
	Email      string
	WebsiteURL string
	IsActive   bool
	CreatedAt  time.Time
	LastUsedAt time.Time
	Stats      APIKeyStats
	Missing    []string
}

// HasStats is false when the backend sent the record without usage totals.
func (r APIKeyRecord) HasStats() bool {
	return !slices.Contains(r.Missing, FieldKeyStats)
}

type APIKeySummary struct {
	TotalAPIKeys int64
	ActiveKeys   int64
	InactiveKeys int64
}

type APIKeyPage struct {
	Keys       []APIKeyRecord
	Pagination Pagination
	Summary    APIKeySummary
}

type EventTypeCount struct {
	EventType    string
	Count        int64
	LastOccurred time.Time
}

type AdSubmissionCount struct {
	AdID          string
	Count         int64
	LastSubmitted time.Time
}

type ActivityEvent struct {
	EventType string
	AdID      string
	Timestamp time.Time
}

type RecentActivity struct {
	Submissions []Submission
	Events      []ActivityEvent
}

// APIKeyDetail is the drill-down view of a single key.
type APIKeyDetail struct {
	Info            APIKeyRecord
	Stats           APIKeyStats
	EventsByType    []EventTypeCount
	SubmissionsByAd []AdSubmissionCount
	RecentActivity  RecentActivity
	Missing         []string
}

// Has reports whether the backend actually sent the given section.
func (d APIKeyDetail) Has(field string) bool {
	return !slices.Contains(d.Missing, field)
}
