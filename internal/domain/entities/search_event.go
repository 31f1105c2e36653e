package entities

import (
	"time"
)

// SearchSource names what answered a free-text search
type SearchSource string

const (
	SearchSourceIndex    SearchSource = "index"
	SearchSourceSnapshot SearchSource = "snapshot"
)

// SearchEvent represents a single search interaction for analytics.
type SearchEvent struct {
	ID              string       `json:"id" db:"id"`
	Query           string       `json:"query" db:"query"`
	NormalizedQuery string       `json:"normalizedQuery" db:"normalized_query"`
	Source          SearchSource `json:"source" db:"source"`
	ResultCount     int          `json:"resultCount" db:"result_count"`
	LatencyMs       int          `json:"latencyMs" db:"latency_ms"`
	CreatedAt       time.Time    `json:"createdAt" db:"created_at"`
}

// ZeroResultQuery aggregates searches that found nothing
type ZeroResultQuery struct {
	NormalizedQuery string    `json:"normalizedQuery" db:"normalized_query"`
	Count           int       `json:"count" db:"count"`
	LastSeen        time.Time `json:"lastSeen" db:"last_seen"`
}
