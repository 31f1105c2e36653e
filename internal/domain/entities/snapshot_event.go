package entities

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotEventType names a change to the cached directory snapshot
type SnapshotEventType string

const (
	SnapshotEventInvalidated SnapshotEventType = "invalidated"
)

// SnapshotEvent is broadcast to every API instance sharing a cache version
type SnapshotEvent struct {
	ID        string            `json:"id"`
	Type      SnapshotEventType `json:"type"`
	Version   string            `json:"version"`
	Origin    string            `json:"origin"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewSnapshotEvent creates an event emitted by the instance origin
func NewSnapshotEvent(eventType SnapshotEventType, version, origin string) *SnapshotEvent {
	return &SnapshotEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Version:   version,
		Origin:    origin,
		Timestamp: time.Now().UTC(),
	}
}
