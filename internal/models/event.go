package models

import "time"

// EventType names a review event.
type EventType string

const (
	EventIngested   EventType = "ingested"
	EventClassified EventType = "classified"
	EventJudged     EventType = "judged"
	EventUndone     EventType = "undone"
	EventExported   EventType = "exported"
)

// ReviewEvent is the canonical structure published to Kafka and stored in Elasticsearch.
type ReviewEvent struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	CandidateID    string    `json:"candidate_id,omitempty"`
	Status         Status    `json:"status,omitempty"`
	PreviousStatus Status    `json:"previous_status,omitempty"`
	Region         Region    `json:"region,omitempty"`
	Count          int       `json:"count,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventIngested, EventClassified, EventJudged, EventUndone, EventExported:
		return true
	}
	return false
}
