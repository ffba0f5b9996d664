// Package events defines the payloads published through the outbox.
package events

import "time"

// Event types recorded by the reconciler and routed by the outbox dispatcher.
const (
	TypeActivityCompleted = "activity.completed"
	TypeActivityReopened  = "activity.reopened"
	TypePointsAdjusted    = "activity.points_adjusted"
)

// Event is an outbox entry appended inside the same transaction as the
// writes it describes.
type Event struct {
	Type       string
	ActivityID string
	Payload    any
}

// ActivityCompleted is emitted when an activity transitions into done and
// its points are awarded.
type ActivityCompleted struct {
	ActivityID     string    `json:"activity_id"`
	Title          string    `json:"title"`
	Points         int       `json:"points"`
	ParticipantIDs []string  `json:"participant_ids"`
	CompletedAt    time.Time `json:"completed_at"`
}

// ActivityReopened is emitted when a done activity leaves the done state or
// is deleted, reversing its point contribution.
type ActivityReopened struct {
	ActivityID string    `json:"activity_id"`
	Reason     string    `json:"reason"` // "reopened" or "deleted"
	OccurredAt time.Time `json:"occurred_at"`
}

// PointsAdjusted carries the per-participant deltas applied by one
// reconciliation pass over a done activity.
type PointsAdjusted struct {
	ActivityID string         `json:"activity_id"`
	Deltas     map[string]int `json:"deltas"`
	OccurredAt time.Time      `json:"occurred_at"`
}
