// Package domain defines the scheduling engine's core types.
package domain

import "time"

// Status represents the lifecycle state of an activity.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
	StatusArchived   Status = "archived"
)

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusDone, StatusCancelled, StatusArchived:
		return true
	}
	return false
}

// Activity is the schedulable unit. Its time interval is half-open:
// [StartsAt, EndsAt). Points are awarded to each participant exactly once
// while Status is done; the reconciler owns that invariant.
type Activity struct {
	ID             string
	Title          string
	StartsAt       time.Time
	EndsAt         time.Time
	VenueID        string
	AssetIDs       []string
	ParticipantIDs []string
	Status         Status
	Points         int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks the structural invariants of an activity.
func (a Activity) Validate() error {
	if a.Title == "" {
		return Invalid("title", "is required")
	}
	if a.StartsAt.IsZero() || a.EndsAt.IsZero() {
		return Invalid("interval", "start and end are required")
	}
	if !a.StartsAt.Before(a.EndsAt) {
		return Invalid("interval", "start must be before end")
	}
	if a.Points < 0 {
		return Invalid("points", "must not be negative")
	}
	if !a.Status.Valid() {
		return Invalid("status", "unknown status "+string(a.Status))
	}
	return nil
}

// HasParticipant reports whether the given participant is listed on the activity.
func (a Activity) HasParticipant(id string) bool {
	for _, p := range a.ParticipantIDs {
		if p == id {
			return true
		}
	}
	return false
}

// HasAsset reports whether the given asset is attached to the activity.
func (a Activity) HasAsset(id string) bool {
	for _, asset := range a.AssetIDs {
		if asset == id {
			return true
		}
	}
	return false
}
