// Package store declares the transactional persistence surface the
// scheduling engine runs against.
package store

import (
	"context"
	"time"

	"example.com/scheduling/internal/domain"
	"example.com/scheduling/internal/events"
)

// Reader is the read surface shared by the store and its transactions.
// Implementations map missing rows to domain.ErrNotFound and transient
// faults to domain.ErrStoreUnavailable; a failed lookup is never reported
// as an empty result.
type Reader interface {
	GetActivity(ctx context.Context, id string) (*domain.Activity, error)

	// OverlappingActivities returns every non-archived activity whose
	// half-open interval intersects [start, end), excluding excludeID when
	// it is non-empty. This is the authoritative conflict set.
	OverlappingActivities(ctx context.Context, start, end time.Time, excludeID string) ([]domain.Activity, error)

	// DoneActivitiesWith returns every done activity listing the
	// participant. Used by the audit recount only, never the hot path.
	DoneActivitiesWith(ctx context.Context, participantID string) ([]domain.Activity, error)

	GetResource(ctx context.Context, id string) (*domain.Resource, error)
	GetParticipant(ctx context.Context, id string) (*domain.Participant, error)
}

// Txn is the handle passed to RunTransaction callbacks. Reads observe the
// transaction's own writes.
type Txn interface {
	Reader

	InsertActivity(ctx context.Context, activity domain.Activity) error
	UpdateActivity(ctx context.Context, activity domain.Activity) error
	DeleteActivity(ctx context.Context, id string) error

	// AdjustPoints applies a delta to the participant's total. Totals are
	// never written absolutely so that out-of-band manual corrections
	// survive reconciliation.
	AdjustPoints(ctx context.Context, participantID string, delta int) error

	// AppendEvent records an outbox event that commits atomically with the
	// transaction's writes.
	AppendEvent(ctx context.Context, event events.Event) error
}

// Store is the engine's view of the data store. RunTransaction executes fn
// atomically at serializable isolation and retries it on write conflict;
// fn must therefore be safe to re-run from a fresh snapshot.
type Store interface {
	Reader

	RunTransaction(ctx context.Context, fn func(Txn) error) error

	// ListParticipants feeds the scheduled recount audit.
	ListParticipants(ctx context.Context) ([]domain.Participant, error)
}
