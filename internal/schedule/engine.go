// Package schedule implements the conflict detection and points
// reconciliation engine: the guard that decides whether a candidate
// activity may be committed, the recurrence expander, the batch commit
// orchestrator, and the transactional points reconciler.
package schedule

import (
	"time"

	"example.com/scheduling/internal/domain"
	"example.com/scheduling/internal/store"
)

const defaultConfirmThreshold = 20

// Engine exposes the scheduling operations. It holds no in-process locks;
// every public method is safe to call from concurrent request handlers and
// relies on the store's transaction isolation for correctness.
type Engine struct {
	store            store.Store
	confirmThreshold int
	now              func() time.Time
}

// Option configures optional Engine behaviour.
type Option func(*Engine)

// WithConfirmThreshold overrides the batch size above which commits require
// explicit confirmation.
func WithConfirmThreshold(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.confirmThreshold = n
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New constructs an Engine backed by the given store.
func New(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:            st,
		confirmThreshold: defaultConfirmThreshold,
		now:              func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Candidate is a not-yet-committed activity payload being checked or about
// to be created.
type Candidate struct {
	Title          string
	StartsAt       time.Time
	EndsAt         time.Time
	VenueID        string
	AssetIDs       []string
	ParticipantIDs []string
	Points         int
}

// Validate checks the candidate's structural invariants.
func (c Candidate) Validate() error {
	if c.Title == "" {
		return domain.Invalid("title", "is required")
	}
	if c.StartsAt.IsZero() || c.EndsAt.IsZero() {
		return domain.Invalid("interval", "start and end are required")
	}
	if !c.StartsAt.Before(c.EndsAt) {
		return domain.Invalid("interval", "start must be before end")
	}
	if c.Points < 0 {
		return domain.Invalid("points", "must not be negative")
	}
	return nil
}

func (c Candidate) activity(id string, now time.Time) domain.Activity {
	return domain.Activity{
		ID:             id,
		Title:          c.Title,
		StartsAt:       c.StartsAt,
		EndsAt:         c.EndsAt,
		VenueID:        c.VenueID,
		AssetIDs:       append([]string(nil), c.AssetIDs...),
		ParticipantIDs: append([]string(nil), c.ParticipantIDs...),
		Status:         domain.StatusDraft,
		Points:         c.Points,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
