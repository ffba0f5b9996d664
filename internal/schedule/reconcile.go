package schedule

import (
	"context"
	"errors"
	"sort"
	"time"

	"example.com/scheduling/internal/domain"
	"example.com/scheduling/internal/events"
	"example.com/scheduling/internal/observability"
	"example.com/scheduling/internal/store"
)

// ActivityUpdate is the proposed new state for an existing activity.
type ActivityUpdate struct {
	Title          string
	StartsAt       time.Time
	EndsAt         time.Time
	VenueID        string
	AssetIDs       []string
	ParticipantIDs []string
	Status         domain.Status
	Points         int
}

func (u ActivityUpdate) candidate() Candidate {
	return Candidate{
		Title:          u.Title,
		StartsAt:       u.StartsAt,
		EndsAt:         u.EndsAt,
		VenueID:        u.VenueID,
		AssetIDs:       u.AssetIDs,
		ParticipantIDs: u.ParticipantIDs,
		Points:         u.Points,
	}
}

// Validate checks the update's structural invariants.
func (u ActivityUpdate) Validate() error {
	if err := u.candidate().Validate(); err != nil {
		return err
	}
	if !u.Status.Valid() {
		return domain.Invalid("status", "unknown status "+string(u.Status))
	}
	return nil
}

// Reconcile applies the proposed state to the stored activity and adjusts
// every affected participant's point total by the minimal delta, all inside
// one serializable transaction. The stored activity is re-read inside the
// transaction; whatever state the caller diffed against is never trusted,
// which is what makes completion idempotent under concurrent edits and
// store-level retries.
//
// A guard rejection aborts the transaction and is reported in the Decision;
// like CheckConflict, that is an expected outcome, not an error.
func (e *Engine) Reconcile(ctx context.Context, activityID string, next ActivityUpdate) (*domain.Activity, Decision, error) {
	if activityID == "" {
		return nil, Decision{}, domain.Invalid("id", "is required")
	}
	if err := next.Validate(); err != nil {
		return nil, Decision{}, err
	}

	var (
		updated  domain.Activity
		decision Decision
		applied  int
	)
	err := e.store.RunTransaction(ctx, func(txn store.Txn) error {
		decision = Decision{}
		applied = 0

		stored, err := txn.GetActivity(ctx, activityID)
		if err != nil {
			return err
		}

		d, err := checkConflict(ctx, txn, next.candidate(), activityID)
		if err != nil {
			return err
		}
		if !d.OK {
			decision = d
			return errRejected
		}

		now := e.now()
		deltas := diffPoints(*stored, next)
		for _, id := range sortedKeys(deltas) {
			if err := txn.AdjustPoints(ctx, id, deltas[id]); err != nil {
				return err
			}
			applied++
		}

		updated = domain.Activity{
			ID:             stored.ID,
			Title:          next.Title,
			StartsAt:       next.StartsAt,
			EndsAt:         next.EndsAt,
			VenueID:        next.VenueID,
			AssetIDs:       append([]string(nil), next.AssetIDs...),
			ParticipantIDs: append([]string(nil), next.ParticipantIDs...),
			Status:         next.Status,
			Points:         next.Points,
			CreatedAt:      stored.CreatedAt,
			UpdatedAt:      now,
		}
		if err := txn.UpdateActivity(ctx, updated); err != nil {
			return err
		}

		return appendTransitionEvents(ctx, txn, *stored, updated, deltas, now)
	})
	if errors.Is(err, errRejected) {
		return nil, decision, nil
	}
	if err != nil {
		return nil, Decision{}, err
	}

	observability.RecordPointsAdjusted(applied)
	return &updated, accept(), nil
}

// Delete removes the activity. Deleting a done activity reverses its point
// contribution in the same transaction that removes the record.
func (e *Engine) Delete(ctx context.Context, activityID string) error {
	if activityID == "" {
		return domain.Invalid("id", "is required")
	}
	var applied int
	err := e.store.RunTransaction(ctx, func(txn store.Txn) error {
		applied = 0
		stored, err := txn.GetActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if stored.Status == domain.StatusDone {
			for _, participantID := range sortedCopy(stored.ParticipantIDs) {
				if err := txn.AdjustPoints(ctx, participantID, -stored.Points); err != nil {
					return err
				}
				applied++
			}
			if err := txn.AppendEvent(ctx, events.Event{
				Type:       events.TypeActivityReopened,
				ActivityID: stored.ID,
				Payload: events.ActivityReopened{
					ActivityID: stored.ID,
					Reason:     "deleted",
					OccurredAt: e.now(),
				},
			}); err != nil {
				return err
			}
		}
		return txn.DeleteActivity(ctx, stored.ID)
	})
	if err != nil {
		return err
	}
	observability.RecordPointsAdjusted(applied)
	return nil
}

// Get fetches an activity by id.
func (e *Engine) Get(ctx context.Context, activityID string) (*domain.Activity, error) {
	return e.store.GetActivity(ctx, activityID)
}

// diffPoints computes the minimal per-participant adjustments that make the
// totals consistent with the proposed state. Evaluated against the freshly
// read stored state only.
func diffPoints(stored domain.Activity, next ActivityUpdate) map[string]int {
	wasDone := stored.Status == domain.StatusDone
	isDone := next.Status == domain.StatusDone

	deltas := make(map[string]int)
	switch {
	case wasDone && !isDone:
		for _, id := range stored.ParticipantIDs {
			deltas[id] -= stored.Points
		}
	case !wasDone && isDone:
		for _, id := range next.ParticipantIDs {
			deltas[id] += next.Points
		}
	case wasDone && isDone:
		old := idSet(stored.ParticipantIDs)
		for _, id := range next.ParticipantIDs {
			if old[id] {
				if next.Points != stored.Points {
					deltas[id] += next.Points - stored.Points
				}
			} else {
				deltas[id] += next.Points
			}
		}
		current := idSet(next.ParticipantIDs)
		for _, id := range stored.ParticipantIDs {
			if !current[id] {
				deltas[id] -= stored.Points
			}
		}
	}

	for id, delta := range deltas {
		if delta == 0 {
			delete(deltas, id)
		}
	}
	return deltas
}

func appendTransitionEvents(ctx context.Context, txn store.Txn, stored, updated domain.Activity, deltas map[string]int, now time.Time) error {
	wasDone := stored.Status == domain.StatusDone
	isDone := updated.Status == domain.StatusDone

	switch {
	case !wasDone && isDone:
		return txn.AppendEvent(ctx, events.Event{
			Type:       events.TypeActivityCompleted,
			ActivityID: updated.ID,
			Payload: events.ActivityCompleted{
				ActivityID:     updated.ID,
				Title:          updated.Title,
				Points:         updated.Points,
				ParticipantIDs: append([]string(nil), updated.ParticipantIDs...),
				CompletedAt:    now,
			},
		})
	case wasDone && !isDone:
		return txn.AppendEvent(ctx, events.Event{
			Type:       events.TypeActivityReopened,
			ActivityID: updated.ID,
			Payload: events.ActivityReopened{
				ActivityID: updated.ID,
				Reason:     "reopened",
				OccurredAt: now,
			},
		})
	case wasDone && isDone && len(deltas) > 0:
		return txn.AppendEvent(ctx, events.Event{
			Type:       events.TypePointsAdjusted,
			ActivityID: updated.ID,
			Payload: events.PointsAdjusted{
				ActivityID: updated.ID,
				Deltas:     deltas,
				OccurredAt: now,
			},
		})
	}
	return nil
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
