package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/scheduling/internal/domain"
	"example.com/scheduling/internal/events"
	"example.com/scheduling/internal/store/memory"
)

func seedParticipants(st *memory.Store, totals map[string]int) {
	for id, total := range totals {
		st.PutParticipant(domain.Participant{ID: id, Name: id, TotalPoints: total})
	}
}

func doneUpdate(a domain.Activity, status domain.Status, participants []string, points int) ActivityUpdate {
	return ActivityUpdate{
		Title:          a.Title,
		StartsAt:       a.StartsAt,
		EndsAt:         a.EndsAt,
		VenueID:        a.VenueID,
		AssetIDs:       a.AssetIDs,
		ParticipantIDs: participants,
		Status:         status,
		Points:         points,
	}
}

func total(t *testing.T, st *memory.Store, id string) int {
	t.Helper()
	p, err := st.GetParticipant(context.Background(), id)
	require.NoError(t, err)
	return p.TotalPoints
}

func TestReconcileAwardsPointsOnCompletion(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)
	seedParticipants(st, map[string]int{"alice": 0, "bob": 3})

	a := storedActivity("a1", 6, 9, 11)
	a.ParticipantIDs = []string{"alice", "bob"}
	a.Points = 10
	st.PutActivity(a)

	updated, decision, err := engine.Reconcile(context.Background(), "a1", doneUpdate(a, domain.StatusDone, []string{"alice", "bob"}, 10))
	require.NoError(t, err)
	require.True(t, decision.OK)
	require.Equal(t, domain.StatusDone, updated.Status)

	require.Equal(t, 10, total(t, st, "alice"))
	require.Equal(t, 13, total(t, st, "bob"))

	evts := st.Events()
	require.Len(t, evts, 1)
	require.Equal(t, events.TypeActivityCompleted, evts[0].Type)
}

func TestReconcileCompletionIsIdempotent(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)
	seedParticipants(st, map[string]int{"alice": 0})

	a := storedActivity("a1", 6, 9, 11)
	a.ParticipantIDs = []string{"alice"}
	a.Points = 10
	st.PutActivity(a)

	next := doneUpdate(a, domain.StatusDone, []string{"alice"}, 10)

	// The caller replays the same Draft->Done edit twice; the second pass
	// must see the fresh done state and take the no-op path.
	_, _, err := engine.Reconcile(context.Background(), "a1", next)
	require.NoError(t, err)
	_, _, err = engine.Reconcile(context.Background(), "a1", next)
	require.NoError(t, err)

	require.Equal(t, 10, total(t, st, "alice"))
	require.Len(t, st.Events(), 1)
}

func TestReconcileReversalIsExact(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)
	seedParticipants(st, map[string]int{"alice": 7, "bob": 2})

	a := storedActivity("a1", 6, 9, 11)
	a.ParticipantIDs = []string{"alice", "bob"}
	a.Points = 10
	st.PutActivity(a)

	_, _, err := engine.Reconcile(context.Background(), "a1", doneUpdate(a, domain.StatusDone, []string{"alice", "bob"}, 10))
	require.NoError(t, err)
	_, _, err = engine.Reconcile(context.Background(), "a1", doneUpdate(a, domain.StatusDraft, []string{"alice", "bob"}, 10))
	require.NoError(t, err)

	require.Equal(t, 7, total(t, st, "alice"))
	require.Equal(t, 2, total(t, st, "bob"))

	evts := st.Events()
	require.Len(t, evts, 2)
	require.Equal(t, events.TypeActivityReopened, evts[1].Type)
}

func TestReconcileDiffsParticipantsAndPoints(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)
	seedParticipants(st, map[string]int{"a": 10, "b": 10, "c": 0})

	// Stored: done, participants {a,b}, 10 points (already awarded above).
	act := storedActivity("a1", 6, 9, 11)
	act.ParticipantIDs = []string{"a", "b"}
	act.Points = 10
	act.Status = domain.StatusDone
	st.PutActivity(act)

	// New: stays done, participants {b,c}, 15 points.
	_, decision, err := engine.Reconcile(context.Background(), "a1", doneUpdate(act, domain.StatusDone, []string{"b", "c"}, 15))
	require.NoError(t, err)
	require.True(t, decision.OK)

	require.Equal(t, 0, total(t, st, "a"))  // removed: -10
	require.Equal(t, 15, total(t, st, "b")) // kept: +5
	require.Equal(t, 15, total(t, st, "c")) // added: +15

	evts := st.Events()
	require.Len(t, evts, 1)
	require.Equal(t, events.TypePointsAdjusted, evts[0].Type)
	payload, ok := evts[0].Payload.(events.PointsAdjusted)
	require.True(t, ok)
	require.Equal(t, map[string]int{"a": -10, "b": 5, "c": 15}, payload.Deltas)
}

func TestReconcileNoPointMutationWhileNotDone(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)
	seedParticipants(st, map[string]int{"alice": 4})

	a := storedActivity("a1", 6, 9, 11)
	a.ParticipantIDs = []string{"alice"}
	a.Points = 10
	st.PutActivity(a)

	_, _, err := engine.Reconcile(context.Background(), "a1", doneUpdate(a, domain.StatusInProgress, []string{"alice"}, 25))
	require.NoError(t, err)

	require.Equal(t, 4, total(t, st, "alice"))
	require.Empty(t, st.Events())
}

func TestReconcileAbortsOnConflict(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)
	seedParticipants(st, map[string]int{"alice": 0})
	st.PutActivity(storedActivity("other", 6, 9, 11))

	a := storedActivity("a1", 6, 13, 14)
	a.ParticipantIDs = []string{"alice"}
	a.Points = 10
	st.PutActivity(a)

	// Move a1 onto the other activity's venue slot while completing it;
	// the guard aborts the transaction before any points move.
	next := doneUpdate(a, domain.StatusDone, []string{"alice"}, 10)
	next.StartsAt, next.EndsAt = slot(6, 10, 12)

	updated, decision, err := engine.Reconcile(context.Background(), "a1", next)
	require.NoError(t, err)
	require.Nil(t, updated)
	require.False(t, decision.OK)
	require.Equal(t, 0, total(t, st, "alice"))

	stored, err := st.GetActivity(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, stored.Status)
}

func TestReconcileUnknownActivity(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)

	a := storedActivity("ghost", 6, 9, 11)
	_, _, err := engine.Reconcile(context.Background(), "ghost", doneUpdate(a, domain.StatusDone, nil, 0))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteDoneActivityReversesPoints(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)
	seedParticipants(st, map[string]int{"alice": 10, "bob": 12})

	a := storedActivity("a1", 6, 9, 11)
	a.ParticipantIDs = []string{"alice", "bob"}
	a.Points = 10
	a.Status = domain.StatusDone
	st.PutActivity(a)

	require.NoError(t, engine.Delete(context.Background(), "a1"))

	require.Equal(t, 0, total(t, st, "alice"))
	require.Equal(t, 2, total(t, st, "bob"))
	require.Equal(t, 0, st.ActivityCount())

	evts := st.Events()
	require.Len(t, evts, 1)
	require.Equal(t, events.TypeActivityReopened, evts[0].Type)
	payload, ok := evts[0].Payload.(events.ActivityReopened)
	require.True(t, ok)
	require.Equal(t, "deleted", payload.Reason)
}

func TestDeleteDraftActivityLeavesPointsAlone(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)
	seedParticipants(st, map[string]int{"alice": 5})

	a := storedActivity("a1", 6, 9, 11)
	a.ParticipantIDs = []string{"alice"}
	a.Points = 10
	st.PutActivity(a)

	require.NoError(t, engine.Delete(context.Background(), "a1"))
	require.Equal(t, 5, total(t, st, "alice"))
	require.Empty(t, st.Events())
}

func TestDiffPointsTable(t *testing.T) {
	base := storedActivity("a1", 6, 9, 11)

	cases := []struct {
		name         string
		storedStatus domain.Status
		storedPs     []string
		storedPoints int
		nextStatus   domain.Status
		nextPs       []string
		nextPoints   int
		want         map[string]int
	}{
		{"award", domain.StatusDraft, []string{"a", "b"}, 10, domain.StatusDone, []string{"a", "b"}, 10, map[string]int{"a": 10, "b": 10}},
		{"reverse", domain.StatusDone, []string{"a", "b"}, 10, domain.StatusCancelled, []string{"a", "b"}, 10, map[string]int{"a": -10, "b": -10}},
		{"reprice", domain.StatusDone, []string{"a"}, 10, domain.StatusDone, []string{"a"}, 15, map[string]int{"a": 5}},
		{"swap", domain.StatusDone, []string{"a", "b"}, 10, domain.StatusDone, []string{"b", "c"}, 15, map[string]int{"a": -10, "b": 5, "c": 15}},
		{"no change", domain.StatusDone, []string{"a"}, 10, domain.StatusDone, []string{"a"}, 10, map[string]int{}},
		{"never done", domain.StatusDraft, []string{"a"}, 10, domain.StatusInProgress, []string{"a"}, 99, map[string]int{}},
		{"award new set", domain.StatusDraft, []string{"a"}, 10, domain.StatusDone, []string{"b"}, 10, map[string]int{"b": 10}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			stored := base
			stored.Status = c.storedStatus
			stored.ParticipantIDs = c.storedPs
			stored.Points = c.storedPoints

			next := doneUpdate(stored, c.nextStatus, c.nextPs, c.nextPoints)
			require.Equal(t, c.want, diffPoints(stored, next))
		})
	}
}

func TestRecountReportsDriftWithoutRepairing(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)
	// Stored total includes a manual correction of +3 on top of one done
	// 10-point activity.
	seedParticipants(st, map[string]int{"alice": 13})

	a := storedActivity("a1", 6, 9, 11)
	a.ParticipantIDs = []string{"alice"}
	a.Points = 10
	a.Status = domain.StatusDone
	st.PutActivity(a)

	result, err := engine.RecountParticipant(context.Background(), "alice", false)
	require.NoError(t, err)
	require.Equal(t, 13, result.Stored)
	require.Equal(t, 10, result.Computed)
	require.Equal(t, 3, result.Drift)
	require.False(t, result.Applied)
	require.Equal(t, 13, total(t, st, "alice"))
}

func TestRecountAppliesRepairOnRequest(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)
	seedParticipants(st, map[string]int{"alice": 4})

	a := storedActivity("a1", 6, 9, 11)
	a.ParticipantIDs = []string{"alice"}
	a.Points = 10
	a.Status = domain.StatusDone
	st.PutActivity(a)

	result, err := engine.RecountParticipant(context.Background(), "alice", true)
	require.NoError(t, err)
	require.Equal(t, -6, result.Drift)
	require.True(t, result.Applied)
	require.Equal(t, 10, total(t, st, "alice"))
}
