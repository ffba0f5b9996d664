package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/scheduling/internal/domain"
)

func TestCommitBatchInsertsAllCandidatesAsDrafts(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)

	candidates := []Candidate{candidateAt(6, 9, 11), candidateAt(7, 9, 11), candidateAt(8, 9, 11)}

	result, err := engine.CommitBatch(context.Background(), candidates, false)
	require.NoError(t, err)
	require.Equal(t, BatchCommitted, result.State)
	require.Len(t, result.Committed, 3)
	require.Equal(t, 3, st.ActivityCount())

	for _, a := range result.Committed {
		require.NotEmpty(t, a.ID)
		require.Equal(t, domain.StatusDraft, a.Status)
		require.Equal(t, testClock, a.CreatedAt)
	}
}

func TestCommitBatchAbortsWholeBatchOnFirstRejection(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)
	st.PutActivity(storedActivity("existing", 8, 10, 12))

	candidates := []Candidate{
		candidateAt(6, 9, 11),
		candidateAt(7, 9, 11),
		candidateAt(8, 9, 11), // collides with "existing" in the same venue
		candidateAt(9, 9, 11),
		candidateAt(10, 9, 11),
	}

	result, err := engine.CommitBatch(context.Background(), candidates, false)
	require.NoError(t, err)
	require.Equal(t, BatchRejected, result.State)
	require.Equal(t, 2, result.RejectedAt)
	require.Equal(t, CheckVenueCollision, result.Decision.FailedCheck)
	require.Equal(t, "existing", result.Decision.ConflictingActivityID)

	// Nothing from the batch may exist afterwards.
	require.Equal(t, 1, st.ActivityCount())
}

func TestCommitBatchDetectsIntraBatchConflicts(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)

	candidates := []Candidate{candidateAt(6, 9, 11), candidateAt(6, 10, 12)}

	result, err := engine.CommitBatch(context.Background(), candidates, false)
	require.NoError(t, err)
	require.Equal(t, BatchRejected, result.State)
	require.Equal(t, 1, result.RejectedAt)
	require.Equal(t, 0, st.ActivityCount())
}

func TestCommitBatchRequiresConfirmationAboveThreshold(t *testing.T) {
	engine, st := newTestEngine(WithConfirmThreshold(2))
	seedResources(st)

	candidates := []Candidate{candidateAt(6, 9, 11), candidateAt(7, 9, 11), candidateAt(8, 9, 11)}

	result, err := engine.CommitBatch(context.Background(), candidates, false)
	require.NoError(t, err)
	require.Equal(t, BatchAwaitingConfirmation, result.State)
	require.Equal(t, 0, st.ActivityCount())

	result, err = engine.CommitBatch(context.Background(), candidates, true)
	require.NoError(t, err)
	require.Equal(t, BatchCommitted, result.State)
	require.Equal(t, 3, st.ActivityCount())
}

func TestCommitBatchRejectsEmptyBatch(t *testing.T) {
	engine, _ := newTestEngine()

	_, err := engine.CommitBatch(context.Background(), nil, false)
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))
}

func TestCommitBatchIgnoresArchivedActivities(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)
	archived := storedActivity("old", 6, 9, 11)
	archived.Status = domain.StatusArchived
	st.PutActivity(archived)

	result, err := engine.CommitBatch(context.Background(), []Candidate{candidateAt(6, 9, 11)}, false)
	require.NoError(t, err)
	require.Equal(t, BatchCommitted, result.State)
}

func TestCreateReturnsRejectionDecision(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)
	st.PutActivity(storedActivity("a1", 6, 9, 11))

	created, decision, err := engine.Create(context.Background(), candidateAt(6, 10, 12))
	require.NoError(t, err)
	require.Nil(t, created)
	require.False(t, decision.OK)
	require.Equal(t, 1, st.ActivityCount())
}

func TestCreatePersistsDraft(t *testing.T) {
	engine, st := newTestEngine()
	seedResources(st)

	created, decision, err := engine.Create(context.Background(), candidateAt(6, 9, 11))
	require.NoError(t, err)
	require.True(t, decision.OK)
	require.NotNil(t, created)

	stored, err := st.GetActivity(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, stored.Status)
	require.Equal(t, "Weekly Training", stored.Title)
}
