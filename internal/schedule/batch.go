package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"example.com/scheduling/internal/domain"
	"example.com/scheduling/internal/observability"
	"example.com/scheduling/internal/store"
)

// BatchState reports the outcome of a CommitBatch call.
type BatchState string

const (
	// BatchCommitted means every candidate was inserted.
	BatchCommitted BatchState = "committed"
	// BatchAwaitingConfirmation means the batch exceeds the confirmation
	// threshold and nothing was written; the caller must resubmit with
	// confirmation.
	BatchAwaitingConfirmation BatchState = "awaiting_confirmation"
	// BatchRejected means the guard rejected a candidate and nothing was
	// written.
	BatchRejected BatchState = "rejected"
)

// BatchResult describes what CommitBatch did. On rejection RejectedAt holds
// the index of the first failing candidate and Decision the reason.
type BatchResult struct {
	State      BatchState
	Committed  []domain.Activity
	RejectedAt int
	Decision   Decision
}

// errRejected aborts the commit transaction without surfacing an
// infrastructure error. The rejection itself travels in BatchResult.
var errRejected = errors.New("batch rejected")

// CommitBatch guards and inserts the candidates as one atomic unit. Checks
// and inserts run inside a single store transaction, so concurrent commits
// competing for the same resources serialize on the store instead of racing
// a separate check-then-act window. The entire batch aborts on the first
// rejection; no partial commits.
func (e *Engine) CommitBatch(ctx context.Context, candidates []Candidate, confirmed bool) (BatchResult, error) {
	if len(candidates) == 0 {
		return BatchResult{}, domain.Invalid("candidates", "batch is empty")
	}
	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			return BatchResult{}, err
		}
	}
	if len(candidates) > e.confirmThreshold && !confirmed {
		return BatchResult{State: BatchAwaitingConfirmation}, nil
	}

	var result BatchResult
	err := e.store.RunTransaction(ctx, func(txn store.Txn) error {
		result = BatchResult{}
		committed := make([]domain.Activity, 0, len(candidates))
		for i, c := range candidates {
			decision, err := checkConflict(ctx, txn, c, "")
			if err != nil {
				return err
			}
			if !decision.OK {
				result = BatchResult{State: BatchRejected, RejectedAt: i, Decision: decision}
				return errRejected
			}
			activity := c.activity(uuid.NewString(), e.now())
			if err := txn.InsertActivity(ctx, activity); err != nil {
				return err
			}
			committed = append(committed, activity)
		}
		result = BatchResult{State: BatchCommitted, Committed: committed}
		return nil
	})
	if errors.Is(err, errRejected) {
		return result, nil
	}
	if err != nil {
		return BatchResult{}, err
	}

	observability.RecordBatchCommitted(len(result.Committed), e.now())
	return result, nil
}

// Create commits a single candidate through the same transactional
// guard-then-insert path as a batch.
func (e *Engine) Create(ctx context.Context, c Candidate) (*domain.Activity, Decision, error) {
	result, err := e.CommitBatch(ctx, []Candidate{c}, true)
	if err != nil {
		return nil, Decision{}, err
	}
	if result.State == BatchRejected {
		return nil, result.Decision, nil
	}
	activity := result.Committed[0]
	return &activity, accept(), nil
}
