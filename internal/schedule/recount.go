package schedule

import (
	"context"

	"example.com/scheduling/internal/domain"
	"example.com/scheduling/internal/store"
)

// RecountResult reports what a full recount found for one participant.
// Drift is stored minus computed; a non-zero drift may be a legitimate
// manual correction, which is why recounts only repair on request.
type RecountResult struct {
	ParticipantID string
	Stored        int
	Computed      int
	Drift         int
	Applied       bool
}

// RecountParticipant recomputes the participant's total from every done
// activity listing them, inside one transaction for a consistent snapshot.
// This is the explicit audit/repair path; the hot path never recomputes
// totals from scratch, so out-of-band corrections are not clobbered unless
// apply is set.
func (e *Engine) RecountParticipant(ctx context.Context, participantID string, apply bool) (RecountResult, error) {
	if participantID == "" {
		return RecountResult{}, domain.Invalid("id", "is required")
	}

	var result RecountResult
	err := e.store.RunTransaction(ctx, func(txn store.Txn) error {
		participant, err := txn.GetParticipant(ctx, participantID)
		if err != nil {
			return err
		}
		activities, err := txn.DoneActivitiesWith(ctx, participantID)
		if err != nil {
			return err
		}

		computed := 0
		for _, a := range activities {
			computed += a.Points
		}

		result = RecountResult{
			ParticipantID: participantID,
			Stored:        participant.TotalPoints,
			Computed:      computed,
			Drift:         participant.TotalPoints - computed,
		}
		if apply && result.Drift != 0 {
			if err := txn.AdjustPoints(ctx, participantID, -result.Drift); err != nil {
				return err
			}
			result.Applied = true
		}
		return nil
	})
	if err != nil {
		return RecountResult{}, err
	}
	return result, nil
}
