package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"example.com/scheduling/internal/domain"
	"example.com/scheduling/internal/observability"
	"example.com/scheduling/internal/store"
)

// Check names the guard stage that rejected a candidate. The stages run in
// a fixed order and only the first failure is reported; callers wanting a
// full report re-check after fixing each issue.
type Check string

const (
	CheckAssetAvailability Check = "asset_availability"
	CheckVenueAvailability Check = "venue_availability"
	CheckVenueCollision    Check = "venue_collision"
	CheckAssetCollision    Check = "asset_collision"
	CheckParticipantClash  Check = "participant_collision"
)

// Decision is the guard's verdict on a candidate. A rejection is an
// expected business outcome, not an error.
type Decision struct {
	OK                    bool
	FailedCheck           Check
	Reason                string
	ConflictingActivityID string
	ConflictingResourceID string
}

func accept() Decision {
	return Decision{OK: true}
}

func reject(check Check, reason string) Decision {
	observability.RecordConflict(string(check))
	return Decision{OK: false, FailedCheck: check, Reason: reason}
}

// CheckConflict runs the guard against the current store state. It is
// read-only and safe to call repeatedly; an excludeID identifies the
// activity being edited so it does not conflict with itself.
func (e *Engine) CheckConflict(ctx context.Context, c Candidate, excludeID string) (Decision, error) {
	if err := c.Validate(); err != nil {
		return Decision{}, err
	}
	return checkConflict(ctx, e.store, c, excludeID)
}

// checkConflict is shared between the read-only endpoint and the
// transactional commit paths, which pass the transaction handle as the
// reader so checks and inserts serialize on the store.
func checkConflict(ctx context.Context, r store.Reader, c Candidate, excludeID string) (Decision, error) {
	// Availability first: cheapest checks, point reads only.
	var unavailable []string
	for _, assetID := range c.AssetIDs {
		res, err := r.GetResource(ctx, assetID)
		if errors.Is(err, domain.ErrNotFound) {
			// Unknown assets fail closed: an id that resolves to nothing is
			// treated as unbookable rather than unrestricted.
			unavailable = append(unavailable, assetID)
			continue
		}
		if err != nil {
			return Decision{}, err
		}
		if !res.Bookable() {
			unavailable = append(unavailable, res.Name)
		}
	}
	if len(unavailable) > 0 {
		d := reject(CheckAssetAvailability, fmt.Sprintf("assets unavailable: %s", strings.Join(unavailable, ", ")))
		d.ConflictingResourceID = c.AssetIDs[0]
		return d, nil
	}

	if c.VenueID != "" {
		res, err := r.GetResource(ctx, c.VenueID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// Unknown venues fail open: no availability record means no
			// restriction. Collision checks below still apply.
		case err != nil:
			return Decision{}, err
		case !res.Bookable():
			d := reject(CheckVenueAvailability, fmt.Sprintf("venue %s is %s", res.Name, res.Availability))
			d.ConflictingResourceID = res.ID
			return d, nil
		}
	}

	// Single authoritative overlap fetch; the remaining checks run over it
	// in memory using the same half-open predicate as the query.
	overlapping, err := r.OverlappingActivities(ctx, c.StartsAt, c.EndsAt, excludeID)
	if err != nil {
		return Decision{}, err
	}

	for _, other := range overlapping {
		if c.VenueID != "" && other.VenueID == c.VenueID {
			d := reject(CheckVenueCollision, fmt.Sprintf("venue %s is already booked by %q starting %s",
				c.VenueID, other.Title, other.StartsAt.Format("2006-01-02 15:04")))
			d.ConflictingActivityID = other.ID
			d.ConflictingResourceID = c.VenueID
			return d, nil
		}
	}

	for _, other := range overlapping {
		for _, assetID := range c.AssetIDs {
			if other.HasAsset(assetID) {
				d := reject(CheckAssetCollision, fmt.Sprintf("asset %s is already in use by %q starting %s",
					assetID, other.Title, other.StartsAt.Format("2006-01-02 15:04")))
				d.ConflictingActivityID = other.ID
				d.ConflictingResourceID = assetID
				return d, nil
			}
		}
	}

	for _, other := range overlapping {
		for _, participantID := range c.ParticipantIDs {
			if other.HasParticipant(participantID) {
				d := reject(CheckParticipantClash, fmt.Sprintf("participant %s is already scheduled for %q starting %s",
					participantID, other.Title, other.StartsAt.Format("2006-01-02 15:04")))
				d.ConflictingActivityID = other.ID
				return d, nil
			}
		}
	}

	return accept(), nil
}
