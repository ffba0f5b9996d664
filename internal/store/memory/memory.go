// Package memory provides an in-memory store.Store for tests and local
// development. A single mutex held for the duration of each transaction
// gives it trivially serializable semantics; failed transactions roll back
// to the pre-transaction snapshot so aborts never leave partial state.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/scheduling/internal/domain"
	"example.com/scheduling/internal/events"
	"example.com/scheduling/internal/store"
)

// Store is the in-memory implementation of store.Store.
type Store struct {
	mu           sync.Mutex
	activities   map[string]domain.Activity
	resources    map[string]domain.Resource
	participants map[string]domain.Participant
	events       []events.Event
	failure      error
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		activities:   make(map[string]domain.Activity),
		resources:    make(map[string]domain.Resource),
		participants: make(map[string]domain.Participant),
	}
}

// PutResource seeds or replaces a resource.
func (s *Store) PutResource(r domain.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[r.ID] = r
}

// PutParticipant seeds or replaces a participant.
func (s *Store) PutParticipant(p domain.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.ID] = p
}

// PutActivity seeds or replaces an activity.
func (s *Store) PutActivity(a domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[a.ID] = cloneActivity(a)
}

// FailWith makes every subsequent operation return err until called with
// nil. Used to exercise store-fault propagation.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

// Events returns a copy of every appended outbox event, in append order.
func (s *Store) Events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.events...)
}

// ActivityCount reports how many activities are stored.
func (s *Store) ActivityCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activities)
}

// GetActivity implements store.Reader.
func (s *Store) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getActivity(id)
}

// OverlappingActivities implements store.Reader.
func (s *Store) OverlappingActivities(ctx context.Context, start, end time.Time, excludeID string) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlapping(start, end, excludeID)
}

// DoneActivitiesWith implements store.Reader.
func (s *Store) DoneActivitiesWith(ctx context.Context, participantID string) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneWith(participantID)
}

// GetResource implements store.Reader.
func (s *Store) GetResource(ctx context.Context, id string) (*domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getResource(id)
}

// GetParticipant implements store.Reader.
func (s *Store) GetParticipant(ctx context.Context, id string) (*domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getParticipant(id)
}

// ListParticipants implements store.Store.
func (s *Store) ListParticipants(ctx context.Context) ([]domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return nil, s.failure
	}
	out := make([]domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RunTransaction implements store.Store. The mutex is held for the whole
// callback, so no retry loop is needed.
func (s *Store) RunTransaction(ctx context.Context, fn func(store.Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}

	snapActivities := cloneActivityMap(s.activities)
	snapResources := cloneResourceMap(s.resources)
	snapParticipants := cloneParticipantMap(s.participants)
	snapEvents := len(s.events)

	if err := fn(&txn{store: s}); err != nil {
		s.activities = snapActivities
		s.resources = snapResources
		s.participants = snapParticipants
		s.events = s.events[:snapEvents]
		return err
	}
	return nil
}

// unlocked helpers, shared by the Store methods and the transaction handle.

func (s *Store) getActivity(id string) (*domain.Activity, error) {
	if s.failure != nil {
		return nil, s.failure
	}
	a, ok := s.activities[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneActivity(a)
	return &out, nil
}

func (s *Store) overlapping(start, end time.Time, excludeID string) ([]domain.Activity, error) {
	if s.failure != nil {
		return nil, s.failure
	}
	out := make([]domain.Activity, 0)
	for _, a := range s.activities {
		if a.Status == domain.StatusArchived || a.ID == excludeID {
			continue
		}
		// Same half-open predicate as the SQL overlap query.
		if a.StartsAt.Before(end) && a.EndsAt.After(start) {
			out = append(out, cloneActivity(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}

func (s *Store) doneWith(participantID string) ([]domain.Activity, error) {
	if s.failure != nil {
		return nil, s.failure
	}
	out := make([]domain.Activity, 0)
	for _, a := range s.activities {
		if a.Status == domain.StatusDone && a.HasParticipant(participantID) {
			out = append(out, cloneActivity(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) getResource(id string) (*domain.Resource, error) {
	if s.failure != nil {
		return nil, s.failure
	}
	r, ok := s.resources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (s *Store) getParticipant(id string) (*domain.Participant, error) {
	if s.failure != nil {
		return nil, s.failure
	}
	p, ok := s.participants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// txn mutates the live maps under the store's mutex; RunTransaction
// restores the snapshot if the callback fails.
type txn struct {
	store *Store
}

func (t *txn) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	return t.store.getActivity(id)
}

func (t *txn) OverlappingActivities(ctx context.Context, start, end time.Time, excludeID string) ([]domain.Activity, error) {
	return t.store.overlapping(start, end, excludeID)
}

func (t *txn) DoneActivitiesWith(ctx context.Context, participantID string) ([]domain.Activity, error) {
	return t.store.doneWith(participantID)
}

func (t *txn) GetResource(ctx context.Context, id string) (*domain.Resource, error) {
	return t.store.getResource(id)
}

func (t *txn) GetParticipant(ctx context.Context, id string) (*domain.Participant, error) {
	return t.store.getParticipant(id)
}

func (t *txn) InsertActivity(ctx context.Context, activity domain.Activity) error {
	if t.store.failure != nil {
		return t.store.failure
	}
	t.store.activities[activity.ID] = cloneActivity(activity)
	return nil
}

func (t *txn) UpdateActivity(ctx context.Context, activity domain.Activity) error {
	if t.store.failure != nil {
		return t.store.failure
	}
	if _, ok := t.store.activities[activity.ID]; !ok {
		return domain.ErrNotFound
	}
	t.store.activities[activity.ID] = cloneActivity(activity)
	return nil
}

func (t *txn) DeleteActivity(ctx context.Context, id string) error {
	if t.store.failure != nil {
		return t.store.failure
	}
	if _, ok := t.store.activities[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.store.activities, id)
	return nil
}

func (t *txn) AdjustPoints(ctx context.Context, participantID string, delta int) error {
	if t.store.failure != nil {
		return t.store.failure
	}
	p, ok := t.store.participants[participantID]
	if !ok {
		return domain.ErrNotFound
	}
	p.TotalPoints += delta
	t.store.participants[participantID] = p
	return nil
}

func (t *txn) AppendEvent(ctx context.Context, event events.Event) error {
	if t.store.failure != nil {
		return t.store.failure
	}
	t.store.events = append(t.store.events, event)
	return nil
}

func cloneActivity(a domain.Activity) domain.Activity {
	a.AssetIDs = append([]string(nil), a.AssetIDs...)
	a.ParticipantIDs = append([]string(nil), a.ParticipantIDs...)
	return a
}

func cloneActivityMap(in map[string]domain.Activity) map[string]domain.Activity {
	out := make(map[string]domain.Activity, len(in))
	for k, v := range in {
		out[k] = cloneActivity(v)
	}
	return out
}

func cloneResourceMap(in map[string]domain.Resource) map[string]domain.Resource {
	out := make(map[string]domain.Resource, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneParticipantMap(in map[string]domain.Participant) map[string]domain.Participant {
	out := make(map[string]domain.Participant, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
