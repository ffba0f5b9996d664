// Package postgres implements store.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/scheduling/internal/domain"
	"example.com/scheduling/internal/events"
	"example.com/scheduling/internal/store"
)

// maxTxAttempts bounds serialization-failure retries before the
// transaction is reported as unavailable.
const maxTxAttempts = 5

const activityColumns = `activity_id, title, starts_at, ends_at, venue_id, asset_ids, participant_ids, status, points, created_at, updated_at`

// Store provides Postgres-backed persistence for activities, resources,
// participants, and the outbox.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so reads run
// identically inside and outside transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetActivity implements store.Reader.
func (s *Store) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	return getActivity(ctx, s.pool, id)
}

// OverlappingActivities implements store.Reader.
func (s *Store) OverlappingActivities(ctx context.Context, start, end time.Time, excludeID string) ([]domain.Activity, error) {
	return overlappingActivities(ctx, s.pool, start, end, excludeID)
}

// DoneActivitiesWith implements store.Reader.
func (s *Store) DoneActivitiesWith(ctx context.Context, participantID string) ([]domain.Activity, error) {
	return doneActivitiesWith(ctx, s.pool, participantID)
}

// GetResource implements store.Reader.
func (s *Store) GetResource(ctx context.Context, id string) (*domain.Resource, error) {
	return getResource(ctx, s.pool, id)
}

// GetParticipant implements store.Reader.
func (s *Store) GetParticipant(ctx context.Context, id string) (*domain.Participant, error) {
	return getParticipant(ctx, s.pool, id)
}

// ListParticipants implements store.Store.
func (s *Store) ListParticipants(ctx context.Context) ([]domain.Participant, error) {
	const query = `SELECT participant_id, name, total_points FROM participants ORDER BY participant_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make([]domain.Participant, 0)
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.TotalPoints); err != nil {
			return nil, mapError(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// RunTransaction implements store.Store. The callback runs at serializable
// isolation and is re-run from a fresh snapshot when Postgres reports a
// serialization failure or deadlock, so concurrent commits competing for
// the same rows serialize instead of applying stale deltas.
func (s *Store) RunTransaction(ctx context.Context, fn func(store.Txn) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: transaction retries exhausted: %v", domain.ErrStoreUnavailable, lastErr)
}

func (s *Store) runOnce(ctx context.Context, fn func(store.Txn) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txn{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// txn adapts a pgx transaction to store.Txn.
type txn struct {
	tx pgx.Tx
}

func (t *txn) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	return getActivity(ctx, t.tx, id)
}

func (t *txn) OverlappingActivities(ctx context.Context, start, end time.Time, excludeID string) ([]domain.Activity, error) {
	return overlappingActivities(ctx, t.tx, start, end, excludeID)
}

func (t *txn) DoneActivitiesWith(ctx context.Context, participantID string) ([]domain.Activity, error) {
	return doneActivitiesWith(ctx, t.tx, participantID)
}

func (t *txn) GetResource(ctx context.Context, id string) (*domain.Resource, error) {
	return getResource(ctx, t.tx, id)
}

func (t *txn) GetParticipant(ctx context.Context, id string) (*domain.Participant, error) {
	return getParticipant(ctx, t.tx, id)
}

func (t *txn) InsertActivity(ctx context.Context, a domain.Activity) error {
	const stmt = `INSERT INTO activities (` + activityColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := t.tx.Exec(ctx, stmt,
		a.ID, a.Title, a.StartsAt, a.EndsAt, a.VenueID,
		a.AssetIDs, a.ParticipantIDs, a.Status, a.Points,
		a.CreatedAt, a.UpdatedAt,
	)
	return mapError(err)
}

func (t *txn) UpdateActivity(ctx context.Context, a domain.Activity) error {
	const stmt = `UPDATE activities
        SET title=$2, starts_at=$3, ends_at=$4, venue_id=$5, asset_ids=$6,
            participant_ids=$7, status=$8, points=$9, updated_at=$10
        WHERE activity_id=$1`

	tag, err := t.tx.Exec(ctx, stmt,
		a.ID, a.Title, a.StartsAt, a.EndsAt, a.VenueID,
		a.AssetIDs, a.ParticipantIDs, a.Status, a.Points, a.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *txn) DeleteActivity(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM activities WHERE activity_id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AdjustPoints applies a relative update so manual corrections made outside
// the engine are never clobbered.
func (t *txn) AdjustPoints(ctx context.Context, participantID string, delta int) error {
	const stmt = `UPDATE participants SET total_points = total_points + $2 WHERE participant_id=$1`

	tag, err := t.tx.Exec(ctx, stmt, participantID, delta)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *txn) AppendEvent(ctx context.Context, event events.Event) error {
	topic, ok := topicByEventType[event.Type]
	if !ok {
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	body, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (aggregate_id, event_type, topic, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5)`

	_, err = t.tx.Exec(ctx, stmt, event.ActivityID, event.Type, topic, event.ActivityID, body)
	return mapError(err)
}

var topicByEventType = map[string]string{
	events.TypeActivityCompleted: "activity_lifecycle",
	events.TypeActivityReopened:  "activity_lifecycle",
	events.TypePointsAdjusted:    "participant_points",
}

// shared query helpers

func getActivity(ctx context.Context, q querier, id string) (*domain.Activity, error) {
	const query = `SELECT ` + activityColumns + ` FROM activities WHERE activity_id=$1`
	return scanActivity(q.QueryRow(ctx, query, id))
}

func overlappingActivities(ctx context.Context, q querier, start, end time.Time, excludeID string) ([]domain.Activity, error) {
	// Same half-open predicate as schedule.Overlaps; archived activities
	// never conflict.
	const query = `SELECT ` + activityColumns + ` FROM activities
        WHERE status <> 'archived'
          AND starts_at < $2 AND ends_at > $1
          AND ($3 = '' OR activity_id <> $3)
        ORDER BY starts_at, activity_id`

	return scanActivities(q.Query(ctx, query, start, end, excludeID))
}

func doneActivitiesWith(ctx context.Context, q querier, participantID string) ([]domain.Activity, error) {
	const query = `SELECT ` + activityColumns + ` FROM activities
        WHERE status = 'done' AND $1 = ANY(participant_ids)
        ORDER BY starts_at, activity_id`

	return scanActivities(q.Query(ctx, query, participantID))
}

func getResource(ctx context.Context, q querier, id string) (*domain.Resource, error) {
	const query = `SELECT resource_id, name, kind, availability FROM resources WHERE resource_id=$1`

	var r domain.Resource
	if err := q.QueryRow(ctx, query, id).Scan(&r.ID, &r.Name, &r.Kind, &r.Availability); err != nil {
		return nil, mapError(err)
	}
	return &r, nil
}

func getParticipant(ctx context.Context, q querier, id string) (*domain.Participant, error) {
	const query = `SELECT participant_id, name, total_points FROM participants WHERE participant_id=$1`

	var p domain.Participant
	if err := q.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.TotalPoints); err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var a domain.Activity
	err := row.Scan(&a.ID, &a.Title, &a.StartsAt, &a.EndsAt, &a.VenueID,
		&a.AssetIDs, &a.ParticipantIDs, &a.Status, &a.Points, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &a, nil
}

func scanActivities(rows pgx.Rows, err error) ([]domain.Activity, error) {
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make([]domain.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// mapError translates pgx failures into the engine's error taxonomy. A
// failed read must surface, never masquerade as "no conflict".
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure and deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
