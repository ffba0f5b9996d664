package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"example.com/scheduling/internal/events"
)

// Leaderboard projects point totals from the activity event stream. It keeps
// the award attributed to each activity so a reopened event, which carries no
// point data, can reverse exactly what was granted.
type Leaderboard struct {
	mu     sync.RWMutex
	totals map[string]int
	awards map[string]map[string]int
}

// NewLeaderboard constructs an empty projection.
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		totals: make(map[string]int),
		awards: make(map[string]map[string]int),
	}
}

// Handle applies one decoded event to the projection. Unknown event types are
// ignored so the handler can share a topic with future lifecycle events.
func (l *Leaderboard) Handle(_ context.Context, msg Message) error {
	switch msg.EventType {
	case events.TypeActivityCompleted:
		var payload events.ActivityCompleted
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		l.applyCompleted(payload)
	case events.TypeActivityReopened:
		var payload events.ActivityReopened
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		l.applyReopened(payload)
	case events.TypePointsAdjusted:
		var payload events.PointsAdjusted
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		l.applyAdjusted(payload)
	}
	return nil
}

func (l *Leaderboard) applyCompleted(payload events.ActivityCompleted) {
	l.mu.Lock()
	defer l.mu.Unlock()

	award := make(map[string]int, len(payload.ParticipantIDs))
	for _, id := range payload.ParticipantIDs {
		award[id] = payload.Points
		l.setTotal(id, l.totals[id]+payload.Points)
	}
	l.awards[payload.ActivityID] = award
}

func (l *Leaderboard) applyReopened(payload events.ActivityReopened) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, points := range l.awards[payload.ActivityID] {
		l.setTotal(id, l.totals[id]-points)
	}
	delete(l.awards, payload.ActivityID)
}

func (l *Leaderboard) applyAdjusted(payload events.PointsAdjusted) {
	l.mu.Lock()
	defer l.mu.Unlock()

	award := l.awards[payload.ActivityID]
	if award == nil {
		award = make(map[string]int)
		l.awards[payload.ActivityID] = award
	}
	for id, delta := range payload.Deltas {
		award[id] += delta
		if award[id] == 0 {
			delete(award, id)
		}
		l.setTotal(id, l.totals[id]+delta)
	}
}

func (l *Leaderboard) setTotal(participantID string, total int) {
	l.totals[participantID] = total
	leaderboardGauge.WithLabelValues(participantID).Set(float64(total))
}

// Totals returns a snapshot of the projected point totals.
func (l *Leaderboard) Totals() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]int, len(l.totals))
	for id, total := range l.totals {
		out[id] = total
	}
	return out
}

// Total returns one participant's projected points.
func (l *Leaderboard) Total(participantID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totals[participantID]
}
