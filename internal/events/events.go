// Package events publishes domain events after state changes commit.
package events

import (
	"context"
	"sync"
	"time"
)

// Event types
const (
	TypeBetCreated        = "bet.created"
	TypeBetAccepted       = "bet.accepted"
	TypeBetCancelled      = "bet.cancelled"
	TypeBetResolved       = "bet.resolved"
	TypeFriendRequested   = "friendship.requested"
	TypeFriendAccepted    = "friendship.accepted"
	TypeAchievementTierUp = "achievement.tier_reached"
)

type Event struct {
	Type        string                 `json:"type"`
	AggregateID string                 `json:"aggregate_id"`
	UserIDs     []string               `json:"user_ids"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

func New(eventType, aggregateID string, userIDs []string, payload map[string]interface{}) Event {
	return Event{
		Type:        eventType,
		AggregateID: aggregateID,
		UserIDs:     userIDs,
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events with the given type.
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
