package game

import (
	"time"
)

// EventType represents a match event type with type safety
type EventType string

// EventType constants for match domain events. They mirror the outbound
// messages of the client protocol.
const (
	EventTypeValidActions   EventType = "valid_actions"
	EventTypeDealInfo       EventType = "deal_info"
	EventTypeCompleteAction EventType = "complete_action"
	EventTypeNotification   EventType = "notification"
	EventTypeMatchEnd       EventType = "match_end"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event represents anything that happens during a match
type Event interface {
	EventType() EventType
	Timestamp() time.Time
}

// ValidActionsEvent is published whenever a new legal action set is offered
type ValidActionsEvent struct {
	Offer     Offer
	timestamp time.Time
}

func (e ValidActionsEvent) EventType() EventType { return EventTypeValidActions }
func (e ValidActionsEvent) Timestamp() time.Time { return e.timestamp }

// DealInfoEvent is published after cards were dealt
type DealInfoEvent struct {
	Deals     []Deal
	timestamp time.Time
}

func (e DealInfoEvent) EventType() EventType { return EventTypeDealInfo }
func (e DealInfoEvent) Timestamp() time.Time { return e.timestamp }

// CompleteActionEvent is published after an action was applied
type CompleteActionEvent struct {
	Action    Action
	timestamp time.Time
}

func (e CompleteActionEvent) EventType() EventType { return EventTypeCompleteAction }
func (e CompleteActionEvent) Timestamp() time.Time { return e.timestamp }

// NoteType identifies a notification
type NoteType string

const (
	NotePlayerFinished NoteType = "PLAYER_FINISHED"
	NoteMatchEnded     NoteType = "MATCH_ENDED"
	NoteRematch        NoteType = "REMATCH"
)

// Choice is an answer a player can give to a notification
type Choice string

const (
	ChoiceAccept  Choice = "ACCEPT"
	ChoiceDecline Choice = "DECLINE"
)

// Note is an informational message, optionally asking for a choice
type Note struct {
	Type    NoteType `json:"type"`
	PID     string   `json:"pid,omitempty"`
	Message string   `json:"message,omitempty"`
	Loser   string   `json:"loser,omitempty"`
	Choices []Choice `json:"actions,omitempty"`
}

// NotificationEvent is published for notes addressed to every player
type NotificationEvent struct {
	Note      Note
	timestamp time.Time
}

// NewNotificationEvent creates a notification event stamped with the current time
func NewNotificationEvent(note Note) NotificationEvent {
	return NotificationEvent{Note: note, timestamp: time.Now()}
}

func (e NotificationEvent) EventType() EventType { return EventTypeNotification }
func (e NotificationEvent) Timestamp() time.Time { return e.timestamp }

// MatchEndEvent is published once when the match finishes
type MatchEndEvent struct {
	Finished  []string // players in the order they got rid of their cards
	Loser     string   // empty for a draw
	timestamp time.Time
}

func (e MatchEndEvent) EventType() EventType { return EventTypeMatchEnd }
func (e MatchEndEvent) Timestamp() time.Time { return e.timestamp }

// EventSubscriber can subscribe to match events
type EventSubscriber interface {
	OnEvent(event Event)
}

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event Event)
}

// SimpleEventBus is a synchronous in-memory event bus. Subscribers run on
// the publishing goroutine in subscription order.
type SimpleEventBus struct {
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() EventBus {
	return &SimpleEventBus{
		subscribers: make([]EventSubscriber, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers
func (bus *SimpleEventBus) Publish(event Event) {
	for _, subscriber := range bus.subscribers {
		subscriber.OnEvent(event)
	}
}
