package engine

import (
	"sync"
	"time"
)

// EventType represents a game event type with type safety
type EventType string

const (
	EventTypeGameStarted   EventType = "game_started"
	EventTypeCardRequested EventType = "card_requested"
	EventTypeHandResolved  EventType = "hand_resolved"
	EventTypeGameReset     EventType = "game_reset"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Outcome classifies how a randomness resolution left the hand.
type Outcome string

const (
	// OutcomeDealt means the hand continues; no settlement happened.
	OutcomeDealt Outcome = "dealt"
	// OutcomeBlackjack means the initial two cards summed to 21.
	OutcomeBlackjack Outcome = "blackjack"
	// OutcomeWin means a drawn card brought the hand to exactly 21.
	OutcomeWin Outcome = "win"
	// OutcomeBust means the hand exceeded 21 and the bet was forfeited.
	OutcomeBust Outcome = "bust"
)

// GameEvent represents any observable event published by the engine.
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
}

// GameStartedEvent is published when a StartGame request is accepted and a
// randomness request has been issued. The hand itself resolves later.
type GameStartedEvent struct {
	Player         string
	HandID         string
	SequenceNumber uint64
	Bet            int64
	timestamp      time.Time
}

func (e GameStartedEvent) EventType() EventType { return EventTypeGameStarted }
func (e GameStartedEvent) Timestamp() time.Time { return e.timestamp }

// CardRequestedEvent is published when a DrawCard request is accepted.
type CardRequestedEvent struct {
	Player         string
	HandID         string
	SequenceNumber uint64
	timestamp      time.Time
}

func (e CardRequestedEvent) EventType() EventType { return EventTypeCardRequested }
func (e CardRequestedEvent) Timestamp() time.Time { return e.timestamp }

// HandResolvedEvent is published when a randomness callback has been applied.
// Payout is the chip delta from settlement: negative on bust, positive on a
// win, zero while the hand continues.
type HandResolvedEvent struct {
	Player         string
	HandID         string
	SequenceNumber uint64
	Cards          []Rank
	Sum            int
	Outcome        Outcome
	Payout         int64
	Chips          int64
	timestamp      time.Time
}

func (e HandResolvedEvent) EventType() EventType { return EventTypeHandResolved }
func (e HandResolvedEvent) Timestamp() time.Time { return e.timestamp }

// GameResetEvent is published when a finished hand is cleared.
type GameResetEvent struct {
	Player    string
	Chips     int64
	timestamp time.Time
}

func (e GameResetEvent) EventType() EventType { return EventTypeGameReset }
func (e GameResetEvent) Timestamp() time.Time { return e.timestamp }

// EventSubscriber receives engine events.
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event GameEvent)
}

// SimpleEventBus is a basic in-memory event bus implementation. Subscribers
// come and go with client connections, so the list is mutex-protected.
type SimpleEventBus struct {
	mu          sync.RWMutex
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
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers synchronously.
func (bus *SimpleEventBus) Publish(event GameEvent) {
	bus.mu.RLock()
	subs := make([]EventSubscriber, len(bus.subscribers))
	copy(subs, bus.subscribers)
	bus.mu.RUnlock()

	for _, subscriber := range subs {
		subscriber.OnEvent(event)
	}
}
