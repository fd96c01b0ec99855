package game

import (
	"sync"
	"time"

	"github.com/lox/blackjacktable/internal/deck"
)

// EventType represents a game event type with type safety
type EventType string

const (
	EventTypeRoundStart   EventType = "round_start"
	EventTypeCardDealt    EventType = "card_dealt"
	EventTypeSeatResolved EventType = "seat_resolved"
	EventTypeDealerDraw   EventType = "dealer_draw"
	EventTypeRoundSettled EventType = "round_settled"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// GameEvent represents any event that occurs during a round
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
}

// RoundStartEvent is published when cards are dealt and play begins
type RoundStartEvent struct {
	ActiveSeats []int
	TotalBet    int
	timestamp   time.Time
}

func (e RoundStartEvent) EventType() EventType { return EventTypeRoundStart }
func (e RoundStartEvent) Timestamp() time.Time { return e.timestamp }

// NewRoundStartEvent creates a new round start event
func NewRoundStartEvent(activeSeats []int, totalBet int) RoundStartEvent {
	return RoundStartEvent{ActiveSeats: activeSeats, TotalBet: totalBet, timestamp: time.Now()}
}

// CardDealtEvent is published for each card dealt to a seat.
// SeatID is 0 for the dealer.
type CardDealtEvent struct {
	SeatID    int
	Card      deck.Card
	Score     int
	timestamp time.Time
}

func (e CardDealtEvent) EventType() EventType { return EventTypeCardDealt }
func (e CardDealtEvent) Timestamp() time.Time { return e.timestamp }

// NewCardDealtEvent creates a new card dealt event
func NewCardDealtEvent(seatID int, card deck.Card, score int) CardDealtEvent {
	return CardDealtEvent{SeatID: seatID, Card: card, Score: score, timestamp: time.Now()}
}

// SeatResolvedEvent is published when a seat takes no further actions
type SeatResolvedEvent struct {
	SeatID    int
	Score     int
	Busted    bool
	timestamp time.Time
}

func (e SeatResolvedEvent) EventType() EventType { return EventTypeSeatResolved }
func (e SeatResolvedEvent) Timestamp() time.Time { return e.timestamp }

// NewSeatResolvedEvent creates a new seat resolved event
func NewSeatResolvedEvent(seatID, score int, busted bool) SeatResolvedEvent {
	return SeatResolvedEvent{SeatID: seatID, Score: score, Busted: busted, timestamp: time.Now()}
}

// DealerDrawEvent is published for each card the dealer draws past the
// initial two
type DealerDrawEvent struct {
	Card      deck.Card
	Score     int
	timestamp time.Time
}

func (e DealerDrawEvent) EventType() EventType { return EventTypeDealerDraw }
func (e DealerDrawEvent) Timestamp() time.Time { return e.timestamp }

// NewDealerDrawEvent creates a new dealer draw event
func NewDealerDrawEvent(card deck.Card, score int) DealerDrawEvent {
	return DealerDrawEvent{Card: card, Score: score, timestamp: time.Now()}
}

// RoundSettledEvent is published once per round with the final record
type RoundSettledEvent struct {
	Record    *RoundRecord
	timestamp time.Time
}

func (e RoundSettledEvent) EventType() EventType { return EventTypeRoundSettled }
func (e RoundSettledEvent) Timestamp() time.Time { return e.timestamp }

// NewRoundSettledEvent creates a new round settled event
func NewRoundSettledEvent(rec *RoundRecord) RoundSettledEvent {
	return RoundSettledEvent{Record: rec, timestamp: time.Now()}
}

// EventHandler processes game events
type EventHandler interface {
	HandleEvent(event GameEvent)
}

// EventBus distributes game events to subscribers
type EventBus struct {
	mu       sync.RWMutex
	handlers []EventHandler
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a handler for all events
func (b *EventBus) Subscribe(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish delivers an event to all subscribers synchronously
func (b *EventBus) Publish(event GameEvent) {
	b.mu.RLock()
	handlers := make([]EventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h.HandleEvent(event)
	}
}

// EventHandlerFunc adapts a function to the EventHandler interface
type EventHandlerFunc func(event GameEvent)

// HandleEvent implements EventHandler
func (f EventHandlerFunc) HandleEvent(event GameEvent) {
	f(event)
}
