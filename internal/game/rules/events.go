package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a game event.
type EventType string

const (
	EventRoundStarted          EventType = "ROUND_STARTED"
	EventCardPlayed            EventType = "CARD_PLAYED"
	EventEffectApplied         EventType = "EFFECT_APPLIED"
	EventTurnPassed            EventType = "TURN_PASSED"
	EventRoundResolved         EventType = "ROUND_RESOLVED"
	EventParticipantMoved      EventType = "PARTICIPANT_MOVED"
	EventFieldEffectTriggered  EventType = "FIELD_EFFECT_TRIGGERED"
	EventTargetRequested       EventType = "TARGET_REQUESTED"
	EventHandRevealed          EventType = "HAND_REVEALED"
	EventParticipantEliminated EventType = "PARTICIPANT_ELIMINATED"
	EventRoundRestarted        EventType = "ROUND_RESTARTED"
	EventGameOver              EventType = "GAME_OVER"
)

// Event is a state change reported to transports, bots and storage. The
// engine never consumes its own events.
type Event struct {
	Type          EventType `json:"type"`
	GameID        string    `json:"game_id"`
	Round         int       `json:"round"`
	ParticipantID string    `json:"participant_id,omitempty"`
	TargetID      string    `json:"target_id,omitempty"`
	CardID        string    `json:"card_id,omitempty"`
	Amount        int       `json:"amount,omitempty"`
	// Data is the event's main detail, such as an effect name or a color.
	Data        string            `json:"data,omitempty"`
	Targets     []string          `json:"targets,omitempty"`
	Scores      map[string]int    `json:"scores,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Description string            `json:"description,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewEvent stamps an event of the given type.
func NewEvent(eventType EventType, participantID, targetID string) Event {
	return Event{
		Type:          eventType,
		ParticipantID: participantID,
		TargetID:      targetID,
		Timestamp:     time.Now(),
		Metadata:      make(map[string]string),
	}
}

// Listener receives published events.
type Listener func(Event)

type subscription struct {
	handle int
	// only restricts delivery to one type; empty means every event.
	only     EventType
	listener Listener
}

// EventBus delivers events synchronously, in subscription order.
type EventBus struct {
	mu   sync.RWMutex
	subs []subscription
	next int
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a listener for every event and returns its handle,
// or -1 for a nil listener.
func (bus *EventBus) Subscribe(listener Listener) int {
	return bus.add("", listener)
}

// SubscribeTyped registers a listener for one event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, listener Listener) int {
	return bus.add(eventType, listener)
}

func (bus *EventBus) add(only EventType, listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.next
	bus.next++
	bus.subs = append(bus.subs, subscription{handle: handle, only: only, listener: listener})
	return handle
}

// Unsubscribe removes a listener. Unknown handles are ignored.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, sub := range bus.subs {
		if sub.handle == handle {
			bus.subs = append(bus.subs[:i:i], bus.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event. Listeners run outside the bus lock and may
// publish or subscribe themselves.
func (bus *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	bus.mu.RLock()
	subs := bus.subs
	bus.mu.RUnlock()

	for _, sub := range subs {
		if sub.only == "" || sub.only == event.Type {
			sub.listener(event)
		}
	}
}
