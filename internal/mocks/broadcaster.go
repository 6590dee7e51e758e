package mocks

import (
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/events"
)

// RoomEvent is one captured room broadcast.
type RoomEvent struct {
	ProjectID uuid.UUID
	Event     events.Event
}

// Kick is one captured kick instruction.
type Kick struct {
	ProjectID uuid.UUID
	UserID    uuid.UUID
}

// RecordingBroadcaster captures every emission for assertion in tests.
type RecordingBroadcaster struct {
	mu     sync.Mutex
	Room   []RoomEvent
	Global []events.Event
	Kicks  []Kick
}

var _ events.Broadcaster = (*RecordingBroadcaster)(nil)

// BroadcastToProject implements events.Broadcaster.
func (b *RecordingBroadcaster) BroadcastToProject(projectID uuid.UUID, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Room = append(b.Room, RoomEvent{ProjectID: projectID, Event: event})
}

// BroadcastGlobal implements events.Broadcaster.
func (b *RecordingBroadcaster) BroadcastGlobal(event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Global = append(b.Global, event)
}

// KickFromProject implements events.Broadcaster.
func (b *RecordingBroadcaster) KickFromProject(projectID, userID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Kicks = append(b.Kicks, Kick{ProjectID: projectID, UserID: userID})
}

// RoomEventTypes returns the types of captured room broadcasts in order.
func (b *RecordingBroadcaster) RoomEventTypes() []events.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]events.EventType, 0, len(b.Room))
	for _, re := range b.Room {
		types = append(types, re.Event.Type)
	}
	return types
}

// GlobalEventTypes returns the types of captured global broadcasts in order.
func (b *RecordingBroadcaster) GlobalEventTypes() []events.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]events.EventType, 0, len(b.Global))
	for _, e := range b.Global {
		types = append(types, e.Type)
	}
	return types
}
