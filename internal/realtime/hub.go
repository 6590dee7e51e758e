package realtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/events"
)

// Sender is the write side of one connected session. Implementations must
// be safe for concurrent use; writes are best-effort and must not block
// the hub indefinitely.
type Sender interface {
	Send(event events.Event)
}

// Hub owns the set of connected sessions and delivers events to them.
// It implements events.Broadcaster for the service layer and drives the
// presence registry through the connection lifecycle. Each read-modify-
// broadcast sequence (join/leave/disconnect/kick) runs as one critical
// section so concurrent lifecycle events cannot interleave and lose
// updates.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]Sender
	registry *Registry
	closed   bool
	logger   *slog.Logger
	counter  func(eventType string)
}

var _ events.Broadcaster = (*Hub)(nil)

// NewHub creates a Hub around the given presence registry.
func NewHub(registry *Registry, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions: make(map[string]Sender),
		registry: registry,
		logger:   logger.With(slog.String("component", "realtime_hub")),
	}
}

// SetEventCounter registers a per-event-type counter invoked on every
// emission. Set once during wiring, before any session connects.
func (h *Hub) SetEventCounter(counter func(eventType string)) {
	h.counter = counter
}

// countLocked records one emission of the event type. Caller must hold h.mu.
func (h *Hub) countLocked(eventType events.EventType) {
	if h.counter != nil {
		h.counter(string(eventType))
	}
}

// Connect registers a newly authenticated session and announces the
// updated global presence list to everyone.
func (h *Hub) Connect(sessionID string, userID uuid.UUID, displayName string, sender Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.sessions[sessionID] = sender
	h.registry.Connect(sessionID, userID, displayName)
	h.logger.Debug("session connected",
		slog.String("session_id", sessionID),
		slog.String("user_id", userID.String()))

	h.broadcastGlobalLocked(events.Event{
		Type:    events.EventGlobalPresenceUpdate,
		Payload: h.registry.GlobalUsers(),
	})
}

// Disconnect removes the session from its room and the global map, then
// announces both updated lists.
func (h *Hub) Disconnect(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, sessionID)
	roomID := h.registry.Disconnect(sessionID)
	h.logger.Debug("session disconnected", slog.String("session_id", sessionID))

	if roomID != nil {
		h.broadcastRoomPresenceLocked(*roomID)
	}
	h.broadcastGlobalLocked(events.Event{
		Type:    events.EventGlobalPresenceUpdate,
		Payload: h.registry.GlobalUsers(),
	})
}

// JoinProject moves the session into the project's room (leaving any prior
// room) and announces the room's and the global presence lists.
func (h *Hub) JoinProject(sessionID string, projectID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	previous, ok := h.registry.JoinRoom(sessionID, projectID)
	if !ok {
		h.logger.Warn("join for unknown session", slog.String("session_id", sessionID))
		return
	}

	if previous != nil {
		h.broadcastRoomPresenceLocked(*previous)
	}
	h.broadcastRoomPresenceLocked(projectID)
	h.broadcastGlobalLocked(events.Event{
		Type:    events.EventGlobalPresenceUpdate,
		Payload: h.registry.GlobalUsers(),
	})
}

// LeaveProject removes the session from the project's room and announces
// both updated lists.
func (h *Hub) LeaveProject(sessionID string, projectID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.registry.LeaveRoom(sessionID, projectID) {
		return
	}

	h.broadcastRoomPresenceLocked(projectID)
	h.broadcastGlobalLocked(events.Event{
		Type:    events.EventGlobalPresenceUpdate,
		Payload: h.registry.GlobalUsers(),
	})
}

// BroadcastToProject implements events.Broadcaster.
func (h *Hub) BroadcastToProject(projectID uuid.UUID, event events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.countLocked(event.Type)
	for _, sessionID := range h.registry.RoomSessionIDs(projectID) {
		h.sendLocked(sessionID, event)
	}
}

// BroadcastGlobal implements events.Broadcaster.
func (h *Hub) BroadcastGlobal(event events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.broadcastGlobalLocked(event)
}

// KickFromProject implements events.Broadcaster. Every session the user
// holds in the room is force-left, told to forget the room, and the
// updated presence lists are announced.
func (h *Hub) KickFromProject(projectID, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions := h.registry.SessionsOfUserInRoom(projectID, userID)
	if len(sessions) == 0 {
		return
	}

	h.countLocked(events.EventProjectKicked)
	for _, sessionID := range sessions {
		h.registry.LeaveRoom(sessionID, projectID)
		h.sendLocked(sessionID, events.Event{
			Type:    events.EventProjectKicked,
			Payload: events.KickedPayload{ProjectID: projectID},
		})
	}

	h.broadcastRoomPresenceLocked(projectID)
	h.broadcastGlobalLocked(events.Event{
		Type:    events.EventGlobalPresenceUpdate,
		Payload: h.registry.GlobalUsers(),
	})
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	return h.registry.SessionCount()
}

// RoomCount returns the number of occupied rooms.
func (h *Hub) RoomCount() int {
	return h.registry.RoomCount()
}

// Close terminates the hub: all sessions are forgotten and presence is
// cleared. Senders registered afterwards are rejected.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.sessions = make(map[string]Sender)
	h.registry.Clear()
}

// broadcastRoomPresenceLocked announces a room's current user list to the
// room. Caller must hold h.mu.
func (h *Hub) broadcastRoomPresenceLocked(projectID uuid.UUID) {
	event := events.Event{
		Type:    events.EventPresenceUpdate,
		Payload: h.registry.RoomUsers(projectID),
	}
	h.countLocked(event.Type)
	for _, sessionID := range h.registry.RoomSessionIDs(projectID) {
		h.sendLocked(sessionID, event)
	}
}

// broadcastGlobalLocked delivers an event to every connected session.
// Caller must hold h.mu.
func (h *Hub) broadcastGlobalLocked(event events.Event) {
	h.countLocked(event.Type)
	for sessionID := range h.sessions {
		h.sendLocked(sessionID, event)
	}
}

// sendLocked writes fire-and-forget to one session. Caller must hold h.mu.
func (h *Hub) sendLocked(sessionID string, event events.Event) {
	sender, found := h.sessions[sessionID]
	if !found {
		return
	}
	sender.Send(event)
}
