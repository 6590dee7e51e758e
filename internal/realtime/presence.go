// Package realtime implements the presence registry, the event fanout hub,
// and the websocket transport that connects them to clients.
package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Entry is the ephemeral record of one connected session. One entry per
// session, never per user: a user with two devices holds two entries, so
// one device disconnecting cannot erase the other's presence.
type Entry struct {
	SessionID   string     `json:"session_id"`
	UserID      uuid.UUID  `json:"user_id"`
	DisplayName string     `json:"display_name"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
}

// User is one element of a "who's online" list, deduplicated by user id.
type User struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Registry tracks which sessions are connected and which project room each
// one currently occupies. It is process-local state, rebuilt from the live
// connection set, and never persisted. All methods are safe for concurrent
// use; every read-modify sequence runs under one lock so simultaneous joins
// to the same room cannot overwrite each other.
type Registry struct {
	mu     sync.RWMutex
	global map[string]*Entry                // sessionID -> entry
	rooms  map[uuid.UUID]map[string]*Entry // projectID -> sessionID -> entry
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		global: make(map[string]*Entry),
		rooms:  make(map[uuid.UUID]map[string]*Entry),
	}
}

// Connect registers a newly opened session with no room.
func (r *Registry) Connect(sessionID string, userID uuid.UUID, displayName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.global[sessionID] = &Entry{
		SessionID:   sessionID,
		UserID:      userID,
		DisplayName: displayName,
	}
}

// JoinRoom moves the session into the given project room, removing any
// prior room membership for this session first. It returns the project id
// of the room the session left, if any, and reports whether the session is
// known to the registry.
func (r *Registry) JoinRoom(sessionID string, projectID uuid.UUID) (previous *uuid.UUID, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, found := r.global[sessionID]
	if !found {
		return nil, false
	}

	if entry.ProjectID != nil {
		prev := *entry.ProjectID
		r.removeFromRoomLocked(prev, sessionID)
		if prev != projectID {
			previous = &prev
		}
	}

	room, found := r.rooms[projectID]
	if !found {
		room = make(map[string]*Entry)
		r.rooms[projectID] = room
	}
	room[sessionID] = entry
	pid := projectID
	entry.ProjectID = &pid

	return previous, true
}

// LeaveRoom removes the session from the given project room and clears its
// current room. Leaving a room the session is not in is a no-op.
func (r *Registry) LeaveRoom(sessionID string, projectID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, found := r.global[sessionID]
	if !found || entry.ProjectID == nil || *entry.ProjectID != projectID {
		return false
	}

	r.removeFromRoomLocked(projectID, sessionID)
	entry.ProjectID = nil
	return true
}

// Disconnect removes the session from its room (if any) and from the
// global map. It returns the project id of the room it was in, if any.
func (r *Registry) Disconnect(sessionID string) *uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, found := r.global[sessionID]
	if !found {
		return nil
	}

	var roomID *uuid.UUID
	if entry.ProjectID != nil {
		pid := *entry.ProjectID
		r.removeFromRoomLocked(pid, sessionID)
		roomID = &pid
	}

	delete(r.global, sessionID)
	return roomID
}

// SessionsOfUserInRoom returns the session ids userID currently holds in
// the given project room.
func (r *Registry) SessionsOfUserInRoom(projectID, userID uuid.UUID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []string
	for sessionID, entry := range r.rooms[projectID] {
		if entry.UserID == userID {
			sessions = append(sessions, sessionID)
		}
	}
	return sessions
}

// RoomSessionIDs returns the ids of every session joined to the room.
func (r *Registry) RoomSessionIDs(projectID uuid.UUID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rooms[projectID]))
	for sessionID := range r.rooms[projectID] {
		ids = append(ids, sessionID)
	}
	return ids
}

// RoomUsers returns the "who's online" list for a project room,
// deduplicated by user id.
func (r *Registry) RoomUsers(projectID uuid.UUID) []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return dedupeUsers(r.rooms[projectID])
}

// GlobalUsers returns the global "who's online" list, deduplicated by
// user id.
func (r *Registry) GlobalUsers() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return dedupeUsers(r.global)
}

// RoomCount returns the number of rooms with at least one joined session.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, room := range r.rooms {
		if len(room) > 0 {
			count++
		}
	}
	return count
}

// SessionCount returns the number of connected sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.global)
}

// Clear drops all presence state. Called on shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.global = make(map[string]*Entry)
	r.rooms = make(map[uuid.UUID]map[string]*Entry)
}

// removeFromRoomLocked removes the session from a room map and drops the
// room when it empties. Caller must hold r.mu.
func (r *Registry) removeFromRoomLocked(projectID uuid.UUID, sessionID string) {
	room, found := r.rooms[projectID]
	if !found {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(r.rooms, projectID)
	}
}

func dedupeUsers(entries map[string]*Entry) []User {
	seen := make(map[uuid.UUID]struct{}, len(entries))
	users := make([]User, 0, len(entries))
	for _, entry := range entries {
		if _, dup := seen[entry.UserID]; dup {
			continue
		}
		seen[entry.UserID] = struct{}{}
		users = append(users, User{ID: entry.UserID, Name: entry.DisplayName})
	}
	return users
}
