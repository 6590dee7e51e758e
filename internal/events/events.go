// Package events defines the mutation and presence events pushed to
// connected sessions, and the Broadcaster contract the services emit through.
package events

import (
	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
)

// EventType names a server-to-client event.
type EventType string

// Wire event names. These are part of the client protocol and must not change.
const (
	EventTaskCreated   EventType = "task:created"
	EventTaskUpdated   EventType = "task:updated"
	EventTaskDeleted   EventType = "task:deleted"
	EventTaskComment   EventType = "task:comment"
	EventMemberAdded   EventType = "member:added"
	EventMemberRemoved EventType = "member:removed"
	EventStatsChanged  EventType = "task:stats:changed"

	EventPresenceUpdate       EventType = "presence:update"
	EventGlobalPresenceUpdate EventType = "global:presence:update"
	EventProjectKicked        EventType = "project:kicked"
)

// Event is a single push message. The payload is marshalled as-is when the
// event is written to a session.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// TaskDeletedPayload carries only the identifiers of a deleted task, since
// the task itself no longer exists at emission time.
type TaskDeletedPayload struct {
	TaskID    uuid.UUID `json:"task_id"`
	ProjectID uuid.UUID `json:"project_id"`
}

// CommentPayload carries the newly appended comment plus its containing
// task id, not the whole task, to minimize payload.
type CommentPayload struct {
	TaskID  uuid.UUID      `json:"task_id"`
	Comment domain.Comment `json:"comment"`
}

// MemberPayload describes a membership change on a project.
type MemberPayload struct {
	ProjectID uuid.UUID          `json:"project_id"`
	User      domain.UserSummary `json:"user"`
}

// StatsChangedPayload signals that a project's task statistics are stale.
// Dashboards re-fetch on receipt.
type StatsChangedPayload struct {
	ProjectID uuid.UUID `json:"project_id"`
}

// KickedPayload tells a session to forget a room it was removed from.
type KickedPayload struct {
	ProjectID uuid.UUID `json:"project_id"`
}

// Broadcaster delivers events to connected sessions. Delivery is
// fire-and-forget: no acknowledgment, no retry, no persistence. A session
// that is offline at emission time simply never receives the event.
type Broadcaster interface {
	// BroadcastToProject delivers the event to every session currently
	// joined to the project's room.
	BroadcastToProject(projectID uuid.UUID, event Event)

	// BroadcastGlobal delivers the event to every connected session.
	BroadcastGlobal(event Event)

	// KickFromProject force-leaves every session of userID from the
	// project's room and instructs those sessions to forget the room.
	KickFromProject(projectID, userID uuid.UUID)
}

// NopBroadcaster is a Broadcaster that discards everything. Used when the
// realtime layer is not running (tests, one-off tools).
type NopBroadcaster struct{}

// BroadcastToProject implements Broadcaster.
func (NopBroadcaster) BroadcastToProject(uuid.UUID, Event) {}

// BroadcastGlobal implements Broadcaster.
func (NopBroadcaster) BroadcastGlobal(Event) {}

// KickFromProject implements Broadcaster.
func (NopBroadcaster) KickFromProject(uuid.UUID, uuid.UUID) {}
