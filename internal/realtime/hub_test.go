package realtime

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/events"
)

// recordingSender captures every event delivered to a session.
type recordingSender struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSender) Send(event events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSender) received() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSender) typesReceived() []events.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]events.EventType, 0, len(s.events))
	for _, e := range s.events {
		types = append(types, e.Type)
	}
	return types
}

func TestHub_ConnectBroadcastsGlobalPresence(t *testing.T) {
	t.Parallel()

	hub := NewHub(NewRegistry(), nil)
	alice := &recordingSender{}
	bob := &recordingSender{}

	hub.Connect("s1", uuid.New(), "Alice", alice)
	hub.Connect("s2", uuid.New(), "Bob", bob)

	// The earlier session sees both its own connect and Bob's.
	types := alice.typesReceived()
	require.Len(t, types, 2)
	for _, typ := range types {
		assert.Equal(t, events.EventGlobalPresenceUpdate, typ)
	}
	assert.Equal(t, 2, hub.SessionCount())
}

func TestHub_BroadcastToProjectReachesOnlyRoomMembers(t *testing.T) {
	t.Parallel()

	hub := NewHub(NewRegistry(), nil)
	project := uuid.New()
	inRoom := &recordingSender{}
	outside := &recordingSender{}

	hub.Connect("in", uuid.New(), "Alice", inRoom)
	hub.Connect("out", uuid.New(), "Bob", outside)
	hub.JoinProject("in", project)

	event := events.Event{Type: events.EventTaskCreated, Payload: "t"}
	hub.BroadcastToProject(project, event)

	assert.Contains(t, inRoom.typesReceived(), events.EventTaskCreated)
	assert.NotContains(t, outside.typesReceived(), events.EventTaskCreated)
}

func TestHub_JoinProjectBroadcastsRoomPresence(t *testing.T) {
	t.Parallel()

	hub := NewHub(NewRegistry(), nil)
	project := uuid.New()
	alice := &recordingSender{}

	hub.Connect("s1", uuid.New(), "Alice", alice)
	hub.JoinProject("s1", project)

	types := alice.typesReceived()
	assert.Contains(t, types, events.EventPresenceUpdate)
}

func TestHub_SwitchingRoomsNotifiesBoth(t *testing.T) {
	t.Parallel()

	hub := NewHub(NewRegistry(), nil)
	projectA := uuid.New()
	projectB := uuid.New()
	mover := &recordingSender{}
	watcherA := &recordingSender{}

	hub.Connect("mover", uuid.New(), "Alice", mover)
	hub.Connect("watcher", uuid.New(), "Bob", watcherA)
	hub.JoinProject("watcher", projectA)
	hub.JoinProject("mover", projectA)

	countBefore := len(watcherA.received())
	hub.JoinProject("mover", projectB)

	// The watcher in the departed room gets a fresh presence update that
	// no longer includes the mover.
	received := watcherA.received()
	require.Greater(t, len(received), countBefore)
	last := received[len(received)-1]
	assert.Equal(t, events.EventPresenceUpdate, last.Type)
}

func TestHub_DisconnectUpdatesRoomAndGlobal(t *testing.T) {
	t.Parallel()

	hub := NewHub(NewRegistry(), nil)
	project := uuid.New()
	leaver := &recordingSender{}
	stayer := &recordingSender{}

	hub.Connect("leaver", uuid.New(), "Alice", leaver)
	hub.Connect("stayer", uuid.New(), "Bob", stayer)
	hub.JoinProject("leaver", project)
	hub.JoinProject("stayer", project)

	countBefore := len(stayer.received())
	hub.Disconnect("leaver")

	received := stayer.received()
	require.Greater(t, len(received), countBefore)
	types := received[countBefore:]
	var sawRoom, sawGlobal bool
	for _, e := range types {
		switch e.Type {
		case events.EventPresenceUpdate:
			sawRoom = true
		case events.EventGlobalPresenceUpdate:
			sawGlobal = true
		}
	}
	assert.True(t, sawRoom, "room presence should refresh after disconnect")
	assert.True(t, sawGlobal, "global presence should refresh after disconnect")
	assert.Equal(t, 1, hub.SessionCount())
}

func TestHub_KickFromProjectTargetsEverySessionOfUser(t *testing.T) {
	t.Parallel()

	hub := NewHub(NewRegistry(), nil)
	project := uuid.New()
	alice := uuid.New()
	laptop := &recordingSender{}
	phone := &recordingSender{}
	bystander := &recordingSender{}

	hub.Connect("laptop", alice, "Alice", laptop)
	hub.Connect("phone", alice, "Alice", phone)
	hub.Connect("other", uuid.New(), "Bob", bystander)
	hub.JoinProject("laptop", project)
	hub.JoinProject("phone", project)
	hub.JoinProject("other", project)

	hub.KickFromProject(project, alice)

	assert.Contains(t, laptop.typesReceived(), events.EventProjectKicked)
	assert.Contains(t, phone.typesReceived(), events.EventProjectKicked)
	assert.NotContains(t, bystander.typesReceived(), events.EventProjectKicked)

	// Kicked sessions are removed from the room but stay connected.
	users := hub.registry.RoomUsers(project)
	require.Len(t, users, 1)
	assert.Equal(t, 3, hub.SessionCount())
}

func TestHub_CloseDropsEverything(t *testing.T) {
	t.Parallel()

	hub := NewHub(NewRegistry(), nil)
	s := &recordingSender{}
	hub.Connect("s1", uuid.New(), "Alice", s)
	hub.JoinProject("s1", uuid.New())

	hub.Close()
	assert.Equal(t, 0, hub.SessionCount())

	// Operations after Close are no-ops.
	hub.Connect("s2", uuid.New(), "Bob", &recordingSender{})
	assert.Equal(t, 0, hub.SessionCount())
}
