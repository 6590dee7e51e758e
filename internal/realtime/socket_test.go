package realtime

import (
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/taskhub/internal/events"
)

// stalledPipe returns a connection whose far end never reads, so every
// write on it blocks. The cleanup closes both ends.
func stalledPipe(t *testing.T) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return server
}

func TestPeer_SendNeverBlocksOnStalledConnection(t *testing.T) {
	t.Parallel()

	p := newPeer(slog.Default())
	go p.writeLoop(stalledPipe(t))
	defer p.close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2*sendBufferSize; i++ {
			p.Send(events.Event{Type: events.EventTaskUpdated})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Send blocked on a session that stopped reading")
	}
}

func TestPeer_SendAfterCloseIsDropped(t *testing.T) {
	t.Parallel()

	p := newPeer(slog.Default())
	go p.writeLoop(stalledPipe(t))

	p.close()
	p.Send(events.Event{Type: events.EventTaskUpdated})
	p.sendError("late")
	p.close()
}

func TestHub_StalledSessionDoesNotWedgeHub(t *testing.T) {
	t.Parallel()

	hub := NewHub(NewRegistry(), nil)
	project := uuid.New()

	stalled := newPeer(slog.Default())
	go stalled.writeLoop(stalledPipe(t))
	defer stalled.close()

	healthy := &recordingSender{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Connect("stalled", uuid.New(), "Alice", stalled)
		hub.JoinProject("stalled", project)
		for i := 0; i < 2*sendBufferSize; i++ {
			hub.BroadcastToProject(project, events.Event{Type: events.EventTaskUpdated})
			hub.BroadcastGlobal(events.Event{Type: events.EventStatsChanged})
		}
		// A second session's whole lifecycle still completes.
		hub.Connect("healthy", uuid.New(), "Bob", healthy)
		hub.JoinProject("healthy", project)
		hub.Disconnect("healthy")
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("a session that stopped reading wedged the hub")
	}
	assert.Contains(t, healthy.typesReceived(), events.EventGlobalPresenceUpdate)
	assert.Equal(t, 1, hub.SessionCount())
}
