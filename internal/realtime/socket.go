package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/phrazzld/taskhub/internal/service/auth"
	"github.com/phrazzld/taskhub/internal/store"
)

const maxDecodeErrorsPerConn = 3

// Client-to-server frame types.
const (
	frameProjectJoin  = "project:join"
	frameProjectLeave = "project:leave"
)

// clientFrame is one message received from a session.
type clientFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// roomPayload carries the project id of a join/leave request.
type roomPayload struct {
	ProjectID uuid.UUID `json:"project_id"`
}

// errorFrame is sent back to a session for a rejected frame.
type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// MembershipChecker answers whether a user may join a project room.
type MembershipChecker interface {
	IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
}

// sendBufferSize bounds the per-session outbound queue. A session whose
// socket stops draining loses events past this depth.
const sendBufferSize = 64

// peer owns the write side of one websocket connection. Outbound frames
// go onto a bounded queue drained by a single writer goroutine, so a
// session that stops reading can never block the hub: once the queue is
// full, further frames are dropped.
type peer struct {
	mu     sync.Mutex
	out    chan any
	closed bool
	log    *slog.Logger
}

func newPeer(log *slog.Logger) *peer {
	return &peer{
		out: make(chan any, sendBufferSize),
		log: log,
	}
}

// writeLoop encodes queued frames onto the connection until close is
// called. It is the only goroutine that writes to conn.
func (p *peer) writeLoop(conn io.Writer) {
	enc := json.NewEncoder(conn)
	for frame := range p.out {
		if err := enc.Encode(frame); err != nil {
			p.log.Debug("dropping frame for unreachable session", slog.String("error", err.Error()))
		}
	}
}

// Send implements Sender. Never blocks; delivery is best-effort by
// contract.
func (p *peer) Send(event events.Event) {
	p.enqueue(event)
}

func (p *peer) sendError(message string) {
	p.enqueue(errorFrame{Type: "error", Error: message})
}

func (p *peer) enqueue(frame any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.out <- frame:
	default:
		p.log.Debug("dropping frame for slow session")
	}
}

// close stops the writer goroutine once the queue drains. No frame is
// accepted afterwards.
func (p *peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.out)
}

// SocketHandler upgrades authenticated HTTP requests to websocket sessions
// and drives the hub through each session's lifecycle.
type SocketHandler struct {
	hub        *Hub
	jwtService auth.JWTService
	userStore  store.UserStore
	membership MembershipChecker
	logger     *slog.Logger
}

// NewSocketHandler creates a SocketHandler with the given dependencies.
func NewSocketHandler(
	hub *Hub,
	jwtService auth.JWTService,
	userStore store.UserStore,
	membership MembershipChecker,
	logger *slog.Logger,
) *SocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketHandler{
		hub:        hub,
		jwtService: jwtService,
		userStore:  userStore,
		membership: membership,
		logger:     logger.With(slog.String("component", "socket")),
	}
}

type socketUserKey struct{}

// ServeHTTP authenticates the connection before the websocket handshake.
// A missing or invalid token rejects the connection; no event is sent or
// received without a valid session.
func (h *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := tokenFromRequest(r)
	if token == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	claims, err := h.jwtService.ValidateToken(r.Context(), token)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	user, err := h.userStore.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		h.logger.Error("failed to resolve socket user",
			slog.String("error", err.Error()),
			slog.String("user_id", claims.UserID.String()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	ctx := context.WithValue(r.Context(), socketUserKey{}, user.Summary())
	websocket.Handler(h.handleConn).ServeHTTP(w, r.WithContext(ctx))
}

// handleConn runs one session: register, frame loop, unregister.
func (h *SocketHandler) handleConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	request := conn.Request()
	summary, ok := request.Context().Value(socketUserKey{}).(domain.UserSummary)
	if !ok {
		return
	}

	sessionID := uuid.NewString()
	p := newPeer(h.logger.With(slog.String("session_id", sessionID)))
	go p.writeLoop(conn)
	defer p.close()

	h.hub.Connect(sessionID, summary.ID, summary.Name, p)
	defer h.hub.Disconnect(sessionID)

	decoder := json.NewDecoder(conn)
	decodeErrors := 0
	for {
		var frame clientFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			p.sendError("invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		switch frame.Type {
		case frameProjectJoin:
			h.handleJoin(request.Context(), sessionID, summary.ID, p, frame)
		case frameProjectLeave:
			h.handleLeave(sessionID, p, frame)
		default:
			p.sendError("unsupported frame type")
		}
	}
}

func (h *SocketHandler) handleJoin(ctx context.Context, sessionID string, userID uuid.UUID, p *peer, frame clientFrame) {
	var payload roomPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.ProjectID == uuid.Nil {
		p.sendError("invalid join payload")
		return
	}

	member, err := h.membership.IsMember(ctx, payload.ProjectID, userID)
	if err != nil {
		if store.IsNotFoundError(err) {
			p.sendError("project not found")
			return
		}
		h.logger.Error("membership check failed during join",
			slog.String("error", err.Error()),
			slog.String("project_id", payload.ProjectID.String()))
		p.sendError("membership verification unavailable")
		return
	}
	if !member {
		p.sendError("membership required to join project")
		return
	}

	h.hub.JoinProject(sessionID, payload.ProjectID)
}

func (h *SocketHandler) handleLeave(sessionID string, p *peer, frame clientFrame) {
	var payload roomPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.ProjectID == uuid.Nil {
		p.sendError("invalid leave payload")
		return
	}

	h.hub.LeaveProject(sessionID, payload.ProjectID)
}

// tokenFromRequest extracts the bearer token from the Authorization header
// or the token query parameter (browsers cannot set headers on websocket
// connections).
func tokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
