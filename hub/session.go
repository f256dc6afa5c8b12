package hub

import (
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"collab-docs/models"
)

// Conn is the transport half of a session. *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// outboundDepth bounds the per-session send queue. A session that falls this
// far behind the room's broadcast stream is dropped rather than allowed to
// stall its peers.
const outboundDepth = 256

// Session is one connected client. Cursor state is guarded by the room lock
// of whichever room the session has joined.
type Session struct {
	ID        string
	Principal models.Principal

	conn   Conn
	out    chan Envelope
	sendMu sync.Mutex
	closed bool

	// joined room; nil while CONNECTED. Read and written only from the
	// goroutine that delivers this session's inbound messages.
	room *Room

	// roster state, guarded by room.mu after join.
	displayName string
	color       string
	cursor      *int
	selection   *Selection
	typing      bool
}

func newSession(conn Conn, principal models.Principal) *Session {
	s := &Session{
		ID:          ulid.Make().String(),
		Principal:   principal,
		conn:        conn,
		out:         make(chan Envelope, outboundDepth),
		displayName: principal.Name,
	}
	go s.writeLoop()
	return s
}

func (s *Session) writeLoop() {
	for env := range s.out {
		if err := s.conn.WriteJSON(env); err != nil {
			slog.Debug("session write failed", "session", s.ID, "err", err)
			s.conn.Close()
			// keep draining so enqueuers never block
		}
	}
	s.conn.Close()
}

// enqueue hands an envelope to the writer goroutine. It never blocks; false
// means the queue is full and the session should be dropped. Envelopes for a
// session already shut down are discarded.
func (s *Session) enqueue(env Envelope) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.out <- env:
		return true
	default:
		return false
	}
}

// shutdown closes the outbound queue exactly once; the writer goroutine then
// closes the transport.
func (s *Session) shutdown() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}

func (s *Session) state() UserState {
	return UserState{
		UserID:    s.Principal.ID,
		SocketID:  s.ID,
		Username:  s.displayName,
		Color:     s.color,
		Position:  s.cursor,
		Selection: s.selection,
		Typing:    s.typing,
	}
}
