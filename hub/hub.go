// Package hub multiplexes realtime sessions over in-memory document rooms.
// Rooms are created lazily on the first join and destroyed when the last
// session leaves; the persistence port remains the source of truth for
// document bodies.
package hub

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"collab-docs/models"
	"collab-docs/services"
	"collab-docs/store"
)

type Hub struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*Room
	store store.Store
}

func New(s store.Store) *Hub {
	return &Hub{
		rooms: make(map[uuid.UUID]*Room),
		store: s,
	}
}

// Connect registers a freshly accepted transport and returns its session.
// The session holds no room membership until a join succeeds.
func (h *Hub) Connect(conn Conn, principal models.Principal) *Session {
	s := newSession(conn, principal)
	slog.Info("session connected", "session", s.ID, "principal", principal.ID)
	return s
}

// Disconnect tears the session down: leaves its room (if any), notifies
// peers, and closes the transport. Safe to call exactly once per session
// from the session's read loop, and again from eviction paths.
func (h *Hub) Disconnect(s *Session) {
	h.leaveRoom(s)
	s.shutdown()
	slog.Info("session disconnected", "session", s.ID)
}

// HandleMessage dispatches one inbound frame. Protocol errors are answered
// with an error message; the session stays open.
func (h *Hub) HandleMessage(s *Session, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.emitError(s, "malformed message")
		return
	}
	switch env.Kind {
	case KindJoinDocument:
		var p JoinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.emitError(s, "malformed join-document payload")
			return
		}
		h.join(s, p)
	case KindLeaveDocument:
		h.leaveRoom(s)
	case KindCursorUpdate:
		var p CursorPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.emitError(s, "malformed cursor-update payload")
			return
		}
		h.cursorUpdate(s, p)
	case KindTypingStart, KindTypingStop:
		var p TypingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.emitError(s, "malformed typing payload")
			return
		}
		h.setTyping(s, p, env.Kind == KindTypingStart)
	case KindDocumentChange:
		var p ContentChangePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.emitError(s, "malformed document-change payload")
			return
		}
		h.contentChange(s, p)
	default:
		h.emitError(s, "unknown message kind: "+env.Kind)
	}
}

func (h *Hub) join(s *Session, p JoinPayload) {
	docID, err := uuid.Parse(p.DocumentID)
	if err != nil {
		h.emitError(s, "documentId must be a valid UUID")
		return
	}
	doc, err := h.store.GetDocument(docID)
	if errors.Is(err, store.ErrNotFound) {
		h.emitError(s, "document not found")
		return
	}
	if err != nil {
		slog.Error("join failed to load document", "document", docID, "err", err)
		h.emitError(s, "failed to load document")
		return
	}
	readable, err := services.CanRead(h.store, doc, s.Principal.ID)
	if err != nil {
		slog.Error("join access check failed", "document", docID, "err", err)
		h.emitError(s, "failed to check access")
		return
	}
	if !readable {
		h.emit(s, KindAccessDenied, MessagePayload{
			Message: "you do not have access to this document",
		})
		return
	}

	// a session occupies one room at a time
	h.leaveRoom(s)

	h.mu.Lock()
	room, ok := h.rooms[docID]
	if !ok {
		room = newRoom(docID, doc.Content, doc.Revision, doc.LastEditedAt)
		h.rooms[docID] = room
	}
	state := room.add(s)
	s.room = room
	h.mu.Unlock()

	h.emit(s, KindDocumentState, state)
	h.fanOut(room, KindUserJoined, UserJoinedPayload{
		UserID:    s.Principal.ID,
		SocketID:  s.ID,
		Username:  s.displayName,
		Color:     s.color,
		Timestamp: time.Now().UTC(),
	}, s)
	slog.Info("session joined room", "session", s.ID, "document", docID)
}

// leaveRoom removes the session from its room, destroying the room when the
// roster empties. A no-op for sessions that never joined.
func (h *Hub) leaveRoom(s *Session) {
	room := s.room
	if room == nil {
		return
	}
	s.room = nil

	h.mu.Lock()
	remaining, wasMember := room.remove(s)
	if remaining == 0 {
		delete(h.rooms, room.documentID)
	}
	h.mu.Unlock()
	if !wasMember {
		return
	}
	if remaining == 0 {
		slog.Info("room destroyed", "document", room.documentID)
		return
	}
	h.fanOut(room, KindUserLeft, UserLeftPayload{
		SocketID:  s.ID,
		Timestamp: time.Now().UTC(),
	}, nil)
}

func (h *Hub) cursorUpdate(s *Session, p CursorPayload) {
	room := h.roomFor(s, p.DocumentID)
	if room == nil {
		return
	}
	if !p.Selection.valid() {
		h.emitError(s, "selection start must not exceed end")
		return
	}
	room.setCursor(s, p.Position, p.Selection, p.Username)
	h.fanOut(room, KindCursorUpdate, CursorPayload{
		DocumentID: p.DocumentID,
		UserID:     s.Principal.ID,
		SocketID:   s.ID,
		Position:   p.Position,
		Selection:  p.Selection,
		Username:   s.displayName,
		Color:      s.color,
	}, s)
}

func (h *Hub) setTyping(s *Session, p TypingPayload, typing bool) {
	room := h.roomFor(s, p.DocumentID)
	if room == nil {
		return
	}
	room.setTyping(s, typing)
	kind := KindTypingStop
	if typing {
		kind = KindTypingStart
	}
	h.fanOut(room, kind, TypingPayload{
		DocumentID: p.DocumentID,
		UserID:     s.Principal.ID,
		SocketID:   s.ID,
	}, s)
}

// contentChange persists the pushed body through the port, refreshes the
// room cache, and fans out the update. The room lock is never held across
// the database write; revision monotonicity resolves racing writers.
func (h *Hub) contentChange(s *Session, p ContentChangePayload) {
	room := h.roomFor(s, p.DocumentID)
	if room == nil {
		return
	}
	if len(p.Change.NewContent) > models.MaxContentBytes {
		h.emitError(s, "content exceeds the size ceiling")
		return
	}
	revision, err := h.store.UpdateDocumentBody(room.documentID, p.Change.NewContent)
	if errors.Is(err, store.ErrNotFound) {
		h.emitError(s, "document not found")
		return
	}
	if err != nil {
		slog.Error("content broadcast persist failed", "document", room.documentID, "err", err)
		h.emitError(s, "failed to save document")
		return
	}
	now := time.Now().UTC()
	room.updateContent(p.Change.NewContent, revision, now)
	h.fanOut(room, KindDocumentUpdated, DocumentUpdatedPayload{
		UserID:   s.Principal.ID,
		SocketID: s.ID,
		Change: ContentChange{
			NewContent: p.Change.NewContent,
			Version:    revision,
			Timestamp:  now,
		},
	}, s)
}

// roomFor resolves the room a message addresses, which must be the one the
// session has joined.
func (h *Hub) roomFor(s *Session, documentID string) *Room {
	room := s.room
	if room == nil {
		h.emitError(s, "join the document first")
		return nil
	}
	if documentID != "" && documentID != room.documentID.String() {
		h.emitError(s, "message addresses a document this session has not joined")
		return nil
	}
	return room
}

// fanOut broadcasts to the room and evicts any session whose outbound queue
// overflowed.
func (h *Hub) fanOut(room *Room, kind string, payload any, exclude *Session) {
	env, err := envelope(kind, payload)
	if err != nil {
		slog.Error("failed to encode broadcast", "kind", kind, "err", err)
		return
	}
	for _, slow := range room.broadcast(env, exclude) {
		slog.Warn("dropping slow session", "session", slow.ID, "document", room.documentID)
		h.mu.Lock()
		remaining, wasMember := room.remove(slow)
		if remaining == 0 {
			delete(h.rooms, room.documentID)
		}
		h.mu.Unlock()
		slow.shutdown()
		if wasMember && remaining > 0 {
			h.fanOut(room, KindUserLeft, UserLeftPayload{
				SocketID:  slow.ID,
				Timestamp: time.Now().UTC(),
			}, nil)
		}
	}
}

func (h *Hub) emit(s *Session, kind string, payload any) {
	env, err := envelope(kind, payload)
	if err != nil {
		slog.Error("failed to encode message", "kind", kind, "err", err)
		return
	}
	s.enqueue(env)
}

func (h *Hub) emitError(s *Session, message string) {
	h.emit(s, KindError, MessagePayload{Message: message})
}
