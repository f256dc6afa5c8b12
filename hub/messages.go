package hub

import (
	"encoding/json"
	"time"
)

// Message kinds on the realtime channel. Every frame is a JSON envelope with
// a string kind and a payload object.
const (
	// inbound
	KindJoinDocument   = "join-document"
	KindLeaveDocument  = "leave-document"
	KindCursorUpdate   = "cursor-update"
	KindTypingStart    = "typing-start"
	KindTypingStop     = "typing-stop"
	KindDocumentChange = "document-change"

	// outbound
	KindDocumentState   = "document-state"
	KindUserJoined      = "user-joined"
	KindUserLeft        = "user-left"
	KindDocumentUpdated = "document-updated"
	KindAccessDenied    = "access-denied"
	KindError           = "error"
)

type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func envelope(kind string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: kind, Payload: raw}, nil
}

type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s *Selection) valid() bool {
	return s == nil || s.Start <= s.End
}

type JoinPayload struct {
	DocumentID string `json:"documentId"`
	UserID     string `json:"userId"`
}

type LeavePayload struct {
	DocumentID string `json:"documentId"`
}

type CursorPayload struct {
	DocumentID string     `json:"documentId"`
	UserID     string     `json:"userId"`
	SocketID   string     `json:"socketId,omitempty"`
	Position   *int       `json:"position"`
	Selection  *Selection `json:"selection,omitempty"`
	Username   string     `json:"username,omitempty"`
	Color      string     `json:"color,omitempty"`
}

type TypingPayload struct {
	DocumentID string `json:"documentId"`
	UserID     string `json:"userId"`
	SocketID   string `json:"socketId,omitempty"`
}

type ContentChange struct {
	NewContent string    `json:"newContent"`
	Version    int64     `json:"version,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type ContentChangePayload struct {
	DocumentID string        `json:"documentId"`
	UserID     string        `json:"userId"`
	Change     ContentChange `json:"change"`
}

// UserState describes one roster entry inside a document-state snapshot.
type UserState struct {
	UserID    string     `json:"userId"`
	SocketID  string     `json:"socketId"`
	Username  string     `json:"username,omitempty"`
	Color     string     `json:"color"`
	Position  *int       `json:"position,omitempty"`
	Selection *Selection `json:"selection,omitempty"`
	Typing    bool       `json:"typing"`
}

type DocumentStatePayload struct {
	Content      string      `json:"content"`
	Version      int64       `json:"version"`
	LastEdited   time.Time   `json:"lastEdited"`
	CurrentUsers []UserState `json:"currentUsers"`
}

type UserJoinedPayload struct {
	UserID    string    `json:"userId"`
	SocketID  string    `json:"socketId"`
	Username  string    `json:"username,omitempty"`
	Color     string    `json:"color"`
	Timestamp time.Time `json:"timestamp"`
}

type UserLeftPayload struct {
	SocketID  string    `json:"socketId"`
	Timestamp time.Time `json:"timestamp"`
}

type DocumentUpdatedPayload struct {
	UserID   string        `json:"userId"`
	SocketID string        `json:"socketId"`
	Change   ContentChange `json:"change"`
}

type MessagePayload struct {
	Message string `json:"message"`
}
