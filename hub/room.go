package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ten display hues; sessions cycle through them per room. Assignment is not
// stable across reconnects.
var colorPalette = [10]string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#008080",
}

// Room is the in-memory fan-out structure for one document. It caches the
// latest body to seed joiners; the persistence port stays the source of
// truth. The mutex guards the roster and the cached body and is never held
// across a transport write.
type Room struct {
	documentID uuid.UUID

	mu         sync.Mutex
	body       string
	revision   int64
	lastEdited time.Time
	sessions   map[string]*Session
	colorIdx   int
}

func newRoom(documentID uuid.UUID, body string, revision int64, lastEdited time.Time) *Room {
	return &Room{
		documentID: documentID,
		body:       body,
		revision:   revision,
		lastEdited: lastEdited,
		sessions:   make(map[string]*Session),
	}
}

// add puts the session on the roster, assigns its color, and returns the
// state snapshot seeded to the joiner.
func (r *Room) add(s *Session) DocumentStatePayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.color = colorPalette[r.colorIdx%len(colorPalette)]
	r.colorIdx++
	r.sessions[s.ID] = s
	peers := make([]UserState, 0, len(r.sessions)-1)
	for id, peer := range r.sessions {
		if id == s.ID {
			continue
		}
		peers = append(peers, peer.state())
	}
	return DocumentStatePayload{
		Content:      r.body,
		Version:      r.revision,
		LastEdited:   r.lastEdited,
		CurrentUsers: peers,
	}
}

// remove drops the session from the roster and reports how many remain.
func (r *Room) remove(s *Session) (remaining int, wasMember bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return len(r.sessions), false
	}
	delete(r.sessions, s.ID)
	return len(r.sessions), true
}

func (r *Room) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions) == 0
}

// broadcast enqueues the envelope to every roster member except the sender.
// Enqueueing under the lock fixes the acceptance order every peer observes;
// the actual transport writes happen on per-session writer goroutines.
// Sessions whose queues are full are returned for the hub to drop.
func (r *Room) broadcast(env Envelope, exclude *Session) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var overflowed []*Session
	for _, peer := range r.sessions {
		if exclude != nil && peer.ID == exclude.ID {
			continue
		}
		if !peer.enqueue(env) {
			overflowed = append(overflowed, peer)
		}
	}
	return overflowed
}

// setCursor records the sender's cursor state so future joiners see it in
// their snapshot.
func (r *Room) setCursor(s *Session, position *int, selection *Selection, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.cursor = position
	s.selection = selection
	if username != "" {
		s.displayName = username
	}
}

func (r *Room) setTyping(s *Session, typing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.typing = typing
}

// updateContent swaps the cached body when the revision advances, and
// reports whether it did. Stale revisions are discarded so an out-of-order
// notification from a concurrent writer never regresses the cache.
func (r *Room) updateContent(body string, revision int64, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if revision <= r.revision {
		return false
	}
	r.body = body
	r.revision = revision
	r.lastEdited = at
	return true
}
