package core

import (
	"fmt"
	"sort"

	"github.com/vovakirdan/chatrelay/internal/utils"
)

// UserRegistry is the table of connected sessions. It is not safe for concurrent use; the hub
// loop is its only caller.
type UserRegistry struct {
	nextID    SessionID
	queueSize int
	byID      map[SessionID]*Session
	byConn    map[Conn]*Session
}

// NewUserRegistry creates an empty registry whose sessions get outbound queues of queueSize.
func NewUserRegistry(queueSize int) *UserRegistry {
	return &UserRegistry{
		queueSize: queueSize,
		byID:      make(map[SessionID]*Session),
		byConn:    make(map[Conn]*Session),
	}
}

// Register allocates the next id and makes the session visible to lookups immediately.
// An empty suggestion yields Guest_<id>.
func (r *UserRegistry) Register(conn Conn, suggested string) *Session {
	r.nextID++
	id := r.nextID

	username := suggested
	if username == "" {
		username = fmt.Sprintf("Guest_%d", id)
	}

	s := newSession(id, utils.NewID(), conn, username, r.queueSize)
	r.byID[id] = s
	r.byConn[conn] = s
	return s
}

// Unregister removes the session bound to conn. A second call reports false.
func (r *UserRegistry) Unregister(conn Conn) (*Session, bool) {
	s, ok := r.byConn[conn]
	if !ok {
		return nil, false
	}
	delete(r.byConn, conn)
	delete(r.byID, s.ID)
	return s, true
}

// FindByConnection looks a session up by its transport handle.
func (r *UserRegistry) FindByConnection(conn Conn) (*Session, bool) {
	s, ok := r.byConn[conn]
	return s, ok
}

// FindByID looks a session up by id.
func (r *UserRegistry) FindByID(id SessionID) (*Session, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// ListAll returns a snapshot of all sessions ordered by id.
func (r *UserRegistry) ListAll() []*Session {
	out := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Rename changes the display name in place. Duplicate names are allowed.
func (r *UserRegistry) Rename(s *Session, username string) {
	s.Username = username
}

// Len reports the number of registered sessions.
func (r *UserRegistry) Len() int {
	return len(r.byID)
}
