package core

import (
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/ratelimit"
)

// SessionID identifies a session for the lifetime of the process. Ids start at 1 and are never
// reused.
type SessionID int64

// NoSession is never assigned to a session. Clients use it as the "sent by me" marker when
// grouping private messages, so it must stay reserved.
const NoSession SessionID = 0

// Conn is the transport handle a session owns. Close must not block: the hub calls it from its
// loop when a session is released.
type Conn interface {
	Close(reason string) error
	RemoteAddr() string
}

// FrameKind tells the transport what to do with a queued frame.
type FrameKind int

const (
	// FrameText is a serialized envelope to write as a text message.
	FrameText FrameKind = iota
	// FramePing asks the transport for a liveness probe; it reports the answer with Hub.Pong.
	FramePing
)

// Frame is one unit of outbound work for the transport.
type Frame struct {
	Kind FrameKind
	Data []byte
}

// Session is one connected client. Apart from ID, ConnID and the outbound queue, its fields
// belong to the hub loop and must not be read from other goroutines.
type Session struct {
	ID       SessionID
	ConnID   string
	Username string
	Room     string

	conn     Conn
	alive    bool
	history  ratelimit.History
	outbound chan Frame
	released bool
}

func newSession(id SessionID, connID string, conn Conn, username string, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Session{
		ID:       id,
		ConnID:   connID,
		Username: username,
		conn:     conn,
		alive:    true,
		outbound: make(chan Frame, queueSize),
	}
}

// Outbound is drained by the transport write loop. It is closed when the session is released.
func (s *Session) Outbound() <-chan Frame {
	return s.outbound
}

// Info is the public {id, username} view of the session.
func (s *Session) Info() proto.UserInfo {
	return proto.UserInfo{ID: int64(s.ID), Username: s.Username}
}

// enqueue never blocks. It reports false when the session is gone or its queue is full.
func (s *Session) enqueue(f Frame) bool {
	if s.released {
		return false
	}
	select {
	case s.outbound <- f:
		return true
	default:
		return false
	}
}

// release closes the outbound queue and the transport exactly once.
func (s *Session) release(reason string) {
	if s.released {
		return
	}
	s.released = true
	close(s.outbound)
	_ = s.conn.Close(reason)
}
