package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	addr string

	mu      sync.Mutex
	closes  int
	reasons []string
}

func newFakeConn(addr string) *fakeConn {
	return &fakeConn{addr: addr}
}

func (c *fakeConn) Close(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	c.reasons = append(c.reasons, reason)
	return nil
}

func (c *fakeConn) RemoteAddr() string { return c.addr }

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func (c *fakeConn) lastReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.reasons) == 0 {
		return ""
	}
	return c.reasons[len(c.reasons)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 678_000_000, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type envelope struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func (e envelope) str(key string) string {
	s, _ := e.Payload[key].(string)
	return s
}

func (e envelope) num(key string) int64 {
	f, _ := e.Payload[key].(float64)
	return int64(f)
}

func testSettings() Settings {
	s := DefaultSettings()
	s.RateLimitMaxMessages = 1000
	return s
}

// startHub runs a hub driven by a manual ticker until the test ends.
func startHub(t *testing.T, settings Settings, opts ...Option) (*Hub, chan time.Time) {
	t.Helper()

	ticks := make(chan time.Time)
	opts = append([]Option{WithTicker(ticks)}, opts...)
	hub := NewHub(settings, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub, ticks
}

func connect(t *testing.T, hub *Hub, name string) (*Session, *fakeConn) {
	t.Helper()

	conn := newFakeConn(name + ":1")
	s, err := hub.Connect(context.Background(), conn, name)
	require.NoError(t, err)
	return s, conn
}

func send(t *testing.T, hub *Hub, s *Session, format string, args ...any) {
	t.Helper()
	require.NoError(t, hub.Deliver(context.Background(), s, []byte(fmt.Sprintf(format, args...))))
}

// settle returns once every command submitted before it has been handled.
func settle(t *testing.T, hub *Hub) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := hub.Users(ctx)
	require.NoError(t, err)
}

func mustFrame(t *testing.T, s *Session, kind string) envelope {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case f, ok := <-s.Outbound():
			if !ok {
				t.Fatalf("session %d closed while waiting for %s", s.ID, kind)
			}
			if f.Kind != FrameText {
				continue
			}
			var env envelope
			require.NoError(t, json.Unmarshal(f.Data, &env))
			if env.Type == kind {
				return env
			}
		case <-deadline:
			t.Fatalf("expected %s frame for session %d not received", kind, s.ID)
		}
	}
}

// drain discards queued frames. Call settle first.
func drain(s *Session) {
	for {
		select {
		case _, ok := <-s.Outbound():
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// requireQuiet asserts nothing is queued for s. Call settle first.
func requireQuiet(t *testing.T, s *Session) {
	t.Helper()
	select {
	case f, ok := <-s.Outbound():
		if ok {
			t.Fatalf("unexpected frame for session %d: kind=%d %s", s.ID, f.Kind, f.Data)
		}
	default:
	}
}

func requireClosed(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-s.Outbound():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("outbound queue of session %d not closed", s.ID)
		}
	}
}
