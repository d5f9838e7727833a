package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/moderation"
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/ratelimit"
	"github.com/vovakirdan/chatrelay/internal/validate"
)

const (
	commandQueueSize = 256

	// ReasonClientGone is used when the transport reports the connection ended.
	ReasonClientGone = "connection closed"
	// ReasonShutdown is used for sessions released when the hub stops.
	ReasonShutdown = "server shutting down"
)

// Settings bounds the chat behaviour.
type Settings struct {
	RateLimitWindow      time.Duration
	RateLimitMaxMessages int
	MaxMessageLength     int
	MaxUsernameLength    int
	MaxRoomNameLength    int
	HeartbeatInterval    time.Duration
	SendQueueSize        int
}

// DefaultSettings mirrors the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		RateLimitWindow:      10 * time.Second,
		RateLimitMaxMessages: 10,
		MaxMessageLength:     500,
		MaxUsernameLength:    20,
		MaxRoomNameLength:    32,
		HeartbeatInterval:    30 * time.Second,
		SendQueueSize:        64,
	}
}

// Option customizes a Hub.
type Option func(*Hub)

// WithClock replaces time.Now for timestamps and rate limiting.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// WithTicker drives heartbeat sweeps from ticks instead of an internal ticker.
func WithTicker(ticks <-chan time.Time) Option {
	return func(h *Hub) { h.ticks = ticks }
}

// WithMetrics shares a metrics instance with the transport.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithCensor masks chat text.
func WithCensor(c *moderation.Censor) Option {
	return func(h *Hub) { h.censor = c }
}

// WithLogger sets the hub logger.
func WithLogger(log *zerolog.Logger) Option {
	return func(h *Hub) { h.log = log }
}

// Hub owns every session and room. All state changes happen on the goroutine running Run, so
// the registries need no locks.
type Hub struct {
	settings Settings
	now      func() time.Time
	ticks    <-chan time.Time
	log      *zerolog.Logger
	metrics  *metrics.Metrics
	censor   *moderation.Censor

	users     *UserRegistry
	rooms     *RoomRegistry
	out       *Broadcaster
	router    *Router
	heartbeat *Heartbeat

	commands chan Command
	done     chan struct{}
}

// NewHub builds a hub. Call Run to start processing.
func NewHub(settings Settings, opts ...Option) *Hub {
	nop := zerolog.Nop()
	h := &Hub{
		settings: settings,
		now:      time.Now,
		log:      &nop,
		commands: make(chan Command, commandQueueSize),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = metrics.New()
	}

	fanout := NewFanout(h.log, h.metrics)
	h.users = NewUserRegistry(settings.SendQueueSize)
	h.rooms = NewRoomRegistry(h.users, fanout, h.now, h.metrics)
	h.out = NewBroadcaster(h.users, h.rooms, fanout)
	h.router = &Router{
		users: h.users,
		rooms: h.rooms,
		out:   h.out,
		limiter: ratelimit.Window{
			Size: settings.RateLimitWindow,
			Max:  settings.RateLimitMaxMessages,
		},
		rules: validate.Rules{
			MaxMessageLength:  settings.MaxMessageLength,
			MaxUsernameLength: settings.MaxUsernameLength,
			MaxRoomNameLength: settings.MaxRoomNameLength,
		},
		censor:  h.censor,
		now:     h.now,
		log:     h.log,
		metrics: h.metrics,
	}
	h.heartbeat = &Heartbeat{
		users:   h.users,
		evict:   h.disconnect,
		log:     h.log,
		metrics: h.metrics,
	}
	return h
}

// Metrics exposes the counters the hub updates.
func (h *Hub) Metrics() *metrics.Metrics {
	return h.metrics
}

// Done is closed once Run has returned and every session was released.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run processes commands and heartbeat ticks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticks := h.ticks
	if ticks == nil && h.settings.HeartbeatInterval > 0 {
		ticker := time.NewTicker(h.settings.HeartbeatInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-h.commands:
			h.safely(cmd.Session, func() { h.handle(cmd) })
		case <-ticks:
			h.safely(nil, h.heartbeat.Sweep)
		}
	}
}

// Connect registers conn and announces it to everyone, the new session included. Once the
// command is accepted the call waits for registration even if ctx ends, so the caller always
// learns about a session it must disconnect.
func (h *Hub) Connect(ctx context.Context, conn Conn, suggested string) (*Session, error) {
	reply := make(chan *Session, 1)
	if err := h.submit(ctx, Command{Kind: CommandConnect, Conn: conn, Username: suggested, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-h.done:
		return nil, ErrHubClosed
	}
}

// Deliver queues a raw inbound frame for routing. Frames of one session are routed in the order
// they were delivered.
func (h *Hub) Deliver(ctx context.Context, s *Session, raw []byte) error {
	return h.submit(ctx, Command{Kind: CommandFrame, Session: s, Data: raw})
}

// Disconnect leaves the session's room, unregisters it and announces the departure. Repeated
// calls are no-ops.
func (h *Hub) Disconnect(s *Session) {
	_ = h.submit(context.Background(), Command{Kind: CommandDisconnect, Session: s, Reason: ReasonClientGone})
}

// Pong marks s alive. It is called by the transport when a liveness probe is answered.
func (h *Hub) Pong(s *Session) {
	_ = h.submit(context.Background(), Command{Kind: CommandPong, Session: s})
}

// Users returns the connected sessions ordered by id.
func (h *Hub) Users(ctx context.Context) ([]proto.UserInfo, error) {
	return query(ctx, h, func() []proto.UserInfo {
		return lo.Map(h.users.ListAll(), func(s *Session, _ int) proto.UserInfo { return s.Info() })
	})
}

// Rooms returns every room with its member count.
func (h *Hub) Rooms(ctx context.Context) ([]proto.RoomInfo, error) {
	return query(ctx, h, h.rooms.List)
}

// RoomMembers returns the members of room, empty when it does not exist.
func (h *Hub) RoomMembers(ctx context.Context, room string) ([]proto.UserInfo, error) {
	return query(ctx, h, func() []proto.UserInfo { return h.rooms.Members(room) })
}

// query runs fn on the hub loop and hands its result back over a buffered channel, so a caller
// that gave up never shares memory with a late run.
func query[T any](ctx context.Context, h *Hub, fn func() T) (T, error) {
	var zero T
	result := make(chan T, 1)
	finished := make(chan struct{})
	cmd := Command{Kind: CommandCall, Call: func() {
		defer close(finished)
		result <- fn()
	}}
	if err := h.submit(ctx, cmd); err != nil {
		return zero, err
	}
	select {
	case <-finished:
		select {
		case v := <-result:
			return v, nil
		default:
			return zero, errQueryFailed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.done:
		return zero, ErrHubClosed
	}
}

func (h *Hub) submit(ctx context.Context, cmd Command) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) handle(cmd Command) {
	switch cmd.Kind {
	case CommandConnect:
		cmd.reply <- h.connect(cmd.Conn, cmd.Username)
	case CommandFrame:
		if cmd.Session != nil {
			h.router.Handle(cmd.Session, cmd.Data)
		}
	case CommandDisconnect:
		if cmd.Session != nil {
			h.disconnect(cmd.Session, cmd.Reason)
		}
	case CommandPong:
		if h.registered(cmd.Session) {
			cmd.Session.alive = true
		}
	case CommandCall:
		cmd.Call()
	default:
		h.log.Warn().Int("kind", int(cmd.Kind)).Msg("unknown hub command")
	}
}

func (h *Hub) connect(conn Conn, suggested string) *Session {
	s := h.users.Register(conn, suggested)
	h.metrics.TotalConnections.Add(1)
	h.metrics.ActiveSessions.Add(1)
	h.log.Info().
		Int64("session_id", int64(s.ID)).
		Str("conn_id", s.ConnID).
		Str("remote", conn.RemoteAddr()).
		Str("username", s.Username).
		Msg("session connected")

	h.out.ToAll(proto.Outbound{
		Type: proto.TypeUserJoined,
		Payload: proto.PresencePayload{
			ID:        int64(s.ID),
			Username:  s.Username,
			Timestamp: proto.Timestamp(h.now()),
		},
	})
	return s
}

func (h *Hub) disconnect(s *Session, reason string) {
	if !h.registered(s) {
		return
	}
	h.rooms.Leave(s)
	h.users.Unregister(s.conn)
	s.release(reason)

	h.metrics.ActiveSessions.Add(-1)
	h.metrics.Disconnects.Add(1)
	h.log.Info().
		Int64("session_id", int64(s.ID)).
		Str("conn_id", s.ConnID).
		Str("reason", reason).
		Msg("session disconnected")

	h.out.ToAll(proto.Outbound{
		Type: proto.TypeUserLeft,
		Payload: proto.PresencePayload{
			ID:        int64(s.ID),
			Username:  s.Username,
			Timestamp: proto.Timestamp(h.now()),
		},
	})
}

// registered reports whether s is still the session bound to its connection.
func (h *Hub) registered(s *Session) bool {
	if s == nil {
		return false
	}
	current, ok := h.users.FindByConnection(s.conn)
	return ok && current == s
}

// safely runs fn and converts a panic into a log line; the offending frame is dropped and the
// connection stays open.
func (h *Hub) safely(s *Session, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			h.metrics.PanicsRecovered.Add(1)
			ev := h.log.Error().Str("panic", fmt.Sprint(rec))
			if s != nil {
				ev = ev.Int64("session_id", int64(s.ID)).Str("conn_id", s.ConnID)
			}
			ev.Msg("recovered from panic in hub loop")
		}
	}()
	fn()
}

func (h *Hub) shutdown() {
	for _, s := range h.users.ListAll() {
		h.users.Unregister(s.conn)
		s.release(ReasonShutdown)
		h.metrics.ActiveSessions.Add(-1)
	}
	h.rooms.clear()
	close(h.done)
	h.log.Info().Msg("hub stopped")
}
