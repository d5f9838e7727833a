package core

import (
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

// Fanout serializes an envelope once and queues it on each target session.
type Fanout struct {
	log     *zerolog.Logger
	metrics *metrics.Metrics
}

// NewFanout builds a Fanout. A nil logger discards output.
func NewFanout(log *zerolog.Logger, m *metrics.Metrics) *Fanout {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	if m == nil {
		m = metrics.New()
	}
	return &Fanout{log: log, metrics: m}
}

// Deliver is fire-and-forget: a session with a full queue misses this frame and the rest still
// get it.
func (f *Fanout) Deliver(targets []*Session, out proto.Outbound) {
	data, err := proto.Encode(out)
	if err != nil {
		f.log.Error().Err(err).Str("type", out.Type).Msg("encode outbound")
		return
	}

	for _, s := range targets {
		if s == nil {
			continue
		}
		if !s.enqueue(Frame{Kind: FrameText, Data: data}) {
			f.metrics.FramesDropped.Add(1)
			f.log.Debug().
				Int64("session_id", int64(s.ID)).
				Str("conn_id", s.ConnID).
				Str("type", out.Type).
				Msg("outbound frame dropped")
			continue
		}
		f.metrics.FramesOut.Add(1)
		if out.Type == proto.TypeError {
			f.metrics.ErrorsSent.Add(1)
		}
	}
}

// Broadcaster picks recipients for an envelope.
type Broadcaster struct {
	users  *UserRegistry
	rooms  *RoomRegistry
	fanout *Fanout
}

// NewBroadcaster wires the registries to a Fanout.
func NewBroadcaster(users *UserRegistry, rooms *RoomRegistry, fanout *Fanout) *Broadcaster {
	return &Broadcaster{users: users, rooms: rooms, fanout: fanout}
}

// ToAll sends to every registered session.
func (b *Broadcaster) ToAll(out proto.Outbound) {
	b.fanout.Deliver(b.users.ListAll(), out)
}

// ToRoom sends to the members of room.
func (b *Broadcaster) ToRoom(room string, out proto.Outbound) {
	b.rooms.BroadcastToRoom(room, out)
}

// ToPair sends one identical copy to sender and receiver. A session paired with itself gets one.
func (b *Broadcaster) ToPair(sender, receiver *Session, out proto.Outbound) {
	if sender == receiver {
		b.fanout.Deliver([]*Session{sender}, out)
		return
	}
	b.fanout.Deliver([]*Session{sender, receiver}, out)
}

// ToSession sends to a single session.
func (b *Broadcaster) ToSession(s *Session, out proto.Outbound) {
	b.fanout.Deliver([]*Session{s}, out)
}
