package core

import (
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/metrics"
)

// ReasonHeartbeatTimeout is the close reason for sessions that missed a liveness probe.
const ReasonHeartbeatTimeout = "heartbeat timeout"

// Heartbeat evicts sessions that did not answer the previous probe and probes the rest.
type Heartbeat struct {
	users   *UserRegistry
	evict   func(s *Session, reason string)
	log     *zerolog.Logger
	metrics *metrics.Metrics
}

// Sweep runs one tick. A session is evicted on the second consecutive tick without a pong.
func (h *Heartbeat) Sweep() {
	for _, s := range h.users.ListAll() {
		if !s.alive {
			h.metrics.Evictions.Add(1)
			h.log.Info().
				Int64("session_id", int64(s.ID)).
				Str("conn_id", s.ConnID).
				Msg("session evicted")
			h.evict(s, ReasonHeartbeatTimeout)
			continue
		}
		s.alive = false
		if !s.enqueue(Frame{Kind: FramePing}) {
			// The write loop is backed up; the next tick decides.
			h.metrics.FramesDropped.Add(1)
		}
	}
}
