// Package metrics keeps relay runtime counters.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics tracks relay statistics. All counters are atomic and safe for concurrent use.
type Metrics struct {
	startTime time.Time

	// Sessions
	TotalConnections atomic.Int64 // sessions registered since start
	ActiveSessions   atomic.Int64 // sessions currently registered
	Disconnects      atomic.Int64 // sessions removed for any reason
	Evictions        atomic.Int64 // sessions removed by the heartbeat monitor
	RejectedUpgrades atomic.Int64 // upgrades refused by authentication

	// Frames
	FramesIn        atomic.Int64 // inbound frames handed to the router
	RateLimited     atomic.Int64 // frames dropped by the rate limiter
	ErrorsSent      atomic.Int64 // ERROR envelopes sent
	FramesOut       atomic.Int64 // frames queued to sessions
	FramesDropped   atomic.Int64 // frames dropped because a session queue was full
	PanicsRecovered atomic.Int64 // frame handlers that panicked

	// Rooms
	RoomsCreated atomic.Int64
	RoomsDeleted atomic.Int64
}

// New creates a Metrics instance with the start time set to now.
func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// Snapshot is a point-in-time, serializable view of Metrics.
type Snapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	TotalConnections int64 `json:"total_connections"`
	ActiveSessions   int64 `json:"active_sessions"`
	Disconnects      int64 `json:"disconnects"`
	Evictions        int64 `json:"evictions"`
	RejectedUpgrades int64 `json:"rejected_upgrades"`

	FramesIn        int64 `json:"frames_in"`
	RateLimited     int64 `json:"rate_limited"`
	ErrorsSent      int64 `json:"errors_sent"`
	FramesOut       int64 `json:"frames_out"`
	FramesDropped   int64 `json:"frames_dropped"`
	PanicsRecovered int64 `json:"panics_recovered"`

	RoomsCreated int64 `json:"rooms_created"`
	RoomsDeleted int64 `json:"rooms_deleted"`
}

// Snapshot reads every counter. Counters are read independently, so the view is not atomic
// across fields.
func (m *Metrics) Snapshot() Snapshot {
	uptime := time.Since(m.startTime).Truncate(time.Second)
	return Snapshot{
		Uptime:           uptime.String(),
		UptimeSeconds:    int64(uptime.Seconds()),
		TotalConnections: m.TotalConnections.Load(),
		ActiveSessions:   m.ActiveSessions.Load(),
		Disconnects:      m.Disconnects.Load(),
		Evictions:        m.Evictions.Load(),
		RejectedUpgrades: m.RejectedUpgrades.Load(),
		FramesIn:         m.FramesIn.Load(),
		RateLimited:      m.RateLimited.Load(),
		ErrorsSent:       m.ErrorsSent.Load(),
		FramesOut:        m.FramesOut.Load(),
		FramesDropped:    m.FramesDropped.Load(),
		PanicsRecovered:  m.PanicsRecovered.Load(),
		RoomsCreated:     m.RoomsCreated.Load(),
		RoomsDeleted:     m.RoomsDeleted.Load(),
	}
}
