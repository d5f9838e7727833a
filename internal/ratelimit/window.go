// Package ratelimit implements the per-session sliding window message limiter.
package ratelimit

import "time"

// History is the trailing window of send timestamps of one session.
// The zero value is ready to use.
type History struct {
	stamps []time.Time
}

// Len reports how many timestamps are currently retained.
func (h *History) Len() int {
	return len(h.stamps)
}

// Window is a strict sliding window: at most Max sends within any interval of length Size.
type Window struct {
	Size time.Duration
	Max  int
}

// Limited reports whether a send attempted at now exceeds the window. When it does not, now is
// recorded in h; a rejected attempt is never recorded.
func (w Window) Limited(h *History, now time.Time) bool {
	if h == nil || w.Max <= 0 {
		return false
	}

	kept := h.stamps[:0]
	for _, ts := range h.stamps {
		if now.Sub(ts) < w.Size {
			kept = append(kept, ts)
		}
	}
	h.stamps = kept

	if len(h.stamps) >= w.Max {
		return true
	}
	h.stamps = append(h.stamps, now)
	return false
}
