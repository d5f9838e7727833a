package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWindowRejectsFourthWithinWindow(t *testing.T) {
	req := require.New(t)

	w := Window{Size: 10 * time.Second, Max: 3}
	var h History
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		req.False(w.Limited(&h, start.Add(time.Duration(i)*time.Second)), "send %d", i+1)
	}
	req.True(w.Limited(&h, start.Add(3*time.Second)))
	req.Equal(3, h.Len(), "rejected attempt must not be recorded")

	req.False(w.Limited(&h, start.Add(10*time.Second+time.Millisecond)))
}

func TestWindowSlidesContinuously(t *testing.T) {
	req := require.New(t)

	w := Window{Size: 10 * time.Second, Max: 2}
	var h History
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	req.False(w.Limited(&h, start))
	req.False(w.Limited(&h, start.Add(6*time.Second)))
	req.True(w.Limited(&h, start.Add(9*time.Second)))

	// Only the first stamp has aged out; the second still occupies the window.
	req.False(w.Limited(&h, start.Add(10*time.Second)))
	req.True(w.Limited(&h, start.Add(15*time.Second)))
	req.False(w.Limited(&h, start.Add(16*time.Second)))
}

func TestWindowDisabled(t *testing.T) {
	w := Window{Size: time.Second}
	var h History
	for i := 0; i < 100; i++ {
		if w.Limited(&h, time.Now()) {
			t.Fatalf("zero max must disable limiting")
		}
	}
}
