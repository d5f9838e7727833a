package metrics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotReadsCounters(t *testing.T) {
	m := New()
	m.TotalConnections.Add(3)
	m.ActiveSessions.Add(2)
	m.FramesDropped.Add(1)

	snap := m.Snapshot()
	require.Equal(t, int64(3), snap.TotalConnections)
	require.Equal(t, int64(2), snap.ActiveSessions)
	require.Equal(t, int64(1), snap.FramesDropped)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	require.Contains(t, string(data), `"frames_dropped":1`)
}
