package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) {
	t.Helper()
	resp, err := ts.Client().Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestAPISnapshots(t *testing.T) {
	ts, _ := startTestServer(t, config.Default(), auth.Anonymous{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(ctx, t, wsURL(ts, "/ws"))
	sendJSON(ctx, t, conn, proto.TypeRoomJoin, map[string]string{"room": "game night"})
	readUntil(ctx, t, conn, proto.TypeRoomNotification, nil)

	var users UsersResponse
	getJSON(t, ts, "/api/users", &users)
	require.Equal(t, []proto.UserInfo{{ID: 1, Username: "Guest_1"}}, users.Users)

	var rooms RoomsResponse
	getJSON(t, ts, "/api/rooms", &rooms)
	require.Equal(t, []proto.RoomInfo{{Name: "game night", Members: 1}}, rooms.Rooms)

	var members RoomMembersResponse
	getJSON(t, ts, "/api/rooms/"+url.PathEscape("game night")+"/members", &members)
	require.Equal(t, "game night", members.Room)
	require.Len(t, members.Members, 1)

	getJSON(t, ts, "/api/rooms/nowhere/members", &members)
	require.Empty(t, members.Members)

	var snap metrics.Snapshot
	getJSON(t, ts, "/metrics", &snap)
	require.Equal(t, int64(1), snap.TotalConnections)
	require.Equal(t, int64(1), snap.ActiveSessions)
	require.Equal(t, int64(1), snap.RoomsCreated)
}
