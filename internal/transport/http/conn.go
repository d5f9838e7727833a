package http

import (
	"context"
	"errors"
	"io"

	"github.com/coder/websocket"
)

// maxCloseReason is the longest close reason a control frame can carry.
const maxCloseReason = 123

// wsConn adapts a websocket connection to core.Conn.
type wsConn struct {
	conn   *websocket.Conn
	remote string
}

func newWSConn(conn *websocket.Conn, remote string) *wsConn {
	return &wsConn{conn: conn, remote: remote}
}

// Close starts the closing handshake in the background; websocket.Conn.Close waits for the
// peer and the hub must not.
func (c *wsConn) Close(reason string) error {
	go func() {
		_ = c.conn.Close(websocket.StatusGoingAway, truncateReason(reason))
	}()
	return nil
}

func (c *wsConn) RemoteAddr() string {
	return c.remote
}

// closeStatus maps the error that ended a connection to the status sent to the peer. The
// returned error is nil for ordinary client departures.
func closeStatus(err error) (websocket.StatusCode, string, error) {
	reason := "closing"
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return websocket.StatusNormalClosure, reason, nil
	}

	switch s := websocket.CloseStatus(err); s {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return s, reason, nil
	case -1:
		return websocket.StatusInternalError, truncateReason(err.Error()), err
	default:
		return s, truncateReason(err.Error()), err
	}
}

func truncateReason(reason string) string {
	if len(reason) <= maxCloseReason {
		return reason
	}
	return reason[:maxCloseReason]
}
