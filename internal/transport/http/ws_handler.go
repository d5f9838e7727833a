package http

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
)

// WSHandler upgrades HTTP connections and bridges them to hub sessions.
type WSHandler struct {
	hub *core.Hub
	cfg *config.Config
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, cfg: cfg, log: logger}
}

// ServeHTTP runs one connection until either side ends it.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Str("remote", r.RemoteAddr).Msg("ws accept error")
		return
	}
	conn.SetReadLimit(h.cfg.MaxFrameBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session, err := h.hub.Connect(ctx, newWSConn(conn, r.RemoteAddr), UsernameFromContext(r.Context()))
	if err != nil {
		h.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("hub refused connection")
		_ = conn.Close(websocket.StatusTryAgainLater, "server unavailable")
		return
	}
	defer h.hub.Disconnect(session)

	log := h.log.With().
		Int64("session_id", int64(session.ID)).
		Str("conn_id", session.ConnID).
		Logger()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session, &log)
	}()

	err = <-errCh
	cancel()
	<-errCh

	status, reason, err := closeStatus(err)
	if err != nil {
		log.Warn().Err(err).Msg("ws connection closed with error")
	} else {
		log.Debug().Msg("ws connection closed")
	}
	_ = conn.Close(status, reason)
}

// readLoop hands every data frame to the hub, text or binary alike.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if err := h.hub.Deliver(ctx, session, data); err != nil {
			return err
		}
	}
}

// writeLoop drains the session queue. It returns nil once the hub releases the session.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session, log *zerolog.Logger) error {
	for {
		select {
		case frame, ok := <-session.Outbound():
			if !ok {
				return nil
			}
			switch frame.Kind {
			case core.FrameText:
				if err := h.write(ctx, conn, frame.Data); err != nil {
					log.Error().Err(err).Msg("write ws frame")
					return err
				}
			case core.FramePing:
				go h.ping(ctx, conn, session, log)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// ping waits for the pong at most one heartbeat interval; a missing pong is noticed by the next
// sweep.
func (h *WSHandler) ping(ctx context.Context, conn *websocket.Conn, session *core.Session, log *zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.HeartbeatInterval)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		log.Debug().Err(err).Msg("ping unanswered")
		return
	}
	h.hub.Pong(session)
}
