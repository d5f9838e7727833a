package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

// APIHandlers serves read-only snapshots of the hub.
type APIHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub *core.Hub, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{hub: hub, log: logger}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UsersResponse lists connected sessions.
type UsersResponse struct {
	Users []proto.UserInfo `json:"users"`
}

// RoomsResponse lists active rooms.
type RoomsResponse struct {
	Rooms []proto.RoomInfo `json:"rooms"`
}

// RoomMembersResponse lists the members of one room.
type RoomMembersResponse struct {
	Room    string           `json:"room"`
	Members []proto.UserInfo `json:"members"`
}

// Users handles GET /api/users.
func (h *APIHandlers) Users(c *gin.Context) {
	users, err := h.hub.Users(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, UsersResponse{Users: users})
}

// Rooms handles GET /api/rooms.
func (h *APIHandlers) Rooms(c *gin.Context) {
	rooms, err := h.hub.Rooms(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, RoomsResponse{Rooms: rooms})
}

// RoomMembers handles GET /api/rooms/:room/members. Unknown rooms have no members.
func (h *APIHandlers) RoomMembers(c *gin.Context) {
	room := c.Param("room")
	members, err := h.hub.RoomMembers(c.Request.Context(), room)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, RoomMembersResponse{Room: room, Members: members})
}

// Metrics handles GET /metrics.
func (h *APIHandlers) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Metrics().Snapshot())
}

func (h *APIHandlers) fail(c *gin.Context, err error) {
	if errors.Is(err, core.ErrHubClosed) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "shutting down"})
		return
	}
	h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("hub query failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
