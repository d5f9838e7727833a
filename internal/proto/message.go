package proto

import (
	"encoding/json"
	"errors"
	"time"
)

// Inbound is the {type, payload} envelope as read off the wire.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound is the envelope written to clients. Payload holds one of the *Payload types below.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const (
	TypeChat        = "CHAT"
	TypeSetUsername = "SET_USERNAME"
	TypePrivateChat = "PRIVATE_CHAT"
	TypeRoomJoin    = "ROOM_JOIN"
	TypeRoomLeave   = "ROOM_LEAVE"
	TypeRoomChat    = "ROOM_CHAT"
	TypeGetUsers    = "GET_USERS"
	TypeRoomMembers = "ROOM_MEMBERS"
	TypeTypingStart = "TYPING_START"
	TypeTypingStop  = "TYPING_STOP"

	TypeUserJoined       = "USER_JOINED"
	TypeUserLeft         = "USER_LEFT"
	TypeUsernameChanged  = "USERNAME_CHANGED"
	TypeRoomNotification = "ROOM_NOTIFICATION"
	TypeUserList         = "USER_LIST"
	TypeError            = "ERROR"
)

var (
	// ErrInvalidJSON is returned by Decode for frames that are not JSON at all.
	ErrInvalidJSON = errors.New("invalid json")
	// ErrMissingEnvelope is returned by Validate when type or payload is absent.
	ErrMissingEnvelope = errors.New("missing type or payload")
)

// Decode parses a raw frame. Only malformed JSON is an error here: valid JSON that is not an
// object decodes to an empty envelope, which Validate then rejects.
func Decode(raw []byte) (Inbound, error) {
	if !json.Valid(raw) {
		return Inbound{}, ErrInvalidJSON
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Inbound{}, nil
	}

	var in Inbound
	if err := json.Unmarshal(fields["type"], &in.Type); err != nil {
		in.Type = ""
	}
	if isObject(fields["payload"]) {
		in.Payload = fields["payload"]
	}
	return in, nil
}

// Validate requires a non-empty type and an object payload.
func (in Inbound) Validate() error {
	if in.Type == "" || in.Payload == nil {
		return ErrMissingEnvelope
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

// Encode serializes an outbound envelope.
func Encode(out Outbound) ([]byte, error) {
	return json.Marshal(out)
}

// Timestamp formats t as ISO-8601 UTC with millisecond precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// UserInfo is the public view of a session.
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// RoomInfo summarizes a room for the HTTP API.
type RoomInfo struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// PresencePayload is carried by USER_JOINED and USER_LEFT.
type PresencePayload struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

// ChatPayload is a global CHAT message.
type ChatPayload struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// UsernameChangedPayload announces a rename.
type UsernameChangedPayload struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Previous  string `json:"previous"`
	Timestamp string `json:"timestamp"`
}

// PrivateChatPayload is delivered to both sender and recipient.
type PrivateChatPayload struct {
	From      int64  `json:"from"`
	To        int64  `json:"to"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// RoomNotificationPayload announces joins and departures inside a room.
type RoomNotificationPayload struct {
	Room      string `json:"room"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// RoomChatPayload is a message scoped to one room.
type RoomChatPayload struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Room      string `json:"room"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// UserListPayload answers GET_USERS.
type UserListPayload struct {
	Users     []UserInfo `json:"users"`
	Timestamp string     `json:"timestamp"`
}

// RoomMembersPayload answers ROOM_MEMBERS.
type RoomMembersPayload struct {
	Room      string     `json:"room"`
	Members   []UserInfo `json:"members"`
	Timestamp string     `json:"timestamp"`
}

// TypingPayload is carried by TYPING_START and TYPING_STOP.
type TypingPayload struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Room      string `json:"room"`
	Timestamp string `json:"timestamp"`
}

// ErrorPayload describes a rejected frame.
type ErrorPayload struct {
	Message string `json:"message"`
}
