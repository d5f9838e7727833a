package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Message is a parsed inbound message. The concrete type is selected by the envelope type.
// Field values are raw client input: decoding is lenient and a field of the wrong JSON type
// reads as its zero value, leaving rejection to the router's validation.
type Message interface {
	MessageType() string
}

// Chat broadcasts text to every connected session.
type Chat struct{ Text string }

// SetUsername renames the sender.
type SetUsername struct{ Username string }

// PrivateChat sends text to one session. HasTo reports a non-empty "to"; To stays zero when
// that value names no possible session.
type PrivateChat struct {
	To    int64
	HasTo bool
	Text  string
}

// RoomJoin moves the sender into a room.
type RoomJoin struct{ Room string }

// RoomLeave removes the sender from its room.
type RoomLeave struct{}

// RoomChat sends text to the sender's current room.
type RoomChat struct{ Text string }

// GetUsers asks for the list of connected sessions.
type GetUsers struct{}

// RoomMembers asks for the members of a room.
type RoomMembers struct{ Room string }

// Typing announces typing activity. Room is empty when the sender's current room is meant.
type Typing struct {
	Stop bool
	Room string
}

func (Chat) MessageType() string        { return TypeChat }
func (SetUsername) MessageType() string { return TypeSetUsername }
func (PrivateChat) MessageType() string { return TypePrivateChat }
func (RoomJoin) MessageType() string    { return TypeRoomJoin }
func (RoomLeave) MessageType() string   { return TypeRoomLeave }
func (RoomChat) MessageType() string    { return TypeRoomChat }
func (GetUsers) MessageType() string    { return TypeGetUsers }
func (RoomMembers) MessageType() string { return TypeRoomMembers }

func (t Typing) MessageType() string {
	if t.Stop {
		return TypeTypingStop
	}
	return TypeTypingStart
}

// UnknownTypeError reports an envelope type outside the catalogue.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return "Unknown message type: " + e.Type
}

// Parse turns a validated envelope into its Message variant.
func Parse(in Inbound) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(in.Payload, &fields); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	switch in.Type {
	case TypeChat:
		return Chat{Text: stringField(fields, "text")}, nil
	case TypeSetUsername:
		return SetUsername{Username: stringField(fields, "username")}, nil
	case TypePrivateChat:
		to, hasTo := recipientField(fields, "to")
		return PrivateChat{To: to, HasTo: hasTo, Text: stringField(fields, "text")}, nil
	case TypeRoomJoin:
		return RoomJoin{Room: stringField(fields, "room")}, nil
	case TypeRoomLeave:
		return RoomLeave{}, nil
	case TypeRoomChat:
		return RoomChat{Text: stringField(fields, "text")}, nil
	case TypeGetUsers:
		return GetUsers{}, nil
	case TypeRoomMembers:
		return RoomMembers{Room: stringField(fields, "room")}, nil
	case TypeTypingStart:
		return Typing{Room: stringField(fields, "room")}, nil
	case TypeTypingStop:
		return Typing{Stop: true, Room: stringField(fields, "room")}, nil
	default:
		return nil, &UnknownTypeError{Type: in.Type}
	}
}

func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	if err := json.Unmarshal(fields[key], &s); err != nil {
		return ""
	}
	return s
}

// recipientField reads a session id. Any integral positive number counts, 2.0 included. Other
// non-empty values are present but match no session.
func recipientField(fields map[string]json.RawMessage, key string) (int64, bool) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(fields[key]))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	switch t := v.(type) {
	case nil:
		return 0, false
	case bool:
		return 0, t
	case string:
		return 0, t != ""
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, true
		}
		if f == 0 {
			return 0, false
		}
		if f > 0 && f == math.Trunc(f) && f <= math.MaxInt32 {
			return int64(f), true
		}
		return 0, true
	default:
		return 0, true
	}
}
