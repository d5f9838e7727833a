package core

import (
	"errors"
	"fmt"
)

// ErrHubClosed is returned by hub calls made after Run has returned.
var ErrHubClosed = errors.New("hub closed")

var errQueryFailed = errors.New("hub query panicked")

// Messages sent to clients in ERROR envelopes.
const (
	MsgInvalidJSON     = "Invalid JSON"
	MsgUserNotFound    = "User not found"
	MsgMissingEnvelope = "Missing type or payload"
	MsgRateLimited     = "Rate limit exceeded. Please slow down."
	MsgPrivateInvalid  = "Missing 'to' or invalid message"
	MsgReceiverMissing = "Receiver not found"
	MsgRoomRequired    = "Room name required"
	MsgRoomTextInvalid = "Invalid or empty message"
	MsgJoinRoomFirst   = "Join a room first"
	MsgTypingNoRoom    = "Specify a room or join one first"
)

// ClientError is a rejection reported to the sender as a single ERROR envelope.
type ClientError struct {
	Message string
}

func (e *ClientError) Error() string {
	return e.Message
}

func clientError(msg string) *ClientError {
	return &ClientError{Message: msg}
}

func errInvalidMessage(max int) *ClientError {
	return clientError(fmt.Sprintf("Invalid or empty message (max %d chars)", max))
}

func errInvalidUsername(max int) *ClientError {
	return clientError(fmt.Sprintf("Invalid username (alphanumeric/underscore, max %d chars)", max))
}

func errInvalidRoomName(max int) *ClientError {
	return clientError(fmt.Sprintf("Invalid room name (max %d chars)", max))
}
