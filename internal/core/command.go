package core

// CommandKind describes what the transport asks the hub to do.
type CommandKind int

const (
	// CommandConnect registers a new connection.
	CommandConnect CommandKind = iota
	// CommandFrame routes one inbound frame.
	CommandFrame
	// CommandDisconnect tears a session down.
	CommandDisconnect
	// CommandPong records a liveness response.
	CommandPong
	// CommandCall runs Call on the hub loop; used for snapshot queries.
	CommandCall
)

// Command is one unit of work for the hub loop.
type Command struct {
	Kind     CommandKind
	Conn     Conn
	Username string
	Session  *Session
	Data     []byte
	Reason   string
	Call     func()

	reply chan *Session
}
