package room

// Broadcaster defines the interface for broadcasting messages to a room.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
}

// TransitionSink receives the lifecycle transitions a room performs,
// for auditing and metrics. Implementations must not block the tick.
type TransitionSink interface {
	RecordTransition(roomID, from, to string)
}
