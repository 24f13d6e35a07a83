// room/events.go
package room

// Payloads carried on a room's event channels. Consumers subscribe for
// the room's lifetime and are cut loose by Close via the channel
// registry.

type PlayerJoined struct {
	RoomID    string
	SessionID string
	UserID    int64
}

type PlayerLeft struct {
	RoomID    string
	SessionID string
}

type StateChanged struct {
	RoomID string
	From   string
	To     string
}

type RoundFinished struct {
	RoomID   string
	GameType string
	Scores   map[string]int
	Elapsed  float64
}
