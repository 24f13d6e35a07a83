// broadcast/announcer.go
package broadcast

import (
	"encoding/json"

	"github.com/wfunc/gamekit/logger"
	"github.com/wfunc/gamekit/network"
	"github.com/wfunc/gamekit/room"
)

// Announcer turns a room's membership events into wire messages for the
// remaining players. It consumes the room's typed channels; when the
// room closes, its registry drops the subscriptions along with every
// other consumer.
type Announcer struct {
	b Broadcaster
}

func NewAnnouncer(b Broadcaster) *Announcer {
	return &Announcer{b: b}
}

// WatchRoom subscribes the announcer to the room's join/leave channels.
func (a *Announcer) WatchRoom(r *room.Room) {
	r.OnPlayerJoined.Subscribe(a.announceJoin)
	r.OnPlayerLeft.Subscribe(a.announceLeave)
}

func (a *Announcer) announceJoin(e room.PlayerJoined) {
	a.send(e.RoomID, network.MsgTypePlayerJoined, map[string]any{
		"room_id":    e.RoomID,
		"session_id": e.SessionID,
		"user_id":    e.UserID,
	})
}

func (a *Announcer) announceLeave(e room.PlayerLeft) {
	a.send(e.RoomID, network.MsgTypePlayerLeft, map[string]any{
		"room_id":    e.RoomID,
		"session_id": e.SessionID,
	})
}

func (a *Announcer) send(roomID string, msgID uint16, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("announcer: marshal %d: %v", msgID, err)
		return
	}
	if err := a.b.BroadcastToRoom(roomID, msgID, data); err != nil {
		logger.Log.Warnf("announcer: broadcast %d to %s: %v", msgID, roomID, err)
	}
}
