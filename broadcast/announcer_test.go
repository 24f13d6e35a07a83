package broadcast

import (
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/gamekit/logger"
	"github.com/wfunc/gamekit/network"
	"github.com/wfunc/gamekit/room"
	"github.com/wfunc/gamekit/session"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []uint16
}

func (r *recordingBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, msgID)
	return nil
}

func (r *recordingBroadcaster) BroadcastToAll(msgID uint16, data []byte) error { return nil }

func (r *recordingBroadcaster) BroadcastToUsers(userIDs []int64, msgID uint16, data []byte) error {
	return nil
}

func (r *recordingBroadcaster) count(msgID uint16) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range r.calls {
		if id == msgID {
			n++
		}
	}
	return n
}

type nopConnection struct{}

func (nopConnection) Send(msgID uint16, data []byte) error { return nil }
func (nopConnection) Close() error                         { return nil }
func (nopConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (nopConnection) SetHeartbeat(interval time.Duration)  {}
func (nopConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestAnnouncer_JoinAndLeave(t *testing.T) {
	bc := &recordingBroadcaster{}
	r := room.NewRoom("r", "Announce", "test_game", 4, bc, room.Options{})
	defer r.Close()

	NewAnnouncer(bc).WatchRoom(r)

	s := session.NewSession("p1", nopConnection{})
	r.AddPlayer(s)
	r.RemovePlayer("p1")

	if got := bc.count(network.MsgTypePlayerJoined); got != 1 {
		t.Errorf("expected one join announcement, got %d", got)
	}
	if got := bc.count(network.MsgTypePlayerLeft); got != 1 {
		t.Errorf("expected one leave announcement, got %d", got)
	}
}

func TestAnnouncer_SilentAfterRoomClose(t *testing.T) {
	bc := &recordingBroadcaster{}
	r := room.NewRoom("r", "Announce", "test_game", 4, bc, room.Options{})

	NewAnnouncer(bc).WatchRoom(r)
	r.Close()

	r.AddPlayer(session.NewSession("p1", nopConnection{}))
	if got := bc.count(network.MsgTypePlayerJoined); got != 0 {
		t.Errorf("expected no announcements after Close, got %d", got)
	}
}
