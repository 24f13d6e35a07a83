package room

import (
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/gamekit/logger"
	"github.com/wfunc/gamekit/network"
	"github.com/wfunc/gamekit/session"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// MockBroadcaster records the message ids sent to a room.
type MockBroadcaster struct {
	mu     sync.Mutex
	msgIDs []uint16
}

func (m *MockBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgIDs = append(m.msgIDs, msgID)
	return nil
}

func (m *MockBroadcaster) sent(msgID uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.msgIDs {
		if id == msgID {
			return true
		}
	}
	return false
}

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error { return nil }
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func newTestSession(id string) *session.Session {
	return session.NewSession(id, &MockConnection{})
}

// fastOptions keeps lifecycle timings tiny so tests can step through
// states with a handful of Update calls.
func fastOptions() Options {
	return Options{
		WaitingTimeout: 50 * time.Millisecond,
		RoundDuration:  100 * time.Millisecond,
		SettleDelay:    50 * time.Millisecond,
	}
}

func TestRoomManager_CreateAndGetRoom(t *testing.T) {
	manager := NewRoomManager(time.Hour, fastOptions())
	defer manager.Close()

	roomID := "test_room_1"
	room := manager.CreateRoom(roomID, "Test Room", "test_game", 4, &MockBroadcaster{})

	if room == nil {
		t.Fatal("CreateRoom should not return nil")
	}
	if room.ID != roomID {
		t.Errorf("Expected room ID %s, got %s", roomID, room.ID)
	}

	retrievedRoom, exists := manager.GetRoom(roomID)
	if !exists {
		t.Fatal("GetRoom should find the created room")
	}
	if retrievedRoom != room {
		t.Error("GetRoom should return the same room instance")
	}

	manager.RemoveRoom(roomID)
	if _, exists := manager.GetRoom(roomID); exists {
		t.Error("GetRoom should not find the removed room")
	}
}

func TestRoom_StartsWaiting(t *testing.T) {
	room := NewRoom("r", "Room", "test_game", 2, &MockBroadcaster{}, fastOptions())
	defer room.Close()

	if got := room.CurrentState(); got != StateWaiting {
		t.Errorf("expected a new room in %q, got %q", StateWaiting, got)
	}
}

func TestRoom_AddPlayer(t *testing.T) {
	room := NewRoom("r", "Add Player Test", "test_game", 2, &MockBroadcaster{}, fastOptions())
	defer room.Close()

	var joined []PlayerJoined
	room.OnPlayerJoined.Subscribe(func(e PlayerJoined) { joined = append(joined, e) })

	player1 := newTestSession("player1")
	if !room.AddPlayer(player1) {
		t.Fatal("Failed to add first player")
	}

	if room.PlayerCount() != 1 {
		t.Errorf("Expected player count to be 1, got %d", room.PlayerCount())
	}
	if len(joined) != 1 || joined[0].SessionID != "player1" {
		t.Errorf("expected one PlayerJoined event for player1, got %v", joined)
	}
}

func TestRoom_AddPlayer_Full(t *testing.T) {
	room := NewRoom("r", "Full Room Test", "test_game", 1, &MockBroadcaster{}, fastOptions())
	defer room.Close()

	if !room.AddPlayer(newTestSession("player1")) {
		t.Fatal("Failed to add the first player")
	}
	if room.AddPlayer(newTestSession("player2")) {
		t.Fatal("Should not be able to add a player to a full room")
	}
	if room.PlayerCount() != 1 {
		t.Errorf("Expected player count 1 after trying to add to a full room, got %d", room.PlayerCount())
	}
}

func TestRoom_RemovePlayer(t *testing.T) {
	room := NewRoom("r", "Remove Player Test", "test_game", 2, &MockBroadcaster{}, fastOptions())
	defer room.Close()

	var left []PlayerLeft
	room.OnPlayerLeft.Subscribe(func(e PlayerLeft) { left = append(left, e) })

	player1 := newTestSession("player1")
	room.AddPlayer(player1)
	room.RemovePlayer(player1.GetID())

	if room.PlayerCount() != 0 {
		t.Errorf("Expected player count 0 after removing player, got %d", room.PlayerCount())
	}
	if len(left) != 1 || left[0].SessionID != "player1" {
		t.Errorf("expected one PlayerLeft event for player1, got %v", left)
	}

	// Removing again is a no-op and fires nothing.
	room.RemovePlayer(player1.GetID())
	if len(left) != 1 {
		t.Errorf("expected no event for removing an absent player, got %d", len(left))
	}
}

// step advances the room by calling Update until the predicate holds or
// the budget runs out.
func step(t *testing.T, room *Room, dt time.Duration, budget int, done func() bool) {
	t.Helper()
	for i := 0; i < budget; i++ {
		if done() {
			return
		}
		room.Update(dt)
	}
	if !done() {
		t.Fatalf("room stuck in %q after %d ticks", room.CurrentState(), budget)
	}
}

func TestRoom_LifecycleFullRound(t *testing.T) {
	bc := &MockBroadcaster{}
	room := NewRoom("r", "Lifecycle", "test_game", 2, bc, fastOptions())
	defer room.Close()

	var transitions []StateChanged
	room.OnStateChanged.Subscribe(func(e StateChanged) { transitions = append(transitions, e) })

	var finished []RoundFinished
	room.OnRoundFinished.Subscribe(func(e RoundFinished) { finished = append(finished, e) })

	// A full room starts the round on the next tick.
	room.AddPlayer(newTestSession("p1"))
	room.AddPlayer(newTestSession("p2"))
	step(t, room, 10*time.Millisecond, 100, func() bool { return room.CurrentState() == StatePlaying })

	if !bc.sent(network.MsgTypeRoundStart) {
		t.Error("expected a round-start broadcast")
	}

	// Round runs out, room settles, then returns to waiting.
	step(t, room, 10*time.Millisecond, 100, func() bool { return room.CurrentState() == StateSettling })
	if len(finished) != 1 {
		t.Errorf("expected one RoundFinished event, got %d", len(finished))
	}
	if !bc.sent(network.MsgTypeRoundEnd) {
		t.Error("expected a round-end broadcast")
	}

	step(t, room, 10*time.Millisecond, 100, func() bool { return room.CurrentState() == StateWaiting })

	want := []struct{ from, to string }{
		{StateWaiting, StatePlaying},
		{StatePlaying, StateSettling},
		{StateSettling, StateWaiting},
	}
	if len(transitions) != len(want) {
		t.Fatalf("expected %d transitions, got %v", len(want), transitions)
	}
	for i, w := range want {
		if transitions[i].From != w.from || transitions[i].To != w.to {
			t.Errorf("transition %d: expected %s->%s, got %s->%s",
				i, w.from, w.to, transitions[i].From, transitions[i].To)
		}
	}
}

func TestRoom_WaitingTimeoutStartsRound(t *testing.T) {
	room := NewRoom("r", "Timeout", "test_game", 4, &MockBroadcaster{}, fastOptions())
	defer room.Close()

	// One player, room not full: the waiting timeout starts the round.
	room.AddPlayer(newTestSession("p1"))
	step(t, room, 10*time.Millisecond, 100, func() bool { return room.CurrentState() == StatePlaying })
}

func TestRoom_EmptyRoomKeepsWaiting(t *testing.T) {
	room := NewRoom("r", "Empty", "test_game", 4, &MockBroadcaster{}, fastOptions())
	defer room.Close()

	for i := 0; i < 50; i++ {
		room.Update(10 * time.Millisecond)
	}
	if got := room.CurrentState(); got != StateWaiting {
		t.Errorf("an empty room must stay in %q, got %q", StateWaiting, got)
	}
}

func TestRoom_HandleActionOnlyWhilePlaying(t *testing.T) {
	room := NewRoom("r", "Actions", "test_game", 1, &MockBroadcaster{}, fastOptions())
	defer room.Close()

	p := newTestSession("p1")
	room.AddPlayer(p)

	// Still waiting: actions are dropped.
	room.HandleAction(p, []byte(`{"type":"tap"}`))
	if got := room.snapshotScores()["p1"]; got != 0 {
		t.Errorf("expected no score while waiting, got %d", got)
	}

	step(t, room, 10*time.Millisecond, 100, func() bool { return room.CurrentState() == StatePlaying })

	room.HandleAction(p, []byte(`{"type":"tap"}`))
	room.HandleAction(p, []byte(`{"type":"tap"}`))
	if got := room.snapshotScores()["p1"]; got != 2 {
		t.Errorf("expected score 2, got %d", got)
	}
}

func TestRoom_CloseTearsDownChannels(t *testing.T) {
	room := NewRoom("r", "Teardown", "test_game", 2, &MockBroadcaster{}, fastOptions())

	joins := 0
	room.OnPlayerJoined.Subscribe(func(PlayerJoined) { joins++ })

	room.Close()

	room.AddPlayer(newTestSession("p1"))
	if joins != 0 {
		t.Errorf("expected no deliveries after Close, got %d", joins)
	}
}

func TestRoomManager_FindAvailableRoom(t *testing.T) {
	manager := NewRoomManager(time.Hour, fastOptions())
	defer manager.Close()

	room := manager.CreateRoom("a", "A", "test_game", 2, &MockBroadcaster{})
	if got := manager.FindAvailableRoom(); got != room {
		t.Error("expected the waiting, non-full room to be available")
	}

	room.AddPlayer(newTestSession("p1"))
	room.AddPlayer(newTestSession("p2"))
	if got := manager.FindAvailableRoom(); got != nil {
		t.Error("expected no available room once full")
	}
}
