// room/manager.go
package room

import (
	"errors"
	"sync"
	"time"

	"github.com/wfunc/gamekit/timer"
)

var ErrRoomNotFound = errors.New("room not found")

// Manager 管理所有房间。一个共享的 Ticker 驱动全部房间的状态机，
// 每个房间不再各起一个 goroutine。
type Manager struct {
	rooms  map[string]*Room
	mutex  sync.RWMutex
	ticker *timer.Ticker
	opts   Options
}

// NewRoomManager builds a manager whose ticker drives every room at
// tickInterval. opts applies to all rooms it creates.
func NewRoomManager(tickInterval time.Duration, opts Options) *Manager {
	m := &Manager{
		rooms:  make(map[string]*Room),
		ticker: timer.NewTicker(tickInterval),
		opts:   opts,
	}
	m.ticker.Start()
	return m
}

// CreateRoom 创建一个新房间并挂到时钟上
func (m *Manager) CreateRoom(id, name, gameType string, maxPlayers int, broadcaster Broadcaster) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room := NewRoom(id, name, gameType, maxPlayers, broadcaster, m.opts)
	m.rooms[id] = room
	m.ticker.Attach(room)
	return room
}

// RemoveRoom detaches the room from the ticker, tears down its event
// channels, and forgets it.
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[id]; exists {
		m.ticker.Detach(room)
		room.Close()
		delete(m.rooms, id)
	}
}

func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	room, exists := m.rooms[id]
	return room, exists
}

// FindAvailableRoom 查找一个未满且还在等待的房间
func (m *Manager) FindAvailableRoom() *Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, room := range m.rooms {
		if room.PlayerCount() < room.MaxPlayers && room.CurrentState() == StateWaiting {
			return room
		}
	}
	return nil
}

// SubscriberCount sums the event subscribers across every live room.
func (m *Manager) SubscriberCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	total := 0
	for _, room := range m.rooms {
		total += room.SubscriberCount()
	}
	return total
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Close stops the shared ticker and tears down every room.
func (m *Manager) Close() {
	m.ticker.Stop()

	m.mutex.Lock()
	defer m.mutex.Unlock()
	for id, room := range m.rooms {
		room.Close()
		delete(m.rooms, id)
	}
}
