// room/room.go
package room

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/gamekit/event"
	"github.com/wfunc/gamekit/fsm"
	"github.com/wfunc/gamekit/interp"
	"github.com/wfunc/gamekit/logger"
	"github.com/wfunc/gamekit/network"
	"github.com/wfunc/gamekit/session"
)

// Lifecycle state keys registered on every room's machine.
const (
	StateWaiting  = "waiting"
	StatePlaying  = "playing"
	StateSettling = "settling"
)

// Options tunes a room's lifecycle timings.
type Options struct {
	WaitingTimeout time.Duration
	RoundDuration  time.Duration
	SettleDelay    time.Duration
	Sink           TransitionSink
}

func (o Options) withDefaults() Options {
	if o.WaitingTimeout <= 0 {
		o.WaitingTimeout = 10 * time.Second
	}
	if o.RoundDuration <= 0 {
		o.RoundDuration = 30 * time.Second
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = 3 * time.Second
	}
	return o
}

// Room 是游戏房间的核心结构。生命周期跑在一台按键注册的状态机上，
// 对外通知走类型化的事件通道。
type Room struct {
	ID         string
	Name       string
	GameType   string
	MaxPlayers int
	CreatedAt  time.Time

	Machine *fsm.Machine

	// Event channels owned by the room. Close tears every one of them
	// down through the registry, whatever the payload type.
	OnPlayerJoined  *event.Channel[PlayerJoined]
	OnPlayerLeft    *event.Channel[PlayerLeft]
	OnStateChanged  *event.Channel[StateChanged]
	OnRoundFinished *event.Channel[RoundFinished]
	channels        *event.Registry

	Players     map[string]*session.Session // sessionID -> session
	playerMutex sync.RWMutex

	broadcaster Broadcaster
	opts        Options

	// Round bookkeeping, touched only from the tick goroutine except
	// for scores, which player connections write through HandleAction.
	waited     time.Duration
	remaining  time.Duration
	settleWait time.Duration
	lastSync   int
	progress   *interp.Value[float64]
	scores     map[string]int
	scoreMutex sync.Mutex
}

// NewRoom 创建一个新房间并注册生命周期状态
func NewRoom(id, name, gameType string, maxPlayers int, broadcaster Broadcaster, opts Options) *Room {
	r := &Room{
		ID:              id,
		Name:            name,
		GameType:        gameType,
		MaxPlayers:      maxPlayers,
		CreatedAt:       time.Now(),
		Machine:         fsm.NewMachine(),
		OnPlayerJoined:  event.NewChannel[PlayerJoined](),
		OnPlayerLeft:    event.NewChannel[PlayerLeft](),
		OnStateChanged:  event.NewChannel[StateChanged](),
		OnRoundFinished: event.NewChannel[RoundFinished](),
		channels:        event.NewRegistry(),
		Players:         make(map[string]*session.Session),
		broadcaster:     broadcaster,
		opts:            opts.withDefaults(),
		progress:        interp.New(0.0, interp.Lerp),
		scores:          make(map[string]int),
	}
	r.channels.Track(r.OnPlayerJoined, r.OnPlayerLeft, r.OnStateChanged, r.OnRoundFinished)

	r.Machine.RegisterState(StateWaiting, r.enterWaiting, r.updateWaiting, nil)
	r.Machine.RegisterState(StatePlaying, r.enterPlaying, r.updatePlaying, r.exitPlaying)
	r.Machine.RegisterState(StateSettling, r.enterSettling, r.updateSettling, nil)

	r.transitionTo(StateWaiting)
	return r
}

// Update is called by the manager's ticker and drives the state
// machine. The room performs no timing of its own.
func (r *Room) Update(dt time.Duration) {
	r.Machine.Update(dt)
}

// CurrentState returns the active lifecycle state key.
func (r *Room) CurrentState() string {
	return r.Machine.CurrentStateKey()
}

// --- waiting ---

func (r *Room) enterWaiting() {
	r.waited = 0
}

func (r *Room) updateWaiting(dt time.Duration) {
	r.waited += dt
	count := r.PlayerCount()
	if count == 0 {
		r.waited = 0
		return
	}
	if count >= r.MaxPlayers || r.waited >= r.opts.WaitingTimeout {
		r.transitionTo(StatePlaying)
	}
}

// --- playing ---

type roundStartMsg struct {
	RoomID   string  `json:"room_id"`
	Duration float64 `json:"duration_seconds"`
}

type roundSyncMsg struct {
	RoomID    string         `json:"room_id"`
	Remaining float64        `json:"remaining_seconds"`
	Progress  float64        `json:"progress"`
	Scores    map[string]int `json:"scores"`
}

func (r *Room) enterPlaying() {
	r.remaining = r.opts.RoundDuration
	r.lastSync = -1
	r.progress = interp.New(0.0, interp.Lerp)
	r.scoreMutex.Lock()
	r.scores = make(map[string]int)
	r.scoreMutex.Unlock()

	r.broadcast(network.MsgTypeRoundStart, roundStartMsg{
		RoomID:   r.ID,
		Duration: r.opts.RoundDuration.Seconds(),
	})
}

func (r *Room) updatePlaying(dt time.Duration) {
	r.remaining -= dt
	if r.remaining < 0 {
		r.remaining = 0
	}

	target := 1 - r.remaining.Seconds()/r.opts.RoundDuration.Seconds()
	r.progress.SetTarget(target)
	r.progress.Update(0.3)

	// One sync broadcast per elapsed second is plenty for the clients.
	elapsed := int((r.opts.RoundDuration - r.remaining) / time.Second)
	if elapsed != r.lastSync {
		r.lastSync = elapsed
		r.broadcast(network.MsgTypeRoundSync, roundSyncMsg{
			RoomID:    r.ID,
			Remaining: r.remaining.Seconds(),
			Progress:  r.progress.Current(),
			Scores:    r.snapshotScores(),
		})
	}

	if r.remaining <= 0 {
		r.transitionTo(StateSettling)
	}
}

func (r *Room) exitPlaying() {
	r.broadcast(network.MsgTypeRoundEnd, roundSyncMsg{
		RoomID:    r.ID,
		Remaining: 0,
		Progress:  1,
		Scores:    r.snapshotScores(),
	})
}

// --- settling ---

func (r *Room) enterSettling() {
	r.settleWait = 0
	publish(r.ID, r.OnRoundFinished, RoundFinished{
		RoomID:   r.ID,
		GameType: r.GameType,
		Scores:   r.snapshotScores(),
		Elapsed:  r.opts.RoundDuration.Seconds(),
	})
}

func (r *Room) updateSettling(dt time.Duration) {
	r.settleWait += dt
	if r.settleWait >= r.opts.SettleDelay {
		r.transitionTo(StateWaiting)
	}
}

// transitionTo drives the machine and fans the transition out to the
// state channel, the sink, and the room's clients.
func (r *Room) transitionTo(to string) {
	from := r.Machine.CurrentStateKey()
	if err := r.Machine.ChangeState(to); err != nil {
		logger.Log.Errorf("room %s: transition to %s failed: %v", r.ID, to, err)
		return
	}

	publish(r.ID, r.OnStateChanged, StateChanged{RoomID: r.ID, From: from, To: to})
	if r.opts.Sink != nil {
		r.opts.Sink.RecordTransition(r.ID, from, to)
	}
	r.broadcast(network.MsgTypeStateChanged, map[string]string{
		"room_id": r.ID,
		"from":    from,
		"to":      to,
	})
}

// --- player management ---

// AddPlayer 添加一个玩家到房间
func (r *Room) AddPlayer(s *session.Session) bool {
	r.playerMutex.Lock()
	if len(r.Players) >= r.MaxPlayers {
		r.playerMutex.Unlock()
		return false
	}
	r.Players[s.ID] = s
	s.RoomID = r.ID
	r.playerMutex.Unlock()

	publish(r.ID, r.OnPlayerJoined, PlayerJoined{RoomID: r.ID, SessionID: s.ID, UserID: s.UserID})
	return true
}

// RemovePlayer 从房间移除一个玩家
func (r *Room) RemovePlayer(sessionID string) {
	r.playerMutex.Lock()
	player, exists := r.Players[sessionID]
	if exists {
		player.RoomID = ""
		delete(r.Players, sessionID)
	}
	r.playerMutex.Unlock()

	if exists {
		publish(r.ID, r.OnPlayerLeft, PlayerLeft{RoomID: r.ID, SessionID: sessionID})
	}
}

func (r *Room) GetPlayer(sessionID string) (*session.Session, bool) {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	player, exists := r.Players[sessionID]
	return player, exists
}

// GetSessions returns a snapshot of all sessions in the room.
func (r *Room) GetSessions() []*session.Session {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	sessions := make([]*session.Session, 0, len(r.Players))
	for _, s := range r.Players {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Room) PlayerCount() int {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return len(r.Players)
}

// --- actions ---

type action struct {
	Type string `json:"type"`
}

// HandleAction applies a player action. Actions are only meaningful
// while a round is running; outside of it they are dropped.
func (r *Room) HandleAction(s *session.Session, data []byte) error {
	if r.CurrentState() != StatePlaying {
		return nil
	}

	var a action
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	switch a.Type {
	case "tap":
		r.scoreMutex.Lock()
		r.scores[s.ID]++
		r.scoreMutex.Unlock()
	default:
		logger.Log.Debugf("room %s: unknown action %q from %s", r.ID, a.Type, s.ID)
	}
	return nil
}

func (r *Room) snapshotScores() map[string]int {
	r.scoreMutex.Lock()
	defer r.scoreMutex.Unlock()
	out := make(map[string]int, len(r.scores))
	for k, v := range r.scores {
		out[k] = v
	}
	return out
}

// SubscriberCount returns the number of subscribers across the room's
// event channels.
func (r *Room) SubscriberCount() int {
	return r.OnPlayerJoined.Len() + r.OnPlayerLeft.Len() +
		r.OnStateChanged.Len() + r.OnRoundFinished.Len()
}

// Close tears down every event channel the room owns so destroyed
// consumers are no longer reachable through them.
func (r *Room) Close() {
	r.channels.TeardownAll()
}

// publish delivers v on ch and logs subscriber faults instead of
// letting them interrupt the tick.
func publish[T any](roomID string, ch *event.Channel[T], v T) {
	if err := ch.Publish(v); err != nil {
		logger.Log.Errorf("room %s: subscriber fault: %v", roomID, err)
	}
}

func (r *Room) broadcast(msgID uint16, v any) {
	if r.broadcaster == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("room %s: marshal broadcast %d: %v", r.ID, msgID, err)
		return
	}
	if err := r.broadcaster.BroadcastToRoom(r.ID, msgID, data); err != nil {
		logger.Log.Warnf("room %s: broadcast %d: %v", r.ID, msgID, err)
	}
}
