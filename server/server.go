package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/gamekit/broadcast"
	"github.com/wfunc/gamekit/config"
	"github.com/wfunc/gamekit/logger"
	"github.com/wfunc/gamekit/models"
	"github.com/wfunc/gamekit/monitor"
	"github.com/wfunc/gamekit/network"
	"github.com/wfunc/gamekit/persistence"
	"github.com/wfunc/gamekit/room"
	gamekitrpc "github.com/wfunc/gamekit/rpc"
	"github.com/wfunc/gamekit/services"
	"github.com/wfunc/gamekit/session"
	"github.com/wfunc/gamekit/timer"
)

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	playerService  *services.PlayerService
	broadcaster    broadcast.Broadcaster
	announcer      *broadcast.Announcer
	monitor        *monitor.Monitor
	store          persistence.Store
	rpcServer      *gamekitrpc.Server
	timers         *timer.Manager
	gameCfg        config.GameConfig
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, store persistence.Store, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		sessionManager: session.NewManager(),
		playerService:  services.NewPlayerService(store),
		monitor:        mon,
		store:          store,
		timers:         timer.NewManager(time.Second),
		gameCfg:        cfg.Game,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 房间状态机的转换同时喂给指标和审计表
	sink := &transitionSink{mon: mon, store: store}
	s.roomManager = room.NewRoomManager(cfg.Game.TickInterval, room.Options{
		WaitingTimeout: cfg.Game.WaitingTimeout,
		RoundDuration:  cfg.Game.RoundDuration,
		Sink:           sink,
	})

	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)
	s.announcer = broadcast.NewAnnouncer(s.broadcaster)

	// 初始化RPC服务器
	rpcServer, err := gamekitrpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	adminService := gamekitrpc.NewAdminService(s.roomManager, store, s.playerService)
	rpc.Register(adminService)

	// 周期性维护任务
	s.timers.Schedule(time.Minute, time.Minute, func() {
		if purged := s.playerService.PurgeCache(); purged > 0 {
			logger.Log.Debugf("purged %d expired player profiles", purged)
		}
	})
	if mon != nil {
		s.timers.Schedule(15*time.Second, 15*time.Second, func() {
			mon.SetActiveRooms(s.roomManager.Count())
			mon.SetEventSubscribers(s.roomManager.SubscriberCount())
		})
	}

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
	s.timers.Stop()
	s.roomManager.Close()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(30 * time.Second)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	if s.monitor != nil {
		s.monitor.IncOnlinePlayers()
	}

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.leaveCurrentRoom(sess)
		s.sessionManager.Remove(sess.GetID())
		if s.monitor != nil {
			s.monitor.DecOnlinePlayers()
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	if s.monitor != nil {
		s.monitor.IncMessagesReceived()
		defer func() { s.monitor.ObserveMessageLatency(time.Since(start)) }()
	}

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess, packet)
	case network.MsgTypePlayerAction:
		s.handleGameAction(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	roomID := uuid.New().String()
	r := s.roomManager.CreateRoom(roomID, "New Room", "tap_race", s.gameCfg.MaxPlayers, s.broadcaster)

	// 挂上房间事件的消费者：入退场广播、对局落库、事件计数
	s.announcer.WatchRoom(r)
	r.OnRoundFinished.Subscribe(s.onRoundFinished)
	if s.monitor != nil {
		r.OnStateChanged.Subscribe(s.countStateEvent)
	}

	r.AddPlayer(sess)

	logger.Log.Infof("Session %s created room %s", sess.GetID(), roomID)

	resp := map[string]string{"room_id": roomID}
	data, _ := json.Marshal(resp)
	sess.Send(network.MsgTypeCreateRoom, data)
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req map[string]string
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "bad join request")
		return
	}

	roomID := req["room_id"]
	var r *room.Room
	if roomID == "" {
		// 不指定房间时匹配一个可用的
		r = s.roomManager.FindAvailableRoom()
	} else {
		r, _ = s.roomManager.GetRoom(roomID)
	}
	if r == nil {
		s.sendError(sess, "room not found")
		return
	}

	if r.AddPlayer(sess) {
		logger.Log.Infof("Session %s joined room %s", sess.GetID(), r.ID)
		resp := map[string]string{"room_id": r.ID, "state": r.CurrentState()}
		data, _ := json.Marshal(resp)
		sess.Send(network.MsgTypeJoinRoom, data)
	} else {
		s.sendError(sess, "room full")
	}
}

func (s *GameServer) handleLeaveRoom(sess *session.Session, packet *network.Packet) {
	s.leaveCurrentRoom(sess)
}

func (s *GameServer) handleGameAction(sess *session.Session, packet *network.Packet) {
	if sess.RoomID == "" {
		logger.Log.Warnf("Session %s sent game action but is not in a room", sess.GetID())
		return
	}

	r, exists := s.roomManager.GetRoom(sess.RoomID)
	if !exists {
		logger.Log.Errorf("Room %s not found for session %s", sess.RoomID, sess.GetID())
		return
	}

	if err := r.HandleAction(sess, packet.Data); err != nil {
		logger.Log.Errorf("Error handling action in room %s: %v", r.ID, err)
	}
}

// leaveCurrentRoom removes the session from its room and deletes the
// room once the last player is gone.
func (s *GameServer) leaveCurrentRoom(sess *session.Session) {
	if sess.RoomID == "" {
		return
	}

	r, exists := s.roomManager.GetRoom(sess.RoomID)
	if !exists {
		sess.RoomID = ""
		return
	}

	r.RemovePlayer(sess.GetID())
	if r.PlayerCount() == 0 {
		s.roomManager.RemoveRoom(r.ID)
	}
}

// onRoundFinished persists the round, re-keying session scores by user
// id where the session is still known.
func (s *GameServer) onRoundFinished(e room.RoundFinished) {
	scores := make(map[string]int, len(e.Scores))
	var userIDs []int64
	for sid, score := range e.Scores {
		if sess, ok := s.sessionManager.Get(sid); ok && sess.UserID != 0 {
			scores[strconv.FormatInt(sess.UserID, 10)] = score
			userIDs = append(userIDs, sess.UserID)
		} else {
			scores[sid] = score
		}
	}

	record := &models.RoundRecord{
		RoomID:   e.RoomID,
		GameType: e.GameType,
		Scores:   scores,
		Duration: e.Elapsed,
	}
	// Keep the DB write off the tick goroutine.
	go func() {
		if err := s.playerService.SaveRound(record, userIDs); err != nil {
			logger.Log.Errorf("Failed to persist round for room %s: %v", e.RoomID, err)
		}
	}()
}

func (s *GameServer) countStateEvent(room.StateChanged) {
	s.monitor.IncEventsPublished()
}

func (s *GameServer) sendError(sess *session.Session, msg string) {
	data, _ := json.Marshal(map[string]string{"error": msg})
	sess.Send(network.MsgTypeError, data)
}

// transitionSink fans room transitions out to the metrics and the
// audit table. The store write leaves the tick goroutine.
type transitionSink struct {
	mon   *monitor.Monitor
	store persistence.Store
}

func (t *transitionSink) RecordTransition(roomID, from, to string) {
	if t.mon != nil {
		t.mon.RecordTransition(roomID, from, to)
	}
	if t.store != nil {
		go func() {
			if err := t.store.RecordTransition(roomID, from, to); err != nil {
				logger.Log.Warnf("Failed to record transition %s->%s for room %s: %v", from, to, roomID, err)
			}
		}()
	}
}
