package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/gamekit/logger"
	"github.com/wfunc/gamekit/models"
	"github.com/wfunc/gamekit/persistence"
	"github.com/wfunc/gamekit/room"
	"github.com/wfunc/gamekit/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes room and player queries over net/rpc.
type AdminService struct {
	rooms         *room.Manager
	store         persistence.Store
	playerService *services.PlayerService
}

func NewAdminService(rooms *room.Manager, store persistence.Store, ps *services.PlayerService) *AdminService {
	return &AdminService{rooms: rooms, store: store, playerService: ps}
}

type RoomStateArgs struct {
	RoomID string
}

type RoomStateReply struct {
	State       string
	PlayerCount int
	Transitions []models.TransitionAudit
}

// GetRoomState reports a room's active state key and its recent
// transition history from the audit trail.
func (as *AdminService) GetRoomState(args *RoomStateArgs, reply *RoomStateReply) error {
	r, exists := as.rooms.GetRoom(args.RoomID)
	if !exists {
		return room.ErrRoomNotFound
	}

	reply.State = r.CurrentState()
	reply.PlayerCount = r.PlayerCount()

	if as.store != nil {
		transitions, err := as.store.RecentTransitions(args.RoomID, 20)
		if err != nil {
			return err
		}
		reply.Transitions = transitions
	}
	return nil
}

type PlayerProfileArgs struct {
	UserID int64
}

type PlayerProfileReply struct {
	Profile *services.PlayerProfile
}

// GetPlayerProfile returns a player's record and statistics.
func (as *AdminService) GetPlayerProfile(args *PlayerProfileArgs, reply *PlayerProfileReply) error {
	profile, err := as.playerService.GetProfile(args.UserID)
	if err != nil {
		return err
	}
	reply.Profile = profile
	return nil
}
