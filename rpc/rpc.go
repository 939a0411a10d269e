package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/tabooarena/game"
	"github.com/wfunc/tabooarena/logger"
)

// ErrNoGame is returned when no game has been created yet.
var ErrNoGame = errors.New("no game exists")

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
			// Check if the error is due to the listener being closed.
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

// GameSource is the read-only view of the arena the RPC service needs.
type GameSource interface {
	Current() *game.Game
	Running() bool
}

// ArenaService exposes ops queries over net/rpc.
type ArenaService struct {
	source GameSource
}

// NewArenaService creates a new ArenaService.
func NewArenaService(source GameSource) *ArenaService {
	return &ArenaService{source: source}
}

// CurrentGame returns a snapshot of the live game.
// It must follow the net/rpc signature: exported method, exported arguments,
// second argument is a pointer, return type is error.
type CurrentGameArgs struct{}

type CurrentGameReply struct {
	Running  bool
	Snapshot game.Snapshot
}

func (as *ArenaService) CurrentGame(args *CurrentGameArgs, reply *CurrentGameReply) error {
	g := as.source.Current()
	if g == nil {
		return ErrNoGame
	}
	reply.Running = as.source.Running()
	reply.Snapshot = g.Snapshot()
	return nil
}
