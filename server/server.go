package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/rpc"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/tabooarena/arena"
	"github.com/wfunc/tabooarena/logger"
	"github.com/wfunc/tabooarena/monitor"
	"github.com/wfunc/tabooarena/network"
	tabooarena_rpc "github.com/wfunc/tabooarena/rpc"
	"github.com/wfunc/tabooarena/session"
)

type GameServer struct {
	addr           string
	staticDir      string
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	arena          *arena.Arena
	monitor        *monitor.Monitor
	rpcServer      *tabooarena_rpc.Server
	shutdownChan   chan struct{}
}

func NewGameServer(addr, rpcAddr, staticDir string, a *arena.Arena, sessions *session.Manager, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		addr:           addr,
		staticDir:      staticDir,
		sessionManager: sessions,
		arena:          a,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化RPC服务器
	rpcServer, err := tabooarena_rpc.NewServer(rpcAddr)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	// 注册RPC服务
	arenaService := tabooarena_rpc.NewArenaService(a)
	rpc.Register(arenaService)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	http.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	logger.Log.Infof("Arena server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
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
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncObservers()

	logger.Log.Infof("Observer connected from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Observer disconnected from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecObservers()
		wsConn.Close()
	}()

	s.sendInitialState(sess)

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			env, err := wsConn.ReadEnvelope()
			if err != nil {
				return
			}
			s.handleEnvelope(sess, env)
		}
	}
}

// sendInitialState 按连接时是否存在对局下发 noGame 或当前快照
func (s *GameServer) sendInitialState(sess *session.Session) {
	if g := s.arena.Current(); g != nil {
		sess.Send(network.EventGameInProgress, g.Snapshot())
		return
	}
	sess.Send(network.EventNoGame, nil)
}

func (s *GameServer) handleEnvelope(sess *session.Session, env *network.Envelope) {
	switch env.Event {
	case network.EventStartGame:
		s.handleStartGame(sess, env)
	default:
		logger.Log.Infof("Unknown event from session %s: %q", sess.GetID(), env.Event)
	}
}

func (s *GameServer) handleStartGame(sess *session.Session, env *network.Envelope) {
	var req network.StartGamePayload
	if err := json.Unmarshal(env.Data, &req); err != nil {
		sess.Send(network.EventError, "malformed startGame command")
		return
	}

	err := s.arena.StartGame(req.Topic, req.TabooA, req.TabooB)
	if err == nil {
		return
	}

	// 被拒绝的并发开局只回给发起方，现有对局不受影响
	if errors.Is(err, arena.ErrGameInProgress) {
		sess.Send(network.EventError, "A game is already in progress. Please wait for it to finish.")
		if g := s.arena.Current(); g != nil {
			sess.Send(network.EventGameInProgress, g.Snapshot())
		}
		return
	}

	logger.Log.Warnf("Rejected startGame from session %s: %v", sess.GetID(), err)
	sess.Send(network.EventError, err.Error())
}
