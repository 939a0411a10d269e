package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/wfunc/tabooarena/arena"
	"github.com/wfunc/tabooarena/broadcast"
	"github.com/wfunc/tabooarena/config"
	"github.com/wfunc/tabooarena/inference"
	"github.com/wfunc/tabooarena/logger"
	"github.com/wfunc/tabooarena/monitor"
	"github.com/wfunc/tabooarena/server"
	"github.com/wfunc/tabooarena/session"
)

func main() {
	// .env is optional; the token may come from the environment directly
	godotenv.Load()

	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	token := os.Getenv(cfg.Inference.TokenEnv)
	if token == "" {
		logger.Log.Fatalf("Missing completion gateway token: set %s", cfg.Inference.TokenEnv)
	}

	// Completion gateway client
	client := inference.NewClient(cfg.Inference.Endpoint, token)

	// Metrics endpoint
	mon := monitor.NewMonitor("tabooarena")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Observer sessions, broadcast and the arena
	sessions := session.NewManager()
	a := arena.New(
		client,
		broadcast.NewSessionBroadcaster(sessions),
		mon,
		cfg.Game.Models,
		time.Duration(cfg.Game.TurnDelayMS)*time.Millisecond,
	)

	// Start Server
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, cfg.Server.RPCAddress, cfg.Server.StaticDir, a, sessions, mon)
	logger.Log.Infof("Starting arena server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
