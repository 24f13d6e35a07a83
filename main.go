package main

import (
	"github.com/wfunc/gamekit/config"
	"github.com/wfunc/gamekit/logger"
	"github.com/wfunc/gamekit/monitor"
	"github.com/wfunc/gamekit/persistence"
	"github.com/wfunc/gamekit/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Init()
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger, with a log file when configured
	if cfg.Log.File != "" {
		if err := logger.InitWithFile(cfg.Log.File); err != nil {
			panic("failed to initialize logger: " + err.Error())
		}
	} else {
		logger.Init()
	}
	defer logger.Sync()

	// Initialize Database
	store, err := openStore(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Infof("Database connection successful (driver: %s).", cfg.Database.Driver)

	// Metrics endpoint
	mon := monitor.NewMonitor("gamekit")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg, store, mon)

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

// openStore selects the postgres access layer by the configured driver.
func openStore(cfg *config.Config) (persistence.Store, error) {
	pg := cfg.Database.Postgres
	switch cfg.Database.Driver {
	case "pq":
		return persistence.NewPQStore(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		return persistence.NewGormStore(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	}
}
