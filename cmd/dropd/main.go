package main

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"strings"

	"merkledrop/config"
	"merkledrop/core/events"
	"merkledrop/core/state"
	"merkledrop/native/airdrop"
	"merkledrop/observability"
	"merkledrop/observability/logging"
	"merkledrop/rpc"
	"merkledrop/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("DROPD_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var output io.Writer
	if strings.TrimSpace(cfg.LogFile) != "" {
		output = logging.RotatingWriter(cfg.LogFile)
	}
	logger := logging.Setup("dropd", env, output)

	admin, err := cfg.Admin()
	if err != nil {
		logger.Error("Invalid admin configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err), slog.String("dataDir", cfg.DataDir))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)

	engine := airdrop.NewEngine()
	engine.SetState(manager)
	engine.SetAdmin(admin)
	engine.SetEmitter(events.Multi(
		observability.NewLogEmitter(logger),
		observability.NewMetricsEmitter(),
	))

	logger.Info("Starting airdrop distribution service",
		slog.String("network", cfg.NetworkName),
		slog.String("rpcAddress", cfg.RPCAddress),
	)

	server := rpc.NewServer(engine, manager)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server terminated", slog.Any("error", err))
		os.Exit(1)
	}
}
