package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/bcap"
	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/config"
	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/oplog"
	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/robot"
	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/server"
)

const appVersion = "0.1.0"

var (
	version    = flag.Bool("version", false, "Print version and exit")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	httpMode   = flag.Bool("http", false, "Enable HTTP/SSE transport instead of stdio")
	simMode    = flag.Bool("sim", false, "Use the in-memory simulator instead of a live controller")
	configPath = flag.String("config", "", "Path to YAML configuration file")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("bcapd v%s\n", appVersion)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger.Info("starting bcapd",
		"version", appVersion,
		"debug", *debug,
		"http", *httpMode,
		"sim", *simMode,
		"oplog_backend", cfg.OpLog.Backend,
	)

	store, closeStore, err := newStore(cfg)
	if err != nil {
		logger.Error("operation log store error", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	opLog := oplog.New(store, logger)

	dial := liveDial
	if *simMode {
		dial = bcap.SimDial
	}

	engine := robot.New(dial, opLog, logger, robot.Options{
		SettleShort:      cfg.Motion.SettleShort.Std(),
		SettleLong:       cfg.Motion.SettleLong.Std(),
		SlavePause:       cfg.Motion.SlavePause.Std(),
		GripperMax:       cfg.Motion.GripperMaxM,
		DefaultRobotName: cfg.Robot.DefaultRobotName,
		DefaultProvider:  cfg.Robot.DefaultProvider,
		DefaultMachine:   cfg.Robot.DefaultMachine,
	})
	defer engine.Reset()

	mcpServer := server.NewMCPServer(server.Options{
		Name:           cfg.Server.Name,
		Version:        appVersion,
		DefaultHost:    cfg.Robot.DefaultHost,
		DefaultPort:    cfg.Robot.DefaultPort,
		DefaultTimeout: cfg.Robot.DefaultTimeout.Std().Seconds(),
		DefaultSpeed:   cfg.Motion.DefaultSpeed,
	}, engine, opLog, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		var serveErr error
		if *httpMode || cfg.Server.HTTP {
			serveErr = mcpServer.ServeHTTP(cfg.Server.HTTPAddr)
		} else {
			serveErr = mcpServer.Serve()
		}
		if serveErr != nil {
			logger.Error("server error", "error", serveErr)
		}
		cancel()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	engine.Reset()
	logger.Info("shutdown complete")
}

// newStore builds the operation log store named by the configuration.
func newStore(cfg *config.Config) (oplog.Store, func(), error) {
	switch cfg.OpLog.Backend {
	case config.BackendSQLite:
		store, err := oplog.NewSQLiteStore(cfg.OpLog.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return oplog.NewMemoryStore(cfg.OpLog.Capacity), func() {}, nil
	}
}

// liveDial is the production dialer. The wire-level protocol client is
// an external component; until one is linked in, live connections are
// refused with a clear error. Use -sim for the simulator.
func liveDial(host string, port int, timeout time.Duration) (bcap.Client, error) {
	return nil, errors.Errorf("no b-CAP protocol client linked for %s:%d; run with -sim", host, port)
}
