package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/reversus/reversus-server-go/internal/config"
	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/ai"
	"github.com/reversus/reversus-server-go/internal/repository"
	"github.com/reversus/reversus-server-go/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting Reversus server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	settings, err := cfg.Game.Settings()
	if err != nil {
		logger.Fatal("invalid game settings", zap.Error(err))
	}
	mode, err := game.ParseModeKind(cfg.Game.Mode)
	if err != nil {
		logger.Fatal("invalid game mode", zap.Error(err))
	}

	decider := newDecider(cfg.Decision, logger.Named("ai"))
	managerOpts := []server.ManagerOption{server.WithDecider(decider)}

	if cfg.Game.ReplayDir != "" {
		recorder := game.NewReplayRecorder(logger.Named("replay"), cfg.Game.ReplayDir)
		managerOpts = append(managerOpts, server.WithReplayRecorder(recorder))
		logger.Info("replay recording enabled", zap.String("dir", cfg.Game.ReplayDir))
	}

	if cfg.Database.Enabled() {
		db, results, err := openResults(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to open results database", zap.Error(err))
		}
		defer db.Close()
		managerOpts = append(managerOpts, server.WithResultSink(results))
	} else {
		logger.Warn("database not configured; game results will not be stored")
	}

	tableMgr := server.NewManager(settings, mode, logger.Named("tables"), managerOpts...)
	logger.Info("table manager initialized", zap.String("default_mode", string(mode)))

	grpcServer, healthServer := server.NewGRPCServer(ctx, cfg.Server.GRPC, tableMgr, logger.Named("grpc"))

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	// Start gRPC server
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	// Start WebSocket server
	wsDone := make(chan struct{})
	go func() {
		defer close(wsDone)
		if wsErr := server.StartWebSocketServer(ctx, cfg.Server.WebSocket, tableMgr, logger.Named("ws")); wsErr != nil {
			logger.Error("WebSocket server error", zap.Error(wsErr))
		}
	}()

	logger.Info("Reversus server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	healthServer.Shutdown()
	cancel()
	<-wsDone

	grpcServer.GracefulStop()

	logger.Info("Reversus server stopped",
		zap.Int64("decision_failures", decider.Failures()),
	)
}

// initLogger builds a console logger for development and a JSON logger
// when logging.format is "json". Unknown levels fall back to info.
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// newDecider builds the bot decision maker, consulting the remote
// suggestion service when one is configured.
func newDecider(cfg config.DecisionConfig, logger *zap.Logger) *ai.Decider {
	opts := []ai.DeciderOption{ai.WithPersonas(cfg.PersonaSet())}
	if cfg.Endpoint != "" {
		source := ai.NewHTTPSource(cfg.Endpoint, &http.Client{Timeout: cfg.Timeout})
		opts = append(opts, ai.WithSource(source, cfg.Timeout))
		logger.Info("decision source configured",
			zap.String("endpoint", cfg.Endpoint),
			zap.Duration("timeout", cfg.Timeout),
		)
	}
	return ai.NewDecider(logger, opts...)
}

// openResults connects to PostgreSQL and prepares the results schema.
func openResults(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*repository.DB, *repository.ResultStore, error) {
	db, err := repository.NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	stats := db.Stats()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)
	return db, repository.NewResultStore(db.Pool, logger.Named("results")), nil
}
