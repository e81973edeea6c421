// Checkpointd is the checkpoint daemon for conversational agent sessions.
//
// It fronts a Redis backend that holds the latest checkpoint per session
// and exposes an HTTP admin API for inspecting, expiring, and purging
// session state.
//
// Configuration is loaded from an optional YAML file plus CHECKPOINTD_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start daemon with defaults (Redis on localhost:6379)
//	checkpointd
//
//	# Configure via file and environment
//	checkpointd --config /etc/checkpointd/config.yaml
//	CHECKPOINTD_SERVER_PORT=9090 CHECKPOINTD_REDIS_HOST=redis checkpointd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/wrenlabs/checkpointd/internal/checkpoint"
	"github.com/wrenlabs/checkpointd/internal/config"
	"github.com/wrenlabs/checkpointd/internal/logging"
	"github.com/wrenlabs/checkpointd/internal/redis"
	"github.com/wrenlabs/checkpointd/internal/server"
	"github.com/wrenlabs/checkpointd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  checkpointd           Start the checkpoint daemon\n")
			fmt.Fprintf(os.Stderr, "  checkpointd version   Show version information\n")
			os.Exit(1)
		}
	}

	// Signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("checkpointd by Wren Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until the context is cancelled.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Initialize telemetry, then the logger (bridged to the log exporter)
//  3. Connect the Redis client and verify reachability
//  4. Create the checkpoint store
//  5. Start the HTTP admin server
//  6. Graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	telemetry.Version = version
	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger, err := logging.New(cfg.Logging, logging.WithLoggerProvider(tel.LoggerProvider()))
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting checkpointd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("namespace", cfg.Store.Namespace),
		zap.Duration("ttl", cfg.Store.TTL),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	client, err := redis.NewClient(redis.FromConfig(cfg.Redis), logger)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Ping(ctx); err != nil {
		logger.Warn("redis unreachable at startup, continuing anyway",
			zap.String("addr", redis.FromConfig(cfg.Redis).Addr()),
			zap.Error(err))
	} else {
		logger.Info("Connected to redis",
			zap.String("addr", redis.FromConfig(cfg.Redis).Addr()),
			zap.Int("db", cfg.Redis.DB))
	}

	store, err := checkpoint.NewStore(&checkpoint.StoreConfig{
		Namespace: cfg.Store.Namespace,
		TTL:       cfg.Store.TTL,
	}, client, logger)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	srv, err := server.NewServer(store, logger, &server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
