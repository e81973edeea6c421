// Package main implements the ckptctl CLI for manual operations against
// the checkpoint store.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wrenlabs/checkpointd/internal/checkpoint"
	"github.com/wrenlabs/checkpointd/internal/config"
	"github.com/wrenlabs/checkpointd/internal/redis"
)

var (
	// redis connection flags
	redisHost     string
	redisPort     int
	redisPassword string
	redisDB       int
	namespace     string
	outputAsJSON  bool

	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ckptctl",
	Short: "CLI for checkpoint store operations",
	Long: `ckptctl is a command-line interface for inspecting and managing the
Redis-backed checkpoint store used by checkpointd.

It connects directly to Redis, so it works even when the daemon is down.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&redisHost, "redis-host", "localhost", "Redis host")
	rootCmd.PersistentFlags().IntVar(&redisPort, "redis-port", 6379, "Redis port")
	rootCmd.PersistentFlags().StringVar(&redisPassword, "redis-password", "", "Redis password (or CHECKPOINTD_REDIS_PASSWORD)")
	rootCmd.PersistentFlags().IntVar(&redisDB, "redis-db", 0, "Redis database number")
	rootCmd.PersistentFlags().StringVar(&namespace, "namespace", config.DefaultNamespace, "Checkpoint key namespace")
	rootCmd.PersistentFlags().BoolVar(&outputAsJSON, "json", false, "Output results as JSON")

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(ttlCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
}

// initStore builds a checkpoint store from the connection flags.
//
// The returned cleanup closes both the store and the underlying client.
func initStore() (*checkpoint.Store, func(), error) {
	if redisPassword == "" {
		redisPassword = os.Getenv("CHECKPOINTD_REDIS_PASSWORD")
	}

	clientCfg := redis.DefaultClientConfig()
	clientCfg.Host = redisHost
	clientCfg.Port = redisPort
	clientCfg.Password = config.Secret(redisPassword)
	clientCfg.DB = redisDB

	client, err := redis.NewClient(clientCfg, zap.NewNop())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	storeCfg := checkpoint.DefaultStoreConfig()
	storeCfg.Namespace = namespace

	store, err := checkpoint.NewStore(storeCfg, client, zap.NewNop())
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	cleanup := func() {
		_ = store.Close()
		_ = client.Close()
	}
	return store, cleanup, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
