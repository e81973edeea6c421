package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrenlabs/checkpointd/internal/checkpoint"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage active sessions",
	Long: `Manage active checkpoint sessions in the store.

Examples:
  # List all active sessions
  ckptctl sessions list

  # Show the checkpoint for one session
  ckptctl sessions get cli_20251108_145739

  # Delete one session
  ckptctl sessions delete cli_20251108_145739

  # Delete every session in the namespace
  ckptctl sessions purge --force`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active sessions with remaining TTLs",
	RunE:  runSessionsList,
}

var sessionsGetCmd = &cobra.Command{
	Use:   "get <session-id>",
	Short: "Show the stored checkpoint for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsGet,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session's checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var purgeForce bool

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every checkpoint in the namespace",
	RunE:  runSessionsPurge,
}

var ttlCmd = &cobra.Command{
	Use:   "ttl <session-id>",
	Short: "Show the remaining lifetime of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runTTL,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate store statistics",
	RunE:  runStats,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend reachability",
	RunE:  runHealth,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsGetCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsPurgeCmd)

	sessionsPurgeCmd.Flags().BoolVar(&purgeForce, "force", false, "Skip confirmation prompt")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, cleanup, err := initStore()
	if err != nil {
		return err
	}
	defer cleanup()

	sessions, err := store.ListActive(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if outputAsJSON {
		return outputJSON(sessions)
	}

	if len(sessions) == 0 {
		fmt.Println("No active sessions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tREMAINING TTL")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\n", s.SessionID, s.RemainingTTL.Round(time.Second))
	}
	w.Flush()

	return nil
}

func runSessionsGet(cmd *cobra.Command, args []string) error {
	store, cleanup, err := initStore()
	if err != nil {
		return err
	}
	defer cleanup()

	cp, err := store.Load(context.Background(), args[0])
	if err != nil {
		return describeLoadError(args[0], err)
	}

	if outputAsJSON {
		return outputJSON(cp)
	}

	fmt.Printf("Session: %s\n", args[0])
	fmt.Printf("Turns: %d\n", cp.TurnCount)
	fmt.Printf("Complete: %v\n", cp.IsComplete)
	if !cp.UpdatedAt.IsZero() {
		fmt.Printf("Updated: %s\n", cp.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	if len(cp.Analysis) > 0 {
		fmt.Printf("Analysis: %s\n", string(cp.Analysis))
	}
	fmt.Printf("\nMessages:\n")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tCONTENT")
	for _, m := range cp.Messages {
		fmt.Fprintf(w, "%s\t%s\n", m.Role, truncate(m.Content, 80))
	}
	w.Flush()

	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	store, cleanup, err := initStore()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.Delete(context.Background(), args[0]); err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return fmt.Errorf("session %s not found", args[0])
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}

	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}

func runSessionsPurge(cmd *cobra.Command, args []string) error {
	if !purgeForce {
		return fmt.Errorf("refusing to purge without --force")
	}

	store, cleanup, err := initStore()
	if err != nil {
		return err
	}
	defer cleanup()

	deleted, err := store.PurgeAll(context.Background())
	if err != nil {
		return fmt.Errorf("failed to purge sessions: %w", err)
	}

	fmt.Printf("Deleted %d session(s)\n", deleted)
	return nil
}

func runTTL(cmd *cobra.Command, args []string) error {
	store, cleanup, err := initStore()
	if err != nil {
		return err
	}
	defer cleanup()

	ttl, err := store.RemainingTTL(context.Background(), args[0])
	if err != nil {
		return describeLoadError(args[0], err)
	}

	if outputAsJSON {
		return outputJSON(map[string]interface{}{
			"session_id":            args[0],
			"remaining_ttl_seconds": ttl.Seconds(),
		})
	}

	fmt.Printf("Session: %s\n", args[0])
	fmt.Printf("Remaining TTL: %s\n", ttl.Round(time.Second))
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	store, cleanup, err := initStore()
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	if outputAsJSON {
		return outputJSON(stats)
	}

	fmt.Printf("Active sessions: %d\n", stats.ActiveSessions)
	fmt.Printf("Avg remaining TTL: %s\n", stats.AvgRemainingTTL.Round(time.Second))
	fmt.Printf("Backend keys: %d\n", stats.BackendKeys)
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	store, cleanup, err := initStore()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.Ping(context.Background()); err != nil {
		return fmt.Errorf("backend unreachable at %s:%d: %w", redisHost, redisPort, err)
	}

	fmt.Printf("Backend Status: ok\n")
	fmt.Printf("Backend: %s:%d (db %d)\n", redisHost, redisPort, redisDB)
	return nil
}

// describeLoadError gives the operator a clearer message than the raw
// sentinel chain.
func describeLoadError(sessionID string, err error) error {
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		return fmt.Errorf("session %s not found (expired or never saved)", sessionID)
	case errors.Is(err, checkpoint.ErrCorruptRecord):
		return fmt.Errorf("session %s has a corrupt record: %w", sessionID, err)
	default:
		return err
	}
}
