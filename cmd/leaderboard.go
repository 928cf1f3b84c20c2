package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ammarena/strategyarena/pkg/storage"
)

var (
	leaderboardDBPath string
	leaderboardRunID  string
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Print a previously persisted run's leaderboard",
	Args:  cobra.NoArgs,
	RunE:  runLeaderboard,
}

func init() {
	rootCmd.AddCommand(leaderboardCmd)

	leaderboardCmd.Flags().StringVar(&leaderboardDBPath, "db", "ammarena.db", "path to the SQLite results database")
	leaderboardCmd.Flags().StringVar(&leaderboardRunID, "run", "", "run ID to print (required)")
	leaderboardCmd.MarkFlagRequired("run")
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	store, err := storage.Open(leaderboardDBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	entries, err := store.Leaderboard(leaderboardRunID)
	if err != nil {
		return fmt.Errorf("read leaderboard: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("no entries for this run")
		return nil
	}

	fmt.Printf("%-4s %-38s %-14s %-12s %-12s %-10s %-10s\n", "rank", "submission", "score", "fees_x", "fees_y", "sharpe", "max_dd")
	for _, e := range entries {
		fmt.Printf("%-4d %-38s %-14s %-12s %-12s %-10s %-10s\n",
			e.Rank, e.SubmissionID, e.RealizedPnL, e.AccumulatedFeesX, e.AccumulatedFeesY, e.Sharpe, e.MaxDrawdown)
	}
	return nil
}
