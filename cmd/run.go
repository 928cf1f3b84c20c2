package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ammarena/strategyarena/pkg/compiler"
	appconfig "github.com/ammarena/strategyarena/pkg/config"
	"github.com/ammarena/strategyarena/pkg/runner"
	"github.com/ammarena/strategyarena/pkg/storage"
	"github.com/ammarena/strategyarena/pkg/submission"
)

var (
	runSubmissionsDir string
	runConfigPath     string
	runDBPath         string
	runSolcPath       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full tournament over a directory of submissions",
	Long: `Loads every submission directory under --submissions, validates,
compiles, and deploys each one, drives it against the market-flow
sequence described by --config, and persists a ranked leaderboard to
--db.`,
	RunE: runTournament,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runSubmissionsDir, "submissions", "", "directory containing one subdirectory per submission (required)")
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to a simulation config file (required)")
	runCmd.Flags().StringVar(&runDBPath, "db", "ammarena.db", "path to the SQLite results database")
	runCmd.Flags().StringVar(&runSolcPath, "solc", "solc", "path to the solc binary")
	runCmd.MarkFlagRequired("submissions")
	runCmd.MarkFlagRequired("config")
}

func runTournament(cmd *cobra.Command, args []string) error {
	logger, err := appconfig.NewLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	simCfg, err := appconfig.LoadSimulationConfig(runConfigPath)
	if err != nil {
		return fmt.Errorf("load simulation config: %w", err)
	}

	store, err := storage.Open(runDBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	entries, err := os.ReadDir(runSubmissionsDir)
	if err != nil {
		return fmt.Errorf("read submissions dir: %w", err)
	}

	var subs []*submission.Submission
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(runSubmissionsDir, entry.Name())
		sub, err := submission.Load(dir)
		if err != nil {
			logger.Warn("skipping unreadable submission", zap.String("dir", dir), zap.Error(err))
			continue
		}
		subs = append(subs, sub)
	}
	if len(subs) == 0 {
		return fmt.Errorf("no valid submissions found under %s", runSubmissionsDir)
	}

	comp := compiler.New(compiler.Config{
		SolcPath:   runSolcPath,
		EVMVersion: "paris",
		Timeout:    30 * time.Second,
	})

	r := runner.New(runner.Config{
		Compiler: comp,
		Store:    store,
		Logger:   logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	results, err := r.Tournament(ctx, subs, simCfg.ToMarketflow())
	if err != nil {
		return fmt.Errorf("tournament: %w", err)
	}

	for _, result := range results {
		if result.Err != nil {
			fmt.Printf("REJECTED %-12s %v\n", result.Submission.Manifest.Author, result.Err)
			continue
		}
		fmt.Printf("SCORED   %-12s score=%s fees_x=%s fees_y=%s sharpe=%s max_dd=%s\n",
			result.Submission.Manifest.Author, result.Score, result.RealizedX, result.RealizedY,
			result.Sharpe, result.MaxDrawdown)
	}

	return nil
}
