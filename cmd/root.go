package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ammarena",
	Short: "AMM fee-strategy tournament harness",
	Long: `ammarena runs competing fee-setting strategies against a shared
constant-product AMM core.

Each submission is a sandboxed Solidity contract implementing
IAMMStrategy. The harness validates and compiles the submission, deploys
it into a deterministic EVM sandbox, and drives it against a simulated
market-flow sequence, ranking competitors by realized fee income.`,
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
