package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ammarena/strategyarena/pkg/submission"
	"github.com/ammarena/strategyarena/pkg/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate <submission-dir>",
	Short: "Run source-level validation on a single submission",
	Long: `Loads strategy.sol and manifest.json from the given directory and
runs the lexical/syntactic validator against it, without compiling or
deploying. Useful for fast competitor-side iteration.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	sub, err := submission.Load(args[0])
	if err != nil {
		return fmt.Errorf("load submission: %w", err)
	}

	result := validator.New().Validate(sub.Source)
	if result.Valid {
		fmt.Println("OK: no validation errors")
		return nil
	}

	fmt.Println("REJECTED:")
	for _, e := range result.Errors {
		fmt.Printf("  - %s\n", e)
	}
	return fmt.Errorf("validation failed with %d error(s)", len(result.Errors))
}
