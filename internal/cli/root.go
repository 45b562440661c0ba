// Package cli implements quizctl, the operator and student command line.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/stemsi/quizhub-backend/internal/config"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:           "quizctl",
		Short:         "QuizHub administration and terminal quiz client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(newMigrateCmd(cfg))
	cmd.AddCommand(newCreateAdminCmd(cfg))
	cmd.AddCommand(newTakeCmd())
	return cmd
}
