package commands

import (
	"learnverse/internal/version"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the adm command tree
func NewRootCommand(env *Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "LearnVerse administration tool",
		Long: `LearnVerse administration tool

Inspect and repair learner progress, badges and quiz attempts, move
profiles between stores and manage the SQL schema.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(DatabaseCommands(env))
	rootCmd.AddCommand(ProfileCommands(env))
	rootCmd.AddCommand(ProgressCommands(env))
	rootCmd.AddCommand(BadgeCommands(env))
	rootCmd.AddCommand(AttemptCommands(env))
	rootCmd.AddCommand(TransferCommands(env)...)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), version.Get("learnverse-adm"))
		},
	}
}
