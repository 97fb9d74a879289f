package commands

import (
	"fmt"
	"strconv"
	"strings"

	contextutils "learnverse/internal/utils"

	"github.com/spf13/cobra"
)

// ProfileCommands returns the profile listing commands
func ProfileCommands(env *Env) *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "Profile commands",
	}

	profilesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every stored profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, err := env.Container(ctx)
			if err != nil {
				return err
			}
			profiles, err := container.GetProfileService()
			if err != nil {
				return err
			}
			ids, err := profiles.ListProfiles(ctx)
			if err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), ids, "no profiles")
			return nil
		},
	})

	return profilesCmd
}

// ProgressCommands returns the progress inspection and repair commands
func ProgressCommands(env *Env) *cobra.Command {
	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "Progress ledger commands",
		Long: `Inspect and edit a profile's progress.

Available commands:
  show       - Print the progress snapshot
  complete   - Mark a module completed
  score      - Record a quiz score percentage`,
	}

	progressCmd.AddCommand(showProgressCmd(env))
	progressCmd.AddCommand(completeModuleCmd(env))
	progressCmd.AddCommand(scoreModuleCmd(env))

	return progressCmd
}

func showProgressCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <profile>",
		Short: "Print the progress snapshot of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := env.Container(ctx)
			if err != nil {
				return err
			}
			progress, err := container.GetProgressService()
			if err != nil {
				return err
			}
			snapshot, err := progress.Snapshot(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snapshot)
		},
	}
}

func completeModuleCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <profile> <module>",
		Short: "Mark a module completed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := env.Container(ctx)
			if err != nil {
				return err
			}
			progress, err := container.GetProgressService()
			if err != nil {
				return err
			}
			result, err := progress.RecordCompletion(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.NewlyCompleted {
				fmt.Fprintf(out, "completed %s (subject streak %d)\n", result.ModuleID, result.SubjectStreak)
			} else {
				fmt.Fprintf(out, "%s was already completed\n", result.ModuleID)
			}
			printNewBadges(cmd, result.NewBadges)
			return nil
		},
	}
}

func scoreModuleCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "score <profile> <module> <percent>",
		Short: "Record a quiz score percentage",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			percent, err := parsePercent(args[2])
			if err != nil {
				return err
			}
			container, err := env.Container(ctx)
			if err != nil {
				return err
			}
			progress, err := container.GetProgressService()
			if err != nil {
				return err
			}
			result, err := progress.RecordQuizScore(ctx, args[0], args[1], percent)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s scored %d%%\n", result.ModuleID, result.Percent)
			printNewBadges(cmd, result.NewBadges)
			return nil
		},
	}
}

// parsePercent accepts "85" or "85%"; the range is checked by the progress service
func parsePercent(raw string) (int, error) {
	percent, err := strconv.Atoi(strings.TrimSuffix(raw, "%"))
	if err != nil {
		return 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "percent must be an integer, got %q", raw)
	}
	return percent, nil
}

func printNewBadges(cmd *cobra.Command, badges []string) {
	if len(badges) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "new badges: %s\n", strings.Join(badges, ", "))
	}
}
