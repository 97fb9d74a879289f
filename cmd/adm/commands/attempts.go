package commands

import (
	"fmt"

	"learnverse/internal/models"
	contextutils "learnverse/internal/utils"

	"github.com/spf13/cobra"
)

// AttemptCommands returns the quiz attempt log commands
func AttemptCommands(env *Env) *cobra.Command {
	attemptsCmd := &cobra.Command{
		Use:   "attempts",
		Short: "Quiz attempt log commands",
	}

	attemptsCmd.AddCommand(listAttemptsCmd(env))
	attemptsCmd.AddCommand(showAttemptCmd(env))

	return attemptsCmd
}

func listAttemptsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list <profile> [module]",
		Short: "List attempts of one module, or of every module newest first",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := env.Container(ctx)
			if err != nil {
				return err
			}
			attempts, err := container.GetAttemptService()
			if err != nil {
				return err
			}

			var list []models.QuizAttempt
			if len(args) == 2 {
				list, err = attempts.GetAttempts(ctx, args[0], args[1])
			} else {
				list, err = attempts.GetAllAttempts(ctx, args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no attempts")
				return nil
			}
			fmt.Fprintf(out, "%-32s %-7s %-20s %s\n", "VERSION", "SCORE", "FINISHED", "TIME")
			for _, a := range list {
				fmt.Fprintf(out, "%-32s %-7s %-20s %ds\n",
					a.VersionID,
					fmt.Sprintf("%d/%d", a.Score, a.TotalQuestions),
					a.EndTime.UTC().Format("2006-01-02 15:04:05"),
					a.TotalTime,
				)
			}
			return nil
		},
	}
}

func showAttemptCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <profile> <module> <attempt>",
		Short: "Print one attempt with its responses",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			number, err := parsePositive("attempt", args[2])
			if err != nil {
				return err
			}
			container, err := env.Container(ctx)
			if err != nil {
				return err
			}
			attempts, err := container.GetAttemptService()
			if err != nil {
				return err
			}
			attempt, found, err := attempts.GetAttempt(ctx, args[0], args[1], number)
			if err != nil {
				return err
			}
			if !found {
				return contextutils.NotFoundf("attempt %d of module %s", number, args[1])
			}
			return printJSON(cmd.OutOrStdout(), attempt)
		},
	}
}
