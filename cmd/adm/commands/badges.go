package commands

import (
	"fmt"

	"learnverse/internal/models"
	contextutils "learnverse/internal/utils"

	"github.com/spf13/cobra"
)

// BadgeCommands returns the badge inspection and repair commands
func BadgeCommands(env *Env) *cobra.Command {
	badgesCmd := &cobra.Command{
		Use:   "badges",
		Short: "Badge commands",
		Long: `Inspect, award and repair badges.

Available commands:
  list        - Show every badge and whether the profile earned it
  award       - Award a manually granted badge
  reconcile   - Rebuild badge lists from the recorded progress`,
	}

	badgesCmd.AddCommand(listBadgesCmd(env))
	badgesCmd.AddCommand(awardBadgeCmd(env))
	badgesCmd.AddCommand(reconcileBadgesCmd(env))

	return badgesCmd
}

func listBadgesCmd(env *Env) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "list <profile>",
		Short: "Show every badge and whether the profile earned it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := env.Container(ctx)
			if err != nil {
				return err
			}
			badges, err := container.GetBadgeService()
			if err != nil {
				return err
			}
			statuses, err := badges.BadgeProgress(ctx, args[0], subject)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-28s %-7s %s\n", "ID", "EARNED", "NAME")
			for _, s := range statuses {
				earned := "no"
				if s.Earned {
					earned = "yes"
				}
				fmt.Fprintf(out, "%-28s %-7s %s\n", s.ID, earned, s.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Only show badges of this subject")

	return cmd
}

func awardBadgeCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "award <profile> <badge>",
		Short: "Award a manually granted badge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := env.Container(ctx)
			if err != nil {
				return err
			}
			badges, err := container.GetBadgeService()
			if err != nil {
				return err
			}
			awarded, err := badges.AwardBadge(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if awarded {
				fmt.Fprintf(cmd.OutOrStdout(), "awarded %s\n", args[1])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already held %s\n", args[0], args[1])
			}
			return nil
		},
	}
}

func reconcileBadgesCmd(env *Env) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reconcile [profile]",
		Short: "Rebuild badge lists from the recorded progress",
		Long: `Drop badge ids the catalog does not know, add derivable badges that are
missing and rewrite unlocked skills. Pass a profile or --all.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if all == (len(args) == 1) {
				return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "pass either a profile or --all")
			}
			container, err := env.Container(ctx)
			if err != nil {
				return err
			}
			badges, err := container.GetBadgeService()
			if err != nil {
				return err
			}

			var reports []models.ReconcileReport
			if all {
				reports, err = badges.ReconcileAll(ctx)
			} else {
				var report *models.ReconcileReport
				report, err = badges.Reconcile(ctx, args[0])
				if report != nil {
					reports = append(reports, *report)
				}
			}
			for _, r := range reports {
				printReconcileReport(cmd, r)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Reconcile every stored profile")

	return cmd
}

func printReconcileReport(cmd *cobra.Command, r models.ReconcileReport) {
	out := cmd.OutOrStdout()
	if !r.Changed() {
		fmt.Fprintf(out, "%s: unchanged\n", r.ProfileID)
		return
	}
	fmt.Fprintf(out, "%s: added %v removed %v\n", r.ProfileID, r.Added, r.Removed)
}
