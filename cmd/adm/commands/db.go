package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"learnverse/internal/config"
	"learnverse/internal/database"
	contextutils "learnverse/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the schema management commands
func DatabaseCommands(env *Env) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the SQL storage backends.

Available commands:
  migrate   - Apply pending schema migrations
  status    - Show the applied and latest schema version
  reset     - Delete every stored profile and rebuild the schema`,
	}

	dbCmd.AddCommand(migrateCmd(env))
	dbCmd.AddCommand(statusCmd(env))
	dbCmd.AddCommand(resetCmd(env))

	return dbCmd
}

func migrateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := requireSQLStorage(env.Config); err != nil {
				return err
			}

			env.Logger.Info(ctx, "Running migrations", map[string]interface{}{
				"driver": env.Config.Storage.Driver,
				"dsn":    maskDSN(env.Config.Storage.DSN),
			})
			dm := database.NewManager(env.Logger)
			if err := dm.Migrate(ctx, env.Config.Storage); err != nil {
				return contextutils.WrapError(err, "migration failed")
			}
			status, err := dm.Status(ctx, env.Config.Storage)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", status.Version)
			return nil
		},
	}
}

func statusCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied and latest schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireSQLStorage(env.Config); err != nil {
				return err
			}
			status, err := database.NewManager(env.Logger).Status(cmd.Context(), env.Config.Storage)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "driver:  %s\n", env.Config.Storage.Driver)
			fmt.Fprintf(out, "dsn:     %s\n", maskDSN(env.Config.Storage.DSN))
			fmt.Fprintf(out, "version: %d (latest %d)\n", status.Version, status.Latest)
			if status.Dirty {
				fmt.Fprintln(out, "state:   dirty")
			} else if status.Version < status.Latest {
				fmt.Fprintln(out, "state:   pending migrations")
			} else {
				fmt.Fprintln(out, "state:   up to date")
			}
			return nil
		},
	}
}

func resetCmd(env *Env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored profile and rebuild the schema",
		Long: `Roll back every migration and apply them again. This permanently deletes
all learner progress in the configured store. You are asked to type 'yes'
unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := requireSQLStorage(env.Config); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "This will PERMANENTLY DELETE every profile in %s (%s)\n",
				maskDSN(env.Config.Storage.DSN), env.Config.Storage.Driver)
			if !yes && !confirmReset(cmd.InOrStdin(), out) {
				fmt.Fprintln(out, "Reset cancelled.")
				return nil
			}
			if err := env.Close(ctx); err != nil {
				return err
			}
			if err := database.NewManager(env.Logger).Reset(ctx, env.Config.Storage); err != nil {
				return contextutils.WrapError(err, "reset failed")
			}
			fmt.Fprintln(out, "Database reset completed.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}

func confirmReset(in io.Reader, out io.Writer) bool {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "Are you sure you want to reset the database? (type 'yes' to confirm): ")
		response, err := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		switch {
		case response == "yes":
			return true
		case response == "no" || response == "" || err != nil:
			return false
		default:
			fmt.Fprintln(out, "Please type 'yes' to confirm or 'no' to cancel.")
		}
	}
}

func requireSQLStorage(cfg *config.Config) error {
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == config.DriverMemory {
		return contextutils.WrapErrorf(contextutils.ErrInvalidConfig, "storage driver %q has no schema", config.DriverMemory)
	}
	return nil
}
