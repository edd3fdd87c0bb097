package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"finanzas/internal/config"
	"finanzas/internal/storage"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to the configured SQL backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			switch rt.cfg.DataBackend {
			case config.BackendSQLite:
				if err := storage.RunMigrations(rt.cfg.SQLiteDBPath); err != nil {
					return err
				}
			case config.BackendPostgres:
				repo, err := storage.NewPostgresRepository(cmd.Context(), rt.cfg.PostgresURL, false)
				if err != nil {
					return err
				}
				defer repo.Close()
				if err := repo.Migrate(); err != nil {
					return err
				}
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "backend %s has no schema migrations\n", rt.cfg.DataBackend)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied to %s backend\n", rt.cfg.DataBackend)
			return nil
		},
	}
}
