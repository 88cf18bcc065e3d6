package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(open Opener) *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply all pending migrations, or roll back with --down.

Examples:
  graphctl migrate
  graphctl migrate --down 1
  graphctl migrate version`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(svc *Services) error {
				if down > 0 {
					if err := svc.Migrator.Down(down); err != nil {
						return fmt.Errorf("roll back migrations: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", down)
					return nil
				}
				if err := svc.Migrator.Up(); err != nil {
					return fmt.Errorf("apply migrations: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "Number of migrations to roll back")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(svc *Services) error {
				version, dirty, err := svc.Migrator.Version()
				if err != nil {
					return fmt.Errorf("read migration version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}
