package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/sopbot/internal/config"
	"github.com/cloo-solutions/sopbot/internal/database"
)

// MigrateCmd applies or reverts the index schema.
func MigrateCmd() *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres index schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.HasDatabase() {
				return fmt.Errorf("SOPBOT_DATABASE_URL is not set")
			}

			if down {
				return database.MigrateDown(cfg.DatabaseURL)
			}
			return database.Migrate(cfg.DatabaseURL)
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Revert all migrations")

	return cmd
}
