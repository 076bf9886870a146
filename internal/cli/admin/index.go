package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/sopbot/internal/cli/client"
	"github.com/cloo-solutions/sopbot/internal/domain"
)

// IndexCmd builds or loads the index in-process, without a running server.
func IndexCmd() *cobra.Command {
	var rebuild, noMigrate bool

	cmd := &cobra.Command{
		Use:   "index [folder]",
		Short: "Build or load the SOP index locally",
		Long: `Indexes a folder of .docx SOPs using the configured backend. An existing
index for the same folder and embedding model is reused unless --rebuild is set.
The folder defaults to SOPBOT_DATA_PATH.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := ""
			if len(args) == 1 {
				folder = args[0]
			}

			ctx := context.Background()
			rt, err := setup(ctx, folder, !noMigrate)
			if err != nil {
				return err
			}
			defer rt.Close()

			folder = rt.cfg.DataPath
			if folder == "" {
				return fmt.Errorf("folder is required (argument or SOPBOT_DATA_PATH)")
			}

			var report *domain.BuildReport
			if rebuild {
				report, err = rt.app.Cache.Rebuild(ctx, folder)
			} else {
				report, err = rt.app.Cache.EnsureIndex(ctx, folder)
			}
			if err != nil {
				return fmt.Errorf("index failed: %w", err)
			}

			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			client.PrintReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Rebuild even if an index for the folder exists")
	cmd.Flags().BoolVar(&noMigrate, "no-migrate", false, "Skip automatic database migrations")

	return cmd
}
