package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/sopbot/internal/api/handlers"
	"github.com/cloo-solutions/sopbot/internal/domain"
)

// IndexCmd creates the index command.
func IndexCmd() *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "index [folder]",
		Short: "Load or build the SOP index on the server",
		Long: `Asks the server to index a folder of .docx SOPs. The server reuses its
current index when the folder has not changed. With --rebuild the folder is
re-read even if it is already indexed; the folder may then be omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !rebuild {
				return fmt.Errorf("folder is required unless --rebuild is set")
			}
			folder := ""
			if len(args) == 1 {
				folder = args[0]
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runIndex(cmd, api, folder, rebuild, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Rebuild even if the folder is already indexed")

	return cmd
}

func runIndex(cmd *cobra.Command, api *APIClient, folder string, rebuild, outputJSON bool) error {
	resp, err := api.Post("/index", handlers.IndexRequest{Folder: folder, Rebuild: rebuild})
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	var report domain.BuildReport
	if err := json.Unmarshal(resp.Data, &report); err != nil {
		return fmt.Errorf("failed to parse build report: %w", err)
	}

	if outputJSON {
		return printJSON(cmd, report)
	}
	PrintReport(cmd, &report)
	return nil
}

// PrintReport writes a human-readable build report.
func PrintReport(cmd *cobra.Command, report *domain.BuildReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Index %s for %s\n", report.Source, report.Folder)
	fmt.Fprintf(out, "  Build:     %s\n", report.BuildID)
	fmt.Fprintf(out, "  Documents: %d\n", report.Documents)
	fmt.Fprintf(out, "  Chunks:    %d\n", report.Chunks)
	if len(report.Skipped) > 0 {
		fmt.Fprintf(out, "  Skipped:   %d\n", len(report.Skipped))
		for _, s := range report.Skipped {
			fmt.Fprintf(out, "    %s: %s\n", s.Path, s.Reason)
		}
	}
}
