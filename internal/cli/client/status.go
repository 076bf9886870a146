package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/sopbot/internal/api/handlers"
)

// StatusResponse combines server health and the active index.
type StatusResponse struct {
	Health handlers.HealthResponse       `json:"health"`
	Index  *handlers.IndexStatusResponse `json:"index,omitempty"`
}

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server health and the active index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runStatus(cmd, api, outputJSON)
		},
	}
}

func runStatus(cmd *cobra.Command, api *APIClient, outputJSON bool) error {
	var status StatusResponse

	resp, err := api.Get("/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if err := json.Unmarshal(resp.Data, &status.Health); err != nil {
		return fmt.Errorf("failed to parse health: %w", err)
	}

	resp, err = api.Get("/index")
	var apiErr *APIError
	switch {
	case err == nil:
		status.Index = &handlers.IndexStatusResponse{}
		if err := json.Unmarshal(resp.Data, status.Index); err != nil {
			return fmt.Errorf("failed to parse index status: %w", err)
		}
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
	default:
		return fmt.Errorf("index status failed: %w", err)
	}

	if outputJSON {
		return printJSON(cmd, status)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Server: %s\n", status.Health.Status)
	if status.Index == nil {
		fmt.Fprintln(out, "Index:  none loaded")
		return nil
	}
	m := status.Index.Manifest
	fmt.Fprintf(out, "Index:  %s\n", status.Index.Folder)
	fmt.Fprintf(out, "  Build:     %s (%s)\n", m.BuildID, m.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Model:     %s (%d dimensions)\n", m.EmbeddingModel, m.Dimension)
	fmt.Fprintf(out, "  Documents: %d\n", m.DocumentCount)
	fmt.Fprintf(out, "  Chunks:    %d\n", m.ChunkCount)
	return nil
}
