package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskCmd answers one question in-process and prints the reply.
func AskCmd() *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Answer a question locally",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			rt, err := setup(ctx, folder, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			answer := rt.app.Orchestrator.Answer(ctx, strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&folder, "folder", "f", "", "SOP folder (overrides SOPBOT_DATA_PATH)")

	return cmd
}
