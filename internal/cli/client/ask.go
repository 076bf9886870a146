package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/sopbot/internal/api/handlers"
)

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask a question about the SOPs",
		Long:  "Sends a question to the running sopbot server and prints the answer.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runAsk(cmd, api, strings.Join(args, " "), showSources, outputJSON)
		},
	}

	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Print the documents the answer was drawn from")

	return cmd
}

func runAsk(cmd *cobra.Command, api *APIClient, question string, showSources, outputJSON bool) error {
	resp, err := api.Post("/answer", handlers.AnswerRequest{Question: question})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var answer handlers.AnswerResponse
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	if outputJSON {
		return printJSON(cmd, answer)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, answer.Answer)
	if showSources && len(answer.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for _, s := range answer.Sources {
			fmt.Fprintf(out, "  %s\n", s)
		}
	}
	return nil
}
