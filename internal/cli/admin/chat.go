package admin

import (
	"context"
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/service"
	"github.com/cloo-solutions/sopbot/internal/tui"
)

// assistant joins the answer pipeline and the index cache for the chat UI.
type assistant struct {
	orchestrator *service.Orchestrator
	cache        *service.IndexCache
}

func (a assistant) Answer(ctx context.Context, question string) string {
	return a.orchestrator.Answer(ctx, question)
}

func (a assistant) EnsureIndex(ctx context.Context, folder string) (*domain.BuildReport, error) {
	return a.cache.EnsureIndex(ctx, folder)
}

// ChatCmd opens the terminal chat.
func ChatCmd() *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the SOP assistant in the terminal",
		Long: `Opens an interactive chat. Type a question and press Enter. Use
/folder <path> to index another folder. Esc or Ctrl+C quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			rt, err := setup(ctx, folder, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			// log output would corrupt the alternate screen
			log.SetOutput(io.Discard)

			model := tui.New(ctx, assistant{
				orchestrator: rt.app.Orchestrator,
				cache:        rt.app.Cache,
			}, rt.cfg.DataPath)

			if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
				return fmt.Errorf("chat failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&folder, "folder", "f", "", "SOP folder (overrides SOPBOT_DATA_PATH)")

	return cmd
}
