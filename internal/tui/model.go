// Package tui is the terminal chat front end for the SOP assistant.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cloo-solutions/sopbot/internal/domain"
)

const folderCommand = "/folder "

// Assistant is the TUI-facing subset of the question pipeline.
type Assistant interface {
	Answer(ctx context.Context, question string) string
	EnsureIndex(ctx context.Context, folder string) (*domain.BuildReport, error)
}

type turn struct {
	user bool
	text string
}

type answerMsg struct {
	answer string
}

type indexMsg struct {
	report *domain.BuildReport
	err    error
}

// Model is the Bubble Tea model for the chat.
type Model struct {
	ctx       context.Context
	assistant Assistant
	input     textinput.Model
	viewport  viewport.Model
	history   []turn
	folder    string
	status    string
	busy      bool
	ready     bool
}

// New creates a chat model. folder is shown as the active SOP folder.
func New(ctx context.Context, assistant Assistant, folder string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the SOPs, or /folder <path> to load a folder"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:       ctx,
		assistant: assistant,
		input:     ti,
		viewport:  vp,
		folder:    folder,
		status:    "Ready.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 2 + 1 + ih + th // header, status, input box
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		m.status = "Ready."
		m.history = append(m.history, turn{text: msg.answer})
		m.refresh()
		return m, nil

	case indexMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Index error: " + msg.err.Error()
			return m, nil
		}
		m.folder = msg.report.Folder
		m.status = fmt.Sprintf("Index %s: %d documents, %d chunks, %d skipped.",
			msg.report.Source, msg.report.Documents, msg.report.Chunks, len(msg.report.Skipped))
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	text := m.input.Value()
	m.input.Reset()

	if strings.HasPrefix(text, folderCommand) {
		folder := strings.TrimSpace(strings.TrimPrefix(text, folderCommand))
		m.busy = true
		m.status = "Indexing " + folder + "..."
		ctx, assistant := m.ctx, m.assistant
		return m, func() tea.Msg {
			report, err := assistant.EnsureIndex(ctx, folder)
			return indexMsg{report: report, err: err}
		}
	}

	m.busy = true
	m.status = "Thinking..."
	m.history = append(m.history, turn{user: true, text: text})
	m.refresh()
	ctx, assistant := m.ctx, m.assistant
	return m, func() tea.Msg {
		return answerMsg{answer: assistant.Answer(ctx, text)}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("SOP Assistant")
	folder := "no folder loaded"
	if m.folder != "" {
		folder = m.folder
	}
	header += "  " + dimStyle.Render(folder)
	return header + "\n\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(m.status)
}

func (m Model) renderTranscript() string {
	if len(m.history) == 0 {
		return dimStyle.Render("No questions yet.")
	}
	var b strings.Builder
	for i, t := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if t.user {
			b.WriteString(userStyle.Render("You: ") + t.text)
		} else {
			b.WriteString(botStyle.Render("Assistant: ") + t.text)
		}
	}
	return b.String()
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
