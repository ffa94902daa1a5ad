package main

import (
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	errPromptCanceled = errors.New("login canceled")

	promptLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	promptHintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// tokenPrompt is a single masked input line.
type tokenPrompt struct {
	input    textinput.Model
	done     bool
	canceled bool
}

func newTokenPrompt() tokenPrompt {
	ti := textinput.New()
	ti.Prompt = promptLabelStyle.Render("Token: ")
	ti.Placeholder = "paste session token"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.Focus()
	return tokenPrompt{input: ti}
}

func (m tokenPrompt) Init() tea.Cmd {
	return textinput.Blink
}

func (m tokenPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEscape:
			m.canceled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m tokenPrompt) View() string {
	if m.done || m.canceled {
		return ""
	}
	return m.input.View() + "\n" + promptHintStyle.Render("enter to save, esc to cancel") + "\n"
}

func (m tokenPrompt) token() string {
	return strings.TrimSpace(m.input.Value())
}

func promptToken(in io.Reader, out io.Writer) (string, error) {
	final, err := tea.NewProgram(newTokenPrompt(), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return "", err
	}
	m, ok := final.(tokenPrompt)
	if !ok || m.canceled {
		return "", errPromptCanceled
	}
	return m.token(), nil
}
