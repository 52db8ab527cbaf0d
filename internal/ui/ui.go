package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

var _ tea.Model = (*Confirm)(nil)

// Confirm is a y/N prompt. Anything but an explicit yes declines.
type Confirm struct {
	prompt    string
	detail    string
	keys      keyMap
	help      help.Model
	answered  bool
	confirmed bool
}

// NewConfirm creates a prompt. detail is rendered below the question and may be empty.
func NewConfirm(prompt, detail string) *Confirm {
	return &Confirm{prompt: prompt, detail: detail, keys: newKeyMap(), help: help.New()}
}

func (m *Confirm) Init() tea.Cmd { return nil }

func (m *Confirm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.yes):
		m.answered, m.confirmed = true, true
	case key.Matches(keyMsg, m.keys.no), key.Matches(keyMsg, m.keys.enter), key.Matches(keyMsg, m.keys.quit):
		m.answered, m.confirmed = true, false
	default:
		return m, nil
	}
	return m, tea.Quit
}

func (m *Confirm) View() string {
	if m.answered {
		answer := Error("no")
		if m.confirmed {
			answer = Success("yes")
		}
		return fmt.Sprintf("%s %s\n", Title(m.prompt), answer)
	}

	view := fmt.Sprintf("%s %s\n", Title(m.prompt), Muted("[y/N]"))
	if m.detail != "" {
		view += m.detail + "\n"
	}
	return view + m.help.ShortHelpView(m.keys.ShortHelp()) + "\n"
}

// Answered reports whether the user responded.
func (m *Confirm) Answered() bool { return m.answered }

// Confirmed reports whether the user answered yes.
func (m *Confirm) Confirmed() bool { return m.confirmed }

// RunConfirm shows a [Confirm] prompt on out, reading keys from in, and blocks until it is answered
// or ctx is cancelled.
func RunConfirm(ctx context.Context, in io.Reader, out io.Writer, prompt, detail string) (bool, error) {
	p := tea.NewProgram(
		NewConfirm(prompt, detail),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
	)

	final, err := p.Run()
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}

	m, ok := final.(*Confirm)
	return ok && m.Confirmed(), nil
}
