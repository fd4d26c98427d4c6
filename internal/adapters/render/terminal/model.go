// Package terminal renders resolver results for the command line through a
// one-shot bubbletea program.
package terminal

import (
	"errors"
	"io"

	"github.com/bnema/smartani/internal/application"
	"github.com/bnema/smartani/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	view   func(styles) string
	styles styles
	output string
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.view(m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func render(view func(styles) string) (string, error) {
	p := tea.NewProgram(
		model{view: view, styles: newStyles()},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}

func RenderOutcome(outcome domain.ResolutionOutcome) (string, error) {
	return render(func(s styles) string { return renderOutcome(outcome, s) })
}

func RenderStatus(status application.SystemStatus) (string, error) {
	return render(func(s styles) string { return renderStatus(status, s) })
}

func RenderCredentials(views []application.CredentialView) (string, error) {
	return render(func(s styles) string { return renderCredentials(views, s) })
}
