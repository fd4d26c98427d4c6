package terminal

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bnema/smartani/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Pending is a resolution running in the background.
type Pending struct {
	done    chan struct{}
	outcome domain.ResolutionOutcome
	elapsed time.Duration
}

// Track starts resolve on its own goroutine.
func Track(ctx context.Context, resolve func(context.Context) domain.ResolutionOutcome) *Pending {
	p := &Pending{done: make(chan struct{})}
	start := time.Now()
	go func() {
		defer close(p.done)
		p.outcome = resolve(ctx)
		p.elapsed = time.Since(start)
	}()
	return p
}

// Wait blocks until the resolution finishes.
func (p *Pending) Wait() domain.ResolutionOutcome {
	<-p.done
	return p.outcome
}

type resolvedMsg struct{}

type progressModel struct {
	spinner spinner.Model
	styles  styles
	label   string
	pending *Pending
	done    bool
}

func newProgressModel(label string, pending *Pending) progressModel {
	s := newStyles()
	return progressModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(s.spinner)),
		styles:  s,
		label:   label,
		pending: pending,
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		<-m.pending.done
		return resolvedMsg{}
	})
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case resolvedMsg:
		m.done = true
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m progressModel) View() string {
	if !m.done {
		return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
	}
	return renderResolved(m.pending.outcome.Kind, m.pending.elapsed, m.styles) + "\n"
}

func renderResolved(kind domain.OutcomeKind, elapsed time.Duration, s styles) string {
	return fmt.Sprintf("%s %s", tierBadge(kind, s), s.meta.Render(elapsed.Round(10*time.Millisecond).String()))
}

// WaitWithSpinner shows label on output until pending finishes, then leaves
// the answering tier and the elapsed time in its place. When the spinner
// cannot run the resolution is still awaited.
func WaitWithSpinner(ctx context.Context, output io.Writer, label string, pending *Pending) (domain.ResolutionOutcome, error) {
	p := tea.NewProgram(
		newProgressModel(label, pending),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		return pending.Wait(), err
	}
	return pending.Wait(), nil
}
