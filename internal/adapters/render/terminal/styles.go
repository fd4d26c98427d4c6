package terminal

import (
	"github.com/bnema/smartani/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	answer     lipgloss.Style
	disclaimer lipgloss.Style
	warning    lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	key        lipgloss.Style
	meta       lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
	spinner    lipgloss.Style
	tiers      map[domain.OutcomeKind]lipgloss.Style
}

func newStyles() styles {
	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		answer:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		disclaimer: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		key:        lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		meta:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		spinner:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		tiers: map[domain.OutcomeKind]lipgloss.Style{
			domain.OutcomeLocal:    badge.Foreground(lipgloss.Color("42")),
			domain.OutcomeExternal: badge.Foreground(lipgloss.Color("39")),
			domain.OutcomeFallback: badge.Foreground(lipgloss.Color("214")),
			domain.OutcomeFailure:  badge.Foreground(lipgloss.Color("203")),
		},
	}
}

func (s styles) tier(kind domain.OutcomeKind) lipgloss.Style {
	if style, ok := s.tiers[kind]; ok {
		return style
	}
	return s.meta
}
