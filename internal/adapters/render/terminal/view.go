package terminal

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/smartani/internal/application"
	"github.com/bnema/smartani/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

var tierLabels = map[domain.OutcomeKind]string{
	domain.OutcomeLocal:    "dataset",
	domain.OutcomeExternal: "scholar",
	domain.OutcomeFallback: "general",
	domain.OutcomeFailure:  "error",
}

func tierBadge(kind domain.OutcomeKind, s styles) string {
	label, ok := tierLabels[kind]
	if !ok {
		label = string(kind)
	}
	return s.tier(kind).Render("[" + label + "]")
}

func renderOutcome(outcome domain.ResolutionOutcome, s styles) string {
	badge := tierBadge(outcome.Kind, s)

	if outcome.Failed() {
		return lipgloss.JoinVertical(lipgloss.Left,
			badge,
			s.warning.Render(outcome.Text()),
		)
	}

	parts := []string{badge}
	if outcome.Disclaimer != "" {
		parts = append(parts, s.disclaimer.Render(outcome.Disclaimer))
	}
	parts = append(parts, s.answer.Render(outcome.Answer))

	if len(outcome.References) > 0 {
		refs := []string{s.title.Render("References")}
		for i, ref := range outcome.References {
			refs = append(refs, s.meta.Render(fmt.Sprintf("%d. %s", i+1, ref.String())))
		}
		parts = append(parts, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, refs...)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderStatus(status application.SystemStatus, s styles) string {
	state := s.tier(domain.OutcomeLocal).Render("online")
	if !status.Online {
		state = s.warning.Render("offline")
	}

	lines := []string{
		lipgloss.JoinHorizontal(lipgloss.Top, s.title.Render("SmartAni"), " ", state),
		s.header.Render(fmt.Sprintf("grounding: %s | sessions: %d", status.Strategy, status.SessionCount)),
		lipgloss.JoinHorizontal(lipgloss.Top,
			s.key.Render("credentials:"),
			" ",
			renderProgressBar(status.UsableCount, status.CredentialCount, 20, s),
			" ",
			s.meta.Render(fmt.Sprintf("%d/%d usable", status.UsableCount, status.CredentialCount)),
		),
	}

	models := []string{s.title.Render("Models")}
	switch {
	case status.ModelsError != "":
		models = append(models, s.warning.Render("unavailable: "+status.ModelsError))
	case len(status.Models) == 0:
		models = append(models, s.empty.Render("No models reported."))
	default:
		for _, model := range status.Models {
			line := model.Name
			if model.DisplayName != "" {
				line += " " + s.meta.Render("("+model.DisplayName+")")
			}
			models = append(models, "- "+line)
		}
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, models...)))

	if !status.Timestamp.IsZero() {
		lines = append(lines, s.section.Render(s.meta.Render("as of "+status.Timestamp.Format(time.RFC3339))))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderCredentials(views []application.CredentialView, s styles) string {
	lines := []string{
		s.title.Render("Credentials"),
		s.header.Render(fmt.Sprintf("configured: %d", len(views))),
	}
	if len(views) == 0 {
		lines = append(lines, s.empty.Render("No credentials configured. Set GEMINI_API_KEY or run `smartani credentials add`."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, view := range views {
		name := view.Name
		if name == "" {
			name = "-"
		}
		line := fmt.Sprintf("%s\t%s\t%s", view.ID, name, view.Source)
		if view.Placeholder {
			line += " " + s.warning.Render("[placeholder]")
		}
		lines = append(lines, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderProgressBar(filled, total, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	cells := 0
	if total > 0 {
		cells = int(math.Round(float64(width) * float64(filled) / float64(total)))
	}
	cells = max(0, min(cells, width))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", cells)),
		s.barEmpty.Render(strings.Repeat("-", width-cells)),
		s.barBracket.Render("]"),
	)
}
