package monitor

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	topic    lipgloss.Style
	level    lipgloss.Style
	bar      lipgloss.Style
	up       lipgloss.Style
	down     lipgloss.Style
	neutral  lipgloss.Style
	unknown  lipgloss.Style
	fresh    lipgloss.Style
	subtopic lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	prompt   lipgloss.Style
	hint     lipgloss.Style
	warning  lipgloss.Style
	empty    lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		topic:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		level:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		bar:      lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		up:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		down:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		neutral:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		unknown:  lipgloss.NewStyle().Faint(true),
		fresh:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		subtopic: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		label:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		value:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color("229")).MarginTop(1),
		hint:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1),
		warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		empty:    lipgloss.NewStyle().Faint(true),
	}
}

// plainStyles renders without any decoration
func plainStyles() styles {
	plain := lipgloss.NewStyle()
	return styles{
		title: plain, header: plain, topic: plain, level: plain, bar: plain,
		up: plain, down: plain, neutral: plain, unknown: plain, fresh: plain,
		subtopic: plain, label: plain, value: plain, prompt: plain, hint: plain,
		warning: plain, empty: plain,
	}
}
