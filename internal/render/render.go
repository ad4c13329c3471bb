// Package render formats advice and wisdom for the terminal.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const DefaultWidth = 80

var (
	Blue = lipgloss.Color("#5F87FF")
	Gray = lipgloss.Color("#8A8A8A")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Blue).
			Padding(1, 2)
	titleStyle    = lipgloss.NewStyle().Foreground(Blue).Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(Gray).Italic(true)
	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(Blue)
)

// Markdown renders text for a terminal of the given width. The style follows
// the terminal, so piped output stays plain. The raw text is returned when the
// renderer fails.
func Markdown(text string, width int) string {
	return markdownWith(text, width, glamour.WithAutoStyle())
}

func markdownWith(text string, width int, style glamour.TermRendererOption) string {
	if width <= 0 {
		width = DefaultWidth
	}
	r, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

// WisdomPanel boxes body under a bold title, with an optional dim subtitle
// at the bottom.
func WisdomPanel(title, body, subtitle string) string {
	var parts []string
	if title != "" {
		parts = append(parts, titleStyle.Render(title), "")
	}
	parts = append(parts, strings.TrimSpace(body))
	if subtitle != "" {
		parts = append(parts, "", subtitleStyle.Render("Source: "+subtitle))
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func Heading(s string) string {
	return headingStyle.Render(s)
}
