package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// styles decorates headings. The zero value leaves text unchanged.
type styles struct {
	heading lipgloss.Style
	plan    lipgloss.Style
	failed  lipgloss.Style
	enabled bool
}

// stylesFor returns colored styles when w is a terminal and NO_COLOR is unset.
func stylesFor(w io.Writer) styles {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(f.Fd())) {
		return styles{}
	}
	return styles{
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		plan:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		enabled: true,
	}
}

func (s styles) render(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return st.Render(text)
}

func (s styles) Heading(text string) string { return s.render(s.heading, text) }
func (s styles) Plan(text string) string    { return s.render(s.plan, text) }
func (s styles) Failed(text string) string  { return s.render(s.failed, text) }
