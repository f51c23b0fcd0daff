// Package view renders catalog entities as terminal text.
package view

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/kart-io/catalog-console/internal/model"
)

// Theme holds the colors used by a Printer.
type Theme struct {
	Draft      lipgloss.Color
	Approved   lipgloss.Color
	Deprecated lipgloss.Color
	Heading    lipgloss.Color
	Faint      lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
}

// DefaultTheme uses ANSI 256-color codes.
var DefaultTheme = Theme{
	Draft:      lipgloss.Color("214"),
	Approved:   lipgloss.Color("42"),
	Deprecated: lipgloss.Color("245"),
	Heading:    lipgloss.Color("75"),
	Faint:      lipgloss.Color("243"),
	Success:    lipgloss.Color("42"),
	Error:      lipgloss.Color("203"),
}

// Printer writes styled output to w.
type Printer struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	theme    Theme
	width    int
}

// Option configures a Printer.
type Option func(*Printer)

// WithColor forces colored output on or off. Without it the profile is
// detected from w.
func WithColor(enabled bool) Option {
	return func(p *Printer) {
		profile := termenv.Ascii
		if enabled {
			profile = termenv.ANSI256
		}
		p.renderer = lipgloss.NewRenderer(p.w, termenv.WithProfile(profile))
		p.renderer.SetColorProfile(profile)
	}
}

// WithTheme replaces the default theme.
func WithTheme(t Theme) Option {
	return func(p *Printer) { p.theme = t }
}

// WithWidth sets the wrap width for rendered markdown.
func WithWidth(width int) Option {
	return func(p *Printer) {
		if width > 0 {
			p.width = width
		}
	}
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, opts ...Option) *Printer {
	p := &Printer{
		w:        w,
		renderer: lipgloss.NewRenderer(w),
		theme:    DefaultTheme,
		width:    100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) style() lipgloss.Style {
	return p.renderer.NewStyle()
}

// StatusBadge renders an artifact status as a colored tag.
func (p *Printer) StatusBadge(status model.ArtifactStatus) string {
	color := p.theme.Faint
	switch status {
	case model.StatusDraft:
		color = p.theme.Draft
	case model.StatusApproved:
		color = p.theme.Approved
	case model.StatusDeprecated:
		color = p.theme.Deprecated
	}
	return p.style().Bold(true).Foreground(color).Render("[" + string(status) + "]")
}

func (p *Printer) heading(s string) string {
	return p.style().Bold(true).Foreground(p.theme.Heading).Render(s)
}

func (p *Printer) faint(s string) string {
	return p.style().Foreground(p.theme.Faint).Render(s)
}

// Success writes a confirmation line.
func (p *Printer) Success(msg string) error {
	return p.write(p.style().Foreground(p.theme.Success).Render(msg) + "\n")
}

// Error writes an error line.
func (p *Printer) Error(msg string) error {
	return p.write(p.style().Bold(true).Foreground(p.theme.Error).Render("Error: "+msg) + "\n")
}

func (p *Printer) write(s string) error {
	_, err := io.WriteString(p.w, s)
	return err
}

// meta joins "Label: value" pairs on one line.
func meta(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, pairs[i]+": "+pairs[i+1])
	}
	return strings.Join(parts, "  ")
}
