package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TermTheme holds the colors of a terminal theme.
type TermTheme struct {
	Name string

	Accent    lipgloss.Color // festive red
	Gold      lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Dim       lipgloss.Color
	Border    lipgloss.Color
}

// DarkTheme is the default theme.
var DarkTheme = TermTheme{
	Name:      "dark",
	Accent:    lipgloss.Color("#ff4d4d"),
	Gold:      lipgloss.Color("#ffd700"),
	Success:   lipgloss.Color("#2ed573"),
	Error:     lipgloss.Color("#ff6b81"),
	Primary:   lipgloss.Color("#f5f5f5"),
	Secondary: lipgloss.Color("#a0a0a0"),
	Dim:       lipgloss.Color("#5a5a70"),
	Border:    lipgloss.Color("#3a2a2a"),
}

// LightTheme is for light terminal backgrounds.
var LightTheme = TermTheme{
	Name:      "light",
	Accent:    lipgloss.Color("#c0392b"),
	Gold:      lipgloss.Color("#b8860b"),
	Success:   lipgloss.Color("#15803d"),
	Error:     lipgloss.Color("#b91c1c"),
	Primary:   lipgloss.Color("#1f1f1f"),
	Secondary: lipgloss.Color("#4b5563"),
	Dim:       lipgloss.Color("#9ca3af"),
	Border:    lipgloss.Color("#d1d5db"),
}

// DetectTheme picks a theme from the flag value, then NEWYEAR_THEME, then
// the COLORFGBG hint, defaulting to dark.
func DetectTheme(flagVal string) TermTheme {
	for _, v := range []string{flagVal, os.Getenv("NEWYEAR_THEME")} {
		switch strings.ToLower(v) {
		case "dark":
			return DarkTheme
		case "light":
			return LightTheme
		}
	}

	// "fg;bg" where bg 7 or 15 is a light background
	if colorfgbg := os.Getenv("COLORFGBG"); colorfgbg != "" {
		parts := strings.Split(colorfgbg, ";")
		if bg := parts[len(parts)-1]; bg == "7" || bg == "15" {
			return LightTheme
		}
	}
	return DarkTheme
}

// StyleSet holds the lipgloss styles derived from a theme.
type StyleSet struct {
	Theme TermTheme

	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	GoldTxt    lipgloss.Style
	DimTxt     lipgloss.Style
	SuccessTxt lipgloss.Style
	ErrorTxt   lipgloss.Style
	PrimaryTxt lipgloss.Style

	Cursor   lipgloss.Style
	Selected lipgloss.Style

	KbdKey  lipgloss.Style
	KbdDesc lipgloss.Style

	Box    lipgloss.Style
	Banner lipgloss.Style

	StepDone    lipgloss.Style
	StepActive  lipgloss.Style
	StepOpen    lipgloss.Style
	StepPending lipgloss.Style
}

// NewStyleSet creates the styles for theme.
func NewStyleSet(theme TermTheme) *StyleSet {
	badge := lipgloss.NewStyle().Padding(0, 1)
	return &StyleSet{
		Theme: theme,

		Title:      lipgloss.NewStyle().Foreground(theme.Accent).Bold(true),
		Subtitle:   lipgloss.NewStyle().Foreground(theme.Secondary),
		GoldTxt:    lipgloss.NewStyle().Foreground(theme.Gold).Bold(true),
		DimTxt:     lipgloss.NewStyle().Foreground(theme.Dim),
		SuccessTxt: lipgloss.NewStyle().Foreground(theme.Success),
		ErrorTxt:   lipgloss.NewStyle().Foreground(theme.Error),
		PrimaryTxt: lipgloss.NewStyle().Foreground(theme.Primary),

		Cursor:   lipgloss.NewStyle().Foreground(theme.Accent),
		Selected: lipgloss.NewStyle().Foreground(theme.Primary).Bold(true),

		KbdKey:  lipgloss.NewStyle().Foreground(theme.Primary).Background(theme.Dim).Padding(0, 1),
		KbdDesc: lipgloss.NewStyle().Foreground(theme.Dim),

		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
		Banner: lipgloss.NewStyle().
			Foreground(theme.Gold).
			Bold(true).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(theme.Accent).
			Padding(0, 2),

		StepDone:    badge.Background(theme.Success).Foreground(lipgloss.Color("#ffffff")).Bold(true),
		StepActive:  badge.Background(theme.Accent).Foreground(lipgloss.Color("#ffffff")).Bold(true),
		StepOpen:    badge.Foreground(theme.Gold).Background(theme.Border),
		StepPending: badge.Foreground(theme.Dim).Background(theme.Border),
	}
}

// KeyBinding is one keyboard hint
type KeyBinding struct {
	Key  string
	Desc string
}

func (s *StyleSet) hints(bindings []KeyBinding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, s.KbdKey.Render(b.Key)+" "+s.KbdDesc.Render(b.Desc))
	}
	return "  " + strings.Join(parts, "    ")
}
