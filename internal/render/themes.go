package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Memphis465/nova/internal/models"
)

// Palette is the color scheme of the chat screen
type Palette struct {
	Name string

	Background lipgloss.Color
	Surface    lipgloss.Color
	Border     lipgloss.Color

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color

	Text     lipgloss.Color
	TextDim  lipgloss.Color
	TextMute lipgloss.Color
}

var (
	// DarkPalette follows Tokyo Night
	DarkPalette = Palette{
		Name:       models.ThemeDark,
		Background: lipgloss.Color("#1a1b26"),
		Surface:    lipgloss.Color("#24283b"),
		Border:     lipgloss.Color("#414868"),
		Primary:    lipgloss.Color("#7aa2f7"),
		Secondary:  lipgloss.Color("#9ece6a"),
		Accent:     lipgloss.Color("#bb9af7"),
		Warning:    lipgloss.Color("#e0af68"),
		Error:      lipgloss.Color("#f7768e"),
		Text:       lipgloss.Color("#c0caf5"),
		TextDim:    lipgloss.Color("#565f89"),
		TextMute:   lipgloss.Color("#3b4261"),
	}

	// LightPalette follows Catppuccin Latte
	LightPalette = Palette{
		Name:       models.ThemeLight,
		Background: lipgloss.Color("#eff1f5"),
		Surface:    lipgloss.Color("#e6e9ef"),
		Border:     lipgloss.Color("#bcc0cc"),
		Primary:    lipgloss.Color("#1e66f5"),
		Secondary:  lipgloss.Color("#40a02b"),
		Accent:     lipgloss.Color("#8839ef"),
		Warning:    lipgloss.Color("#df8e1d"),
		Error:      lipgloss.Color("#d20f39"),
		Text:       lipgloss.Color("#4c4f69"),
		TextDim:    lipgloss.Color("#7c7f93"),
		TextMute:   lipgloss.Color("#9ca0b0"),
	}
)

// PaletteFor returns the palette of theme; unknown names get the dark one
func PaletteFor(theme string) Palette {
	if theme == models.ThemeLight {
		return LightPalette
	}
	return DarkPalette
}
