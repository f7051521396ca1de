// Package render turns assistant replies into styled terminal output and
// provides the color palettes of the two Nova themes.
package render

import "github.com/Memphis465/nova/internal/models"

// Options configures the markdown renderer behavior.
type Options struct {
	// Width is the word-wrap width (default: 80)
	Width int

	// Theme is "dark" or "light"; it selects the glamour standard style
	Theme string

	// EnableEmoji converts :emoji: to unicode characters
	EnableEmoji bool

	// PreserveNewLines keeps the reply's own line breaks
	PreserveNewLines bool

	TableWrap        bool
	InlineTableLinks bool
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		Width:            80,
		Theme:            models.ThemeDark,
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
	}
}

// WithWidth returns Options with the specified width.
func (o Options) WithWidth(width int) Options {
	o.Width = width
	return o
}

// WithTheme returns Options with the specified theme; unknown names fall
// back to dark.
func (o Options) WithTheme(theme string) Options {
	if !models.IsValidTheme(theme) {
		theme = models.ThemeDark
	}
	o.Theme = theme
	return o
}
