package render

import (
	"github.com/Memphis465/nova/internal/config"
)

// OptionsFromConfig builds render options from the user configuration and
// the theme stored under nova_theme.
func OptionsFromConfig(cfg config.Config, theme string, width int) Options {
	opts := DefaultOptions().WithTheme(theme)
	if width > 0 {
		opts.Width = width
	}

	md := cfg.Markdown
	opts.EnableEmoji = md.EnableEmoji
	opts.PreserveNewLines = md.PreserveNewLines
	opts.TableWrap = md.TableWrap
	opts.InlineTableLinks = md.InlineTableLinks
	return opts
}
