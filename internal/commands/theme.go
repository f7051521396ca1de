package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Memphis465/nova/internal/localstore"
	"github.com/Memphis465/nova/internal/models"
)

// storedTheme returns the theme stored under nova_theme, dark when unset
func storedTheme(store *localstore.Store) string {
	if store == nil {
		return models.ThemeDark
	}
	theme, ok, err := store.Get(models.StorageKeyTheme)
	if err != nil || !ok || !models.IsValidTheme(theme) {
		return models.ThemeDark
	}
	return theme
}

// NewThemeCmd creates the theme command
func NewThemeCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "theme [dark|light]",
		Short: "Show or set the color theme",
		Long: `Show the current theme, or store a new one. A running chat session
follows the change immediately.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{models.ThemeDark, models.ThemeLight},
		RunE: func(cmd *cobra.Command, args []string) error {
			store := deps.Store
			if store == nil {
				var err error
				if store, err = localstore.Default(); err != nil {
					return fmt.Errorf("failed to open local store: %w", err)
				}
			}

			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), storedTheme(store))
				return nil
			}

			theme := args[0]
			if !models.IsValidTheme(theme) {
				return fmt.Errorf("unknown theme %q (use %s or %s)", theme, models.ThemeDark, models.ThemeLight)
			}
			if err := store.Set(models.StorageKeyTheme, theme); err != nil {
				return fmt.Errorf("failed to save theme: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Theme set to %s\n", theme)
			return nil
		},
	}
}
