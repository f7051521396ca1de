package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command driving the offline worker lifecycle
func NewCacheCmd(deps *Dependencies, opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the offline cache",
		Long: `Manage the offline cache used when the Nova server is unreachable.

The cache is named after cache_version. Installing pre-caches the static
documents; activating deletes every cache with another name.`,
	}

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Pre-cache the static documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd, deps, opts, func(st *stack) error {
				if err := st.worker.Install(cmd.Context()); err != nil {
					return fmt.Errorf("install failed: %w", err)
				}
				n, err := cacheEntries(cmd, st, st.worker.CacheName())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Installed %s (%d entries)\n", st.worker.CacheName(), n)
				return nil
			})
		},
	}

	activateCmd := &cobra.Command{
		Use:   "activate",
		Short: "Delete outdated caches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd, deps, opts, func(st *stack) error {
				before, err := st.storage.Keys(cmd.Context())
				if err != nil {
					return err
				}
				activateErr := st.worker.Activate(cmd.Context())

				after, err := st.storage.Keys(cmd.Context())
				if err != nil {
					return err
				}
				deleted := len(before) - len(after)
				fmt.Fprintf(cmd.OutOrStdout(), "Activated %s, deleted %d outdated cache(s)\n", st.worker.CacheName(), deleted)
				if activateErr != nil {
					return fmt.Errorf("some caches could not be deleted: %w", activateErr)
				}
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "List the stored caches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd, deps, opts, func(st *stack) error {
				names, err := st.storage.Keys(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Backend: %s\nCurrent: %s\n\n", st.cfg.BaseURL, st.worker.CacheName())
				if len(names) == 0 {
					fmt.Fprintln(out, "No caches stored.")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "CACHE\tENTRIES\tSTATUS")
				_, _ = fmt.Fprintln(w, "-----\t-------\t------")
				for _, name := range names {
					n, err := cacheEntries(cmd, st, name)
					if err != nil {
						return err
					}
					status := "outdated"
					if name == st.worker.CacheName() {
						status = "current"
					}
					_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", name, n, status)
				}
				return w.Flush()
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd, deps, opts, func(st *stack) error {
				names, err := st.storage.Keys(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					if _, err := st.storage.Delete(cmd.Context(), name); err != nil {
						return fmt.Errorf("failed to delete cache %s: %w", name, err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d cache(s)\n", len(names))
				return nil
			})
		},
	}

	cmd.AddCommand(installCmd, activateCmd, statusCmd, clearCmd)
	return cmd
}

// withStack runs fn with an unregistered stack, so the command controls
// the worker lifecycle itself
func withStack(cmd *cobra.Command, deps *Dependencies, opts *globalOptions, fn func(st *stack) error) error {
	logger, closeLog := newLogger(opts.verboseEnabled(), false)
	defer closeLog()

	st, err := deps.openStack(cmd.Context(), logger, false)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func cacheEntries(cmd *cobra.Command, st *stack, name string) (int, error) {
	cache, err := st.storage.Open(cmd.Context(), name)
	if err != nil {
		return 0, err
	}
	keys, err := cache.Keys(cmd.Context())
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}
