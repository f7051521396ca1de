package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	apierrors "github.com/Memphis465/nova/internal/errors"
	"github.com/Memphis465/nova/internal/history"
	"github.com/Memphis465/nova/internal/models"
	"github.com/Memphis465/nova/internal/tui"
)

const searchSnippetLen = 80

// NewHistoryCmd creates the history command
func NewHistoryCmd(deps *Dependencies, opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "View and manage the conversation history",
		Long: `View and manage the conversation history kept by the Nova server.

When the server is unreachable, show and search use the last history
snapshot stored locally.`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, deps, opts)
		},
	}

	var format, output string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the conversation",
		Long: `Export the conversation. The raw format writes the server export
unchanged; json and markdown are rendered locally.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryExport(cmd, deps, opts, format, output)
		},
	}
	exportCmd.Flags().StringVar(&format, "format", "raw", "Export format: raw, json or markdown")
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the conversation on the server and the local snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryClear(cmd, deps, opts)
		},
	}

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search messages in the conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistorySearch(cmd, deps, opts, args[0])
		},
	}

	cmd.AddCommand(showCmd, exportCmd, clearCmd, searchCmd)
	return cmd
}

// loadHistory fetches the history through the worker. When the server
// answers with an error the local snapshot is shown instead.
func loadHistory(cmd *cobra.Command, deps *Dependencies, opts *globalOptions) ([]models.HistoryEntry, error) {
	logger, closeLog := newLogger(opts.verboseEnabled(), false)
	defer closeLog()

	st, err := deps.openStack(cmd.Context(), logger, true)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	entries, err := st.client.History(cmd.Context())
	if err == nil {
		return entries, nil
	}
	if apierrors.GetHTTPStatus(err) == 0 {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	saved, snapErr := history.LoadSnapshot(st.store)
	if snapErr != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	logger.Warn("history unavailable, using local snapshot", "error", err)
	fmt.Fprintln(cmd.ErrOrStderr(), tui.FormatWarning("Server history unavailable, showing the local snapshot"))
	return saved, nil
}

func runHistoryShow(cmd *cobra.Command, deps *Dependencies, opts *globalOptions) error {
	entries, err := loadHistory(cmd, deps, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No messages found.")
		return nil
	}

	for i, entry := range entries {
		role := "You"
		if entry.Role != string(models.RoleUser) {
			role = "Nova"
		}
		kind := ""
		if entry.Type != "" && entry.Type != "text" {
			kind = " [" + entry.Type + "]"
		}
		fmt.Fprintf(out, "[%d] %s%s:\n  %s\n\n", i+1, role, kind, entry.Message)
	}
	return nil
}

func runHistoryExport(cmd *cobra.Command, deps *Dependencies, opts *globalOptions, formatName, output string) error {
	format, err := history.ParseExportFormat(formatName)
	if err != nil {
		return err
	}

	var data []byte
	if format == history.ExportFormatRaw {
		logger, closeLog := newLogger(opts.verboseEnabled(), false)
		defer closeLog()

		st, err := deps.openStack(cmd.Context(), logger, true)
		if err != nil {
			return err
		}
		defer st.Close()

		if data, err = st.client.ExportHistory(cmd.Context()); err != nil {
			return fmt.Errorf("failed to export history: %w", err)
		}
	} else {
		entries, err := loadHistory(cmd, deps, opts)
		if err != nil {
			return err
		}
		switch format {
		case history.ExportFormatMarkdown:
			data = []byte(history.ExportToMarkdown("", entries))
		default:
			if data, err = history.ExportToJSON(entries); err != nil {
				return fmt.Errorf("failed to encode history: %w", err)
			}
		}
	}

	if output == "" {
		return writeExport(cmd.OutOrStdout(), data)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "History exported to %s\n", output)
	return nil
}

func writeExport(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}

func runHistoryClear(cmd *cobra.Command, deps *Dependencies, opts *globalOptions) error {
	logger, closeLog := newLogger(opts.verboseEnabled(), false)
	defer closeLog()

	st, err := deps.openStack(cmd.Context(), logger, true)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.client.ClearHistory(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
	return nil
}

func runHistorySearch(cmd *cobra.Command, deps *Dependencies, opts *globalOptions, query string) error {
	entries, err := loadHistory(cmd, deps, opts)
	if err != nil {
		return err
	}

	results := history.Search(entries, query, searchSnippetLen)
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintf(out, "No messages matching %q.\n", query)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tROLE\tSNIPPET")
	_, _ = fmt.Fprintln(w, "-\t----\t-------")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", r.Index+1, r.Entry.Role, r.Snippet)
	}
	return w.Flush()
}
