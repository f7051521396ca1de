// Package commands provides CLI commands for nova.
package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Memphis465/nova/internal/config"
	"github.com/Memphis465/nova/internal/tui"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// globalOptions holds the flags shared by the command tree
type globalOptions struct {
	verbose bool
	file    string
	output  string
	raw     bool
}

// verbose reports whether debug logging is on, from the flag or the config
func (o *globalOptions) verboseEnabled() bool {
	if o.verbose {
		return true
	}
	cfg, err := config.LoadConfig()
	return err == nil && cfg.Verbose
}

// NewRootCmd creates the nova command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps == nil {
		deps = NewDependencies()
	}
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "nova [message]",
		Short: "Terminal client for the Nova chat backend",
		Long: `nova is a terminal client for the Nova chat backend. Messages and
file attachments are sent through an offline-aware request router: API
calls go to the network first and fall back to the last good response,
static documents are served from a local cache.

Examples:
  nova chat                          Start interactive chat
  nova "What is Go?"                 Send a single message
  nova "Summarize this" -f notes.pdf Send a message with an attachment
  nova -f photo.png                  Send only a file
  cat prompt.md | nova               Read the message from stdin
  nova "Hello" -o reply.md           Save the reply to a file
  nova history export -o chat.md     Export the conversation`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "nova %s (built %s)\n", Version, BuildTime)
				return nil
			}

			var message string
			if len(args) > 0 {
				message = args[0]
			} else {
				data, err := readStdin(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				message = data
			}

			if strings.TrimSpace(message) == "" && opts.file == "" {
				return cmd.Help()
			}
			return runQuery(cmd, deps, opts, message)
		},
	}

	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "File to attach to the message")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Save reply to file")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print the reply text without decoration")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	cmd.AddCommand(NewChatCmd(deps, opts))
	cmd.AddCommand(NewHistoryCmd(deps, opts))
	cmd.AddCommand(NewCacheCmd(deps, opts))
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewThemeCmd(deps))
	cmd.AddCommand(NewProxyCmd(deps, opts))

	return cmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd(NewDependencies()).Execute(); err != nil {
		tui.PrintError(err)
		os.Exit(1)
	}
}

// readStdin returns piped input. A terminal on stdin yields nothing.
func readStdin(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
