package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Memphis465/nova/internal/chat"
	"github.com/Memphis465/nova/internal/render"
	"github.com/Memphis465/nova/internal/speech"
	"github.com/Memphis465/nova/internal/tui"
)

// NewChatCmd creates the interactive chat command
func NewChatCmd(deps *Dependencies, opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with Nova.

Keys:
  Enter    send the message (and the attached file)
  Ctrl+O   attach a file by path
  Ctrl+R   start or stop voice input
  Ctrl+T   toggle spoken replies
  Ctrl+L   toggle dark/light theme
  Esc      quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps, opts)
		},
	}
}

func runChat(cmd *cobra.Command, deps *Dependencies, opts *globalOptions) error {
	ctx := cmd.Context()

	// stdout belongs to bubbletea, so logs go to a file
	logger, closeLog := newLogger(opts.verboseEnabled(), true)
	defer closeLog()

	st, err := deps.openStack(ctx, logger, true)
	if err != nil {
		return err
	}
	defer st.Close()
	cfg := st.cfg

	speaker, err := speech.DetectSpeaker(cfg.TTSCommand, cfg.Language, logger)
	if err != nil {
		logger.Info("spoken replies unavailable", "error", err)
		speaker = speech.NopSpeaker{}
	}
	defer speaker.Stop()

	var recognizer speech.Recognizer = speech.NopRecognizer{}
	if cfg.STTCommand != "" {
		r, err := speech.NewCommandRecognizer(cfg.STTCommand, logger)
		if err != nil {
			logger.Warn("voice input unavailable", "error", err)
		} else {
			recognizer = r
		}
	}

	var haptics speech.Haptics = speech.NopHaptics{}
	if cfg.Haptics {
		haptics = speech.NewBell(os.Stderr)
	}

	exec := &chat.Executor{
		Backend:    st.client,
		Speaker:    speaker,
		Recognizer: recognizer,
		Haptics:    haptics,
		Themes:     st.store,
		Logger:     logger,
	}

	state := chat.NewState(st.theme(), cfg.TTSEnabled)
	model := tui.NewModel(ctx, state, exec, st.client.BaseURL(),
		render.OptionsFromConfig(cfg, state.Theme, getTerminalWidth()))

	final, err := deps.TUI.RunChat(ctx, model, st.store)
	if err != nil {
		return err
	}
	logger.Debug("chat session ended", "messages", len(final.Log), "pending", final.Pending)
	return nil
}
