package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	apierrors "github.com/Memphis465/nova/internal/errors"
)

// lookPath is replaced in tests
var lookPath = exec.LookPath

// CommandSpeaker speaks by running a TTS command with the text as its last
// argument.
type CommandSpeaker struct {
	name   string
	args   []string
	logger *slog.Logger
	// endOfOptions puts "--" before the text so a reply starting with a
	// dash is never read as a flag
	endOfOptions bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCommandSpeaker creates a speaker from a command line such as
// "espeak-ng -v en-us"
func NewCommandSpeaker(command string, logger *slog.Logger) (*CommandSpeaker, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty TTS command")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CommandSpeaker{
		name:         fields[0],
		args:         fields[1:],
		logger:       logger,
		endOfOptions: acceptsEndOfOptions(fields[0]),
	}, nil
}

// acceptsEndOfOptions reports whether the TTS program parses "--"
func acceptsEndOfOptions(name string) bool {
	switch filepath.Base(name) {
	case "espeak", "espeak-ng", "spd-say":
		return true
	}
	return false
}

func (s *CommandSpeaker) argv(text string) []string {
	args := append([]string(nil), s.args...)
	if s.endOfOptions {
		args = append(args, "--")
	}
	return append(args, text)
}

// Speak cancels the current utterance and starts a new one. There is no queue.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	// the utterance outlives the caller's request context
	speakCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := exec.CommandContext(speakCtx, s.name, s.argv(text)...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start %s: %w", s.name, err)
	}

	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go func() {
		defer close(done)
		if err := cmd.Wait(); err != nil && speakCtx.Err() == nil {
			s.logger.Warn("speech synthesis failed", "command", s.name, "error", err)
		}
	}()
	return nil
}

// speaking reports whether an utterance is in flight
func (s *CommandSpeaker) speaking() bool {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Stop cancels the utterance in flight, if any
func (s *CommandSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *CommandSpeaker) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

// NopSpeaker discards all text
type NopSpeaker struct{}

func (NopSpeaker) Speak(context.Context, string) error { return nil }
func (NopSpeaker) Stop()                               {}

// ttsCandidates are probed in order by DetectSpeaker
var ttsCandidates = []struct {
	name string
	args func(lang string) []string
}{
	{"say", func(string) []string { return nil }},
	{"espeak-ng", func(lang string) []string { return []string{"-v", strings.ToLower(lang)} }},
	{"espeak", func(lang string) []string { return []string{"-v", strings.ToLower(lang)} }},
	{"spd-say", func(lang string) []string { return []string{"-l", strings.SplitN(lang, "-", 2)[0]} }},
}

// DetectSpeaker returns a speaker for command when set, otherwise for the
// first TTS program found on PATH. Without one it returns ErrUnsupported
// and a NopSpeaker.
func DetectSpeaker(command, lang string, logger *slog.Logger) (Speaker, error) {
	if strings.TrimSpace(command) != "" {
		return NewCommandSpeaker(command, logger)
	}
	if lang == "" {
		lang = "en-US"
	}
	for _, candidate := range ttsCandidates {
		path, err := lookPath(candidate.name)
		if err != nil {
			continue
		}
		speaker := &CommandSpeaker{
			name:         path,
			args:         candidate.args(lang),
			logger:       logger,
			endOfOptions: acceptsEndOfOptions(candidate.name),
		}
		if speaker.logger == nil {
			speaker.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		return speaker, nil
	}
	return NopSpeaker{}, fmt.Errorf("text-to-speech: %w", apierrors.ErrUnsupported)
}
