package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	apierrors "github.com/Memphis465/nova/internal/errors"
)

// stopGrace is how long a recorder may take to flush after an interrupt
const stopGrace = 5 * time.Second

// CommandRecognizer runs a transcription command between Start and Stop.
// The command records until it receives an interrupt and prints the final
// transcript on stdout.
type CommandRecognizer struct {
	name   string
	args   []string
	logger *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	done   chan error
}

// NewCommandRecognizer creates a recognizer from a command line
func NewCommandRecognizer(command string, logger *slog.Logger) (*CommandRecognizer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("speech recognition: %w", apierrors.ErrUnsupported)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CommandRecognizer{name: fields[0], args: fields[1:], logger: logger}, nil
}

// Start begins a recognition session
func (r *CommandRecognizer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return fmt.Errorf("recognition already started")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(r.name, r.args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", r.name, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	r.cmd = cmd
	r.stdout = &stdout
	r.stderr = &stderr
	r.done = done
	r.logger.Debug("speech recognition started", "command", r.name)
	return nil
}

// Stop ends the session and returns the transcript
func (r *CommandRecognizer) Stop(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return "", fmt.Errorf("recognition not started")
	}
	cmd, done := r.cmd, r.done
	stdout, stderr := r.stdout, r.stderr
	r.cmd, r.done, r.stdout, r.stderr = nil, nil, nil, nil

	if err := cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		_ = cmd.Process.Kill()
	}

	var waitErr error
	select {
	case waitErr = <-done:
	case <-time.After(stopGrace):
		_ = cmd.Process.Kill()
		waitErr = <-done
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return "", ctx.Err()
	}

	transcript := strings.TrimSpace(stdout.String())
	if transcript == "" && waitErr != nil {
		r.logger.Warn("speech recognition failed", "command", r.name, "error", waitErr, "stderr", strings.TrimSpace(stderr.String()))
		return "", fmt.Errorf("speech recognition failed: %w", waitErr)
	}
	return transcript, nil
}

// NopRecognizer reports that speech recognition is unavailable
type NopRecognizer struct{}

func (NopRecognizer) Start(context.Context) error {
	return fmt.Errorf("speech recognition: %w", apierrors.ErrUnsupported)
}

func (NopRecognizer) Stop(context.Context) (string, error) {
	return "", fmt.Errorf("speech recognition: %w", apierrors.ErrUnsupported)
}
