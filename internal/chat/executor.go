package chat

import (
	"context"
	"io"
	"log/slog"

	"github.com/Memphis465/nova/internal/models"
	"github.com/Memphis465/nova/internal/speech"
)

// Backend is the part of the API client used by the pipeline
type Backend interface {
	UploadFile(ctx context.Context, name string, r io.Reader) models.UploadResult
	Chat(ctx context.Context, message, filePath string) (models.ChatResponse, error)
}

// ThemeStore persists the theme
type ThemeStore interface {
	Set(key, value string) error
}

// Executor runs effects. Every field except Backend may be nil.
type Executor struct {
	Backend    Backend
	Speaker    speech.Speaker
	Recognizer speech.Recognizer
	Haptics    speech.Haptics
	Themes     ThemeStore
	Logger     *slog.Logger
}

func (x *Executor) logger() *slog.Logger {
	if x.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return x.Logger
}

// Run executes eff and returns the event it produced, or nil.
// Failures are turned into events, never returned.
func (x *Executor) Run(ctx context.Context, eff Effect) Event {
	switch eff := eff.(type) {
	case UploadEffect:
		return UploadFinished{ID: eff.ID, Message: eff.Message, Result: x.upload(ctx, eff.File)}

	case ChatEffect:
		resp, err := x.Backend.Chat(ctx, eff.Message, eff.FilePath)
		if err != nil {
			x.logger().Warn("chat request failed", "error", err)
		}
		return ChatFinished{ID: eff.ID, Response: resp, Err: err}

	case SpeakEffect:
		if x.Speaker != nil {
			if err := x.Speaker.Speak(ctx, eff.Text); err != nil {
				x.logger().Warn("speech synthesis failed", "error", err)
			}
		}

	case HapticEffect:
		if x.Haptics != nil {
			x.Haptics.Pulse(eff.Pattern...)
		}

	case StartRecognitionEffect:
		if x.Recognizer == nil {
			return RecognitionFailed{Err: errNoRecognizer}
		}
		if err := x.Recognizer.Start(ctx); err != nil {
			x.logger().Warn("speech recognition error", "error", err)
			return RecognitionFailed{Err: err}
		}

	case StopRecognitionEffect:
		if x.Recognizer == nil {
			return RecognitionFailed{Err: errNoRecognizer}
		}
		text, err := x.Recognizer.Stop(ctx)
		if err != nil {
			x.logger().Warn("speech recognition error", "error", err)
			return RecognitionFailed{Err: err}
		}
		return TranscriptReceived{Text: text, Final: true}

	case PersistThemeEffect:
		if x.Themes != nil {
			if err := x.Themes.Set(models.StorageKeyTheme, eff.Theme); err != nil {
				x.logger().Warn("failed to persist theme", "theme", eff.Theme, "error", err)
			}
		}
	}
	return nil
}

func (x *Executor) upload(ctx context.Context, file *File) models.UploadResult {
	if file == nil || file.Open == nil {
		return models.UploadFailed()
	}
	r, err := file.Open()
	if err != nil {
		x.logger().Warn("failed to open attachment", "file", file.Name, "error", err)
		return models.UploadFailed()
	}
	defer r.Close()
	return x.Backend.UploadFile(ctx, file.Name, r)
}
