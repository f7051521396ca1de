package chat

import (
	"time"

	"github.com/Memphis465/nova/internal/models"
)

// Event is an input to Reduce
type Event interface {
	isEvent()
}

// SendRequested asks to send text and an optional attachment
type SendRequested struct {
	Text string
	File *File
}

// UploadFinished carries the upload result for the send owning placeholder ID
type UploadFinished struct {
	ID      int
	Message string
	Result  models.UploadResult
}

// ChatFinished carries the chat reply for the send owning placeholder ID
type ChatFinished struct {
	ID       int
	Response models.ChatResponse
	Err      error
}

// TTSToggled flips text-to-speech
type TTSToggled struct{}

// RecordPressed starts a recognition session
type RecordPressed struct{}

// RecordReleased stops the recognition session
type RecordReleased struct{}

// TranscriptReceived delivers recognized speech; only final transcripts send
type TranscriptReceived struct {
	Text  string
	Final bool
}

// RecognitionFailed reports a recognition error
type RecognitionFailed struct {
	Err error
}

// ThemeToggled flips the theme and persists it
type ThemeToggled struct{}

// ThemeChanged adopts a theme stored by someone else
type ThemeChanged struct {
	Theme string
}

func (SendRequested) isEvent()      {}
func (UploadFinished) isEvent()     {}
func (ChatFinished) isEvent()       {}
func (TTSToggled) isEvent()         {}
func (RecordPressed) isEvent()      {}
func (RecordReleased) isEvent()     {}
func (TranscriptReceived) isEvent() {}
func (RecognitionFailed) isEvent()  {}
func (ThemeToggled) isEvent()       {}
func (ThemeChanged) isEvent()       {}

// Effect is a side effect requested by Reduce
type Effect interface {
	isEffect()
}

// UploadEffect uploads File for the send owning placeholder ID
type UploadEffect struct {
	ID      int
	Message string
	File    *File
}

// ChatEffect posts Message (and FilePath) for the send owning placeholder ID
type ChatEffect struct {
	ID       int
	Message  string
	FilePath string
}

// SpeakEffect reads Text aloud
type SpeakEffect struct {
	Text string
}

// HapticEffect pulses Pattern
type HapticEffect struct {
	Pattern []time.Duration
}

// StartRecognitionEffect begins recording
type StartRecognitionEffect struct{}

// StopRecognitionEffect ends recording and yields the transcript
type StopRecognitionEffect struct{}

// PersistThemeEffect stores Theme under nova_theme
type PersistThemeEffect struct {
	Theme string
}

func (UploadEffect) isEffect()           {}
func (ChatEffect) isEffect()             {}
func (SpeakEffect) isEffect()            {}
func (HapticEffect) isEffect()           {}
func (StartRecognitionEffect) isEffect() {}
func (StopRecognitionEffect) isEffect()  {}
func (PersistThemeEffect) isEffect()     {}
