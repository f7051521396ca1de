// Package chat holds the client's application state and the reducer that
// drives the send pipeline, speech controls and theme.
//
// Reduce is pure: it takes the current State and an Event and returns the
// next State plus the Effects to run. Effects are executed outside the
// reducer (see Executor) and their results come back as new Events.
package chat

import (
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/Memphis465/nova/internal/models"
)

// State is the complete state of a chat session
type State struct {
	Log        []models.Message
	TTSEnabled bool
	Recording  bool
	Theme      string
	// Pending counts sends whose placeholder has not been replaced yet
	Pending int

	nextID      int
	outstanding []int
}

// NewState returns the initial state
func NewState(theme string, ttsEnabled bool) State {
	if !models.IsValidTheme(theme) {
		theme = models.ThemeDark
	}
	return State{Theme: theme, TTSEnabled: ttsEnabled}
}

// Entry returns the log entry with the given ID
func (s State) Entry(id int) (models.Message, bool) {
	for _, m := range s.Log {
		if m.ID == id {
			return m, true
		}
	}
	return models.Message{}, false
}

// Awaiting reports whether id is a placeholder that was not replaced yet
func (s State) Awaiting(id int) bool {
	return slices.Contains(s.outstanding, id)
}

// File is an attachment selected for a send
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileFromPath returns an attachment reading the file at path
func FileFromPath(path string) *File {
	return &File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}
