package chat

import (
	"slices"
	"strings"

	"github.com/Memphis465/nova/internal/models"
	"github.com/Memphis465/nova/internal/speech"
)

// Reduce applies ev to s. The input state is never modified.
func Reduce(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case SendRequested:
		return send(s, ev.Text, ev.File)

	case UploadFinished:
		if !s.Awaiting(ev.ID) {
			return s, nil
		}
		if ev.Result.Failed() {
			return settle(s, ev.ID, models.UploadErrorText, true), nil
		}
		return s, []Effect{ChatEffect{ID: ev.ID, Message: ev.Message, FilePath: ev.Result.FilePath}}

	case ChatFinished:
		if !s.Awaiting(ev.ID) {
			return s, nil
		}
		switch {
		case ev.Err != nil:
			return settle(s, ev.ID, models.NetworkErrorText, true), nil
		case ev.Response.Failed():
			return settle(s, ev.ID, models.ServerErrorPrefix+ev.Response.Error, true), nil
		}
		next := settle(s, ev.ID, ev.Response.Response, false)
		if next.TTSEnabled && strings.TrimSpace(ev.Response.Response) != "" {
			return next, []Effect{SpeakEffect{Text: ev.Response.Response}}
		}
		return next, nil

	case TTSToggled:
		s.TTSEnabled = !s.TTSEnabled
		return s, nil

	case RecordPressed:
		if s.Recording {
			return s, nil
		}
		s.Recording = true
		return s, []Effect{StartRecognitionEffect{}}

	case RecordReleased:
		if !s.Recording {
			return s, nil
		}
		s.Recording = false
		return s, []Effect{StopRecognitionEffect{}}

	case TranscriptReceived:
		if !ev.Final {
			return s, nil
		}
		s.Recording = false
		return send(s, ev.Text, nil)

	case RecognitionFailed:
		s.Recording = false
		return s, []Effect{HapticEffect{Pattern: speech.PatternError}}

	case ThemeToggled:
		s.Theme = models.ToggleTheme(s.Theme)
		return s, []Effect{PersistThemeEffect{Theme: s.Theme}}

	case ThemeChanged:
		if models.IsValidTheme(ev.Theme) {
			s.Theme = ev.Theme
		}
		return s, nil
	}

	return s, nil
}

// send appends one user entry and one placeholder
func send(s State, text string, file *File) (State, []Effect) {
	text = strings.TrimSpace(text)
	if text == "" && file == nil {
		return s, nil
	}

	var parts []string
	if text != "" {
		parts = append(parts, text)
	}
	if file != nil {
		parts = append(parts, models.AttachmentPrefix+file.Name)
	}

	log := slices.Clip(s.Log)
	userID := s.nextID + 1
	placeholderID := s.nextID + 2
	log = append(log,
		models.Message{ID: userID, Role: models.RoleUser, Text: strings.Join(parts, "\n")},
		models.Message{ID: placeholderID, Role: models.RoleAssistant, Text: models.PlaceholderText},
	)
	s.Log = log
	s.nextID = placeholderID
	s.outstanding = append(slices.Clip(s.outstanding), placeholderID)
	s.Pending = len(s.outstanding)

	effects := []Effect{HapticEffect{Pattern: speech.PatternSend}}
	if file != nil {
		effects = append(effects, UploadEffect{ID: placeholderID, Message: text, File: file})
	} else {
		effects = append(effects, ChatEffect{ID: placeholderID, Message: text})
	}
	return s, effects
}

// settle replaces the placeholder id with its final text. A placeholder
// settles at most once.
func settle(s State, id int, text string, failed bool) State {
	if !s.Awaiting(id) {
		return s
	}
	log := slices.Clone(s.Log)
	for i := range log {
		if log[i].ID == id {
			log[i].Text = text
			log[i].Failed = failed
			break
		}
	}
	s.Log = log
	s.outstanding = slices.DeleteFunc(slices.Clone(s.outstanding), func(v int) bool { return v == id })
	s.Pending = len(s.outstanding)
	return s
}
