// Package speech provides text-to-speech, speech recognition and haptic
// feedback for the terminal client, backed by system commands.
package speech

import (
	"context"
	"time"
)

// Speaker reads text aloud. Speak returns once the utterance has started;
// a new utterance cancels the one in flight.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop()
}

// Recognizer records one utterance between Start and Stop and returns the
// final transcript from Stop.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (string, error)
}

// Haptics gives physical feedback for a vibration pattern
type Haptics interface {
	Pulse(pattern ...time.Duration)
}

// Vibration patterns
var (
	PatternSend  = []time.Duration{20 * time.Millisecond}
	PatternError = []time.Duration{80 * time.Millisecond, 40 * time.Millisecond, 80 * time.Millisecond}
)
