package speech

import (
	"io"
	"sync"
	"time"
)

// Bell rings the terminal bell once per pulse
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBell creates haptics writing BEL to w
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

// Pulse rings the bell once for any non-empty pattern
func (b *Bell) Pulse(pattern ...time.Duration) {
	if len(pattern) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = io.WriteString(b.w, "\a")
}

// NopHaptics discards every pulse
type NopHaptics struct{}

func (NopHaptics) Pulse(...time.Duration) {}
