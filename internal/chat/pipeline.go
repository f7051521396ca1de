package chat

import (
	"context"
	"fmt"
	"sync"

	apierrors "github.com/Memphis465/nova/internal/errors"
	"github.com/Memphis465/nova/internal/models"
)

var errNoRecognizer = fmt.Errorf("speech recognition: %w", apierrors.ErrUnsupported)

// Pipeline owns a State and runs the effects of every dispatched event to
// completion. It is safe for concurrent use; overlapping sends proceed
// independently and each settles its own placeholder.
type Pipeline struct {
	mu       sync.Mutex
	state    State
	exec     *Executor
	onChange func(State)
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithOnChange calls fn with every new state
func WithOnChange(fn func(State)) PipelineOption {
	return func(p *Pipeline) {
		p.onChange = fn
	}
}

// NewPipeline creates a pipeline starting at state
func NewPipeline(state State, exec *Executor, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{state: state, exec: exec}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns a snapshot of the current state
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Dispatch reduces ev and executes the resulting effects, feeding their
// events back until nothing is left to do.
func (p *Pipeline) Dispatch(ctx context.Context, ev Event) {
	queue := []Event{ev}
	for len(queue) > 0 {
		ev, queue = queue[0], queue[1:]

		p.mu.Lock()
		next, effects := Reduce(p.state, ev)
		p.state = next
		onChange := p.onChange
		p.mu.Unlock()

		if onChange != nil {
			onChange(next)
		}

		for _, eff := range effects {
			if follow := p.exec.Run(ctx, eff); follow != nil {
				queue = append(queue, follow)
			}
		}
	}
}

// SendMsg sends message and an optional file and returns the settled
// placeholder. An empty message without a file does nothing and returns
// ErrEmptyMessage. Network and server failures are reported through the
// entry's Failed flag and degraded text, never as an error.
func (p *Pipeline) SendMsg(ctx context.Context, message string, file *File) (models.Message, error) {
	p.mu.Lock()
	next, effects := Reduce(p.state, SendRequested{Text: message, File: file})
	if len(effects) == 0 {
		p.mu.Unlock()
		return models.Message{}, apierrors.ErrEmptyMessage
	}
	p.state = next
	onChange := p.onChange
	p.mu.Unlock()

	if onChange != nil {
		onChange(next)
	}

	id := next.nextID
	for _, eff := range effects {
		if follow := p.exec.Run(ctx, eff); follow != nil {
			p.Dispatch(ctx, follow)
		}
	}

	entry, _ := p.State().Entry(id)
	return entry, nil
}
