package animation

import (
	"context"
	"sync"
	"time"
)

// Timed is a headless host: each command completes after its nominal duration, as a
// browser would report it, without rendering anything. Transitions take TransitionLength,
// mirroring the stylesheet's transition on cells.
type Timed struct {
	TransitionLength time.Duration
	// Scale shrinks or stretches every wait; 1.0 is real time, 0 completes immediately.
	Scale float64
}

// NewTimed returns a real-time headless host.
func NewTimed(transitionLength time.Duration) *Timed {
	return &Timed{
		TransitionLength: transitionLength,
		Scale:            1.0,
	}
}

func (th *Timed) Submit(ctx context.Context, cmd Command) <-chan error {
	var wait time.Duration
	switch cmd.Kind {
	case KindTransition:
		wait = th.TransitionLength
	case KindAnimate:
		if cmd.Timing != nil {
			wait = cmd.Timing.Length()
		}
	}
	wait = time.Duration(float64(wait) * th.Scale)
	if wait <= 0 {
		return Resolved()
	}

	done := make(chan error, 1)
	go func() {
		defer close(done)
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			done <- ctx.Err()
		}
	}()
	return done
}

// Recorder is a host that records every command in submission order. By default commands
// complete immediately; after Hold, they stay pending until Release.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
	pending  []chan error
	hold     bool
	nextId   uint64
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (rec *Recorder) Submit(_ context.Context, cmd Command) <-chan error {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.nextId++
	cmd.Id = rec.nextId
	rec.commands = append(rec.commands, cmd)
	if !rec.hold {
		return Resolved()
	}

	done := make(chan error, 1)
	rec.pending = append(rec.pending, done)
	return done
}

// Commands returns a copy of the commands recorded so far.
func (rec *Recorder) Commands() []Command {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]Command(nil), rec.commands...)
}

// CommandsOfKind returns the recorded commands of the passed kind.
func (rec *Recorder) CommandsOfKind(kind Kind) (cmds []Command) {
	for _, cmd := range rec.Commands() {
		if cmd.Kind == kind {
			cmds = append(cmds, cmd)
		}
	}
	return
}

// Clear forgets the recorded commands.
func (rec *Recorder) Clear() {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.commands = nil
}

// Hold makes subsequent commands stay pending until Release is called.
func (rec *Recorder) Hold() {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.hold = true
}

// Pending returns the number of held, uncompleted commands.
func (rec *Recorder) Pending() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.pending)
}

// Release completes every held command with err (nil for success) and stops holding.
func (rec *Recorder) Release(err error) {
	rec.mu.Lock()
	pending := rec.pending
	rec.pending = nil
	rec.hold = false
	rec.mu.Unlock()

	for _, done := range pending {
		if err != nil {
			done <- err
		}
		close(done)
	}
}
