// animation describes the visual work the board asks of its host (a browser page, or a
// headless timer) and the completion channels by which that work is awaited.
//
// Every operation returns a completion channel: it is closed once the host reports the
// transition or animation finished, after optionally delivering a single error.
// A closed channel with no value means success, which keeps `<-done` and `Await` symmetric.
package animation

import (
	"context"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

// Kind selects how the host interprets a Command.
type Kind string

const (
	// KindTransition adds or removes a css class and completes on the element's transitionend.
	KindTransition Kind = "transition"
	// KindAnimate plays keyframes via element.animate() and completes when the animation finishes.
	KindAnimate Kind = "animate"
	// KindStyle assigns inline style properties; completes immediately.
	KindStyle Kind = "style"
	// KindProperty assigns element properties (disabled, textContent); completes immediately.
	KindProperty Kind = "property"
)

// Keyframe is a single web-animations keyframe: css properties in camelCase plus the
// optional 'offset' and 'easing' keys.
type Keyframe map[string]interface{}

// Timing holds the web-animations timing options, in the form element.animate() accepts them.
type Timing struct {
	// Duration in milliseconds. Fractional values are legal and used by distance-scaled flights.
	Duration   float64 `json:"duration"`
	Easing     string  `json:"easing,omitempty"`
	Fill       string  `json:"fill,omitempty"`
	Direction  string  `json:"direction,omitempty"`
	Iterations int     `json:"iterations,omitempty"`
}

// Length is the nominal wall-clock length of one run of the animation.
func (t Timing) Length() time.Duration {
	iterations := t.Iterations
	if iterations < 1 {
		iterations = 1
	}
	return time.Duration(t.Duration*float64(time.Millisecond)) * time.Duration(iterations)
}

// EaseOut returns single-iteration, fill-forwards, ease-out timing, which is what every
// sprite motion on the board uses.
func EaseOut(d time.Duration) Timing {
	return Timing{
		Duration:   float64(d) / float64(time.Millisecond),
		Easing:     "ease-out",
		Fill:       "forwards",
		Direction:  "normal",
		Iterations: 1,
	}
}

// Op is a key and value, e.g. a css property or element property and its new value.
type Op struct {
	Key   string
	Value interface{}
}

// Command is one unit of visual work. Id is assigned by the host that correlates
// completions, and is zero until then.
type Command struct {
	Id     uint64
	Kind   Kind
	EleId  string
	Class  string     `json:",omitempty"`
	On     bool       `json:",omitempty"`
	Frames []Keyframe `json:",omitempty"`
	Timing *Timing    `json:",omitempty"`
	Ops    []Op       `json:",omitempty"`
}

// Host executes commands and reports their completion.
// Submit must not block on the visual work itself; it returns a completion channel instead.
type Host interface {
	Submit(ctx context.Context, cmd Command) <-chan error
}

// Animator builds commands for the board's elements and submits them to a host.
type Animator struct {
	host Host
}

// New returns an Animator submitting to the passed host.
func New(host Host) *Animator {
	return &Animator{host: host}
}

// Transition adds (on) or removes the class on the element. The returned channel closes
// when the element's css transition ends.
func (an *Animator) Transition(ctx context.Context, eleId, class string, on bool) <-chan error {
	return an.host.Submit(ctx, Command{
		Kind:  KindTransition,
		EleId: eleId,
		Class: class,
		On:    on,
	})
}

// Animate plays the keyframes on the element.
func (an *Animator) Animate(
	ctx context.Context,
	eleId string,
	frames []Keyframe,
	timing Timing,
) <-chan error {
	return an.host.Submit(ctx, Command{
		Kind:   KindAnimate,
		EleId:  eleId,
		Frames: frames,
		Timing: &timing,
	})
}

// Style sets inline style properties on the element.
func (an *Animator) Style(ctx context.Context, eleId string, ops ...Op) <-chan error {
	return an.host.Submit(ctx, Command{
		Kind:  KindStyle,
		EleId: eleId,
		Ops:   ops,
	})
}

// Property sets element properties, e.g. ('disabled', true) or ('textContent', "abc").
func (an *Animator) Property(ctx context.Context, eleId string, ops ...Op) <-chan error {
	return an.host.Submit(ctx, Command{
		Kind:  KindProperty,
		EleId: eleId,
		Ops:   ops,
	})
}

// Resolved returns an already-completed channel.
func Resolved() <-chan error {
	done := make(chan error)
	close(done)
	return done
}

// Failed returns a completed channel carrying err.
func Failed(err error) <-chan error {
	done := make(chan error, 1)
	done <- err
	close(done)
	return done
}

// Await blocks until the work behind done completes or ctx is cancelled.
func Await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// All joins the passed completions, in no particular order, returning the first error
// observed once every one of them has completed. Cancelling ctx abandons the join, unless
// every completion had already finished.
func All(ctx context.Context, dones ...<-chan error) (err error) {
	for result := range channerics.Merge(ctx.Done(), dones...) {
		if result != nil && err == nil {
			err = result
		}
	}
	if err == nil && ctx.Err() != nil {
		err = finished(ctx, dones)
	}
	return
}

// finished reports the first error left in dones, or ctx.Err() if any is still open.
func finished(ctx context.Context, dones []<-chan error) (err error) {
	for _, done := range dones {
		select {
		case result := <-done:
			if result != nil && err == nil {
				err = result
			}
		default:
			return ctx.Err()
		}
	}
	return
}
