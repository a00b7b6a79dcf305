package fastview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"robogrid/animation"
)

// ErrDetached is delivered to every pending command when its page disconnects or is replaced.
var ErrDetached = errors.New("page detached before the command completed")

// ErrPage wraps failures reported by the page itself, e.g. a missing element.
var ErrPage = errors.New("page reported failure")

// Stage is the animation host bound to the connected page. Commands are queued and pumped
// to the page by the attached client; each command's completion channel is resolved when the
// page acknowledges its id.
//
// Only one page is attached at a time: attaching a new page detaches the previous one.
// While no page is attached there is nothing to animate, so commands complete immediately.
type Stage struct {
	mu      sync.Mutex
	nextId  uint64
	pending map[uint64]chan error
	queue   []animation.Command
	// wake is signalled, without blocking, whenever the queue becomes non-empty.
	wake chan struct{}
	// generation of the attached client, zero when detached.
	attached uint64
	gen      uint64
	cancel   context.CancelFunc
}

// NewStage returns a stage with no attached page.
func NewStage() *Stage {
	return &Stage{
		pending: map[uint64]chan error{},
		wake:    make(chan struct{}, 1),
	}
}

// Submit queues the command for the attached page.
func (st *Stage) Submit(_ context.Context, cmd animation.Command) <-chan error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.attached == 0 {
		return animation.Resolved()
	}

	st.nextId++
	cmd.Id = st.nextId
	done := make(chan error, 1)
	st.pending[cmd.Id] = done
	st.queue = append(st.queue, cmd)

	select {
	case st.wake <- struct{}{}:
	default:
	}
	return done
}

// Attached reports whether a page is currently attached.
func (st *Stage) Attached() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.attached != 0
}

// Serve upgrades the request to a websocket and drives the page until it disconnects,
// the request's context is cancelled, or another page replaces it.
func (st *Stage) Serve(w http.ResponseWriter, r *http.Request) error {
	cli, err := NewClient(st, w, r)
	if err != nil {
		return err
	}

	ctx, gen := st.attach(r.Context())
	defer st.detach(gen)
	cli.gen = gen

	log.Printf("page %d attached from %s", gen, r.RemoteAddr)
	err = cli.Sync(ctx)
	log.Printf("page %d detached", gen)
	return err
}

// attach makes a new client current, failing whatever the previous one left pending.
func (st *Stage) attach(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.cancel != nil {
		st.cancel()
	}
	st.failPending()
	st.gen++
	st.attached = st.gen
	st.cancel = cancel
	return ctx, st.gen
}

// detach clears the passed client, if it is still the current one.
func (st *Stage) detach(gen uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.attached != gen {
		return
	}
	st.cancel()
	st.cancel = nil
	st.attached = 0
	st.failPending()
}

// failPending must be called with mu held.
func (st *Stage) failPending() {
	for id, done := range st.pending {
		done <- ErrDetached
		close(done)
		delete(st.pending, id)
	}
	st.queue = nil
}

// next blocks until commands are queued for the client of the passed generation and takes
// all of them. A replaced client gets ErrDetached and leaves the queue to its successor.
func (st *Stage) next(ctx context.Context, gen uint64) ([]animation.Command, error) {
	for {
		st.mu.Lock()
		if st.attached != gen {
			if len(st.queue) > 0 {
				// Hand back any wakeup this client consumed.
				select {
				case st.wake <- struct{}{}:
				default:
				}
			}
			st.mu.Unlock()
			return nil, ErrDetached
		}
		if len(st.queue) > 0 {
			cmds := st.queue
			st.queue = nil
			st.mu.Unlock()
			return cmds, nil
		}
		st.mu.Unlock()

		select {
		case <-st.wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// resolve completes the command acknowledged by the page. Unknown ids are ignored: they
// belong to a detached page or were already failed.
func (st *Stage) resolve(ack Ack) {
	st.mu.Lock()
	done, ok := st.pending[ack.Id]
	delete(st.pending, ack.Id)
	st.mu.Unlock()

	if !ok {
		return
	}
	if ack.Error != "" {
		done <- fmt.Errorf("%w: command %d: %s", ErrPage, ack.Id, ack.Error)
	}
	close(done)
}

// Forward submits each batch of element updates as property commands, until updates is
// closed or ctx is cancelled. Their completions are not awaited.
func (st *Stage) Forward(ctx context.Context, updates <-chan []EleUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-updates:
			if !ok {
				return
			}
			for _, update := range batch {
				st.Submit(ctx, animation.Command{
					Kind:  animation.KindProperty,
					EleId: update.EleId,
					Ops:   update.Ops,
				})
			}
		}
	}
}
