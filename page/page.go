// page owns the board's controls: reset, randomize, and go, plus the click counter that
// schedules the joke. It is the model behind the page's buttons; the server only routes to it.
package page

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"robogrid/animation"
	"robogrid/grid_world"
	"robogrid/models"
	"robogrid/robot"
)

// ErrSweepInFlight is returned by Go while a previous sweep is still running.
var ErrSweepInFlight = errors.New("sweep already in flight")

// Config holds the joke's trigger and timings.
type Config struct {
	// JokeTrigger is the go-click count on which the joke is scheduled; zero never schedules it.
	JokeTrigger  int
	JokeDelay    time.Duration
	JokeDuration time.Duration
}

// DefaultConfig schedules the joke five seconds after the second go click.
func DefaultConfig() Config {
	return Config{
		JokeTrigger:  2,
		JokeDelay:    5 * time.Second,
		JokeDuration: 30 * time.Second,
	}
}

// Page binds the grid and robot to the page's controls.
type Page struct {
	grid     *grid_world.Grid
	robot    *robot.Robot
	animator *animation.Animator
	cfg      Config
	// ctx bounds the fire-and-forget work started by the controls.
	ctx context.Context

	mu      sync.Mutex
	goCount int
	running bool

	// afterFunc schedules the joke; replaced in tests.
	afterFunc func(time.Duration, func()) *time.Timer
	sweeps    sync.WaitGroup
	snapshots chan models.Snapshot
}

// New returns a page whose background work lives as long as ctx. It observes the robot's
// moves in order to publish snapshots.
func New(
	ctx context.Context,
	grid *grid_world.Grid,
	rb *robot.Robot,
	animator *animation.Animator,
	cfg Config,
) *Page {
	pg := &Page{
		grid:      grid,
		robot:     rb,
		animator:  animator,
		cfg:       cfg,
		ctx:       ctx,
		afterFunc: time.AfterFunc,
		snapshots: make(chan models.Snapshot, 1),
	}
	rb.OnMove = func(models.Position) { pg.publish() }
	return pg
}

// Grid returns the page's grid.
func (pg *Page) Grid() *grid_world.Grid {
	return pg.grid
}

// Robot returns the page's robot.
func (pg *Page) Robot() *robot.Robot {
	return pg.robot
}

// Snapshot summarizes the board as it is now.
func (pg *Page) Snapshot() models.Snapshot {
	return models.Snapshot{
		Robot:  pg.robot.Position(),
		Marked: pg.grid.MarkedCount(),
		Cells:  pg.grid.Width() * pg.grid.Height(),
	}
}

// Snapshots returns the channel of board summaries, published after every move and every
// change to the grid. Only the latest summary is kept for a slow reader.
func (pg *Page) Snapshots() <-chan models.Snapshot {
	return pg.snapshots
}

func (pg *Page) publish() {
	snap := pg.Snapshot()
	for {
		select {
		case pg.snapshots <- snap:
			return
		default:
			// Displace the stale summary.
			select {
			case <-pg.snapshots:
			default:
			}
		}
	}
}

// Reset clears the grid without waiting for its transitions, as the reset button does.
func (pg *Page) Reset() {
	go func() {
		if err := pg.grid.Reset(pg.ctx); err != nil {
			log.Println(err)
		}
		pg.publish()
	}()
}

// Randomize re-rolls the scan row and waits for every cell's transition.
func (pg *Page) Randomize(ctx context.Context) error {
	defer pg.publish()
	return pg.grid.Randomize(ctx)
}

// ToggleCell flips the cell at x/y, as a click on it does, and waits for its transition.
func (pg *Page) ToggleCell(ctx context.Context, x, y int) error {
	cell, err := pg.grid.Cell(x, y)
	if err != nil {
		return err
	}

	done := cell.Toggle(ctx)
	pg.publish()
	if err = animation.Await(ctx, done); err != nil {
		return fmt.Errorf("toggle %v: %w", cell.Position(), err)
	}
	return nil
}

// Running reports whether a sweep is in flight.
func (pg *Page) Running() bool {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	return pg.running
}

// GoCount returns the number of accepted go clicks.
func (pg *Page) GoCount() int {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	return pg.goCount
}

// Go starts the robot's sweep in the background with the go button disabled, and re-enables
// the button once the sweep completes. The click that reaches JokeTrigger also schedules the
// joke, regardless of when the sweep finishes. A click while a sweep is in flight is refused
// with ErrSweepInFlight, as the disabled button would refuse it.
func (pg *Page) Go() error {
	pg.mu.Lock()
	if pg.running {
		pg.mu.Unlock()
		return ErrSweepInFlight
	}
	pg.running = true
	pg.goCount++
	count := pg.goCount
	pg.mu.Unlock()

	// The page applies commands in order, so the button is disabled before the first move.
	pg.setGoDisabled(true)

	if count == pg.cfg.JokeTrigger {
		pg.afterFunc(pg.cfg.JokeDelay, func() {
			if err := pg.Joke(pg.ctx); err != nil {
				log.Println(err)
			}
		})
	}

	pg.sweeps.Add(1)
	go func() {
		defer pg.sweeps.Done()

		if err := pg.robot.Run(pg.ctx); err != nil {
			log.Println(err)
		}

		pg.mu.Lock()
		pg.running = false
		pg.mu.Unlock()

		pg.setGoDisabled(false)
		pg.publish()
	}()
	return nil
}

func (pg *Page) setGoDisabled(disabled bool) {
	// Property commands need no awaiting; their only failure is a detached page.
	_ = pg.animator.Property(pg.ctx, models.GoEleId, animation.Op{Key: "disabled", Value: disabled})
}

// Wait blocks until the sweep in flight, if any, has completed.
func (pg *Page) Wait() {
	pg.sweeps.Wait()
}
