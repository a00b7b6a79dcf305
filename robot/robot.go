// robot implements the sprite that walks the grid and marks cells.
//
// The robot's position is its whole state; moves are transitions of exactly one cell,
// each an animated repositioning that completes before the next move may begin. None of
// the motion is bounds checked: callers sequence moves so the robot stays on the grid.
package robot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"robogrid/animation"
	"robogrid/grid_world"
	"robogrid/models"
)

// Config holds the timings and colors of the robot's animations.
type Config struct {
	// StepDuration is the length of a single-cell move.
	StepDuration time.Duration
	// FlyPerUnit is the length of a flight per unit of euclidean distance.
	FlyPerUnit time.Duration
	// FlyTurns is the number of full rotations performed during a flight.
	FlyTurns int
	// FlourishDuration is the length of the marking flourish.
	FlourishDuration time.Duration
	// FlourishColor is the transient border color of the flourish.
	FlourishColor string
	// BorderColor is the robot's resting border color.
	BorderColor string
	CellSize    models.CellSize
}

// DefaultConfig returns the timings the page was designed with.
func DefaultConfig() Config {
	return Config{
		StepDuration:     300 * time.Millisecond,
		FlyPerUnit:       100 * time.Millisecond,
		FlyTurns:         4,
		FlourishDuration: 1250 * time.Millisecond,
		FlourishColor:    "#ff8300",
		BorderColor:      "#333333",
		CellSize:         models.DefaultCellSize,
	}
}

// Robot is a sprite with an integer grid position, starting at (0,0).
type Robot struct {
	grid     *grid_world.Grid
	animator *animation.Animator
	cfg      Config

	mu  sync.Mutex
	pos models.Position

	// OnMove is called after every change of position, before its animation plays.
	OnMove func(pos models.Position)
}

// New returns a robot at the origin of the passed grid.
func New(grid *grid_world.Grid, animator *animation.Animator, cfg Config) *Robot {
	return &Robot{
		grid:     grid,
		animator: animator,
		cfg:      cfg,
	}
}

// Position returns the robot's current grid position.
func (rb *Robot) Position() models.Position {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.pos
}

// moveTo updates the position synchronously and returns the previous one.
func (rb *Robot) moveTo(pos models.Position) (prev models.Position) {
	rb.mu.Lock()
	prev = rb.pos
	rb.pos = pos
	rb.mu.Unlock()

	if rb.OnMove != nil {
		rb.OnMove(pos)
	}
	return
}

func (rb *Robot) positionFrame(pos models.Position) animation.Keyframe {
	left, top := rb.cfg.CellSize.ToPixels(pos)
	return animation.Keyframe{
		"left": models.Px(left),
		"top":  models.Px(top),
	}
}

// Step moves the robot one cell in the passed direction.
func (rb *Robot) Step(ctx context.Context, dir models.Direction) error {
	dx, dy := dir.Offset()
	pos := rb.Position().Add(dx, dy)
	rb.moveTo(pos)

	done := rb.animator.Animate(
		ctx,
		models.RobotEleId,
		[]animation.Keyframe{rb.positionFrame(pos)},
		animation.EaseOut(rb.cfg.StepDuration))
	if err := animation.Await(ctx, done); err != nil {
		return fmt.Errorf("step %v to %v: %w", dir, pos, err)
	}
	return nil
}

func (rb *Robot) Left(ctx context.Context) error  { return rb.Step(ctx, models.Left) }
func (rb *Robot) Right(ctx context.Context) error { return rb.Step(ctx, models.Right) }
func (rb *Robot) Up(ctx context.Context) error    { return rb.Step(ctx, models.Up) }
func (rb *Robot) Down(ctx context.Context) error  { return rb.Step(ctx, models.Down) }

// GoTo walks to x/y in unit steps: the horizontal gap is closed completely before the
// vertical one, giving an L-shaped path.
func (rb *Robot) GoTo(ctx context.Context, x, y int) error {
	for rb.Position().X < x {
		if err := rb.Right(ctx); err != nil {
			return err
		}
	}
	for rb.Position().X > x {
		if err := rb.Left(ctx); err != nil {
			return err
		}
	}
	for rb.Position().Y < y {
		if err := rb.Down(ctx); err != nil {
			return err
		}
	}
	for rb.Position().Y > y {
		if err := rb.Up(ctx); err != nil {
			return err
		}
	}
	return nil
}

// FlyDuration is the length of a flight between two positions: FlyPerUnit per unit of
// euclidean distance.
func (rb *Robot) FlyDuration(from, to models.Position) time.Duration {
	return time.Duration(models.Distance(from, to) * float64(rb.cfg.FlyPerUnit))
}

// FlyTo moves directly to x/y in a straight line while spinning. The rotation is cleared
// afterward so it does not compound with later animations.
func (rb *Robot) FlyTo(ctx context.Context, x, y int) error {
	to := models.Position{X: x, Y: y}
	from := rb.moveTo(to)

	start := rb.positionFrame(from)
	start["transform"] = "rotate(0deg)"
	end := rb.positionFrame(to)
	end["transform"] = fmt.Sprintf("rotate(%ddeg)", 360*rb.cfg.FlyTurns)

	done := rb.animator.Animate(
		ctx,
		models.RobotEleId,
		[]animation.Keyframe{start, end},
		animation.EaseOut(rb.FlyDuration(from, to)))
	if err := animation.Await(ctx, done); err != nil {
		return fmt.Errorf("fly %v to %v: %w", from, to, err)
	}

	cleared := rb.animator.Style(ctx, models.RobotEleId, animation.Op{Key: "transform", Value: "none"})
	return animation.Await(ctx, cleared)
}

func (rb *Robot) flourishFrames() []animation.Keyframe {
	return []animation.Keyframe{
		{
			"transform":   "rotate(0deg)",
			"borderColor": rb.cfg.BorderColor,
			"offset":      0,
		},
		{
			"transform":   "rotate(90deg)",
			"borderColor": rb.cfg.FlourishColor,
			"offset":      0.8,
		},
		{
			"transform":   "rotate(90deg)",
			"borderColor": rb.cfg.BorderColor,
			"offset":      1,
		},
	}
}

// CurrentCell returns the cell under the robot, or grid_world.ErrOutOfRange if the
// robot has been walked off the grid.
func (rb *Robot) CurrentCell() (*grid_world.Cell, error) {
	pos := rb.Position()
	return rb.grid.Cell(pos.X, pos.Y)
}

// Mark marks the cell under the robot while playing the flourish, and reports whether
// marking occurred. An already marked cell is left alone and false is returned.
func (rb *Robot) Mark(ctx context.Context) (bool, error) {
	cell, err := rb.CurrentCell()
	if err != nil {
		return false, err
	}
	if cell.Marked() {
		return false, nil
	}

	err = animation.All(
		ctx,
		cell.SetMark(ctx, true),
		rb.animator.Animate(ctx, models.RobotEleId, rb.flourishFrames(), rb.flourishTiming()))
	if err != nil {
		return false, fmt.Errorf("mark %v: %w", cell.Position(), err)
	}
	return true, nil
}

// flourishTiming plays the flourish once, easing out, in the default direction.
func (rb *Robot) flourishTiming() animation.Timing {
	return animation.Timing{
		Duration:   float64(rb.cfg.FlourishDuration) / float64(time.Millisecond),
		Easing:     "ease-out",
		Fill:       "forwards",
		Iterations: 1,
	}
}

func (rb *Robot) currentMarked() (bool, error) {
	cell, err := rb.CurrentCell()
	if err != nil {
		return false, err
	}
	return cell.Marked(), nil
}

// markIfUnmarked is Mark, discarding whether marking occurred.
func (rb *Robot) markIfUnmarked(ctx context.Context) error {
	_, err := rb.Mark(ctx)
	return err
}

// CheckCurrentCell inspects around a marked cell: the cell one row below is marked if
// it is not already, then the cell one row above the starting cell likewise, and the
// robot returns to its starting row. Nothing happens if the current cell is unmarked.
func (rb *Robot) CheckCurrentCell(ctx context.Context) error {
	marked, err := rb.currentMarked()
	if err != nil || !marked {
		return err
	}

	steps := []func(context.Context) error{
		rb.Down,
		rb.markIfUnmarked,
		rb.Up,
		rb.Up,
		rb.markIfUnmarked,
		rb.Down,
	}
	for _, step := range steps {
		if err = step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run is the scripted sweep: walk to the start of the scan row, check each of its cells
// from left to right, then fly home to the origin.
func (rb *Robot) Run(ctx context.Context) error {
	if err := rb.GoTo(ctx, 0, rb.grid.ScanRow()); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	width := rb.grid.Width()
	for i := 0; i < width; i++ {
		if err := rb.CheckCurrentCell(ctx); err != nil {
			return fmt.Errorf("run: %w", err)
		}
		if i < width-1 {
			if err := rb.Right(ctx); err != nil {
				return fmt.Errorf("run: %w", err)
			}
		}
	}

	if err := rb.FlyTo(ctx, 0, 0); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
