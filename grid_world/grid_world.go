// grid_world contains the board: a fixed width x height grid of markable cells.
package grid_world

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"robogrid/animation"
	"robogrid/models"
)

// MarkedClass is the css class that renders a cell as marked.
const MarkedClass = "marked"

// Defaults for the board: 30 columns by 7 rows, where only the scan row may be randomly marked.
const (
	DefaultWidth           = 30
	DefaultHeight          = 7
	DefaultScanRow         = 3
	DefaultMarkProbability = 0.3
)

// ErrOutOfRange is returned for coordinates outside of the grid.
var ErrOutOfRange = errors.New("grid coordinates out of range")

// Cell is a single grid square, which owns its page element.
type Cell struct {
	X, Y     int
	mu       sync.Mutex
	marked   bool
	animator *animation.Animator
}

func newCell(x, y int, animator *animation.Animator) *Cell {
	return &Cell{
		X:        x,
		Y:        y,
		animator: animator,
	}
}

// EleId is the id of the cell's page element.
func (cell *Cell) EleId() string {
	return models.CellEleId(cell.X, cell.Y)
}

// Position returns the cell's grid coordinates.
func (cell *Cell) Position() models.Position {
	return models.Position{X: cell.X, Y: cell.Y}
}

// Marked reports the cell's current mark. It changes as soon as SetMark is called,
// ahead of the visual transition.
func (cell *Cell) Marked() bool {
	cell.mu.Lock()
	defer cell.mu.Unlock()
	return cell.marked
}

// SetMark sets the mark, and returns a channel closed when the element's transition ends.
// Setting the current state again is a no-op whose channel is already closed.
func (cell *Cell) SetMark(ctx context.Context, mark bool) <-chan error {
	cell.mu.Lock()
	defer cell.mu.Unlock()

	if cell.marked == mark {
		return animation.Resolved()
	}

	cell.marked = mark
	// Submitted under the lock so that concurrent toggles reach the page in flag order.
	return cell.animator.Transition(ctx, cell.EleId(), MarkedClass, mark)
}

// Toggle flips the mark, as a click on the cell does.
func (cell *Cell) Toggle(ctx context.Context) <-chan error {
	cell.mu.Lock()
	defer cell.mu.Unlock()

	cell.marked = !cell.marked
	return cell.animator.Transition(ctx, cell.EleId(), MarkedClass, cell.marked)
}

// Grid is the fixed set of cells, indexed [row][col]. It is never resized.
type Grid struct {
	width, height int
	cells         [][]*Cell
	scanRow       int
	markProb      float64
	// rng is not safe for concurrent use and is guarded by mu.
	mu  sync.Mutex
	rng *rand.Rand
}

// GridOption configures optional grid parameters.
type GridOption func(*Grid)

// WithRand sets the source used by Randomize, e.g. a seeded one for tests.
func WithRand(rng *rand.Rand) GridOption {
	return func(grid *Grid) { grid.rng = rng }
}

// WithScanRow sets the only row Randomize may mark.
func WithScanRow(row int) GridOption {
	return func(grid *Grid) { grid.scanRow = row }
}

// WithMarkProbability sets the independent probability with which Randomize marks a scan row cell.
func WithMarkProbability(p float64) GridOption {
	return func(grid *Grid) { grid.markProb = p }
}

// NewGrid builds width x height cells whose elements are animated by the passed animator.
func NewGrid(
	width, height int,
	animator *animation.Animator,
	opts ...GridOption,
) *Grid {
	grid := &Grid{
		width:    width,
		height:   height,
		scanRow:  DefaultScanRow,
		markProb: DefaultMarkProbability,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(grid)
	}

	grid.cells = make([][]*Cell, 0, height)
	for y := 0; y < height; y++ {
		row := make([]*Cell, 0, width)
		for x := 0; x < width; x++ {
			row = append(row, newCell(x, y, animator))
		}
		grid.cells = append(grid.cells, row)
	}
	return grid
}

func (grid *Grid) Width() int  { return grid.width }
func (grid *Grid) Height() int { return grid.height }

// ScanRow is the row Randomize marks and the robot sweeps.
func (grid *Grid) ScanRow() int { return grid.scanRow }

// InBounds reports whether x/y addresses a cell.
func (grid *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < grid.width && y >= 0 && y < grid.height
}

// Cell returns the cell at x/y, or ErrOutOfRange.
func (grid *Grid) Cell(x, y int) (*Cell, error) {
	if !grid.InBounds(x, y) {
		return nil, fmt.Errorf("cell (%d,%d) of %dx%d: %w", x, y, grid.width, grid.height, ErrOutOfRange)
	}
	return grid.cells[y][x], nil
}

// MustCell is Cell for callers that have already bounded their coordinates.
func (grid *Grid) MustCell(x, y int) *Cell {
	cell, err := grid.Cell(x, y)
	if err != nil {
		panic(err)
	}
	return cell
}

// Rows returns the cells by [row][col]. The slices must not be modified.
func (grid *Grid) Rows() [][]*Cell {
	return grid.cells
}

// Visit calls fn for every cell, column by column.
func (grid *Grid) Visit(fn func(cell *Cell)) {
	for x := 0; x < grid.width; x++ {
		for y := 0; y < grid.height; y++ {
			fn(grid.cells[y][x])
		}
	}
}

// MarkedCount returns the number of marked cells.
func (grid *Grid) MarkedCount() (n int) {
	grid.Visit(func(cell *Cell) {
		if cell.Marked() {
			n++
		}
	})
	return
}

// Reset unmarks every cell at once and returns when all of their transitions have ended.
func (grid *Grid) Reset(ctx context.Context) error {
	dones := make([]<-chan error, 0, grid.width*grid.height)
	grid.Visit(func(cell *Cell) {
		dones = append(dones, cell.SetMark(ctx, false))
	})

	if err := animation.All(ctx, dones...); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// Randomize sets every cell at once: scan row cells are marked with the grid's mark
// probability, every other cell is unmarked. Returns when all transitions have ended.
func (grid *Grid) Randomize(ctx context.Context) error {
	dones := make([]<-chan error, 0, grid.width*grid.height)
	grid.mu.Lock()
	grid.Visit(func(cell *Cell) {
		mark := cell.Y == grid.scanRow && grid.rng.Float64() < grid.markProb
		dones = append(dones, cell.SetMark(ctx, mark))
	})
	grid.mu.Unlock()

	if err := animation.All(ctx, dones...); err != nil {
		return fmt.Errorf("randomize: %w", err)
	}
	return nil
}

// Show prints the board to the console, for visual reference: '#' for marked cells,
// '.' for unmarked ones, and 'R' where the robot stands.
func (grid *Grid) Show(w io.Writer, robot models.Position) {
	for y, row := range grid.cells {
		for x, cell := range row {
			glyph := '.'
			if cell.Marked() {
				glyph = '#'
			}
			if robot.X == x && robot.Y == y {
				glyph = 'R'
			}
			fmt.Fprintf(w, "%c", glyph)
		}
		fmt.Fprintln(w)
	}
}
