// cell_views contains views derived from the board: the grid of cells with the robot over
// it, and the status readouts that follow the board as it changes.
package cell_views

import (
	"fmt"

	"robogrid/grid_world"
	"robogrid/models"
)

// Cell is a grid cell flattened for the template. As a rule of thumb, Cell fields should be
// immediately usable as view parameters.
type Cell struct {
	Id        string
	X, Y      int
	Left, Top int
	Marked    bool
}

// Sprite is the robot's element as the template renders it.
type Sprite struct {
	Id          string
	Left, Top   int
	BorderColor string
}

// Board is the view-model of the whole grid, in layout units.
type Board struct {
	// Width and Height of the grid in pixels.
	Width, Height int
	CellW, CellH  int
	// Cells in row-major order.
	Cells []Cell
	Robot Sprite
}

// NewBoard converts the grid and the robot's position into the board view-model.
func NewBoard(
	grid *grid_world.Grid,
	robot models.Position,
	cs models.CellSize,
	borderColor string,
) Board {
	board := Board{
		Width:  grid.Width() * cs.W,
		Height: grid.Height() * cs.H,
		CellW:  cs.W,
		CellH:  cs.H,
		Cells:  make([]Cell, 0, grid.Width()*grid.Height()),
	}
	for _, row := range grid.Rows() {
		for _, cell := range row {
			left, top := cs.ToPixels(cell.Position())
			board.Cells = append(board.Cells, Cell{
				Id:     cell.EleId(),
				X:      cell.X,
				Y:      cell.Y,
				Left:   left,
				Top:    top,
				Marked: cell.Marked(),
			})
		}
	}

	left, top := cs.ToPixels(robot)
	board.Robot = Sprite{
		Id:          models.RobotEleId,
		Left:        left,
		Top:         top,
		BorderColor: borderColor,
	}
	return board
}

// Status is the view-model of the status readouts.
type Status struct {
	Position string
	Marked   string
}

// NewStatus converts a board snapshot into the status readouts.
func NewStatus(snap models.Snapshot) Status {
	return Status{
		Position: snap.Robot.String(),
		Marked:   fmt.Sprintf("%d/%d", snap.Marked, snap.Cells),
	}
}
