// models contains the grid geometry and element ids shared by the board, the robot, and their views.
package models

import (
	"fmt"
	"math"
)

// Position is a grid coordinate. X grows to the right, Y grows downward, as in
// the page's coordinate system where (0,0) is the top left cell.
type Position struct {
	X, Y int
}

// Add returns the position displaced by dx and dy.
func (pos Position) Add(dx, dy int) Position {
	return Position{X: pos.X + dx, Y: pos.Y + dy}
}

func (pos Position) String() string {
	return fmt.Sprintf("(%d,%d)", pos.X, pos.Y)
}

// Distance is the euclidean distance between two grid positions, in cells.
func Distance(a, b Position) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}

// CellSize is the size of a single grid square in layout units (px).
type CellSize struct {
	W, H int
}

// DefaultCellSize is the 26x26 square the page stylesheet is laid out for.
var DefaultCellSize = CellSize{W: 26, H: 26}

// ToPixels maps a grid position to its element offsets. Cells and the robot
// share this mapping, so a robot at (x,y) sits exactly over cell (x,y).
func (cs CellSize) ToPixels(pos Position) (left, top int) {
	return pos.X * cs.W, pos.Y * cs.H
}

// Px formats a layout offset for a css property.
func Px(units int) string {
	return fmt.Sprintf("%dpx", units)
}

// Direction is one of the four unit steps available to the robot.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

// Offset returns the unit displacement of the direction.
func (dir Direction) Offset() (dx, dy int) {
	switch dir {
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	}
	return 0, 0
}

func (dir Direction) String() string {
	switch dir {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "unknown"
}

// Element ids shared by the rendered page and the commands that animate it.
const (
	RobotEleId  = "robot"
	PageEleId   = "page"
	ResetEleId  = "reset"
	RandomEleId = "random"
	GoEleId     = "go"
	// Status readouts.
	PositionEleId = "status-position"
	MarkedEleId   = "status-marked"
)

// CellEleId returns the element id of the cell at x/y. Hyphens are fine here; these are
// element ids, not template names.
func CellEleId(x, y int) string {
	return fmt.Sprintf("cell-%d-%d", x, y)
}

// Snapshot is a summary of the board published to the status views after state changes.
type Snapshot struct {
	Robot  Position
	Marked int
	Cells  int
}
