package cell_views

import (
	"bytes"
	"context"
	"html/template"
	"testing"

	"robogrid/animation"
	"robogrid/grid_world"
	"robogrid/models"

	. "github.com/smartystreets/goconvey/convey"
)

type pageData struct {
	Board  Board
	Status Status
}

func render(t *testing.T, vc interface {
	Parse(*template.Template) (string, error)
}, data pageData) string {
	tmpl := template.New("test")
	name, err := vc.Parse(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err = tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestBoard(t *testing.T) {
	Convey("Given a 3x2 grid with one marked cell", t, func() {
		ctx := context.Background()
		grid := grid_world.NewGrid(3, 2, animation.New(animation.NewRecorder()))
		So(animation.Await(ctx, grid.MustCell(2, 1).SetMark(ctx, true)), ShouldBeNil)

		board := NewBoard(grid, models.Position{X: 1, Y: 1}, models.DefaultCellSize, "#333333")

		Convey("The board is laid out in pixels, row by row", func() {
			So(board.Width, ShouldEqual, 78)
			So(board.Height, ShouldEqual, 52)
			So(len(board.Cells), ShouldEqual, 6)
			So(board.Cells[1], ShouldResemble, Cell{Id: "cell-1-0", X: 1, Y: 0, Left: 26, Top: 0})
			So(board.Cells[5].Marked, ShouldBeTrue)
			So(board.Robot, ShouldResemble, Sprite{Id: "robot", Left: 26, Top: 26, BorderColor: "#333333"})
		})

		Convey("The board view renders every cell, the robot, and the controls", func() {
			html := render(t, NewBoardView(), pageData{Board: board})
			So(html, ShouldContainSubstring, `id="grid"`)
			So(html, ShouldContainSubstring, `class="content"`)
			So(html, ShouldContainSubstring, `id="cell-0-0"`)
			So(html, ShouldContainSubstring, `id="cell-2-1"`)
			So(html, ShouldContainSubstring, `class="cell marked"`)
			So(html, ShouldContainSubstring, `id="robot"`)
			So(html, ShouldContainSubstring, `left: 26px; top: 26px`)
			for _, id := range []string{"reset", "random", "go"} {
				So(html, ShouldContainSubstring, `<button id="`+id+`">`)
			}
		})
	})
}

func TestStatusViews(t *testing.T) {
	Convey("Given the status readouts", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		snap := models.Snapshot{Robot: models.Position{X: 4, Y: 3}, Marked: 5, Cells: 210}

		Convey("A snapshot converts to readable values", func() {
			So(NewStatus(snap), ShouldResemble, Status{Position: "(4,3)", Marked: "5/210"})
		})

		Convey("Each readout publishes its own element's text", func() {
			positions := make(chan Status, 1)
			tallies := make(chan Status, 1)
			position := NewPositionView(ctx.Done(), positions)
			tally := NewTallyView(ctx.Done(), tallies)

			positions <- NewStatus(snap)
			update := <-position.Updates()
			So(update, ShouldHaveLength, 1)
			So(update[0].EleId, ShouldEqual, models.PositionEleId)
			So(update[0].Ops[0], ShouldResemble, animation.Op{Key: "textContent", Value: "(4,3)"})

			tallies <- NewStatus(snap)
			update = <-tally.Updates()
			So(update[0].EleId, ShouldEqual, models.MarkedEleId)
			So(update[0].Ops[0].Value, ShouldEqual, "5/210")
		})

		Convey("Readouts render their initial value", func() {
			html := render(t, NewTallyView(ctx.Done(), nil), pageData{Status: NewStatus(snap)})
			So(html, ShouldContainSubstring, `<span id="status-marked">5/210</span>`)
		})
	})
}
