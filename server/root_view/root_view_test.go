package root_view

import (
	"bytes"
	"context"
	"html/template"
	"testing"
	"time"

	"robogrid/animation"
	"robogrid/grid_world"
	"robogrid/models"
	"robogrid/server/cell_views"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRootView(t *testing.T) {
	Convey("Given the root view", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		snapshots := make(chan models.Snapshot)
		rv, err := NewRootView(ctx, snapshots)
		So(err, ShouldBeNil)

		Convey("The index renders the board, the controls, and the client script", func() {
			grid := grid_world.NewGrid(30, 7, animation.New(animation.NewRecorder()))
			data := PageData{
				Board:  cell_views.NewBoard(grid, models.Position{}, models.DefaultCellSize, "#333333"),
				Status: cell_views.NewStatus(models.Snapshot{Cells: 210}),
			}

			tmpl := template.New("index.html")
			name, err := rv.Parse(tmpl)
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(tmpl.ExecuteTemplate(&buf, name, data), ShouldBeNil)

			html := buf.String()
			So(html, ShouldContainSubstring, `<body id="page">`)
			So(html, ShouldContainSubstring, `id="cell-29-6"`)
			So(html, ShouldContainSubstring, `id="robot"`)
			So(html, ShouldContainSubstring, `<button id="go">`)
			So(html, ShouldContainSubstring, `<span id="status-position">(0,0)</span>`)
			So(html, ShouldContainSubstring, `<span id="status-marked">0/210</span>`)
			So(html, ShouldContainSubstring, `transitionend`)
			So(html, ShouldContainSubstring, `.cell.marked`)
		})

		Convey("Snapshots become batched status updates", func() {
			go func() { snapshots <- models.Snapshot{Robot: models.Position{X: 1, Y: 3}, Marked: 2, Cells: 210} }()

			seen := map[string]interface{}{}
			timeout := time.After(2 * time.Second)
			for len(seen) < 2 {
				select {
				case batch := <-rv.Updates():
					for _, update := range batch {
						seen[update.EleId] = update.Ops[0].Value
					}
				case <-timeout:
					t.Fatal("no status updates")
				}
			}
			So(seen[models.PositionEleId], ShouldEqual, "(1,3)")
			So(seen[models.MarkedEleId], ShouldEqual, "2/210")
		})
	})
}
