package cell_views

import (
	"html/template"

	"robogrid/models"
)

// BoardView renders the grid, the robot, and the controls. It has no updates of its own:
// the board changes only through animation commands.
type BoardView struct {
	name string
}

func NewBoardView() *BoardView {
	return &BoardView{name: "board"}
}

// Parse defines the board template, which renders the page data's Board.
func (bv *BoardView) Parse(t *template.Template) (name string, err error) {
	name = bv.name
	_, err = t.Parse(
		`{{ define "` + name + `" }}
		{{ $board := .Board }}
		<div id="grid" style="width: {{ $board.Width }}px; height: {{ $board.Height }}px;">
			<div class="content">
				{{ range $cell := $board.Cells }}
				<div id="{{ $cell.Id }}"
					class="cell{{ if $cell.Marked }} marked{{ end }}"
					data-x="{{ $cell.X }}" data-y="{{ $cell.Y }}"
					style="left: {{ $cell.Left }}px; top: {{ $cell.Top }}px; width: {{ $board.CellW }}px; height: {{ $board.CellH }}px;"></div>
				{{ end }}
				<div id="{{ $board.Robot.Id }}" class="robot"
					style="left: {{ $board.Robot.Left }}px; top: {{ $board.Robot.Top }}px; width: {{ $board.CellW }}px; height: {{ $board.CellH }}px; border-color: {{ $board.Robot.BorderColor }};"></div>
			</div>
		</div>
		<div class="controls">
			<button id="` + models.ResetEleId + `">reset</button>
			<button id="` + models.RandomEleId + `">random</button>
			<button id="` + models.GoEleId + `">go</button>
		</div>
		{{ end }}`)
	return
}
