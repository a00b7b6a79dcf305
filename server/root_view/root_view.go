package root_view

import (
	"context"
	_ "embed"
	"html/template"

	"robogrid/models"
	"robogrid/server/cell_views"
	"robogrid/server/fastview"
)

//go:embed static/page.css
var stylesheet string

//go:embed static/page.js
var script string

// PageData is what the index template renders: the board as it is when the page is served.
type PageData struct {
	Board  cell_views.Board
	Status cell_views.Status
}

// RootView is the main page's index.html, which is the container for all the
// view components, the wiring for their channels, etc.
type RootView struct {
	board   fastview.ViewComponent
	status  []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView creates the main page and the views it contains. The status views follow
// the passed snapshots.
func NewRootView(
	ctx context.Context,
	snapshots <-chan models.Snapshot,
) (*RootView, error) {
	status, updates, err := fastview.NewViewBuilder[models.Snapshot, cell_views.Status]().
		WithContext(ctx).
		WithModel(snapshots, cell_views.NewStatus).
		WithView(cell_views.NewPositionView).
		WithView(cell_views.NewTallyView).
		Build()
	if err != nil {
		return nil, err
	}

	return &RootView{
		board:   cell_views.NewBoardView(),
		status:  status,
		updates: updates,
	}, nil
}

// Updates returns the main ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Parse builds the main page's template, with websocket bootstrap code, and returns its name.
// It also sets up the func-map the child components may depend on.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	rt := parent.Funcs(
		template.FuncMap{
			"stylesheet": func() template.CSS { return template.CSS(stylesheet) },
			"script":     func() template.JS { return template.JS(script) },
		})

	var boardName string
	if boardName, err = rv.board.Parse(rt); err != nil {
		return
	}

	var statusSpec string
	for _, vc := range rv.status {
		tname, parseErr := vc.Parse(rt)
		if parseErr != nil {
			err = parseErr
			return
		}
		statusSpec += `{{ template "` + tname + `" . }}`
	}

	// The main template bootstraps the rest: sets up the client websocket and aggregates views.
	// The body is the target of the joke animation.
	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<meta charset="utf-8">
			<title>robogrid</title>
			<link rel="icon" href="data:,">
			<style>{{ stylesheet }}</style>
			<script>{{ script }}</script>
		</head>
		<body id="` + models.PageEleId + `">
			{{ template "` + boardName + `" . }}
			<div class="statusbar">` + statusSpec + `</div>
		</body>
	</html>
	{{ end }}
	`

	_, err = rt.Parse(indexTemplate)
	return
}
