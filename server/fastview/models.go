// fastview drives a server-rendered page over a websocket: the server holds the state, renders
// the initial page, and then pushes element updates and animation commands to it. The page
// reports back when each command's animation has finished.
package fastview

import (
	"html/template"

	"robogrid/animation"
)

// EleUpdate is an element identifier and a set of property assignments to apply to it.
// Example: ('textContent','(3,4)') means 'set ele.textContent to (3,4)'.
// Updates are idempotent: only the latest update per element matters.
type EleUpdate struct {
	// The id by which to find the element
	EleId string
	Ops   []animation.Op
}

// Ack is the page's report that a command completed. Error is empty on success, otherwise
// it carries the page's description of the failure.
type Ack struct {
	Id    uint64
	Error string
}

// ViewComponent is a server side view: Parse adds its template to a parent page template,
// thus inheriting or extending the parent's func-map, and returns the template name.
type ViewComponent interface {
	Parse(*template.Template) (string, error)
}

// LiveView is a view that also publishes element updates after the page is rendered.
type LiveView interface {
	ViewComponent
	Updates() <-chan []EleUpdate
}
