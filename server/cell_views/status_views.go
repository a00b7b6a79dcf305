package cell_views

import (
	"html/template"

	"robogrid/animation"
	"robogrid/models"
	"robogrid/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// StatusField is a live readout of one Status field.
type StatusField struct {
	// name is the template name; hyphens interfere with html/template's `template` directive.
	name    string
	eleId   string
	label   string
	field   string
	value   func(Status) string
	updates <-chan []fastview.EleUpdate
}

func newStatusField(
	done <-chan struct{},
	statuses <-chan Status,
	name, eleId, label, field string,
	value func(Status) string,
) *StatusField {
	sf := &StatusField{
		name:  name,
		eleId: eleId,
		label: label,
		field: field,
		value: value,
	}
	sf.updates = channerics.Convert(done, statuses, sf.onUpdate)
	return sf
}

// NewPositionView is a readout of the robot's grid position.
func NewPositionView(done <-chan struct{}, statuses <-chan Status) fastview.LiveView {
	return newStatusField(done, statuses, "position", models.PositionEleId, "robot", "Position",
		func(st Status) string { return st.Position })
}

// NewTallyView is a readout of the number of marked cells.
func NewTallyView(done <-chan struct{}, statuses <-chan Status) fastview.LiveView {
	return newStatusField(done, statuses, "tally", models.MarkedEleId, "marked", "Marked",
		func(st Status) string { return st.Marked })
}

func (sf *StatusField) Updates() <-chan []fastview.EleUpdate {
	return sf.updates
}

func (sf *StatusField) onUpdate(st Status) []fastview.EleUpdate {
	return []fastview.EleUpdate{
		{
			EleId: sf.eleId,
			Ops: []animation.Op{
				{Key: "textContent", Value: sf.value(st)},
			},
		},
	}
}

// Parse defines the readout's template, which renders the page data's Status.
func (sf *StatusField) Parse(t *template.Template) (name string, err error) {
	name = sf.name
	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<span class="status">` + sf.label + ` <span id="` + sf.eleId + `">{{ .Status.` + sf.field + ` }}</span></span>
		{{ end }}`)
	return
}
