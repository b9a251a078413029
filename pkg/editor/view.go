package editor

import (
	"html"
	"slices"
)

// Affordance is the delete control attached to one image on the editing surface.
type Affordance struct {
	Node NodeID `json:"node"`
	Src  string `json:"src"`
}

// View tracks the interactive affordances of the editing surface. Each image
// has exactly one affordance; activating it deletes that image and nothing else.
type View struct {
	editor      *Editor
	placeholder string
	affordances map[NodeID]Affordance
	order       []NodeID
}

func newView(e *Editor, placeholder string) *View {
	return &View{editor: e, placeholder: placeholder, affordances: make(map[NodeID]Affordance)}
}

// Sync rebuilds the affordance set from the current document.
func (v *View) Sync() {
	images := v.editor.doc.Images()
	clear(v.affordances)
	v.order = v.order[:0]
	for _, img := range images {
		v.affordances[img.ID] = Affordance{Node: img.ID, Src: img.Src}
		v.order = append(v.order, img.ID)
	}
}

// Affordances lists the delete controls in document order.
func (v *View) Affordances() []Affordance {
	out := make([]Affordance, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, v.affordances[id])
	}
	return out
}

// Placeholder is the hint shown while the document is empty.
func (v *View) Placeholder() string {
	return v.placeholder
}

// Activate handles a click on the delete control for node id.
func (v *View) Activate(id NodeID) error {
	if _, ok := v.affordances[id]; !ok {
		return ErrNodeNotFound
	}
	return v.editor.DeleteNode(id)
}

// Has reports whether node id currently has an affordance.
func (v *View) Has(id NodeID) bool {
	return slices.Contains(v.order, id)
}

// RenderEditing returns the editing surface markup: images carry their
// wrapper identity and delete button, and an empty document shows the
// placeholder.
func (v *View) RenderEditing() string {
	if v.editor.State() == StateEmpty {
		return `<p class="is-editor-empty" data-placeholder="` + html.EscapeString(v.placeholder) + `"></p>`
	}
	r := renderer{image: editingImage}
	r.blocks(v.editor.doc.root.Content)
	return r.sb.String()
}
