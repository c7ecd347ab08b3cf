package editor

import (
	"github.com/dgallion1/resumedraft/internal/doctree"
	"github.com/dgallion1/resumedraft/internal/overlay"
)

// Pointer event types.
const (
	EventDown        = "down"
	EventMove        = "move"
	EventUp          = "up"
	EventClick       = "click"
	EventDoubleClick = "dblclick"
	EventInput       = "input"
	EventBlur        = "blur"
)

// PointerEvent is one host input event in document coordinates. Bounds,
// when set, is where the host laid out Target.
type PointerEvent struct {
	Type   string        `json:"type"`
	X      float64       `json:"x"`
	Y      float64       `json:"y"`
	Target string        `json:"target,omitempty"`
	Handle string        `json:"handle,omitempty"`
	Text   string        `json:"text,omitempty"`
	Bounds *doctree.Rect `json:"bounds,omitempty"`
}

// SelectionView is the JSON form of a selection.
type SelectionView struct {
	Kind string            `json:"kind"`
	From *doctree.Position `json:"from,omitempty"`
	To   *doctree.Position `json:"to,omitempty"`
	Node string            `json:"node,omitempty"`
}

// OverlayView is the JSON form of the overlay state.
type OverlayView struct {
	State    string                   `json:"state"`
	Selected string                   `json:"selected,omitempty"`
	Gesture  string                   `json:"gesture,omitempty"`
	Handle   string                   `json:"handle,omitempty"`
	Handles  map[string]overlay.Point `json:"handles,omitempty"`
	Draft    string                   `json:"draft,omitempty"`
}

// View is a consistent snapshot of everything a client renders.
type View struct {
	Version   uint64        `json:"version"`
	Doc       *doctree.Node `json:"doc"`
	Selection SelectionView `json:"selection"`
	Overlay   OverlayView   `json:"overlay"`
}

func (e *Editor) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := View{
		Version:   e.version,
		Doc:       e.tree.Snapshot(),
		Selection: SelectionView{Kind: e.sel.Kind.String()},
	}
	switch {
	case e.sel.IsText():
		from, to := e.sel.From, e.sel.To
		v.Selection.From, v.Selection.To = &from, &to
	case e.sel.IsNode():
		v.Selection.Node = e.sel.Node
	}

	o := e.overlay
	v.Overlay = OverlayView{
		State:    o.State().String(),
		Selected: o.Selected(),
		Draft:    o.Draft(),
	}
	if s, ok := o.Session(); ok {
		v.Overlay.Gesture = s.Mode.String()
		if s.Handle != overlay.HandleNone {
			v.Overlay.Handle = s.Handle.String()
		}
	}
	if hs := o.Handles(); len(hs) > 0 {
		v.Overlay.Handles = make(map[string]overlay.Point, len(hs))
		for h, p := range hs {
			v.Overlay.Handles[h.String()] = p
		}
	}
	return v
}
