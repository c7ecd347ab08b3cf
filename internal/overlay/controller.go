// Package overlay drives drag, resize and inline editing of floating
// document nodes from raw pointer events.
package overlay

import (
	"errors"
	"fmt"

	"github.com/dgallion1/resumedraft/internal/doctree"
)

var (
	ErrNotFloating       = errors.New("node is not a floating node")
	ErrGestureInProgress = errors.New("gesture in progress")
)

// MinSize is the smallest width and height a resize can produce.
const MinSize = 50.0

// HandleTolerance is how far from a handle point, in pixels, a pointer-down
// still grabs the handle.
const HandleTolerance = 6.0

// State is the controller's interaction state.
type State int

const (
	Idle State = iota
	Selected
	Dragging
	Resizing
	Editing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selected:
		return "selected"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	case Editing:
		return "editing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Mode is the kind of gesture a session tracks.
type Mode int

const (
	ModeNone Mode = iota
	ModeDragging
	ModeResizing
)

func (m Mode) String() string {
	switch m {
	case ModeDragging:
		return "dragging"
	case ModeResizing:
		return "resizing"
	}
	return "none"
}

// Handle is one of the eight resize grips around a selected node.
type Handle int

const (
	HandleNone Handle = iota
	HandleN
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
	HandleNW
)

var handleNames = [...]string{"", "n", "ne", "e", "se", "s", "sw", "w", "nw"}

func (h Handle) String() string {
	if int(h) < len(handleNames) {
		return handleNames[h]
	}
	return fmt.Sprintf("Handle(%d)", int(h))
}

// ParseHandle accepts compass names and the long forms used by browser
// clients ("right", "top-left", ...).
func ParseHandle(s string) (Handle, bool) {
	switch s {
	case "n", "top":
		return HandleN, true
	case "ne", "top-right":
		return HandleNE, true
	case "e", "right":
		return HandleE, true
	case "se", "bottom-right":
		return HandleSE, true
	case "s", "bottom":
		return HandleS, true
	case "sw", "bottom-left":
		return HandleSW, true
	case "w", "left":
		return HandleW, true
	case "nw", "top-left":
		return HandleNW, true
	}
	return HandleNone, false
}

// edges reports which sides of the box a handle moves.
func (h Handle) edges() (north, east, south, west bool) {
	switch h {
	case HandleN:
		return true, false, false, false
	case HandleNE:
		return true, true, false, false
	case HandleE:
		return false, true, false, false
	case HandleSE:
		return false, true, true, false
	case HandleS:
		return false, false, true, false
	case HandleSW:
		return false, false, true, true
	case HandleW:
		return false, false, false, true
	case HandleNW:
		return true, false, false, true
	}
	return false, false, false, false
}

// Point is a pointer position in document coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Session is the state of one drag or resize gesture.
type Session struct {
	Mode           Mode
	Target         string
	OriginPointer  Point
	OriginGeometry doctree.Rect
	Handle         Handle
}

// Mutator is the slice of the document tree the controller needs.
type Mutator interface {
	Node(id string) (*doctree.Node, error)
	SetAttributes(id string, partial doctree.Attrs) error
}

// Layout reports where the host laid out a node that has no absolute
// position yet.
type Layout interface {
	Bounds(id string) (doctree.Rect, bool)
}

// Controller is the gesture state machine. It is not safe for concurrent
// use; the editor serializes calls.
type Controller struct {
	doc     Mutator
	layout  Layout
	state   State
	target  string
	session Session
	draft   string
}

// New creates a controller over doc. layout may be nil.
func New(doc Mutator, layout Layout) *Controller {
	return &Controller{doc: doc, layout: layout}
}

func (c *Controller) State() State { return c.state }

// Selected returns the id of the selected floating node, or "".
func (c *Controller) Selected() string { return c.target }

// Session returns the active gesture, if any.
func (c *Controller) Session() (Session, bool) {
	if c.state != Dragging && c.state != Resizing {
		return Session{}, false
	}
	return c.session, true
}

// Active reports whether a drag or resize is under way.
func (c *Controller) Active() bool {
	return c.state == Dragging || c.state == Resizing
}

// Draft returns the text being edited.
func (c *Controller) Draft() string { return c.draft }

// Reset drops selection, gesture and draft without touching the document.
func (c *Controller) Reset() {
	c.state = Idle
	c.target = ""
	c.session = Session{}
	c.draft = ""
}

func (c *Controller) floating(id string) (*doctree.Node, error) {
	n, err := c.doc.Node(id)
	if err != nil {
		return nil, err
	}
	if !n.Kind.IsFloating() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotFloating, id, n.Kind)
	}
	return n, nil
}

// geometry returns the node's box, asking the layout for unpositioned
// nodes.
func (c *Controller) geometry(n *doctree.Node) doctree.Rect {
	r, positioned := n.Geometry()
	if positioned || c.layout == nil {
		return r
	}
	if b, ok := c.layout.Bounds(n.ID); ok {
		if r.Width > 0 {
			b.Width = r.Width
		}
		if r.Height > 0 {
			b.Height = r.Height
		}
		return b
	}
	return r
}

// Select makes id the selected floating node.
func (c *Controller) Select(id string) error {
	if c.Active() {
		return ErrGestureInProgress
	}
	if _, err := c.floating(id); err != nil {
		return err
	}
	if c.state == Editing && c.target != id {
		if err := c.Blur(); err != nil {
			return err
		}
	}
	c.target = id
	if c.state != Editing {
		c.state = Selected
	}
	return nil
}

// Deselect returns to Idle. An open edit is committed first.
func (c *Controller) Deselect() error {
	if c.Active() {
		return ErrGestureInProgress
	}
	if c.state == Editing {
		if err := c.Blur(); err != nil {
			return err
		}
	}
	c.Reset()
	return nil
}

// Click handles a click. An empty target means the click landed outside
// every floating node.
func (c *Controller) Click(target string) error {
	if target == "" {
		return c.Deselect()
	}
	return c.Select(target)
}

// Handles returns the hit points of the eight resize handles of the
// selected node.
func (c *Controller) Handles() map[Handle]Point {
	if c.target == "" || c.state == Editing {
		return nil
	}
	n, err := c.doc.Node(c.target)
	if err != nil {
		return nil
	}
	return handlePoints(c.geometry(n))
}

func handlePoints(r doctree.Rect) map[Handle]Point {
	midX, midY := r.X+r.Width/2, r.Y+r.Height/2
	right, bottom := r.X+r.Width, r.Y+r.Height
	return map[Handle]Point{
		HandleN:  {midX, r.Y},
		HandleNE: {right, r.Y},
		HandleE:  {right, midY},
		HandleSE: {right, bottom},
		HandleS:  {midX, bottom},
		HandleSW: {r.X, bottom},
		HandleW:  {r.X, midY},
		HandleNW: {r.X, r.Y},
	}
}

// hitHandle finds the handle under p. Corners win over edge midpoints.
func hitHandle(r doctree.Rect, p Point) Handle {
	points := handlePoints(r)
	for _, h := range []Handle{HandleNW, HandleNE, HandleSE, HandleSW, HandleN, HandleE, HandleS, HandleW} {
		hp := points[h]
		if abs(p.X-hp.X) <= HandleTolerance && abs(p.Y-hp.Y) <= HandleTolerance {
			return h
		}
	}
	return HandleNone
}

// PointerDown starts a drag on target, or a resize when the pointer is on
// a handle of the selected node. A target other than the selection is
// selected first. An empty target means the press landed outside every
// floating node: only the selected node's handles can catch it, otherwise
// the selection is dropped. Pointer-downs while editing are ignored.
func (c *Controller) PointerDown(p Point, target string) error {
	if c.state == Editing || c.Active() {
		return nil
	}
	if target == "" {
		if c.state == Selected {
			if n, err := c.floating(c.target); err == nil {
				if h := hitHandle(c.geometry(n), p); h != HandleNone {
					return c.StartResize(p, h)
				}
			}
		}
		c.Reset()
		return nil
	}
	n, err := c.floating(target)
	if err != nil {
		return err
	}
	geom := c.geometry(n)

	if target == c.target && c.state == Selected {
		if h := hitHandle(geom, p); h != HandleNone {
			return c.StartResize(p, h)
		}
	}
	c.target = target
	c.session = Session{Mode: ModeDragging, Target: target, OriginPointer: p, OriginGeometry: geom}
	c.state = Dragging
	return nil
}

// StartResize begins a resize of the selected node from handle h. A node
// without a known size starts from MinSize on that axis.
func (c *Controller) StartResize(p Point, h Handle) error {
	if c.state != Selected {
		if c.Active() {
			return ErrGestureInProgress
		}
		return fmt.Errorf("%w: nothing selected", ErrNotFloating)
	}
	n, err := c.floating(c.target)
	if err != nil {
		c.Reset()
		return err
	}
	geom := c.geometry(n)
	if geom.Width <= 0 {
		geom.Width = MinSize
	}
	if geom.Height <= 0 {
		geom.Height = MinSize
	}
	c.session = Session{Mode: ModeResizing, Target: c.target, OriginPointer: p, OriginGeometry: geom, Handle: h}
	c.state = Resizing
	return nil
}

// PointerMove updates the active gesture and writes the new geometry
// through to the document.
func (c *Controller) PointerMove(p Point) error {
	if !c.Active() {
		return nil
	}
	s := c.session
	dx, dy := p.X-s.OriginPointer.X, p.Y-s.OriginPointer.Y

	var next doctree.Rect
	if s.Mode == ModeDragging {
		next = drag(s.OriginGeometry, dx, dy)
	} else {
		next = resize(s.OriginGeometry, s.Handle, dx, dy)
	}
	attrs := doctree.Attrs{
		doctree.AttrX:        next.X,
		doctree.AttrY:        next.Y,
		doctree.AttrPosition: doctree.PositionAbsolute,
	}
	// A drag keeps an unsized node unsized.
	if next.Width > 0 {
		attrs[doctree.AttrWidth] = next.Width
	}
	if next.Height > 0 {
		attrs[doctree.AttrHeight] = next.Height
	}

	err := c.doc.SetAttributes(s.Target, attrs)
	if err != nil {
		if errors.Is(err, doctree.ErrNotFound) {
			c.Reset()
		}
		return err
	}
	return nil
}

// PointerUp ends the gesture, leaving the node selected.
func (c *Controller) PointerUp(Point) error {
	if !c.Active() {
		return nil
	}
	c.session = Session{}
	c.state = Selected
	if _, err := c.doc.Node(c.target); err != nil {
		c.Reset()
		return err
	}
	return nil
}

// DoubleClick enters text editing on a text box. Images are only selected.
func (c *Controller) DoubleClick(target string) error {
	if c.Active() {
		return ErrGestureInProgress
	}
	n, err := c.floating(target)
	if err != nil {
		return err
	}
	if c.state == Editing && c.target == target {
		return nil
	}
	if err := c.Select(target); err != nil {
		return err
	}
	if n.Kind != doctree.KindTextBox {
		return nil
	}
	c.draft = n.Attrs.String(doctree.AttrTextContent)
	c.state = Editing
	return nil
}

// Input replaces the edit draft.
func (c *Controller) Input(text string) {
	if c.state == Editing {
		c.draft = text
	}
}

// Blur commits the draft to the text box and returns to Selected.
func (c *Controller) Blur() error {
	if c.state != Editing {
		return nil
	}
	err := c.doc.SetAttributes(c.target, doctree.Attrs{doctree.AttrTextContent: c.draft})
	c.draft = ""
	if err != nil {
		c.Reset()
		return err
	}
	c.state = Selected
	return nil
}

func drag(r doctree.Rect, dx, dy float64) doctree.Rect {
	r.X += dx
	r.Y += dy
	return r
}

// resize applies pointer deltas to the edges a handle controls. Both
// axes are floored at MinSize, also the one the handle does not move.
// Moving a west or north edge shifts the origin so the opposite edge stays
// put.
func resize(r doctree.Rect, h Handle, dx, dy float64) doctree.Rect {
	north, east, south, west := h.edges()
	width, height := r.Width, r.Height
	switch {
	case east:
		width += dx
	case west:
		width -= dx
	}
	switch {
	case south:
		height += dy
	case north:
		height -= dy
	}
	out := doctree.Rect{X: r.X, Y: r.Y, Width: max(width, MinSize), Height: max(height, MinSize)}
	if west {
		out.X = r.X + r.Width - out.Width
	}
	if north {
		out.Y = r.Y + r.Height - out.Height
	}
	return out
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
