package overlay

import (
	"errors"
	"testing"

	"github.com/dgallion1/resumedraft/internal/doctree"
)

type fixture struct {
	tree  *doctree.Tree
	box   *doctree.Node
	image *doctree.Node
	para  *doctree.Node
	ctrl  *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	box := doctree.NewTextBox(doctree.Rect{X: 100, Y: 100, Width: 200, Height: 100}, "Hello")
	image := doctree.NewImage("logo.png", "logo", 64, 64)
	para := doctree.NewParagraph(doctree.NewText("body"))
	tree := doctree.New(doctree.NewDoc(para, box, image))
	return &fixture{tree: tree, box: box, image: image, para: para, ctrl: New(tree, nil)}
}

func geom(t *testing.T, n *doctree.Node) doctree.Rect {
	t.Helper()
	r, positioned := n.Geometry()
	if !positioned {
		t.Fatalf("node %s is not positioned", n.ID)
	}
	return r
}

func TestClickSelectsAndDeselects(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.Click(f.box.ID); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if f.ctrl.State() != Selected || f.ctrl.Selected() != f.box.ID {
		t.Fatalf("state = %s selected = %q", f.ctrl.State(), f.ctrl.Selected())
	}
	if got := len(f.ctrl.Handles()); got != 8 {
		t.Errorf("expected 8 handles, got %d", got)
	}
	if err := f.ctrl.Click(""); err != nil {
		t.Fatalf("Click outside: %v", err)
	}
	if f.ctrl.State() != Idle || f.ctrl.Selected() != "" {
		t.Errorf("expected idle after outside click, got %s", f.ctrl.State())
	}
	if err := f.ctrl.Click(f.para.ID); !errors.Is(err, ErrNotFloating) {
		t.Errorf("expected ErrNotFloating, got %v", err)
	}
}

func TestDragMovesExactly(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float64
	}{
		{"right and down", 30, 40},
		{"up and left past origin", -250, -180},
		{"no movement", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			start := Point{X: 150, Y: 150}
			if err := f.ctrl.PointerDown(start, f.box.ID); err != nil {
				t.Fatalf("PointerDown: %v", err)
			}
			if f.ctrl.State() != Dragging {
				t.Fatalf("state = %s, want dragging", f.ctrl.State())
			}
			if err := f.ctrl.PointerMove(Point{X: start.X + tt.dx/2, Y: start.Y + tt.dy/2}); err != nil {
				t.Fatalf("PointerMove: %v", err)
			}
			if err := f.ctrl.PointerMove(Point{X: start.X + tt.dx, Y: start.Y + tt.dy}); err != nil {
				t.Fatalf("PointerMove: %v", err)
			}
			if err := f.ctrl.PointerUp(Point{}); err != nil {
				t.Fatalf("PointerUp: %v", err)
			}
			want := doctree.Rect{X: 100 + tt.dx, Y: 100 + tt.dy, Width: 200, Height: 100}
			if got := geom(t, f.box); got != want {
				t.Errorf("geometry = %+v, want %+v", got, want)
			}
			if f.ctrl.State() != Selected {
				t.Errorf("state after pointer-up = %s", f.ctrl.State())
			}
		})
	}
}

func TestResizeRightHandle(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.Select(f.box.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	// Right handle sits at the middle of the east edge.
	start := Point{X: 300, Y: 150}
	if err := f.ctrl.PointerDown(start, f.box.ID); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	s, ok := f.ctrl.Session()
	if !ok || s.Mode != ModeResizing || s.Handle != HandleE {
		t.Fatalf("session = %+v ok=%v", s, ok)
	}
	if err := f.ctrl.PointerMove(Point{X: 330, Y: 150}); err != nil {
		t.Fatalf("PointerMove: %v", err)
	}
	if err := f.ctrl.PointerUp(Point{X: 330, Y: 150}); err != nil {
		t.Fatalf("PointerUp: %v", err)
	}
	want := doctree.Rect{X: 100, Y: 100, Width: 230, Height: 100}
	if got := geom(t, f.box); got != want {
		t.Errorf("geometry = %+v, want %+v", got, want)
	}
}

func TestResizeTopLeftKeepsOppositeCorner(t *testing.T) {
	tests := []struct {
		dx, dy float64
	}{
		{10, 20},
		{-40, -15},
		{149, 49},
	}
	for _, tt := range tests {
		f := newFixture(t)
		if err := f.ctrl.Select(f.box.ID); err != nil {
			t.Fatalf("Select: %v", err)
		}
		if err := f.ctrl.StartResize(Point{X: 100, Y: 100}, HandleNW); err != nil {
			t.Fatalf("StartResize: %v", err)
		}
		if err := f.ctrl.PointerMove(Point{X: 100 + tt.dx, Y: 100 + tt.dy}); err != nil {
			t.Fatalf("PointerMove: %v", err)
		}
		want := doctree.Rect{X: 100 + tt.dx, Y: 100 + tt.dy, Width: 200 - tt.dx, Height: 100 - tt.dy}
		if got := geom(t, f.box); got != want {
			t.Errorf("dx=%v dy=%v: geometry = %+v, want %+v", tt.dx, tt.dy, got, want)
		}
	}
}

func TestResizeNeverBelowMinimum(t *testing.T) {
	moves := []Point{{400, 400}, {1000, -300}, {-1000, 1000}, {299, 199}, {350, 260}}
	for h := HandleN; h <= HandleNW; h++ {
		f := newFixture(t)
		if err := f.ctrl.Select(f.box.ID); err != nil {
			t.Fatalf("Select: %v", err)
		}
		if err := f.ctrl.StartResize(Point{X: 200, Y: 150}, h); err != nil {
			t.Fatalf("StartResize(%s): %v", h, err)
		}
		for _, p := range moves {
			if err := f.ctrl.PointerMove(p); err != nil {
				t.Fatalf("PointerMove: %v", err)
			}
			r := geom(t, f.box)
			if r.Width < MinSize || r.Height < MinSize {
				t.Fatalf("handle %s move %+v: size %vx%v below minimum", h, p, r.Width, r.Height)
			}
			// The edge opposite a west/north handle never moves.
			north, _, _, west := h.edges()
			if west && r.X+r.Width != 300 {
				t.Errorf("handle %s: right edge moved to %v", h, r.X+r.Width)
			}
			if north && r.Y+r.Height != 200 {
				t.Errorf("handle %s: bottom edge moved to %v", h, r.Y+r.Height)
			}
		}
	}
}

func TestPointerDownOnOtherNodeSelectsIt(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.Select(f.box.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := f.ctrl.PointerDown(Point{X: 5, Y: 5}, f.image.ID); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	if f.ctrl.Selected() != f.image.ID || f.ctrl.State() != Dragging {
		t.Fatalf("selected %q state %s", f.ctrl.Selected(), f.ctrl.State())
	}
	if err := f.ctrl.PointerMove(Point{X: 15, Y: 25}); err != nil {
		t.Fatalf("PointerMove: %v", err)
	}
	// The flow image had no position: the first move detaches it.
	r := geom(t, f.image)
	if r != (doctree.Rect{X: 10, Y: 20, Width: 64, Height: 64}) {
		t.Errorf("image geometry = %+v", r)
	}
	if f.image.Attrs.String(doctree.AttrPosition) != doctree.PositionAbsolute {
		t.Errorf("image not detached")
	}
}

type fixedLayout map[string]doctree.Rect

func (l fixedLayout) Bounds(id string) (doctree.Rect, bool) {
	r, ok := l[id]
	return r, ok
}

func TestLayoutSuppliesFlowGeometry(t *testing.T) {
	f := newFixture(t)
	f.ctrl = New(f.tree, fixedLayout{f.image.ID: {X: 40, Y: 300, Width: 10, Height: 10}})
	if err := f.ctrl.PointerDown(Point{X: 50, Y: 310}, f.image.ID); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	if err := f.ctrl.PointerMove(Point{X: 60, Y: 330}); err != nil {
		t.Fatalf("PointerMove: %v", err)
	}
	want := doctree.Rect{X: 50, Y: 320, Width: 64, Height: 64}
	if got := geom(t, f.image); got != want {
		t.Errorf("geometry = %+v, want %+v", got, want)
	}
}

func TestEditingCommitsOnBlur(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.DoubleClick(f.box.ID); err != nil {
		t.Fatalf("DoubleClick: %v", err)
	}
	if f.ctrl.State() != Editing || f.ctrl.Draft() != "Hello" {
		t.Fatalf("state %s draft %q", f.ctrl.State(), f.ctrl.Draft())
	}
	// Pointer input is ignored while editing.
	if err := f.ctrl.PointerDown(Point{X: 150, Y: 150}, f.box.ID); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	if f.ctrl.State() != Editing {
		t.Fatalf("pointer-down left editing: %s", f.ctrl.State())
	}
	f.ctrl.Input("Hello, world")
	if got := f.box.Attrs.String(doctree.AttrTextContent); got != "Hello" {
		t.Errorf("draft leaked before blur: %q", got)
	}
	if err := f.ctrl.Blur(); err != nil {
		t.Fatalf("Blur: %v", err)
	}
	if got := f.box.Attrs.String(doctree.AttrTextContent); got != "Hello, world" {
		t.Errorf("textContent = %q", got)
	}
	if f.ctrl.State() != Selected {
		t.Errorf("state after blur = %s", f.ctrl.State())
	}
}

func TestDoubleClickImageOnlySelects(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.DoubleClick(f.image.ID); err != nil {
		t.Fatalf("DoubleClick: %v", err)
	}
	if f.ctrl.State() != Selected {
		t.Errorf("state = %s, want selected", f.ctrl.State())
	}
}

func TestDoubleClickDuringGesture(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.PointerDown(Point{X: 150, Y: 150}, f.box.ID); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	if err := f.ctrl.DoubleClick(f.box.ID); !errors.Is(err, ErrGestureInProgress) {
		t.Errorf("expected ErrGestureInProgress, got %v", err)
	}
	if f.ctrl.State() != Dragging {
		t.Errorf("gesture should continue, state = %s", f.ctrl.State())
	}
}

func TestTargetRemovedMidGesture(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.PointerDown(Point{X: 150, Y: 150}, f.box.ID); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	if err := f.tree.Remove(f.box.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := f.ctrl.PointerMove(Point{X: 160, Y: 160}); !errors.Is(err, doctree.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.ctrl.State() != Idle || f.ctrl.Active() {
		t.Errorf("gesture should have ended, state = %s", f.ctrl.State())
	}
}

func TestParseHandle(t *testing.T) {
	tests := map[string]Handle{"right": HandleE, "top-left": HandleNW, "s": HandleS, "bottom-left": HandleSW}
	for in, want := range tests {
		if got, ok := ParseHandle(in); !ok || got != want {
			t.Errorf("ParseHandle(%q) = %s, %v", in, got, ok)
		}
	}
	if _, ok := ParseHandle("middle"); ok {
		t.Error("expected unknown handle to fail")
	}
}

func TestPointerDownOutsideSelection(t *testing.T) {
	tests := []struct {
		name      string
		selectBox bool
		at        Point
		state     State
		handle    Handle
	}{
		{"far from the selected node", true, Point{X: 900, Y: 900}, Idle, HandleNone},
		{"on a handle of the selected node", true, Point{X: 303, Y: 148}, Resizing, HandleE},
		{"nothing selected", false, Point{X: 150, Y: 150}, Idle, HandleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.selectBox {
				if err := f.ctrl.Click(f.box.ID); err != nil {
					t.Fatalf("Click: %v", err)
				}
			}
			if err := f.ctrl.PointerDown(tt.at, ""); err != nil {
				t.Fatalf("PointerDown: %v", err)
			}
			if f.ctrl.State() != tt.state {
				t.Fatalf("state = %s, want %s", f.ctrl.State(), tt.state)
			}
			if s, ok := f.ctrl.Session(); ok && s.Handle != tt.handle {
				t.Errorf("handle = %s, want %s", s.Handle, tt.handle)
			}
			if tt.state == Idle {
				if f.ctrl.Selected() != "" {
					t.Errorf("selection kept: %q", f.ctrl.Selected())
				}
				if err := f.ctrl.PointerMove(Point{X: tt.at.X + 10, Y: tt.at.Y + 10}); err != nil {
					t.Fatalf("PointerMove: %v", err)
				}
				if got := geom(t, f.box); got != (doctree.Rect{X: 100, Y: 100, Width: 200, Height: 100}) {
					t.Errorf("box moved to %+v", got)
				}
			}
		})
	}
}

func TestResizeFloorsBothAxes(t *testing.T) {
	tests := []struct {
		name          string
		width, height float64
		handle        Handle
		dx, dy        float64
		want          doctree.Rect
	}{
		{"unsized image, east", 0, 0, HandleE, 80, 0, doctree.Rect{Width: 130, Height: 50}},
		{"unsized image, south", 0, 0, HandleS, 0, -20, doctree.Rect{Width: 50, Height: 50}},
		{"short image, east", 64, 30, HandleE, 10, 0, doctree.Rect{Width: 74, Height: 50}},
		{"short image, west", 64, 30, HandleW, 10, 0, doctree.Rect{X: 10, Width: 54, Height: 50}},
		{"short image, north keeps bottom edge", 64, 30, HandleN, 0, 0, doctree.Rect{Y: -20, Width: 64, Height: 50}},
		{"narrow image, south", 20, 80, HandleS, 0, 5, doctree.Rect{Width: 50, Height: 85}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := doctree.NewImage("a.png", "a", tt.width, tt.height)
			tree := doctree.New(doctree.NewDoc(img))
			ctrl := New(tree, nil)
			if err := ctrl.Select(img.ID); err != nil {
				t.Fatalf("Select: %v", err)
			}
			if err := ctrl.StartResize(Point{}, tt.handle); err != nil {
				t.Fatalf("StartResize: %v", err)
			}
			if err := ctrl.PointerMove(Point{X: tt.dx, Y: tt.dy}); err != nil {
				t.Fatalf("PointerMove: %v", err)
			}
			if err := ctrl.PointerUp(Point{X: tt.dx, Y: tt.dy}); err != nil {
				t.Fatalf("PointerUp: %v", err)
			}
			if got := geom(t, img); got != tt.want {
				t.Errorf("geometry = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDragUnsizedImageStaysUnsized(t *testing.T) {
	img := doctree.NewImage("a.png", "a", 0, 0)
	tree := doctree.New(doctree.NewDoc(img))
	ctrl := New(tree, nil)
	if err := ctrl.PointerDown(Point{X: 5, Y: 5}, img.ID); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	if err := ctrl.PointerMove(Point{X: 15, Y: 15}); err != nil {
		t.Fatalf("PointerMove: %v", err)
	}
	if r := geom(t, img); r.X != 10 || r.Y != 10 {
		t.Errorf("position = (%v, %v), want (10, 10)", r.X, r.Y)
	}
	for _, key := range []string{doctree.AttrWidth, doctree.AttrHeight} {
		if _, ok := img.Attrs[key]; ok {
			t.Errorf("drag stored %s = %v", key, img.Attrs[key])
		}
	}
}
