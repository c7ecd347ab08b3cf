// Package editor owns one live resume document together with its
// selection, floating-node overlay and formatting commands. Every call is
// serialized, so HTTP handlers and generation workers can share an Editor.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgallion1/resumedraft/internal/doctree"
	"github.com/dgallion1/resumedraft/internal/format"
	"github.com/dgallion1/resumedraft/internal/llm"
	"github.com/dgallion1/resumedraft/internal/overlay"
	"github.com/dgallion1/resumedraft/internal/parser"
)

// Editor is safe for concurrent use.
type Editor struct {
	mu      sync.Mutex
	tree    *doctree.Tree
	sel     doctree.Selection
	overlay *overlay.Controller
	cmds    *format.Commands
	layout  layoutCache
	version uint64
	log     *slog.Logger
}

// New creates an editor holding an empty document.
func New(log *slog.Logger) *Editor {
	if log == nil {
		log = slog.Default()
	}
	e := &Editor{
		tree:   doctree.New(nil),
		layout: layoutCache{},
		log:    log,
	}
	e.overlay = overlay.New(e.tree, e.layout)
	e.cmds = format.New(e.tree, state{e})
	return e
}

// state gives the command layer a lock-free view of the editor. Commands
// only run while e.mu is held.
type state struct{ e *Editor }

func (s state) Selection() doctree.Selection { return s.e.sel }
func (s state) GestureActive() bool          { return s.e.overlay.Active() }

// layoutCache holds boxes the host reported for nodes still in the flow.
type layoutCache map[string]doctree.Rect

func (l layoutCache) Bounds(id string) (doctree.Rect, bool) {
	r, ok := l[id]
	return r, ok
}

// Document returns a deep copy of the current tree.
func (e *Editor) Document() *doctree.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree.Snapshot()
}

// Version increases on every change to the document or the selection.
func (e *Editor) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// SetContent replaces the document. Selection and any gesture are dropped.
func (e *Editor) SetContent(root *doctree.Node) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replaceLocked(root)
}

func (e *Editor) replaceLocked(root *doctree.Node) {
	e.tree.SetContent(root)
	e.overlay.Reset()
	e.sel = doctree.Selection{}
	clear(e.layout)
	e.version++
}

// LoadMarkdown normalizes md into the document and reports the blocks that
// had to be kept as plain text.
func (e *Editor) LoadMarkdown(md string) []parser.Degradation {
	root, degraded := parser.NormalizeWithReport(md)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replaceLocked(root)
	return degraded
}

// ApplyGeneration installs the outcome of a generation job. A failed job
// leaves a single paragraph describing the error in place of the document.
func (e *Editor) ApplyGeneration(jobID string, res llm.Result) error {
	log := e.log.With("job_id", jobID)
	var root *doctree.Node
	if res.Success {
		var degraded []parser.Degradation
		root, degraded = parser.NormalizeWithReport(res.Text)
		for _, d := range degraded {
			log.Warn("generated block kept as text", "line", d.Line, "block", d.Block, "reason", d.Reason)
		}
	} else {
		root = doctree.NewDoc(doctree.NewParagraph(doctree.NewText(FailureMessage(res.Error))))
		log.Error("generation failed", "error", res.Error)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.replaceLocked(root)
	log.Info("document replaced", "version", e.version, "success", res.Success)
	return nil
}

// FailureMessage is the text shown in place of a document that could not
// be generated.
func FailureMessage(msg string) string {
	if msg == "" {
		msg = "unknown"
	}
	return "Error: " + msg
}

// SelectText sets a text selection. An open text box edit is committed.
func (e *Editor) SelectText(from, to doctree.Position) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sel := doctree.TextSelection(from, to)
	if _, err := e.tree.ResolveRange(sel); err != nil {
		return err
	}
	if err := e.overlay.Deselect(); err != nil {
		return err
	}
	e.sel = sel
	e.version++
	return nil
}

// SelectNode selects a floating node.
func (e *Editor) SelectNode(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.overlay.Select(id); err != nil {
		return err
	}
	e.syncSelectionLocked()
	e.version++
	return nil
}

// ClearSelection drops any selection, committing an open edit.
func (e *Editor) ClearSelection() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.overlay.Deselect(); err != nil {
		return err
	}
	e.sel = doctree.Selection{}
	e.version++
	return nil
}

// Exec runs a formatting command against the current selection.
func (e *Editor) Exec(cmd format.Command, args format.Args) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	changed, err := e.cmds.Exec(cmd, args)
	if err != nil {
		return false, err
	}
	if changed {
		e.version++
	}
	return changed, nil
}

// IsActive reports whether mark m applies at the current selection.
func (e *Editor) IsActive(m format.Mark) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cmds.IsActive(m)
}

// InsertTextBox adds a text box and selects it.
func (e *Editor) InsertTextBox(r doctree.Rect, content string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.cmds.InsertTextBox(r)
	if !ok {
		return "", overlay.ErrGestureInProgress
	}
	if content != "" {
		if err := e.tree.SetAttributes(n.ID, doctree.Attrs{doctree.AttrTextContent: content}); err != nil {
			return "", err
		}
	}
	return n.ID, e.selectInsertedLocked(n.ID)
}

// InsertImage adds a floating image and selects it.
func (e *Editor) InsertImage(src, alt string, width, height float64) (string, error) {
	if src == "" {
		return "", errors.New("image src is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.cmds.InsertImage(src, alt, width, height)
	if !ok {
		return "", overlay.ErrGestureInProgress
	}
	return n.ID, e.selectInsertedLocked(n.ID)
}

func (e *Editor) selectInsertedLocked(id string) error {
	e.version++
	if err := e.overlay.Select(id); err != nil {
		return err
	}
	e.syncSelectionLocked()
	return nil
}

// UpdateNode merges attrs into a node. A nil value deletes the key.
func (e *Editor) UpdateNode(id string, attrs doctree.Attrs) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.overlay.Active() {
		return overlay.ErrGestureInProgress
	}
	if err := e.tree.SetAttributes(id, attrs); err != nil {
		return err
	}
	e.version++
	return nil
}

// RemoveNode deletes a node and any selection that pointed into it.
func (e *Editor) RemoveNode(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.overlay.Active() {
		return overlay.ErrGestureInProgress
	}
	if err := e.tree.Remove(id); err != nil {
		return err
	}
	delete(e.layout, id)
	if sel := e.overlay.Selected(); sel != "" {
		if _, err := e.tree.Node(sel); err != nil {
			e.overlay.Reset()
		}
	}
	if e.sel.IsText() {
		if _, err := e.tree.ResolveRange(e.sel); err != nil {
			e.sel = doctree.Selection{}
		}
	}
	e.syncSelectionLocked()
	e.version++
	return nil
}

// syncSelectionLocked mirrors the overlay's node selection into e.sel.
func (e *Editor) syncSelectionLocked() {
	if id := e.overlay.Selected(); id != "" {
		e.sel = doctree.NodeSelection(id)
		return
	}
	if e.sel.IsNode() {
		e.sel = doctree.Selection{}
	}
}

// ErrInvalidEvent is returned for pointer events the editor cannot route.
var ErrInvalidEvent = errors.New("invalid pointer event")

// errNoTarget is returned for pointer events that need a target and have
// none.
var errNoTarget = fmt.Errorf("%w: event needs a target", ErrInvalidEvent)

// Pointer feeds one pointer or keyboard event to the overlay.
func (e *Editor) Pointer(ev PointerEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ev.Bounds != nil && ev.Target != "" {
		e.layout[ev.Target] = *ev.Bounds
	}
	p := overlay.Point{X: ev.X, Y: ev.Y}

	var err error
	switch ev.Type {
	case EventDown:
		if h, ok := overlay.ParseHandle(ev.Handle); ok && h != overlay.HandleNone {
			if ev.Target != "" && ev.Target != e.overlay.Selected() {
				if err = e.overlay.Select(ev.Target); err != nil {
					break
				}
			}
			err = e.overlay.StartResize(p, h)
			break
		}
		err = e.overlay.PointerDown(p, ev.Target)
	case EventMove:
		err = e.overlay.PointerMove(p)
	case EventUp:
		err = e.overlay.PointerUp(p)
	case EventClick:
		err = e.overlay.Click(ev.Target)
		if errors.Is(err, overlay.ErrNotFloating) {
			// Clicking into flow text leaves node selection.
			err = e.overlay.Deselect()
		}
	case EventDoubleClick:
		if ev.Target == "" {
			return errNoTarget
		}
		err = e.overlay.DoubleClick(ev.Target)
	case EventInput:
		e.overlay.Input(ev.Text)
	case EventBlur:
		err = e.overlay.Blur()
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ev.Type)
	}
	e.syncSelectionLocked()
	e.version++
	return err
}
