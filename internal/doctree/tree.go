package doctree

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("node not found")
	ErrInvalidChild = errors.New("node kind not allowed here")
	ErrOutOfRange   = errors.New("child index out of range")
	ErrRootRemoval  = errors.New("cannot remove the document root")
	ErrWrongKind    = errors.New("operation not valid for node kind")
)

// Tree is the live document. It keeps an id index and a parent index so
// lookups by id are constant time. Tree is not safe for concurrent use;
// the editor serializes access.
type Tree struct {
	root   *Node
	index  map[string]*Node
	parent map[string]*Node
}

// New builds a tree around root. A nil root yields a document with one
// empty paragraph.
func New(root *Node) *Tree {
	t := &Tree{}
	t.SetContent(root)
	return t
}

// Root returns the live root node. Callers must not mutate it directly.
func (t *Tree) Root() *Node { return t.root }

// Snapshot returns a deep copy of the document.
func (t *Tree) Snapshot() *Node { return t.root.Clone() }

// Len returns the number of nodes, root included.
func (t *Tree) Len() int { return len(t.index) }

// Node looks up a node by id.
func (t *Tree) Node(id string) (*Node, error) {
	n, ok := t.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n, nil
}

// Parent returns the parent of id. The root has a nil parent.
func (t *Tree) Parent(id string) (*Node, error) {
	if _, err := t.Node(id); err != nil {
		return nil, err
	}
	return t.parent[id], nil
}

// IndexOf returns the parent of id and its position among the parent's
// children.
func (t *Tree) IndexOf(id string) (*Node, int, error) {
	p, err := t.Parent(id)
	if err != nil {
		return nil, -1, err
	}
	if p == nil {
		return nil, -1, nil
	}
	for i, c := range p.Children {
		if c.ID == id {
			return p, i, nil
		}
	}
	return nil, -1, fmt.Errorf("%w: %s detached from parent", ErrNotFound, id)
}

// SetAttributes merges partial into the node's attributes. A nil value
// deletes the key.
func (t *Tree) SetAttributes(id string, partial Attrs) error {
	n, err := t.Node(id)
	if err != nil {
		return err
	}
	if n.Attrs == nil {
		n.Attrs = Attrs{}
	}
	for k, v := range partial {
		if v == nil {
			delete(n.Attrs, k)
			continue
		}
		n.Attrs[k] = v
	}
	return nil
}

// SetText replaces the text of a text run.
func (t *Tree) SetText(id, text string) error {
	n, err := t.Node(id)
	if err != nil {
		return err
	}
	if n.Kind != KindText {
		return fmt.Errorf("%w: set text on %s", ErrWrongKind, n.Kind)
	}
	n.Text = text
	return nil
}

// Insert places n at position index among the children of parentID.
func (t *Tree) Insert(parentID string, index int, n *Node) error {
	p, err := t.Node(parentID)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrInvalidChild)
	}
	if !CanContain(p.Kind, n.Kind) {
		return fmt.Errorf("%w: %s in %s", ErrInvalidChild, n.Kind, p.Kind)
	}
	if index < 0 || index > len(p.Children) {
		return fmt.Errorf("%w: %d (len %d)", ErrOutOfRange, index, len(p.Children))
	}
	repair(n)
	p.Children = append(p.Children, nil)
	copy(p.Children[index+1:], p.Children[index:])
	p.Children[index] = n
	t.indexSubtree(n, p)
	return nil
}

// Remove detaches id and its subtree. A bullet list left without items is
// removed too, and a document left without blocks receives an empty
// placeholder paragraph.
func (t *Tree) Remove(id string) error {
	p, i, err := t.IndexOf(id)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrRootRemoval
	}
	n := p.Children[i]
	p.Children = append(p.Children[:i], p.Children[i+1:]...)
	t.unindexSubtree(n)

	if p.Kind == KindBulletList && len(p.Children) == 0 {
		return t.Remove(p.ID)
	}
	t.ensureNonEmpty()
	return nil
}

// ReplaceChildren swaps the children of id for children. Nodes keep their
// ids unless an id is missing or already used elsewhere in the tree.
func (t *Tree) ReplaceChildren(id string, children []*Node) error {
	n, err := t.Node(id)
	if err != nil {
		return err
	}
	for _, c := range children {
		if c == nil || !CanContain(n.Kind, c.Kind) {
			kind := "nil"
			if c != nil {
				kind = c.Kind.String()
			}
			return fmt.Errorf("%w: %s in %s", ErrInvalidChild, kind, n.Kind)
		}
	}
	for _, c := range n.Children {
		t.unindexSubtree(c)
	}
	n.Children = children
	for _, c := range children {
		repair(c)
		t.indexSubtree(c, n)
	}
	if n == t.root {
		t.ensureNonEmpty()
	}
	return nil
}

// Retag changes the kind of a textblock in place, keeping its id and runs.
// attrs replaces the node's attributes.
func (t *Tree) Retag(id string, kind Kind, attrs Attrs) error {
	n, err := t.Node(id)
	if err != nil {
		return err
	}
	if !n.Kind.IsTextblock() || !kind.IsTextblock() {
		return fmt.Errorf("%w: retag %s to %s", ErrWrongKind, n.Kind, kind)
	}
	if p := t.parent[id]; p != nil && !CanContain(p.Kind, kind) {
		return fmt.Errorf("%w: %s in %s", ErrInvalidChild, kind, p.Kind)
	}
	n.Kind = kind
	n.Attrs = attrs
	return nil
}

// SetContent replaces the whole document in one step. A non-doc root is
// wrapped into a document.
func (t *Tree) SetContent(root *Node) {
	if root == nil {
		root = NewDoc()
	}
	if root.Kind != KindDoc {
		root = NewDoc(root)
	}
	repair(root)
	t.root = root
	t.index = make(map[string]*Node)
	t.parent = make(map[string]*Node)
	t.indexSubtree(root, nil)
	t.ensureNonEmpty()
}

// Walk visits nodes in document order. Returning false from fn skips the
// node's children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var walk func(*Node, int)
	walk = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(t.root, 0)
}

// Textblocks returns paragraphs, headings and list items in document order.
func (t *Tree) Textblocks() []*Node {
	var out []*Node
	t.Walk(func(n *Node, _ int) bool {
		if n.Kind.IsTextblock() {
			out = append(out, n)
			return false
		}
		return !n.Kind.IsAtomic()
	})
	return out
}

// Floating returns every image and text box in document order.
func (t *Tree) Floating() []*Node {
	var out []*Node
	t.Walk(func(n *Node, _ int) bool {
		if n.Kind.IsFloating() {
			out = append(out, n)
		}
		return !n.Kind.IsAtomic()
	})
	return out
}

func (t *Tree) ensureNonEmpty() {
	if len(t.root.Children) > 0 {
		return
	}
	p := NewParagraph()
	t.root.Children = append(t.root.Children, p)
	t.indexSubtree(p, t.root)
}

func (t *Tree) indexSubtree(n, parent *Node) {
	if n.ID == "" {
		n.ID = NewID()
	} else if existing, ok := t.index[n.ID]; ok && existing != n {
		n.ID = NewID()
	}
	t.index[n.ID] = n
	if parent != nil {
		t.parent[n.ID] = parent
	}
	for _, c := range n.Children {
		t.indexSubtree(c, n)
	}
}

func (t *Tree) unindexSubtree(n *Node) {
	delete(t.index, n.ID)
	delete(t.parent, n.ID)
	for _, c := range n.Children {
		t.unindexSubtree(c)
	}
}

// repair coerces a subtree into the content rules. Misplaced runs are
// wrapped, nested blocks inside textblocks are flattened into runs.
func repair(n *Node) {
	if n.Kind.IsAtomic() {
		n.Children = nil
		return
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		if CanContain(n.Kind, c.Kind) {
			repair(c)
			out = append(out, c)
			continue
		}
		switch {
		case n.Kind == KindDoc:
			out = append(out, wrapForDoc(c)...)
		case n.Kind.IsTextblock():
			out = append(out, collectRuns(c)...)
		case n.Kind == KindBulletList:
			out = append(out, NewListItem(collectRuns(c)...))
		}
	}
	n.Children = out
}

func wrapForDoc(c *Node) []*Node {
	switch c.Kind {
	case KindDoc:
		repair(c)
		return c.Children
	case KindText:
		return []*Node{NewParagraph(c)}
	case KindListItem:
		repair(c)
		return []*Node{NewBulletList(c)}
	case KindParagraph, KindHeading, KindBulletList, KindImage, KindTextBox:
		repair(c)
		return []*Node{c}
	}
	return nil
}

func collectRuns(n *Node) []*Node {
	switch n.Kind {
	case KindText:
		return []*Node{n}
	case KindTextBox:
		if s := n.Attrs.String(AttrTextContent); s != "" {
			return []*Node{NewText(s)}
		}
		return nil
	case KindImage:
		if alt := n.Attrs.String(AttrAlt); alt != "" {
			return []*Node{NewText(alt)}
		}
		return nil
	case KindDoc, KindParagraph, KindHeading, KindBulletList, KindListItem:
		var out []*Node
		for _, c := range n.Children {
			out = append(out, collectRuns(c)...)
		}
		return out
	}
	return nil
}
