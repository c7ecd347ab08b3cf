package doctree

import (
	"encoding/json"
	"fmt"
)

// The wire form mirrors the ProseMirror/Tiptap document JSON so browser
// editors can consume it without translation. Text-run formatting travels
// as marks, node ids travel as attrs.id.

type wireNode struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []wireMark     `json:"marks,omitempty"`
}

type wireMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

const attrID = "id"

// MarshalJSON encodes n in the wire form.
func (n *Node) MarshalJSON() ([]byte, error) {
	w := wireNode{Type: n.Kind.String(), Content: n.Children}
	attrs := map[string]any{}
	if n.ID != "" {
		attrs[attrID] = n.ID
	}
	if n.Kind == KindText {
		w.Text = n.Text
		st := n.Style()
		if st.Bold {
			w.Marks = append(w.Marks, wireMark{Type: "bold"})
		}
		if st.Italic {
			w.Marks = append(w.Marks, wireMark{Type: "italic"})
		}
		if st.Underline {
			w.Marks = append(w.Marks, wireMark{Type: "underline"})
		}
		if st.Color != "" {
			w.Marks = append(w.Marks, wireMark{Type: "textStyle", Attrs: map[string]any{AttrColor: st.Color}})
		}
	} else {
		for k, v := range n.Attrs {
			attrs[k] = v
		}
	}
	if len(attrs) > 0 {
		w.Attrs = attrs
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, err := ParseKind(w.Type)
	if err != nil {
		return err
	}
	*n = Node{Kind: kind, Children: w.Content}
	if id, ok := w.Attrs[attrID].(string); ok {
		n.ID = id
	}
	delete(w.Attrs, attrID)

	if kind != KindText {
		if len(w.Attrs) > 0 {
			n.Attrs = Attrs(w.Attrs)
		}
		return nil
	}

	n.Text = w.Text
	var st Style
	for _, m := range w.Marks {
		switch m.Type {
		case "bold", "strong":
			st.Bold = true
		case "italic", "em":
			st.Italic = true
		case "underline":
			st.Underline = true
		case "textStyle":
			if c, ok := m.Attrs[AttrColor].(string); ok {
				st.Color = c
			}
		default:
			return fmt.Errorf("unknown mark %q", m.Type)
		}
	}
	if a := st.Attrs(); len(a) > 0 {
		n.Attrs = a
	}
	return nil
}
