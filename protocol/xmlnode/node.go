// Package xmlnode is the message body tree exchanged by the frame codec.
//
// Parsing and serialization are delegated to github.com/beevik/etree; the Node
// value type keeps the rest of the client independent of that library.
package xmlnode

import (
	"errors"
	"strings"

	"github.com/beevik/etree"
)

var ErrNoRoot = errors.New("xmlnode: document has no root element")

// Node is one named element with optional text, optional CDATA and ordered children.
// Empty strings mean the content is absent.
type Node struct {
	Name     string
	Text     string
	CData    string
	Children []Node
}

func New(name string, children ...Node) Node {
	return Node{Name: name, Children: children}
}

func NewText(name, text string) Node {
	return Node{Name: name, Text: text}
}

// Child returns the first direct child named name.
func (n Node) Child(name string) (Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return Node{}, false
}

// AnyText prefers CDATA content over plain text.
func (n Node) AnyText() string {
	if n.CData != "" {
		return n.CData
	}
	return n.Text
}

func (n Node) Equal(o Node) bool {
	if n.Name != o.Name || n.Text != o.Text || n.CData != o.CData || len(n.Children) != len(o.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// EqualList compares two child lists element-wise.
func EqualList(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Parse reads one XML document and returns its root element.
func Parse(s string) (Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromString(s); err != nil {
		return Node{}, err
	}
	root := doc.Root()
	if root == nil {
		return Node{}, ErrNoRoot
	}
	return fromElement(root), nil
}

// Marshal serializes n compactly, without a prologue, using <tag/> for empty elements.
func (n Node) Marshal() (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(toElement(n))
	return doc.WriteToString()
}

func (n Node) String() string {
	s, err := n.Marshal()
	if err != nil {
		return "<" + n.Name + " !marshal-error>"
	}
	return s
}

func fromElement(el *etree.Element) Node {
	n := Node{Name: el.Tag}
	var text, cdata strings.Builder
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			n.Children = append(n.Children, fromElement(t))
		case *etree.CharData:
			if t.IsCData() {
				cdata.WriteString(t.Data)
			} else {
				text.WriteString(t.Data)
			}
		}
	}
	n.Text = text.String()
	n.CData = cdata.String()
	// indentation between child elements is not content
	if len(n.Children) > 0 && strings.TrimSpace(n.Text) == "" {
		n.Text = ""
	}
	return n
}

func toElement(n Node) *etree.Element {
	el := etree.NewElement(n.Name)
	if n.Text != "" {
		el.SetText(n.Text)
	}
	if n.CData != "" {
		el.AddChild(etree.NewCData(n.CData))
	}
	for _, c := range n.Children {
		el.AddChild(toElement(c))
	}
	return el
}
