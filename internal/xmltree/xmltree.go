// Package xmltree keeps an XML document as an ordered node tree so it can be
// edited and written back without losing structure the caller never looked at.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

type Kind int

const (
	DocumentNode Kind = iota
	ElementNode
	TextNode
	CommentNode
	ProcInstNode
	DirectiveNode
)

type Attr struct {
	Name  string
	Value string
}

// Node is one entry of the tree. Name is set for elements (prefix included,
// e.g. "xlink:href"), Target for processing instructions. Text carries the
// payload of text, comment, directive and processing-instruction nodes.
type Node struct {
	Kind     Kind
	Name     string
	Target   string
	Text     string
	Attrs    []Attr
	Children []*Node
}

func NewElement(name string, attrs ...Attr) *Node {
	return &Node{Kind: ElementNode, Name: name, Attrs: attrs}
}

func NewText(s string) *Node {
	return &Node{Kind: TextNode, Text: s}
}

// Parse reads a whole document. Namespace prefixes are kept verbatim.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	doc := &Node{Kind: DocumentNode}
	stack := []*Node{doc}

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml: %w", err)
		}
		parent := stack[len(stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Node{Kind: ElementNode, Name: qname(t.Name)}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, Attr{Name: qname(a.Name), Value: a.Value})
			}
			parent.Children = append(parent.Children, el)
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 1 || parent.Name != qname(t.Name) {
				return nil, fmt.Errorf("xml: unexpected end element </%s>", qname(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			parent.Children = append(parent.Children, &Node{Kind: TextNode, Text: string(t)})
		case xml.Comment:
			parent.Children = append(parent.Children, &Node{Kind: CommentNode, Text: string(t)})
		case xml.ProcInst:
			parent.Children = append(parent.Children, &Node{Kind: ProcInstNode, Target: t.Target, Text: string(t.Inst)})
		case xml.Directive:
			parent.Children = append(parent.Children, &Node{Kind: DirectiveNode, Text: string(t)})
		}
	}
	if len(stack) != 1 {
		return nil, fmt.Errorf("xml: unclosed element <%s>", stack[len(stack)-1].Name)
	}
	if doc.Root() == nil {
		return nil, errors.New("xml: document has no root element")
	}
	return doc, nil
}

func ParseString(s string) (*Node, error) {
	return Parse(strings.NewReader(s))
}

func qname(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Root returns the first element child of a document node.
func (n *Node) Root() *Node {
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			return c
		}
	}
	return nil
}

// Clone returns a deep copy. The copy shares no nodes or attribute slices
// with the receiver.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Kind:   n.Kind,
		Name:   n.Name,
		Target: n.Target,
		Text:   n.Text,
	}
	if n.Attrs != nil {
		out.Attrs = make([]Attr, len(n.Attrs))
		copy(out.Attrs, n.Attrs)
	}
	if n.Children != nil {
		out.Children = make([]*Node, 0, len(n.Children))
		for _, c := range n.Children {
			out.Children = append(out.Children, c.Clone())
		}
	}
	return out
}

func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *Node) AttrOr(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

// SetAttr replaces an existing attribute in place or appends a new one.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

func (n *Node) RemoveAttr(name string) {
	out := n.Attrs[:0]
	for _, a := range n.Attrs {
		if a.Name != name {
			out = append(out, a)
		}
	}
	n.Attrs = out
}

func (n *Node) Append(children ...*Node) {
	n.Children = append(n.Children, children...)
}

// Elements returns the direct element children.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first direct element child with the given name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Kind == ElementNode && c.Name == name {
			return c
		}
	}
	return nil
}

// Find returns the first descendant element with the given name in document
// order, or nil.
func (n *Node) Find(name string) *Node {
	for _, c := range n.Children {
		if c.Kind != ElementNode {
			continue
		}
		if c.Name == name {
			return c
		}
		if f := c.Find(name); f != nil {
			return f
		}
	}
	return nil
}

// FindAll returns every descendant element with the given name in document
// order.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	n.walk(func(c *Node) {
		if c.Name == name {
			out = append(out, c)
		}
	})
	return out
}

func (n *Node) walk(fn func(*Node)) {
	for _, c := range n.Children {
		if c.Kind != ElementNode {
			continue
		}
		fn(c)
		c.walk(fn)
	}
}

// Encode writes the tree back as XML. Elements without children are written
// self-closed.
func (n *Node) Encode(w io.Writer) error {
	var buf bytes.Buffer
	n.encode(&buf)
	_, err := w.Write(buf.Bytes())
	return err
}

func (n *Node) String() string {
	var buf bytes.Buffer
	n.encode(&buf)
	return buf.String()
}

func (n *Node) encode(b *bytes.Buffer) {
	switch n.Kind {
	case DocumentNode:
		for _, c := range n.Children {
			c.encode(b)
		}
	case TextNode:
		b.WriteString(textEscaper.Replace(n.Text))
	case CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.Text)
		b.WriteString("-->")
	case ProcInstNode:
		b.WriteString("<?")
		b.WriteString(n.Target)
		if n.Text != "" {
			b.WriteByte(' ')
			b.WriteString(n.Text)
		}
		b.WriteString("?>")
	case DirectiveNode:
		b.WriteString("<!")
		b.WriteString(n.Text)
		b.WriteByte('>')
	case ElementNode:
		b.WriteByte('<')
		b.WriteString(n.Name)
		for _, a := range n.Attrs {
			b.WriteByte(' ')
			b.WriteString(a.Name)
			b.WriteString(`="`)
			b.WriteString(attrEscaper.Replace(a.Value))
			b.WriteByte('"')
		}
		if len(n.Children) == 0 {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for _, c := range n.Children {
			c.encode(b)
		}
		b.WriteString("</")
		b.WriteString(n.Name)
		b.WriteByte('>')
	}
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"\n", "&#xA;",
		"\r", "&#xD;",
		"\t", "&#x9;",
	)
)
