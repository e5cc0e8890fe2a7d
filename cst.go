package composels

import (
	"sort"

	"github.com/alecthomas/participle/v2/lexer"
)

// NodeKind identifies the structural kind of a CST node.
type NodeKind int

const (
	NodeScalar NodeKind = iota
	NodeAlias
	NodeBlockMap
	NodeBlockSeq
	NodeFlowMap
	NodeFlowSeq
)

var nodeKindNames = map[NodeKind]string{
	NodeScalar:   "scalar",
	NodeAlias:    "alias",
	NodeBlockMap: "block-map",
	NodeBlockSeq: "block-seq",
	NodeFlowMap:  "flow-map",
	NodeFlowSeq:  "flow-seq",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}

	return "unknown"
}

// Severity of a parse marker.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityHint
)

// Marker records a recoverable parse problem. Offset and Length are byte based.
type Marker struct {
	Severity Severity
	Message  string
	Offset   int
	Length   int
}

// Node is a scalar, alias or collection in the concrete syntax tree.
type Node struct {
	Kind NodeKind

	// Props holds anchor and tag tokens preceding the node.
	Props []lexer.Token

	// Tokens holds the scalar tokens for scalars and aliases, and the
	// bracket and comma tokens for flow collections.
	Tokens []lexer.Token

	Items []*Item

	// Indent is the 0-based column of the items of a block collection.
	Indent int

	// Depth counts containment levels from the document root.
	Depth float64

	// Owner is the item this node is the key or value of; nil at the top level.
	Owner *Item

	// Closed is false for a flow collection missing its closing bracket.
	Closed bool

	Markers []Marker
}

// IsCollection reports whether the node holds items.
func (n *Node) IsCollection() bool {
	return n != nil && n.Kind >= NodeBlockMap
}

// IsFlow reports whether the node is a flow collection.
func (n *Node) IsFlow() bool {
	return n != nil && (n.Kind == NodeFlowMap || n.Kind == NodeFlowSeq)
}

// IsMap reports whether the node is a block or flow mapping.
func (n *Node) IsMap() bool {
	return n != nil && (n.Kind == NodeBlockMap || n.Kind == NodeFlowMap)
}

// Offset returns the byte offset of the first token of the node, or -1.
func (n *Node) Offset() int {
	if n == nil {
		return -1
	}

	if len(n.Props) > 0 {
		return n.Props[0].Pos.Offset
	}

	if len(n.Tokens) > 0 {
		return n.Tokens[0].Pos.Offset
	}

	if len(n.Items) > 0 {
		return n.Items[0].Offset()
	}

	return -1
}

// End returns the byte offset just past the last token of the node, or -1.
func (n *Node) End() int {
	if n == nil {
		return -1
	}

	end := -1

	if len(n.Props) > 0 {
		end = tokenEnd(n.Props[len(n.Props)-1])
	}

	if len(n.Tokens) > 0 {
		end = max(end, tokenEnd(n.Tokens[len(n.Tokens)-1]))
	}

	if len(n.Items) > 0 {
		end = max(end, n.Items[len(n.Items)-1].End())
	}

	return end
}

// Text returns the source text of a scalar or alias node.
func (n *Node) Text(source string) string {
	if n == nil || n.IsCollection() || len(n.Tokens) == 0 {
		return ""
	}

	return source[n.Tokens[0].Pos.Offset:tokenEnd(n.Tokens[len(n.Tokens)-1])]
}

// Item is one entry of a collection: a key/value pair or a sequence element.
type Item struct {
	// Start holds the '-' or '?' indicator followed by its trailing spaces.
	Start []lexer.Token

	Key *Node

	// Sep holds the ':' indicator followed by the blanks and line break
	// after it on the same line.
	Sep []lexer.Token

	Value *Node

	Parent *Node

	Markers []Marker
}

// Offset returns the byte offset of the first token of the item.
func (it *Item) Offset() int {
	switch {
	case len(it.Start) > 0:
		return it.Start[0].Pos.Offset
	case it.Key != nil && it.Key.Offset() >= 0:
		return it.Key.Offset()
	case len(it.Sep) > 0:
		return it.Sep[0].Pos.Offset
	default:
		return it.Value.Offset()
	}
}

// End returns the byte offset just past the last significant token of the item.
func (it *Item) End() int {
	end := it.Value.End()

	if len(it.Sep) > 0 {
		end = max(end, tokenEnd(it.Sep[0]))
	}

	end = max(end, it.Key.End())

	if len(it.Start) > 0 {
		end = max(end, tokenEnd(it.Start[0]))
	}

	return end
}

// ScalarKey returns the key node when it is a plain or quoted scalar.
func (it *Item) ScalarKey() *Node {
	if it.Key == nil || it.Key.Kind != NodeScalar || len(it.Key.Tokens) == 0 {
		return nil
	}

	return it.Key
}

// KeyText returns the source text of a scalar key, or "".
func (it *Item) KeyText() string {
	if k := it.ScalarKey(); k != nil {
		return k.Tokens[0].Value
	}

	return ""
}

// Depth returns the depth of the collection holding the item.
func (it *Item) Depth() float64 {
	return it.Parent.Depth
}

// Document is one YAML document of a stream.
type Document struct {
	// Nodes holds the top-level nodes in source order. A well-formed document
	// has at most one.
	Nodes []*Node

	Markers []Marker
}

// Root returns the first top-level node of the document, or nil.
func (d *Document) Root() *Node {
	if len(d.Nodes) == 0 {
		return nil
	}

	return d.Nodes[0]
}

// Tree is the concrete syntax tree of a YAML stream.
type Tree struct {
	Source    string
	Tokens    []lexer.Token
	Documents []*Document

	// Comments holds every comment token in source order.
	Comments []lexer.Token

	// Markers holds every marker in the tree ordered by offset.
	Markers []Marker
}

// Walk visits every item of the tree in pre-order, which is also ascending
// offset order. Walking stops when fn returns false.
func (t *Tree) Walk(fn func(*Item) bool) {
	for _, doc := range t.Documents {
		for _, n := range doc.Nodes {
			if !walkNode(n, fn) {
				return
			}
		}
	}
}

func walkNode(n *Node, fn func(*Item) bool) bool {
	if n == nil {
		return true
	}

	for _, it := range n.Items {
		if !fn(it) {
			return false
		}

		if !walkNode(it.Key, fn) || !walkNode(it.Value, fn) {
			return false
		}
	}

	return true
}

// Empty reports whether the tree holds no items.
func (t *Tree) Empty() bool {
	empty := true

	t.Walk(func(*Item) bool {
		empty = false
		return false
	})

	return empty
}

// HasContent reports whether the source holds anything besides blanks,
// comments and document markers.
func (t *Tree) HasContent() bool {
	for _, tok := range t.Tokens {
		switch tok.Type {
		case TokenEOF, TokenSpace, TokenNewline, TokenComment,
			TokenDocStart, TokenDocEnd, TokenDirective:
		default:
			return true
		}
	}

	return false
}

// CommentAt returns the comment token containing offset. The end of the
// comment counts as inside.
func (t *Tree) CommentAt(offset int) (lexer.Token, bool) {
	i := sort.Search(len(t.Comments), func(i int) bool {
		return tokenEnd(t.Comments[i]) >= offset
	})

	if i < len(t.Comments) && t.Comments[i].Pos.Offset <= offset {
		return t.Comments[i], true
	}

	return lexer.Token{}, false
}

// ItemAt returns the last item starting at or before offset, or nil.
func (t *Tree) ItemAt(offset int) *Item {
	var found *Item

	t.Walk(func(it *Item) bool {
		if it.Offset() > offset {
			return false
		}

		found = it

		return true
	})

	return found
}

func tokenEnd(tok lexer.Token) int {
	return tok.Pos.Offset + len(tok.Value)
}
