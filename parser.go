package composels

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/yaml"
)

// piece is one structural element of the source in document order: a
// scalar, alias or flow collection node, or an indicator token.
type piece struct {
	node *Node

	tok lexer.Token
	idx int // index of tok in Tree.Tokens

	off   int
	line  int // 0-based
	col   int // byte column
	first bool
}

type flowFrame struct {
	node *Node
	item *Item

	// indent of the block collection around the outermost open flow, -1 at
	// the top level.
	indent int
}

type builder struct {
	tree  *Tree
	lines []int       // offsets of line starts
	byOff map[int]int // token offset to index in Tree.Tokens
	seen  map[Marker]bool

	next   int // first token not yet turned into a piece
	pieces []piece
	errs   []Marker

	doc      *Document
	docStart bool
	stack    []*Node // open block collections, innermost last
	cur      *Item
	inKey    bool // cur is an explicit item waiting for its key
	props    []lexer.Token
	flows    []*flowFrame
}

// ParseTree builds the concrete syntax tree of source. It never fails:
// malformed input produces markers on the affected nodes and items.
//
// Structure comes from tree-sitter-yaml. Inside an ERROR node tree-sitter
// keeps the pieces of the broken region but not their nesting, and it drops
// the text after the point where recovery gave up. Block structure is
// therefore composed from the flattened tree by indentation, and the lexer
// tokens cover whatever tree-sitter left out.
func ParseTree(source string) *Tree {
	tree := &Tree{Source: source, Tokens: Tokenize(source)}
	b := newBuilder(tree)

	b.flattenSource()
	b.compose()
	b.flushErrors()

	for _, doc := range tree.Documents {
		for _, n := range doc.Nodes {
			assignDepth(n, 0)
		}
	}

	sort.SliceStable(tree.Markers, func(i, j int) bool {
		return tree.Markers[i].Offset < tree.Markers[j].Offset
	})

	return tree
}

func newBuilder(tree *Tree) *builder {
	b := &builder{
		tree:  tree,
		lines: []int{0},
		byOff: make(map[int]int, len(tree.Tokens)),
		seen:  make(map[Marker]bool),
	}

	for i, c := range []byte(tree.Source) {
		if c == '\n' {
			b.lines = append(b.lines, i+1)
		}
	}

	for i, tok := range tree.Tokens {
		if tok.Type == TokenComment {
			tree.Comments = append(tree.Comments, tok)
		}

		if _, ok := b.byOff[tok.Pos.Offset]; !ok {
			b.byOff[tok.Pos.Offset] = i
		}
	}

	return b
}

func (b *builder) flattenSource() {
	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(yaml.GetLanguage())

	st, err := parser.ParseCtx(context.Background(), nil, []byte(b.tree.Source))
	if err == nil && st != nil {
		defer st.Close()

		b.flatten(st.RootNode())
	}

	b.salvage(len(b.tree.Source) + 1)
}

// flatten appends the pieces of n. Well-formed flow nodes are converted
// whole; everything else is taken apart down to its leaves.
func (b *builder) flatten(n *sitter.Node) {
	start, end := int(n.StartByte()), int(n.EndByte())

	if n.IsMissing() {
		b.mark(nil, SeverityError, fmt.Sprintf("missing %q", n.Type()), start, 0)
		return
	}

	b.salvage(start)

	if end <= b.offset() && (end > start || n.ChildCount() == 0) {
		return
	}

	switch n.Type() {
	case "ERROR":
		b.errs = append(b.errs, b.errorMarker(start, end))
	case "flow_node":
		if !n.HasError() && start >= b.offset() {
			b.add(b.flowNode(n))
			b.skip(end)

			return
		}
	}

	count := int(n.ChildCount())
	if count == 0 {
		b.salvage(end)
		return
	}

	for i := range count {
		if c := n.Child(i); c != nil {
			b.flatten(c)
		}
	}
}

// salvage turns the tokens before offset into pieces. It covers indicators
// and the text tree-sitter did not structure.
func (b *builder) salvage(offset int) {
	toks := b.tree.Tokens

	for b.next < len(toks) && toks[b.next].Pos.Offset < offset {
		i := b.next
		tok := toks[i]
		b.next++

		switch tok.Type {
		case TokenEOF, TokenSpace, TokenNewline, TokenComment, TokenBlockText:
		case TokenPlain, TokenAlias, TokenSingleQuoted, TokenDoubleQuoted:
			b.add(b.scalarNode(tok))
		case TokenBlockScalar:
			n := &Node{Kind: NodeScalar, Tokens: []lexer.Token{tok}}

			if j := b.significant(b.next); j < len(toks) && toks[j].Type == TokenBlockText {
				n.Tokens = append(n.Tokens, toks[j])
				b.next = j + 1
			}

			b.add(n)
		default:
			b.pieces = append(b.pieces, b.layout(piece{tok: tok, idx: i}, tok.Pos.Offset))
		}
	}
}

// offset returns the offset of the first token not yet consumed.
func (b *builder) offset() int {
	if b.next < len(b.tree.Tokens) {
		return b.tree.Tokens[b.next].Pos.Offset
	}

	return len(b.tree.Source)
}

func (b *builder) skip(end int) {
	for b.next < len(b.tree.Tokens) && b.tree.Tokens[b.next].Pos.Offset < end {
		b.next++
	}
}

// significant returns the index of the first token at or after i that is
// not a blank, a line break or a comment.
func (b *builder) significant(i int) int {
	toks := b.tree.Tokens

	for i < len(toks) {
		switch toks[i].Type {
		case TokenSpace, TokenNewline, TokenComment:
			i++
		default:
			return i
		}
	}

	return i
}

func (b *builder) add(n *Node) {
	off := n.Offset()
	if off < 0 {
		return
	}

	b.pieces = append(b.pieces, b.layout(piece{node: n, idx: -1}, off))
}

// layout fills in the layout of p at off.
func (b *builder) layout(p piece, off int) piece {
	p.off = off
	p.line = b.lineOf(off)
	p.col = off - b.lines[p.line]
	p.first = strings.TrimLeft(b.tree.Source[b.lines[p.line]:off], " \t") == ""

	return p
}

func (b *builder) lineOf(off int) int {
	return max(sort.SearchInts(b.lines, off+1)-1, 0)
}

func (b *builder) position(off int) lexer.Position {
	line := b.lineOf(off)

	return lexer.Position{
		Offset: off,
		Line:   line + 1,
		Column: utf8.RuneCountInString(b.tree.Source[b.lines[line]:off]) + 1,
	}
}

// errorMarker reports an ERROR node at the token recovery stumbled on: the
// first one after the node, or its own last token at the end of input.
func (b *builder) errorMarker(start, end int) Marker {
	toks := b.tree.Tokens

	i := sort.Search(len(toks), func(i int) bool { return toks[i].Pos.Offset >= end })
	j := b.significant(i)

	if j >= len(toks) || toks[j].EOF() {
		j = -1

		for k := i - 1; k >= 0 && toks[k].Pos.Offset >= start; k-- {
			if b.significant(k) == k {
				j = k
				break
			}
		}
	}

	if j < 0 {
		return Marker{Severity: SeverityWarning, Message: "syntax error", Offset: start, Length: end - start}
	}

	tok := toks[j]

	return Marker{
		Severity: SeverityWarning,
		Message:  "unexpected " + describe(tok),
		Offset:   tok.Pos.Offset,
		Length:   len(tok.Value),
	}
}

// flushErrors records the ERROR markers that no other marker already covers.
func (b *builder) flushErrors() {
	for _, e := range b.errs {
		covered := false

		for _, m := range b.tree.Markers {
			if m.Offset <= e.Offset && e.Offset < m.Offset+max(m.Length, 1) {
				covered = true
				break
			}
		}

		if !covered {
			b.mark(nil, e.Severity, e.Message, e.Offset, e.Length)
		}
	}
}

func (b *builder) mark(dst *[]Marker, sev Severity, msg string, offset, length int) {
	key := Marker{Message: msg, Offset: offset}
	if b.seen[key] {
		return
	}

	b.seen[key] = true

	m := Marker{Severity: sev, Message: msg, Offset: offset, Length: max(length, 0)}
	if dst != nil {
		*dst = append(*dst, m)
	}

	b.tree.Markers = append(b.tree.Markers, m)
}

// tokenAt returns the lexer token spanning exactly [start, end) with type
// typ, or a token built from the source when the lexer split it otherwise.
func (b *builder) tokenAt(start, end int, typ lexer.TokenType) lexer.Token {
	if i, ok := b.byOff[start]; ok {
		if tok := b.tree.Tokens[i]; tok.Type == typ && tokenEnd(tok) == end {
			return tok
		}
	}

	return lexer.Token{Type: typ, Value: b.tree.Source[start:end], Pos: b.position(start)}
}

func (b *builder) token(n *sitter.Node, typ lexer.TokenType) lexer.Token {
	return b.tokenAt(int(n.StartByte()), int(n.EndByte()), typ)
}

// indicator returns the indicator n with its trailing blanks.
func (b *builder) indicator(n *sitter.Node, typ lexer.TokenType, withBreak bool) []lexer.Token {
	tok := b.token(n, typ)

	if i, ok := b.byOff[tok.Pos.Offset]; ok && b.tree.Tokens[i] == tok {
		return b.withTrailing(i, withBreak)
	}

	return []lexer.Token{tok}
}

// withTrailing returns token i followed by the blanks after it, and by the
// line break that follows them when withBreak is set.
func (b *builder) withTrailing(i int, withBreak bool) []lexer.Token {
	out := []lexer.Token{b.tree.Tokens[i]}

	for _, tok := range b.tree.Tokens[i+1:] {
		if tok.Type == TokenSpace {
			out = append(out, tok)
			continue
		}

		if withBreak && tok.Type == TokenNewline {
			out = append(out, tok)
		}

		break
	}

	return out
}

// scalarNode builds a single-token scalar or alias node from a lexer token.
func (b *builder) scalarNode(tok lexer.Token) *Node {
	n := &Node{Kind: NodeScalar, Tokens: []lexer.Token{tok}}

	switch tok.Type {
	case TokenAlias:
		n.Kind = NodeAlias
	case TokenSingleQuoted, TokenDoubleQuoted:
		if !quotedClosed(tok.Value) {
			b.mark(&n.Markers, SeverityError, "unterminated quoted scalar", tok.Pos.Offset, len(tok.Value))
		}
	}

	return n
}

// flowNode converts a well-formed flow_node.
func (b *builder) flowNode(n *sitter.Node) *Node {
	var (
		props []lexer.Token
		out   *Node
	)

	for i := range int(n.ChildCount()) {
		c := n.Child(i)
		if c == nil {
			continue
		}

		switch c.Type() {
		case "anchor":
			props = append(props, b.token(c, TokenAnchor))
		case "tag":
			props = append(props, b.token(c, TokenTag))
		case "alias":
			out = &Node{Kind: NodeAlias, Tokens: []lexer.Token{b.token(c, TokenAlias)}}
		case "plain_scalar":
			out = &Node{Kind: NodeScalar, Tokens: b.plainTokens(c)}
		case "single_quote_scalar":
			out = &Node{Kind: NodeScalar, Tokens: []lexer.Token{b.token(c, TokenSingleQuoted)}}
		case "double_quote_scalar":
			out = &Node{Kind: NodeScalar, Tokens: []lexer.Token{b.token(c, TokenDoubleQuoted)}}
		case "flow_sequence", "flow_mapping":
			out = b.flowCollection(c)
		}
	}

	if out == nil {
		out = &Node{Kind: NodeScalar}
	}

	out.Props = props

	return out
}

// plainTokens splits a plain scalar into one token per line.
func (b *builder) plainTokens(n *sitter.Node) []lexer.Token {
	src := b.tree.Source
	start, end := int(n.StartByte()), int(n.EndByte())

	var out []lexer.Token

	for off := start; off < end; {
		lineEnd := end
		if i := strings.IndexByte(src[off:end], '\n'); i >= 0 {
			lineEnd = off + i
		}

		seg := src[off:lineEnd]
		lead := len(seg) - len(strings.TrimLeft(seg, " \t"))

		if value := strings.TrimRight(seg[lead:], " \t\r"); value != "" {
			out = append(out, b.tokenAt(off+lead, off+lead+len(value), TokenPlain))
		}

		off = lineEnd + 1
	}

	return out
}

var flowTokenTypes = map[string]lexer.TokenType{
	"[": TokenFlowSeqStart,
	"]": TokenFlowSeqEnd,
	"{": TokenFlowMapStart,
	"}": TokenFlowMapEnd,
	",": TokenComma,
}

func (b *builder) flowCollection(n *sitter.Node) *Node {
	coll := &Node{Kind: NodeFlowSeq}
	if n.Type() == "flow_mapping" {
		coll.Kind = NodeFlowMap
	}

	for i := range int(n.ChildCount()) {
		c := n.Child(i)
		if c == nil {
			continue
		}

		switch c.Type() {
		case "[", "{", ",":
			coll.Tokens = append(coll.Tokens, b.token(c, flowTokenTypes[c.Type()]))
		case "]", "}":
			if !c.IsMissing() {
				coll.Tokens = append(coll.Tokens, b.token(c, flowTokenTypes[c.Type()]))
				coll.Closed = true
			}
		case "flow_node":
			v := b.flowNode(c)
			if v.Offset() < 0 {
				continue
			}

			it := &Item{Parent: coll}
			if coll.Kind == NodeFlowMap {
				it.Key = v
			} else {
				it.Value = v
			}

			coll.Items = append(coll.Items, it)
		case "flow_pair":
			coll.Items = append(coll.Items, b.flowPair(c, coll))
		}
	}

	if !coll.Closed && len(coll.Tokens) > 0 {
		open := coll.Tokens[0]
		b.mark(&coll.Markers, SeverityError, "unclosed flow collection", open.Pos.Offset, len(open.Value))
	}

	return coll
}

func (b *builder) flowPair(n *sitter.Node, parent *Node) *Item {
	it := &Item{Parent: parent}

	for i := range int(n.ChildCount()) {
		c := n.Child(i)
		if c == nil {
			continue
		}

		switch {
		case c.Type() == "?":
			it.Start = b.indicator(c, TokenQuestion, false)
		case c.Type() == ":":
			it.Sep = b.indicator(c, TokenColon, true)
		case c.Type() != "flow_node":
		case n.FieldNameForChild(i) == "key" || len(it.Sep) == 0:
			it.Key = b.flowNode(c)
		default:
			it.Value = b.flowNode(c)
		}
	}

	return it
}

// compose builds documents from the pieces. Block collections nest by the
// column of their items; flow collections left open by tree-sitter end at
// a line that is not indented past the block around them.
func (b *builder) compose() {
	for i := range b.pieces {
		b.step(i)
	}

	b.endDocument()
}

func (b *builder) step(i int) {
	p := b.pieces[i]

	if len(b.flows) > 0 {
		if !b.flowBreak(p) {
			b.flowStep(p)
			return
		}

		b.closeFlows()
	}

	if p.node != nil {
		b.nodeStep(i)
		return
	}

	switch p.tok.Type {
	case TokenDocStart, TokenDirective:
		if b.doc != nil && (b.docStart || len(b.doc.Nodes) > 0) {
			b.endDocument()
		}

		if p.tok.Type == TokenDocStart {
			b.ensureDocument()
			b.docStart = true
		}
	case TokenDocEnd:
		b.endDocument()
	case TokenAnchor, TokenTag:
		b.props = append(b.props, p.tok)
	case TokenColon:
		b.colon(p)
	case TokenDash:
		b.place(&Item{Start: b.withTrailing(p.idx, false)}, p.col, NodeBlockSeq)
	case TokenQuestion:
		b.place(&Item{Start: b.withTrailing(p.idx, false)}, p.col, NodeBlockMap)
		b.inKey = true
	case TokenFlowSeqStart, TokenFlowMapStart:
		b.openFlow(p)
	default:
		b.unexpected(p)
	}
}

func (b *builder) nodeStep(i int) {
	p := b.pieces[i]

	switch {
	case b.isKey(i):
		b.place(&Item{Key: p.node}, p.col, NodeBlockMap)
	case b.keySlot(p):
		b.cur.Key = b.withProps(p.node)
		b.inKey = false
	case b.valueSlot(p):
		b.cur.Value = b.withProps(p.node)
	case p.first && typedKey(p.node):
		// A lone scalar on its own line is taken as a key being typed.
		it := &Item{Key: p.node}
		b.place(it, p.col, NodeBlockMap)
		b.mark(&it.Markers, SeverityHint, "missing ':' after mapping key", p.off, p.node.End()-p.off)
	case len(b.stack) == 0 && b.cur == nil:
		b.addTopLevel(b.withProps(p.node))
	default:
		b.unexpected(p)
	}
}

// isKey reports whether piece i is followed by ':' on the line it ends on.
func (b *builder) isKey(i int) bool {
	if i+1 >= len(b.pieces) || isBlockScalar(b.pieces[i].node) {
		return false
	}

	next := b.pieces[i+1]

	return next.node == nil && next.tok.Type == TokenColon && next.line == b.lineOf(b.pieces[i].node.End())
}

func (b *builder) keySlot(p piece) bool {
	it := b.cur
	if !b.inKey || it == nil || it.Key != nil {
		return false
	}

	return p.line == it.Start[0].Pos.Line-1 || p.col > it.Parent.Indent
}

// valueSlot reports whether p is the value of the current item: on the line
// of its indicator, or below it and indented past its collection.
func (b *builder) valueSlot(p piece) bool {
	it := b.cur
	if it == nil || b.inKey || it.Value != nil {
		return false
	}

	var ind lexer.Token

	switch {
	case len(it.Sep) > 0:
		ind = it.Sep[0]
	case isIndicator(it.Start, TokenDash):
		ind = it.Start[0]
	default:
		return false
	}

	if p.line == ind.Pos.Line-1 {
		return true
	}

	return !(p.first && typedKey(p.node)) && p.col > it.Parent.Indent
}

// place adds a block item starting at col, closing the collections indented
// deeper and opening a new one in the free slot of the enclosing item.
func (b *builder) place(it *Item, col int, kind NodeKind) {
	b.ensureDocument()

	key := b.inKey
	b.inKey = false

	for len(b.stack) > 0 {
		top := b.stack[len(b.stack)-1]

		switch {
		case top.Indent > col:
			b.stack = b.stack[:len(b.stack)-1]
			continue
		case top.Indent == col && top.Kind == kind:
			b.flushProps()
			b.appendItem(top, it)
		case top.Indent == col && kind == NodeBlockSeq && b.openSlot(top, false):
			b.nest(top, it, col, kind, false)
		case top.Indent == col:
			b.stack = b.stack[:len(b.stack)-1]
			continue
		case b.openSlot(top, key):
			b.nest(top, it, col, kind, key)
		default:
			b.flushProps()

			off := it.Offset()
			b.mark(&top.Markers, SeverityWarning, "unexpected indentation", off, it.End()-off)
			b.appendItem(top, it)
		}

		return
	}

	n := &Node{Kind: kind, Indent: col, Closed: true, Props: b.takeProps()}
	b.appendItem(n, it)
	b.addTopLevel(n)
	b.stack = append(b.stack, n)
}

func (b *builder) openSlot(top *Node, key bool) bool {
	last := top.Items[len(top.Items)-1]

	if key {
		return last == b.cur && last.Key == nil
	}

	return last.Value == nil && (len(last.Sep) > 0 || isIndicator(last.Start, TokenDash))
}

func (b *builder) nest(top *Node, it *Item, col int, kind NodeKind, key bool) {
	owner := top.Items[len(top.Items)-1]
	n := &Node{Kind: kind, Indent: col, Closed: true, Props: b.takeProps()}

	if key {
		owner.Key = n
	} else {
		owner.Value = n
	}

	b.stack = append(b.stack, n)
	b.appendItem(n, it)
}

func (b *builder) appendItem(coll *Node, it *Item) {
	it.Parent = coll
	coll.Items = append(coll.Items, it)
	b.cur = it
}

func (b *builder) colon(p piece) {
	if it := b.cur; it != nil && len(it.Sep) == 0 && !p.first {
		explicit := isIndicator(it.Start, TokenQuestion)

		if explicit || (it.Key != nil && p.line == b.lineOf(it.Key.End())) {
			it.Sep = b.withTrailing(p.idx, true)
			b.inKey = false

			return
		}
	}

	if !p.first {
		b.unexpected(p)
		return
	}

	// The ':' of an explicit key may sit on its own line at the map indent.
	for k := len(b.stack) - 1; k >= 0; k-- {
		coll := b.stack[k]
		if coll.Indent != p.col {
			continue
		}

		if last := coll.Items[len(coll.Items)-1]; coll.Kind == NodeBlockMap &&
			isIndicator(last.Start, TokenQuestion) && len(last.Sep) == 0 {
			b.stack = b.stack[:k+1]
			b.cur = last
			b.inKey = false
			last.Sep = b.withTrailing(p.idx, true)

			return
		}

		break
	}

	b.place(&Item{Sep: b.withTrailing(p.idx, true)}, p.col, NodeBlockMap)
}

func (b *builder) openFlow(p piece) {
	n := &Node{Kind: NodeFlowSeq, Tokens: []lexer.Token{p.tok}, Props: b.takeProps()}
	if p.tok.Type == TokenFlowMapStart {
		n.Kind = NodeFlowMap
	}

	switch {
	case len(b.flows) > 0:
		b.flowEntry(b.flows[len(b.flows)-1], n, p)
	case b.keySlot(p):
		b.cur.Key = n
		b.inKey = false
	case b.valueSlot(p):
		b.cur.Value = n
	case len(b.stack) == 0 && b.cur == nil:
		b.addTopLevel(n)
	default:
		// The collection still takes its entries, which are dropped with it.
		b.unexpected(p)
	}

	indent := -1
	if len(b.flows) > 0 {
		indent = b.flows[0].indent
	} else if len(b.stack) > 0 {
		indent = b.stack[len(b.stack)-1].Indent
	}

	b.flows = append(b.flows, &flowFrame{node: n, indent: indent})
}

// flowBreak reports whether p ends the open flow collections: a document
// marker or a line starting at or left of the enclosing block indent.
func (b *builder) flowBreak(p piece) bool {
	if p.node == nil {
		switch p.tok.Type {
		case TokenDocStart, TokenDocEnd, TokenDirective:
			return true
		case TokenFlowSeqEnd, TokenFlowMapEnd:
			return false
		}
	}

	return p.first && p.col <= b.flows[0].indent
}

func (b *builder) flowStep(p piece) {
	f := b.flows[len(b.flows)-1]

	if p.node != nil {
		b.flowEntry(f, b.withProps(p.node), p)
		return
	}

	switch p.tok.Type {
	case TokenFlowSeqEnd, TokenFlowMapEnd:
		f.node.Tokens = append(f.node.Tokens, p.tok)
		f.node.Closed = true

		if (f.node.Kind == NodeFlowSeq) != (p.tok.Type == TokenFlowSeqEnd) {
			b.mark(&f.node.Markers, SeverityError, "mismatched flow collection bracket", p.off, len(p.tok.Value))
		}

		b.props = nil
		b.flows = b.flows[:len(b.flows)-1]
	case TokenComma:
		f.node.Tokens = append(f.node.Tokens, p.tok)
		f.item = nil
	case TokenColon:
		it := f.item

		switch {
		case it == nil || len(it.Sep) > 0:
			it = &Item{}
			b.flowItem(f, it)
		case it.Key == nil && it.Value != nil:
			it.Key, it.Value = it.Value, nil
		}

		it.Sep = b.withTrailing(p.idx, true)
	case TokenQuestion:
		b.flowItem(f, &Item{Start: b.withTrailing(p.idx, false)})
	case TokenFlowSeqStart, TokenFlowMapStart:
		b.openFlow(p)
	case TokenAnchor, TokenTag:
		b.props = append(b.props, p.tok)
	default:
		b.unexpected(p)
	}
}

func (b *builder) flowEntry(f *flowFrame, n *Node, p piece) {
	it := f.item

	switch {
	case it == nil:
	case len(it.Sep) > 0 && it.Value == nil:
		it.Value = n
		return
	case len(it.Sep) == 0 && it.Key == nil && it.Value == nil:
		it.Key = n
		return
	default:
		b.mark(&f.node.Markers, SeverityWarning, "missing ',' between flow entries", p.off, n.End()-p.off)
	}

	it = &Item{}
	b.flowItem(f, it)

	if f.node.Kind == NodeFlowMap {
		it.Key = n
	} else {
		it.Value = n
	}
}

func (b *builder) flowItem(f *flowFrame, it *Item) {
	it.Parent = f.node
	f.node.Items = append(f.node.Items, it)
	f.item = it
}

func (b *builder) closeFlows() {
	for k := len(b.flows) - 1; k >= 0; k-- {
		n := b.flows[k].node
		open := n.Tokens[0]
		b.mark(&n.Markers, SeverityError, "unclosed flow collection", open.Pos.Offset, len(open.Value))
	}

	b.flows = nil
	b.props = nil
}

func (b *builder) takeProps() []lexer.Token {
	props := b.props
	b.props = nil

	return props
}

func (b *builder) withProps(n *Node) *Node {
	if len(b.props) > 0 {
		n.Props = append(b.takeProps(), n.Props...)
	}

	return n
}

// flushProps attaches pending properties with no node of their own.
func (b *builder) flushProps() {
	if len(b.props) == 0 {
		return
	}

	n := &Node{Kind: NodeScalar, Props: b.takeProps()}
	it := b.cur

	switch {
	case it != nil && b.inKey && it.Key == nil:
		it.Key = n
	case it != nil && it.Value == nil && (len(it.Sep) > 0 || isIndicator(it.Start, TokenDash)):
		it.Value = n
	case it == nil && len(b.stack) == 0:
		b.addTopLevel(n)
	}
}

func (b *builder) ensureDocument() {
	if b.doc == nil {
		b.doc = &Document{}
		b.tree.Documents = append(b.tree.Documents, b.doc)
	}
}

func (b *builder) endDocument() {
	b.closeFlows()
	b.flushProps()

	b.doc, b.docStart, b.stack, b.cur, b.inKey = nil, false, nil, nil, false
}

// addTopLevel records a top-level node. Nodes after the first are malformed
// and end the block collections before them.
func (b *builder) addTopLevel(n *Node) {
	b.ensureDocument()

	if len(b.doc.Nodes) > 0 {
		b.mark(&b.doc.Markers, SeverityWarning, "unexpected content after the document root",
			n.Offset(), n.End()-n.Offset())

		b.stack = nil
	}

	b.doc.Nodes = append(b.doc.Nodes, n)
}

func (b *builder) unexpected(p piece) {
	tok, length := p.tok, len(p.tok.Value)

	if p.node != nil {
		tok, length = firstToken(p.node), p.node.End()-p.off
	}

	var dst *[]Marker
	if b.doc != nil {
		dst = &b.doc.Markers
	}

	b.mark(dst, SeverityWarning, "unexpected "+describe(tok), p.off, length)
}

func firstToken(n *Node) lexer.Token {
	switch {
	case len(n.Props) > 0:
		return n.Props[0]
	case len(n.Tokens) > 0:
		return n.Tokens[0]
	default:
		return lexer.Token{}
	}
}

// typedKey reports whether n is a single-line plain or quoted scalar.
func typedKey(n *Node) bool {
	if n == nil || n.Kind != NodeScalar || len(n.Tokens) != 1 {
		return false
	}

	switch tok := n.Tokens[0]; tok.Type {
	case TokenPlain, TokenSingleQuoted, TokenDoubleQuoted:
		return !strings.Contains(tok.Value, "\n")
	default:
		return false
	}
}

func isBlockScalar(n *Node) bool {
	return n != nil && len(n.Tokens) > 0 && n.Tokens[0].Type == TokenBlockScalar
}

func isIndicator(start []lexer.Token, typ lexer.TokenType) bool {
	return len(start) > 0 && start[0].Type == typ
}

// assignDepth sets depths and owners below n. Block collections nest one
// level deeper than their owner's collection, flow collections half a level.
func assignDepth(n *Node, depth float64) {
	n.Depth = depth

	for _, it := range n.Items {
		for _, child := range []*Node{it.Key, it.Value} {
			if child == nil {
				continue
			}

			child.Owner = it

			switch {
			case child.IsFlow():
				assignDepth(child, depth+0.5) //nolint:mnd // flow collections count half
			case child.IsCollection():
				assignDepth(child, depth+1)
			default:
				child.Depth = depth
			}
		}
	}
}

func describe(tok lexer.Token) string {
	return fmt.Sprintf("%s %q", TokenName(tok.Type), tok.Value)
}
