// Package analysis maps editor positions to logical paths in a compose
// document and tracks regex capture spans for signature help.
package analysis

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"go.lsp.dev/protocol"

	"github.com/rlch/composels"
)

// Region classifies where inside an item a position falls.
type Region string

const (
	RegionStart   Region = "start"
	RegionKey     Region = "key"
	RegionSep     Region = "sep"
	RegionValue   Region = "value"
	RegionComment Region = "comment"
)

// Structural placeholders used as logical path segments.
const (
	SegItem    = "<item>"
	SegValue   = "<value>"
	SegSep     = "<sep>"
	SegStart   = "<start>"
	SegComment = "<comment>"
)

// RootPath is the logical path of the document root.
const RootPath = "/"

// PositionInfo is the structural address of a position.
type PositionInfo struct {
	// LogicalPath is "/" or "/seg/seg/...".
	LogicalPath string

	// IndentDepth counts containment levels from the root: whole steps for
	// block collections, half steps for flow collections, -1 in comments.
	IndentDepth float64

	Region Region

	// Offset is the byte offset of the position.
	Offset int

	// Item is the item the position was resolved against; nil at the root.
	Item *composels.Item
}

// Segments splits the logical path into its segments. The root has none.
func (p *PositionInfo) Segments() []string {
	if p.LogicalPath == RootPath {
		return nil
	}

	return strings.Split(strings.TrimPrefix(p.LogicalPath, "/"), "/")
}

// ResolvePosition computes the logical path at pos.
func ResolvePosition(snap *composels.Snapshot, pos protocol.Position) (*PositionInfo, error) {
	offset, err := snap.Offset(pos)
	if err != nil {
		return nil, err
	}

	return ResolveOffset(snap, offset)
}

// ResolveOffset computes the logical path at a byte offset.
func ResolveOffset(snap *composels.Snapshot, offset int) (*PositionInfo, error) {
	if offset < 0 || offset > len(snap.Text) {
		return nil, fmt.Errorf("offset %d: %w", offset, composels.ErrOutOfRange)
	}

	tree := snap.Tree
	item := tree.ItemAt(offset)

	if _, ok := tree.CommentAt(offset); ok {
		path := "/" + SegComment
		if item != nil {
			path = ItemPath(item) + "/" + SegComment
		}

		return &PositionInfo{LogicalPath: path, IndentDepth: -1, Region: RegionComment, Offset: offset, Item: item}, nil
	}

	if item == nil {
		if tree.Empty() && tree.HasContent() {
			return nil, composels.ErrResolutionFailed
		}

		return &PositionInfo{LogicalPath: RootPath, Region: RegionValue, Offset: offset}, nil
	}

	info := &PositionInfo{Region: classify(item, offset), Offset: offset, Item: item}

	switch info.Region {
	case RegionKey:
		info.LogicalPath = ItemPath(item)
	case RegionStart:
		info.LogicalPath = ItemPath(item) + "/" + SegStart
	case RegionSep:
		info.LogicalPath = ItemPath(item) + "/" + SegSep
	default:
		info.LogicalPath = ItemPath(item) + "/" + SegValue
	}

	info.IndentDepth = item.Depth()

	if info.Region == RegionValue && shouldReanchor(snap, item, offset) {
		info.LogicalPath, info.IndentDepth = reanchor(item, offset, offset-lineStart(snap.Text, offset))
	}

	return info, nil
}

// ItemPath returns the logical path of an item: one segment per item on its
// ancestor chain.
func ItemPath(it *composels.Item) string {
	var segs []string

	for cur := it; cur != nil; cur = cur.Parent.Owner {
		segs = append(segs, Segment(cur))
	}

	slices.Reverse(segs)

	return "/" + strings.Join(segs, "/")
}

// Segment returns the path segment of an item: the source text of a scalar
// key, or "<item>" for sequence entries, complex keys and merge keys.
func Segment(it *composels.Item) string {
	text := it.KeyText()
	if text == "" || text == "<<" {
		return SegItem
	}

	return text
}

func classify(it *composels.Item, offset int) Region {
	if len(it.Start) > 0 && offset >= it.Start[0].Pos.Offset && offset < tokensEnd(it.Start) {
		return RegionStart
	}

	if k := it.ScalarKey(); k != nil {
		tok := k.Tokens[0]
		if offset >= tok.Pos.Offset && offset <= tok.Pos.Offset+len(tok.Value) {
			return RegionKey
		}
	}

	if len(it.Sep) > 0 {
		colon := it.Sep[0].Pos.Offset
		if offset >= colon && offset <= colon+1 {
			return RegionSep
		}

		if len(it.Sep) > 1 && offset >= it.Sep[1].Pos.Offset && offset < tokensEnd(it.Sep) {
			return RegionSep
		}
	}

	return RegionValue
}

// shouldReanchor reports whether a value position sits in the leading
// whitespace of a line after the item's first line, outside the item's tokens.
func shouldReanchor(snap *composels.Snapshot, it *composels.Item, offset int) bool {
	start := lineStart(snap.Text, offset)
	if strings.TrimLeft(snap.Text[start:offset], " \t") != "" {
		return false
	}

	if start <= it.Offset() {
		return false
	}

	return !insideOwnTokens(it, offset)
}

func insideOwnTokens(it *composels.Item, offset int) bool {
	within := func(from, to int) bool { return from >= 0 && offset >= from && offset <= to }

	if len(it.Start) > 0 && within(it.Start[0].Pos.Offset, tokensEnd(it.Start)) {
		return true
	}

	if it.Key != nil && !it.Key.IsCollection() && within(it.Key.Offset(), it.Key.End()) {
		return true
	}

	if len(it.Sep) > 0 && within(it.Sep[0].Pos.Offset, it.Sep[0].Pos.Offset+1) {
		return true
	}

	return it.Value != nil && !it.Value.IsCollection() && within(it.Value.Offset(), it.Value.End())
}

// reanchor resolves a position in leading whitespace by its column: the
// collection chain of the item is walked outwards until a collection at or
// left of the column is found.
func reanchor(it *composels.Item, offset, col int) (string, float64) {
	if v := it.Value; v.IsFlow() && flowOpenAt(v, offset) {
		return ItemPath(it) + "/" + SegValue, v.Depth
	}

	chain := it

	for coll := it.Parent; coll != nil; coll = chain.Parent {
		switch {
		case coll.IsFlow():
			if flowOpenAt(coll, offset) {
				return valueSlot(coll), coll.Depth
			}
		case coll.Indent == col:
			return valueSlot(coll), coll.Depth
		case coll.Indent < col:
			return ItemPath(chain) + "/" + SegValue, coll.Depth + 1
		}

		if coll.Owner == nil {
			break
		}

		chain = coll.Owner
	}

	return RootPath, 0
}

// valueSlot returns the path of the value slot a collection fills.
func valueSlot(coll *composels.Node) string {
	if coll.Owner == nil {
		return RootPath
	}

	return ItemPath(coll.Owner) + "/" + SegValue
}

// flowOpenAt reports whether offset lies between the brackets of a flow
// collection, or after the opening bracket of an unclosed one.
func flowOpenAt(n *composels.Node, offset int) bool {
	if len(n.Tokens) == 0 || offset <= n.Tokens[0].Pos.Offset {
		return false
	}

	if !n.Closed {
		return true
	}

	return offset <= n.Tokens[len(n.Tokens)-1].Pos.Offset
}

func tokensEnd(toks []lexer.Token) int {
	last := toks[len(toks)-1]
	return last.Pos.Offset + len(last.Value)
}

func lineStart(text string, offset int) int {
	return strings.LastIndexByte(text[:offset], '\n') + 1
}
