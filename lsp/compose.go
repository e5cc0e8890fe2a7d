package lsp

import (
	"strings"

	"github.com/rlch/composels"
)

// topLevel returns the items named key in the root mappings of every
// document of tree.
func topLevel(tree *composels.Tree, key string) []*composels.Item {
	var found []*composels.Item

	for _, doc := range tree.Documents {
		if it := lookup(doc.Root(), key); it != nil {
			found = append(found, it)
		}
	}

	return found
}

// lookup returns the first item of mapping n whose key is key.
func lookup(n *composels.Node, key string) *composels.Item {
	if !n.IsMap() {
		return nil
	}

	for _, it := range n.Items {
		if keyName(it) == key {
			return it
		}
	}

	return nil
}

// entries returns the keyed items of a mapping value.
func entries(it *composels.Item) []*composels.Item {
	if it == nil || !it.Value.IsMap() {
		return nil
	}

	var out []*composels.Item

	for _, child := range it.Value.Items {
		if keyName(child) != "" {
			out = append(out, child)
		}
	}

	return out
}

// services returns the service items of the document in source order.
func services(tree *composels.Tree) []*composels.Item {
	var out []*composels.Item

	for _, it := range topLevel(tree, "services") {
		out = append(out, entries(it)...)
	}

	return out
}

// keyName returns the key of it without surrounding quotes.
func keyName(it *composels.Item) string {
	return unquote(it.KeyText())
}

// scalar returns the unquoted text of a scalar node and the byte offset of
// that text in source.
func scalar(source string, n *composels.Node) (string, int, bool) {
	if n == nil || n.Kind != composels.NodeScalar || len(n.Tokens) != 1 {
		return "", 0, false
	}

	raw := n.Text(source)
	text := unquote(raw)
	offset := n.Offset()

	if len(text) != len(raw) {
		offset++
	}

	return text, offset, true
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}

	return s
}

// lineBefore returns the text of the line holding offset up to offset.
func lineBefore(text string, offset int) string {
	start := strings.LastIndexByte(text[:offset], '\n') + 1
	return text[start:offset]
}
