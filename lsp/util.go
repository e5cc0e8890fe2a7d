package lsp

import (
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/rlch/composels"
)

// uriToPath converts a file URI to a file system path. Other schemes give "".
func uriToPath(u protocol.DocumentURI) string {
	if !strings.HasPrefix(string(u), uri.FileScheme+"://") {
		return ""
	}

	return u.Filename()
}

// keyRange returns the range of the key of it, or of the whole item when it
// has no key.
func keyRange(snap *composels.Snapshot, it *composels.Item) protocol.Range {
	if it.Key != nil && it.Key.Offset() >= 0 {
		return snap.Range(it.Key.Offset(), it.Key.End()-it.Key.Offset())
	}

	return itemRange(snap, it)
}

func itemRange(snap *composels.Snapshot, it *composels.Item) protocol.Range {
	return snap.Range(it.Offset(), it.End()-it.Offset())
}
