package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/composels"
)

// Symbol kinds of the entries of the sections that get children.
var sectionKinds = map[string]protocol.SymbolKind{
	"services": protocol.SymbolKindClass,
	"volumes":  protocol.SymbolKindStruct,
	"networks": protocol.SymbolKindInterface,
	"configs":  protocol.SymbolKindFile,
	"secrets":  protocol.SymbolKindKey,
}

// DocumentSymbol handles textDocument/documentSymbol requests.
// Returns the top-level keys, with the entries of each section as children.
func (s *Server) DocumentSymbol(_ context.Context, params *protocol.DocumentSymbolParams) ([]any, error) {
	s.logger.Debug("DocumentSymbol",
		zap.String("uri", string(params.TextDocument.URI)))

	snap, ok := s.getSnapshot(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	symbols := buildDocumentSymbols(snap)

	// Convert to []any for the protocol
	result := make([]any, len(symbols))
	for i, sym := range symbols {
		result[i] = sym
	}

	return result, nil
}

func buildDocumentSymbols(snap *composels.Snapshot) []protocol.DocumentSymbol {
	var symbols []protocol.DocumentSymbol

	for _, doc := range snap.Tree.Documents {
		root := doc.Root()
		if !root.IsMap() {
			continue
		}

		for _, top := range root.Items {
			name := keyName(top)
			if name == "" {
				continue
			}

			sym := protocol.DocumentSymbol{
				Name:           name,
				Kind:           protocol.SymbolKindNamespace,
				Range:          itemRange(snap, top),
				SelectionRange: keyRange(snap, top),
			}

			kind, section := sectionKinds[name]
			if !section {
				sym.Kind = protocol.SymbolKindProperty
			}

			if section {
				for _, child := range entries(top) {
					sym.Children = append(sym.Children, protocol.DocumentSymbol{
						Name:           keyName(child),
						Detail:         detail(snap, child),
						Kind:           kind,
						Range:          itemRange(snap, child),
						SelectionRange: keyRange(snap, child),
					})
				}
			}

			symbols = append(symbols, sym)
		}
	}

	return symbols
}

// detail shows the image of a service.
func detail(snap *composels.Snapshot, it *composels.Item) string {
	img := lookup(it.Value, "image")
	if img == nil {
		return ""
	}

	name, _, _ := scalar(snap.Text, img.Value)

	return name
}
