package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/composels"
)

// FoldingRanges handles textDocument/foldingRange requests.
// Returns one range per item whose value is a block collection spanning
// more than one line.
func (s *Server) FoldingRanges(_ context.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	s.logger.Debug("FoldingRanges",
		zap.String("uri", string(params.TextDocument.URI)))

	snap, ok := s.getSnapshot(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	return foldingRanges(snap), nil
}

func foldingRanges(snap *composels.Snapshot) []protocol.FoldingRange {
	var ranges []protocol.FoldingRange

	snap.Tree.Walk(func(it *composels.Item) bool {
		if !it.Value.IsCollection() || it.Value.IsFlow() {
			return true
		}

		start := snap.Position(it.Offset())
		end := snap.Position(it.End())

		if end.Line > start.Line {
			ranges = append(ranges, protocol.FoldingRange{
				StartLine: start.Line,
				EndLine:   end.Line,
				Kind:      protocol.RegionFoldingRange,
			})
		}

		return true
	})

	return ranges
}
