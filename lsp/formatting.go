package lsp

import (
	"context"
	"errors"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/composels"
)

// Formatting handles textDocument/formatting requests.
func (s *Server) Formatting(_ context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	s.logger.Debug("Formatting", zap.String("uri", string(params.TextDocument.URI)))

	snap, ok := s.getSnapshot(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	// Need a valid parse to format
	if snap.SyntaxErr != nil {
		return nil, nil
	}

	opts := composels.FormatOptions{Indent: s.getConfig().Format.Indent}
	if opts.Indent <= 0 && params.Options.InsertSpaces {
		opts.Indent = int(params.Options.TabSize)
	}

	formatted, err := composels.Format(snap.Text, opts)
	if errors.Is(err, composels.ErrSyntax) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if formatted == snap.Text {
		return []protocol.TextEdit{}, nil
	}

	// A single edit that replaces the entire document
	return []protocol.TextEdit{
		{
			Range:   snap.Range(0, len(snap.Text)),
			NewText: formatted,
		},
	}, nil
}
