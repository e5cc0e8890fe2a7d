package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/composels"
)

const diagnosticSource = "composels"

// publishDiagnostics publishes the parse markers and the YAML syntax error
// of snap.
func (s *Server) publishDiagnostics(ctx context.Context, snap *composels.Snapshot) {
	diagnostics := Diagnostics(snap)

	s.logger.Debug("Publishing diagnostics",
		zap.String("uri", string(snap.URI)),
		zap.Int("count", len(diagnostics)))

	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         snap.URI,
		Version:     uint32(snap.Version), //nolint:gosec // LSP version numbers are always non-negative
		Diagnostics: diagnostics,
	})
	if err != nil {
		s.logger.Error("Failed to publish diagnostics", zap.Error(err))
	}
}

// Diagnostics converts the problems found while parsing snap.
func Diagnostics(snap *composels.Snapshot) []protocol.Diagnostic {
	diagnostics := make([]protocol.Diagnostic, 0, len(snap.Tree.Markers)+1)

	for _, m := range snap.Tree.Markers {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    snap.Range(m.Offset, m.Length),
			Severity: convertSeverity(m.Severity),
			Source:   diagnosticSource,
			Message:  m.Message,
		})
	}

	if e := snap.SyntaxErr; e != nil {
		rng := snap.Range(0, 0)

		if e.Line >= 0 {
			start, err := snap.Offset(protocol.Position{Line: uint32(e.Line)}) //nolint:gosec // checked above
			if err == nil {
				rng = snap.Range(start, len(snap.Line(e.Line)))
			}
		}

		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    rng,
			Severity: protocol.DiagnosticSeverityError,
			Source:   diagnosticSource,
			Message:  e.Msg,
		})
	}

	return diagnostics
}

// convertSeverity converts marker severity to LSP severity.
func convertSeverity(sev composels.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case composels.SeverityError:
		return protocol.DiagnosticSeverityError
	case composels.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case composels.SeverityHint:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityError
	}
}
