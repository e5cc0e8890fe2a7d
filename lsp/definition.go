package lsp

import (
	"context"
	"errors"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/composels"
	"github.com/rlch/composels/analysis"
)

// Definition handles textDocument/definition requests.
// Service names under depends_on and extends jump to the service.
func (s *Server) Definition(_ context.Context, params *protocol.DefinitionParams) ([]protocol.Location, error) {
	s.logger.Debug("Definition",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	rc, err := s.positionContext(params.TextDocument.URI, params.Position)
	if errors.Is(err, composels.ErrNoDocument) || errors.Is(err, composels.ErrResolutionFailed) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	name := referencedService(rc.Snapshot, rc.Info)
	if name == "" {
		return nil, nil
	}

	for _, svc := range services(rc.Snapshot.Tree) {
		if keyName(svc) == name {
			return []protocol.Location{{
				URI:   rc.Snapshot.URI,
				Range: keyRange(rc.Snapshot, svc),
			}}, nil
		}
	}

	return nil, nil
}

// referencedService returns the service named at info, or "".
func referencedService(snap *composels.Snapshot, info *analysis.PositionInfo) string {
	it := info.Item
	if it == nil || info.Region == analysis.RegionComment {
		return ""
	}

	owner := it.Parent.Owner
	value, _, _ := scalar(snap.Text, it.Value)

	switch {
	// depends_on: [a, b] and the block list form
	case ownerKey(owner) == "depends_on" && !it.Parent.IsMap():
		return value
	// depends_on: {a: {condition: ...}}
	case ownerKey(owner) == "depends_on" && info.Region == analysis.RegionKey:
		return keyName(it)
	case keyName(it) == "extends" && info.Region != analysis.RegionKey:
		return value
	case keyName(it) == "service" && ownerKey(owner) == "extends" && info.Region != analysis.RegionKey:
		return value
	}

	return ""
}

func ownerKey(it *composels.Item) string {
	if it == nil {
		return ""
	}

	return keyName(it)
}
