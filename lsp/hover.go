package lsp

import (
	"context"
	"errors"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/composels"
	"github.com/rlch/composels/analysis"
)

// Hover handles textDocument/hover requests.
func (s *Server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.logger.Debug("Hover",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	rc, err := s.positionContext(params.TextDocument.URI, params.Position)
	if errors.Is(err, composels.ErrNoDocument) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, err
	}

	return Dispatch(ctx, CapabilityHover, rc, s.providers.Hover, FirstNonNil[protocol.Hover])
}

// keyHover documents the keys of one mapping, keyed by key name.
type keyHover struct {
	name  string
	match pathMatcher
	docs  map[string]string
}

// hoverFrom builds a key hover table from the documented entries of a
// completion collection.
func hoverFrom(c *completionCollection, keyPattern string) *keyHover {
	docs := make(map[string]string, len(c.entries))

	for _, e := range c.entries {
		key := strings.TrimSuffix(e.label, ":")
		if e.documentation == "" || key == e.label {
			continue
		}

		if _, ok := docs[key]; !ok {
			docs[key] = e.documentation
		}
	}

	return &keyHover{
		name:  c.name,
		match: pathMatcher{paths: paths(keyPattern), depth: c.match.depth},
		docs:  docs,
	}
}

func (h *keyHover) Name() string { return h.name }

func (h *keyHover) Provide(_ context.Context, rc *RequestContext) (*protocol.Hover, error) {
	if rc.Info.Region != analysis.RegionKey || rc.Info.Item == nil || !h.match.matches(rc.Info) {
		return nil, nil //nolint:nilnil
	}

	key := keyName(rc.Info.Item)

	doc, ok := h.docs[key]
	if !ok {
		return nil, nil //nolint:nilnil
	}

	k := rc.Info.Item.Key
	rng := rc.Snapshot.Range(k.Offset(), k.End()-k.Offset())

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: "**" + key + "**\n\n" + doc,
		},
		Range: &rng,
	}, nil
}
