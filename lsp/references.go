package lsp

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/composels"
	"github.com/rlch/composels/analysis"
)

// serviceNamePattern is the set of names compose accepts for services.
var serviceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// occurrence is one spelling of a service name in a document.
type occurrence struct {
	Range       protocol.Range
	Declaration bool
}

// References handles textDocument/references requests.
// Finds every depends_on and extends reference to the service under the cursor.
func (s *Server) References(_ context.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	s.logger.Debug("References",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character),
		zap.Bool("includeDeclaration", params.Context.IncludeDeclaration))

	rc, name, err := s.serviceContext(params.TextDocument.URI, params.Position)
	if err != nil || name == "" {
		return nil, err
	}

	var locations []protocol.Location

	for _, occ := range serviceOccurrences(rc.Snapshot, name) {
		if occ.Declaration && !params.Context.IncludeDeclaration {
			continue
		}

		locations = append(locations, protocol.Location{URI: rc.Snapshot.URI, Range: occ.Range})
	}

	return locations, nil
}

// DocumentHighlight handles textDocument/documentHighlight requests.
// The service declaration is a write, references are reads.
func (s *Server) DocumentHighlight(_ context.Context, params *protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	s.logger.Debug("DocumentHighlight",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	rc, name, err := s.serviceContext(params.TextDocument.URI, params.Position)
	if err != nil || name == "" {
		return nil, err
	}

	var highlights []protocol.DocumentHighlight

	for _, occ := range serviceOccurrences(rc.Snapshot, name) {
		kind := protocol.DocumentHighlightKindRead
		if occ.Declaration {
			kind = protocol.DocumentHighlightKindWrite
		}

		highlights = append(highlights, protocol.DocumentHighlight{Range: occ.Range, Kind: kind})
	}

	return highlights, nil
}

// PrepareRename handles textDocument/prepareRename requests.
// Returns the range of the service name under the cursor.
func (s *Server) PrepareRename(_ context.Context, params *protocol.PrepareRenameParams) (*protocol.Range, error) {
	s.logger.Debug("PrepareRename",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	rc, name, err := s.serviceContext(params.TextDocument.URI, params.Position)
	if err != nil || name == "" {
		return nil, err
	}

	for _, occ := range serviceOccurrences(rc.Snapshot, name) {
		if within(occ.Range, params.Position) {
			return &occ.Range, nil
		}
	}

	return nil, nil //nolint:nilnil
}

// Rename handles textDocument/rename requests.
// Renames the service and every reference to it.
func (s *Server) Rename(_ context.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	s.logger.Debug("Rename",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character),
		zap.String("newName", params.NewName))

	if !serviceNamePattern.MatchString(params.NewName) {
		return nil, fmt.Errorf("invalid service name %q", params.NewName)
	}

	rc, name, err := s.serviceContext(params.TextDocument.URI, params.Position)
	if err != nil || name == "" {
		return nil, err
	}

	var edits []protocol.TextEdit

	for _, occ := range serviceOccurrences(rc.Snapshot, name) {
		edits = append(edits, protocol.TextEdit{Range: occ.Range, NewText: params.NewName})
	}

	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentURI][]protocol.TextEdit{rc.Snapshot.URI: edits},
	}, nil
}

// serviceContext resolves pos and returns the service named there, either a
// reference or a service key. Missing documents give no error.
func (s *Server) serviceContext(u protocol.DocumentURI, pos protocol.Position) (*RequestContext, string, error) {
	rc, err := s.positionContext(u, pos)
	if errors.Is(err, composels.ErrNoDocument) || errors.Is(err, composels.ErrResolutionFailed) {
		return nil, "", nil
	}

	if err != nil {
		return nil, "", err
	}

	if name := referencedService(rc.Snapshot, rc.Info); name != "" {
		return rc, name, nil
	}

	if rc.Info.Region != analysis.RegionKey || rc.Info.Item == nil {
		return rc, "", nil
	}

	for _, svc := range services(rc.Snapshot.Tree) {
		if svc == rc.Info.Item {
			return rc, keyName(svc), nil
		}
	}

	return rc, "", nil
}

// serviceOccurrences lists the declaration and references of name in source
// order of services.
func serviceOccurrences(snap *composels.Snapshot, name string) []occurrence {
	var out []occurrence

	add := func(n *composels.Node, decl bool) {
		text, offset, ok := scalar(snap.Text, n)
		if ok && text == name {
			out = append(out, occurrence{Range: snap.Range(offset, len(text)), Declaration: decl})
		}
	}

	for _, svc := range services(snap.Tree) {
		add(svc.Key, true)

		for _, field := range entries(svc) {
			switch keyName(field) {
			case "depends_on":
				for _, dep := range dependencyNodes(field.Value) {
					add(dep, false)
				}
			case "extends":
				if service := lookup(field.Value, "service"); service != nil {
					add(service.Value, false)
				} else {
					add(field.Value, false)
				}
			}
		}
	}

	return out
}

// dependencyNodes returns the name nodes of a depends_on value in either the
// list or the mapping form.
func dependencyNodes(n *composels.Node) []*composels.Node {
	if n == nil || !n.IsCollection() {
		return nil
	}

	var out []*composels.Node

	for _, it := range n.Items {
		if n.IsMap() {
			out = append(out, it.Key)
		} else {
			out = append(out, it.Value)
		}
	}

	return out
}

func within(r protocol.Range, pos protocol.Position) bool {
	if pos.Line != r.Start.Line {
		return false
	}

	return pos.Character >= r.Start.Character && pos.Character <= r.End.Character
}
