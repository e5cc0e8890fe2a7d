package lsp

import (
	"context"
	"errors"
	"regexp"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/composels"
	"github.com/rlch/composels/analysis"
)

// SignatureHelp handles textDocument/signatureHelp requests.
func (s *Server) SignatureHelp(ctx context.Context, params *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	s.logger.Debug("SignatureHelp",
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

	return Dispatch(ctx, CapabilitySignatureHelp, rc, s.providers.SignatureHelp, FirstNonNil[protocol.SignatureHelp])
}

// signatureParam is one parameter of a signature, matched by one capture
// group of the signature's matcher.
type signatureParam struct {
	label         string
	documentation string
}

type signatureEntry struct {
	label         string
	documentation string
	params        []signatureParam

	// matcher is tried against the cursor line. Its capture groups
	// correspond to params in order.
	matcher *regexp.Regexp
}

// signatureCollection offers the first of its signatures whose matcher
// matches the cursor line, in declaration order.
type signatureCollection struct {
	name       string
	match      pathMatcher
	signatures []signatureEntry
}

func (c *signatureCollection) Name() string { return c.name }

func (c *signatureCollection) Provide(ctx context.Context, rc *RequestContext) (*protocol.SignatureHelp, error) {
	if !c.match.matches(rc.Info) {
		return nil, nil //nolint:nilnil
	}

	for i, sig := range c.signatures {
		if ctx.Err() != nil {
			return nil, nil //nolint:nilnil
		}

		spans := analysis.ComputeSpans(sig.matcher, rc.Line)
		if spans == nil {
			continue
		}

		active := analysis.ActiveParameter(spans[1:], rc.Column())

		return &protocol.SignatureHelp{
			Signatures:      c.information(),
			ActiveSignature: uint32(i),      //nolint:gosec // small table index
			ActiveParameter: uint32(active), //nolint:gosec // small parameter index
		}, nil
	}

	return nil, nil //nolint:nilnil
}

func (c *signatureCollection) information() []protocol.SignatureInformation {
	out := make([]protocol.SignatureInformation, len(c.signatures))

	for i, sig := range c.signatures {
		params := make([]protocol.ParameterInformation, len(sig.params))
		for j, p := range sig.params {
			params[j] = protocol.ParameterInformation{
				Label:         p.label,
				Documentation: p.documentation,
			}
		}

		out[i] = protocol.SignatureInformation{
			Label:         sig.label,
			Documentation: sig.documentation,
			Parameters:    params,
		}
	}

	return out
}
