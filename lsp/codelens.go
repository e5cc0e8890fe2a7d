package lsp

import (
	"context"
	"errors"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/composels"
)

// Commands issued by code lenses. The client is expected to run them.
const (
	CommandUp        = "composels.up"
	CommandUpService = "composels.upService"
)

// CodeLens handles textDocument/codeLens requests.
// Returns lenses for starting the whole application or a single service.
func (s *Server) CodeLens(ctx context.Context, params *protocol.CodeLensParams) ([]protocol.CodeLens, error) {
	s.logger.Debug("CodeLens",
		zap.String("uri", string(params.TextDocument.URI)))

	rc, err := s.documentContext(params.TextDocument.URI)
	if errors.Is(err, composels.ErrNoDocument) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return Dispatch(ctx, CapabilityCodeLens, rc, s.providers.CodeLens, Union[protocol.CodeLens])
}

// serviceLenses puts a run lens on the services key and on every service.
type serviceLenses struct{}

func (serviceLenses) Name() string { return "services" }

func (serviceLenses) Provide(ctx context.Context, rc *RequestContext) ([]protocol.CodeLens, error) {
	if rc.Config != nil && !rc.Config.CodeLens.Enabled {
		return nil, nil
	}

	filePath := uriToPath(rc.Snapshot.URI)

	var lenses []protocol.CodeLens

	for _, top := range topLevel(rc.Snapshot.Tree, "services") {
		lenses = append(lenses, protocol.CodeLens{
			Range: keyRange(rc.Snapshot, top),
			Command: &protocol.Command{
				Title:     "▶ Run All Services",
				Command:   CommandUp,
				Arguments: []any{filePath},
			},
		})

		for _, svc := range entries(top) {
			if ctx.Err() != nil {
				return nil, nil
			}

			lenses = append(lenses, protocol.CodeLens{
				Range: keyRange(rc.Snapshot, svc),
				Command: &protocol.Command{
					Title:     "▶ Run Service",
					Command:   CommandUpService,
					Arguments: []any{filePath, keyName(svc)},
				},
			})
		}
	}

	return lenses, nil
}
