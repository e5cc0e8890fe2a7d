package lsp

import "go.lsp.dev/protocol"

// Registry holds the sub-providers of every dispatched capability, in the
// order their results are reduced.
type Registry struct {
	Completion    []SubProvider[[]protocol.CompletionItem]
	SignatureHelp []SubProvider[*protocol.SignatureHelp]
	Hover         []SubProvider[*protocol.Hover]
	DocumentLink  []SubProvider[[]protocol.DocumentLink]
	CodeLens      []SubProvider[[]protocol.CodeLens]
}

// DefaultRegistry returns the built-in compose providers.
func DefaultRegistry() *Registry {
	return &Registry{
		Completion: []SubProvider[[]protocol.CompletionItem]{
			rootCompletions,
			serviceCompletions,
			buildCompletions,
			healthcheckCompletions,
			deployCompletions,
			portCompletions,
			serviceVolumeCompletions,
			volumeModeCompletions,
			volumeCompletions,
			networkCompletions,
			dependsOnProvider{},
			networkProvider{},
		},
		SignatureHelp: []SubProvider[*protocol.SignatureHelp]{
			portSignatures,
			volumeSignatures,
		},
		Hover: []SubProvider[*protocol.Hover]{
			hoverFrom(rootCompletions, `/[^/<]+`),
			hoverFrom(serviceCompletions, `/services/[^/]+/[^/<]+`),
			hoverFrom(buildCompletions, `/services/[^/]+/build/[^/<]+`),
			hoverFrom(healthcheckCompletions, `/services/[^/]+/healthcheck/[^/<]+`),
			hoverFrom(deployCompletions, `/services/[^/]+/deploy/[^/<]+`),
			hoverFrom(volumeCompletions, `/volumes/[^/]+/[^/<]+`),
			hoverFrom(networkCompletions, `/networks/[^/]+/[^/<]+`),
		},
		DocumentLink: []SubProvider[[]protocol.DocumentLink]{
			imageLinks{},
			envFileLinks{},
		},
		CodeLens: []SubProvider[[]protocol.CodeLens]{
			serviceLenses{},
		},
	}
}
