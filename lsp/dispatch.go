package lsp

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rlch/composels"
	"github.com/rlch/composels/analysis"
)

// Capability names a request kind served by sub-providers.
type Capability string

const (
	CapabilityCompletion    Capability = "completion"
	CapabilitySignatureHelp Capability = "signatureHelp"
	CapabilityHover         Capability = "hover"
	CapabilityDocumentLink  Capability = "documentLink"
	CapabilityCodeLens      Capability = "codeLens"
)

// RequestContext is what every sub-provider of a single request sees. It is
// built once per request and never mutated by providers.
type RequestContext struct {
	Snapshot *composels.Snapshot

	// Position and Offset locate the cursor. Both are zero for requests
	// that cover the whole document.
	Position protocol.Position
	Offset   int

	// Info is nil for requests that cover the whole document.
	Info *analysis.PositionInfo

	// Line is the full text of the cursor line.
	Line string

	Settings composels.Settings
	Config   *composels.Config
	Logger   *zap.Logger
}

// NewRequestContext resolves pos in snap for providers running outside a
// server, such as the command line tools.
func NewRequestContext(snap *composels.Snapshot, pos protocol.Position, cfg *composels.Config, logger *zap.Logger) (*RequestContext, error) {
	rc := &RequestContext{
		Snapshot: snap,
		Settings: snap.Settings(),
		Config:   cfg,
		Logger:   logger,
	}

	if err := rc.locate(pos); err != nil {
		return nil, err
	}

	return rc, nil
}

func (rc *RequestContext) locate(pos protocol.Position) error {
	offset, err := rc.Snapshot.Offset(pos)
	if err != nil {
		return err
	}

	info, err := analysis.ResolveOffset(rc.Snapshot, offset)
	if err != nil {
		return err
	}

	rc.Position = pos
	rc.Offset = offset
	rc.Info = info
	rc.Line = rc.Snapshot.Line(int(pos.Line))

	return nil
}

// Column returns the byte column of the cursor within Line.
func (rc *RequestContext) Column() int {
	return len(lineBefore(rc.Snapshot.Text, rc.Offset))
}

// SubProvider contributes results for one capability.
//
// Providers run concurrently for the same request. They must poll ctx in
// loops and return early once it is done.
type SubProvider[R any] interface {
	Name() string
	Provide(ctx context.Context, rc *RequestContext) (R, error)
}

// Reducer combines the results of all sub-providers, in registration order.
type Reducer[R any] func(results []R) R

// Union concatenates slice results.
func Union[T any](results [][]T) []T {
	var out []T

	for _, r := range results {
		out = append(out, r...)
	}

	return out
}

// FirstNonNil returns the first non-nil result.
func FirstNonNil[T any](results []*T) *T {
	for _, r := range results {
		if r != nil {
			return r
		}
	}

	return nil
}

// ProviderFunc adapts a function to a SubProvider.
func ProviderFunc[R any](name string, fn func(ctx context.Context, rc *RequestContext) (R, error)) SubProvider[R] {
	return &funcProvider[R]{name: name, fn: fn}
}

type funcProvider[R any] struct {
	name string
	fn   func(ctx context.Context, rc *RequestContext) (R, error)
}

func (p *funcProvider[R]) Name() string { return p.name }

func (p *funcProvider[R]) Provide(ctx context.Context, rc *RequestContext) (R, error) {
	return p.fn(ctx, rc)
}

// Dispatch runs every provider concurrently against rc and reduces their
// results. It always waits for all providers. A provider error or panic
// fails the whole dispatch, as does cancellation of ctx: once every
// provider has returned, a cancelled ctx yields ctx.Err() and the partial
// results are discarded rather than reduced. Server methods hand that
// error back to jsonrpc2 as the failed reply.
func Dispatch[R any](
	ctx context.Context,
	capability Capability,
	rc *RequestContext,
	providers []SubProvider[R],
	reduce Reducer[R],
) (R, error) {
	var zero R

	ctx, span := startDispatchSpan(ctx, capability, len(providers))
	defer span.End()

	start := time.Now()
	results := make([]R, len(providers))

	g, gctx := errgroup.WithContext(ctx)

	for i, p := range providers {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s provider %s panicked: %v", capability, p.Name(), r)
				}
			}()

			res, err := p.Provide(gctx, rc)
			if err != nil {
				return fmt.Errorf("%s provider %s: %w", capability, p.Name(), err)
			}

			results[i] = res

			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	if err != nil {
		endDispatchSpan(span, 0, err)
		recordDispatchMetrics(ctx, capability, time.Since(start), 0, false)

		return zero, err
	}

	out := reduce(results)
	n := resultLen(out)

	endDispatchSpan(span, n, nil)
	recordDispatchMetrics(ctx, capability, time.Since(start), n, true)

	return out, nil
}

func resultLen(v any) int {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice:
		return rv.Len()
	case reflect.Pointer:
		if rv.IsNil() {
			return 0
		}

		return 1
	default:
		return 0
	}
}
