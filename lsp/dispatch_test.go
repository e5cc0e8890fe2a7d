package lsp_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/composels/lsp"
)

func items(name string, delay time.Duration, values ...string) lsp.SubProvider[[]string] {
	return lsp.ProviderFunc(name, func(ctx context.Context, _ *lsp.RequestContext) ([]string, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, nil
		}

		return values, nil
	})
}

func TestDispatch_UnionKeepsRegistrationOrder(t *testing.T) {
	t.Parallel()

	providers := []lsp.SubProvider[[]string]{
		items("slow", 20*time.Millisecond, "a", "b"),
		items("empty", 0),
		items("fast", 0, "c"),
	}

	got, err := lsp.Dispatch(context.Background(), lsp.CapabilityCompletion, &lsp.RequestContext{}, providers, lsp.Union[string])
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestDispatch_FirstNonNil(t *testing.T) {
	t.Parallel()

	first, second := "first", "second"

	providers := []lsp.SubProvider[*string]{
		lsp.ProviderFunc("none", func(context.Context, *lsp.RequestContext) (*string, error) {
			return nil, nil
		}),
		lsp.ProviderFunc("slow", func(context.Context, *lsp.RequestContext) (*string, error) {
			time.Sleep(20 * time.Millisecond)
			return &first, nil
		}),
		lsp.ProviderFunc("fast", func(context.Context, *lsp.RequestContext) (*string, error) {
			return &second, nil
		}),
	}

	got, err := lsp.Dispatch(context.Background(), lsp.CapabilityHover, &lsp.RequestContext{}, providers, lsp.FirstNonNil[string])
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first", *got)
}

func TestDispatch_ProviderErrorFailsAndJoins(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")

	var finished atomic.Int32

	providers := []lsp.SubProvider[[]string]{
		lsp.ProviderFunc("ok", func(context.Context, *lsp.RequestContext) ([]string, error) {
			time.Sleep(20 * time.Millisecond)
			finished.Add(1)

			return []string{"x"}, nil
		}),
		lsp.ProviderFunc("broken", func(context.Context, *lsp.RequestContext) ([]string, error) {
			finished.Add(1)
			return nil, errBoom
		}),
	}

	got, err := lsp.Dispatch(context.Background(), lsp.CapabilityCompletion, &lsp.RequestContext{}, providers, lsp.Union[string])
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "broken")
	assert.Nil(t, got)
	assert.Equal(t, int32(2), finished.Load(), "dispatch returned before all providers finished")
}

func TestDispatch_PanicBecomesError(t *testing.T) {
	t.Parallel()

	providers := []lsp.SubProvider[[]string]{
		lsp.ProviderFunc("panics", func(context.Context, *lsp.RequestContext) ([]string, error) {
			panic("bad table")
		}),
	}

	_, err := lsp.Dispatch(context.Background(), lsp.CapabilityCompletion, &lsp.RequestContext{}, providers, lsp.Union[string])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad table")
}

func TestDispatch_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	var observed atomic.Bool

	providers := []lsp.SubProvider[[]string]{
		lsp.ProviderFunc("waits", func(ctx context.Context, _ *lsp.RequestContext) ([]string, error) {
			<-ctx.Done()
			observed.Store(true)

			return nil, nil
		}),
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := lsp.Dispatch(ctx, lsp.CapabilitySignatureHelp, &lsp.RequestContext{}, providers, lsp.Union[string])
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, observed.Load())
}

func TestDispatch_CancelledDiscardsResults(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	providers := []lsp.SubProvider[[]string]{
		lsp.ProviderFunc("late", func(context.Context, *lsp.RequestContext) ([]string, error) {
			cancel()

			return []string{"partial"}, nil
		}),
	}

	got, err := lsp.Dispatch(ctx, lsp.CapabilityCompletion, &lsp.RequestContext{}, providers, lsp.Union[string])
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}

func TestDispatch_NoProviders(t *testing.T) {
	t.Parallel()

	got, err := lsp.Dispatch(context.Background(), lsp.CapabilityCodeLens, &lsp.RequestContext{}, nil, lsp.Union[string])
	require.NoError(t, err)
	assert.Empty(t, got)
}
