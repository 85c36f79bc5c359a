package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	srcerrors "github.com/lepinkainen/novelseek/internal/errors"
)

// stubChromedp replaces the chromedp entry points for the duration of a test.
func stubChromedp(t *testing.T, runner func(context.Context, ...chromedp.Action) error) *int {
	t.Helper()

	origAlloc, origContext, origRunner := chromedpExecAllocator, chromedpContext, chromedpRunner
	t.Cleanup(func() {
		chromedpExecAllocator, chromedpContext, chromedpRunner = origAlloc, origContext, origRunner
	})

	allocations := 0
	chromedpExecAllocator = func(ctx context.Context, _ ...chromedp.ExecAllocatorOption) (context.Context, context.CancelFunc) {
		allocations++
		return context.WithCancel(ctx)
	}
	chromedpContext = func(ctx context.Context, _ ...chromedp.ContextOption) (context.Context, context.CancelFunc) {
		return context.WithCancel(ctx)
	}
	chromedpRunner = runner
	return &allocations
}

func TestBrowserFetcher_RunsNavigation(t *testing.T) {
	var actions int
	allocations := stubChromedp(t, func(_ context.Context, acts ...chromedp.Action) error {
		actions = len(acts)
		return nil
	})

	b := NewBrowserFetcher(true)
	defer func() { _ = b.Close() }()

	_, err := b.Fetch(context.Background(), "qidian", Request{URL: "https://m.qidian.com/"})
	require.NoError(t, err)
	_, err = b.Fetch(context.Background(), "qidian", Request{URL: "https://m.qidian.com/so/x.html"})
	require.NoError(t, err)

	assert.Equal(t, 4, actions)
	assert.Equal(t, 1, *allocations, "browser is started once and shared")
}

func TestBrowserFetcher_RunError(t *testing.T) {
	stubChromedp(t, func(context.Context, ...chromedp.Action) error {
		return errors.New("net::ERR_NAME_NOT_RESOLVED")
	})

	b := NewBrowserFetcher(true)
	defer func() { _ = b.Close() }()

	_, err := b.Fetch(context.Background(), "ciweimao", Request{URL: "https://www.ciweimao.com/"})
	require.Error(t, err)
	assert.Equal(t, srcerrors.KindNetwork, srcerrors.SourceErrorKindOf(err))
	assert.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
}

func TestBrowserFetcher_CloseRestarts(t *testing.T) {
	allocations := stubChromedp(t, func(context.Context, ...chromedp.Action) error { return nil })

	b := NewBrowserFetcher(false)
	_, err := b.Fetch(context.Background(), "sfacg", Request{URL: "https://book.sfacg.com/"})
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err = b.Fetch(context.Background(), "sfacg", Request{URL: "https://book.sfacg.com/"})
	require.NoError(t, err)
	assert.Equal(t, 2, *allocations)
	require.NoError(t, b.Close())
}
