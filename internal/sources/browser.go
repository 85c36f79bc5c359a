package sources

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	srcerrors "github.com/lepinkainen/novelseek/internal/errors"
)

var (
	chromedpExecAllocator = chromedp.NewExecAllocator
	chromedpContext       = chromedp.NewContext
	chromedpRunner        = chromedp.Run
)

// BrowserFetcher renders pages in headless Chrome and returns the final
// HTML. One browser is started lazily and shared; every fetch gets its own tab.
type BrowserFetcher struct {
	headless bool

	mu         sync.Mutex
	browserCtx context.Context
	cancel     func()
}

// NewBrowserFetcher creates a BrowserFetcher.
func NewBrowserFetcher(headless bool) *BrowserFetcher {
	return &BrowserFetcher{headless: headless}
}

func (b *BrowserFetcher) start() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		return b.browserCtx
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("mute-audio", true),
	)
	allocCtx, cancelAlloc := chromedpExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedpContext(allocCtx)

	b.browserCtx = browserCtx
	b.cancel = func() {
		cancelBrowser()
		cancelAlloc()
	}
	slog.Debug("Started headless browser", "headless", b.headless)
	return browserCtx
}

func (b *BrowserFetcher) Fetch(ctx context.Context, platform string, req Request) ([]byte, error) {
	tabCtx, cancelTab := chromedpContext(b.start())
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	headers := network.Headers{}
	for k, vs := range req.Header {
		headers[k] = strings.Join(vs, ", ")
	}

	var html string
	err := chromedpRunner(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(req.URL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, srcerrors.NewSourceError(platform, srcerrors.KindNetwork, fmt.Errorf("render %s: %w", req.URL, err))
	}
	return []byte(html), nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
		b.browserCtx = nil
	}
	return nil
}
